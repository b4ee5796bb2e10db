package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// counterCount is the number of engagement badges a fully rendered message
// carries. Any other count means the layout changed and influence is unknown.
const counterCount = 4

// ParseCommentDate truncates raw at the first 'T' and parses the remainder as
// a calendar date. A value without 'T' is parsed whole.
func ParseCommentDate(raw string) (time.Time, error) {
	date, _, _ := strings.Cut(strings.TrimSpace(raw), "T")
	t, err := time.Parse(types.DateLayout, date)
	if err != nil {
		return time.Time{}, &types.LookupError{Field: "comment_time", Err: err}
	}
	return t, nil
}

// SumCounters adds the four engagement counters. Blank counters count as 0.
// Any count other than four yields 0 with no error; a non-numeric counter
// yields 0 and ErrBadCounter.
func SumCounters(counts []string) (int, error) {
	if len(counts) != counterCount {
		return 0, nil
	}
	total := 0
	for _, c := range counts {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		n, err := strconv.Atoi(c)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%q: %w", c, types.ErrBadCounter)
		}
		total += n
	}
	return total, nil
}

// resolve builds one record from a paired timestamp and body. A failed
// timestamp or body lookup is returned as an error so the caller skips the
// record. Sentiment and influence failures fall back to nil and 0.
func resolve(ts TimestampNode, body BodyNode) (types.Comment, error) {
	raw, err := ts.DateTime()
	if err != nil {
		return types.Comment{}, wrapLookup("comment_time", err)
	}
	date, err := ParseCommentDate(raw)
	if err != nil {
		return types.Comment{}, err
	}

	text, err := body.Text()
	if err != nil {
		return types.Comment{}, wrapLookup("comments", err)
	}

	c := types.Comment{
		CommentTime: date,
		Comments:    text,
	}
	if tag, ok, err := body.SentimentTag(); err == nil && ok {
		c.SentimentTag = types.StringPtr(tag)
	}
	if counts, err := body.EngagementCounts(); err == nil {
		if n, err := SumCounters(counts); err == nil {
			c.Influence = n
		}
	}
	return c, nil
}

func wrapLookup(field string, err error) error {
	var le *types.LookupError
	if errors.As(err, &le) {
		return err
	}
	return &types.LookupError{Field: field, Err: err}
}
