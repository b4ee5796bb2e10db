package types

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date layout used for comment_time everywhere
// it is rendered as text (CSV, workbooks, SQL parameters for sqlite).
const DateLayout = "2006-01-02"

// Comment is a single post collected from a symbol's feed.
type Comment struct {
	// Stock is the ticker the feed belongs to. Set once per collection run.
	Stock string

	// CommentTime is the calendar date of the post (time-of-day discarded).
	CommentTime time.Time

	// Comments is the raw body text. May be empty.
	Comments string

	// SentimentTag is the author's self-reported label, nil when the post has none.
	SentimentTag *string

	// Influence is the sum of the post's four engagement counters, or 0.
	Influence int
}

// Tag returns the sentiment tag or "" when absent.
func (c Comment) Tag() string {
	if c.SentimentTag == nil {
		return ""
	}
	return *c.SentimentTag
}

// Row renders the comment in CSV column order:
// stock, comment_time, comments, sentiment_tag, influence.
func (c Comment) Row() []string {
	return []string{
		c.Stock,
		c.CommentTime.Format(DateLayout),
		c.Comments,
		c.Tag(),
		strconv.Itoa(c.Influence),
	}
}

// CommentColumns is the header row matching Comment.Row.
var CommentColumns = []string{"stock", "comment_time", "comments", "sentiment_tag", "influence"}

// Batch is the ordered set of comments produced by one page read.
type Batch []Comment

// Texts returns the set of body texts in the batch.
func (b Batch) Texts() map[string]struct{} {
	set := make(map[string]struct{}, len(b))
	for _, c := range b {
		set[c.Comments] = struct{}{}
	}
	return set
}

// WithStock returns a copy of the batch with every record tagged with symbol.
func (b Batch) WithStock(symbol string) Batch {
	out := make(Batch, len(b))
	for i, c := range b {
		c.Stock = symbol
		out[i] = c
	}
	return out
}

// ScoredComment is a comment annotated by the sentiment model.
type ScoredComment struct {
	Comment

	// Sentiment is the model label (positive, negative, neutral or error).
	Sentiment string

	// Score is the model's confidence for Sentiment.
	Score float64
}

type dedupKey struct {
	stock     string
	date      string
	text      string
	tag       string
	hasTag    bool
	influence int
}

func keyOf(c Comment) dedupKey {
	return dedupKey{
		stock:     c.Stock,
		date:      c.CommentTime.Format(DateLayout),
		text:      c.Comments,
		tag:       c.Tag(),
		hasTag:    c.SentimentTag != nil,
		influence: c.Influence,
	}
}

// Dedupe drops repeated records, keeping the first occurrence. Two records are
// the same when stock, comment_time, comments, sentiment_tag and influence all
// match. The store accepts duplicates on insert so bulk readers call this.
func Dedupe(comments []Comment) []Comment {
	seen := make(map[dedupKey]struct{}, len(comments))
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		k := keyOf(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Unlabelled returns the comments that have no entry in labelled, keeping
// input order.
func Unlabelled(comments []Comment, labelled []ScoredComment) []Comment {
	done := make(map[dedupKey]struct{}, len(labelled))
	for _, s := range labelled {
		done[keyOf(s.Comment)] = struct{}{}
	}
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if _, ok := done[keyOf(c)]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// LatestLabels keeps one ScoredComment per comment: the last one appended,
// at the position the comment was first seen. Annotation runs append rather
// than update, so a relabelled comment has several rows in the store.
func LatestLabels(scored []ScoredComment) []ScoredComment {
	index := make(map[dedupKey]int, len(scored))
	out := make([]ScoredComment, 0, len(scored))
	for _, s := range scored {
		k := keyOf(s.Comment)
		if i, ok := index[k]; ok {
			out[i] = s
			continue
		}
		index[k] = len(out)
		out = append(out, s)
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
