package sentiment

import (
	"math"
	"sort"
	"time"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// DailyScore is the influence-weighted sentiment of one stock on one day.
type DailyScore struct {
	Stock string
	Date  time.Time
	Score float64
}

type dayKey struct {
	stock string
	date  string
}

type dayTally struct {
	date     time.Time
	pos, neg float64
	posts    int
}

// DailyScores groups annotated comments by stock and calendar date.
//
// Each comment weighs ln(1+influence)+1. A day's polarity is
// (pos-neg)/(pos+neg) over positive and negative weights, 0 when both are
// zero, and the score is polarity*ln(1+posts) where posts counts every
// comment of the day whatever its label. Results are ordered by stock then
// date.
func DailyScores(scored []types.ScoredComment) []DailyScore {
	tallies := make(map[dayKey]*dayTally)
	for _, s := range scored {
		k := dayKey{stock: s.Stock, date: s.CommentTime.Format(types.DateLayout)}
		t, ok := tallies[k]
		if !ok {
			y, m, d := s.CommentTime.Date()
			t = &dayTally{date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
			tallies[k] = t
		}
		t.posts++

		weight := math.Log1p(float64(s.Influence)) + 1
		switch s.Sentiment {
		case Positive:
			t.pos += weight
		case Negative:
			t.neg += weight
		}
	}

	out := make([]DailyScore, 0, len(tallies))
	for k, t := range tallies {
		var polarity float64
		if t.pos+t.neg > 0 {
			polarity = (t.pos - t.neg) / (t.pos + t.neg)
		}
		out = append(out, DailyScore{
			Stock: k.stock,
			Date:  t.date,
			Score: polarity * math.Log1p(float64(t.posts)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
