package types

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

func TestCommentRow(t *testing.T) {
	c := Comment{
		Stock:        "AAPL",
		CommentTime:  day("2024-08-05"),
		Comments:     "to the moon",
		SentimentTag: StringPtr("Bullish"),
		Influence:    12,
	}
	row := c.Row()
	want := []string{"AAPL", "2024-08-05", "to the moon", "Bullish", "12"}
	if len(row) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(row))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s: expected %q, got %q", CommentColumns[i], want[i], row[i])
		}
	}

	c.SentimentTag = nil
	if got := c.Row()[3]; got != "" {
		t.Errorf("nil tag should render empty, got %q", got)
	}
}

func TestBatchWithStockDoesNotMutate(t *testing.T) {
	b := Batch{{Comments: "A"}, {Comments: "B"}}
	tagged := b.WithStock("MSFT")
	for _, c := range tagged {
		if c.Stock != "MSFT" {
			t.Errorf("expected stock MSFT, got %q", c.Stock)
		}
	}
	if b[0].Stock != "" {
		t.Error("original batch should be left untouched")
	}
}

func TestDedupe(t *testing.T) {
	base := Comment{Stock: "KO", CommentTime: day("2024-08-01"), Comments: "same", Influence: 3}
	tagged := base
	tagged.SentimentTag = StringPtr("Bearish")
	emptyTag := base
	emptyTag.SentimentTag = StringPtr("")

	in := []Comment{base, base, tagged, emptyTag, tagged}
	out := Dedupe(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 unique records, got %d", len(out))
	}
	if out[0].SentimentTag != nil || out[1].Tag() != "Bearish" || out[2].SentimentTag == nil {
		t.Error("dedupe should keep first occurrences in order")
	}
}

func TestUnlabelledAndLatestLabels(t *testing.T) {
	a := Comment{Stock: "KO", CommentTime: day("2024-08-01"), Comments: "a"}
	b := Comment{Stock: "KO", CommentTime: day("2024-08-01"), Comments: "b"}
	c := Comment{Stock: "KO", CommentTime: day("2024-08-02"), Comments: "a"}

	left := Unlabelled([]Comment{a, b, c}, []ScoredComment{{Comment: a, Sentiment: "positive"}})
	if len(left) != 2 || left[0].Comments != "b" || !left[1].CommentTime.Equal(c.CommentTime) {
		t.Errorf("expected b and the later a, got %+v", left)
	}

	latest := LatestLabels([]ScoredComment{
		{Comment: a, Sentiment: "error"},
		{Comment: b, Sentiment: "neutral"},
		{Comment: a, Sentiment: "negative"},
		{Comment: b, Sentiment: "neutral"},
	})
	if len(latest) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(latest))
	}
	if latest[0].Comments != "a" || latest[0].Sentiment != "negative" {
		t.Errorf("expected a relabelled negative first, got %+v", latest[0])
	}
	if latest[1].Comments != "b" {
		t.Errorf("expected b second, got %+v", latest[1])
	}
}

func TestErrorsUnwrap(t *testing.T) {
	err := &SessionError{Symbol: "IBM", Stage: "login", Err: ErrLoginFailed}
	if !errors.Is(err, ErrLoginFailed) {
		t.Error("SessionError should unwrap to its cause")
	}
	var se *StorageError
	wrapped := errors.Join(&StorageError{Backend: "csv", Err: errors.New("disk full")})
	if !errors.As(wrapped, &se) || se.Backend != "csv" {
		t.Error("StorageError should be discoverable through errors.As")
	}
}
