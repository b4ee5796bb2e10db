package sentiment

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// Activity summarises how much a stock was discussed.
type Activity struct {
	Stock string
	Total int
	// TenthComment is the date of the stock's tenth comment in time order,
	// nil when it has fewer than ten.
	TenthComment *time.Time
}

// CommentActivity counts comments per stock, ordered by count descending.
// Stocks with equal counts keep alphabetical order.
func CommentActivity(comments []types.Comment) []Activity {
	byStock := make(map[string][]time.Time)
	for _, c := range comments {
		byStock[c.Stock] = append(byStock[c.Stock], c.CommentTime)
	}

	out := make([]Activity, 0, len(byStock))
	for stock, times := range byStock {
		sort.SliceStable(times, func(i, j int) bool { return times[i].Before(times[j]) })
		a := Activity{Stock: stock, Total: len(times)}
		if len(times) >= 10 {
			tenth := times[9]
			a.TenthComment = &tenth
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Stock < out[j].Stock
	})
	return out
}

// WriteActivityCSV replaces path with the activity report.
func WriteActivityCSV(path string, rows []Activity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create activity report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"stock", "total_comments", "tenth_comment_time"}); err != nil {
		return err
	}
	for _, a := range rows {
		tenth := ""
		if a.TenthComment != nil {
			tenth = a.TenthComment.Format(types.DateLayout)
		}
		if err := w.Write([]string{a.Stock, strconv.Itoa(a.Total), tenth}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write activity report: %w", err)
	}
	return f.Close()
}
