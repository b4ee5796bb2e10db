package sheet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestReadTableParsesDatesAndNumbers(t *testing.T) {
	aug1 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	path := writeUniverse(t, [][]any{
		{" Date ", "Stock", "Close", "Note"},
		{"2024-08-01", "AAPL", 101.5, "ok"},
		{45506, "AAPL", "102", nil},
		{time.Date(2024, 8, 5, 15, 30, 0, 0, time.UTC), "AAPL", "n/a", ""},
		{"not a date", "AAPL", 1, nil},
		{nil, nil, nil, nil},
	})

	got, err := ReadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	want := &Table{
		Columns: []string{"date", "stock", "close", "note"},
		Rows: []Record{
			{"date": aug1, "stock": "AAPL", "close": 101.5, "note": "ok"},
			{"date": aug1.AddDate(0, 0, 1), "stock": "AAPL", "close": 102.0},
			{"date": aug1.AddDate(0, 0, 4), "stock": "AAPL", "close": "n/a"},
		},
		Skipped: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTableRoundTrip(t *testing.T) {
	in := &Table{
		Columns: []string{"date", "stock", "return"},
		Rows: []Record{
			{"date": time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), "stock": "IBM"},
			{"date": time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC), "stock": "IBM", "return": -1.0 / 3},
		},
	}
	path := filepath.Join(t.TempDir(), "out", "table.xlsx")
	if err := WriteTable(path, in); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTableHas(t *testing.T) {
	tb := &Table{Columns: []string{"date", "close"}}
	if !tb.Has("close", "date") || tb.Has("date", "high") {
		t.Error("Has should require every column")
	}
	tb.AddColumn("close")
	tb.AddColumn("return")
	if diff := cmp.Diff([]string{"date", "close", "return"}, tb.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}
