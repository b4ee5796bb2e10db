package sheet

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// DateColumn is parsed into time.Time when a table is read.
const DateColumn = "date"

// Record is one worksheet row keyed by lower-case column name. Values are
// time.Time for the date column, float64 for numeric cells, string for other
// text and absent for blank cells.
type Record map[string]any

// Table is a header row plus the records under it.
type Table struct {
	Columns []string
	Rows    []Record

	// Skipped counts rows dropped on read because their date was blank or
	// unreadable.
	Skipped int
}

// Has reports whether every named column is present.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		found := false
		for _, have := range t.Columns {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AddColumn appends col unless it is already present.
func (t *Table) AddColumn(col string) {
	if !t.Has(col) {
		t.Columns = append(t.Columns, col)
	}
}

// Number returns the numeric value of col in r.
func (r Record) Number(col string) (float64, bool) {
	f, ok := r[col].(float64)
	return f, ok
}

// Date returns the row's date. Only rows from a table with a date column
// have one.
func (r Record) Date() (time.Time, bool) {
	d, ok := r[DateColumn].(time.Time)
	return d, ok
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ReadTable loads the first sheet of path. Headers are trimmed and lower-cased.
// When the sheet has a date column, rows without a readable date are skipped
// and counted in Table.Skipped.
func ReadTable(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	t := &Table{Columns: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		t.Columns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	hasDate := t.Has(DateColumn)

	for _, row := range rows[1:] {
		rec := make(Record, len(t.Columns))
		for i, col := range t.Columns {
			if col == "" || i >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[i])
			if raw == "" {
				continue
			}
			if col == DateColumn {
				if d, ok := parseDate(raw); ok {
					rec[col] = d
				}
				continue
			}
			rec[col] = parseCell(raw)
		}
		if len(rec) == 0 {
			continue
		}
		if _, ok := rec.Date(); hasDate && !ok {
			t.Skipped++
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func parseCell(raw string) any {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return raw
	}
	return f
}

var dateLayouts = []string{
	types.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/06",
}

// parseDate accepts an Excel serial or a formatted date and truncates it to
// the day.
func parseDate(raw string) (time.Time, bool) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		d, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return day(d), true
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return day(d), true
		}
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WriteTable replaces path with a single-sheet workbook holding t. Dates are
// written as YYYY-MM-DD text, the way WriteDailyScores writes them.
func WriteTable(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(ScoreSheet, "A1", &header); err != nil {
		return err
	}
	for i, rec := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := make([]any, len(t.Columns))
		for j, col := range t.Columns {
			switch v := rec[col].(type) {
			case time.Time:
				row[j] = v.Format(types.DateLayout)
			case nil:
			default:
				row[j] = v
			}
		}
		if err := f.SetSheetRow(ScoreSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
