// Package sheet reads the symbol universe from and writes score reports to
// .xlsx workbooks.
package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/stockpulse/internal/sentiment"
	"github.com/IshaanNene/stockpulse/internal/types"
)

// ScoreSheet is the sheet name used for daily score workbooks.
const ScoreSheet = "Sheet1"

// ReadSymbols returns the non-blank values under the column headed column,
// in row order with repeats removed. An empty sheet selects the first sheet.
func ReadSymbols(path, sheet, column string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("universe %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("sheet %q has no %q column", sheet, column)
	}

	var symbols []string
	seen := make(map[string]struct{})
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		sym := strings.TrimSpace(row[col])
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// WriteDailyScores replaces path with a workbook of stock, date and
// sentiment_score rows.
func WriteDailyScores(path string, scores []sentiment.DailyScore) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create score dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(ScoreSheet, "A1", &[]any{"stock", "date", "sentiment_score"}); err != nil {
		return err
	}
	for i, s := range scores {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{s.Stock, s.Date.Format(types.DateLayout), s.Score}
		if err := f.SetSheetRow(ScoreSheet, cell, &row); err != nil {
			return fmt.Errorf("write score row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	return nil
}
