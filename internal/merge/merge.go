// Package merge joins daily sentiment scores with per-stock price workbooks
// and the market index, producing the workbooks used for return modelling.
package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/sheet"
	"github.com/IshaanNene/stockpulse/internal/types"
)

// Column names read from and added to the workbooks.
const (
	StockColumn     = "stock"
	CompanyColumn   = "company"
	ScoreColumn     = "sentiment_score"
	SizeColumn      = "size"
	HighColumn      = "high"
	LowColumn       = "low"
	OpenColumn      = "open"
	CloseColumn     = "close"
	VariationColumn = "variation"
	ReturnColumn    = "return"
	WeightedColumn  = "daily_weighted_sentiment"
)

// FilterScores keeps score rows dated on or after since and fills a missing
// stock column from company. A zero since keeps every row.
func FilterScores(scores *sheet.Table, since time.Time) *sheet.Table {
	out := &sheet.Table{Columns: slices.Clone(scores.Columns), Skipped: scores.Skipped}
	fromCompany := !scores.Has(StockColumn) && scores.Has(CompanyColumn)
	if fromCompany {
		out.AddColumn(StockColumn)
	}
	for _, r := range scores.Rows {
		if d, ok := r.Date(); ok && d.Before(since) {
			continue
		}
		if fromCompany {
			r = r.Clone()
			r[StockColumn] = r[CompanyColumn]
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

type joinKey struct {
	date  string
	stock any
}

func keyOf(r sheet.Record) (joinKey, bool) {
	d, ok := r.Date()
	if !ok {
		return joinKey{}, false
	}
	return joinKey{date: d.Format(types.DateLayout), stock: r[StockColumn]}, true
}

// JoinScores inner-joins one symbol's price rows with the score rows on date
// and stock. Price rows without a stock column belong to symbol. Joined rows
// whose sentiment_score is exactly 0 are dropped. Columns are the price
// columns followed by the score columns the prices lack.
func JoinScores(symbol string, prices, scores *sheet.Table) *sheet.Table {
	byKey := make(map[joinKey][]sheet.Record)
	for _, s := range scores.Rows {
		if k, ok := keyOf(s); ok {
			byKey[k] = append(byKey[k], s)
		}
	}

	out := &sheet.Table{Columns: slices.Clone(prices.Columns)}
	ownStock := !prices.Has(StockColumn)
	out.AddColumn(StockColumn)
	for _, c := range scores.Columns {
		out.AddColumn(c)
	}

	for _, p := range prices.Rows {
		if ownStock {
			p = p.Clone()
			p[StockColumn] = symbol
		}
		k, ok := keyOf(p)
		if !ok {
			continue
		}
		for _, s := range byKey[k] {
			if v, ok := s.Number(ScoreColumn); ok && v == 0 {
				continue
			}
			row := p.Clone()
			for col, v := range s {
				if _, taken := row[col]; !taken && !prices.Has(col) {
					row[col] = v
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Concat stacks tables, taking the union of their columns in first-seen order.
func Concat(tables ...*sheet.Table) *sheet.Table {
	out := &sheet.Table{}
	for _, t := range tables {
		for _, c := range t.Columns {
			out.AddColumn(c)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// AddVariation returns t with variation = (high - low) / low and without the
// open and close columns. ok is false when t lacks high or low.
func AddVariation(t *sheet.Table) (out *sheet.Table, ok bool) {
	if !t.Has(HighColumn, LowColumn) {
		return t, false
	}
	out = &sheet.Table{}
	for _, c := range t.Columns {
		if c != OpenColumn && c != CloseColumn {
			out.AddColumn(c)
		}
	}
	out.AddColumn(VariationColumn)

	for _, r := range t.Rows {
		row := r.Clone()
		delete(row, OpenColumn)
		delete(row, CloseColumn)
		delete(row, VariationColumn)
		high, hok := r.Number(HighColumn)
		low, lok := r.Number(LowColumn)
		if hok && lok && low != 0 {
			row[VariationColumn] = (high - low) / low
		}
		out.Rows = append(out.Rows, row)
	}
	return out, true
}

// AddReturns sorts t by date and adds return, the percentage change of close
// against the previous numeric close. The first row has no return. t is
// returned unchanged when it lacks a date or close column.
func AddReturns(t *sheet.Table) *sheet.Table {
	if !t.Has(sheet.DateColumn, CloseColumn) {
		return t
	}
	out := &sheet.Table{Columns: slices.Clone(t.Columns), Skipped: t.Skipped}
	out.AddColumn(ReturnColumn)
	out.Rows = make([]sheet.Record, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
		delete(out.Rows[i], ReturnColumn)
	}
	slices.SortStableFunc(out.Rows, func(a, b sheet.Record) int {
		da, _ := a.Date()
		db, _ := b.Date()
		return da.Compare(db)
	})

	prev, seen := 0.0, false
	for _, r := range out.Rows {
		c, ok := r.Number(CloseColumn)
		if !ok {
			continue
		}
		if seen && prev != 0 {
			r[ReturnColumn] = (c/prev - 1) * 100
		}
		prev, seen = c, true
	}
	return out
}

// WeightedSentiment averages sentiment_score per date weighted by size over
// the merged stock rows, and left-joins the result onto the index rows as
// daily_weighted_sentiment. Dates with no sized rows get no value.
func WeightedSentiment(index, merged *sheet.Table) (*sheet.Table, error) {
	if !merged.Has(SizeColumn) {
		return nil, fmt.Errorf("merged data has no %q column", SizeColumn)
	}
	if !merged.Has(ScoreColumn) {
		return nil, fmt.Errorf("merged data has no %q column", ScoreColumn)
	}

	type totals struct{ weighted, size float64 }
	daily := make(map[string]*totals)
	for _, r := range merged.Rows {
		d, ok := r.Date()
		if !ok {
			continue
		}
		key := d.Format(types.DateLayout)
		t := daily[key]
		if t == nil {
			t = &totals{}
			daily[key] = t
		}
		size, ok := r.Number(SizeColumn)
		if !ok {
			continue
		}
		t.size += size
		if score, ok := r.Number(ScoreColumn); ok {
			t.weighted += score * size
		}
	}

	out := &sheet.Table{Columns: slices.Clone(index.Columns), Skipped: index.Skipped}
	out.AddColumn(WeightedColumn)
	for _, r := range index.Rows {
		row := r.Clone()
		delete(row, WeightedColumn)
		if d, ok := r.Date(); ok {
			if t := daily[d.Format(types.DateLayout)]; t != nil && t.size != 0 {
				row[WeightedColumn] = t.weighted / t.size
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Result summarises a merge run.
type Result struct {
	Symbols       int
	MissingPrices []string
	MergedRows    int
	IndexRows     int
	Variation     bool
}

// Merger runs the full merge stage against the configured workbooks.
type Merger struct {
	cfg    config.MergeConfig
	logger *slog.Logger
}

// NewMerger creates a merger.
func NewMerger(cfg config.MergeConfig, logger *slog.Logger) *Merger {
	return &Merger{
		cfg:    cfg,
		logger: logger.With("component", "merger"),
	}
}

// PricePath returns <price_dir>/<symbol>.xlsx.
func (m *Merger) PricePath(symbol string) (string, error) {
	name := symbol + ".xlsx"
	if symbol == "" || !filepath.IsLocal(name) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidSymbol, symbol)
	}
	return filepath.Join(m.cfg.PriceDir, name), nil
}

// Run joins the scores workbook with each symbol's prices and the market
// index and writes the four output workbooks. A symbol without a price
// workbook is skipped and reported in Result.MissingPrices.
func (m *Merger) Run(symbols []string, scoresPath string) (Result, error) {
	var res Result

	var since time.Time
	if m.cfg.Since != "" {
		d, err := time.Parse(types.DateLayout, m.cfg.Since)
		if err != nil {
			return res, fmt.Errorf("merge.since: %w", err)
		}
		since = d
	}

	raw, err := sheet.ReadTable(scoresPath)
	if err != nil {
		return res, fmt.Errorf("read scores: %w", err)
	}
	scores := FilterScores(raw, since)
	m.logger.Info("scores loaded", "path", scoresPath, "rows", len(scores.Rows), "since", m.cfg.Since, "skipped", raw.Skipped)

	joined := make([]*sheet.Table, 0, len(symbols))
	for _, symbol := range symbols {
		path, err := m.PricePath(symbol)
		if err != nil {
			return res, err
		}
		prices, err := sheet.ReadTable(path)
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("no price workbook, skipping", "symbol", symbol, "path", path)
			res.MissingPrices = append(res.MissingPrices, symbol)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read prices for %s: %w", symbol, err)
		}
		j := JoinScores(symbol, prices, scores)
		m.logger.Debug("prices joined", "symbol", symbol, "price_rows", len(prices.Rows), "joined", len(j.Rows))
		joined = append(joined, j)
		res.Symbols++
	}

	merged := Concat(joined...)
	res.MergedRows = len(merged.Rows)
	if err := sheet.WriteTable(m.cfg.MergedPath, merged); err != nil {
		return res, err
	}
	m.logger.Info("stock sentiment written", "path", m.cfg.MergedPath, "rows", res.MergedRows)

	if variation, ok := AddVariation(merged); ok {
		if err := sheet.WriteTable(m.cfg.VariationPath, variation); err != nil {
			return res, err
		}
		res.Variation = true
		m.logger.Info("variation written", "path", m.cfg.VariationPath)
	} else {
		m.logger.Warn("prices have no high/low columns, variation not written")
	}

	index, err := sheet.ReadTable(m.cfg.IndexPath)
	if err != nil {
		return res, fmt.Errorf("read index: %w", err)
	}
	withReturns := AddReturns(index)
	if err := sheet.WriteTable(m.cfg.IndexReturnPath, withReturns); err != nil {
		return res, err
	}

	combined, err := WeightedSentiment(withReturns, merged)
	if err != nil {
		return res, err
	}
	res.IndexRows = len(combined.Rows)
	if err := sheet.WriteTable(m.cfg.IndexSentimentPath, combined); err != nil {
		return res, err
	}
	m.logger.Info("index sentiment written", "path", m.cfg.IndexSentimentPath, "rows", res.IndexRows)
	return res, nil
}
