package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/merge"
	"github.com/IshaanNene/stockpulse/internal/sheet"
)

var mergeScores string

// mergeCmd creates the "merge" subcommand.
func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [symbols...]",
		Short: "Join daily sentiment scores with price and index data",
		Long: `Join the daily score workbook with each symbol's price workbook
(merge.price_dir/<SYMBOL>.xlsx) and the market index, writing:

  - scores joined with prices on date and stock (merge.merged_path)
  - the same rows with variation = (high - low) / low (merge.variation_path)
  - the index with daily close-to-close return in percent (merge.index_return_path)
  - the index with size-weighted daily sentiment (merge.index_sentiment_path)

Symbols are taken from the arguments, or from the universe spreadsheet when
none are given. The database is not used.`,
		RunE: runMerge,
	}

	cmd.Flags().StringVar(&mergeScores, "scores", "", "daily score workbook (overrides analysis.scores_path)")

	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.ValidateMerge(cfg.Merge); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	scores := cfg.Analysis.ScoresPath
	if mergeScores != "" {
		scores = mergeScores
	}

	symbols := args
	if len(symbols) == 0 {
		symbols, err = sheet.ReadSymbols(cfg.Universe.Path, cfg.Universe.Sheet, cfg.Universe.Column)
		if err != nil {
			return fmt.Errorf("read universe: %w", err)
		}
	}

	res, err := merge.NewMerger(cfg.Merge, logger).Run(symbols, scores)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Measure", "Value"})
	t.AppendRows([]table.Row{
		{"Symbols merged", res.Symbols},
		{"Missing price workbooks", strings.Join(res.MissingPrices, ", ")},
		{"Stock sentiment rows", res.MergedRows},
		{"Variation written", res.Variation},
		{"Index rows", res.IndexRows},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
