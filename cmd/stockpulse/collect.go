package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/stockpulse/internal/collector"
	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/feed"
	"github.com/IshaanNene/stockpulse/internal/fetcher"
	"github.com/IshaanNene/stockpulse/internal/observability"
	"github.com/IshaanNene/stockpulse/internal/scroll"
	"github.com/IshaanNene/stockpulse/internal/sheet"
	"github.com/IshaanNene/stockpulse/internal/storage"
)

var (
	collectUniverse      string
	collectMaxIterations int
	collectTimeBudget    time.Duration
	collectHeadful       bool
)

// collectCmd creates the "collect" subcommand.
func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [symbols...]",
		Short: "Collect comments from each symbol's feed",
		Long: `Open each symbol's feed in a browser, scroll it incrementally and store
every comment not seen in the previous read.

Symbols are taken from the arguments, or from the universe spreadsheet when
none are given. Symbols run one after another; Ctrl-C finishes the current
iteration and stops.`,
		RunE: runCollect,
	}

	cmd.Flags().StringVarP(&collectUniverse, "universe", "u", "", "universe spreadsheet (overrides universe.path)")
	cmd.Flags().IntVarP(&collectMaxIterations, "max-iterations", "m", 0, "iterations per symbol (0 = use config)")
	cmd.Flags().DurationVar(&collectTimeBudget, "time-budget", 0, "wall-clock budget per symbol (0 = use config)")
	cmd.Flags().BoolVar(&collectHeadful, "headful", false, "show the browser window")

	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	applyCollectOverrides(cfg)

	symbols := args
	if len(symbols) == 0 {
		symbols, err = sheet.ReadSymbols(cfg.Universe.Path, cfg.Universe.Sheet, cfg.Universe.Column)
		if err != nil {
			return fmt.Errorf("read universe: %w", err)
		}
	}

	repo, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Database.Redacted(), err)
	}
	defer repo.Close()
	if _, err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	csvStore, err := storage.NewCSVStore(cfg.Storage.CSVDir, logger)
	if err != nil {
		return fmt.Errorf("create csv store: %w", err)
	}
	sink := storage.NewSink(repo, csvStore, logger)

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	opts := []collector.Option{collector.WithMetrics(metrics)}
	if cfg.Feed.DumpDir != "" {
		opts = append(opts, collector.WithDumper(feed.NewPageDumper(cfg.Feed.DumpDir)))
	}
	c := collector.New(cfg.Collector, scroll.NewStrategy(cfg.Scroll), sink, logger, opts...)

	launcher := fetcher.NewLauncher(cfg.Feed, logger)
	opener := collector.OpenFunc(func(ctx context.Context, symbol string) (collector.Session, error) {
		s, err := launcher.Open(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	logger.Info("starting collection",
		"symbols", len(symbols),
		"store", repo.Name(),
		"csv_dir", cfg.Storage.CSVDir,
		"max_iterations", cfg.Collector.MaxIterations,
		"time_budget", cfg.Collector.TimeBudget,
	)

	start := time.Now()
	summaries, err := collector.NewRunner(opener, c, cfg.Collector.SymbolPause, logger).Run(ctx, symbols)
	if err != nil {
		return err
	}

	renderSummaries(summaries)
	stats := metrics.Snapshot()
	fmt.Printf("\nCollected %d comments from %d/%d symbols in %s (%d session failures, %d sink failures)\n",
		stats["records_emitted_total"], stats["symbols_completed_total"], len(symbols),
		time.Since(start).Round(time.Second), stats["sessions_failed_total"], stats["sink_failures_total"])
	return nil
}

func applyCollectOverrides(cfg *config.Config) {
	if collectUniverse != "" {
		cfg.Universe.Path = collectUniverse
	}
	if collectMaxIterations > 0 {
		cfg.Collector.MaxIterations = collectMaxIterations
	}
	if collectTimeBudget > 0 {
		cfg.Collector.TimeBudget = collectTimeBudget
	}
	if collectHeadful {
		cfg.Feed.Headless = false
	}
}

func renderSummaries(summaries []collector.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Symbol", "State", "Iterations", "Emitted", "Duplicates", "Mismatches", "Skipped", "Failed", "Lost", "Elapsed", "Error"})

	for _, s := range summaries {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.AppendRow(table.Row{
			s.Symbol, s.State, s.Iterations, s.Emitted, s.Duplicates,
			s.Mismatches, s.Skipped, s.Failed, s.Lost, s.Elapsed.Round(time.Second), errText,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
