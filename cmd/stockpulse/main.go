package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/stockpulse/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stockpulse",
		Short: "StockPulse collects and scores stock discussion feeds",
		Long: `StockPulse is a batch research pipeline over per-symbol discussion feeds.

Stages:
  collect   scroll each symbol's feed in a browser and store unseen comments
  analyze   label stored comments and write activity, accuracy and daily scores
  migrate   bring the database schema up to date`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration and builds the logger from it.
// Nothing touches the feed or the database before this succeeds.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// setupLogger creates a structured logger.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("StockPulse %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Feed:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Feed.BaseURL)
			fmt.Printf("  Login:             %v\n", cfg.Feed.Username != "")
			fmt.Printf("  Headless:          %v\n", cfg.Feed.Headless)
			fmt.Printf("  Selector Mode:     %s\n", cfg.Feed.SelectorMode)
			fmt.Printf("\nCollector:\n")
			fmt.Printf("  Max Iterations:    %d\n", cfg.Collector.MaxIterations)
			fmt.Printf("  Time Budget:       %s\n", cfg.Collector.TimeBudget)
			fmt.Printf("  Symbol Pause:      %s\n", cfg.Collector.SymbolPause)
			fmt.Printf("\nUniverse:\n")
			fmt.Printf("  Path:              %s\n", cfg.Universe.Path)
			fmt.Printf("  Column:            %s\n", cfg.Universe.Column)
			fmt.Printf("\nDatabase:\n")
			fmt.Printf("  Driver:            %s\n", cfg.Database.Driver)
			fmt.Printf("  Connection:        %s\n", cfg.Database.Redacted())
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  CSV Dir:           %s\n", cfg.Storage.CSVDir)
			fmt.Printf("\nSentiment:\n")
			fmt.Printf("  Model:             %s\n", cfg.Sentiment.Model)
			fmt.Printf("  Batch Size:        %d\n", cfg.Sentiment.BatchSize)
			fmt.Printf("\nMerge:\n")
			fmt.Printf("  Price Dir:         %s\n", cfg.Merge.PriceDir)
			fmt.Printf("  Index:             %s\n", cfg.Merge.IndexPath)
			fmt.Printf("  Since:             %s\n", cfg.Merge.Since)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
	return cmd
}
