package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the plain environment names the research
// scripts have always used, so an existing .env keeps working.
var envBindings = map[string]string{
	"database.host":       "DATABASE_HOST",
	"database.port":       "DATABASE_PORT",
	"database.username":   "DATABASE_USERNAME",
	"database.password":   "DATABASE_PASSWORD",
	"database.name":       "DATABASE_DATABASE",
	"feed.username":       "FEED_USERNAME",
	"feed.password":       "FEED_PASSWORD",
	"sentiment.api_token": "HF_API_TOKEN",
}

// Load reads configuration from file, environment, and .env.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller afterwards.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("STOCKPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "STOCKPULSE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("stockpulse")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".stockpulse"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// setDefaults registers default values in viper so env-only keys unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("feed.base_url", cfg.Feed.BaseURL)
	v.SetDefault("feed.username", cfg.Feed.Username)
	v.SetDefault("feed.password", cfg.Feed.Password)
	v.SetDefault("feed.headless", cfg.Feed.Headless)
	v.SetDefault("feed.stealth", cfg.Feed.Stealth)
	v.SetDefault("feed.window_size", cfg.Feed.WindowSize)
	v.SetDefault("feed.user_data_dir", cfg.Feed.UserDataDir)
	v.SetDefault("feed.navigation_timeout", cfg.Feed.NavigationTimeout)
	v.SetDefault("feed.element_timeout", cfg.Feed.ElementTimeout)
	v.SetDefault("feed.selector_mode", cfg.Feed.SelectorMode)
	v.SetDefault("feed.dump_dir", cfg.Feed.DumpDir)

	v.SetDefault("collector.max_iterations", cfg.Collector.MaxIterations)
	v.SetDefault("collector.time_budget", cfg.Collector.TimeBudget)
	v.SetDefault("collector.read_pause", cfg.Collector.ReadPause)
	v.SetDefault("collector.iteration_pause", cfg.Collector.IterationPause)
	v.SetDefault("collector.symbol_pause", cfg.Collector.SymbolPause)

	v.SetDefault("scroll.early_step", cfg.Scroll.EarlyStep)
	v.SetDefault("scroll.late_step", cfg.Scroll.LateStep)
	v.SetDefault("scroll.pulses", cfg.Scroll.Pulses)
	v.SetDefault("scroll.pause", cfg.Scroll.Pause)
	v.SetDefault("scroll.settle_wait", cfg.Scroll.SettleWait)
	v.SetDefault("scroll.settle_max_rounds", cfg.Scroll.SettleMaxRounds)
	v.SetDefault("scroll.warmup_pulses", cfg.Scroll.WarmupPulses)
	v.SetDefault("scroll.warmup_step", cfg.Scroll.WarmupStep)

	v.SetDefault("universe.path", cfg.Universe.Path)
	v.SetDefault("universe.column", cfg.Universe.Column)
	v.SetDefault("universe.sheet", cfg.Universe.Sheet)

	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.username", cfg.Database.Username)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)

	v.SetDefault("storage.csv_dir", cfg.Storage.CSVDir)

	v.SetDefault("sentiment.endpoint", cfg.Sentiment.Endpoint)
	v.SetDefault("sentiment.model", cfg.Sentiment.Model)
	v.SetDefault("sentiment.api_token", cfg.Sentiment.APIToken)
	v.SetDefault("sentiment.batch_size", cfg.Sentiment.BatchSize)
	v.SetDefault("sentiment.timeout", cfg.Sentiment.Timeout)

	v.SetDefault("analysis.activity_path", cfg.Analysis.ActivityPath)
	v.SetDefault("analysis.scores_path", cfg.Analysis.ScoresPath)

	v.SetDefault("merge.price_dir", cfg.Merge.PriceDir)
	v.SetDefault("merge.index_path", cfg.Merge.IndexPath)
	v.SetDefault("merge.since", cfg.Merge.Since)
	v.SetDefault("merge.merged_path", cfg.Merge.MergedPath)
	v.SetDefault("merge.variation_path", cfg.Merge.VariationPath)
	v.SetDefault("merge.index_return_path", cfg.Merge.IndexReturnPath)
	v.SetDefault("merge.index_sentiment_path", cfg.Merge.IndexSentimentPath)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
