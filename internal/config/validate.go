package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// Validate checks the configuration for invalid values. It runs before any
// symbol is processed so a missing credential never surfaces mid-run.
func Validate(cfg *Config) error {
	if err := ValidateDatabase(cfg.Database); err != nil {
		return err
	}

	if err := ValidateBaseURL(cfg.Feed.BaseURL); err != nil {
		return fmt.Errorf("feed.base_url: %w", err)
	}
	if cfg.Feed.SelectorMode != "xpath" && cfg.Feed.SelectorMode != "css" {
		return fmt.Errorf("feed.selector_mode must be 'xpath' or 'css', got %q", cfg.Feed.SelectorMode)
	}
	if cfg.Feed.NavigationTimeout <= 0 {
		return fmt.Errorf("feed.navigation_timeout must be > 0")
	}
	if (cfg.Feed.Username == "") != (cfg.Feed.Password == "") {
		return fmt.Errorf("feed.username and feed.password must be set together: %w", types.ErrMissingSetting)
	}

	if cfg.Collector.MaxIterations < 1 {
		return fmt.Errorf("collector.max_iterations must be >= 1, got %d", cfg.Collector.MaxIterations)
	}
	if cfg.Collector.TimeBudget <= 0 {
		return fmt.Errorf("collector.time_budget must be > 0")
	}
	if cfg.Collector.ReadPause < 0 || cfg.Collector.IterationPause < 0 || cfg.Collector.SymbolPause < 0 {
		return fmt.Errorf("collector pauses must be >= 0")
	}

	if cfg.Scroll.EarlyStep <= 0 || cfg.Scroll.LateStep <= 0 {
		return fmt.Errorf("scroll steps must be > 0")
	}
	if cfg.Scroll.Pulses < 1 {
		return fmt.Errorf("scroll.pulses must be >= 1, got %d", cfg.Scroll.Pulses)
	}
	if cfg.Scroll.SettleMaxRounds < 1 {
		return fmt.Errorf("scroll.settle_max_rounds must be >= 1, got %d", cfg.Scroll.SettleMaxRounds)
	}

	if cfg.Storage.CSVDir == "" {
		return fmt.Errorf("storage.csv_dir: %w", types.ErrMissingSetting)
	}

	if err := ValidateMerge(cfg.Merge); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateDatabase checks that every connection parameter the driver needs
// is present.
func ValidateDatabase(d DatabaseConfig) error {
	switch d.Driver {
	case "sqlite":
		if d.Path == "" {
			return fmt.Errorf("database.path: %w", types.ErrMissingSetting)
		}
		return nil
	case "postgres", "mongodb":
	default:
		return fmt.Errorf("database.driver %q: %w", d.Driver, types.ErrUnknownDriver)
	}

	required := []struct {
		env   string
		value string
	}{
		{"DATABASE_HOST", d.Host},
		{"DATABASE_PORT", d.Port},
		{"DATABASE_USERNAME", d.Username},
		{"DATABASE_PASSWORD", d.Password},
		{"DATABASE_DATABASE", d.Name},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s: %w", r.env, types.ErrMissingSetting)
		}
	}
	if p, err := strconv.Atoi(d.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("DATABASE_PORT must be 1-65535, got %q", d.Port)
	}
	return nil
}

// ValidateMerge checks the merge stage settings. The merge command runs it
// alone since it never opens the database.
func ValidateMerge(m MergeConfig) error {
	if m.Since != "" {
		if _, err := time.Parse(types.DateLayout, m.Since); err != nil {
			return fmt.Errorf("merge.since must be YYYY-MM-DD, got %q", m.Since)
		}
	}
	required := []struct {
		key   string
		value string
	}{
		{"merge.price_dir", m.PriceDir},
		{"merge.index_path", m.IndexPath},
		{"merge.merged_path", m.MergedPath},
		{"merge.variation_path", m.VariationPath},
		{"merge.index_return_path", m.IndexReturnPath},
		{"merge.index_sentiment_path", m.IndexSentimentPath},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s: %w", r.key, types.ErrMissingSetting)
		}
	}
	return nil
}

// ValidateBaseURL checks the feed base URL symbols are appended to.
func ValidateBaseURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
