package config

import (
	"fmt"
	"net/url"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for stockpulse.
type Config struct {
	Feed      FeedConfig      `mapstructure:"feed"      yaml:"feed"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Scroll    ScrollConfig    `mapstructure:"scroll"    yaml:"scroll"`
	Universe  UniverseConfig  `mapstructure:"universe"  yaml:"universe"`
	Database  DatabaseConfig  `mapstructure:"database"  yaml:"database"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Sentiment SentimentConfig `mapstructure:"sentiment" yaml:"sentiment"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  yaml:"analysis"`
	Merge     MergeConfig     `mapstructure:"merge"     yaml:"merge"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// FeedConfig controls the browser session used to read a symbol's feed.
type FeedConfig struct {
	BaseURL           string        `mapstructure:"base_url"           yaml:"base_url"`
	Username          string        `mapstructure:"username"           yaml:"username"`
	Password          string        `mapstructure:"password"           yaml:"password"`
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	Stealth           bool          `mapstructure:"stealth"            yaml:"stealth"`
	WindowSize        string        `mapstructure:"window_size"        yaml:"window_size"`
	UserDataDir       string        `mapstructure:"user_data_dir"      yaml:"user_data_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout"    yaml:"element_timeout"`
	SelectorMode      string        `mapstructure:"selector_mode"      yaml:"selector_mode"` // xpath, css
	DumpDir           string        `mapstructure:"dump_dir"           yaml:"dump_dir"`
}

// CollectorConfig bounds a single symbol's collection run.
type CollectorConfig struct {
	MaxIterations  int           `mapstructure:"max_iterations"  yaml:"max_iterations"`
	TimeBudget     time.Duration `mapstructure:"time_budget"     yaml:"time_budget"`
	ReadPause      time.Duration `mapstructure:"read_pause"      yaml:"read_pause"`
	IterationPause time.Duration `mapstructure:"iteration_pause" yaml:"iteration_pause"`
	SymbolPause    time.Duration `mapstructure:"symbol_pause"    yaml:"symbol_pause"`
}

// ScrollConfig controls how far the feed is advanced per iteration.
type ScrollConfig struct {
	EarlyStep       int           `mapstructure:"early_step"        yaml:"early_step"`
	LateStep        int           `mapstructure:"late_step"         yaml:"late_step"`
	Pulses          int           `mapstructure:"pulses"            yaml:"pulses"`
	Pause           time.Duration `mapstructure:"pause"             yaml:"pause"`
	SettleWait      time.Duration `mapstructure:"settle_wait"       yaml:"settle_wait"`
	SettleMaxRounds int           `mapstructure:"settle_max_rounds" yaml:"settle_max_rounds"`
	WarmupPulses    int           `mapstructure:"warmup_pulses"     yaml:"warmup_pulses"`
	WarmupStep      int           `mapstructure:"warmup_step"       yaml:"warmup_step"`
}

// UniverseConfig locates the spreadsheet listing the symbols to collect.
type UniverseConfig struct {
	Path   string `mapstructure:"path"   yaml:"path"`
	Column string `mapstructure:"column" yaml:"column"`
	Sheet  string `mapstructure:"sheet"  yaml:"sheet"`
}

// DatabaseConfig holds the durable store connection parameters.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"   yaml:"driver"` // postgres, mongodb, sqlite
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     string `mapstructure:"port"     yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name"     yaml:"name"`
	Path     string `mapstructure:"path"     yaml:"path"` // sqlite only
	MaxConns int    `mapstructure:"max_conns" yaml:"max_conns"`
}

// DSN combines the connection parameters into a single connection string.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return d.Path
	case "mongodb":
		u := url.URL{
			Scheme: "mongodb",
			User:   url.UserPassword(d.Username, d.Password),
			Host:   d.Host + ":" + d.Port,
			Path:   "/",
		}
		return u.String()
	default:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.Username, d.Password),
			Host:   d.Host + ":" + d.Port,
			Path:   "/" + d.Name,
		}
		return u.String()
	}
}

// Redacted returns the DSN with the password masked, for logging.
func (d DatabaseConfig) Redacted() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s://%s:***@%s:%s/%s", d.Driver, d.Username, d.Host, d.Port, d.Name)
}

// StorageConfig controls per-symbol flat files.
type StorageConfig struct {
	CSVDir string `mapstructure:"csv_dir" yaml:"csv_dir"`
}

// SentimentConfig configures the external classification endpoint.
type SentimentConfig struct {
	Endpoint  string        `mapstructure:"endpoint"   yaml:"endpoint"`
	Model     string        `mapstructure:"model"      yaml:"model"`
	APIToken  string        `mapstructure:"api_token"  yaml:"api_token"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// AnalysisConfig controls where analysis artifacts are written.
type AnalysisConfig struct {
	ActivityPath string `mapstructure:"activity_path" yaml:"activity_path"`
	ScoresPath   string `mapstructure:"scores_path"   yaml:"scores_path"`
}

// MergeConfig locates the price workbooks joined with the daily scores and
// the workbooks the merge stage writes.
type MergeConfig struct {
	PriceDir           string `mapstructure:"price_dir"            yaml:"price_dir"` // <price_dir>/<SYMBOL>.xlsx
	IndexPath          string `mapstructure:"index_path"           yaml:"index_path"`
	Since              string `mapstructure:"since"                yaml:"since"` // 2006-01-02, scores before it are ignored
	MergedPath         string `mapstructure:"merged_path"          yaml:"merged_path"`
	VariationPath      string `mapstructure:"variation_path"       yaml:"variation_path"`
	IndexReturnPath    string `mapstructure:"index_return_path"    yaml:"index_return_path"`
	IndexSentimentPath string `mapstructure:"index_sentiment_path" yaml:"index_sentiment_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			BaseURL:           "https://stocktwits.com/symbol",
			Headless:          true,
			Stealth:           true,
			WindowSize:        "1920,1080",
			NavigationTimeout: 60 * time.Second,
			ElementTimeout:    20 * time.Second,
			SelectorMode:      "xpath",
		},
		Collector: CollectorConfig{
			MaxIterations:  1400,
			TimeBudget:     11000 * time.Second,
			ReadPause:      1 * time.Second,
			IterationPause: 1 * time.Second,
			SymbolPause:    5 * time.Second,
		},
		Scroll: ScrollConfig{
			EarlyStep:       1500,
			LateStep:        800,
			Pulses:          5,
			Pause:           500 * time.Millisecond,
			SettleWait:      2 * time.Second,
			SettleMaxRounds: 10,
			WarmupPulses:    2,
			WarmupStep:      1000,
		},
		Universe: UniverseConfig{
			Path:   "Dow_Jones_Average_Index_companies.xlsx",
			Column: "SYMBOL",
		},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Port:     "5432",
			MaxConns: 2,
		},
		Storage: StorageConfig{
			CSVDir: "./comments",
		},
		Sentiment: SentimentConfig{
			Endpoint:  "https://api-inference.huggingface.co/models",
			Model:     "cardiffnlp/twitter-roberta-base-sentiment-latest",
			BatchSize: 16,
			Timeout:   120 * time.Second,
		},
		Analysis: AnalysisConfig{
			ActivityPath: "artifacts/comments_amount.csv",
			ScoresPath:   "data/sentiment_score.xlsx",
		},
		Merge: MergeConfig{
			PriceDir:           "data/financialdata",
			IndexPath:          "data/financialdata/dowjones_data.xlsx",
			Since:              "2024-08-01",
			MergedPath:         "data/processed_stock_sentiment_data.xlsx",
			VariationPath:      "data/processed_stock_sentiment_data_with_variation.xlsx",
			IndexReturnPath:    "data/financialdata/dowjones_data_with_return.xlsx",
			IndexSentimentPath: "data/processed_dowjones.xlsx",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
