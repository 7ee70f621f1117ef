// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Scraper   ScraperConfig   `yaml:"scraper" mapstructure:"scraper"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer" mapstructure:"analyzer"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RegistryConfig points at the agency registry file.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScraperConfig tunes the HTML listing/detail scraper.
type ScraperConfig struct {
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxPages        int     `yaml:"max_pages" mapstructure:"max_pages"`
	DelayMinSecs    float64 `yaml:"delay_min_secs" mapstructure:"delay_min_secs"`
	DelayMaxSecs    float64 `yaml:"delay_max_secs" mapstructure:"delay_max_secs"`
	MinContentChars int     `yaml:"min_content_chars" mapstructure:"min_content_chars"`
	LookbackDays    int     `yaml:"lookback_days" mapstructure:"lookback_days"`
	OverlapHours    int     `yaml:"overlap_hours" mapstructure:"overlap_hours"`
}

// Timeout returns the per-request timeout as a duration.
func (s ScraperConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// GeminiConfig holds Gemini API settings for both analysis tiers.
type GeminiConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	FilterModel   string  `yaml:"filter_model" mapstructure:"filter_model"`
	AnalyzerModel string  `yaml:"analyzer_model" mapstructure:"analyzer_model"`
	FallbackModel string  `yaml:"fallback_model" mapstructure:"fallback_model"`
	CallDelaySecs float64 `yaml:"call_delay_secs" mapstructure:"call_delay_secs"`
}

// CallDelay returns the mandatory pause between model calls.
func (g GeminiConfig) CallDelay() time.Duration {
	return time.Duration(g.CallDelaySecs * float64(time.Second))
}

// AnalyzerConfig tunes the two-tier decision pipeline.
type AnalyzerConfig struct {
	ImportanceThreshold int      `yaml:"importance_threshold" mapstructure:"importance_threshold"`
	MaxRetries          int      `yaml:"max_retries" mapstructure:"max_retries"`
	HighKeywords        []string `yaml:"high_keywords" mapstructure:"high_keywords"`
	MediumKeywords      []string `yaml:"medium_keywords" mapstructure:"medium_keywords"`
}

// TelegramConfig holds notification credentials.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
}

// SchedulerConfig configures the collection loop.
type SchedulerConfig struct {
	IntervalMinutes  int `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	CycleTimeoutMins int `yaml:"cycle_timeout_mins" mapstructure:"cycle_timeout_mins"`
}

// Interval returns the collection interval as a duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// CycleTimeout returns the per-cycle deadline as a duration.
func (s SchedulerConfig) CycleTimeout() time.Duration {
	return time.Duration(s.CycleTimeoutMins) * time.Minute
}

// ServerConfig configures the trigger/health HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "regpulse.db")
	v.SetDefault("registry.path", "agencies.yaml")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.timeout_secs", 20)
	v.SetDefault("scraper.max_pages", 15)
	v.SetDefault("scraper.delay_min_secs", 2.0)
	v.SetDefault("scraper.delay_max_secs", 4.0)
	v.SetDefault("scraper.min_content_chars", 200)
	v.SetDefault("scraper.lookback_days", 7)
	v.SetDefault("scraper.overlap_hours", 24)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.filter_model", "gemini-2.5-flash-lite")
	v.SetDefault("gemini.analyzer_model", "gemini-3-flash-preview")
	v.SetDefault("gemini.fallback_model", "gemini-1.5-pro")
	v.SetDefault("gemini.call_delay_secs", 0.5)
	v.SetDefault("analyzer.importance_threshold", 3)
	v.SetDefault("analyzer.max_retries", 3)
	v.SetDefault("scheduler.interval_minutes", 10)
	v.SetDefault("scheduler.cycle_timeout_mins", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields required for the given run mode are set.
// Modes: "collect", "schedule", "serve", "backfill", "reanalyze", "status".
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			missing = append(missing, "store.driver must be sqlite or postgres")
		}
	}
	requireGemini := func() {
		if c.Gemini.Key == "" {
			missing = append(missing, "gemini.key is required")
		}
	}
	requireRegistry := func() {
		if c.Registry.Path == "" {
			missing = append(missing, "registry.path is required")
		}
	}

	switch mode {
	case "collect", "backfill":
		requireStore()
		requireGemini()
		requireRegistry()
	case "schedule", "serve":
		requireStore()
		requireGemini()
		requireRegistry()
		if c.Scheduler.IntervalMinutes <= 0 {
			missing = append(missing, "scheduler.interval_minutes must be > 0")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "reanalyze":
		requireStore()
		requireGemini()
	case "status":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Scraper.MaxPages <= 0 {
		missing = append(missing, "scraper.max_pages must be > 0")
	}
	if c.Scraper.DelayMinSecs > c.Scraper.DelayMaxSecs {
		missing = append(missing, "scraper.delay_min_secs must not exceed delay_max_secs")
	}
	if c.Analyzer.ImportanceThreshold < 1 || c.Analyzer.ImportanceThreshold > 5 {
		missing = append(missing, "analyzer.importance_threshold must be between 1 and 5")
	}

	if len(missing) > 0 {
		return eris.New("config: invalid configuration:\n  - " + strings.Join(missing, "\n  - "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
