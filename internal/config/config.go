package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	ListenAddr string `mapstructure:"listen_addr"`

	GraphEndpoint  string `mapstructure:"graph_endpoint"`
	APIKey         string `mapstructure:"api_key"`
	WebsiteBaseURL string `mapstructure:"website_base_url"`
	PodcastsURL    string `mapstructure:"podcasts_url"`
	UserAgent      string `mapstructure:"user_agent"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBackoffMs     int64         `mapstructure:"retry_backoff_ms"`
	RetryBackoff       time.Duration `mapstructure:"-"`

	FanoutLimit   int `mapstructure:"fanout_limit"`
	ScrapeWorkers int `mapstructure:"scrape_workers"`

	StationsFile string `mapstructure:"stations_file"`

	CacheType       string        `mapstructure:"cache_type"`
	CachePath       string        `mapstructure:"cache_path"`
	CacheTTLSeconds int64         `mapstructure:"cache_ttl_seconds"`
	CacheTTL        time.Duration `mapstructure:"-"`

	NotifyWebhookURL     string `mapstructure:"notify_webhook_url"`
	NotifyTimeoutSeconds int64  `mapstructure:"notify_timeout_seconds"`
	NotifyLogEvents      bool   `mapstructure:"notify_log_events"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "radio-catalog")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8270")
	v.SetDefault("graph_endpoint", "https://openapi.radiofrance.fr/v1/graphql")
	// Env-only keys still need a registered default: viper's Unmarshal only
	// sees keys it already knows about.
	v.SetDefault("api_key", "")
	v.SetDefault("website_base_url", "https://www.radiofrance.fr")
	v.SetDefault("podcasts_url", "https://www.radiofrance.fr/podcasts")
	v.SetDefault("user_agent", "radio-catalog/1.0")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_backoff_ms", 250)
	v.SetDefault("fanout_limit", 4)
	v.SetDefault("scrape_workers", 3)
	v.SetDefault("stations_file", "./configs/stations.yaml")
	v.SetDefault("cache_type", "none")
	v.SetDefault("cache_path", "./data/cache.db")
	v.SetDefault("cache_ttl_seconds", int64((15*time.Minute)/time.Second))
	v.SetDefault("notify_webhook_url", "")
	v.SetDefault("notify_timeout_seconds", 5)
	v.SetDefault("notify_log_events", false)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.GraphEndpoint == "" {
		return nil, fmt.Errorf("graph_endpoint must not be empty")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("invalid max_retries (must be >= 0)")
	}
	if cfg.RetryBackoffMs <= 0 {
		return nil, fmt.Errorf("invalid retry_backoff_ms (must be positive milliseconds)")
	}
	if cfg.FanoutLimit <= 0 {
		return nil, fmt.Errorf("invalid fanout_limit (must be positive)")
	}
	if cfg.ScrapeWorkers <= 0 {
		return nil, fmt.Errorf("invalid scrape_workers (must be positive)")
	}
	if cfg.CacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid cache_ttl_seconds (must be positive seconds)")
	}

	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.RetryBackoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second

	return &cfg, nil
}
