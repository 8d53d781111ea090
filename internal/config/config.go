// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend names accepted by Validate.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Fetcher implementation names accepted by Validate.
const (
	FetcherHTTP     = "http"
	FetcherHeadless = "headless"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the worker pool and queue.
type CrawlerConfig struct {
	Workers       int      `mapstructure:"workers"`
	QueueCapacity int      `mapstructure:"queue_capacity"`
	Fetcher       string   `mapstructure:"fetcher"`
	Seeds         []string `mapstructure:"seeds"`
}

// HTTPConfig configures the outbound HTTP client and its fixed header set.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	Referer        string `mapstructure:"referer"`
	Accept         string `mapstructure:"accept"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

// HeadlessConfig configures the optional browser-based fetcher.
type HeadlessConfig struct {
	MaxParallel   int `mapstructure:"max_parallel"`
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
}

// ExtractorConfig selects the product nodes within a listing page.
type ExtractorConfig struct {
	ItemSelector  string `mapstructure:"item_selector"`
	TitleSelector string `mapstructure:"title_selector"`
	PriceSelector string `mapstructure:"price_selector"`
}

// ProxyConfig holds the fixed upstream proxy endpoint list.
type ProxyConfig struct {
	Endpoints []string `mapstructure:"endpoints"`
}

// StorageConfig picks the sink backend and row layout.
type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	Table        string `mapstructure:"table"`
	ColumnFamily string `mapstructure:"column_family"`
}

// RedisConfig controls access to Redis when it is the storage backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DBConfig controls access to Postgres when it is the storage backend.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.workers", 5)
	v.SetDefault("crawler.queue_capacity", 1000)
	v.SetDefault("crawler.fetcher", FetcherHTTP)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	v.SetDefault("http.referer", "https://search.suning.com/")
	v.SetDefault("http.accept", "text/html,application/xhtml+xml")
	v.SetDefault("http.accept_language", "zh-CN,zh;q=0.9")
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("extractor.item_selector", ".product-item")
	v.SetDefault("extractor.title_selector", ".title")
	v.SetDefault("extractor.price_selector", ".price")
	v.SetDefault("storage.backend", BackendRedis)
	v.SetDefault("storage.table", "suning_products")
	v.SetDefault("storage.column_family", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Crawler.QueueCapacity <= 0 {
		return fmt.Errorf("crawler.queue_capacity must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Crawler.Fetcher {
	case FetcherHTTP:
	case FetcherHeadless:
		if c.Headless.MaxParallel <= 0 {
			return fmt.Errorf("headless.max_parallel must be > 0 when the headless fetcher is selected")
		}
	default:
		return fmt.Errorf("crawler.fetcher must be one of %q, %q", FetcherHTTP, FetcherHeadless)
	}
	switch c.Storage.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of %q, %q, %q",
			BackendRedis, BackendPostgres, BackendMemory)
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
