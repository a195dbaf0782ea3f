package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Grading    GradingConfig    `yaml:"grading" mapstructure:"grading"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Provider   ProviderConfig   `yaml:"provider" mapstructure:"provider"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the grade cache database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch grade computation.
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	DefaultLimit   int `yaml:"default_limit" mapstructure:"default_limit"`
}

// GradingConfig selects the grading profile and cache version.
type GradingConfig struct {
	Version     string `yaml:"version" mapstructure:"version"`
	Mode        string `yaml:"mode" mapstructure:"mode"`
	ProfilePath string `yaml:"profile_path" mapstructure:"profile_path"`
}

// CacheConfig configures the read-through cache in front of the grade store.
type CacheConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"`
	MaxEntries      int    `yaml:"max_entries" mapstructure:"max_entries"`
	TTLSecs         int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	StaleAfterHours int    `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	RedisAddr       string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix     string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// StaleAfter returns the age after which cached grades are reported stale.
func (c CacheConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// ProviderConfig configures the player context provider.
type ProviderConfig struct {
	Source           string  `yaml:"source" mapstructure:"source"`
	FixturePath      string  `yaml:"fixture_path" mapstructure:"fixture_path"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst            int     `yaml:"burst" mapstructure:"burst"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
}

// MonitoringConfig configures guardrail alert delivery.
type MonitoringConfig struct {
	WebhookURL         string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	AuditIntervalSecs  int     `yaml:"audit_interval_secs" mapstructure:"audit_interval_secs"`
	ErrorRateThreshold float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	LookbackRuns       int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
}

// Load reads configuration from ./config.yaml (if present) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. An empty path
// falls back to an optional ./config.yaml; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ALPHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrency", 8)
	v.SetDefault("batch.default_limit", 200)
	v.SetDefault("grading.version", "v1")
	v.SetDefault("grading.mode", "redraft")
	v.SetDefault("grading.profile_path", "")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("cache.stale_after_hours", 24)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_prefix", "alpha:grades:")
	v.SetDefault("provider.source", "postgres")
	v.SetDefault("provider.fixture_path", "")
	v.SetDefault("provider.rate_per_sec", 50.0)
	v.SetDefault("provider.burst", 10)
	v.SetDefault("provider.max_attempts", 3)
	v.SetDefault("provider.initial_backoff_ms", 200)
	v.SetDefault("provider.circuit_threshold", 5)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.audit_interval_secs", 3600)
	v.SetDefault("monitoring.error_rate_threshold", 0.10)
	v.SetDefault("monitoring.lookback_runs", 20)

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

// Validate checks that the settings required by the given command mode are
// present and within bounds. Modes: "compute", "read", "serve", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "compute":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateBatch()...)
		errs = append(errs, c.validateGrading()...)
		errs = append(errs, c.validateProvider()...)
	case "read":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateGrading()...)
		errs = append(errs, c.validateCache()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateBatch()...)
		errs = append(errs, c.validateGrading()...)
		errs = append(errs, c.validateCache()...)
		errs = append(errs, c.validateProvider()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "migrate":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (sqlite file path)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be postgres or sqlite", c.Store.Driver))
	}
	return errs
}

func (c *Config) validateBatch() []string {
	var errs []string
	if c.Batch.MaxConcurrency < 1 || c.Batch.MaxConcurrency > 64 {
		errs = append(errs, "batch.max_concurrency must be between 1 and 64")
	}
	if c.Batch.DefaultLimit < 0 {
		errs = append(errs, "batch.default_limit must be >= 0")
	}
	return errs
}

func (c *Config) validateGrading() []string {
	var errs []string
	if strings.TrimSpace(c.Grading.Version) == "" {
		errs = append(errs, "grading.version is required")
	}
	switch c.Grading.Mode {
	case "redraft", "dynasty", "bestball":
	default:
		errs = append(errs, fmt.Sprintf("grading.mode %q must be redraft, dynasty or bestball", c.Grading.Mode))
	}
	return errs
}

func (c *Config) validateCache() []string {
	var errs []string
	switch c.Cache.Backend {
	case "memory":
		if c.Cache.MaxEntries < 1 {
			errs = append(errs, "cache.max_entries must be >= 1")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, "cache.redis_addr is required for redis backend")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q must be memory, redis or none", c.Cache.Backend))
	}
	if c.Cache.StaleAfterHours < 0 {
		errs = append(errs, "cache.stale_after_hours must be >= 0")
	}
	return errs
}

func (c *Config) validateProvider() []string {
	var errs []string
	switch c.Provider.Source {
	case "postgres":
		if c.Store.Driver != "postgres" {
			errs = append(errs, "provider.source postgres requires store.driver postgres")
		}
	case "fixture":
		if c.Provider.FixturePath == "" {
			errs = append(errs, "provider.fixture_path is required for fixture source")
		}
	default:
		errs = append(errs, fmt.Sprintf("provider.source %q must be postgres or fixture", c.Provider.Source))
	}
	if c.Provider.RatePerSec <= 0 {
		errs = append(errs, "provider.rate_per_sec must be > 0")
	}
	if c.Provider.MaxAttempts < 1 {
		errs = append(errs, "provider.max_attempts must be >= 1")
	}
	return errs
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
