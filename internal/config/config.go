package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Cache   CacheConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type ServerConfig struct {
	Addr      string
	MaxUpload string `mapstructure:"max_upload"`
	CORS      bool
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type EngineConfig struct {
	SampleRows            int `mapstructure:"sample_rows"`
	CategoricalLimit      int `mapstructure:"categorical_limit"`
	MaxCategoricalFilters int `mapstructure:"max_categorical_filters"`
	TopN                  int `mapstructure:"top_n"`
}

type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Backend    string
	Tags       string
	FlushEvery time.Duration `mapstructure:"flush_every"`
}

// EnvPrefix prefixes environment overrides, e.g. SALESDASH_SERVER_ADDR.
const EnvPrefix = "SALESDASH"

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload", "32MB")
	v.SetDefault("server.cors", true)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 0)
	v.SetDefault("engine.sample_rows", 100)
	v.SetDefault("engine.categorical_limit", 20)
	v.SetDefault("engine.max_categorical_filters", 5)
	v.SetDefault("engine.top_n", 10)
	v.SetDefault("cache.max_entries", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.tags", "")
	v.SetDefault("metrics.flush_every", "60s")
}

// Load reads defaults, then the optional file, then SALESDASH_* env vars.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.MaxUploadBytes(); err != nil {
		return fmt.Errorf("server.max_upload: %w", err)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("server.rate_limit and server.rate_burst must be >= 0")
	}
	if c.Engine.SampleRows <= 0 {
		return errors.New("engine.sample_rows must be > 0")
	}
	if c.Engine.CategoricalLimit <= 0 {
		return errors.New("engine.categorical_limit must be > 0")
	}
	if c.Engine.TopN <= 0 {
		return errors.New("engine.top_n must be > 0")
	}
	switch c.Metrics.Backend {
	case "", "none", "datadog":
	default:
		return fmt.Errorf("unsupported metrics.backend: %s (only none, datadog are supported)", c.Metrics.Backend)
	}
	return nil
}

// MaxUploadBytes parses server.max_upload ("32MB", "512KB").
func (c *Config) MaxUploadBytes() (int64, error) {
	n, err := bytes.Parse(c.Server.MaxUpload)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", c.Server.MaxUpload)
	}
	return n, nil
}

// BodyLimit renders the upload limit in the form echo's BodyLimit takes.
func (c *Config) BodyLimit() string {
	n, err := c.MaxUploadBytes()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%dB", n)
}
