package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Transport names
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Stage     StageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds transport configuration.
type ServerConfig struct {
	Port      string `envconfig:"PORT" default:"5000"`
	Host      string `envconfig:"HOST" default:"127.0.0.1"`
	Transport string `envconfig:"TRANSPORT" default:"stdio"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// StageConfig holds stage registry configuration.
type StageConfig struct {
	CacheSize           int           `envconfig:"STAGE_CACHE_SIZE" default:"10"`
	MaintenanceInterval time.Duration `envconfig:"STAGE_MAINTENANCE_INTERVAL" default:"300s"`
	FlushTimeout        time.Duration `envconfig:"STAGE_FLUSH_TIMEOUT" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "5000",
			Host:      "127.0.0.1",
			Transport: TransportStdio,
		},
		Stage: StageConfig{
			CacheSize:           10,
			MaintenanceInterval: 300 * time.Second,
			FlushTimeout:        30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks value domains that envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Transport != TransportStdio && c.Server.Transport != TransportHTTP {
		errs = append(errs, fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}
	if c.Stage.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("STAGE_CACHE_SIZE must be at least 1, got %d", c.Stage.CacheSize))
	}
	if c.Stage.MaintenanceInterval <= 0 {
		errs = append(errs, fmt.Errorf("STAGE_MAINTENANCE_INTERVAL must be positive, got %s", c.Stage.MaintenanceInterval))
	}
	if c.Stage.FlushTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STAGE_FLUSH_TIMEOUT must be positive, got %s", c.Stage.FlushTimeout))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}
