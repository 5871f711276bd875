package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Registry  RegistryConfig
	Breaker   BreakerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	Gzip            bool          `envconfig:"HTTP_GZIP" default:"true"`
}

// BridgeConfig holds channel configuration.
type BridgeConfig struct {
	// Channel must match the UI layer's channel name byte-for-byte.
	Channel     string        `envconfig:"BRIDGE_CHANNEL" default:"dingtalk_service"`
	CallTimeout time.Duration `envconfig:"BRIDGE_CALL_TIMEOUT" default:"10s"`
}

// RegistryConfig selects and configures the application registry backend.
type RegistryConfig struct {
	Backend string   `envconfig:"REGISTRY_BACKEND" default:"desktop"`
	Catalog string   `envconfig:"REGISTRY_CATALOG" default:""`
	AppDirs []string `envconfig:"REGISTRY_APP_DIRS"`
	Pattern string   `envconfig:"REGISTRY_PATTERN" default:"**/*.desktop"`
}

// BreakerConfig holds circuit breaker settings for platform calls.
type BreakerConfig struct {
	Enabled             bool          `envconfig:"BREAKER_ENABLED" default:"true"`
	ConsecutiveFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	OpenTimeout         time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
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
			Port:            "8000",
			Host:            "127.0.0.1",
			ShutdownTimeout: 10 * time.Second,
			Gzip:            true,
		},
		Bridge: BridgeConfig{
			Channel:     "dingtalk_service",
			CallTimeout: 10 * time.Second,
		},
		Registry: RegistryConfig{
			Backend: "desktop",
			Pattern: "**/*.desktop",
		},
		Breaker: BreakerConfig{
			Enabled:             true,
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Bridge.Channel == "" {
		return fmt.Errorf("BRIDGE_CHANNEL must not be empty")
	}
	if c.Bridge.CallTimeout <= 0 {
		return fmt.Errorf("BRIDGE_CALL_TIMEOUT must be positive, got %s", c.Bridge.CallTimeout)
	}
	switch c.Registry.Backend {
	case "desktop":
	case "catalog":
		if c.Registry.Catalog == "" {
			return fmt.Errorf("REGISTRY_CATALOG is required for the catalog backend")
		}
	default:
		return fmt.Errorf("unknown REGISTRY_BACKEND %q", c.Registry.Backend)
	}
	return nil
}
