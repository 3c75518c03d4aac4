// Package config loads application configuration from environment
// variables and config.yaml using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/quillforge/aiengine/internal/domain"
)

// Config holds all application configuration values.
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Engine configuration
	Engine EngineConfig `json:"engine" mapstructure:"engine"`

	// Cache configuration
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// SeedKeys are API keys collected from the environment at load time.
	// They are fed into the registry on startup and never written back to
	// any config file.
	SeedKeys []SeedKey `json:"-" mapstructure:"-"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeoutSeconds is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeoutSeconds is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeoutSeconds is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// EngineConfig holds failover engine configuration.
type EngineConfig struct {
	// Order is the provider failover order. Unknown names are dropped;
	// an empty list falls back to the built-in catalog order.
	Order []string `json:"order" mapstructure:"order"`

	// AttemptTimeoutSeconds bounds each provider attempt.
	AttemptTimeoutSeconds int `json:"attempt_timeout_seconds" mapstructure:"attempt_timeout_seconds"`

	// StatePath is where registry state is persisted between runs.
	StatePath string `json:"state_path" mapstructure:"state_path"`

	// AutoEnable enables a provider automatically once a seeded key
	// validates on startup.
	AutoEnable bool `json:"auto_enable" mapstructure:"auto_enable"`
}

// CacheConfig holds response cache configuration.
type CacheConfig struct {
	// Enabled toggles the response cache.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTLSeconds is how long a cached response stays fresh.
	TTLSeconds int `json:"ttl_seconds" mapstructure:"ttl_seconds"`

	// MaxEntries caps the number of cached responses.
	MaxEntries int `json:"max_entries" mapstructure:"max_entries"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`

	// OutputPath is the file path for log output (empty for stdout).
	OutputPath string `json:"output_path" mapstructure:"output_path"`
}

// SeedKey is one API key found in the environment.
type SeedKey struct {
	Provider domain.ProviderID
	Secret   string
	Label    string
}

// AttemptTimeout returns the per-attempt timeout as a duration.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Engine.AttemptTimeoutSeconds) * time.Second
}

// ProviderOrder returns the configured failover order with unknown
// provider names dropped.
func (c *Config) ProviderOrder() []domain.ProviderID {
	order := make([]domain.ProviderID, 0, len(c.Engine.Order))
	for _, name := range c.Engine.Order {
		order = append(order, domain.ProviderID(name))
	}
	return domain.NormalizeOrder(order)
}

// Validate validates the configuration and returns an error if required
// fields are missing or out of range.
func (c *Config) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if c.Engine.AttemptTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "engine.attempt_timeout_seconds must be positive")
	}

	for _, name := range c.Engine.Order {
		if !domain.ProviderID(name).Known() {
			validationErrors = append(validationErrors, fmt.Sprintf(
				"engine.order entry '%s' is not a known provider", name,
			))
		}
	}

	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		validationErrors = append(validationErrors, "cache.ttl_seconds must be positive when the cache is enabled")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// KeysForProvider returns the seeded keys for one provider.
func (c *Config) KeysForProvider(provider domain.ProviderID) []SeedKey {
	keys := make([]SeedKey, 0)
	for _, key := range c.SeedKeys {
		if key.Provider == provider {
			keys = append(keys, key)
		}
	}
	return keys
}
