package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/quillforge/aiengine/internal/domain"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "AIENGINE"
)

// Load reads the configuration from environment variables and files.
// Priority order (highest to lowest):
//  1. AIENGINE_<PROVIDER>_API_KEYS env vars (comma-separated) - PRIMARY SOURCE
//  2. Environment variables (prefixed with AIENGINE_)
//  3. config.yaml - fallback for local development
//  4. Default values
//
// Keys never come from the config file; secrets live in the environment
// or the persisted state file only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/aiengine")
		v.AddConfigPath("$HOME/.aiengine")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		// Config file not found is fine; env vars carry everything.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	cfg.SeedKeys = loadKeysFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// GetConfig returns the process-wide configuration, loading it on first
// use. The config path comes from AIENGINE_CONFIG when set.
func GetConfig() (*Config, error) {
	once.Do(func() {
		instance, loadErr = Load(os.Getenv("AIENGINE_CONFIG"))
	})
	return instance, loadErr
}

// ResetConfig clears the cached configuration. Intended for tests.
func ResetConfig() {
	once = sync.Once{}
	instance = nil
	loadErr = nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Engine defaults
	v.SetDefault("engine.order", []string{})
	v.SetDefault("engine.attempt_timeout_seconds", 45)
	v.SetDefault("engine.state_path", "aiengine-state.json")
	v.SetDefault("engine.auto_enable", true)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.max_entries", 1000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "")
}

// loadKeysFromEnv collects API keys from AIENGINE_<PROVIDER>_API_KEYS
// variables (comma-separated), e.g.
//
//	AIENGINE_OPENAI_API_KEYS=sk-a,sk-b
//	AIENGINE_ANTHROPIC_API_KEYS=sk-ant-x
func loadKeysFromEnv() []SeedKey {
	seeds := make([]SeedKey, 0)

	for _, provider := range domain.AllProviders {
		envName := fmt.Sprintf("%s_%s_API_KEYS", envPrefix, strings.ToUpper(string(provider)))
		envValue := os.Getenv(envName)
		if envValue == "" {
			continue
		}

		for i, key := range strings.Split(envValue, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			seeds = append(seeds, SeedKey{
				Provider: provider,
				Secret:   key,
				Label:    fmt.Sprintf("env_%s_%d", provider, i),
			})
		}
	}

	return seeds
}
