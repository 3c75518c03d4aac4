package config

import (
	"os"
	"testing"

	"github.com/quillforge/aiengine/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadFromDir(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Engine.AttemptTimeoutSeconds != 45 {
		t.Errorf("AttemptTimeoutSeconds = %d, want default 45", cfg.Engine.AttemptTimeoutSeconds)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled = false, want default true")
	}
}

// loadFromDir runs Load with the working directory moved to an empty
// temp dir so no real config file is picked up.
func loadFromDir(t *testing.T) (*Config, error) {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	return Load("")
}

func TestLoad_SeedKeysFromEnv(t *testing.T) {
	t.Setenv("AIENGINE_OPENAI_API_KEYS", "sk-a, sk-b,")
	t.Setenv("AIENGINE_GROQ_API_KEYS", "gsk-1")

	cfg, err := loadFromDir(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(cfg.KeysForProvider(domain.ProviderOpenAI)); got != 2 {
		t.Errorf("openai seed keys = %d, want 2 (trailing comma ignored)", got)
	}
	if got := len(cfg.KeysForProvider(domain.ProviderGroq)); got != 1 {
		t.Errorf("groq seed keys = %d, want 1", got)
	}
	if got := len(cfg.KeysForProvider(domain.ProviderGemini)); got != 0 {
		t.Errorf("gemini seed keys = %d, want 0", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Engine: EngineConfig{AttemptTimeoutSeconds: 45},
			Cache:  CacheConfig{Enabled: true, TTLSeconds: 300},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "unknown provider in order",
			mutate:  func(c *Config) { c.Engine.Order = []string{"openai", "mystery"} },
			wantErr: "engine.order",
		},
		{
			name:    "zero attempt timeout",
			mutate:  func(c *Config) { c.Engine.AttemptTimeoutSeconds = 0 },
			wantErr: "attempt_timeout_seconds",
		},
		{
			name:    "cache enabled without ttl",
			mutate:  func(c *Config) { c.Cache.TTLSeconds = 0 },
			wantErr: "cache.ttl_seconds",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil")
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if !ve.HasError(tt.wantErr) {
				t.Errorf("ValidationError %v does not mention %q", ve.Errors, tt.wantErr)
			}
		})
	}
}

func TestProviderOrder_DropsUnknown(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{Order: []string{"groq", "mystery", "openai"}}}

	order := cfg.ProviderOrder()
	if len(order) != 2 || order[0] != domain.ProviderGroq || order[1] != domain.ProviderOpenAI {
		t.Errorf("ProviderOrder() = %v", order)
	}
}
