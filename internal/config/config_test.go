package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets variables that would leak into Load from the test environment
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_PORT", "SERVER_WRITE_TIMEOUT", "DATABASE_URL", "DATABASE_MEMORY",
		"LLM_API_KEY", "GEMINI_API_KEY", "LLM_PROVIDER", "GENERATION_MAX_PHASES",
		"AUTH_JWT_SECRET", "JWT_SECRET", "RATELIMIT_REQUESTS_PER_MINUTE", "RATELIMIT_BURST",
		"CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Models.Advanced)
	assert.Equal(t, DefaultMaxPhases, cfg.Generation.MaxPhases)
	assert.Equal(t, "standard", cfg.Generation.StructureTier)
	assert.Equal(t, "advanced", cfg.Generation.PhaseTier)
	assert.Equal(t, DefaultExpirationHours, cfg.Auth.ExpirationHours)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, DefaultBurst, cfg.RateLimit.Burst)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	content := `
server:
  port: 9090
  write_timeout: 10m
database:
  memory: true
llm:
  api_key: file-key
generation:
  max_phases: 4
cors:
  allowed_origins: ["https://app.example.com"]
`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Database.Memory)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, 4, cfg.Generation.MaxPhases)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitJSONFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "coach.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 7070}, "ratelimit": {"burst": 1}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{ invalid json }`), 0o644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/coach")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("GENERATION_MAX_PHASES", "5")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/coach", cfg.Database.URL)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "a-very-long-test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 5, cfg.Generation.MaxPhases)
	require.NoError(t, cfg.Validate())
}

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080},
		Database:   DatabaseConfig{Memory: true},
		LLM:        LLMConfig{APIKey: "key", Provider: "gemini"},
		Generation: GenerationConfig{MaxPhases: 8},
		Auth:       AuthConfig{ExpirationHours: 24},
		RateLimit:  RateLimitConfig{RequestsPerMinute: 6, Burst: 3},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = " " }, wantErr: "'llm.api_key' is required"},
		{name: "missing database", mutate: func(c *Config) { c.Database.Memory = false }, wantErr: "'database.url' is required"},
		{name: "database url without memory", mutate: func(c *Config) {
			c.Database.Memory = false
			c.Database.URL = "postgres://localhost/coach"
		}},
		{name: "unsupported provider", mutate: func(c *Config) { c.LLM.Provider = "other" }, wantErr: "unsupported 'llm.provider'"},
		{name: "zero max phases", mutate: func(c *Config) { c.Generation.MaxPhases = 0 }, wantErr: "'generation.max_phases'"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }, wantErr: "'ratelimit.requests_per_minute'"},
		{name: "negative burst", mutate: func(c *Config) { c.RateLimit.Burst = -2 }, wantErr: "'ratelimit.burst'"},
		{name: "bad tier", mutate: func(c *Config) { c.Generation.PhaseTier = "huge" }, wantErr: "'generation.phase_tier'"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "'server.port'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error:")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "generation.max_phases", keyFor("Config.Generation.MaxPhases"))
	assert.Equal(t, "ratelimit.requests_per_minute", keyFor("Config.RateLimit.RequestsPerMinute"))
	assert.Equal(t, "llm.api_key", keyFor("Config.LLM.APIKey"))
}
