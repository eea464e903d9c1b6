// Package config loads service configuration from an optional config file,
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

// ServerConfig configures the HTTP listener. WriteTimeout bounds a whole
// streaming run, so it is much longer than a normal request timeout.
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
	// Memory selects the in-memory store instead of PostgreSQL
	Memory bool `mapstructure:"memory"`
}

type LLMConfig struct {
	APIKey   string       `mapstructure:"api_key"`
	Provider string       `mapstructure:"provider"`
	Models   ModelsConfig `mapstructure:"models"`
}

type ModelsConfig struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

type GenerationConfig struct {
	MaxPhases     int    `mapstructure:"max_phases" validate:"min=1"`
	StructureTier string `mapstructure:"structure_tier" validate:"omitempty,oneof=lite standard advanced"`
	PhaseTier     string `mapstructure:"phase_tier" validate:"omitempty,oneof=lite standard advanced"`
}

// AuthConfig configures bearer token checks. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	ExpirationHours int    `mapstructure:"expiration_hours" validate:"min=1"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig limits generation requests per client. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"min=0"`
	Burst             int `mapstructure:"burst" validate:"min=0"`
}

// Defaults
const (
	DefaultPort              = 8080
	DefaultWriteTimeout      = 5 * time.Minute
	DefaultMaxPhases         = 8
	DefaultExpirationHours   = 24
	DefaultRequestsPerMinute = 6
	DefaultBurst             = 3
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("database.url", "")
	v.SetDefault("database.memory", false)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.models.lite", "gemini-2.5-flash-lite")
	v.SetDefault("llm.models.standard", "gemini-2.5-flash")
	v.SetDefault("llm.models.advanced", "gemini-2.5-pro")
	v.SetDefault("generation.max_phases", DefaultMaxPhases)
	v.SetDefault("generation.structure_tier", "standard")
	v.SetDefault("generation.phase_tier", "advanced")
	v.SetDefault("auth.expiration_hours", DefaultExpirationHours)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("ratelimit.requests_per_minute", DefaultRequestsPerMinute)
	v.SetDefault("ratelimit.burst", DefaultBurst)
}

// Load reads configuration. path may name a config file or a directory
// containing config.yaml/config.json; when empty the working directory is
// searched. A missing config file is not an error. Environment variables
// override file values (server.port -> SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional names that do not follow the key layout
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")

	explicitFile := false
	if path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			v.SetConfigFile(path)
			explicitFile = true
		} else {
			v.AddConfigPath(path)
		}
	} else {
		v.AddConfigPath(".")
	}
	if !explicitFile {
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration can start the server
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("config error: 'llm.api_key' is required (set GEMINI_API_KEY)")
	}
	if c.Database.URL == "" && !c.Database.Memory {
		return fmt.Errorf("config error: 'database.url' is required unless 'database.memory' is set")
	}
	if c.LLM.Provider != "" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("config error: unsupported 'llm.provider' %q", c.LLM.Provider)
	}

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' check (got %v)", keyFor(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// keyFor maps a validator namespace such as Config.Generation.MaxPhases to the
// config key generation.max_phases
func keyFor(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snakeCase(p)
	}
	return strings.Join(parts, ".")
}

func snakeCase(s string) string {
	switch s {
	case "LLM", "CORS":
		return strings.ToLower(s)
	case "RateLimit":
		return "ratelimit"
	}
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
