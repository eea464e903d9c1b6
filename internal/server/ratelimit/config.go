package ratelimit

import (
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Defaults for endpoints without a specific configuration
const (
	DefaultLimit           = 600
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// NewConfig builds the limiter configuration from the generation limit.
// requestsPerMinute <= 0 disables limiting entirely.
func NewConfig(requestsPerMinute, burst int) *Config {
	if requestsPerMinute <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    DefaultLimit,
		DefaultWindow:   DefaultWindow,
		CleanupInterval: DefaultCleanupInterval,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: GenerationEndpointConfigs(requestsPerMinute, burst),
	}
}

// GenerationEndpointConfigs limits the endpoints that start generation runs.
// Each run costs several content generator calls.
func GenerationEndpointConfigs(requestsPerMinute, burst int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/programs/generate/stream", Method: "POST", Limit: requestsPerMinute, Window: time.Minute, Burst: burst},
		{Path: "/programs/modify/stream", Method: "POST", Limit: requestsPerMinute, Window: time.Minute, Burst: burst},
		{Path: "/programs/generate/ws", Method: "GET", Limit: requestsPerMinute, Window: time.Minute, Burst: burst},
	}
}
