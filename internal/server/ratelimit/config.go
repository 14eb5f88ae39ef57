package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route pattern.
type EndpointConfig struct {
	Path   string        // path pattern; "*" matches one segment, a trailing "/" matches any suffix
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig reads the RATE_LIMIT_* variables through getenv.
func LoadConfig(getenv func(string) string) *Config {
	env := envReader(getenv)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(env.int("RATE_LIMIT_GENERATION_LIMIT", 30)),
	}
}

// DefaultEndpointConfigs returns the per-route limits. Routes that call the
// model share the generation tier and are limited to generationLimit per hour.
func DefaultEndpointConfigs(generationLimit int) []EndpointConfig {
	generation := func(path string) EndpointConfig {
		return EndpointConfig{Path: path, Method: "POST", Limit: generationLimit, Window: time.Hour, Burst: 3}
	}
	write := func(method, path string) EndpointConfig {
		return EndpointConfig{Path: path, Method: method, Limit: 120, Window: time.Minute, Burst: 20}
	}

	return []EndpointConfig{
		// Tier 1: model calls
		generation("/profiles/*/reviews"),
		generation("/profiles/*/match-report"),
		generation("/reviews/*/regenerate"),

		// Tier 2: writes
		write("PUT", "/profiles/*"),
		write("DELETE", "/profiles/*"),
		write("PUT", "/reviews/*/decisions"),
		write("DELETE", "/reviews/*/decisions"),
		write("POST", "/reviews/*/keep"),
		write("POST", "/reviews/*/undo"),

		// Tier 3: reads use the default limit; /health is unlimited
	}
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if v, err := strconv.Atoi(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(e(key)); err == nil {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
