package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the configuration for a request, or nil if none applies.
// Patterns match segment by segment with "*" standing for any single segment;
// a pattern ending in "/" also matches deeper paths.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// health checks are never limited
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && matchPattern(config.Path, path) {
			return config
		}
	}
	return nil
}

func matchPattern(pattern, path string) bool {
	prefix := strings.HasSuffix(pattern, "/") && pattern != "/"
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")

	if len(got) < len(want) || (!prefix && len(got) != len(want)) {
		return false
	}
	for i, segment := range want {
		if segment != "*" && segment != got[i] {
			return false
		}
		if segment == "*" && got[i] == "" {
			return false
		}
	}
	return true
}
