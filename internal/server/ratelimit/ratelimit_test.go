package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, config *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(config)
	l.now = clock.now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/profiles", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/profiles", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 6*time.Second, info.RetryAfter)
	assert.Equal(t, clock.t.Add(time.Minute), info.ResetTime)

	clock.advance(7 * time.Second)
	allowed, _ = l.Allow("127.0.0.1", "/profiles", "GET")
	assert.True(t, allowed, "one token refilled")
	allowed, _ = l.Allow("127.0.0.1", "/profiles", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})

	allowed, _ := l.Allow("10.0.0.1", "/profiles", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("10.0.0.1", "/profiles", "GET")
	assert.False(t, allowed)

	allowed, _ = l.Allow("10.0.0.2", "/profiles", "GET")
	assert.True(t, allowed)
}

func TestLimiter_GenerationTier(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(10),
	})

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("client", "/profiles/p1/reviews", "POST")
		require.True(t, allowed, "burst request %d", i+1)
		assert.Equal(t, 10, info.Limit)
	}

	allowed, info := l.Allow("client", "/profiles/p2/reviews", "POST")
	assert.False(t, allowed, "all profiles share the generation bucket")
	assert.Equal(t, 6*time.Minute, info.RetryAfter)

	allowed, _ = l.Allow("client", "/reviews/r1/regenerate", "POST")
	assert.True(t, allowed, "each generation route has its own bucket")

	allowed, info = l.Allow("client", "/profiles/p1", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_Lists(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.9": true},
	})

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/profiles", "GET")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := l.Allow("10.0.0.9", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Unlimited(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		path   string
	}{
		{name: "disabled", config: &Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute}, path: "/profiles"},
		{name: "health", config: &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute}, path: "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLimiter(t, tt.config)
			for i := 0; i < 10; i++ {
				allowed, _ := l.Allow("client", tt.path, "GET")
				assert.True(t, allowed)
			}
		})
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("client", "/profiles", "GET"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), allowed.Load())
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})

	l.Allow("old", "/profiles", "GET")
	clock.advance(2 * time.Hour)
	l.Allow("recent", "/profiles", "GET")

	l.cleanupBuckets()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "recent:default")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	allowed, info := l.Allow("client", "/profiles", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)

	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := append(DefaultEndpointConfigs(10), EndpointConfig{Path: "/admin/", Method: "GET", Limit: 5, Window: time.Minute})

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"POST", "/profiles/abc/reviews", "/profiles/*/reviews"},
		{"POST", "/profiles/abc/match-report", "/profiles/*/match-report"},
		{"POST", "/reviews/r1/regenerate", "/reviews/*/regenerate"},
		{"PUT", "/profiles/abc", "/profiles/*"},
		{"DELETE", "/reviews/r1/decisions", "/reviews/*/decisions"},
		{"GET", "/admin/stats/today", "/admin/"},
		{"GET", "/profiles/abc", ""},
		{"POST", "/profiles//reviews", ""},
		{"PUT", "/profiles/abc/reviews", ""},
		{"GET", "/health", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.path == "/health" {
				require.NotNil(t, got)
				assert.Zero(t, got.Limit)
				return
			}
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Path)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":    "42",
		"RATE_LIMIT_DEFAULT_WINDOW":   "30s",
		"RATE_LIMIT_GENERATION_LIMIT": "5",
		"RATE_LIMIT_WHITELIST":        "10.0.0.1, 10.0.0.2",
		"RATE_LIMIT_CLEANUP_INTERVAL": "not-a-duration",
	}
	config := LoadConfig(func(k string) string { return env[k] })

	assert.True(t, config.Enabled)
	assert.Equal(t, 42, config.DefaultLimit)
	assert.Equal(t, 30*time.Second, config.DefaultWindow)
	assert.Equal(t, 5*time.Minute, config.CleanupInterval)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, config.Whitelist)
	assert.Empty(t, config.Blacklist)
	assert.Equal(t, 5, config.EndpointConfigs[0].Limit)

	disabled := LoadConfig(func(k string) string {
		if k == "RATE_LIMIT_ENABLED" {
			return "false"
		}
		return ""
	})
	assert.False(t, disabled.Enabled)
}
