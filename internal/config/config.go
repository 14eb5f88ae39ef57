// Package config loads settings for the CLI and the API server from a JSON or
// YAML file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/resume-review/internal/archive"
	"github.com/jonathan/resume-review/internal/llm"
	"gopkg.in/yaml.v3"
)

// Config represents the settings that can be loaded from a config file.
// All fields are optional; the environment fills what the file leaves empty
// and CLI flags win over both.
type Config struct {
	// Model provider
	Provider string            `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"` // gemini or openai
	APIKey   string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL  string            `json:"llm_base_url,omitempty" yaml:"llm_base_url,omitempty"` // OpenAI-compatible endpoint
	Models   map[string]string `json:"models,omitempty" yaml:"models,omitempty"`             // tier -> model name

	// Storage
	DatabaseURL string         `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	LocalDB     string         `json:"local_db,omitempty" yaml:"local_db,omitempty"`         // SQLite file for offline CLI use
	RedisURL    string         `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`       // enables the shared review lock
	LockTTL     string         `json:"review_lock_ttl,omitempty" yaml:"review_lock_ttl,omitempty"`
	Archive     archive.Config `json:"archive,omitempty" yaml:"archive,omitempty"`

	// Server
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // headless browser for SPA job boards
	Verbose    bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultLocalDB is the SQLite file used when none is configured
const DefaultLocalDB = "profiles.db"

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load reads the optional config file at path and fills the gaps from getenv
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(getenv)
	return cfg, nil
}

// ApplyEnv fills empty fields from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(getenv(key))
		}
	}

	fill(&c.Provider, "LLM_PROVIDER")
	if provider, err := llm.ParseProvider(c.Provider); err == nil && provider == llm.ProviderOpenAI {
		fill(&c.APIKey, "OPENAI_API_KEY")
	} else {
		fill(&c.APIKey, "GEMINI_API_KEY")
	}
	fill(&c.BaseURL, "LLM_BASE_URL")
	for _, tier := range llm.Tiers {
		if model := strings.TrimSpace(getenv("LLM_MODEL_" + strings.ToUpper(string(tier)))); model != "" {
			if c.Models == nil {
				c.Models = map[string]string{}
			}
			if _, set := c.Models[string(tier)]; !set {
				c.Models[string(tier)] = model
			}
		}
	}

	fill(&c.DatabaseURL, "DATABASE_URL")
	fill(&c.LocalDB, "LOCAL_DB")
	fill(&c.RedisURL, "REDIS_URL")
	fill(&c.LockTTL, "REVIEW_LOCK_TTL")
	fill(&c.Archive.Bucket, "ARCHIVE_BUCKET")
	fill(&c.Archive.Endpoint, "ARCHIVE_ENDPOINT")
	fill(&c.Archive.Region, "ARCHIVE_REGION")
	fill(&c.Archive.AccessKey, "ARCHIVE_ACCESS_KEY")
	fill(&c.Archive.SecretKey, "ARCHIVE_SECRET_KEY")
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by the command that needs them.
func (c *Config) Validate() error {
	if _, err := llm.ParseProvider(c.Provider); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for tier := range c.Models {
		if _, err := llm.ParseTier(tier); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}

	// Validate numeric ranges
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if _, err := c.ReviewLockTTL(); err != nil {
		return err
	}

	// Validate mutually dependent fields
	if c.Archive.Endpoint != "" && c.Archive.Bucket == "" {
		return fmt.Errorf("config error: 'archive.endpoint' requires 'archive.bucket'")
	}
	if (c.Archive.AccessKey == "") != (c.Archive.SecretKey == "") {
		return fmt.Errorf("config error: 'archive.access_key' and 'archive.secret_key' must be set together")
	}

	return nil
}

// ReviewLockTTL parses LockTTL; zero means the registry default
func (c *Config) ReviewLockTTL() (time.Duration, error) {
	if c.LockTTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("config error: invalid 'review_lock_ttl': %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("config error: 'review_lock_ttl' must be positive")
	}
	return ttl, nil
}

// LLMConfig builds the model configuration for the selected provider
func (c *Config) LLMConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.Provider)
	if err != nil {
		return nil, err
	}
	overrides := make(map[llm.ModelTier]string, len(c.Models))
	for name, model := range c.Models {
		tier, err := llm.ParseTier(name)
		if err != nil {
			return nil, err
		}
		overrides[tier] = model
	}
	cfg := llm.NewConfig(provider, overrides)
	cfg.BaseURL = c.BaseURL
	return cfg, nil
}

// LocalDBPath returns the SQLite path, defaulting to DefaultLocalDB
func (c *Config) LocalDBPath() string {
	if c.LocalDB == "" {
		return DefaultLocalDB
	}
	return c.LocalDB
}
