package config

import (
	"errors"
	"fmt"
	"time"
)

// Token defaults
const (
	DefaultTokenTTL = 24 * time.Hour
	DefaultLeeway   = 30 * time.Second
)

// JWTConfig controls bearer token validation
type JWTConfig struct {
	Secret string
	// Issuer, when set, must match the token's iss claim
	Issuer string
	// TokenTTL is the lifetime of tokens minted locally
	TokenTTL time.Duration
	// Leeway absorbs clock skew on exp and nbf
	Leeway time.Duration
}

// NewJWTConfig reads JWT_SECRET (required), JWT_ISSUER, JWT_TOKEN_TTL and JWT_LEEWAY
func NewJWTConfig(getenv func(string) string) (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:   getenv("JWT_SECRET"),
		Issuer:   getenv("JWT_ISSUER"),
		TokenTTL: DefaultTokenTTL,
		Leeway:   DefaultLeeway,
	}
	if cfg.Secret == "" {
		return nil, errors.New("JWT_SECRET is required but not set")
	}
	if err := envDuration(getenv, "JWT_TOKEN_TTL", &cfg.TokenTTL); err != nil {
		return nil, err
	}
	if err := envDuration(getenv, "JWT_LEEWAY", &cfg.Leeway); err != nil {
		return nil, err
	}

	switch {
	case cfg.TokenTTL < time.Minute:
		return nil, fmt.Errorf("JWT_TOKEN_TTL must be at least 1m, got %s", cfg.TokenTTL)
	case cfg.Leeway < 0:
		return nil, fmt.Errorf("JWT_LEEWAY cannot be negative, got %s", cfg.Leeway)
	}
	return cfg, nil
}

func envDuration(getenv func(string) string, key string, dst *time.Duration) error {
	raw := getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
