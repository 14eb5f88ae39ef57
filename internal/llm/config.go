// Package llm talks to the model providers and recovers structured output
// from free-form model responses.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier names how much reasoning a call needs; each provider maps a tier to a model
type ModelTier string

// Tiers, cheapest first
const (
	TierLite     ModelTier = "lite"
	TierStandard ModelTier = "standard"
	TierAdvanced ModelTier = "advanced"
)

// Tiers lists every tier, cheapest first
var Tiers = []ModelTier{TierLite, TierStandard, TierAdvanced}

// ParseTier accepts a tier name in any case
func ParseTier(name string) (ModelTier, error) {
	tier := ModelTier(strings.ToLower(strings.TrimSpace(name)))
	for _, t := range Tiers {
		if t == tier {
			return tier, nil
		}
	}
	return "", fmt.Errorf("unknown model tier %q", name)
}

// Provider is a model vendor
type Provider string

// Supported providers. ProviderOpenAI also covers OpenAI-compatible servers via BaseURL.
const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// ParseProvider maps a provider name to a Provider. Empty selects Gemini.
func ParseProvider(name string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProviderGemini:
		return ProviderGemini, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unsupported LLM provider: %q", name)
	}
}

var defaultModels = map[Provider]map[ModelTier]string{
	ProviderGemini: {
		TierLite:     "gemini-2.5-flash-lite",
		TierStandard: "gemini-2.5-flash",
		TierAdvanced: "gemini-2.5-pro",
	},
	ProviderOpenAI: {
		TierLite:     "gpt-4.1-mini",
		TierStandard: "gpt-4.1",
		TierAdvanced: "gpt-4.1",
	},
}

// DefaultTemperature keeps rewrites close to the source text
const DefaultTemperature float32 = 0.1

// Config selects a provider and the model used for each tier
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	BaseURL     string
	Temperature float32
}

// NewConfig starts from the provider's default models and applies overrides.
// Empty override values are ignored.
func NewConfig(provider Provider, overrides map[ModelTier]string) *Config {
	if _, ok := defaultModels[provider]; !ok {
		provider = ProviderGemini
	}
	models := make(map[ModelTier]string, len(Tiers))
	for tier, model := range defaultModels[provider] {
		models[tier] = model
	}
	for tier, model := range overrides {
		if model = strings.TrimSpace(model); model != "" {
			models[tier] = model
		}
	}
	return &Config{Provider: provider, Models: models, Temperature: DefaultTemperature}
}

// GetModel returns the model for tier. A missing tier falls back to
// standard, then lite; an empty string means nothing is configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model := c.Models[t]; model != "" {
			return model
		}
	}
	return ""
}
