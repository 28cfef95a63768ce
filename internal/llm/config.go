// Package llm provides the chat-completion providers used by the AI relay.
// The provider is chosen by configuration; callers only see the Client interface.
package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOpenRouter is the OpenRouter chat completions gateway (default)
	ProviderOpenRouter Provider = "openrouter"
	// ProviderOpenAI is any OpenAI compatible chat completions endpoint
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Defaults for the chat completions request.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "openai/gpt-oss-20b:free"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 800
)

// Config holds the model configuration for the relay
type Config struct {
	Provider    Provider      `json:"provider" toml:"provider"`
	Model       string        `json:"model" toml:"model"`
	BaseURL     string        `json:"base_url" toml:"base_url"`
	Temperature float32       `json:"temperature" toml:"temperature"`
	MaxTokens   int           `json:"max_tokens" toml:"max_tokens"`
	Timeout     time.Duration `json:"timeout" toml:"timeout"` // zero: transport defaults and the caller's context only
}

// DefaultConfig returns the OpenRouter configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderOpenRouter,
		Model:       DefaultModel,
		BaseURL:     DefaultBaseURL,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	cfg := DefaultConfig()
	cfg.Provider = ProviderGemini
	cfg.Model = DefaultGeminiModel
	cfg.BaseURL = ""
	return cfg
}

// ParseProvider converts a configuration string into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderOpenRouter, nil
	case ProviderOpenRouter, ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unknown llm provider %q", s)
	}
}

// WithModel returns a copy of the config using model
func (c *Config) WithModel(model string) *Config {
	cp := *c
	cp.Model = model
	return &cp
}

// Normalized fills zero values with the provider defaults.
func (c *Config) Normalized() *Config {
	cp := *c
	if cp.Provider == "" {
		cp.Provider = ProviderOpenRouter
	}
	if cp.Model == "" {
		if cp.Provider == ProviderGemini {
			cp.Model = DefaultGeminiModel
		} else {
			cp.Model = DefaultModel
		}
	}
	if cp.BaseURL == "" && cp.Provider != ProviderGemini {
		cp.BaseURL = DefaultBaseURL
	}
	if cp.MaxTokens <= 0 {
		cp.MaxTokens = DefaultMaxTokens
	}
	if cp.Timeout < 0 {
		cp.Timeout = 0
	}
	return &cp
}

// Endpoint returns the chat completions URL for HTTP providers.
func (c *Config) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
}
