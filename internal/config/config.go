// Package config provides configuration loading and validation for the server and CLI.
// Values come from an optional JSON or TOML file, then environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jonathan/devsecops-visualizer/internal/llm"
	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

// DefaultPort is the HTTP port used when none is configured.
const DefaultPort = 8080

// Duration is a time.Duration written as a Go duration string ("1200ms").
type Duration time.Duration

// UnmarshalText parses a duration string; TOML uses it directly.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalJSON accepts a duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %s", data)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalText renders the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// LLMConfig selects the AI provider.
type LLMConfig struct {
	Provider     string  `json:"provider,omitempty" toml:"provider"` // openrouter, openai or gemini
	Model        string  `json:"model,omitempty" toml:"model"`
	BaseURL      string  `json:"base_url,omitempty" toml:"base_url"`
	APIKey       string  `json:"api_key,omitempty" toml:"api_key"`
	GeminiAPIKey string  `json:"gemini_api_key,omitempty" toml:"gemini_api_key"`
	Temperature  float32 `json:"temperature,omitempty" toml:"temperature"`
	MaxTokens    int     `json:"max_tokens,omitempty" toml:"max_tokens"`
}

// PipelineConfig holds the simulation parameters.
type PipelineConfig struct {
	StepDelay Duration `json:"step_delay,omitempty" toml:"step_delay"`
	// SuccessProbability is a pointer so that an explicit 0 survives merging.
	SuccessProbability *float64 `json:"success_probability,omitempty" toml:"success_probability"`
}

// Config represents the application configuration.
// All fields are optional; missing values use defaults.
type Config struct {
	Port         int            `json:"port,omitempty" toml:"port"`
	DatabaseURL  string         `json:"database_url,omitempty" toml:"database_url"`
	AllowOrigins []string       `json:"allow_origins,omitempty" toml:"allow_origins"`
	LLM          LLMConfig      `json:"llm" toml:"llm"`
	Pipeline     PipelineConfig `json:"pipeline" toml:"pipeline"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := pipeline.DefaultSuccessProbability
	return Config{
		Port:         DefaultPort,
		AllowOrigins: []string{"*"},
		LLM: LLMConfig{
			Provider:    string(llm.ProviderOpenRouter),
			Model:       llm.DefaultModel,
			BaseURL:     llm.DefaultBaseURL,
			Temperature: llm.DefaultTemperature,
			MaxTokens:   llm.DefaultMaxTokens,
		},
		Pipeline: PipelineConfig{
			StepDelay:          Duration(pipeline.DefaultStepDelay),
			SuccessProbability: &p,
		},
	}
}

// LoadConfig loads configuration from a JSON or TOML file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load builds the effective configuration: the optional file at path merged
// over the defaults, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	merged := cfg.MergeWithDefaults(Default())
	if err := merged.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("CORS_ALLOW_ORIGINS"); v != "" {
		c.AllowOrigins = splitList(v)
	}

	// OPENROUTER_API_KEY wins over the generic OPENAI_API_KEY.
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v := getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}

	if v := getenv("PIPELINE_STEP_DELAY"); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid PIPELINE_STEP_DELAY: %w", err)
		}
		c.Pipeline.StepDelay = d
	}
	if v := getenv("PIPELINE_SUCCESS_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PIPELINE_SUCCESS_PROBABILITY: %v", err)
		}
		c.Pipeline.SuccessProbability = &p
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be within 0-65535, got %d", c.Port)
	}
	if _, err := llm.ParseProvider(c.LLM.Provider); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: 'llm.temperature' must be within 0-2")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("config error: 'llm.max_tokens' must be non-negative")
	}
	if err := c.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.AllowOrigins) == 0 {
		result.AllowOrigins = defaults.AllowOrigins
	}

	if result.LLM.Provider == "" {
		result.LLM.Provider = defaults.LLM.Provider
	}
	if result.LLM.Model == "" {
		result.LLM.Model = defaults.LLM.Model
	}
	if result.LLM.BaseURL == "" {
		result.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if result.LLM.APIKey == "" {
		result.LLM.APIKey = defaults.LLM.APIKey
	}
	if result.LLM.GeminiAPIKey == "" {
		result.LLM.GeminiAPIKey = defaults.LLM.GeminiAPIKey
	}
	if result.LLM.Temperature == 0 {
		result.LLM.Temperature = defaults.LLM.Temperature
	}
	if result.LLM.MaxTokens == 0 {
		result.LLM.MaxTokens = defaults.LLM.MaxTokens
	}

	if result.Pipeline.StepDelay == 0 {
		result.Pipeline.StepDelay = defaults.Pipeline.StepDelay
	}
	if result.Pipeline.SuccessProbability == nil && defaults.Pipeline.SuccessProbability != nil {
		p := *defaults.Pipeline.SuccessProbability
		result.Pipeline.SuccessProbability = &p
	}

	return result
}

// PipelineConfig returns the runner configuration. The random source is left
// unset so that the runner seeds its own.
func (c *Config) PipelineConfig() pipeline.Config {
	cfg := pipeline.Config{
		SuccessProbability: pipeline.DefaultSuccessProbability,
		StepDelay:          time.Duration(c.Pipeline.StepDelay),
	}
	if c.Pipeline.SuccessProbability != nil {
		cfg.SuccessProbability = *c.Pipeline.SuccessProbability
	}
	return cfg
}

// LLMClientConfig returns the provider configuration. The Gemini provider has
// no base URL, so a configured OpenRouter URL is not carried over to it.
func (c *Config) LLMClientConfig() *llm.Config {
	provider, _ := llm.ParseProvider(c.LLM.Provider)
	cfg := &llm.Config{
		Provider:    provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
	if provider == llm.ProviderGemini {
		cfg.BaseURL = ""
		if cfg.Model == llm.DefaultModel {
			cfg.Model = llm.DefaultGeminiModel
		}
	}
	return cfg.Normalized()
}

// APIKey returns the credential for the selected provider; it may be empty.
func (c *Config) APIKey() string {
	if provider, _ := llm.ParseProvider(c.LLM.Provider); provider == llm.ProviderGemini {
		return c.LLM.GeminiAPIKey
	}
	return c.LLM.APIKey
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
