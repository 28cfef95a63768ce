package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/devsecops-visualizer/internal/llm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"port": 9090,
		"database_url": "postgres://localhost/devsecops",
		"llm": {"provider": "openai", "model": "gpt-4o-mini", "max_tokens": 400},
		"pipeline": {"step_delay": "250ms", "success_probability": 0.5}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://localhost/devsecops", cfg.DatabaseURL)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 400, cfg.LLM.MaxTokens)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.Pipeline.StepDelay)
	require.NotNil(t, cfg.Pipeline.SuccessProbability)
	assert.Equal(t, 0.5, *cfg.Pipeline.SuccessProbability)
}

func TestLoadConfig_JSONMillis(t *testing.T) {
	path := writeFile(t, "config.json", `{"pipeline": {"step_delay": 1500}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(1500*time.Millisecond), cfg.Pipeline.StepDelay)
}

func TestLoadConfig_ValidTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
port = 7070
allow_origins = ["http://localhost:5173"]

[llm]
provider = "gemini"
gemini_api_key = "g-key"

[pipeline]
step_delay = "2s"
success_probability = 0.0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowOrigins)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, Duration(2*time.Second), cfg.Pipeline.StepDelay)
	require.NotNil(t, cfg.Pipeline.SuccessProbability)
	assert.Equal(t, 0.0, *cfg.Pipeline.SuccessProbability)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig("/nonexistent/path/config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	_, err = LoadConfig(writeFile(t, "bad.json", `{ invalid json }`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")

	_, err = LoadConfig(writeFile(t, "bad.toml", `port = "not a number`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config TOML")

	_, err = LoadConfig(writeFile(t, "delay.json", `{"pipeline": {"step_delay": "soon"}}`))
	assert.Error(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	zero := 0.0
	cfg := &Config{
		Port: 9000,
		LLM:  LLMConfig{Model: "custom"},
		Pipeline: PipelineConfig{
			SuccessProbability: &zero,
		},
	}

	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, 9000, merged.Port)
	assert.Equal(t, "custom", merged.LLM.Model)
	assert.Equal(t, llm.DefaultBaseURL, merged.LLM.BaseURL)
	assert.Equal(t, string(llm.ProviderOpenRouter), merged.LLM.Provider)
	assert.Equal(t, Duration(1200*time.Millisecond), merged.Pipeline.StepDelay)
	assert.Equal(t, 0.0, *merged.Pipeline.SuccessProbability, "explicit zero survives the merge")
	assert.Equal(t, []string{"*"}, merged.AllowOrigins)
}

func TestMergeWithDefaults_EmptyConfig(t *testing.T) {
	merged := (&Config{}).MergeWithDefaults(Default())
	assert.Equal(t, Default(), merged)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"PORT":                         "3000",
		"DATABASE_URL":                 "postgres://db",
		"OPENAI_API_KEY":               "openai-key",
		"OPENROUTER_API_KEY":           "router-key",
		"GEMINI_API_KEY":               "gemini-key",
		"LLM_MODEL":                    "meta/llama",
		"LLM_BASE_URL":                 "http://localhost:11434/v1",
		"PIPELINE_STEP_DELAY":          "10ms",
		"PIPELINE_SUCCESS_PROBABILITY": "0.25",
		"CORS_ALLOW_ORIGINS":           "http://a, http://b",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "postgres://db", cfg.DatabaseURL)
	assert.Equal(t, "router-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "meta/llama", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	assert.Equal(t, Duration(10*time.Millisecond), cfg.Pipeline.StepDelay)
	assert.Equal(t, 0.25, *cfg.Pipeline.SuccessProbability)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowOrigins)
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"PORT": "eighty"},
		{"PIPELINE_STEP_DELAY": "fast"},
		{"PIPELINE_SUCCESS_PROBABILITY": "likely"},
	} {
		cfg := Default()
		assert.Error(t, cfg.ApplyEnv(envMap(env)))
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	assert.NoError(t, valid.Validate())

	tooLikely := 1.5
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "anthropic" }},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }},
		{"max tokens", func(c *Config) { c.LLM.MaxTokens = -1 }},
		{"probability", func(c *Config) { c.Pipeline.SuccessProbability = &tooLikely }},
		{"negative delay", func(c *Config) { c.Pipeline.StepDelay = Duration(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "config.json", `{"port": 9000, "llm": {"api_key": "file-key"}}`)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "file-key", cfg.APIKey())
	assert.Equal(t, ":9100", cfg.Addr())
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestPipelineConfig(t *testing.T) {
	cfg := Default()
	pc := cfg.PipelineConfig()
	assert.Equal(t, 0.9, pc.SuccessProbability)
	assert.Equal(t, 1200*time.Millisecond, pc.StepDelay)
	assert.Nil(t, pc.Source)
}

func TestLLMClientConfig(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "router"
	cfg.LLM.GeminiAPIKey = "gem"

	lc := cfg.LLMClientConfig()
	assert.Equal(t, llm.ProviderOpenRouter, lc.Provider)
	assert.Equal(t, llm.DefaultBaseURL, lc.BaseURL)
	assert.Equal(t, "router", cfg.APIKey())

	cfg.LLM.Provider = "gemini"
	lc = cfg.LLMClientConfig()
	assert.Equal(t, llm.ProviderGemini, lc.Provider)
	assert.Empty(t, lc.BaseURL)
	assert.Equal(t, llm.DefaultGeminiModel, lc.Model)
	assert.Equal(t, "gem", cfg.APIKey())
}
