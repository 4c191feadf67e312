package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/chatnorm/model"
	anthropicprovider "github.com/hupe1980/chatnorm/model/anthropic"
	"github.com/hupe1980/chatnorm/model/compat"
	openaiprovider "github.com/hupe1980/chatnorm/model/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, ProviderCompat, cfg.Provider)
	assert.Equal(t, int64(4096), cfg.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.False(t, cfg.Stream)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	path := writeTemp(t, "chatnorm.yaml", `
provider: openai
base_url: https://llm.internal/v1
api_key: sk-test
model: gpt-4o
max_tokens: 512
temperature: 0.2
reasoning_effort: medium
stream: true
timeout: 45s
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "https://llm.internal/v1", cfg.BaseURL)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, int64(512), cfg.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-9)
	assert.Equal(t, "medium", cfg.ReasoningEffort)
	assert.True(t, cfg.Stream)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "c.yaml", "model: qwen\n"))
	require.NoError(t, err)
	assert.Equal(t, "qwen", cfg.Model)
	assert.Equal(t, int64(4096), cfg.MaxTokens)
	assert.Equal(t, ProviderCompat, cfg.Provider)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHATNORM_CONFIG", writeTemp(t, "c.yaml", "provider: openai\nmodel: from-file\n"))
	t.Setenv("CHATNORM_MODEL", "from-env")
	t.Setenv("CHATNORM_MAX_TOKENS", "0")
	t.Setenv("CHATNORM_STREAM", "true")
	t.Setenv("CHATNORM_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "from-env", cfg.Model)
	assert.Equal(t, int64(0), cfg.MaxTokens)
	assert.True(t, cfg.Stream)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_MalformedEnv(t *testing.T) {
	t.Setenv("CHATNORM_TEMPERATURE", "warm")
	_, err := Load("")
	assert.ErrorContains(t, err, "CHATNORM_TEMPERATURE")
}

func TestLoad_APIKeyFile(t *testing.T) {
	keyFile := writeTemp(t, "key", "  sk-from-file\n")
	t.Setenv("CHATNORM_API_KEY_FILE", keyFile)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.APIKey)

	t.Setenv("CHATNORM_API_KEY", "sk-explicit")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", cfg.APIKey, "an explicit key wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "loading config file")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = "cohere"
	cfg.Temperature = 3
	cfg.ReasoningEffort = "extreme"
	cfg.Log.Level = "chatty"
	cfg.Log.Format = "xml"
	cfg.Timeout = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	for _, field := range []string{"provider", "temperature", "reasoning_effort", "log.level", "log.format", "timeout"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		check    func(t *testing.T, p model.Provider)
	}{
		{"openai", func(t *testing.T, p model.Provider) {
			assert.IsType(t, &openaiprovider.Provider{}, p)
			assert.Equal(t, "my-model", p.DefaultModel())
		}},
		{"anthropic", func(t *testing.T, p model.Provider) {
			assert.IsType(t, &anthropicprovider.Provider{}, p)
			assert.Equal(t, "my-model", p.DefaultModel())
		}},
		{"custom", func(t *testing.T, p model.Provider) {
			assert.IsType(t, &compat.Provider{}, p)
			assert.Equal(t, "compat", p.Info().Provider)
		}},
		{"mock", func(t *testing.T, p model.Provider) {
			resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "ping"}}})
			assert.Equal(t, "Mock response to: ping", resp.Text())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Defaults()
			cfg.Provider = tt.provider
			cfg.Model = "my-model"
			p, err := cfg.NewProvider(nil)
			require.NoError(t, err)
			tt.check(t, p)
		})
	}

	cfg := Defaults()
	cfg.Provider = "nope"
	_, err := cfg.NewProvider(nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewProvider_CompatDefaults(t *testing.T) {
	cfg := Defaults()
	p, err := cfg.NewProvider(nil)
	require.NoError(t, err)
	assert.Equal(t, compat.DefaultModel, p.DefaultModel())
}

func TestNewLogger(t *testing.T) {
	cfg := Defaults()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
