// Package config provides the provider configuration of chatnorm.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (explicit path or CHATNORM_CONFIG)
//  3. Environment variable overrides (CHATNORM_ prefix)
//  4. File reference resolution (api_key_file)
//  5. Validation
package config

import (
	"time"
)

// Config selects and parameterizes one provider.
type Config struct {
	Provider        string            `yaml:"provider"`         // "openai", "compat" (alias "custom"), "anthropic" or "mock"
	BaseURL         string            `yaml:"base_url"`         // default: provider specific
	APIKey          string            `yaml:"api_key"`          // optional
	APIKeyFile      string            `yaml:"api_key_file"`     // _file variant for api_key
	Model           string            `yaml:"model"`            // default: provider specific
	MaxTokens       int64             `yaml:"max_tokens"`       // default: 4096, raised to at least 1
	Temperature     float64           `yaml:"temperature"`      // default: 0.7
	ReasoningEffort string            `yaml:"reasoning_effort"` // optional: "low", "medium", "high"
	Stream          bool              `yaml:"stream"`           // default: false
	Timeout         time.Duration     `yaml:"timeout"`          // default: 120s, 0 disables
	Headers         map[string]string `yaml:"headers"`          // compat only
	Log             LogConfig         `yaml:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Provider:    ProviderCompat,
		MaxTokens:   4096,
		Temperature: 0.7,
		Timeout:     120 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
