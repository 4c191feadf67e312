package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CHATNORM_CONFIG env)
//  3. CHATNORM_* environment variables
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(configPath); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv("CHATNORM_CONFIG")
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps CHATNORM_* environment variables to config fields.
// Malformed numeric values are reported instead of silently ignored.
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"CHATNORM_PROVIDER":         &cfg.Provider,
		"CHATNORM_BASE_URL":         &cfg.BaseURL,
		"CHATNORM_API_KEY":          &cfg.APIKey,
		"CHATNORM_API_KEY_FILE":     &cfg.APIKeyFile,
		"CHATNORM_MODEL":            &cfg.Model,
		"CHATNORM_REASONING_EFFORT": &cfg.ReasoningEffort,
		"CHATNORM_LOG_LEVEL":        &cfg.Log.Level,
		"CHATNORM_LOG_FORMAT":       &cfg.Log.Format,
	}
	for key, field := range str {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("CHATNORM_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHATNORM_MAX_TOKENS: %w", err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("CHATNORM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CHATNORM_TEMPERATURE: %w", err)
		}
		cfg.Temperature = f
	}
	if v := os.Getenv("CHATNORM_STREAM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATNORM_STREAM: %w", err)
		}
		cfg.Stream = b
	}
	if v := os.Getenv("CHATNORM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHATNORM_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return nil
}

// resolveFileReferences reads api_key_file into api_key unless a key is set already.
func resolveFileReferences(cfg *Config) error {
	if cfg.APIKeyFile != "" && cfg.APIKey == "" {
		val, err := readSecretFile(cfg.APIKeyFile)
		if err != nil {
			return fmt.Errorf("api_key_file: %w", err)
		}
		cfg.APIKey = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
