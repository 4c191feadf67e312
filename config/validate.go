package config

import (
	"errors"
	"fmt"

	"github.com/hupe1980/chatnorm/logging"
)

// ErrUnknownProvider is returned for provider names outside KnownProviders.
var ErrUnknownProvider = errors.New("unknown provider")

// Validate checks the configuration for valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if _, err := canonicalProvider(c.Provider); err != nil {
		errs = append(errs, fmt.Errorf("provider: %w", err))
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", c.Timeout))
	}

	switch c.ReasoningEffort {
	case "", "minimal", "low", "medium", "high":
		// valid
	default:
		errs = append(errs, fmt.Errorf("reasoning_effort must be \"minimal\", \"low\", \"medium\" or \"high\", got %q", c.ReasoningEffort))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	switch c.Log.Format {
	case "", "json", "text":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"json\" or \"text\", got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
