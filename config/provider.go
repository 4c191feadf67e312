package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
	anthropicprovider "github.com/hupe1980/chatnorm/model/anthropic"
	"github.com/hupe1980/chatnorm/model/compat"
	openaiprovider "github.com/hupe1980/chatnorm/model/openai"
	openaiopt "github.com/openai/openai-go/option"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderCompat    = "compat"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// KnownProviders lists the accepted provider names. "custom" is an alias of "compat".
var KnownProviders = []string{ProviderOpenAI, ProviderCompat, ProviderAnthropic, ProviderMock}

func canonicalProvider(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case "", ProviderCompat, "custom":
		return ProviderCompat, nil
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	case ProviderMock:
		return ProviderMock, nil
	default:
		return "", fmt.Errorf("%w %q (known: %s)", ErrUnknownProvider, name, strings.Join(KnownProviders, ", "))
	}
}

// NewLogger builds the logger described by c.Log writing to w (stderr if nil).
func (c *Config) NewLogger(w io.Writer) *logging.StructuredLogger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.NewSlogLogger(level, c.Log.Format, w)
}

// NewProvider builds the configured provider. logger may be nil.
func (c *Config) NewProvider(logger logging.Logger) (model.Provider, error) {
	name, err := canonicalProvider(c.Provider)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	switch name {
	case ProviderOpenAI:
		return openaiprovider.NewProvider(func(o *openaiprovider.Options) {
			if c.Model != "" {
				o.Model = c.Model
			}
			o.MaxTokens = c.MaxTokens
			o.Temperature = c.Temperature
			o.ReasoningEffort = c.ReasoningEffort
			o.Stream = c.Stream
			o.Timeout = c.Timeout
			o.Logger = logger
			if c.APIKey != "" {
				o.RequestOptions = append(o.RequestOptions, openaiopt.WithAPIKey(c.APIKey))
			}
			if c.BaseURL != "" {
				o.RequestOptions = append(o.RequestOptions, openaiopt.WithBaseURL(c.BaseURL))
			}
		}), nil

	case ProviderAnthropic:
		return anthropicprovider.NewProvider(func(o *anthropicprovider.Options) {
			if c.Model != "" {
				o.Model = anthropic.Model(c.Model)
			}
			o.MaxTokens = c.MaxTokens
			o.Temperature = c.Temperature
			o.APIKey = c.APIKey
			o.Stream = c.Stream
			o.Timeout = c.Timeout
			o.Logger = logger
			if c.BaseURL != "" {
				o.RequestOptions = append(o.RequestOptions, anthropicopt.WithBaseURL(c.BaseURL))
			}
		}), nil

	case ProviderMock:
		mockName := c.Model
		if mockName == "" {
			mockName = ProviderMock
		}
		return model.NewMockProvider(mockName), nil

	default:
		return compat.NewProvider(func(o *compat.Options) {
			if c.BaseURL != "" {
				o.BaseURL = c.BaseURL
			}
			if c.APIKey != "" {
				o.APIKey = c.APIKey
			}
			if c.Model != "" {
				o.Model = c.Model
			}
			o.MaxTokens = c.MaxTokens
			o.Temperature = c.Temperature
			o.ReasoningEffort = c.ReasoningEffort
			o.Stream = c.Stream
			o.Timeout = c.Timeout
			o.Headers = c.Headers
			o.Logger = logger
		}), nil
	}
}
