// Package logging provides a minimal logging interface and adapters for chatnorm.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) used by the engine, the aggregator and the providers. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger with component / call id context and LogLLMCall
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", os.Stderr)
//	p := openai.NewProvider(func(o *openai.Options) { o.Logger = logger })
package logging
