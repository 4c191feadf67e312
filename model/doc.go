// Package model defines the provider‑agnostic request and response shapes of
// chatnorm.
//
// Core goals:
//   - One Response shape for streaming and non‑streaming calls
//   - Tool calls surfaced with decoded (map) arguments, never raw strings
//   - Absent usage / reasoning represented as nil, not as zero values
//   - Lightweight mocking for tests and dry runs (MockProvider)
//
// Providers (OpenAI, Anthropic, raw OpenAI-compatible HTTP) implement the
// Provider interface so callers stay decoupled from vendor SDKs.
package model
