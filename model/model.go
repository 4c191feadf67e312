package model

import (
	"context"

	"github.com/hupe1980/chatnorm/internal/util"
)

// Finish reasons shared by all providers. Provider specific values are passed
// through verbatim.
const (
	FinishReasonStop      = "stop"
	FinishReasonLength    = "length"
	FinishReasonToolCalls = "tool_calls"
	FinishReasonError     = "error"
)

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant turns that invoked tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool turns answering a call
}

// ToolCall is a previously issued tool invocation replayed as conversation history.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON encoded arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewFunctionTool builds a function tool whose parameter schema is derived
// from the exported fields of args (see util.CreateSchema).
func NewFunctionTool(name, description string, args any) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  util.CreateSchema(args),
		},
	}
}

// Request captures one chat completion call. Zero values fall back to the
// provider defaults.
type Request struct {
	Model           string           `json:"model,omitempty"`
	Messages        []Message        `json:"messages"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
	MaxTokens       int64            `json:"max_tokens,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	ReasoningEffort string           `json:"reasoning_effort,omitempty"`
	Stream          bool             `json:"stream,omitempty"`
}

// Usage captures token accounting reported by the completion source.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ToolCallRequest is one fully reconstructed tool invocation.
type ToolCallRequest struct {
	ID        string         `json:"id"` // assigned by the source, never generated locally
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the normalized result of one chat completion call, identical
// in shape for streaming and non-streaming calls.
type Response struct {
	Content          *string           `json:"content"`
	ToolCalls        []ToolCallRequest `json:"tool_calls"`
	FinishReason     string            `json:"finish_reason"`
	Usage            *Usage            `json:"usage,omitempty"`
	ReasoningContent *string           `json:"reasoning_content,omitempty"`
}

// Text returns the content or the empty string when the model produced none.
func (r Response) Text() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// Reasoning returns the reasoning text or the empty string.
func (r Response) Reasoning() string {
	if r.ReasoningContent == nil {
		return ""
	}
	return *r.ReasoningContent
}

// HasToolCalls reports whether the model requested at least one tool invocation.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Failed reports whether the response carries an error diagnostic instead of model output.
func (r Response) Failed() bool { return r.FinishReason == FinishReasonError }

// String returns a pointer to s. Handy for optional content fields.
func String(s string) *string { return &s }

// Info contains metadata about a provider implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "compat", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Provider is the caller facing contract: every call yields exactly one
// normalized Response, failures included.
type Provider interface {
	Chat(ctx context.Context, req Request) Response

	// DefaultModel returns the model used when Request.Model is empty.
	DefaultModel() string

	// Info returns information about the provider implementation.
	Info() Info
}
