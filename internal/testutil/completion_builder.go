package testutil

import (
	"encoding/json"

	"github.com/hupe1980/chatnorm/completion"
)

// CompletionBuilder helps construct non-streaming completions with fluent chaining.
// Example:
//
//	c := NewCompletion().Content("hi").Finish("stop").Usage(1, 2, 3).Build()
type CompletionBuilder struct {
	content      *string
	reasoning    *string
	toolCalls    []completion.ToolCall
	finishReason string
	usage        *completion.Usage
	noChoices    bool
}

// NewCompletion creates a builder for a single-choice completion.
func NewCompletion() *CompletionBuilder { return &CompletionBuilder{} }

// Content sets the message content (chainable).
func (b *CompletionBuilder) Content(s string) *CompletionBuilder { b.content = &s; return b }

// Reasoning sets the message reasoning_content (chainable).
func (b *CompletionBuilder) Reasoning(s string) *CompletionBuilder { b.reasoning = &s; return b }

// ToolCall appends a tool call whose arguments travel as a JSON encoded string (chainable).
func (b *CompletionBuilder) ToolCall(id, name, args string) *CompletionBuilder {
	raw, _ := json.Marshal(args)
	return b.RawToolCall(id, name, raw)
}

// RawToolCall appends a tool call with verbatim raw arguments, e.g. an
// already structured object (chainable).
func (b *CompletionBuilder) RawToolCall(id, name string, raw json.RawMessage) *CompletionBuilder {
	b.toolCalls = append(b.toolCalls, completion.ToolCall{
		ID:       id,
		Type:     "function",
		Function: completion.FunctionCall{Name: name, Arguments: raw},
	})
	return b
}

// Finish sets the finish reason (chainable).
func (b *CompletionBuilder) Finish(reason string) *CompletionBuilder { b.finishReason = reason; return b }

// Usage attaches a usage object (chainable).
func (b *CompletionBuilder) Usage(prompt, completionTokens, total int64) *CompletionBuilder {
	b.usage = &completion.Usage{PromptTokens: prompt, CompletionTokens: completionTokens, TotalTokens: total}
	return b
}

// NoChoices produces a completion with an empty choices list (chainable).
func (b *CompletionBuilder) NoChoices() *CompletionBuilder { b.noChoices = true; return b }

// Build constructs the completion.Completion value.
func (b *CompletionBuilder) Build() *completion.Completion {
	c := &completion.Completion{ID: "cmpl-test", Usage: b.usage, Choices: []completion.Choice{}}
	if b.noChoices {
		return c
	}
	c.Choices = append(c.Choices, completion.Choice{
		Message: completion.Message{
			Role:             "assistant",
			Content:          b.content,
			ReasoningContent: b.reasoning,
			ToolCalls:        b.toolCalls,
		},
		FinishReason: b.finishReason,
	})
	return c
}
