package testutil

import "github.com/hupe1980/chatnorm/completion"

// ChunkBuilder provides a fluent helper for constructing stream chunks in tests.
// Example:
//
//	ck := NewChunk().Content("hel").ToolCall(0, "call_1", "get_weather", `{"ci`).Build()
//
// Chain only the parts you need; a chunk always has one choice unless
// NoChoices is used.
type ChunkBuilder struct {
	id           string
	content      *string
	reasoning    *string
	toolCalls    []completion.ToolCallDelta
	finishReason *string
	nullDelta    bool
	noChoices    bool
	usage        *completion.Usage
}

// NewChunk creates a builder for a single-choice chunk.
func NewChunk() *ChunkBuilder { return &ChunkBuilder{} }

// ID sets the chunk id (chainable).
func (b *ChunkBuilder) ID(id string) *ChunkBuilder { b.id = id; return b }

// Content sets the delta content text (chainable).
func (b *ChunkBuilder) Content(s string) *ChunkBuilder { b.content = &s; return b }

// Reasoning sets the delta reasoning text (chainable).
func (b *ChunkBuilder) Reasoning(s string) *ChunkBuilder { b.reasoning = &s; return b }

// ToolCall appends a tool call fragment. Empty id, name or arguments are
// left out of the fragment, as servers do for continuation fragments (chainable).
func (b *ChunkBuilder) ToolCall(index int64, id, name, args string) *ChunkBuilder {
	d := completion.ToolCallDelta{Index: index, ID: id}
	if name != "" || args != "" {
		d.Function = &completion.FunctionDelta{Name: name, Arguments: args}
	}
	if id != "" {
		d.Type = "function"
	}
	b.toolCalls = append(b.toolCalls, d)
	return b
}

// BareToolCall appends a fragment carrying only an index (chainable).
func (b *ChunkBuilder) BareToolCall(index int64) *ChunkBuilder {
	b.toolCalls = append(b.toolCalls, completion.ToolCallDelta{Index: index})
	return b
}

// Finish sets the choice finish reason; "" models an explicit empty value (chainable).
func (b *ChunkBuilder) Finish(reason string) *ChunkBuilder { b.finishReason = &reason; return b }

// NullDelta makes the choice carry a null delta (chainable).
func (b *ChunkBuilder) NullDelta() *ChunkBuilder { b.nullDelta = true; return b }

// NoChoices makes the chunk carry an empty choices list (chainable).
func (b *ChunkBuilder) NoChoices() *ChunkBuilder { b.noChoices = true; return b }

// Usage attaches a top-level usage object (chainable).
func (b *ChunkBuilder) Usage(prompt, completionTokens, total int64) *ChunkBuilder {
	b.usage = &completion.Usage{PromptTokens: prompt, CompletionTokens: completionTokens, TotalTokens: total}
	return b
}

// Build constructs the completion.Chunk value.
func (b *ChunkBuilder) Build() completion.Chunk {
	ck := completion.Chunk{ID: b.id, Usage: b.usage, Choices: []completion.ChunkChoice{}}
	if b.noChoices {
		return ck
	}
	choice := completion.ChunkChoice{FinishReason: b.finishReason}
	if !b.nullDelta {
		choice.Delta = &completion.Delta{
			Content:          b.content,
			ReasoningContent: b.reasoning,
			ToolCalls:        b.toolCalls,
		}
	}
	ck.Choices = append(ck.Choices, choice)
	return ck
}

// UsageChunk returns the terminal usage-only chunk.
func UsageChunk(prompt, completionTokens, total int64) completion.Chunk {
	return NewChunk().NoChoices().Usage(prompt, completionTokens, total).Build()
}

// TextChunks returns one content chunk per piece.
func TextChunks(pieces ...string) []completion.Chunk {
	out := make([]completion.Chunk, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, NewChunk().Content(p).Build())
	}
	return out
}
