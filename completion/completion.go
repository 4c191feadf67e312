// Package completion holds the wire shapes of the OpenAI Chat Completions
// protocol as seen by the aggregation engine, together with the Source
// boundary that delivers them.
//
// Pointer fields distinguish "absent or null" from the zero value. That
// distinction matters: usage that was never reported must stay unknown, and
// a chunk whose delta is null is skipped entirely.
package completion

import (
	"encoding/json"
	"fmt"
)

// Usage is the token accounting object of a completion or of a terminal chunk.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Completion is a complete (non-streaming) chat completion object.
type Completion struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion alternative. Only the first one is consumed.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Message is the assistant message of a non-streaming choice.
type Message struct {
	Role             string     `json:"role,omitempty"`
	Content          *string    `json:"content"`
	ReasoningContent *string    `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a complete tool invocation of a non-streaming message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its arguments. Arguments is kept
// raw: OpenAI sends a JSON encoded string, some compatible servers send the
// structured object directly.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Chunk is one incremental unit of a streaming completion.
type Chunk struct {
	ID      string        `json:"id,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChunkChoice is the per-choice part of a chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        *Delta  `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental portion of the message carried by one chunk.
type Delta struct {
	Role             string          `json:"role,omitempty"`
	Content          *string         `json:"content,omitempty"`
	ReasoningContent *string         `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is one tool call fragment: {index, id?, function?{name?, arguments?}}.
type ToolCallDelta struct {
	Index    int64          `json:"index"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function *FunctionDelta `json:"function,omitempty"`
}

// FunctionDelta is the function part of a tool call fragment.
type FunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// DecodeCompletion parses a chat completion JSON document.
func DecodeCompletion(data []byte) (*Completion, error) {
	var c Completion
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	return &c, nil
}

// DecodeChunk parses one chat completion chunk JSON document.
func DecodeChunk(data []byte) (Chunk, error) {
	var ck Chunk
	if err := json.Unmarshal(data, &ck); err != nil {
		return Chunk{}, fmt.Errorf("decode chunk: %w", err)
	}
	return ck, nil
}
