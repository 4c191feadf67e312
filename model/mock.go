package model

import (
	"context"
	"fmt"
)

// MockProvider is a lightweight in‑memory Provider useful for tests, examples
// and dry runs of the CLI.
type MockProvider struct {
	info      Info
	responses map[string]Response
}

// NewMockProvider constructs a MockProvider with basic tool support enabled.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]Response),
	}
}

// AddResponse registers a canned response for the text of the last user message.
func (m *MockProvider) AddResponse(prompt string, resp Response) { m.responses[prompt] = resp }

// Chat implements Provider. Unknown prompts are echoed back.
func (m *MockProvider) Chat(ctx context.Context, req Request) Response {
	if err := ctx.Err(); err != nil {
		return Response{Content: String("Error: " + err.Error()), ToolCalls: []ToolCallRequest{}, FinishReason: FinishReasonError}
	}
	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}
	if resp, ok := m.responses[prompt]; ok {
		if resp.ToolCalls == nil {
			resp.ToolCalls = []ToolCallRequest{}
		}
		if resp.FinishReason == "" {
			resp.FinishReason = FinishReasonStop
		}
		return resp
	}
	return Response{
		Content:      String(fmt.Sprintf("Mock response to: %s", prompt)),
		ToolCalls:    []ToolCallRequest{},
		FinishReason: FinishReasonStop,
	}
}

// DefaultModel implements Provider.
func (m *MockProvider) DefaultModel() string { return m.info.Name }

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }
