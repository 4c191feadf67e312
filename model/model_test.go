package model

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Accessors(t *testing.T) {
	var empty Response
	assert.Equal(t, "", empty.Text())
	assert.Equal(t, "", empty.Reasoning())
	assert.False(t, empty.HasToolCalls())
	assert.False(t, empty.Failed())

	r := Response{
		Content:          String("hi"),
		ReasoningContent: String("because"),
		ToolCalls:        []ToolCallRequest{{ID: "c1", Name: "f", Arguments: map[string]any{}}},
		FinishReason:     FinishReasonError,
	}
	assert.Equal(t, "hi", r.Text())
	assert.Equal(t, "because", r.Reasoning())
	assert.True(t, r.HasToolCalls())
	assert.True(t, r.Failed())
}

func TestResponse_JSONKeepsAbsentUsageAbsent(t *testing.T) {
	b, err := json.Marshal(Response{ToolCalls: []ToolCallRequest{}, FinishReason: FinishReasonStop})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":null,"tool_calls":[],"finish_reason":"stop"}`, string(b))
}

func TestSanitizeMessages(t *testing.T) {
	in := []Message{
		{Role: "system", Content: ""},
		{Role: "user", Content: "hello"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "c1", Type: "function", Function: ToolCallFunction{Name: "f"}}}},
		{Role: "assistant", Content: ""},
		{Role: "tool", ToolCallID: "c1"},
	}
	out := SanitizeMessages(in)

	require.Len(t, out, 5)
	assert.Equal(t, EmptyContentPlaceholder, out[0].Content)
	assert.Equal(t, "hello", out[1].Content)
	assert.Equal(t, "", out[2].Content)
	assert.Equal(t, EmptyContentPlaceholder, out[3].Content)
	assert.Equal(t, EmptyContentPlaceholder, out[4].Content)
	// input untouched
	assert.Equal(t, "", in[0].Content)
}

func TestRequest_Resolve(t *testing.T) {
	r := Request{}.Resolve("default", 4096, 0.7)
	assert.Equal(t, "default", r.Model)
	assert.Equal(t, int64(4096), r.MaxTokens)
	require.NotNil(t, r.Temperature)
	assert.InDelta(t, 0.7, *r.Temperature, 1e-9)

	temp := 0.0
	r = Request{Model: "m", MaxTokens: -3, Temperature: &temp}.Resolve("default", 4096, 0.7)
	assert.Equal(t, "m", r.Model)
	assert.Equal(t, int64(1), r.MaxTokens)
	assert.Equal(t, 0.0, *r.Temperature)
}

func TestNewFunctionTool(t *testing.T) {
	type weatherArgs struct {
		City string `json:"city" description:"City name"`
	}
	td := NewFunctionTool("get_weather", "Look up the weather", weatherArgs{})

	assert.Equal(t, "function", td.Type)
	assert.Equal(t, "get_weather", td.Function.Name)
	props, ok := td.Function.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider("mock-1")
	m.AddResponse("weather?", Response{
		ToolCalls:    []ToolCallRequest{{ID: "call_1", Name: "get_weather", Arguments: map[string]any{"city": "Berlin"}}},
		FinishReason: FinishReasonToolCalls,
	})

	resp := m.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "weather?"}}})
	assert.Equal(t, FinishReasonToolCalls, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "Berlin", resp.ToolCalls[0].Arguments["city"])

	resp = m.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	assert.Equal(t, "Mock response to: hi", resp.Text())
	assert.Equal(t, FinishReasonStop, resp.FinishReason)
	assert.NotNil(t, resp.ToolCalls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp = m.Chat(ctx, Request{})
	assert.True(t, resp.Failed())

	assert.Equal(t, "mock-1", m.DefaultModel())
	assert.Equal(t, "mock", m.Info().Provider)
}
