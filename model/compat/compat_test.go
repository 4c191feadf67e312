package compat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hupe1980/chatnorm/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type captured struct {
	body   gjson.Result
	header http.Header
}

func newTestProvider(t *testing.T, handler func(w http.ResponseWriter), optFns ...func(o *Options)) (*Provider, *[]captured) {
	t.Helper()
	var reqs []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		reqs = append(reqs, captured{body: gjson.ParseBytes(raw), header: r.Header.Clone()})
		handler(w)
	}))
	t.Cleanup(srv.Close)

	fns := append([]func(o *Options){func(o *Options) { o.BaseURL = srv.URL + "/v1/" }}, optFns...)
	return NewProvider(fns...), &reqs
}

func TestChat_NonStreaming(t *testing.T) {
	p, reqs := newTestProvider(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"hi","tool_calls":[{"id":"c1","type":"function","function":{"name":"f","arguments":{"k":"v"}}}]},"finish_reason":"tool_calls"}]}`)
	})

	resp := p.Chat(context.Background(), model.Request{
		Messages: []model.Message{
			{Role: "system", Content: ""},
			{Role: "user", Content: "hello"},
			{Role: "assistant", ToolCalls: []model.ToolCall{{ID: "c0", Type: "function", Function: model.ToolCallFunction{Name: "f", Arguments: "{}"}}}},
			{Role: "tool", ToolCallID: "c0", Content: "ok"},
		},
		Tools:     []model.ToolDefinition{model.NewFunctionTool("f", "does f", nil)},
		MaxTokens: -5,
	})

	require.False(t, resp.Failed(), resp.Text())
	assert.Equal(t, "hi", resp.Text())
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, map[string]any{"k": "v"}, resp.ToolCalls[0].Arguments)
	assert.Nil(t, resp.Usage)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "Bearer no-key", req.header.Get("Authorization"))
	body := req.body
	assert.Equal(t, DefaultModel, body.Get("model").String())
	assert.Equal(t, int64(1), body.Get("max_tokens").Int(), "budget is clamped to at least 1")
	assert.InDelta(t, 0.7, body.Get("temperature").Float(), 1e-9)
	assert.Equal(t, "auto", body.Get("tool_choice").String())
	assert.Equal(t, "f", body.Get("tools.0.function.name").String())
	assert.False(t, body.Get("stream").Exists())
	assert.Equal(t, model.EmptyContentPlaceholder, body.Get("messages.0.content").String())
	assert.Equal(t, gjson.Null, body.Get("messages.2.content").Type)
	assert.Equal(t, "c0", body.Get("messages.2.tool_calls.0.id").String())
	assert.Equal(t, "c0", body.Get("messages.3.tool_call_id").String())
}

func TestChat_Streaming(t *testing.T) {
	p, reqs := newTestProvider(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			": keep-alive",
			`data: {"choices":[{"index":0,"delta":{"reasoning_content":"think"},"finish_reason":null}]}`,
			`data: {"choices":[{"index":0,"delta":{"content":"A"},"finish_reason":null}]}`,
			`data:{"choices":[{"index":0,"delta":{"content":"B"},"finish_reason":"stop"}]}`,
			`data: {"choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`,
			`data: [DONE]`,
		}
		for _, f := range frames {
			fmt.Fprintf(w, "%s\n\n", f)
		}
	}, func(o *Options) {
		o.Stream = true
		o.ReasoningEffort = "high"
		o.Headers = map[string]string{"X-Trace": "1"}
	})

	resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})

	require.False(t, resp.Failed(), resp.Text())
	assert.Equal(t, "AB", resp.Text())
	assert.Equal(t, "think", resp.Reasoning())
	assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(3), resp.Usage.TotalTokens)

	req := (*reqs)[0]
	assert.Equal(t, "1", req.header.Get("X-Trace"))
	assert.Equal(t, "text/event-stream", req.header.Get("Accept"))
	assert.True(t, req.body.Get("stream").Bool())
	assert.True(t, req.body.Get("stream_options.include_usage").Bool())
	assert.Equal(t, "high", req.body.Get("reasoning_effort").String())
}

func TestChat_ErrorFrameDiscardsPartialOutput(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"partial"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"error":{"message":"model crashed"}}`+"\n\n")
	}, func(o *Options) { o.Stream = true })

	resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
	assert.True(t, resp.Failed())
	assert.Equal(t, "Error: stream aborted after 1 chunks: compat stream error: model crashed", resp.Text())
}

func TestChat_MalformedFrameAbortsStream(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"lo, wor"}}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"ld"},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}, func(o *Options) { o.Stream = true })

	resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
	require.True(t, resp.Failed(), resp.Text())
	assert.True(t, strings.HasPrefix(resp.Text(), "Error: stream aborted after 1 chunks: compat: decode stream frame: "), resp.Text())
	assert.Empty(t, resp.ToolCalls)
}

func TestChat_NullErrorFieldIsNotAFailure(t *testing.T) {
	t.Run("non-stream", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"error":null}`)
		})

		resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
		require.False(t, resp.Failed(), resp.Text())
		assert.Equal(t, "hi", resp.Text())
		assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
	})

	t.Run("stream", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":"stop"}],"error":null}`+"\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}, func(o *Options) { o.Stream = true })

		resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
		require.False(t, resp.Failed(), resp.Text())
		assert.Equal(t, "hi", resp.Text())
		assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
	})
}

func TestChat_HTTPErrors(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"no capacity"}}`)
	})

	for _, stream := range []bool{false, true} {
		resp := p.Chat(context.Background(), model.Request{Stream: stream, Messages: []model.Message{{Role: "user", Content: "x"}}})
		assert.True(t, resp.Failed())
		assert.Equal(t, "Error: compat api error (HTTP 503): no capacity", resp.Text())
	}
}

func TestChat_ErrorDocumentWithStatusOK(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter) {
		_, _ = io.WriteString(w, `{"error":"context length exceeded"}`)
	})

	resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
	assert.True(t, resp.Failed())
	assert.Contains(t, resp.Text(), "context length exceeded")
}

func TestChat_Unreachable(t *testing.T) {
	p := NewProvider(func(o *Options) { o.BaseURL = "http://127.0.0.1:1/v1" })
	resp := p.Chat(context.Background(), model.Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
	assert.True(t, resp.Failed())
	assert.True(t, strings.HasPrefix(resp.Text(), "Error: compat: "), resp.Text())
}

func TestSSEStream_CleanEOFWithoutDone(t *testing.T) {
	s := newSSEStream(io.NopCloser(strings.NewReader(
		"event: message\ndata: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"x\"}}]}\n\n",
	)), nil)
	require.True(t, s.Next())
	assert.Equal(t, "x", *s.Current().Choices[0].Delta.Content)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestProviderDefaults(t *testing.T) {
	p := NewProvider()
	assert.Equal(t, DefaultModel, p.DefaultModel())
	assert.Equal(t, DefaultBaseURL, p.opts.BaseURL)
	assert.Equal(t, "compat", p.Info().Provider)
}
