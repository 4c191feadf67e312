// Package compat talks to any OpenAI-compatible chat completions endpoint
// (vLLM, Ollama, LM Studio, llama.cpp, LiteLLM, ...) over plain HTTP.
//
// Unlike model/openai it does not go through an SDK: the request body is
// composed with sjson and the response is handed to the aggregation engine
// as received, so non-standard fields such as reasoning_content or
// structured tool arguments are never lost.
package compat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/engine"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Defaults for a local inference server.
const (
	DefaultBaseURL = "http://localhost:8000/v1"
	DefaultAPIKey  = "no-key"
	DefaultModel   = "default"
)

// Options configures the compat provider.
type Options struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int64
	Temperature     float64
	ReasoningEffort string
	Stream          bool
	Timeout         time.Duration

	// Headers are added to every request.
	Headers map[string]string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// APIError is a non-2xx answer of the endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("compat api error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Provider implements completion.Source and model.Provider over HTTP.
type Provider struct {
	opts Options
}

// NewProvider creates a compat provider.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := Options{
		BaseURL:     DefaultBaseURL,
		APIKey:      DefaultAPIKey,
		Model:       DefaultModel,
		MaxTokens:   4096,
		Temperature: 0.7,
		HTTPClient:  http.DefaultClient,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Provider{opts: opts}
}

// Complete implements completion.Source.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*completion.Completion, error) {
	req.Stream = false
	body, err := p.requestBody(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.post(ctx, body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("compat: read response: %w", err)
	}
	// Some servers answer 200 with an error document.
	if e, ok := errorField(data); ok {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(e)}
	}
	return completion.DecodeCompletion(data)
}

// Stream implements completion.Source. Usage reporting is always requested.
func (p *Provider) Stream(ctx context.Context, req model.Request) (completion.ChunkStream, error) {
	req.Stream = true
	body, err := p.requestBody(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.post(ctx, body, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp.Body, p.opts.Logger), nil
}

// Chat implements model.Provider.
func (p *Provider) Chat(ctx context.Context, req model.Request) model.Response {
	req = p.resolve(req)
	return engine.Normalize(ctx, p, req, func(o *engine.Options) {
		o.Logger = p.opts.Logger
		o.Provider = "compat"
		o.Timeout = p.opts.Timeout
	})
}

// DefaultModel implements model.Provider.
func (p *Provider) DefaultModel() string { return p.opts.Model }

// Info implements model.Provider.
func (p *Provider) Info() model.Info {
	return model.Info{Name: p.opts.Model, Provider: "compat", SupportsTools: true}
}

func (p *Provider) resolve(req model.Request) model.Request {
	req.Stream = req.Stream || p.opts.Stream
	if req.ReasoningEffort == "" {
		req.ReasoningEffort = p.opts.ReasoningEffort
	}
	return req.Resolve(p.opts.Model, p.opts.MaxTokens, p.opts.Temperature)
}

// requestBody composes the chat completions request document.
func (p *Provider) requestBody(req model.Request) ([]byte, error) {
	stream := req.Stream
	req = p.resolve(req)

	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}
	setRaw := func(path string, raw []byte) {
		if err == nil {
			body, err = sjson.SetRawBytes(body, path, raw)
		}
	}

	set("model", req.Model)
	setRaw("messages", []byte(`[]`))
	for _, m := range model.SanitizeMessages(req.Messages) {
		var msg []byte
		if msg, err = messageJSON(m); err != nil {
			break
		}
		setRaw("messages.-1", msg)
	}
	set("max_tokens", req.MaxTokens)
	set("temperature", *req.Temperature)
	if req.ReasoningEffort != "" {
		set("reasoning_effort", req.ReasoningEffort)
	}
	if len(req.Tools) > 0 {
		set("tools", req.Tools)
		set("tool_choice", "auto")
	}
	if stream {
		set("stream", true)
		set("stream_options.include_usage", true)
	}
	if err != nil {
		return nil, fmt.Errorf("compat: compose request: %w", err)
	}
	return body, nil
}

// messageJSON encodes one conversation entry. Assistant turns that only
// carry tool calls are sent with null content.
func messageJSON(m model.Message) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "role", m.Role)
	if err != nil {
		return nil, err
	}
	if m.Content == "" && len(m.ToolCalls) > 0 {
		msg, err = sjson.SetRawBytes(msg, "content", []byte("null"))
	} else {
		msg, err = sjson.SetBytes(msg, "content", m.Content)
	}
	if err != nil {
		return nil, err
	}
	if len(m.ToolCalls) > 0 {
		calls, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return nil, err
		}
		if msg, err = sjson.SetRawBytes(msg, "tool_calls", calls); err != nil {
			return nil, err
		}
	}
	if m.ToolCallID != "" {
		if msg, err = sjson.SetBytes(msg, "tool_call_id", m.ToolCallID); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (p *Provider) post(ctx context.Context, body []byte, accept string) (*http.Response, error) {
	url := p.opts.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("compat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if p.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	}
	for k, v := range p.opts.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("compat: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, classifyError(resp)
	}
	return resp, nil
}

func classifyError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	if e, ok := errorField(data); ok {
		msg = errorMessage(e)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// errorField returns the "error" member of a document. An explicit null
// does not count as an error.
func errorField(data []byte) (gjson.Result, bool) {
	e := gjson.GetBytes(data, "error")
	return e, e.Exists() && e.Type != gjson.Null
}

// errorMessage reads {"error":{"message":...}} as well as {"error":"..."}.
func errorMessage(e gjson.Result) string {
	if m := e.Get("message"); m.Exists() {
		return m.String()
	}
	return e.String()
}
