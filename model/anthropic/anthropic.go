// Package anthropic provides a completion.Source and model.Provider for the
// Anthropic Claude Messages API.
//
// Messages responses and stream events are translated into the Chat
// Completions shapes of the completion package, so that both providers feed
// the same aggregation engine:
//
//	text block / text_delta          -> content
//	thinking block / thinking_delta  -> reasoning_content
//	tool_use block / input_json_delta -> tool call fragment keyed by block index
//	stop_reason                      -> finish_reason (end_turn=stop, max_tokens=length, tool_use=tool_calls)
//	input_tokens / output_tokens     -> usage (emitted as a final choice-less chunk)
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/hupe1980/chatnorm/aggregate"
	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/engine"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
	"github.com/tidwall/gjson"
)

// Options configures the Anthropic provider (model id, max tokens,
// temperature, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	Stream      bool
	Timeout     time.Duration
	Logger      logging.Logger

	// RequestOptions are passed to anthropic.NewClient by NewProvider.
	RequestOptions []option.RequestOption
}

// Provider wraps the Anthropic Messages API behind completion.Source and
// model.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// NewProvider creates a new Anthropic provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	clientOpts = append(clientOpts, opts.RequestOptions...)

	client := anthropic.NewClient(clientOpts...)
	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates a new Anthropic provider from an existing client.
func NewProviderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
		Logger:      logging.NoOpLogger{},
	}
}

// Complete implements completion.Source.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*completion.Completion, error) {
	resp, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	return decodeMessage(resp.RawJSON())
}

// Stream implements completion.Source.
func (p *Provider) Stream(ctx context.Context, req model.Request) (completion.ChunkStream, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic streaming error: %w", err)
	}
	return &eventStream{stream: stream}, nil
}

// Chat implements model.Provider.
func (p *Provider) Chat(ctx context.Context, req model.Request) model.Response {
	req = p.resolve(req)
	return engine.Normalize(ctx, p, req, func(o *engine.Options) {
		o.Logger = p.opts.Logger
		o.Provider = "anthropic"
		o.Timeout = p.opts.Timeout
	})
}

func (p *Provider) resolve(req model.Request) model.Request {
	req.Stream = req.Stream || p.opts.Stream
	return req.Resolve(string(p.opts.Model), p.opts.MaxTokens, p.opts.Temperature)
}

// DefaultModel implements model.Provider.
func (p *Provider) DefaultModel() string { return string(p.opts.Model) }

// Info returns metadata describing this Anthropic provider implementation.
func (p *Provider) Info() model.Info {
	return model.Info{
		Name:          string(p.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}

func (p *Provider) buildParams(req model.Request) anthropic.MessageNewParams {
	req = p.resolve(req)
	msgs := model.SanitizeMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		Messages:    buildMessages(msgs),
		MaxTokens:   req.MaxTokens,
		Temperature: anthropic.Float(*req.Temperature),
	}
	if system := extractSystem(msgs); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

// buildMessages converts the conversation to Anthropic messages. Tool
// results become tool_result blocks of a user turn; consecutive results
// share one turn.
func buildMessages(msgs []model.Message) []anthropic.MessageParam {
	var (
		messages     []anthropic.MessageParam
		pendingTools []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(pendingTools) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingTools...))
			pendingTools = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case "system":
			continue
		case "tool":
			pendingTools = append(pendingTools, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
			continue
		}
		flush()
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(assistantContent(m)...))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	flush()
	return messages
}

func assistantContent(m model.Message) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	if m.Content != "" {
		content = append(content, anthropic.NewTextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		content = append(content, anthropic.NewToolUseBlock(
			tc.ID,
			aggregate.DecodeArguments(tc.Function.Arguments),
			tc.Function.Name,
		))
	}
	return content
}

func extractSystem(msgs []model.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range msgs {
		if m.Role == "system" && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildTools converts tool definitions to Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if params := tool.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredFields(params["required"])
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if tool.Function.Description != "" && out[i].OfTool != nil {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}
	return out
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// FinishReason maps an Anthropic stop_reason onto the Chat Completions vocabulary.
// Unknown values pass through.
func FinishReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return model.FinishReasonStop
	case "max_tokens":
		return model.FinishReasonLength
	case "tool_use":
		return model.FinishReasonToolCalls
	default:
		return stopReason
	}
}

// decodeMessage translates a Messages API response document into a completion.
func decodeMessage(raw string) (*completion.Completion, error) {
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, fmt.Errorf("decode message: not a JSON object")
	}

	var (
		text, thinking strings.Builder
		hasText        bool
		calls          []completion.ToolCall
	)
	doc.Get("content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			hasText = true
			text.WriteString(block.Get("text").String())
		case "thinking":
			thinking.WriteString(block.Get("thinking").String())
		case "tool_use":
			calls = append(calls, completion.ToolCall{
				ID:   block.Get("id").String(),
				Type: "function",
				Function: completion.FunctionCall{
					Name:      block.Get("name").String(),
					Arguments: json.RawMessage(block.Get("input").Raw),
				},
			})
		}
		return true
	})

	msg := completion.Message{Role: "assistant", ToolCalls: calls}
	if hasText {
		msg.Content = model.String(text.String())
	}
	if thinking.Len() > 0 {
		msg.ReasoningContent = model.String(thinking.String())
	}

	c := &completion.Completion{
		ID:    doc.Get("id").String(),
		Model: doc.Get("model").String(),
		Choices: []completion.Choice{{
			Message:      msg,
			FinishReason: FinishReason(doc.Get("stop_reason").String()),
		}},
	}
	if u := doc.Get("usage"); u.Exists() {
		in, out := u.Get("input_tokens").Int(), u.Get("output_tokens").Int()
		c.Usage = &completion.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
	}
	return c, nil
}

// eventStream adapts the Messages event stream to completion.ChunkStream.
type eventStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	tr     translator
	cur    completion.Chunk
	err    error
}

func (s *eventStream) Next() bool {
	for s.err == nil && s.stream.Next() {
		ck, ok, err := s.tr.translate(s.stream.Current().RawJSON())
		if err != nil {
			s.err = err
			return false
		}
		if ok {
			s.cur = ck
			return true
		}
	}
	return false
}

func (s *eventStream) Current() completion.Chunk { return s.cur }

func (s *eventStream) Err() error {
	if s.err != nil {
		return s.err
	}
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("anthropic streaming error: %w", err)
	}
	return nil
}

func (s *eventStream) Close() error { return s.stream.Close() }

// translator turns stream events into chunks. Token counts arrive split over
// message_start and message_delta and are released on message_stop.
type translator struct {
	id           string
	model        string
	inputTokens  int64
	outputTokens int64
	hasUsage     bool
}

func (t *translator) translate(raw string) (completion.Chunk, bool, error) {
	ev := gjson.Parse(raw)
	switch ev.Get("type").String() {
	case "message_start":
		t.id = ev.Get("message.id").String()
		t.model = ev.Get("message.model").String()
		if u := ev.Get("message.usage"); u.Exists() {
			t.hasUsage = true
			t.inputTokens = u.Get("input_tokens").Int()
			t.outputTokens = u.Get("output_tokens").Int()
		}
		return completion.Chunk{}, false, nil

	case "content_block_start":
		block := ev.Get("content_block")
		if block.Get("type").String() != "tool_use" {
			return completion.Chunk{}, false, nil
		}
		return t.chunk(&completion.Delta{ToolCalls: []completion.ToolCallDelta{{
			Index:    ev.Get("index").Int(),
			ID:       block.Get("id").String(),
			Type:     "function",
			Function: &completion.FunctionDelta{Name: block.Get("name").String()},
		}}}, nil), true, nil

	case "content_block_delta":
		delta := ev.Get("delta")
		switch delta.Get("type").String() {
		case "text_delta":
			return t.chunk(&completion.Delta{Content: model.String(delta.Get("text").String())}, nil), true, nil
		case "thinking_delta":
			return t.chunk(&completion.Delta{ReasoningContent: model.String(delta.Get("thinking").String())}, nil), true, nil
		case "input_json_delta":
			return t.chunk(&completion.Delta{ToolCalls: []completion.ToolCallDelta{{
				Index:    ev.Get("index").Int(),
				Function: &completion.FunctionDelta{Arguments: delta.Get("partial_json").String()},
			}}}, nil), true, nil
		}
		return completion.Chunk{}, false, nil

	case "message_delta":
		if u := ev.Get("usage.output_tokens"); u.Exists() {
			t.hasUsage = true
			t.outputTokens = u.Int()
		}
		stop := ev.Get("delta.stop_reason").String()
		if stop == "" {
			return completion.Chunk{}, false, nil
		}
		finish := FinishReason(stop)
		return t.chunk(&completion.Delta{}, &finish), true, nil

	case "message_stop":
		if !t.hasUsage {
			return completion.Chunk{}, false, nil
		}
		return completion.Chunk{
			ID:      t.id,
			Model:   t.model,
			Choices: []completion.ChunkChoice{},
			Usage: &completion.Usage{
				PromptTokens:     t.inputTokens,
				CompletionTokens: t.outputTokens,
				TotalTokens:      t.inputTokens + t.outputTokens,
			},
		}, true, nil

	case "error":
		return completion.Chunk{}, false, fmt.Errorf("anthropic stream error: %s", ev.Get("error.message").String())
	}
	return completion.Chunk{}, false, nil
}

func (t *translator) chunk(delta *completion.Delta, finish *string) completion.Chunk {
	return completion.Chunk{
		ID:      t.id,
		Model:   t.model,
		Choices: []completion.ChunkChoice{{Delta: delta, FinishReason: finish}},
	}
}
