// Package openai provides a completion.Source and model.Provider over the
// OpenAI Chat Completions API (including streaming + function/tool calling)
// using the official SDK. Any OpenAI-compatible server works through
// option.WithBaseURL.
//
// Responses are decoded from the raw JSON the SDK received rather than from
// its typed accessors, so that vendor extensions such as reasoning_content,
// null content and structured tool arguments reach the aggregation engine
// unchanged.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/engine"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
)

// Options configure the OpenAI provider.
type Options struct {
	// Model used when a request names none.
	Model string

	// MaxTokens is the default completion budget. Values below 1 are raised to 1.
	MaxTokens int64

	// Temperature used when a request sets none.
	Temperature float64

	// ReasoningEffort is forwarded as reasoning_effort when non-empty.
	ReasoningEffort string

	// Stream makes Chat use streaming mode for every request.
	Stream bool

	// Timeout bounds one Chat call when positive.
	Timeout time.Duration

	// Logger receives per call summaries. Defaults to NoOp logger if nil.
	Logger logging.Logger

	// RequestOptions are passed to openai.NewClient by NewProvider.
	RequestOptions []option.RequestOption
}

// Provider wraps the OpenAI Chat Completions API behind completion.Source
// and model.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

// NewProvider creates a provider with a client built from opts.RequestOptions.
// Without options the SDK reads OPENAI_API_KEY and OPENAI_BASE_URL.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	// Retries are left to the caller.
	reqOpts := append([]option.RequestOption{option.WithMaxRetries(0)}, opts.RequestOptions...)
	client := openai.NewClient(reqOpts...)
	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates a provider from an existing client.
func NewProviderFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       openai.ChatModelGPT4oMini,
		MaxTokens:   4096,
		Temperature: 0.7,
		Logger:      logging.NoOpLogger{},
	}
}

// Complete implements completion.Source.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*completion.Completion, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	return completion.DecodeCompletion([]byte(resp.RawJSON()))
}

// Stream implements completion.Source. Usage reporting is always requested.
func (p *Provider) Stream(ctx context.Context, req model.Request) (completion.ChunkStream, error) {
	params := p.buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai streaming error: %w", err)
	}
	return &chunkStream{stream: stream}, nil
}

// Chat implements model.Provider.
func (p *Provider) Chat(ctx context.Context, req model.Request) model.Response {
	req = p.resolve(req)
	return engine.Normalize(ctx, p, req, func(o *engine.Options) {
		o.Logger = p.opts.Logger
		o.Provider = "openai"
		o.Timeout = p.opts.Timeout
	})
}

func (p *Provider) resolve(req model.Request) model.Request {
	req.Stream = req.Stream || p.opts.Stream
	if req.ReasoningEffort == "" {
		req.ReasoningEffort = p.opts.ReasoningEffort
	}
	return req.Resolve(p.opts.Model, p.opts.MaxTokens, p.opts.Temperature)
}

// DefaultModel implements model.Provider.
func (p *Provider) DefaultModel() string { return p.opts.Model }

// Info returns metadata describing this OpenAI provider implementation.
func (p *Provider) Info() model.Info {
	return model.Info{
		Name:          p.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (p *Provider) buildParams(req model.Request) openai.ChatCompletionNewParams {
	req = p.resolve(req)
	params := openai.ChatCompletionNewParams{
		Messages:    buildMessages(req.Messages),
		Model:       req.Model,
		MaxTokens:   openai.Int(req.MaxTokens),
		Temperature: openai.Float(*req.Temperature),
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	return params
}

// buildMessages converts the conversation into OpenAI chat messages after
// replacing empty content.
func buildMessages(msgs []model.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range model.SanitizeMessages(msgs) {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCallParams(m.ToolCalls),
			}
			if m.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case "tool":
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

func toolCallParams(calls []model.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	out := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
	for i, tc := range calls {
		out[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return out
}

// chunkStream adapts the SDK event stream to completion.ChunkStream.
type chunkStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	cur    completion.Chunk
	err    error
}

func (s *chunkStream) Next() bool {
	if s.err != nil || !s.stream.Next() {
		return false
	}
	ck, err := completion.DecodeChunk([]byte(s.stream.Current().RawJSON()))
	if err != nil {
		s.err = err
		return false
	}
	s.cur = ck
	return true
}

func (s *chunkStream) Current() completion.Chunk { return s.cur }

func (s *chunkStream) Err() error {
	if s.err != nil {
		return s.err
	}
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	return nil
}

func (s *chunkStream) Close() error { return s.stream.Close() }

// IsAPIError reports whether err carries an HTTP error returned by the API.
func IsAPIError(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr)
}
