package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
)

// ErrNoChoices is returned by Parse for a completion without any choice.
var ErrNoChoices = errors.New("completion has no choices")

// Options configure parsing and aggregation.
type Options struct {
	Logger logging.Logger
}

// WithLogger sets the logger used for argument repair and stream diagnostics.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Parse maps a complete completion object onto a Response. Only the first
// choice is used. The only error is ErrNoChoices.
func Parse(c *completion.Completion, optFns ...func(o *Options)) (model.Response, error) {
	if c == nil || len(c.Choices) == 0 {
		return model.Response{}, ErrNoChoices
	}
	opts := newOptions(optFns)

	ch := c.Choices[0]
	resp := model.Response{
		Content:          ch.Message.Content,
		ToolCalls:        make([]model.ToolCallRequest, 0, len(ch.Message.ToolCalls)),
		FinishReason:     ch.FinishReason,
		Usage:            toUsage(c.Usage),
		ReasoningContent: nonEmpty(ch.Message.ReasoningContent),
	}
	for _, tc := range ch.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, model.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: structuredArguments(tc.Function.Arguments, opts.Logger, tc.ID, tc.Function.Name),
		})
	}
	if resp.FinishReason == "" {
		resp.FinishReason = model.FinishReasonStop
	}
	return resp, nil
}

// structuredArguments accepts arguments either as a JSON encoded string (the
// OpenAI wire format) or as an already structured JSON object.
func structuredArguments(raw json.RawMessage, log logging.Logger, id, name string) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decodeArguments(string(raw), log, id, name)
		}
		return decodeArguments(s, log, id, name)
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil && m != nil {
			return m
		}
		return decodeArguments(string(raw), log, id, name)
	default:
		log.Warn("tool call arguments are not an object, using empty arguments", "tool_call_id", id, "tool", name)
		return map[string]any{}
	}
}

func toUsage(u *completion.Usage) *model.Usage {
	if u == nil {
		return nil
	}
	return &model.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
