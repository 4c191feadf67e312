package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/model"
)

// Aggregator folds chunks, in arrival order, into one Response. It is not
// safe for concurrent use; one Aggregator serves exactly one stream.
type Aggregator struct {
	opts         Options
	content      strings.Builder
	reasoning    strings.Builder
	calls        *toolCallSet
	finishReason string
	usage        *model.Usage
	chunks       int
}

// NewAggregator returns an empty Aggregator.
func NewAggregator(optFns ...func(o *Options)) *Aggregator {
	return &Aggregator{opts: newOptions(optFns), calls: newToolCallSet()}
}

// Add applies one chunk.
//
// A chunk without choices is either the terminal usage report (captured,
// the last report wins) or a keep-alive (ignored). Otherwise only the first
// choice is inspected: a non-empty finish reason replaces the previous one,
// content and reasoning text are appended, tool call fragments are merged by
// index. A null delta contributes nothing beyond its finish reason.
func (a *Aggregator) Add(ck completion.Chunk) {
	a.chunks++
	if len(ck.Choices) == 0 {
		if ck.Usage != nil {
			a.usage = toUsage(ck.Usage)
		}
		return
	}

	ch := ck.Choices[0]
	if ch.FinishReason != nil && *ch.FinishReason != "" {
		a.finishReason = *ch.FinishReason
	}

	d := ch.Delta
	if d == nil {
		return
	}
	if d.Content != nil {
		a.content.WriteString(*d.Content)
	}
	if d.ReasoningContent != nil {
		a.reasoning.WriteString(*d.ReasoningContent)
	}
	for _, tc := range d.ToolCalls {
		a.calls.add(tc)
	}
}

// Response finalizes the aggregation. Empty text buffers become nil, tool
// calls are decoded in ascending index order and a missing finish reason
// defaults to "stop".
func (a *Aggregator) Response() model.Response {
	resp := model.Response{
		ToolCalls:    a.calls.finalize(a.opts.Logger),
		FinishReason: a.finishReason,
		Usage:        a.usage,
	}
	if a.content.Len() > 0 {
		resp.Content = model.String(a.content.String())
	}
	if a.reasoning.Len() > 0 {
		resp.ReasoningContent = model.String(a.reasoning.String())
	}
	if resp.FinishReason == "" {
		resp.FinishReason = model.FinishReasonStop
	}
	return resp
}

// Chunks returns the number of chunks applied so far.
func (a *Aggregator) Chunks() int { return a.chunks }

// Consume drains stream and returns the aggregated Response. The stream is
// always closed.
//
// A stream that ends with an error, or a context cancelled before the
// stream is exhausted, yields that error and no response: partial output is
// discarded rather than returned as if it were complete.
func Consume(ctx context.Context, stream completion.ChunkStream, optFns ...func(o *Options)) (model.Response, error) {
	defer func() { _ = stream.Close() }()

	agg := NewAggregator(optFns...)
	for {
		if err := ctx.Err(); err != nil {
			return model.Response{}, agg.abort(err)
		}
		if !stream.Next() {
			break
		}
		agg.Add(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return model.Response{}, agg.abort(err)
	}
	return agg.Response(), nil
}

// abort logs the discarded partial state and wraps err.
func (a *Aggregator) abort(err error) error {
	a.opts.Logger.Debug("discarding partial stream aggregation",
		"chunks", a.chunks,
		"content_length", a.content.Len(),
		"reasoning_length", a.reasoning.Len(),
		"tool_calls", a.calls.len(),
		"error", err.Error(),
	)
	return fmt.Errorf("stream aborted after %d chunks: %w", a.chunks, err)
}
