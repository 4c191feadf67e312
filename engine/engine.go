package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/chatnorm/aggregate"
	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
)

var (
	// ErrNoSource is reported when Run is called without a completion source.
	ErrNoSource = errors.New("no completion source configured")

	// ErrNilStream is reported when a source opens a stream without error but returns nil.
	ErrNilStream = errors.New("completion source returned no stream")

	// ErrPanic wraps a panic recovered from the completion source.
	ErrPanic = errors.New("completion source panicked")
)

// Options configures a single Run.
//
// Example:
//
//	res := engine.Run(ctx, src, req, func(o *engine.Options) {
//	    o.Logger = logger
//	    o.Provider = "openai"
//	    o.Timeout = 30 * time.Second
//	})
type Options struct {
	// Logger receives diagnostics and the per-call summary.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger

	// Provider names the source in log records.
	Provider string

	// Timeout bounds the whole call (including stream consumption) when positive.
	Timeout time.Duration

	// OnComplete, when set, observes every Result before Run returns.
	OnComplete func(Result)
}

// Result is the outcome of one call: exactly one of Response (on success)
// or Err (on failure) is meaningful.
type Result struct {
	CallID   string
	Stream   bool
	Response model.Response
	Err      error
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Normalized returns the caller facing response: the aggregated response on
// success, the diagnostic error response otherwise.
func (r Result) Normalized() model.Response {
	if r.Err != nil {
		return ErrorResponse(r.Err)
	}
	return r.Response
}

// ErrorResponse renders err as a terminal normalized response.
func ErrorResponse(err error) model.Response {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return model.Response{
		Content:      model.String("Error: " + msg),
		ToolCalls:    []model.ToolCallRequest{},
		FinishReason: model.FinishReasonError,
	}
}

// Run performs req against src and captures the outcome. It never panics:
// failures of any kind end up in Result.Err.
func Run(ctx context.Context, src completion.Source, req model.Request, optFns ...func(o *Options)) (res Result) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	res = Result{CallID: uuid.NewString(), Stream: req.Stream}
	log := callLogger(opts.Logger, res.CallID)
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res.Response = model.Response{}
			res.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		res.Duration = time.Since(start)
		report(log, opts, res, req.Model)
	}()

	res.Response, res.Err = call(ctx, src, req, log)
	if res.Err != nil {
		res.Response = model.Response{}
	}
	return res
}

// report emits the call summary and invokes OnComplete. Panics raised by
// the logger or the hook are swallowed; the result is already settled.
func report(log logging.Logger, opts Options, res Result, modelName string) {
	guard(func() { logging.LogLLMCall(log, summary(res, opts.Provider, modelName)) })
	if opts.OnComplete != nil {
		guard(func() { opts.OnComplete(res) })
	}
}

func guard(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// Normalize runs req and returns the caller facing response.
func Normalize(ctx context.Context, src completion.Source, req model.Request, optFns ...func(o *Options)) model.Response {
	return Run(ctx, src, req, optFns...).Normalized()
}

func call(ctx context.Context, src completion.Source, req model.Request, log logging.Logger) (model.Response, error) {
	if src == nil {
		return model.Response{}, ErrNoSource
	}
	withLog := aggregate.WithLogger(log)

	if req.Stream {
		stream, err := src.Stream(ctx, req)
		if err != nil {
			return model.Response{}, err
		}
		if stream == nil {
			return model.Response{}, ErrNilStream
		}
		return aggregate.Consume(ctx, stream, withLog)
	}

	c, err := src.Complete(ctx, req)
	if err != nil {
		return model.Response{}, err
	}
	return aggregate.Parse(c, withLog)
}

func callLogger(l logging.Logger, callID string) logging.Logger {
	if sl, ok := l.(*logging.StructuredLogger); ok {
		return sl.WithComponent("engine").WithCall(callID)
	}
	return l
}

func summary(res Result, provider, modelName string) logging.LLMCall {
	c := logging.LLMCall{
		CallID:       res.CallID,
		Provider:     provider,
		Model:        modelName,
		Stream:       res.Stream,
		Duration:     res.Duration,
		FinishReason: res.Response.FinishReason,
		ToolCalls:    len(res.Response.ToolCalls),
		Err:          res.Err,
	}
	if res.Err != nil {
		c.FinishReason = model.FinishReasonError
	}
	if u := res.Response.Usage; u != nil {
		c.HasUsage = true
		c.PromptTokens = u.PromptTokens
		c.CompletionTokens = u.CompletionTokens
		c.TotalTokens = u.TotalTokens
	}
	return c
}
