// Package engine is the error boundary of chatnorm.
//
// Run drives one call against a completion.Source end to end: it opens the
// call in streaming or non-streaming mode, hands the raw output to the
// aggregate package and captures every failure on the way (transport
// errors, protocol errors, stream aborts, cancellation, even panics raised
// by the source) into an explicit Result value.
//
// # Result contract
//
// A Result is either a success carrying the normalized model.Response, or an
// error carrying the failure. Result.Normalized collapses both variants into
// the single caller facing shape:
//
//   - success: the aggregated response, unchanged
//   - error: Content "Error: <diagnostic>", FinishReason "error", no tool calls
//
// Normalize is the convenience entry point for callers that only want the
// response. It never panics and never returns an error.
//
// # Observability
//
// Every call gets a correlation id (a random UUID) that is attached to all
// log records of that call. A single summary record (provider, model, mode,
// duration, usage, finish reason) is emitted through logging.LogLLMCall when
// the call ends.
//
// # Cancellation
//
// A call whose context is cancelled, or whose stream terminates abnormally,
// produces an error Result. Partially aggregated output is discarded.
package engine
