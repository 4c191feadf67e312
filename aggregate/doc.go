// Package aggregate turns raw chat completions into model.Response values.
//
// Two entry paths share one output contract:
//
//   - Parse maps a complete (non-streaming) completion object.
//   - Aggregator / Consume fold an ordered chunk stream, one chunk at a time.
//
// Both reconstruct tool calls through the same assembler: fragments keyed by
// the source supplied index, decoded once after the last fragment arrived,
// with a lenient JSON fallback (see DecodeArguments). An irrecoverable
// argument string degrades to an empty map; the call itself is never
// dropped.
//
// Values built here live for exactly one call; nothing is shared across calls.
package aggregate
