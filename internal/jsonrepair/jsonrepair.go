// Package jsonrepair decodes JSON objects that may be truncated or slightly
// malformed, as tool call arguments often are when a model stream is cut at
// an arbitrary byte.
//
// Decoding follows a fixed ladder: strict decode, then structural repair,
// then an empty object. Repair closes unterminated strings and brackets,
// drops trailing commas, drops a trailing member whose value never arrived,
// completes truncated true/false/null literals and quotes bare words. It
// never invents values: `{"a":` repairs to `{}`, not `{"a":null}`.
package jsonrepair

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Outcome reports which rung of the ladder produced the result.
type Outcome int

const (
	// Strict means the input was valid JSON.
	Strict Outcome = iota
	// Repaired means the input needed structural repair.
	Repaired
	// Failed means nothing usable was recovered; the result is empty.
	Failed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Strict:
		return "strict"
	case Repaired:
		return "repaired"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decode returns the JSON object encoded in s. The returned map is never nil.
func Decode(s string) (map[string]any, Outcome) {
	return decode(s, true)
}

func decode(s string, unwrap bool) (map[string]any, Outcome) {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}, Failed
	}
	if gjson.Valid(s) {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			switch t := v.(type) {
			case map[string]any:
				return t, Strict
			case string:
				// double encoded arguments: "{\"a\":1}"
				if unwrap {
					if m, o := decode(t, false); o != Failed {
						return m, Repaired
					}
				}
			}
			return map[string]any{}, Failed
		}
	}

	repaired, ok := Repair(s)
	if !ok {
		return map[string]any{}, Failed
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(repaired), &m); err != nil || m == nil {
		return map[string]any{}, Failed
	}
	return m, Repaired
}

// Repair rewrites s into syntactically valid JSON. The second result is
// false when no JSON object or array could be located in s.
func Repair(s string) (string, bool) {
	s = trimFences(s)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	p := &parser{src: s, pos: start}
	out, ok := p.value(0)
	if !ok {
		return "", false
	}
	return out, true
}

// trimFences strips a surrounding markdown code fence.
func trimFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "```")
	}
	t = strings.TrimSpace(t)
	return strings.TrimSuffix(t, "```")
}
