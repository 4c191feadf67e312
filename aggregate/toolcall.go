package aggregate

import (
	"slices"
	"strings"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/internal/jsonrepair"
	"github.com/hupe1980/chatnorm/logging"
	"github.com/hupe1980/chatnorm/model"
)

// DecodeArguments decodes an accumulated tool call argument string into a
// map. The empty string is a call without arguments. Malformed or truncated
// JSON is repaired when possible and yields an empty map otherwise. The
// result is never nil.
func DecodeArguments(s string) map[string]any {
	return decodeArguments(s, logging.NoOpLogger{}, "", "")
}

func decodeArguments(s string, log logging.Logger, id, name string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	args, outcome := jsonrepair.Decode(s)
	switch outcome {
	case jsonrepair.Repaired:
		log.Debug("tool call arguments repaired", "tool_call_id", id, "tool", name, "length", len(s))
	case jsonrepair.Failed:
		log.Warn("tool call arguments unrecoverable, using empty arguments", "tool_call_id", id, "tool", name, "length", len(s))
	}
	return args
}

// fragment is the accumulating state of one streamed tool call.
type fragment struct {
	id   string
	name string
	args strings.Builder
}

// toolCallSet holds fragments keyed by the index the source assigned. The
// indices need not be contiguous or start at zero.
type toolCallSet struct {
	byIndex map[int64]*fragment
}

func newToolCallSet() *toolCallSet {
	return &toolCallSet{byIndex: map[int64]*fragment{}}
}

// add merges one delta: id and name are overwritten when supplied, argument
// text is appended in arrival order.
func (s *toolCallSet) add(d completion.ToolCallDelta) {
	f, ok := s.byIndex[d.Index]
	if !ok {
		f = &fragment{}
		s.byIndex[d.Index] = f
	}
	if d.ID != "" {
		f.id = d.ID
	}
	if d.Function == nil {
		return
	}
	if d.Function.Name != "" {
		f.name = d.Function.Name
	}
	if d.Function.Arguments != "" {
		f.args.WriteString(d.Function.Arguments)
	}
}

func (s *toolCallSet) len() int { return len(s.byIndex) }

// finalize decodes every fragment in ascending index order.
func (s *toolCallSet) finalize(log logging.Logger) []model.ToolCallRequest {
	indices := make([]int64, 0, len(s.byIndex))
	for idx := range s.byIndex {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	calls := make([]model.ToolCallRequest, 0, len(indices))
	for _, idx := range indices {
		f := s.byIndex[idx]
		calls = append(calls, model.ToolCallRequest{
			ID:        f.id,
			Name:      f.name,
			Arguments: decodeArguments(f.args.String(), log, f.id, f.name),
		})
	}
	return calls
}
