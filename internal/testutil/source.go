package testutil

import (
	"context"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/model"
)

// ScriptedSource is a completion.Source replaying canned results. Requests
// are recorded for assertions.
type ScriptedSource struct {
	Completion  *completion.Completion
	CompleteErr error

	Chunks    []completion.Chunk
	StreamErr error // returned when opening the stream
	MidErr    error // reported by the stream after all chunks
	Panic     any   // raised by both methods when set

	Requests []model.Request
	streams  []*completion.SliceStream
}

// Complete implements completion.Source.
func (s *ScriptedSource) Complete(_ context.Context, req model.Request) (*completion.Completion, error) {
	s.Requests = append(s.Requests, req)
	if s.Panic != nil {
		panic(s.Panic)
	}
	if s.CompleteErr != nil {
		return nil, s.CompleteErr
	}
	return s.Completion, nil
}

// Stream implements completion.Source.
func (s *ScriptedSource) Stream(_ context.Context, req model.Request) (completion.ChunkStream, error) {
	s.Requests = append(s.Requests, req)
	if s.Panic != nil {
		panic(s.Panic)
	}
	if s.StreamErr != nil {
		return nil, s.StreamErr
	}
	st := completion.NewSliceStream(s.Chunks...).FailWith(s.MidErr)
	s.streams = append(s.streams, st)
	return st, nil
}

// AllStreamsClosed reports whether every stream handed out was closed.
func (s *ScriptedSource) AllStreamsClosed() bool {
	for _, st := range s.streams {
		if !st.Closed() {
			return false
		}
	}
	return true
}
