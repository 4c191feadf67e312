package completion

import (
	"context"

	"github.com/hupe1980/chatnorm/model"
)

// Source delivers raw completions for a request. Implementations own the
// transport, authentication and request composition; they report every
// failure as an error and never normalize anything themselves.
type Source interface {
	// Complete performs one non-streaming call.
	Complete(ctx context.Context, req model.Request) (*Completion, error)

	// Stream opens a streaming call. The returned stream is finite: it ends
	// when Next returns false, after which Err reports abnormal termination.
	Stream(ctx context.Context, req model.Request) (ChunkStream, error)
}

// ChunkStream is a lazy, ordered sequence of chunks. It mirrors the shape of
// the SDK ssestream.Stream so adapters stay thin.
type ChunkStream interface {
	Next() bool
	Current() Chunk
	Err() error
	Close() error
}

// SliceStream replays a fixed list of chunks, optionally ending with an error.
type SliceStream struct {
	chunks []Chunk
	pos    int
	err    error
	closed bool
}

// NewSliceStream returns a stream over chunks.
func NewSliceStream(chunks ...Chunk) *SliceStream {
	return &SliceStream{chunks: chunks, pos: -1}
}

// FailWith makes the stream report err once all chunks are consumed.
func (s *SliceStream) FailWith(err error) *SliceStream {
	s.err = err
	return s
}

// Next implements ChunkStream.
func (s *SliceStream) Next() bool {
	if s.closed || s.pos+1 >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}

// Current implements ChunkStream.
func (s *SliceStream) Current() Chunk {
	if s.pos < 0 || s.pos >= len(s.chunks) {
		return Chunk{}
	}
	return s.chunks[s.pos]
}

// Err implements ChunkStream.
func (s *SliceStream) Err() error {
	if s.pos+1 < len(s.chunks) {
		return nil
	}
	return s.err
}

// Close implements ChunkStream.
func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool { return s.closed }
