package compat

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/chatnorm/completion"
	"github.com/hupe1980/chatnorm/logging"
)

const maxLineSize = 4 << 20

// sseStream reads "data:" lines of a chat completions event stream and
// exposes them as completion.ChunkStream. "data: [DONE]" ends the stream;
// a clean EOF without it is accepted as well.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	log     logging.Logger
	cur     completion.Chunk
	err     error
	done    bool
	closed  bool
}

func newSSEStream(body io.ReadCloser, log logging.Logger) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &sseStream{body: body, scanner: scanner, log: log}
}

func (s *sseStream) Next() bool {
	if s.done || s.err != nil || s.closed {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Comments (keep-alive pings), event boundaries and non-data fields.
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.done = true
			return false
		}
		if e, ok := errorField([]byte(data)); ok {
			s.err = fmt.Errorf("compat stream error: %s", errorMessage(e))
			return false
		}

		ck, err := completion.DecodeChunk([]byte(data))
		if err != nil {
			s.log.Warn("malformed stream frame", "error", err, "frame_bytes", len(data))
			s.err = fmt.Errorf("compat: decode stream frame: %w", err)
			return false
		}
		s.cur = ck
		return true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("compat: read stream: %w", err)
	}
	return false
}

func (s *sseStream) Current() completion.Chunk { return s.cur }

func (s *sseStream) Err() error { return s.err }

func (s *sseStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
