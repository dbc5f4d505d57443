// ABOUTME: Pull-source adapter over the stream reader
// ABOUTME: Exposes chunks as an io.Reader for decode engines
package stream

import "io"

// Source returns an io.Reader that drains chunks from r in order. It
// returns io.EOF once Next reports shutdown or the end of the source.
// The returned reader must be used by a single goroutine.
func (r *Reader) Source() io.Reader {
	return &chunkSource{reader: r}
}

type chunkSource struct {
	reader *Reader
	chunk  *Chunk
	offset int
	done   bool
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for s.chunk == nil || s.offset >= s.chunk.Size {
		if s.done {
			return 0, io.EOF
		}

		s.chunk = s.reader.Next()
		s.offset = 0

		if s.chunk == nil {
			s.done = true
			return 0, io.EOF
		}
	}

	n := copy(p, s.chunk.Data[s.offset:s.chunk.Size])
	s.offset += n
	return n, nil
}
