// Package dump reads the line-oriented output of the database dump utility.
package dump

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	headerEnd = "HEADER=END"
	dataEnd   = "DATA=END"
)

// Pair is one record as emitted by the dump utility.
type Pair struct {
	Key   string
	Value string
}

type waiter interface {
	wait() error
}

// Stream yields key/value pairs from dump output. It is single-consumer.
type Stream struct {
	ctx     context.Context
	reader  *bufio.Reader
	closer  io.Closer
	header  map[string]string
	inData  bool
	done    bool
	records int
}

// NewStream wraps dump output. closer, when set, is invoked by Close.
func NewStream(ctx context.Context, r io.Reader, closer io.Closer) *Stream {
	return &Stream{
		ctx:    ctx,
		reader: bufio.NewReaderSize(r, 1<<20),
		closer: closer,
		header: map[string]string{},
	}
}

// Header returns key=value lines seen before the header end sentinel.
func (s *Stream) Header() map[string]string { return s.header }

// Records returns the number of pairs produced so far.
func (s *Stream) Records() int { return s.records }

// Next returns the next pair, io.EOF at end of data, or the context error.
// A key without a following value at end of stream is dropped.
func (s *Stream) Next() (Pair, error) {
	if err := s.ctx.Err(); err != nil {
		return Pair{}, err
	}
	if s.done {
		return Pair{}, io.EOF
	}
	var key string
	hasKey := false
	for {
		line, err := s.readLine()
		if err != nil {
			s.done = true
			if err != io.EOF {
				return Pair{}, err
			}
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return Pair{}, ctxErr
			}
			if w, ok := s.closer.(waiter); ok && !s.inData {
				if waitErr := w.wait(); waitErr != nil {
					return Pair{}, waitErr
				}
			}
			return Pair{}, io.EOF
		}
		if !s.inData {
			if line == headerEnd {
				s.inData = true
			} else if k, v, ok := strings.Cut(line, "="); ok {
				s.header[k] = v
			}
			continue
		}
		if line == dataEnd {
			s.done = true
			return Pair{}, io.EOF
		}
		if !hasKey {
			key, hasKey = line, true
			continue
		}
		s.records++
		return Pair{Key: key, Value: line}, nil
	}
}

func (s *Stream) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		if err == io.EOF || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", io.EOF
		}
		return "", errors.Wrap(err, "dump: read failed")
	}
	return strings.TrimSpace(line), nil
}

// Close releases the stream and terminates the producing process.
func (s *Stream) Close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
