// Package scan implements the retrieval strategies over a dump stream.
package scan

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/viant/odbview/dump"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/record"
)

// Opener starts a fresh dump stream bound to ctx.
type Opener func(ctx context.Context) (*dump.Stream, error)

// Timeouts are the ceilings after which a scan stops and returns what it has.
type Timeouts struct {
	Page   time.Duration
	Filter time.Duration
	Full   time.Duration
}

// DefaultTimeouts returns the default ceilings.
func DefaultTimeouts() Timeouts {
	return Timeouts{Page: 30 * time.Second, Filter: 2 * time.Minute, Full: 10 * time.Minute}
}

var errCeiling = errors.New("scan: ceiling reached")

// Scanner runs retrieval strategies. Each call opens its own stream.
type Scanner struct {
	open     Opener
	dict     *field.Dictionary
	timeouts Timeouts
}

// New creates a Scanner.
func New(open Opener, dict *field.Dictionary, timeouts Timeouts) *Scanner {
	if dict == nil {
		dict = field.NewDictionary()
	}
	return &Scanner{open: open, dict: dict, timeouts: timeouts}
}

// Dictionary returns the field dictionary used for detail decoding.
func (s *Scanner) Dictionary() *field.Dictionary { return s.dict }

// visitFn handles one pair; returning false stops the scan.
type visitFn func(index int, pair dump.Pair) (bool, error)

// run drives one stream. An elapsed ceiling ends the scan with timedOut set;
// cancellation of ctx is returned as an error.
func (s *Scanner) run(ctx context.Context, ceiling time.Duration, visit visitFn) (timedOut bool, err error) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if ceiling > 0 {
		runCtx, cancel = context.WithTimeoutCause(ctx, ceiling, errCeiling)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	stream, err := s.open(runCtx)
	if err != nil {
		return false, err
	}
	defer stream.Close()
	for index := 0; ; index++ {
		pair, err := stream.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			if ctx.Err() == nil && errors.Is(context.Cause(runCtx), errCeiling) {
				return true, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			return false, err
		}
		more, err := visit(index, pair)
		if err != nil {
			return false, err
		}
		if !more {
			return false, nil
		}
	}
}

// decodePair converts a dump pair into an id and payload bytes. Malformed
// hex yields an empty payload so the record still counts.
func decodePair(pair dump.Pair) (oid.ID, []byte) {
	id, _ := oid.FromKeyHex(pair.Key)
	value, err := record.DecodeHex(pair.Value)
	if err != nil {
		return id, nil
	}
	return id, value
}

// Summaries runs a full pass, calling visit with every record summary.
func (s *Scanner) Summaries(ctx context.Context, visit func(index int, id oid.ID, summary record.Summary) error) (timedOut bool, err error) {
	return s.run(ctx, s.timeouts.Full, func(index int, pair dump.Pair) (bool, error) {
		id, value := decodePair(pair)
		if err := visit(index, id, record.ParseSummary(value)); err != nil {
			return false, err
		}
		return true, nil
	})
}
