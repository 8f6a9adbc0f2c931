// Package eventlog appends structured records to a single sequential file.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blockedby/listingbot/internal/logger"
)

// ErrWrite wraps storage failures returned under the FailFast policy.
var ErrWrite = errors.New("eventlog: write failed")

// Policy decides what Append does when the store cannot be written.
type Policy int

const (
	// BestEffort logs and counts the failure, then reports success.
	BestEffort Policy = iota
	// FailFast returns the failure to the caller.
	FailFast
)

// ParsePolicy maps config values ("best_effort", "fail_fast") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "best_effort":
		return BestEffort, nil
	case "fail_fast":
		return FailFast, nil
	}
	return BestEffort, fmt.Errorf("unknown event log policy %q", s)
}

func (p Policy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "best_effort"
}

// Record is anything that can be appended. Its JSON form must carry a
// "kind" field; RecordKind returns the same value.
type Record interface {
	RecordKind() string
}

// Mirror receives every line after it reached the store.
type Mirror interface {
	Mirror(ctx context.Context, kind string, line []byte) error
}

// Writer serializes records as JSON lines. Appends are totally ordered by
// call sequence within a Writer.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	closer  io.Closer
	policy  Policy
	mirror  Mirror
	log     *logger.Logger
	written atomic.Int64
	dropped atomic.Int64
}

// Option configures a Writer.
type Option func(*Writer)

// WithPolicy sets the failure policy. Default is BestEffort.
func WithPolicy(p Policy) Option {
	return func(w *Writer) { w.policy = p }
}

// WithMirror forwards appended lines to m.
func WithMirror(m Mirror) Option {
	return func(w *Writer) { w.mirror = m }
}

// WithLogger sets the debug stream the content is echoed to.
func WithLogger(l *logger.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// New creates a writer on top of out.
func New(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out: out,
		log: logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open creates (or reuses) the file at path in append mode.
func Open(path string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	w := New(file, opts...)
	w.closer = file
	return w, nil
}

// Append writes one record as one line. Under BestEffort a storage failure
// is logged, counted in Dropped and nil is returned.
func (w *Writer) Append(ctx context.Context, rec Record) error {
	kind := rec.RecordKind()

	data, err := json.Marshal(rec)
	if err != nil {
		return w.fail(kind, fmt.Errorf("marshal %s record: %w", kind, err))
	}

	w.log.Debug().Str("kind", kind).RawJSON("record", data).Msg("event log append")

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')

	w.mu.Lock()
	_, err = w.out.Write(line)
	w.mu.Unlock()
	if err != nil {
		return w.fail(kind, err)
	}
	w.written.Add(1)

	if w.mirror != nil {
		if err := w.mirror.Mirror(ctx, kind, data); err != nil {
			w.log.Warn().Err(err).Str("kind", kind).Msg("event log mirror failed")
		}
	}

	return nil
}

func (w *Writer) fail(kind string, err error) error {
	w.dropped.Add(1)
	if w.policy == FailFast {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	w.log.Warn().Err(err).Str("kind", kind).Msg("event log append dropped")
	return nil
}

// Written returns the number of records that reached the store.
func (w *Writer) Written() int64 { return w.written.Load() }

// Dropped returns the number of records lost to failures.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Close closes the underlying file when the writer owns one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closer.Close()
}
