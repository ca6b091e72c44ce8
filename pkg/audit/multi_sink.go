package audit

import (
	"context"
)

// MultiSink fans each entry out to several sinks, e.g. a database sink for
// compliance queries plus a file sink as the local fallback channel. A
// failure in one sink does not stop delivery to the others; the first error
// is returned.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append delivers the entry to every sink.
func (m *MultiSink) Append(ctx context.Context, entry *Entry) error {
	stampID(entry)
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink, returning the first error.
func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
