package audit

import (
	"context"

	"github.com/google/uuid"
)

// Sink receives resolved-decision entries. The resolver treats Append as
// fire-and-forget: implementations may batch, stream or persist entries as
// they see fit, but an Append failure must never invalidate the decision it
// records.
type Sink interface {
	// Append records one entry. Implementations assign Entry.ID when the
	// caller left it empty.
	Append(ctx context.Context, entry *Entry) error

	// Close flushes any buffered entries and releases resources.
	Close() error
}

// NopSink discards every entry. Used when auditing is disabled and as the
// resolver's default.
type NopSink struct{}

// NewNopSink creates a sink that discards everything.
func NewNopSink() *NopSink { return &NopSink{} }

func (*NopSink) Append(context.Context, *Entry) error { return nil }
func (*NopSink) Close() error                         { return nil }

// stampID fills in the entry id when the producer left it empty.
func stampID(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
}
