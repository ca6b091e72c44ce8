package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/warden/pkg/observability"
)

// captureSink records every appended entry.
type captureSink struct {
	mu      sync.Mutex
	entries []*Entry
	closed  bool
}

func (c *captureSink) Append(_ context.Context, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.ID
	}
	return out
}

// gatedSink blocks inside Append until released, signalling entry.
type gatedSink struct {
	captureSink
	entered chan struct{}
	release chan struct{}
}

func newGatedSink() *gatedSink {
	return &gatedSink{
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (g *gatedSink) Append(ctx context.Context, entry *Entry) error {
	g.entered <- struct{}{}
	<-g.release
	return g.captureSink.Append(ctx, entry)
}

func entry(id string) *Entry {
	return &Entry{ID: id, Timestamp: time.Now(), PrincipalID: 1, WorkspaceID: 1, ResourceCode: "hr.employees", Action: "view", Outcome: OutcomeAllow, Reason: "explicit_grant"}
}

func TestAsyncSinkDeliversInOrder(t *testing.T) {
	next := &captureSink{}
	sink := NewAsyncSink(next, AsyncConfig{QueueSize: 16}, nil, nil)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, sink.Append(context.Background(), entry(id)))
	}
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{"a", "b", "c"}, next.ids())
	assert.True(t, next.closed, "close propagates downstream")
}

func TestAsyncSinkStampsMissingIDs(t *testing.T) {
	next := &captureSink{}
	sink := NewAsyncSink(next, AsyncConfig{QueueSize: 4}, nil, nil)

	e := entry("")
	require.NoError(t, sink.Append(context.Background(), e))
	require.NoError(t, sink.Close())

	require.Len(t, next.entries, 1)
	assert.NotEmpty(t, next.entries[0].ID)
}

func TestAsyncSinkAppendAfterClose(t *testing.T) {
	sink := NewAsyncSink(&captureSink{}, AsyncConfig{QueueSize: 4}, nil, nil)
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.Append(context.Background(), entry("late")), ErrSinkClosed)
}

func TestAsyncSinkCountsEntryStrandedByClose(t *testing.T) {
	// Models the narrow race where Append passes the closed check but Close
	// finishes its final flush before the entry lands in the queue: the sink
	// is built with the drain already gone, so the send succeeds yet the
	// entry can never be written.
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	sink := &AsyncSink{
		next:    &captureSink{},
		cfg:     DefaultAsyncConfig(),
		ch:      make(chan *Entry, 4),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
		metrics: metrics,
	}
	close(sink.drained)

	err := sink.Append(context.Background(), entry("stranded"))
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuditDroppedTotal),
		"a stranded entry counts as dropped")
}

func TestAsyncSinkDropOldestUnderPressure(t *testing.T) {
	gated := newGatedSink()
	sink := NewAsyncSink(gated, AsyncConfig{QueueSize: 2, Policy: OverflowDropOldest}, nil, nil)
	ctx := context.Background()

	// First entry is picked up by the drain worker and blocks downstream.
	require.NoError(t, sink.Append(ctx, entry("a")))
	<-gated.entered

	// Fill the queue, then overflow it. The oldest queued entry ("b") is
	// evicted to admit "d"; the producer never blocks.
	require.NoError(t, sink.Append(ctx, entry("b")))
	require.NoError(t, sink.Append(ctx, entry("c")))
	done := make(chan struct{})
	go func() {
		sink.Append(ctx, entry("d"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drop-oldest append blocked")
	}

	close(gated.release)
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{"a", "c", "d"}, gated.ids())
}

func TestAsyncSinkBlockPolicyTimesOut(t *testing.T) {
	gated := newGatedSink()
	sink := NewAsyncSink(gated, AsyncConfig{
		QueueSize:    1,
		Policy:       OverflowBlock,
		BlockTimeout: 20 * time.Millisecond,
	}, nil, nil)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, entry("a")))
	<-gated.entered
	require.NoError(t, sink.Append(ctx, entry("b")))

	// Queue is full and downstream is stuck: this append waits out the
	// timeout and the entry is dropped without an error.
	start := time.Now()
	require.NoError(t, sink.Append(ctx, entry("c")))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	close(gated.release)
	require.NoError(t, sink.Close())
	assert.Equal(t, []string{"a", "b"}, gated.ids())
}

func TestAsyncSinkCloseDrainsQueue(t *testing.T) {
	gated := newGatedSink()
	sink := NewAsyncSink(gated, AsyncConfig{QueueSize: 8}, nil, nil)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, entry("a")))
	<-gated.entered
	require.NoError(t, sink.Append(ctx, entry("b")))
	require.NoError(t, sink.Append(ctx, entry("c")))

	close(gated.release)
	require.NoError(t, sink.Close())
	assert.Equal(t, []string{"a", "b", "c"}, gated.ids(), "queued entries are flushed on close")
}
