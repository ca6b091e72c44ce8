package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platinummonkey/warden/pkg/observability"
)

// OverflowPolicy says what a full audit queue does with new entries.
type OverflowPolicy string

const (
	// OverflowDropOldest evicts the oldest queued entry to admit the new
	// one. The resolver never waits.
	OverflowDropOldest OverflowPolicy = "drop_oldest"

	// OverflowBlock waits up to BlockTimeout for queue space, then drops
	// the new entry. Bounded backpressure without unbounded caller stalls.
	OverflowBlock OverflowPolicy = "block"
)

// ErrSinkClosed is returned by Append after Close.
var ErrSinkClosed = errors.New("audit sink closed")

// AsyncConfig configures the async queue.
type AsyncConfig struct {
	QueueSize    int
	Policy       OverflowPolicy
	BlockTimeout time.Duration

	// WriteTimeout bounds each downstream Append made by the drain worker.
	WriteTimeout time.Duration
}

// DefaultAsyncConfig returns the default queue configuration.
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		QueueSize:    4096,
		Policy:       OverflowDropOldest,
		BlockTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// AsyncSink decouples the resolver's hot path from audit persistence with a
// bounded in-memory queue and a single drain goroutine. Overflow is handled
// per the configured policy; drops are counted, and a downstream write
// failure is logged and dropped; it never propagates to a check.
type AsyncSink struct {
	next    Sink
	cfg     AsyncConfig
	ch      chan *Entry
	done    chan struct{}
	drained chan struct{}
	once    sync.Once
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAsyncSink wraps next with a bounded queue. logger and metrics may be nil.
func NewAsyncSink(next Sink, cfg AsyncConfig, logger *observability.Logger, metrics *observability.Metrics) *AsyncSink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultAsyncConfig().QueueSize
	}
	if cfg.Policy == "" {
		cfg.Policy = OverflowDropOldest
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultAsyncConfig().WriteTimeout
	}
	s := &AsyncSink{
		next:    next,
		cfg:     cfg,
		ch:      make(chan *Entry, cfg.QueueSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
	go s.drain()
	return s
}

// Append enqueues the entry without ever blocking longer than the overflow
// policy allows. Returns ErrSinkClosed after Close; a dropped entry is not
// an error for the caller.
func (s *AsyncSink) Append(_ context.Context, entry *Entry) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	stampID(entry)

	select {
	case s.ch <- entry:
		return s.sent(entry)
	default:
	}

	switch s.cfg.Policy {
	case OverflowBlock:
		select {
		case s.ch <- entry:
			return s.sent(entry)
		case <-time.After(s.cfg.BlockTimeout):
			s.drop(entry)
			return nil
		case <-s.done:
			return ErrSinkClosed
		}
	default: // OverflowDropOldest
		for {
			select {
			case old := <-s.ch:
				s.drop(old)
			default:
			}
			select {
			case s.ch <- entry:
				return s.sent(entry)
			default:
				// Raced with concurrent producers; evict again.
			}
		}
	}
}

// sent finishes a successful enqueue. If Close completed its final flush
// between the done check and the send, the entry is stranded in the channel
// and will never reach the downstream sink; count it as dropped.
func (s *AsyncSink) sent(entry *Entry) error {
	s.gaugeDepth()
	select {
	case <-s.drained:
		s.drop(entry)
		return ErrSinkClosed
	default:
		return nil
	}
}

// Close stops accepting entries, drains the queue to the downstream sink,
// and closes it.
func (s *AsyncSink) Close() error {
	s.once.Do(func() { close(s.done) })
	<-s.drained
	return s.next.Close()
}

func (s *AsyncSink) drain() {
	defer close(s.drained)
	for {
		select {
		case entry := <-s.ch:
			s.write(entry)
		case <-s.done:
			// Flush whatever is still queued, then stop.
			for {
				select {
				case entry := <-s.ch:
					s.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) write(entry *Entry) {
	s.gaugeDepth()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.next.Append(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteErrorsTotal.Inc()
		}
		if s.logger != nil {
			s.logger.WithError(err).WithField("entry_id", entry.ID).Warn("audit write failed, entry dropped")
		}
	}
}

func (s *AsyncSink) drop(entry *Entry) {
	if s.metrics != nil {
		s.metrics.AuditDroppedTotal.Inc()
	}
	if s.logger != nil {
		s.logger.WithField("entry_id", entry.ID).Debug("audit queue full, entry dropped")
	}
}

func (s *AsyncSink) gaugeDepth() {
	if s.metrics != nil {
		s.metrics.AuditQueueDepth.Set(float64(len(s.ch)))
	}
}
