package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the authorization engine.
type Metrics struct {
	// Check metrics
	ChecksTotal   *prometheus.CounterVec
	CheckDuration *prometheus.HistogramVec

	// Snapshot cache metrics
	SnapshotHitsTotal       prometheus.Counter
	SnapshotMissesTotal     prometheus.Counter
	SnapshotEvictionsTotal  prometheus.Counter
	SnapshotRefreshTotal    *prometheus.CounterVec
	SnapshotRefreshDuration prometheus.Histogram

	// Audit pipeline metrics
	AuditQueueDepth       prometheus.Gauge
	AuditDroppedTotal     prometheus.Counter
	AuditWriteErrorsTotal prometheus.Counter

	// Store metrics
	StoreMutationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_checks_total",
				Help: "Total number of authorization checks",
			},
			[]string{"outcome", "reason"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_check_duration_seconds",
				Help:    "Authorization check duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"outcome"},
		),
		SnapshotHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_snapshot_hits_total",
			Help: "Checks served from a current resident snapshot",
		}),
		SnapshotMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_snapshot_misses_total",
			Help: "Checks that required a snapshot refresh",
		}),
		SnapshotEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_snapshot_evictions_total",
			Help: "Workspace snapshots evicted from the cache",
		}),
		SnapshotRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_snapshot_refresh_total",
				Help: "Snapshot refresh attempts by result",
			},
			[]string{"result"},
		),
		SnapshotRefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_snapshot_refresh_duration_seconds",
			Help:    "Snapshot refresh duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		AuditQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warden_audit_queue_depth",
			Help: "Entries currently queued for audit persistence",
		}),
		AuditDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_dropped_total",
			Help: "Access log entries dropped by the overflow policy",
		}),
		AuditWriteErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_write_errors_total",
			Help: "Access log entries lost to downstream write failures",
		}),
		StoreMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_store_mutations_total",
				Help: "Catalog, enablement and assignment mutations by entity",
			},
			[]string{"entity", "operation"},
		),
	}

	registry.MustRegister(
		m.ChecksTotal,
		m.CheckDuration,
		m.SnapshotHitsTotal,
		m.SnapshotMissesTotal,
		m.SnapshotEvictionsTotal,
		m.SnapshotRefreshTotal,
		m.SnapshotRefreshDuration,
		m.AuditQueueDepth,
		m.AuditDroppedTotal,
		m.AuditWriteErrorsTotal,
		m.StoreMutationsTotal,
	)

	return m
}
