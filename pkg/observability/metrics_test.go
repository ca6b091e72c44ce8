package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersEverything(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.ChecksTotal.WithLabelValues("allow", "explicit_grant").Inc()
	m.CheckDuration.WithLabelValues("allow").Observe(0.0001)
	m.SnapshotHitsTotal.Inc()
	m.SnapshotMissesTotal.Inc()
	m.SnapshotEvictionsTotal.Inc()
	m.SnapshotRefreshTotal.WithLabelValues("success").Inc()
	m.SnapshotRefreshDuration.Observe(0.01)
	m.AuditQueueDepth.Set(3)
	m.AuditDroppedTotal.Inc()
	m.AuditWriteErrorsTotal.Inc()
	m.StoreMutationsTotal.WithLabelValues("module", "create").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChecksTotal.WithLabelValues("allow", "explicit_grant")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SnapshotHitsTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.AuditQueueDepth))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"warden_checks_total",
		"warden_check_duration_seconds",
		"warden_snapshot_hits_total",
		"warden_snapshot_misses_total",
		"warden_snapshot_evictions_total",
		"warden_snapshot_refresh_total",
		"warden_snapshot_refresh_duration_seconds",
		"warden_audit_queue_depth",
		"warden_audit_dropped_total",
		"warden_audit_write_errors_total",
		"warden_store_mutations_total",
	} {
		assert.True(t, names[want], "metric %s not registered", want)
	}
}

func TestNewMetricsDoubleRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	assert.Panics(t, func() { NewMetrics(registry) })
}
