package authz

import (
	"context"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/warden/pkg/observability"
)

// CatalogData is what the persistence port returns for one catalog load.
type CatalogData struct {
	Modules     []Module
	Resources   []Resource
	Permissions []Permission
	Roles       []Role
}

// Loader is the read-only persistence port the snapshot manager refreshes
// through. Implementations load the state visible to one workspace; they do
// not filter expired assignments (the resolver does that at check time).
type Loader interface {
	LoadCatalog(ctx context.Context, workspaceID int64) (*CatalogData, error)
	LoadEnablement(ctx context.Context, workspaceID int64) ([]Enablement, error)
	LoadAssignments(ctx context.Context, workspaceID int64) ([]Assignment, error)
}

// Snapshot is an immutable, versioned view of everything the resolver needs
// for one workspace. Once built it is read-only and safe for unbounded
// concurrent checks.
type Snapshot struct {
	WorkspaceID int64
	Version     Version
	Catalog     *Catalog
	Enablement  *EnablementIndex
	Assignments *AssignmentIndex
	LoadedAt    time.Time
}

// ManagerConfig configures the snapshot manager.
type ManagerConfig struct {
	// MaxWorkspaces bounds how many workspace snapshots stay resident.
	// Evicted workspaces reload on their next check.
	MaxWorkspaces int
}

// DefaultManagerConfig returns the default snapshot manager configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{MaxWorkspaces: 1024}
}

// Manager holds per-workspace snapshots and keeps them consistent with the
// stores through version counters. Workspaces are fully isolated: a refresh
// for one workspace never blocks checks in another, and concurrent misses
// for the same workspace collapse into a single load.
type Manager struct {
	loader   Loader
	versions VersionSource
	cache    *lru.Cache[int64, *Snapshot]
	group    singleflight.Group
	logger   *observability.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewManager creates a snapshot manager. logger and metrics may be nil.
func NewManager(loader Loader, versions VersionSource, cfg ManagerConfig, logger *observability.Logger, metrics *observability.Metrics) (*Manager, error) {
	if cfg.MaxWorkspaces <= 0 {
		cfg.MaxWorkspaces = DefaultManagerConfig().MaxWorkspaces
	}
	m := &Manager{
		loader:   loader,
		versions: versions,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
	cache, err := lru.NewWithEvict[int64, *Snapshot](cfg.MaxWorkspaces, m.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	m.cache = cache
	return m, nil
}

func (m *Manager) onEvict(workspaceID int64, _ *Snapshot) {
	if m.metrics != nil {
		m.metrics.SnapshotEvictionsTotal.Inc()
	}
	if m.logger != nil {
		m.logger.WithField("workspace_id", workspaceID).Debug("snapshot evicted")
	}
}

// Snapshot returns a current snapshot for the workspace, refreshing through
// the loader when the cached version is stale or no snapshot is resident.
// Only the calling goroutine waits on a refresh.
func (m *Manager) Snapshot(ctx context.Context, workspaceID int64) (*Snapshot, error) {
	current, err := m.versions.Current(ctx, workspaceID)
	if err != nil {
		// The version source is the consistency authority; without it a
		// cached snapshot cannot be validated. Serve the resident snapshot
		// if one exists (bounded staleness beats an outage), otherwise fail.
		if snap, ok := m.cache.Get(workspaceID); ok {
			if m.logger != nil {
				m.logger.WithError(err).WithField("workspace_id", workspaceID).Warn("version source unavailable, serving resident snapshot")
			}
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read workspace version: %w", err)
	}

	if snap, ok := m.cache.Get(workspaceID); ok && snap.Version.Equal(current) {
		if m.metrics != nil {
			m.metrics.SnapshotHitsTotal.Inc()
		}
		return snap, nil
	}
	if m.metrics != nil {
		m.metrics.SnapshotMissesTotal.Inc()
	}

	v, err, _ := m.group.Do(strconv.FormatInt(workspaceID, 10), func() (interface{}, error) {
		// Another caller may have completed the refresh while this one
		// waited on the flight lock.
		if snap, ok := m.cache.Get(workspaceID); ok && snap.Version.Equal(current) {
			return snap, nil
		}
		return m.refresh(ctx, workspaceID, current)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// refresh loads all three stores and builds a snapshot stamped with the
// version read before the load began. If a mutation lands mid-load the stamp
// is already stale and the next check triggers another refresh; staleness is
// bounded by one refresh, never compounding.
func (m *Manager) refresh(ctx context.Context, workspaceID int64, version Version) (*Snapshot, error) {
	start := m.now()

	data, err := m.loader.LoadCatalog(ctx, workspaceID)
	if err != nil {
		m.observeRefresh(start, "error")
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	enablement, err := m.loader.LoadEnablement(ctx, workspaceID)
	if err != nil {
		m.observeRefresh(start, "error")
		return nil, fmt.Errorf("failed to load enablement: %w", err)
	}
	assignments, err := m.loader.LoadAssignments(ctx, workspaceID)
	if err != nil {
		m.observeRefresh(start, "error")
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	catalog, err := NewCatalog(data.Modules, data.Resources, data.Permissions, data.Roles)
	if err != nil {
		m.observeRefresh(start, "error")
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}

	snap := &Snapshot{
		WorkspaceID: workspaceID,
		Version:     version,
		Catalog:     catalog,
		Enablement:  NewEnablementIndex(workspaceID, enablement),
		Assignments: NewAssignmentIndex(workspaceID, assignments),
		LoadedAt:    m.now(),
	}
	m.cache.Add(workspaceID, snap)
	m.observeRefresh(start, "success")

	if m.logger != nil {
		m.logger.WithFields(map[string]interface{}{
			"workspace_id": workspaceID,
			"version":      version.String(),
			"resources":    len(data.Resources),
			"assignments":  len(assignments),
		}).Debug("snapshot refreshed")
	}
	return snap, nil
}

func (m *Manager) observeRefresh(start time.Time, result string) {
	if m.metrics == nil {
		return
	}
	m.metrics.SnapshotRefreshTotal.WithLabelValues(result).Inc()
	m.metrics.SnapshotRefreshDuration.Observe(m.now().Sub(start).Seconds())
}

// Invalidate bumps the workspace version counter so the next check in that
// workspace refreshes. Mutation handlers call this after writing to any of
// the three stores.
func (m *Manager) Invalidate(ctx context.Context, workspaceID int64) error {
	return m.versions.BumpWorkspace(ctx, workspaceID)
}

// InvalidateCatalog bumps the global catalog counter, staling every
// workspace's snapshot at once. Platform catalog mutations call this.
func (m *Manager) InvalidateCatalog(ctx context.Context) error {
	return m.versions.BumpCatalog(ctx)
}

// Purge drops the resident snapshot for a workspace without touching the
// version counters. Used when a workspace is deleted.
func (m *Manager) Purge(workspaceID int64) {
	m.cache.Remove(workspaceID)
}
