package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/warden/pkg/async"
	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/observability"
)

// Service bundles the store, snapshot manager and resolver behind one
// facade so embedding applications wire a single object. The administrative
// mutation API stays on Store; Service re-exports the hot-path operations.
type Service struct {
	store     *Store
	snapshots *Manager
	resolver  *Resolver
	logger    *observability.Logger
}

// ServiceConfig carries the knobs Service needs beyond its collaborators.
type ServiceConfig struct {
	Cache    ManagerConfig
	Resolver ResolverConfig
}

// NewService wires a full authorization service over an open database
// handle. versions selects the invalidation transport (MemoryVersions for a
// single replica, RedisVersions behind a fleet). sink may be nil to disable
// audit. The migration set is not applied here; call Initialize or run the
// migration binary first.
func NewService(db *sql.DB, versions VersionSource, sink audit.Sink, cfg ServiceConfig, logger *observability.Logger, metrics *observability.Metrics) (*Service, error) {
	store := NewStore(db, versions, metrics)
	snapshots, err := NewManager(store, versions, cfg.Cache, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot manager: %w", err)
	}
	return &Service{
		store:     store,
		snapshots: snapshots,
		resolver:  NewResolver(snapshots, sink, logger, metrics, cfg.Resolver),
		logger:    logger,
	}, nil
}

// Initialize applies pending schema migrations.
func (s *Service) Initialize(ctx context.Context, db *sql.DB) error {
	if err := RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Store exposes the administrative mutation API.
func (s *Service) Store() *Store { return s.store }

// Snapshots exposes the snapshot manager, mainly for invalidation hooks.
func (s *Service) Snapshots() *Manager { return s.snapshots }

// Check resolves one authorization question. See Resolver.Check.
func (s *Service) Check(ctx context.Context, principal Principal, resourceCode string, action Action, tenant TenantContext, eval EvalContext) (Decision, error) {
	return s.resolver.Check(ctx, principal, resourceCode, action, tenant, eval)
}

// InvalidateWorkspace bumps the workspace version so every replica refreshes
// that workspace's snapshot on its next check.
func (s *Service) InvalidateWorkspace(ctx context.Context, workspaceID int64) error {
	return s.snapshots.Invalidate(ctx, workspaceID)
}

// InvalidateCatalog bumps the platform catalog version, staling every
// resident snapshot fleet-wide.
func (s *Service) InvalidateCatalog(ctx context.Context) error {
	return s.snapshots.InvalidateCatalog(ctx)
}

// Warm prefetches snapshots for the given workspaces in the background so
// their first checks skip the cold load. Failures are logged, not returned;
// a workspace that fails to warm just loads on demand later.
func (s *Service) Warm(workspaceIDs []int64, timeout time.Duration) {
	ids := make([]int64, len(workspaceIDs))
	copy(ids, workspaceIDs)
	async.SafeGoNoError(context.Background(), timeout, "snapshot-warm", func(ctx context.Context) {
		for _, id := range ids {
			if _, err := s.snapshots.Snapshot(ctx, id); err != nil {
				if s.logger != nil {
					s.logger.WithError(err).WithField("workspace_id", id).Warn("snapshot warm failed")
				}
			}
		}
	})
}
