package authz

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Version is the consistency stamp of a workspace snapshot. The catalog
// counter covers platform-wide entities (modules, resources, permissions);
// the workspace counter covers tenant-local state (roles, assignments,
// enablement). A snapshot is current only when both match.
type Version struct {
	Catalog   uint64
	Workspace uint64
}

// Equal reports whether two versions match exactly.
func (v Version) Equal(other Version) bool {
	return v.Catalog == other.Catalog && v.Workspace == other.Workspace
}

func (v Version) String() string {
	return fmt.Sprintf("c%d.w%d", v.Catalog, v.Workspace)
}

// VersionSource tracks monotonic version counters so the snapshot manager
// can detect staleness without reloading. Every store mutation bumps the
// affected counter.
type VersionSource interface {
	// Current returns the version pair for a workspace. A workspace that has
	// never been bumped reads as zero.
	Current(ctx context.Context, workspaceID int64) (Version, error)

	// BumpWorkspace increments the workspace counter after a tenant-local
	// mutation (assignments, roles, enablement).
	BumpWorkspace(ctx context.Context, workspaceID int64) error

	// BumpCatalog increments the global catalog counter after a platform
	// mutation (modules, resources, permissions). It invalidates every
	// workspace's snapshot on its next check.
	BumpCatalog(ctx context.Context) error
}

// MemoryVersions is an in-process VersionSource for single-node deployments
// and tests.
type MemoryVersions struct {
	mu        sync.RWMutex
	catalog   uint64
	workspace map[int64]uint64
}

// NewMemoryVersions creates an in-process version source.
func NewMemoryVersions() *MemoryVersions {
	return &MemoryVersions{workspace: make(map[int64]uint64)}
}

func (m *MemoryVersions) Current(_ context.Context, workspaceID int64) (Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Version{Catalog: m.catalog, Workspace: m.workspace[workspaceID]}, nil
}

func (m *MemoryVersions) BumpWorkspace(_ context.Context, workspaceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspace[workspaceID]++
	return nil
}

func (m *MemoryVersions) BumpCatalog(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog++
	return nil
}

// RedisVersions keeps the version counters in Redis so invalidations made by
// one application instance are observed by every replica on its next check.
type RedisVersions struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisVersions creates a Redis-backed version source. The connection is
// verified eagerly so misconfiguration fails at startup, not on the first
// check.
func NewRedisVersions(ctx context.Context, client *redis.Client, keyPrefix string) (*RedisVersions, error) {
	if keyPrefix == "" {
		keyPrefix = "warden:authz"
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisVersions{client: client, keyPrefix: keyPrefix}, nil
}

func (r *RedisVersions) catalogKey() string {
	return r.keyPrefix + ":version:catalog"
}

func (r *RedisVersions) workspaceKey(workspaceID int64) string {
	return fmt.Sprintf("%s:version:workspace:%d", r.keyPrefix, workspaceID)
}

func (r *RedisVersions) Current(ctx context.Context, workspaceID int64) (Version, error) {
	vals, err := r.client.MGet(ctx, r.catalogKey(), r.workspaceKey(workspaceID)).Result()
	if err != nil {
		return Version{}, fmt.Errorf("failed to read versions: %w", err)
	}
	var v Version
	if v.Catalog, err = parseCounter(vals[0]); err != nil {
		return Version{}, err
	}
	if v.Workspace, err = parseCounter(vals[1]); err != nil {
		return Version{}, err
	}
	return v, nil
}

func (r *RedisVersions) BumpWorkspace(ctx context.Context, workspaceID int64) error {
	if err := r.client.Incr(ctx, r.workspaceKey(workspaceID)).Err(); err != nil {
		return fmt.Errorf("failed to bump workspace version: %w", err)
	}
	return nil
}

func (r *RedisVersions) BumpCatalog(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.catalogKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump catalog version: %w", err)
	}
	return nil
}

func parseCounter(val interface{}) (uint64, error) {
	if val == nil {
		return 0, nil
	}
	s, ok := val.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected version counter type %T", val)
	}
	var n uint64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("malformed version counter %q: %w", s, err)
	}
	return n, nil
}
