package observability

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthChecker runs registered dependency checks, for readiness probes.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthStatus is the aggregate result of one probe run.
type HealthStatus struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

// NewHealthChecker creates an empty health checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]CheckFunc)}
}

// Register adds a named check.
func (h *HealthChecker) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes every check with a shared per-probe timeout.
func (h *HealthChecker) Run(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	status := HealthStatus{Healthy: true, Checks: make(map[string]string, len(checks))}
	for name, fn := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := fn(checkCtx); err != nil {
			status.Healthy = false
			status.Checks[name] = err.Error()
		} else {
			status.Checks[name] = "ok"
		}
		cancel()
	}
	return status
}

// PostgresCheck probes a database handle.
func PostgresCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

// RedisCheck probes a Redis client.
func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
