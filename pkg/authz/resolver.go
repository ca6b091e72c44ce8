package authz

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/contextkeys"
	"github.com/platinummonkey/warden/pkg/observability"
)

// ResolverConfig configures the resolver.
type ResolverConfig struct {
	// HierarchicalFallback lets a resource that defines no permission for an
	// action inherit the action's meaning from its nearest ancestor that
	// does. Disable to get a strict Deny("undefined_permission") instead.
	HierarchicalFallback bool
}

// DefaultResolverConfig returns the default resolver configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{HierarchicalFallback: true}
}

// Resolver answers "can principal P perform action A on resource R in tenant
// context C". It is a pure read path over a workspace snapshot: safe for
// unbounded concurrent calls, no network I/O on the cache-hit path, and the
// only side effect is the fire-and-forget audit entry per call.
type Resolver struct {
	snapshots *Manager
	sink      audit.Sink
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
	cfg       ResolverConfig
	now       func() time.Time
}

// NewResolver creates a resolver. sink should be wrapped in an
// audit.AsyncSink so appends never block the check; logger and metrics may
// be nil.
func NewResolver(snapshots *Manager, sink audit.Sink, logger *observability.Logger, metrics *observability.Metrics, cfg ResolverConfig) *Resolver {
	if sink == nil {
		sink = audit.NewNopSink()
	}
	return &Resolver{
		snapshots: snapshots,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer("warden/authz"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Check resolves one authorization decision.
//
// An unknown resource code returns ErrResourceNotFound; that is a caller
// error, not a policy outcome. Any other failure (snapshot load, version
// source, even a panic inside resolution) fails closed: the returned
// Decision is a Deny.
func (r *Resolver) Check(ctx context.Context, principal Principal, resourceCode string, action Action, tenant TenantContext, eval EvalContext) (decision Decision, err error) {
	start := r.now()

	ctx, span := r.tracer.Start(ctx, "authz.Check", trace.WithAttributes(
		attribute.Int64("warden.workspace_id", tenant.WorkspaceID),
		attribute.Int64("warden.company_id", tenant.CompanyID),
		attribute.String("warden.resource", resourceCode),
		attribute.String("warden.action", string(action)),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			decision = Decision{Allowed: false, Reason: ReasonNoGrant, CheckedAt: r.now()}
			err = fmt.Errorf("authorization check panicked: %v", rec)
			if r.logger != nil {
				r.logger.WithField("panic", rec).Error("authorization check panicked, failing closed")
			}
		}
		elapsed := r.now().Sub(start)
		r.observe(decision, err, elapsed, span)
		if err == nil {
			r.emitAudit(ctx, principal, resourceCode, action, tenant, decision, elapsed)
		}
	}()

	snap, err := r.snapshots.Snapshot(ctx, tenant.WorkspaceID)
	if err != nil {
		return Decision{Allowed: false, CheckedAt: r.now()}, fmt.Errorf("failed to load workspace snapshot: %w", err)
	}

	res, ok := snap.Catalog.Resource(resourceCode)
	if !ok {
		return Decision{Allowed: false, CheckedAt: r.now()}, fmt.Errorf("%w: %q", ErrResourceNotFound, resourceCode)
	}

	return r.resolve(snap, principal, res, action, tenant, eval), nil
}

// resolve runs the decision algorithm against an immutable snapshot. First
// matching rule wins.
func (r *Resolver) resolve(snap *Snapshot, principal Principal, res *Resource, action Action, tenant TenantContext, eval EvalContext) Decision {
	now := r.now()

	// 1. Public bypass: no principal required, assignments never consulted.
	if res.IsPublic {
		return Decision{Allowed: true, Reason: ReasonPublic, ResourceID: res.ID, CheckedAt: now}
	}

	// 2. Enablement gate. Precedes all role evaluation; no grant overrides
	// it. A module missing from the live catalog (tombstoned after the
	// resource loaded) counts as disabled.
	mod, ok := snap.Catalog.Module(res.ModuleID)
	if !ok || !snap.Enablement.ResourceEnabled(res, mod, tenant) {
		return Decision{Allowed: false, Reason: ReasonDisabled, ResourceID: res.ID, CheckedAt: now}
	}

	// 3. Permission existence, with the hierarchical fallback of step 8:
	// only a resource with no permission row at all for this action may
	// inherit from the nearest ancestor that defines one. An inactive row
	// blocks inheritance; it is a deliberate configuration signal.
	target := res
	perm := snap.Catalog.Permission(res.ID, action)
	if perm == nil && r.cfg.HierarchicalFallback && !snap.Catalog.HasPermission(res.ID, action) {
		ancestors := snap.Catalog.Ancestors(res.ID)
		for i := len(ancestors) - 1; i >= 0; i-- {
			if snap.Catalog.HasPermission(ancestors[i].ID, action) {
				target = ancestors[i]
				perm = snap.Catalog.Permission(ancestors[i].ID, action)
				break
			}
		}
	}
	if perm == nil {
		return Decision{Allowed: false, Reason: ReasonUndefinedPermission, ResourceID: res.ID, CheckedAt: now}
	}

	// 4–5. Candidate assignments, filtered by expiry at the store and by
	// condition scope here. A candidate whose condition is not satisfied is
	// discarded, not deprioritized.
	candidates := snap.Assignments.Find(principal.RoleIDs, perm.ID, now)
	var granted, denied []int64
	for _, a := range candidates {
		role, ok := snap.Catalog.Role(a.RoleID)
		if !ok || !role.IsActive {
			continue
		}
		cond := a.Condition
		if cond == nil {
			cond = perm.Condition
		}
		if !cond.Satisfied(principal, tenant, eval) {
			continue
		}
		if a.IsGranted {
			granted = append(granted, a.ID)
		} else {
			denied = append(denied, a.ID)
		}
	}

	// 6. Deny overrides grant.
	if len(denied) > 0 {
		return Decision{Allowed: false, Reason: ReasonExplicitDeny, ResourceID: target.ID, MatchedAssignmentIDs: denied, CheckedAt: now}
	}
	if len(granted) > 0 {
		return Decision{Allowed: true, Reason: ReasonExplicitGrant, ResourceID: target.ID, MatchedAssignmentIDs: granted, CheckedAt: now}
	}

	// 7. Default: no candidate survived.
	return Decision{Allowed: false, Reason: ReasonNoGrant, ResourceID: target.ID, CheckedAt: now}
}

func (r *Resolver) observe(decision Decision, err error, elapsed time.Duration, span trace.Span) {
	outcome := "deny"
	if decision.Allowed {
		outcome = "allow"
	}
	if err != nil {
		outcome = "error"
	}
	span.SetAttributes(
		attribute.String("warden.outcome", outcome),
		attribute.String("warden.reason", string(decision.Reason)),
	)
	if r.metrics != nil {
		r.metrics.ChecksTotal.WithLabelValues(outcome, string(decision.Reason)).Inc()
		r.metrics.CheckDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// emitAudit records the decision through the audit sink. The sink is
// fire-and-forget by contract; a sink failure is logged and dropped, never
// surfaced to the caller.
func (r *Resolver) emitAudit(ctx context.Context, principal Principal, resourceCode string, action Action, tenant TenantContext, decision Decision, elapsed time.Duration) {
	outcome := audit.OutcomeDeny
	if decision.Allowed {
		outcome = audit.OutcomeAllow
	}
	requestID, _ := ctx.Value(contextkeys.RequestIDKey).(string)

	entry := &audit.Entry{
		Timestamp:     decision.CheckedAt,
		PrincipalID:   principal.UserID,
		WorkspaceID:   tenant.WorkspaceID,
		CompanyID:     tenant.CompanyID,
		ResourceCode:  resourceCode,
		ResourceID:    decision.ResourceID,
		Action:        string(action),
		Outcome:       outcome,
		Reason:        string(decision.Reason),
		AssignmentIDs: decision.MatchedAssignmentIDs,
		Duration:      elapsed,
		RequestID:     requestID,
	}
	if err := r.sink.Append(ctx, entry); err != nil {
		if r.metrics != nil {
			r.metrics.AuditWriteErrorsTotal.Inc()
		}
		if r.logger != nil {
			r.logger.WithError(err).Warn("failed to append access log entry")
		}
	}
}
