// Package authz resolves authorization questions for a multi-tenant
// application platform.
//
// # Overview
//
// The package answers one question, quickly and deterministically: may this
// principal perform this action on this resource, inside this tenant, right
// now? The answer is always a Decision carrying a boolean and a reason code
// from a closed vocabulary, so callers and audit tooling never parse free
// text.
//
// # Architecture
//
// The model consists of six entity kinds:
//
//  1. Modules: top-level capability groups (e.g. "hr", "finance")
//  2. Resources: protectable units inside a module, arranged as trees
//  3. Permissions: (resource, action) pairs, optionally condition-scoped
//  4. Roles: named permission bundles at system, workspace or company scope
//  5. Assignments: grant or deny rows binding roles to permissions per workspace
//  6. Enablement: per-tenant on/off overrides for modules and resources
//
// Resolution follows a fixed pipeline: public resources short-circuit to
// Allow; disabled modules or resources short-circuit to Deny; an undefined
// permission denies (with hierarchical fallback to the nearest ancestor
// that defines the action, when enabled); otherwise the principal's
// assignments are filtered by expiry and condition, and a single satisfied
// deny overrides any number of grants. No rule matching at all is a deny.
// The engine fails closed: internal faults produce Deny, never Allow.
//
// # Snapshots
//
// Checks never touch the database. A Manager keeps per-workspace Snapshot
// values in an LRU cache and validates them against a monotonic version
// pair (catalog counter, workspace counter) kept in a VersionSource. Every
// store mutation bumps the relevant counter, so replicas converge on fresh
// policy without coordination. Concurrent refreshes of the same workspace
// collapse into one load via singleflight.
//
// # Usage
//
//	svc, err := authz.NewService(db, versions, sink, cfg, logger, metrics)
//	if err != nil { ... }
//	decision, err := svc.Check(ctx, principal, "hr.employees.delete", authz.ActionDelete, tenant, eval)
//	if err != nil { ... }
//	if !decision.Allowed {
//		// decision.Reason says why
//	}
package authz
