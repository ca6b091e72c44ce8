package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/warden/pkg/observability"
)

// Store is the persistence layer for catalog, enablement and assignment
// data over database/sql (PostgreSQL in production, SQLite in tests). It
// implements the Loader port for snapshot refreshes and the administrative
// mutation API.
//
// Every mutation bumps the appropriate version counter so resident
// snapshots go stale and the next check refreshes. Mutations validate the
// referential-integrity invariants the resolver's ancestor walk depends on;
// an invalid write is rejected synchronously with a ConfigurationError and
// never reaches the resolver.
type Store struct {
	db       *sql.DB
	versions VersionSource
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewStore creates a store. metrics may be nil.
func NewStore(db *sql.DB, versions VersionSource, metrics *observability.Metrics) *Store {
	return &Store{db: db, versions: versions, metrics: metrics, now: time.Now}
}

func (s *Store) countMutation(entity, operation string) {
	if s.metrics != nil {
		s.metrics.StoreMutationsTotal.WithLabelValues(entity, operation).Inc()
	}
}

// CreateModule inserts a module into the platform catalog.
func (s *Store) CreateModule(ctx context.Context, m *Module) error {
	if m.Code == "" {
		return &ConfigurationError{Entity: "module", Reason: "code is required"}
	}
	now := s.now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO warden_modules (code, name, category, is_active, is_core, sort_order, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, m.Code, m.Name, string(m.Category), m.IsActive, m.IsCore, m.SortOrder, string(LifecycleActive), now, now).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	m.State = LifecycleActive
	m.CreatedAt = now
	m.UpdatedAt = now
	s.countMutation("module", "create")
	return s.versions.BumpCatalog(ctx)
}

// DeleteModule tombstones a module. Core modules cannot be deleted.
func (s *Store) DeleteModule(ctx context.Context, moduleID int64) error {
	var isCore bool
	err := s.db.QueryRowContext(ctx,
		"SELECT is_core FROM warden_modules WHERE id = $1 AND state = 'active'", moduleID,
	).Scan(&isCore)
	if err == sql.ErrNoRows {
		return ErrModuleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load module: %w", err)
	}
	if isCore {
		return &ConfigurationError{Entity: "module", Reason: "core modules cannot be deleted"}
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE warden_modules SET state = 'deleted', updated_at = $1 WHERE id = $2", s.now(), moduleID,
	); err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	s.countMutation("module", "delete")
	return s.versions.BumpCatalog(ctx)
}

// CreateResource inserts a resource, validating that the owning module is
// live and that the parent chain stays inside the module and cannot form a
// cycle.
func (s *Store) CreateResource(ctx context.Context, r *Resource) error {
	if r.Code == "" {
		return &ConfigurationError{Entity: "resource", Reason: "code is required"}
	}
	var moduleState string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM warden_modules WHERE id = $1", r.ModuleID,
	).Scan(&moduleState)
	if err == sql.ErrNoRows {
		return ErrModuleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load module: %w", err)
	}
	if Lifecycle(moduleState) != LifecycleActive {
		return &ConfigurationError{Entity: "resource", Reason: "owning module is deleted"}
	}
	if r.ParentID != nil {
		if err := s.validateParentChain(ctx, r.ModuleID, *r.ParentID); err != nil {
			return err
		}
	}

	now := s.now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO warden_resources (module_id, parent_id, code, name, type, is_public, requires_approval, is_active, sort_order, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, r.ModuleID, r.ParentID, r.Code, r.Name, string(r.Type), r.IsPublic, r.RequiresApproval, r.IsActive, r.SortOrder, string(LifecycleActive), now, now).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	r.State = LifecycleActive
	r.CreatedAt = now
	r.UpdatedAt = now
	s.countMutation("resource", "create")
	return s.versions.BumpCatalog(ctx)
}

// validateParentChain walks the proposed parent's ancestor chain. The new
// resource does not exist yet, so a cycle through it is impossible; what is
// checked is that the parent is live, in the same module, and that its own
// chain terminates within the depth bound.
func (s *Store) validateParentChain(ctx context.Context, moduleID, parentID int64) error {
	cur := parentID
	for depth := 0; ; depth++ {
		if depth >= MaxTreeDepth {
			return &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("parent chain exceeds depth %d", MaxTreeDepth)}
		}
		var parentModuleID int64
		var parentState string
		var next sql.NullInt64
		err := s.db.QueryRowContext(ctx,
			"SELECT module_id, state, parent_id FROM warden_resources WHERE id = $1", cur,
		).Scan(&parentModuleID, &parentState, &next)
		if err == sql.ErrNoRows {
			return &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("parent %d does not exist", cur)}
		}
		if err != nil {
			return fmt.Errorf("failed to load parent resource: %w", err)
		}
		if Lifecycle(parentState) != LifecycleActive {
			return &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("parent %d is deleted", cur)}
		}
		if parentModuleID != moduleID {
			return &ConfigurationError{Entity: "resource", Reason: "parent crosses module boundary"}
		}
		if !next.Valid {
			return nil
		}
		cur = next.Int64
	}
}

// ReparentResource moves a resource under a new parent (nil for root),
// re-validating the module boundary and acyclicity including the resource
// itself.
func (s *Store) ReparentResource(ctx context.Context, resourceID int64, newParentID *int64) error {
	var moduleID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT module_id FROM warden_resources WHERE id = $1 AND state = 'active'", resourceID,
	).Scan(&moduleID)
	if err == sql.ErrNoRows {
		return ErrResourceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load resource: %w", err)
	}
	if newParentID != nil {
		if *newParentID == resourceID {
			return &ConfigurationError{Entity: "resource", Reason: "resource cannot be its own parent"}
		}
		if err := s.validateParentChain(ctx, moduleID, *newParentID); err != nil {
			return err
		}
		// The existing subtree of resourceID must not contain the new
		// parent, or the link closes a cycle.
		cur := *newParentID
		for depth := 0; depth < MaxTreeDepth; depth++ {
			var next sql.NullInt64
			if err := s.db.QueryRowContext(ctx,
				"SELECT parent_id FROM warden_resources WHERE id = $1", cur,
			).Scan(&next); err != nil {
				return fmt.Errorf("failed to walk parent chain: %w", err)
			}
			if !next.Valid {
				break
			}
			if next.Int64 == resourceID {
				return &ConfigurationError{Entity: "resource", Reason: "reparent would form a cycle"}
			}
			cur = next.Int64
		}
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE warden_resources SET parent_id = $1, updated_at = $2 WHERE id = $3",
		newParentID, s.now(), resourceID,
	); err != nil {
		return fmt.Errorf("failed to reparent resource: %w", err)
	}
	s.countMutation("resource", "reparent")
	return s.versions.BumpCatalog(ctx)
}

// DeleteResource tombstones a resource.
func (s *Store) DeleteResource(ctx context.Context, resourceID int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE warden_resources SET state = 'deleted', updated_at = $1 WHERE id = $2 AND state = 'active'",
		s.now(), resourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrResourceNotFound
	}
	s.countMutation("resource", "delete")
	return s.versions.BumpCatalog(ctx)
}

// DefinePermission attaches an action to a resource. (resource, action) is
// unique; a duplicate is a configuration error.
func (s *Store) DefinePermission(ctx context.Context, p *Permission) error {
	if !p.Action.Valid() {
		return &ConfigurationError{Entity: "permission", Reason: fmt.Sprintf("unknown action %q", p.Action)}
	}
	var resourceState string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM warden_resources WHERE id = $1", p.ResourceID,
	).Scan(&resourceState)
	if err == sql.ErrNoRows {
		return ErrResourceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load resource: %w", err)
	}
	if Lifecycle(resourceState) != LifecycleActive {
		return &ConfigurationError{Entity: "permission", Reason: "resource is deleted"}
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM warden_permissions WHERE resource_id = $1 AND action = $2",
		p.ResourceID, string(p.Action),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check permission uniqueness: %w", err)
	}
	if exists > 0 {
		return &ConfigurationError{Entity: "permission", Reason: fmt.Sprintf("action %q already defined on resource %d", p.Action, p.ResourceID)}
	}

	condition, err := p.Condition.MarshalJSONBlob()
	if err != nil {
		return fmt.Errorf("failed to encode condition: %w", err)
	}
	now := s.now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO warden_permissions (resource_id, action, condition, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.ResourceID, string(p.Action), condition, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to define permission: %w", err)
	}
	p.CreatedAt = now
	s.countMutation("permission", "create")
	return s.versions.BumpCatalog(ctx)
}

// CreateRole inserts a role after validating that it carries exactly the
// tenancy anchor its scope requires.
func (s *Store) CreateRole(ctx context.Context, r *Role) error {
	if r.Code == "" {
		return &ConfigurationError{Entity: "role", Reason: "code is required"}
	}
	switch r.Scope {
	case RoleScopeSystem:
		if r.WorkspaceID != nil || r.CompanyID != nil {
			return &ConfigurationError{Entity: "role", Reason: "system roles cannot be workspace- or company-scoped"}
		}
	case RoleScopeWorkspace:
		if r.WorkspaceID == nil || r.CompanyID != nil {
			return &ConfigurationError{Entity: "role", Reason: "workspace roles require a workspace and no company"}
		}
	case RoleScopeCompany:
		if r.CompanyID == nil || r.WorkspaceID != nil {
			return &ConfigurationError{Entity: "role", Reason: "company roles require a company and no workspace"}
		}
	default:
		return &ConfigurationError{Entity: "role", Reason: fmt.Sprintf("unknown scope %q", r.Scope)}
	}

	var dup int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM warden_roles
		WHERE code = $1 AND scope = $2
		  AND COALESCE(workspace_id, 0) = COALESCE($3, 0)
		  AND COALESCE(company_id, 0) = COALESCE($4, 0)
	`, r.Code, string(r.Scope), r.WorkspaceID, r.CompanyID).Scan(&dup)
	if err != nil {
		return fmt.Errorf("failed to check role uniqueness: %w", err)
	}
	if dup > 0 {
		return &ConfigurationError{Entity: "role", Reason: fmt.Sprintf("code %q already exists in scope %s", r.Code, r.Scope)}
	}

	now := s.now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO warden_roles (code, name, scope, workspace_id, company_id, is_active, sort_order, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, r.Code, r.Name, string(r.Scope), r.WorkspaceID, r.CompanyID, r.IsActive, r.SortOrder, string(LifecycleActive), now, now).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	r.State = LifecycleActive
	r.CreatedAt = now
	r.UpdatedAt = now
	s.countMutation("role", "create")
	return s.versions.BumpCatalog(ctx)
}

// CreateAssignment grants or denies a role one permission inside one
// workspace. A grant and a deny may coexist for the same (role, permission,
// workspace); duplicate rows with the same polarity may not.
func (s *Store) CreateAssignment(ctx context.Context, a *Assignment) error {
	if a.WorkspaceID == 0 {
		return &ConfigurationError{Entity: "assignment", Reason: "workspace anchor is required"}
	}
	var roleState string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM warden_roles WHERE id = $1", a.RoleID,
	).Scan(&roleState)
	if err == sql.ErrNoRows {
		return ErrRoleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if Lifecycle(roleState) != LifecycleActive {
		return &ConfigurationError{Entity: "assignment", Reason: "role is deleted"}
	}

	var permExists int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM warden_permissions WHERE id = $1", a.PermissionID,
	).Scan(&permExists)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if permExists == 0 {
		return &ConfigurationError{Entity: "assignment", Reason: fmt.Sprintf("permission %d does not exist", a.PermissionID)}
	}

	var dup int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM warden_assignments
		WHERE role_id = $1 AND permission_id = $2 AND workspace_id = $3 AND is_granted = $4
	`, a.RoleID, a.PermissionID, a.WorkspaceID, a.IsGranted).Scan(&dup)
	if err != nil {
		return fmt.Errorf("failed to check assignment uniqueness: %w", err)
	}
	if dup > 0 {
		return &ConfigurationError{Entity: "assignment", Reason: "assignment already exists for this role, permission and workspace"}
	}

	condition, err := a.Condition.MarshalJSONBlob()
	if err != nil {
		return fmt.Errorf("failed to encode condition override: %w", err)
	}
	if a.GrantedAt.IsZero() {
		a.GrantedAt = s.now()
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO warden_assignments (role_id, permission_id, workspace_id, is_granted, granted_by, granted_at, expires_at, condition)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, a.RoleID, a.PermissionID, a.WorkspaceID, a.IsGranted, a.GrantedBy, a.GrantedAt, a.ExpiresAt, condition).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	s.countMutation("assignment", "create")
	return s.versions.BumpWorkspace(ctx, a.WorkspaceID)
}

// DeleteAssignment removes an assignment.
func (s *Store) DeleteAssignment(ctx context.Context, assignmentID int64) error {
	var workspaceID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT workspace_id FROM warden_assignments WHERE id = $1", assignmentID,
	).Scan(&workspaceID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("assignment %d not found", assignmentID)
	}
	if err != nil {
		return fmt.Errorf("failed to load assignment: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM warden_assignments WHERE id = $1", assignmentID,
	); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	s.countMutation("assignment", "delete")
	return s.versions.BumpWorkspace(ctx, workspaceID)
}

// PutEnablement upserts a tenant on/off override for a module or resource.
func (s *Store) PutEnablement(ctx context.Context, e *Enablement) error {
	if e.WorkspaceID == 0 {
		return &ConfigurationError{Entity: "enablement", Reason: "workspace is required"}
	}
	switch e.TargetType {
	case TargetModule, TargetResource:
	default:
		return &ConfigurationError{Entity: "enablement", Reason: fmt.Sprintf("unknown target type %q", e.TargetType)}
	}
	if e.TargetType == TargetModule && !e.IsEnabled && e.CompanyID == nil {
		var isCore bool
		err := s.db.QueryRowContext(ctx,
			"SELECT is_core FROM warden_modules WHERE id = $1", e.TargetID,
		).Scan(&isCore)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to check module: %w", err)
		}
		if isCore {
			return &ConfigurationError{Entity: "enablement", Reason: "core modules cannot be disabled workspace-wide"}
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	// company_key collapses NULL company to 0 so the uniqueness constraint
	// covers workspace-wide rows too.
	var companyKey int64
	if e.CompanyID != nil {
		companyKey = *e.CompanyID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warden_enablement (workspace_id, company_id, company_key, target_type, target_id, is_enabled, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workspace_id, company_key, target_type, target_id)
		DO UPDATE SET is_enabled = EXCLUDED.is_enabled, created_by = EXCLUDED.created_by
	`, e.WorkspaceID, e.CompanyID, companyKey, string(e.TargetType), e.TargetID, e.IsEnabled, e.CreatedBy, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert enablement: %w", err)
	}
	s.countMutation("enablement", "put")
	return s.versions.BumpWorkspace(ctx, e.WorkspaceID)
}

// DeleteEnablementForTenant removes every enablement row owned by a
// workspace, or by one company within it. Called when the owning tenant is
// deleted (cascade).
func (s *Store) DeleteEnablementForTenant(ctx context.Context, workspaceID int64, companyID *int64) error {
	var err error
	if companyID == nil {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM warden_enablement WHERE workspace_id = $1", workspaceID)
	} else {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM warden_enablement WHERE workspace_id = $1 AND company_id = $2", workspaceID, *companyID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete enablement rows: %w", err)
	}
	s.countMutation("enablement", "cascade_delete")
	return s.versions.BumpWorkspace(ctx, workspaceID)
}

// LoadCatalog implements Loader. Catalog entities are platform-wide; roles
// are filtered to those visible in the workspace (system, this workspace,
// and company roles).
func (s *Store) LoadCatalog(ctx context.Context, workspaceID int64) (*CatalogData, error) {
	data := &CatalogData{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, category, is_active, is_core, sort_order, state, created_at, updated_at
		FROM warden_modules WHERE state = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	for rows.Next() {
		var m Module
		var category, state string
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &category, &m.IsActive, &m.IsCore, &m.SortOrder, &state, &m.CreatedAt, &m.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		m.Category = ModuleCategory(category)
		m.State = Lifecycle(state)
		data.Modules = append(data.Modules, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, module_id, parent_id, code, name, type, is_public, requires_approval, is_active, sort_order, state, created_at, updated_at
		FROM warden_resources WHERE state = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}
	for rows.Next() {
		var r Resource
		var parentID sql.NullInt64
		var rtype, state string
		if err := rows.Scan(&r.ID, &r.ModuleID, &parentID, &r.Code, &r.Name, &rtype, &r.IsPublic, &r.RequiresApproval, &r.IsActive, &r.SortOrder, &state, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		if parentID.Valid {
			id := parentID.Int64
			r.ParentID = &id
		}
		r.Type = ResourceType(rtype)
		r.State = Lifecycle(state)
		data.Resources = append(data.Resources, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, resource_id, action, condition, is_active, created_at
		FROM warden_permissions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	for rows.Next() {
		var p Permission
		var action string
		var condition []byte
		if err := rows.Scan(&p.ID, &p.ResourceID, &action, &condition, &p.IsActive, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		p.Action = Action(action)
		if p.Condition, err = ParseCondition(condition); err != nil {
			rows.Close()
			return nil, fmt.Errorf("permission %d: %w", p.ID, err)
		}
		data.Permissions = append(data.Permissions, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, code, name, scope, workspace_id, company_id, is_active, sort_order, state, created_at, updated_at
		FROM warden_roles
		WHERE state = 'active' AND (scope = 'system' OR scope = 'company' OR workspace_id = $1)
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	for rows.Next() {
		var r Role
		var scope, state string
		var wsID, companyID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &scope, &wsID, &companyID, &r.IsActive, &r.SortOrder, &state, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		if wsID.Valid {
			id := wsID.Int64
			r.WorkspaceID = &id
		}
		if companyID.Valid {
			id := companyID.Int64
			r.CompanyID = &id
		}
		r.Scope = RoleScope(scope)
		r.State = Lifecycle(state)
		data.Roles = append(data.Roles, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

// LoadEnablement implements Loader.
func (s *Store) LoadEnablement(ctx context.Context, workspaceID int64) ([]Enablement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, company_id, target_type, target_id, is_enabled, created_by, created_at
		FROM warden_enablement WHERE workspace_id = $1
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enablement: %w", err)
	}
	defer rows.Close()

	var out []Enablement
	for rows.Next() {
		var e Enablement
		var companyID sql.NullInt64
		var targetType string
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &companyID, &targetType, &e.TargetID, &e.IsEnabled, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan enablement: %w", err)
		}
		if companyID.Valid {
			id := companyID.Int64
			e.CompanyID = &id
		}
		e.TargetType = EnablementTarget(targetType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadAssignments implements Loader. Expired rows are loaded verbatim; the
// resolver compares expiry against the clock at check time.
func (s *Store) LoadAssignments(ctx context.Context, workspaceID int64) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role_id, permission_id, workspace_id, is_granted, granted_by, granted_at, expires_at, condition
		FROM warden_assignments WHERE workspace_id = $1
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var expiresAt sql.NullTime
		var condition []byte
		if err := rows.Scan(&a.ID, &a.RoleID, &a.PermissionID, &a.WorkspaceID, &a.IsGranted, &a.GrantedBy, &a.GrantedAt, &expiresAt, &condition); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			a.ExpiresAt = &t
		}
		if a.Condition, err = ParseCondition(condition); err != nil {
			return nil, fmt.Errorf("assignment %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
