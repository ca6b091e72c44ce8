package authz

import (
	"time"
)

// Action is the closed vocabulary of operations a permission can cover.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
	ActionExport  Action = "export"
	ActionImport  Action = "import"
	ActionApprove Action = "approve"
	ActionManage  Action = "manage"
)

// Actions returns every valid action. The slice is a fresh copy; callers may
// reorder it.
func Actions() []Action {
	return []Action{
		ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExecute,
		ActionExport, ActionImport, ActionApprove, ActionManage,
	}
}

// Valid reports whether a is a member of the action vocabulary.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExecute,
		ActionExport, ActionImport, ActionApprove, ActionManage:
		return true
	}
	return false
}

// ModuleCategory groups modules for catalog presentation.
type ModuleCategory string

const (
	CategoryCore        ModuleCategory = "core"
	CategoryHR          ModuleCategory = "hr"
	CategoryFinance     ModuleCategory = "finance"
	CategoryOperations  ModuleCategory = "operations"
	CategoryReporting   ModuleCategory = "reporting"
	CategoryIntegration ModuleCategory = "integration"
)

// ResourceType classifies the unit of functionality a resource protects.
type ResourceType string

const (
	ResourceTypePage    ResourceType = "page"
	ResourceTypeAPI     ResourceType = "api"
	ResourceTypeFeature ResourceType = "feature"
	ResourceTypeReport  ResourceType = "report"
	ResourceTypeAction  ResourceType = "action"
	ResourceTypeWidget  ResourceType = "widget"
)

// RoleScope identifies the tenancy level a role belongs to. A role has
// exactly one scope.
type RoleScope string

const (
	RoleScopeSystem    RoleScope = "system"
	RoleScopeWorkspace RoleScope = "workspace"
	RoleScopeCompany   RoleScope = "company"
)

// Lifecycle is the explicit live/tombstoned state of a catalog entity.
// Soft-deleted rows keep their identity for referential integrity but are
// excluded from snapshots at load time.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

// Module is a top-level capability group (e.g. "hr"). Core modules cannot be
// deleted or fully disabled.
type Module struct {
	ID        int64          `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Category  ModuleCategory `json:"category"`
	IsActive  bool           `json:"is_active"`
	IsCore    bool           `json:"is_core"`
	SortOrder int            `json:"sort_order"`
	State     Lifecycle      `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Resource is a protectable unit of functionality inside a module. Resources
// form a tree via ParentID; the parent chain never crosses a module boundary.
type Resource struct {
	ID               int64        `json:"id"`
	ModuleID         int64        `json:"module_id"`
	ParentID         *int64       `json:"parent_id,omitempty"`
	Code             string       `json:"code"`
	Name             string       `json:"name"`
	Type             ResourceType `json:"type"`
	IsPublic         bool         `json:"is_public"`
	RequiresApproval bool         `json:"requires_approval"`
	IsActive         bool         `json:"is_active"`
	SortOrder        int          `json:"sort_order"`
	State            Lifecycle    `json:"state"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Permission allows one action on one resource, optionally narrowed by a
// default condition. (ResourceID, Action) is unique.
type Permission struct {
	ID         int64      `json:"id"`
	ResourceID int64      `json:"resource_id"`
	Action     Action     `json:"action"`
	Condition  *Condition `json:"condition,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Role is a named bundle of permission grants and denials.
type Role struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Scope       RoleScope `json:"scope"`
	WorkspaceID *int64    `json:"workspace_id,omitempty"`
	CompanyID   *int64    `json:"company_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	State       Lifecycle `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assignment grants or denies a role one permission inside one workspace.
// The workspace anchor holds even for company-scoped roles so workspace
// admins can set cross-company policy. An expired assignment is treated as
// absent everywhere.
type Assignment struct {
	ID           int64      `json:"id"`
	RoleID       int64      `json:"role_id"`
	PermissionID int64      `json:"permission_id"`
	WorkspaceID  int64      `json:"workspace_id"`
	IsGranted    bool       `json:"is_granted"`
	GrantedBy    int64      `json:"granted_by"`
	GrantedAt    time.Time  `json:"granted_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Condition    *Condition `json:"condition,omitempty"`
}

// Expired reports whether the assignment has lapsed as of now. Expiry is
// always evaluated against wall-clock time at check time, never cached.
func (a *Assignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// EnablementTarget says whether an enablement row switches a module or a
// resource.
type EnablementTarget string

const (
	TargetModule   EnablementTarget = "module"
	TargetResource EnablementTarget = "resource"
)

// Enablement is a per-tenant on/off override for a module or resource. A row
// with CompanyID set overrides the workspace default for that company only.
// Absence of any row falls back to the entity's own active flag.
type Enablement struct {
	ID          int64            `json:"id"`
	WorkspaceID int64            `json:"workspace_id"`
	CompanyID   *int64           `json:"company_id,omitempty"`
	TargetType  EnablementTarget `json:"target_type"`
	TargetID    int64            `json:"target_id"`
	IsEnabled   bool             `json:"is_enabled"`
	CreatedBy   int64            `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TenantContext identifies which tenant's policy applies to a check.
type TenantContext struct {
	WorkspaceID int64 `json:"workspace_id"`
	CompanyID   int64 `json:"company_id"`
}

// Principal is the subject of a check: a user together with the roles the
// surrounding application resolved for them in this tenant, plus the facts
// condition scopes compare against.
type Principal struct {
	UserID       int64   `json:"user_id"`
	RoleIDs      []int64 `json:"role_ids"`
	DepartmentID int64   `json:"department_id,omitempty"`
	CompanyID    int64   `json:"company_id,omitempty"`
}

// EvalContext carries the dynamic facts about the target object that a
// condition scope needs: who owns it, which department and company it sits
// in, and free-form attributes for custom conditions.
type EvalContext struct {
	OwnerID      int64             `json:"owner_id,omitempty"`
	DepartmentID int64             `json:"department_id,omitempty"`
	CompanyID    int64             `json:"company_id,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Reason is the closed, versioned vocabulary of decision reason codes.
// Downstream consumers (audit UI, support tooling) rely on these values
// verbatim; never return free text here.
type Reason string

const (
	ReasonPublic              Reason = "public"
	ReasonDisabled            Reason = "disabled"
	ReasonUndefinedPermission Reason = "undefined_permission"
	ReasonExplicitDeny        Reason = "explicit_deny"
	ReasonExplicitGrant       Reason = "explicit_grant"
	ReasonNoGrant             Reason = "no_grant"
)

// Decision is the outcome of one Check call.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`

	// ResourceID is the resource the decision was made against. When
	// hierarchical fallback applied, this is the ancestor that defined the
	// action, not the resource named in the call.
	ResourceID int64 `json:"resource_id,omitempty"`

	// MatchedAssignmentIDs lists the condition-satisfied assignments that
	// determined the outcome (empty for public/disabled/undefined).
	MatchedAssignmentIDs []int64 `json:"matched_assignment_ids,omitempty"`

	CheckedAt time.Time `json:"checked_at"`
}
