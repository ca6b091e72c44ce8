package authz

// enablementKey identifies one switchable entity.
type enablementKey struct {
	target EnablementTarget
	id     int64
}

// EnablementIndex resolves per-tenant on/off state for modules and resources
// inside one workspace snapshot. Resolution order: company row, then
// workspace row, then the entity's own active flag.
type EnablementIndex struct {
	workspace map[enablementKey]bool
	company   map[int64]map[enablementKey]bool
}

// NewEnablementIndex indexes the enablement rows of one workspace. Rows for
// other workspaces are ignored defensively; the loader should not produce
// them.
func NewEnablementIndex(workspaceID int64, rows []Enablement) *EnablementIndex {
	idx := &EnablementIndex{
		workspace: make(map[enablementKey]bool),
		company:   make(map[int64]map[enablementKey]bool),
	}
	for _, row := range rows {
		if row.WorkspaceID != workspaceID {
			continue
		}
		key := enablementKey{target: row.TargetType, id: row.TargetID}
		if row.CompanyID == nil {
			idx.workspace[key] = row.IsEnabled
			continue
		}
		byKey := idx.company[*row.CompanyID]
		if byKey == nil {
			byKey = make(map[enablementKey]bool)
			idx.company[*row.CompanyID] = byKey
		}
		byKey[key] = row.IsEnabled
	}
	return idx
}

// Enabled resolves the effective state for one entity. fallback is the
// entity's own active flag, used when neither a company nor a workspace row
// exists.
func (idx *EnablementIndex) Enabled(target EnablementTarget, id int64, tenant TenantContext, fallback bool) bool {
	key := enablementKey{target: target, id: id}
	if byKey, ok := idx.company[tenant.CompanyID]; ok {
		if v, ok := byKey[key]; ok {
			return v
		}
	}
	if v, ok := idx.workspace[key]; ok {
		return v
	}
	return fallback
}

// ResourceEnabled resolves the effective state of a resource including the
// hard module override: a disabled module forces every resource beneath it
// off regardless of the resource's own rows or flag.
func (idx *EnablementIndex) ResourceEnabled(res *Resource, mod *Module, tenant TenantContext) bool {
	if !idx.Enabled(TargetModule, mod.ID, tenant, mod.IsActive) {
		return false
	}
	return idx.Enabled(TargetResource, res.ID, tenant, res.IsActive)
}
