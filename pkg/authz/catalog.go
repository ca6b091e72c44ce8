package authz

import (
	"fmt"
	"sort"
)

// MaxTreeDepth bounds every ancestor walk. Creation-time cycle checks keep
// the tree acyclic; the guard defends against any invariant violation that
// slips past them (e.g. rows written by an older schema version).
const MaxTreeDepth = 32

// Catalog is an immutable, indexed view of modules, resources, permissions
// and roles. It is built once per snapshot load and shared by any number of
// concurrent checks.
//
// Resources are held as an arena indexed by id with parent links resolved by
// lookup, not by live object references; ancestor walks are iterative and
// bounded by MaxTreeDepth.
type Catalog struct {
	modules         map[int64]*Module
	modulesByCode   map[string]*Module
	resources       map[int64]*Resource
	resourcesByCode map[string]*Resource
	permissions     map[int64]*Permission
	permsByResource map[int64]map[Action]*Permission
	roles           map[int64]*Role
}

// NewCatalog indexes the given entities and verifies the structural
// invariants the resolver's ancestor walk depends on: parents exist, stay
// within the owning module, and never form a cycle; (resource, action) is
// unique. Soft-deleted entities are skipped entirely so liveness is a single
// map lookup downstream.
func NewCatalog(modules []Module, resources []Resource, permissions []Permission, roles []Role) (*Catalog, error) {
	c := &Catalog{
		modules:         make(map[int64]*Module, len(modules)),
		modulesByCode:   make(map[string]*Module, len(modules)),
		resources:       make(map[int64]*Resource, len(resources)),
		resourcesByCode: make(map[string]*Resource, len(resources)),
		permissions:     make(map[int64]*Permission, len(permissions)),
		permsByResource: make(map[int64]map[Action]*Permission),
		roles:           make(map[int64]*Role, len(roles)),
	}

	for i := range modules {
		m := &modules[i]
		if m.State == LifecycleDeleted {
			continue
		}
		if _, dup := c.modulesByCode[m.Code]; dup {
			return nil, &ConfigurationError{Entity: "module", Reason: fmt.Sprintf("duplicate code %q", m.Code)}
		}
		c.modules[m.ID] = m
		c.modulesByCode[m.Code] = m
	}

	for i := range resources {
		r := &resources[i]
		if r.State == LifecycleDeleted {
			continue
		}
		if _, ok := c.modules[r.ModuleID]; !ok {
			return nil, &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("%q references missing module %d", r.Code, r.ModuleID)}
		}
		if _, dup := c.resourcesByCode[r.Code]; dup {
			return nil, &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("duplicate code %q", r.Code)}
		}
		c.resources[r.ID] = r
		c.resourcesByCode[r.Code] = r
	}

	// Parent links are validated after all resources are indexed so ordering
	// of the input slice does not matter.
	for _, r := range c.resources {
		if r.ParentID == nil {
			continue
		}
		parent, ok := c.resources[*r.ParentID]
		if !ok {
			return nil, &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("%q references missing parent %d", r.Code, *r.ParentID)}
		}
		if parent.ModuleID != r.ModuleID {
			return nil, &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("%q parent crosses module boundary", r.Code)}
		}
		if err := c.checkAcyclic(r); err != nil {
			return nil, err
		}
	}

	for i := range permissions {
		p := &permissions[i]
		if !p.Action.Valid() {
			return nil, &ConfigurationError{Entity: "permission", Reason: fmt.Sprintf("unknown action %q", p.Action)}
		}
		if _, ok := c.resources[p.ResourceID]; !ok {
			// Permission on a tombstoned resource; unreachable, skip.
			continue
		}
		byAction := c.permsByResource[p.ResourceID]
		if byAction == nil {
			byAction = make(map[Action]*Permission)
			c.permsByResource[p.ResourceID] = byAction
		}
		if _, dup := byAction[p.Action]; dup {
			return nil, &ConfigurationError{Entity: "permission", Reason: fmt.Sprintf("duplicate action %q on resource %d", p.Action, p.ResourceID)}
		}
		byAction[p.Action] = p
		c.permissions[p.ID] = p
	}

	for i := range roles {
		r := &roles[i]
		if r.State == LifecycleDeleted {
			continue
		}
		c.roles[r.ID] = r
	}

	return c, nil
}

func (c *Catalog) checkAcyclic(start *Resource) error {
	cur := start
	for depth := 0; cur.ParentID != nil; depth++ {
		if depth >= MaxTreeDepth {
			return &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("%q parent chain exceeds depth %d (cycle?)", start.Code, MaxTreeDepth)}
		}
		next := c.resources[*cur.ParentID]
		if next == nil {
			return nil // missing parent reported elsewhere
		}
		if next.ID == start.ID {
			return &ConfigurationError{Entity: "resource", Reason: fmt.Sprintf("%q parent chain forms a cycle", start.Code)}
		}
		cur = next
	}
	return nil
}

// Resource looks a live resource up by code.
func (c *Catalog) Resource(code string) (*Resource, bool) {
	r, ok := c.resourcesByCode[code]
	return r, ok
}

// ResourceByID looks a live resource up by id.
func (c *Catalog) ResourceByID(id int64) (*Resource, bool) {
	r, ok := c.resources[id]
	return r, ok
}

// Module looks a live module up by id.
func (c *Catalog) Module(id int64) (*Module, bool) {
	m, ok := c.modules[id]
	return m, ok
}

// ModuleByCode looks a live module up by code.
func (c *Catalog) ModuleByCode(code string) (*Module, bool) {
	m, ok := c.modulesByCode[code]
	return m, ok
}

// Role looks a live role up by id.
func (c *Catalog) Role(id int64) (*Role, bool) {
	r, ok := c.roles[id]
	return r, ok
}

// Ancestors returns the resource's ancestor chain ordered root to leaf,
// excluding the resource itself. The walk is bounded by MaxTreeDepth.
func (c *Catalog) Ancestors(resourceID int64) []*Resource {
	var chain []*Resource
	cur, ok := c.resources[resourceID]
	if !ok {
		return nil
	}
	for depth := 0; cur.ParentID != nil && depth < MaxTreeDepth; depth++ {
		parent, ok := c.resources[*cur.ParentID]
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	// Walked leaf-up; reverse to root-to-leaf order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Permission returns the active permission for (resourceID, action), or nil
// when none is defined. Inactive permission rows count as undefined.
func (c *Catalog) Permission(resourceID int64, action Action) *Permission {
	p := c.permsByResource[resourceID][action]
	if p == nil || !p.IsActive {
		return nil
	}
	return p
}

// HasPermission reports whether the resource defines any permission rows at
// all (active or not). Hierarchical fallback only applies to resources that
// declare no permission for the action, which this distinguishes from
// resources whose permission row exists but is inactive.
func (c *Catalog) HasPermission(resourceID int64, action Action) bool {
	_, ok := c.permsByResource[resourceID][action]
	return ok
}

// Permissions returns the permissions defined on a resource sorted by
// action, for administrative listings.
func (c *Catalog) Permissions(resourceID int64) []*Permission {
	byAction := c.permsByResource[resourceID]
	out := make([]*Permission, 0, len(byAction))
	for _, p := range byAction {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}
