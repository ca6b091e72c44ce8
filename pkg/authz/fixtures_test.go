package authz

import (
	"context"
	"sync"
	"time"
)

// memLoader is an in-memory Loader for snapshot and resolver tests. Fields
// may be swapped between calls to simulate mutations; error fields inject
// load failures.
type memLoader struct {
	mu          sync.Mutex
	data        CatalogData
	enablement  []Enablement
	assignments []Assignment

	catalogErr error
	loads      int
}

func (l *memLoader) LoadCatalog(_ context.Context, _ int64) (*CatalogData, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	if l.catalogErr != nil {
		return nil, l.catalogErr
	}
	data := l.data
	return &data, nil
}

func (l *memLoader) LoadEnablement(_ context.Context, workspaceID int64) ([]Enablement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Enablement
	for _, e := range l.enablement {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *memLoader) LoadAssignments(_ context.Context, workspaceID int64) ([]Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Assignment
	for _, a := range l.assignments {
		if a.WorkspaceID == workspaceID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (l *memLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// Fixture entity IDs, stable across the test files.
const (
	fixModuleHR      int64 = 1
	fixModuleFinance int64 = 2

	fixResEmployees      int64 = 10 // hr.employees, root
	fixResEmployeesList  int64 = 11 // child of employees
	fixResEmployeesPurge int64 = 12 // child of employees, no own permissions
	fixResHolidays       int64 = 13 // public
	fixResInvoices       int64 = 20 // finance root

	fixPermEmployeesView   int64 = 100 // view on employees
	fixPermEmployeesDelete int64 = 101 // delete on employees
	fixPermListView        int64 = 102 // view on employees list
	fixPermInvoicesView    int64 = 110 // view on invoices

	fixRoleAdmin    int64 = 200
	fixRoleViewer   int64 = 201
	fixRoleDisabled int64 = 202

	fixWorkspace int64 = 1
	fixCompany   int64 = 7
)

// fixtureData builds the baseline catalog used by snapshot and resolver
// tests: an hr module with an employees subtree plus a public resource, and
// a finance module with one resource.
func fixtureData() CatalogData {
	parent := func(id int64) *int64 { return &id }
	return CatalogData{
		Modules: []Module{
			{ID: fixModuleHR, Code: "hr", Name: "HR", Category: CategoryHR, IsActive: true, State: LifecycleActive},
			{ID: fixModuleFinance, Code: "finance", Name: "Finance", Category: CategoryFinance, IsActive: true, State: LifecycleActive},
		},
		Resources: []Resource{
			{ID: fixResEmployees, ModuleID: fixModuleHR, Code: "hr.employees", Name: "Employees", Type: ResourceTypeFeature, IsActive: true, State: LifecycleActive},
			{ID: fixResEmployeesList, ModuleID: fixModuleHR, ParentID: parent(fixResEmployees), Code: "hr.employees.list", Name: "Employee List", Type: ResourceTypePage, IsActive: true, State: LifecycleActive},
			{ID: fixResEmployeesPurge, ModuleID: fixModuleHR, ParentID: parent(fixResEmployees), Code: "hr.employees.purge", Name: "Purge Employee", Type: ResourceTypeAction, IsActive: true, State: LifecycleActive},
			{ID: fixResHolidays, ModuleID: fixModuleHR, Code: "hr.holidays", Name: "Holiday Calendar", Type: ResourceTypePage, IsPublic: true, IsActive: true, State: LifecycleActive},
			{ID: fixResInvoices, ModuleID: fixModuleFinance, Code: "finance.invoices", Name: "Invoices", Type: ResourceTypeFeature, IsActive: true, State: LifecycleActive},
		},
		Permissions: []Permission{
			{ID: fixPermEmployeesView, ResourceID: fixResEmployees, Action: ActionView, IsActive: true},
			{ID: fixPermEmployeesDelete, ResourceID: fixResEmployees, Action: ActionDelete, IsActive: true},
			{ID: fixPermListView, ResourceID: fixResEmployeesList, Action: ActionView, IsActive: true},
			{ID: fixPermInvoicesView, ResourceID: fixResInvoices, Action: ActionView, IsActive: true},
		},
		Roles: []Role{
			{ID: fixRoleAdmin, Code: "admin", Name: "Admin", Scope: RoleScopeWorkspace, WorkspaceID: int64ptr(fixWorkspace), IsActive: true, State: LifecycleActive},
			{ID: fixRoleViewer, Code: "viewer", Name: "Viewer", Scope: RoleScopeWorkspace, WorkspaceID: int64ptr(fixWorkspace), IsActive: true, State: LifecycleActive},
			{ID: fixRoleDisabled, Code: "dormant", Name: "Dormant", Scope: RoleScopeWorkspace, WorkspaceID: int64ptr(fixWorkspace), IsActive: false, State: LifecycleActive},
		},
	}
}

func int64ptr(v int64) *int64 { return &v }

func timeptr(t time.Time) *time.Time { return &t }

func grant(id, roleID, permissionID int64) Assignment {
	return Assignment{
		ID: id, RoleID: roleID, PermissionID: permissionID,
		WorkspaceID: fixWorkspace, IsGranted: true, GrantedBy: 1,
		GrantedAt: time.Now().Add(-time.Hour),
	}
}

func deny(id, roleID, permissionID int64) Assignment {
	a := grant(id, roleID, permissionID)
	a.IsGranted = false
	return a
}

// newTestResolver wires a resolver over a memory loader and version source.
func newTestResolver(loader *memLoader, cfg ResolverConfig) (*Resolver, *MemoryVersions, *Manager) {
	versions := NewMemoryVersions()
	mgr, err := NewManager(loader, versions, ManagerConfig{MaxWorkspaces: 8}, nil, nil)
	if err != nil {
		panic(err)
	}
	return NewResolver(mgr, nil, nil, nil, cfg), versions, mgr
}
