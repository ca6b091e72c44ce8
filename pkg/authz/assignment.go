package authz

import (
	"time"
)

// AssignmentIndex holds the assignment rows of one workspace keyed by
// permission. Rows are stored verbatim; expiry is compared against the clock
// at query time so a cached row that has since lapsed never contributes to a
// decision.
type AssignmentIndex struct {
	byPermission map[int64][]*Assignment
}

// NewAssignmentIndex indexes the assignment rows of one workspace.
func NewAssignmentIndex(workspaceID int64, rows []Assignment) *AssignmentIndex {
	idx := &AssignmentIndex{byPermission: make(map[int64][]*Assignment)}
	for i := range rows {
		a := &rows[i]
		if a.WorkspaceID != workspaceID {
			continue
		}
		idx.byPermission[a.PermissionID] = append(idx.byPermission[a.PermissionID], a)
	}
	return idx
}

// Find returns the non-expired assignments binding any of the given roles to
// the permission, as of now. Expired rows are filtered here, never returned
// to the resolver.
func (idx *AssignmentIndex) Find(roleIDs []int64, permissionID int64, now time.Time) []*Assignment {
	rows := idx.byPermission[permissionID]
	if len(rows) == 0 || len(roleIDs) == 0 {
		return nil
	}
	roles := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		roles[id] = struct{}{}
	}
	var out []*Assignment
	for _, a := range rows {
		if _, ok := roles[a.RoleID]; !ok {
			continue
		}
		if a.Expired(now) {
			continue
		}
		out = append(out, a)
	}
	return out
}
