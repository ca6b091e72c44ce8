package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentIndexFind(t *testing.T) {
	now := time.Now()
	rows := []Assignment{
		grant(1, fixRoleAdmin, fixPermEmployeesView),
		grant(2, fixRoleViewer, fixPermEmployeesView),
		deny(3, fixRoleAdmin, fixPermEmployeesDelete),
	}
	// Expired an hour ago.
	expired := grant(4, fixRoleAdmin, fixPermEmployeesView)
	expired.ExpiresAt = timeptr(now.Add(-time.Hour))
	rows = append(rows, expired)
	// Different workspace, same role and permission.
	foreign := grant(5, fixRoleAdmin, fixPermEmployeesView)
	foreign.WorkspaceID = 999
	rows = append(rows, foreign)

	idx := NewAssignmentIndex(fixWorkspace, rows)

	found := idx.Find([]int64{fixRoleAdmin, fixRoleViewer}, fixPermEmployeesView, now)
	require.Len(t, found, 2)
	ids := []int64{found[0].ID, found[1].ID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	found = idx.Find([]int64{fixRoleViewer}, fixPermEmployeesView, now)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ID)

	assert.Empty(t, idx.Find([]int64{fixRoleViewer}, fixPermEmployeesDelete, now), "role not bound")
	assert.Empty(t, idx.Find(nil, fixPermEmployeesView, now), "no roles")
	assert.Empty(t, idx.Find([]int64{fixRoleAdmin}, 404, now), "unknown permission")
}

func TestAssignmentExpiryBoundary(t *testing.T) {
	now := time.Now()
	a := grant(1, fixRoleAdmin, fixPermEmployeesView)

	a.ExpiresAt = nil
	assert.False(t, a.Expired(now), "no expiry never lapses")

	a.ExpiresAt = timeptr(now)
	assert.True(t, a.Expired(now), "expiry at the instant of the check counts as lapsed")

	a.ExpiresAt = timeptr(now.Add(time.Second))
	assert.False(t, a.Expired(now))

	idx := NewAssignmentIndex(fixWorkspace, []Assignment{a})
	assert.Len(t, idx.Find([]int64{fixRoleAdmin}, fixPermEmployeesView, now), 1)
	assert.Empty(t, idx.Find([]int64{fixRoleAdmin}, fixPermEmployeesView, now.Add(2*time.Second)),
		"the same cached row lapses once the clock passes expiry")
}
