// AngelaMos | 2026
// provisioner_test.go

package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

var catalog = []string{
	"dashboard", "keuangan", "properti", "penjualan",
	"persediaan", "users", "roles", "divisions",
}

type memGrants struct {
	modules []permission.Module
	rows    map[string]map[string]permission.Grants
	granted map[string]bool
	seedErr error
}

func newMemGrants() *memGrants {
	g := &memGrants{
		rows:    map[string]map[string]permission.Grants{},
		granted: map[string]bool{},
	}
	for _, code := range catalog {
		g.modules = append(g.modules, permission.Module{ID: "mod-" + code, Code: code})
	}
	return g
}

func (g *memGrants) ActiveModules(context.Context) ([]permission.Module, error) {
	return g.modules, nil
}

func (g *memGrants) Seed(_ context.Context, grant permission.Grant) (bool, error) {
	if g.seedErr != nil {
		return false, g.seedErr
	}
	if g.rows[grant.UserID] == nil {
		g.rows[grant.UserID] = map[string]permission.Grants{}
	}
	if _, ok := g.rows[grant.UserID][grant.ModuleID]; ok {
		return false, nil
	}
	g.rows[grant.UserID][grant.ModuleID] = grant.Grants
	return true, nil
}

func (g *memGrants) ResetDefault(_ context.Context, grant permission.Grant) (bool, error) {
	if g.seedErr != nil {
		return false, g.seedErr
	}
	if g.granted[grant.UserID+"/"+grant.ModuleID] {
		return false, nil
	}
	if g.rows[grant.UserID] == nil {
		g.rows[grant.UserID] = map[string]permission.Grants{}
	}
	g.rows[grant.UserID][grant.ModuleID] = grant.Grants
	return true, nil
}

// grant records a row written by an actor rather than by provisioning.
func (g *memGrants) grant(userID, moduleID string, grants permission.Grants) {
	if g.rows[userID] == nil {
		g.rows[userID] = map[string]permission.Grants{}
	}
	g.rows[userID][moduleID] = grants
	g.granted[userID+"/"+moduleID] = true
}

func (g *memGrants) DeleteForUser(_ context.Context, userID string) (int64, error) {
	n := int64(len(g.rows[userID]))
	delete(g.rows, userID)
	return n, nil
}

type memDivisions struct {
	active  []string
	members map[string]map[string]bool
}

func newMemDivisions(ids ...string) *memDivisions {
	return &memDivisions{active: ids, members: map[string]map[string]bool{}}
}

func (d *memDivisions) ActiveIDs(context.Context) ([]string, error) {
	return d.active, nil
}

func (d *memDivisions) Enroll(_ context.Context, userID, divisionID string) (bool, error) {
	if d.members[userID] == nil {
		d.members[userID] = map[string]bool{}
	}
	if _, ok := d.members[userID][divisionID]; ok {
		return false, nil
	}
	d.members[userID][divisionID] = false
	return true, nil
}

func newTestProvisioner() (*Provisioner, *memGrants, *memDivisions) {
	grants := newMemGrants()
	divisions := newMemDivisions("div-sales", "div-finance", "div-wh")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvisioner(grants, divisions, NewPolicy(nil), logger), grants, divisions
}

func TestDefaultGrants(t *testing.T) {
	p := NewPolicy(nil)

	for _, code := range catalog {
		admin := p.DefaultGrants(rbac.RoleAdmin, code)
		assert.True(t, admin.View, code)
		assert.Equal(t, code != RolesModule, admin.Create, code)
		assert.Equal(t, code != RolesModule, admin.Update, code)
		assert.Equal(t, code != RolesModule, admin.Delete, code)

		user := p.DefaultGrants(rbac.RoleUser, code)
		assert.False(t, user.Create || user.Update || user.Delete, code)
	}

	assert.True(t, p.DefaultGrants(rbac.RoleUser, "keuangan").View)
	assert.False(t, p.DefaultGrants(rbac.RoleUser, "users").View)
	assert.Equal(t, permission.FullGrants(), p.DefaultGrants(rbac.RoleSuperAdmin, "roles"))

	custom := NewPolicy([]string{" Dashboard "})
	assert.True(t, custom.DefaultGrants(rbac.RoleUser, "dashboard").View)
	assert.False(t, custom.DefaultGrants(rbac.RoleUser, "keuangan").View)
}

func TestNewUserGetsViewOnlyOperationalModules(t *testing.T) {
	p, grants, divisions := newTestProvisioner()

	res, err := p.OnUserFirstSeen(context.Background(), "u-1", rbac.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, len(catalog), res.GrantsCreated)
	assert.Zero(t, res.DivisionsJoined)
	assert.Empty(t, divisions.members["u-1"])

	var viewable []string
	for _, m := range grants.modules {
		g := grants.rows["u-1"][m.ID]
		if g.View {
			viewable = append(viewable, m.Code)
		}
		assert.False(t, g.Create || g.Update || g.Delete)
	}
	assert.ElementsMatch(t, defaultUserModules, viewable)
}

func TestNewAdminJoinsEveryActiveDivision(t *testing.T) {
	p, grants, divisions := newTestProvisioner()

	res, err := p.OnUserFirstSeen(context.Background(), "a-1", rbac.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DivisionsJoined)
	assert.Len(t, divisions.members["a-1"], 3)
	for _, isAdmin := range divisions.members["a-1"] {
		assert.False(t, isAdmin)
	}

	roles := grants.rows["a-1"]["mod-roles"]
	assert.Equal(t, permission.Grants{View: true}, roles)
	assert.Equal(t, permission.FullGrants(), grants.rows["a-1"]["mod-penjualan"])
}

func TestSuperAdminGetsNoGrantRows(t *testing.T) {
	p, grants, divisions := newTestProvisioner()

	res, err := p.OnUserFirstSeen(context.Background(), "s-1", rbac.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Zero(t, res.GrantsCreated)
	assert.Empty(t, grants.rows["s-1"])
	assert.Len(t, divisions.members["s-1"], 3)
}

func TestProvisioningIsIdempotent(t *testing.T) {
	p, grants, divisions := newTestProvisioner()
	ctx := context.Background()

	for _, role := range rbac.All() {
		id := "id-" + role.String()
		first, err := p.OnUserFirstSeen(ctx, id, role)
		require.NoError(t, err)

		rowsAfterFirst := len(grants.rows[id])
		membersAfterFirst := len(divisions.members[id])

		second, err := p.OnUserFirstSeen(ctx, id, role)
		require.NoError(t, err)
		assert.Zero(t, second.GrantsCreated, role)
		assert.Zero(t, second.DivisionsJoined, role)
		assert.Equal(t, rowsAfterFirst, len(grants.rows[id]), role)
		assert.Equal(t, membersAfterFirst, len(divisions.members[id]), role)
		assert.Equal(t, first.GrantsCreated, rowsAfterFirst, role)
	}
}

func TestProvisioningKeepsCustomizedRows(t *testing.T) {
	p, grants, _ := newTestProvisioner()
	ctx := context.Background()

	grants.rows["u-1"] = map[string]permission.Grants{
		"mod-users": {View: true, Update: true},
	}

	_, err := p.OnUserFirstSeen(ctx, "u-1", rbac.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, permission.Grants{View: true, Update: true}, grants.rows["u-1"]["mod-users"])
}

func TestProvisioningSurfacesStoreErrors(t *testing.T) {
	p, grants, _ := newTestProvisioner()
	grants.seedErr = errors.New("connection reset")

	_, err := p.OnUserFirstSeen(context.Background(), "u-1", rbac.RoleUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, grants.seedErr)
}

func TestOnRoleChanged(t *testing.T) {
	ctx := context.Background()

	t.Run("promotion to superadmin purges rows", func(t *testing.T) {
		p, grants, divisions := newTestProvisioner()
		_, err := p.OnUserFirstSeen(ctx, "u-1", rbac.RoleUser)
		require.NoError(t, err)

		require.NoError(t, p.OnRoleChanged(ctx, "u-1", rbac.RoleUser, rbac.RoleSuperAdmin))
		assert.Empty(t, grants.rows["u-1"])
		assert.Len(t, divisions.members["u-1"], 3)
	})

	t.Run("promotion to admin rewrites provisioned rows", func(t *testing.T) {
		p, grants, divisions := newTestProvisioner()
		_, err := p.OnUserFirstSeen(ctx, "u-1", rbac.RoleUser)
		require.NoError(t, err)
		require.Equal(t, permission.Grants{View: true}, grants.rows["u-1"]["mod-keuangan"])

		require.NoError(t, p.OnRoleChanged(ctx, "u-1", rbac.RoleUser, rbac.RoleAdmin))
		assert.Len(t, divisions.members["u-1"], 3)
		assert.Len(t, grants.rows["u-1"], len(catalog))
		for _, m := range grants.modules {
			assert.Equal(t, p.policy.DefaultGrants(rbac.RoleAdmin, m.Code), grants.rows["u-1"][m.ID], m.Code)
		}
	})

	t.Run("demotion to user drops admin defaults", func(t *testing.T) {
		p, grants, divisions := newTestProvisioner()
		_, err := p.OnUserFirstSeen(ctx, "a-1", rbac.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, permission.FullGrants(), grants.rows["a-1"]["mod-keuangan"])

		require.NoError(t, p.OnRoleChanged(ctx, "a-1", rbac.RoleAdmin, rbac.RoleUser))
		for _, m := range grants.modules {
			g := grants.rows["a-1"][m.ID]
			assert.False(t, g.Create || g.Update || g.Delete, m.Code)
		}
		assert.Equal(t, permission.Grants{View: true}, grants.rows["a-1"]["mod-keuangan"])
		assert.Equal(t, permission.Grants{}, grants.rows["a-1"]["mod-users"])
		assert.Len(t, divisions.members["a-1"], 3)
	})

	t.Run("actor granted rows survive a role change", func(t *testing.T) {
		p, grants, _ := newTestProvisioner()
		_, err := p.OnUserFirstSeen(ctx, "u-1", rbac.RoleUser)
		require.NoError(t, err)
		custom := permission.Grants{View: true, Create: true}
		grants.grant("u-1", "mod-penjualan", custom)

		require.NoError(t, p.OnRoleChanged(ctx, "u-1", rbac.RoleUser, rbac.RoleAdmin))
		assert.Equal(t, custom, grants.rows["u-1"]["mod-penjualan"])
		assert.Equal(t, permission.FullGrants(), grants.rows["u-1"]["mod-properti"])

		require.NoError(t, p.OnRoleChanged(ctx, "u-1", rbac.RoleAdmin, rbac.RoleUser))
		assert.Equal(t, custom, grants.rows["u-1"]["mod-penjualan"])
		assert.Equal(t, permission.Grants{View: true}, grants.rows["u-1"]["mod-properti"])
	})

	t.Run("demotion from superadmin restores admin rows", func(t *testing.T) {
		p, grants, _ := newTestProvisioner()
		_, err := p.OnUserFirstSeen(ctx, "s-1", rbac.RoleSuperAdmin)
		require.NoError(t, err)
		require.Empty(t, grants.rows["s-1"])

		require.NoError(t, p.OnRoleChanged(ctx, "s-1", rbac.RoleSuperAdmin, rbac.RoleAdmin))
		assert.Len(t, grants.rows["s-1"], len(catalog))
		assert.Equal(t, permission.Grants{View: true}, grants.rows["s-1"]["mod-roles"])
	})

	t.Run("same role is a no-op", func(t *testing.T) {
		p, grants, _ := newTestProvisioner()
		require.NoError(t, p.OnRoleChanged(ctx, "u-1", rbac.RoleUser, rbac.RoleUser))
		assert.Empty(t, grants.rows)
	})
}
