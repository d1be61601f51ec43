// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type memRepo struct {
	users map[string]*User
}

func newMemRepo(users ...User) *memRepo {
	m := &memRepo{users: map[string]*User{}}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *memRepo) Upsert(_ context.Context, u *User) (bool, error) {
	existing, ok := m.users[u.ID]
	if ok {
		existing.Username, existing.Email = u.Username, u.Email
		if u.Role != "" {
			existing.Role = u.Role
		}
		*u = *existing
		return false, nil
	}
	if u.Role == "" {
		u.Role = rbac.RoleUser
	}
	u.IsActive = true
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return true, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetRole(ctx context.Context, id string) (rbac.Role, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (m *memRepo) List(context.Context, ListUsersParams) ([]User, int, error) {
	return nil, 0, nil
}

func (m *memRepo) ListActivity(context.Context) ([]UserActivity, error) {
	out := []UserActivity{}
	for _, u := range m.users {
		out = append(out, UserActivity{User: *u})
	}
	return out, nil
}

func (m *memRepo) ListByRole(_ context.Context, role rbac.Role) ([]User, error) {
	out := []User{}
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateRole(_ context.Context, id string, role rbac.Role) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memRepo) CountActiveByRole(_ context.Context, role rbac.Role) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.Role == role && u.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) RoleStatistics(context.Context) ([]RoleCount, error) {
	counts := map[rbac.Role]int{}
	for _, u := range m.users {
		counts[u.Role]++
	}
	out := []RoleCount{}
	for _, r := range rbac.All() {
		if counts[r] > 0 {
			out = append(out, RoleCount{Role: r, Count: counts[r]})
		}
	}
	return out, nil
}

type fakeIDP struct {
	metadata  map[string]map[string]any
	deleted   []string
	updateErr error
	deleteErr error
}

func (f *fakeIDP) AdminUpdateUserMetadata(_ context.Context, id string, meta map[string]any) (*identity.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.metadata == nil {
		f.metadata = map[string]map[string]any{}
	}
	f.metadata[id] = meta
	return &identity.User{ID: id, UserMetadata: meta}, nil
}

func (f *fakeIDP) AdminDeleteUser(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

const (
	superID  = "00000000-0000-0000-0000-000000000001"
	super2ID = "00000000-0000-0000-0000-000000000002"
	adminID  = "00000000-0000-0000-0000-000000000003"
	admin2ID = "00000000-0000-0000-0000-000000000004"
	userID   = "00000000-0000-0000-0000-000000000005"
)

func seedUsers() []User {
	return []User{
		{ID: superID, Email: "root@example.com", Role: rbac.RoleSuperAdmin, IsActive: true},
		{ID: super2ID, Email: "root2@example.com", Role: rbac.RoleSuperAdmin, IsActive: true},
		{ID: adminID, Email: "admin@example.com", Role: rbac.RoleAdmin, IsActive: true},
		{ID: admin2ID, Email: "admin2@example.com", Role: rbac.RoleAdmin, IsActive: true},
		{ID: userID, Email: "user@example.com", Role: rbac.RoleUser, IsActive: true},
	}
}

func newTestService(idp *fakeIDP) (*Service, *memRepo) {
	repo := newMemRepo(seedUsers()...)
	return NewService(repo, idp, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func appStatus(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := core.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.StatusCode
}

func TestSyncFromPrincipal(t *testing.T) {
	svc, repo := newTestService(&fakeIDP{})
	ctx := context.Background()

	p := &middleware.VerifiedPrincipal{
		ID:       "new-user",
		Email:    "Dewi.Lestari@Example.com",
		Name:     "Dewi  Lestari",
		RoleHint: "owner",
	}

	u, inserted, err := svc.SyncFromPrincipal(ctx, p)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "dewi_lestari", u.Username)
	assert.Equal(t, "dewi.lestari@example.com", u.Email)
	assert.Equal(t, rbac.RoleUser, u.Role)

	p.RoleHint = "admin"
	p.Name = ""
	u, inserted, err = svc.SyncFromPrincipal(ctx, p)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "dewi.lestari", u.Username)
	assert.Equal(t, rbac.RoleAdmin, repo.users["new-user"].Role)
	assert.Len(t, repo.users, len(seedUsers())+1)

	for _, hint := range []string{"", "owner"} {
		p.RoleHint = hint
		u, _, err = svc.SyncFromPrincipal(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, rbac.RoleAdmin, u.Role, "hint %q keeps the mirrored role", hint)
	}
}

func TestSyncKeepsSuperAdminWithoutMetadataRole(t *testing.T) {
	svc, repo := newTestService(&fakeIDP{})
	ctx := context.Background()

	_, _, err := svc.SyncFromPrincipal(ctx, &middleware.VerifiedPrincipal{ID: superID, Email: "root@example.com"})
	require.NoError(t, err)

	n, err := repo.CountActiveByRole(ctx, rbac.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, rbac.RoleSuperAdmin, repo.users[superID].Role)
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "budi_santoso", DeriveUsername(" Budi \t Santoso ", "x@y.z"))
	assert.Equal(t, "budi", DeriveUsername("", "budi@example.com"))
}

func TestChangeRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		target  string
		role    string
		status  int
		message string
	}{
		{"empty role", Actor{superID, rbac.RoleSuperAdmin}, userID, " ", http.StatusBadRequest, "Role wajib diisi"},
		{"invalid role", Actor{superID, rbac.RoleSuperAdmin}, userID, "owner", http.StatusBadRequest, ""},
		{"self demotion", Actor{superID, rbac.RoleSuperAdmin}, superID, "admin", http.StatusForbidden, "Superadmin tidak dapat menurunkan role dirinya sendiri"},
		{"admin grants superadmin", Actor{adminID, rbac.RoleAdmin}, userID, "superadmin", http.StatusForbidden, "Hanya superadmin yang dapat memberikan role superadmin"},
		{"missing target", Actor{superID, rbac.RoleSuperAdmin}, "00000000-0000-0000-0000-00000000dead", "admin", http.StatusNotFound, "User tidak ditemukan"},
		{"admin on admin", Actor{adminID, rbac.RoleAdmin}, admin2ID, "user", http.StatusForbidden, ""},
		{"superadmin on superadmin", Actor{superID, rbac.RoleSuperAdmin}, super2ID, "admin", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := &fakeIDP{}
			svc, repo := newTestService(idp)
			before := repo.users[tt.target]

			_, err := svc.ChangeRole(context.Background(), tt.actor, tt.target, tt.role)
			require.Error(t, err)
			assert.Equal(t, tt.status, appStatus(t, err))
			if tt.message != "" {
				appErr, _ := core.AsAppError(err)
				assert.Equal(t, tt.message, appErr.Message)
			}

			assert.Empty(t, idp.metadata, "provider must not be touched on rejection")
			if before != nil {
				assert.Equal(t, seedRole(tt.target), repo.users[tt.target].Role)
			}
		})
	}
}

func seedRole(id string) rbac.Role {
	for _, u := range seedUsers() {
		if u.ID == id {
			return u.Role
		}
	}
	return ""
}

func TestChangeRoleSuccessUpdatesProviderThenMirror(t *testing.T) {
	idp := &fakeIDP{}
	svc, repo := newTestService(idp)

	res, err := svc.ChangeRole(context.Background(), Actor{superID, rbac.RoleSuperAdmin}, userID, "Admin")
	require.NoError(t, err)

	assert.Equal(t, rbac.RoleUser, res.OldRole)
	assert.Equal(t, rbac.RoleAdmin, res.NewRole)
	assert.Equal(t, superID, res.UpdatedBy)
	assert.Equal(t, rbac.PermissionsFor(rbac.RoleAdmin), res.Permissions)
	assert.Equal(t, "admin", idp.metadata[userID]["role"])
	assert.Equal(t, rbac.RoleAdmin, repo.users[userID].Role)
}

type recordingHook struct {
	calls []rbac.Role
	err   error
}

func (h *recordingHook) OnRoleChanged(_ context.Context, _ string, oldRole, newRole rbac.Role) error {
	h.calls = append(h.calls, oldRole, newRole)
	return h.err
}

func TestChangeRoleRunsHookAfterCommit(t *testing.T) {
	svc, repo := newTestService(&fakeIDP{})
	hook := &recordingHook{err: errors.New("enroll failed")}
	svc.SetRoleHook(hook)

	_, err := svc.ChangeRole(context.Background(), Actor{superID, rbac.RoleSuperAdmin}, userID, "superadmin")
	require.NoError(t, err, "hook failure must not fail the role change")
	assert.Equal(t, []rbac.Role{rbac.RoleUser, rbac.RoleSuperAdmin}, hook.calls)
	assert.Equal(t, rbac.RoleSuperAdmin, repo.users[userID].Role)

	hook.calls = nil
	_, err = svc.ChangeRole(context.Background(), Actor{adminID, rbac.RoleAdmin}, admin2ID, "user")
	require.Error(t, err)
	assert.Empty(t, hook.calls)
}

func TestChangeRoleAdminMayDemoteSelf(t *testing.T) {
	svc, repo := newTestService(&fakeIDP{})

	_, err := svc.ChangeRole(context.Background(), Actor{adminID, rbac.RoleAdmin}, adminID, "user")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, repo.users[adminID].Role)
}

func TestChangeRoleProviderFailureLeavesMirror(t *testing.T) {
	idp := &fakeIDP{updateErr: &identity.ProviderError{Status: 422, Msg: "User not allowed"}}
	svc, repo := newTestService(idp)

	_, err := svc.ChangeRole(context.Background(), Actor{superID, rbac.RoleSuperAdmin}, userID, "admin")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
	appErr, _ := core.AsAppError(err)
	assert.Equal(t, "User not allowed", appErr.Message)
	assert.Equal(t, rbac.RoleUser, repo.users[userID].Role)

	idp.updateErr = errors.New("dial tcp: timeout")
	_, err = svc.ChangeRole(context.Background(), Actor{superID, rbac.RoleSuperAdmin}, userID, "admin")
	assert.Equal(t, http.StatusInternalServerError, appStatus(t, err))
}

func TestSuperAdminCountNeverDropsToZeroThroughRoleChanges(t *testing.T) {
	svc, repo := newTestService(&fakeIDP{})
	ctx := context.Background()

	actors := []Actor{
		{superID, rbac.RoleSuperAdmin},
		{super2ID, rbac.RoleSuperAdmin},
		{adminID, rbac.RoleAdmin},
	}
	for _, actor := range actors {
		for _, target := range []string{superID, super2ID} {
			for _, role := range []string{"admin", "user"} {
				_, _ = svc.ChangeRole(ctx, actor, target, role)
			}
		}
	}

	n, err := repo.CountActiveByRole(ctx, rbac.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("self delete is forbidden", func(t *testing.T) {
		svc, _ := newTestService(&fakeIDP{})
		_, err := svc.DeleteUser(ctx, Actor{superID, rbac.RoleSuperAdmin}, superID)
		assert.Equal(t, http.StatusForbidden, appStatus(t, err))
	})

	t.Run("provider first then mirror", func(t *testing.T) {
		idp := &fakeIDP{}
		svc, repo := newTestService(idp)
		_, err := svc.DeleteUser(ctx, Actor{superID, rbac.RoleSuperAdmin}, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{userID}, idp.deleted)
		assert.NotContains(t, repo.users, userID)
	})

	t.Run("provider refusal keeps mirror", func(t *testing.T) {
		idp := &fakeIDP{deleteErr: &identity.ProviderError{Status: 400, Msg: "nope"}}
		svc, repo := newTestService(idp)
		_, err := svc.DeleteUser(ctx, Actor{superID, rbac.RoleSuperAdmin}, userID)
		assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
		assert.Contains(t, repo.users, userID)
	})

	t.Run("last active superadmin is kept", func(t *testing.T) {
		svc, repo := newTestService(&fakeIDP{})
		repo.users[superID].IsActive = false
		_, err := svc.DeleteUser(ctx, Actor{superID, rbac.RoleSuperAdmin}, super2ID)
		assert.Equal(t, http.StatusConflict, appStatus(t, err))
	})
}

func TestRoleOverviewAndStatistics(t *testing.T) {
	svc, _ := newTestService(&fakeIDP{})
	ctx := context.Background()

	overview, err := svc.RoleOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, overview.Count)
	assert.Len(t, overview.GroupedByRole[rbac.RoleSuperAdmin], 2)
	assert.Equal(t, 1, overview.Statistics["user"])

	stats, err := svc.RoleStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.ByRole[rbac.RoleAdmin].Count)

	_, err = svc.UsersByRole(ctx, "owner")
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
}
