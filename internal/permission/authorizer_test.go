// AngelaMos | 2026
// authorizer_test.go

package permission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

var allActions = []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := core.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.StatusCode
}

func TestPerUserSuperAdminBypass(t *testing.T) {
	store := newMemStore()
	a := NewPerUserGrantAuthorizer(store)
	ctx := context.Background()

	// a stale all-false row must not change the bypass
	_, err := store.Upsert(ctx, Grant{UserID: superID, ModuleID: "mod-keuangan"})
	require.NoError(t, err)

	for _, mod := range store.modules {
		for _, action := range allActions {
			err := a.Authorize(ctx, Subject{UserID: superID, Role: rbac.RoleSuperAdmin},
				Rule{Module: mod.Code, Action: action})
			assert.NoError(t, err, "%s:%s", mod.Code, action)
		}
	}
}

func TestPerUserDefaultDeny(t *testing.T) {
	a := NewPerUserGrantAuthorizer(newMemStore())

	for _, role := range []rbac.Role{rbac.RoleUser, rbac.RoleAdmin} {
		for _, action := range allActions {
			err := a.Authorize(context.Background(), Subject{UserID: userID, Role: role},
				Rule{Module: "keuangan", Action: action})
			require.Error(t, err)
			assert.Equal(t, http.StatusForbidden, statusOf(t, err))
		}
	}
}

func TestPerUserGrantFlags(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	_, err := store.Upsert(ctx, Grant{
		UserID:   userID,
		ModuleID: "mod-penjualan",
		Grants:   Grants{View: true, Update: true},
	})
	require.NoError(t, err)

	a := NewPerUserGrantAuthorizer(store)
	subject := Subject{UserID: userID, Role: rbac.RoleUser}

	assert.NoError(t, a.Authorize(ctx, subject, Rule{Module: "penjualan", Action: ActionView}))
	assert.NoError(t, a.Authorize(ctx, subject, Rule{Module: "penjualan", Action: ActionUpdate}))

	err = a.Authorize(ctx, subject, Rule{Module: "penjualan", Action: ActionDelete})
	require.Error(t, err)
	appErr, _ := core.AsAppError(err)
	assert.Equal(t, "You do not have delete permission for module penjualan", appErr.Message)

	store.deactivate("penjualan")
	err = a.Authorize(ctx, subject, Rule{Module: "penjualan", Action: ActionView})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestStaticAuthorizer(t *testing.T) {
	a := NewStaticRoleAuthorizer()
	ctx := context.Background()

	tests := []struct {
		name   string
		role   rbac.Role
		rule   Rule
		status int
	}{
		{"user reads finance", rbac.RoleUser, Rule{Key: rbac.KeuanganRead}, 0},
		{"user cannot complete sale", rbac.RoleUser, Rule{Key: rbac.PenjualanComplete}, http.StatusForbidden},
		{"admin completes sale", rbac.RoleAdmin, Rule{Key: rbac.PenjualanComplete}, 0},
		{"admin cannot change roles", rbac.RoleAdmin, Rule{Key: rbac.UsersUpdateRole}, http.StatusForbidden},
		{"derived key", rbac.RoleUser, Rule{Module: "properti", Action: ActionView}, 0},
		{"unknown key", rbac.RoleSuperAdmin, Rule{Key: "LAPORAN_EXPORT"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(ctx, Subject{UserID: userID, Role: tt.role}, tt.rule)
			if tt.status == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.status, statusOf(t, err))
		})
	}
}

func TestStaticDenialDetails(t *testing.T) {
	err := NewStaticRoleAuthorizer().Authorize(context.Background(),
		Subject{UserID: userID, Role: rbac.RoleUser},
		Rule{Key: rbac.PersediaanTransaction})
	require.Error(t, err)

	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "You do not have permission to perform this action", appErr.Message)
	assert.Equal(t, rbac.PersediaanTransaction, appErr.Details["required"])
	assert.Equal(t, rbac.RoleUser, appErr.Details["yourRole"])
	assert.ElementsMatch(t, []rbac.Role{rbac.RoleSuperAdmin, rbac.RoleAdmin}, appErr.Details["allowedRoles"])
}

func TestSelectorRoutesByModule(t *testing.T) {
	store := newMemStore()
	sel := NewSelector(NewStaticRoleAuthorizer(), NewPerUserGrantAuthorizer(store), []string{"Penjualan"})

	assert.Equal(t, StrategyPerUser, sel.Strategy("penjualan"))
	assert.Equal(t, StrategyStatic, sel.Strategy("keuangan"))

	ctx := context.Background()
	admin := Subject{UserID: adminID, Role: rbac.RoleAdmin}

	// the static table would allow this, the missing row does not
	err := sel.Authorize(ctx, admin, Rule{Module: "penjualan", Action: ActionUpdate, Key: rbac.PenjualanComplete})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	assert.NoError(t, sel.Authorize(ctx, admin, Rule{Module: "keuangan", Action: ActionCreate}))
}

func TestRequireMiddleware(t *testing.T) {
	handler := Require(NewStaticRoleAuthorizer(), Rule{Key: rbac.PenjualanComplete})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(middleware.WithIdentity(req.Context(),
			&middleware.Identity{ID: userID, Role: rbac.RoleUser}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body core.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, "You do not have permission to perform this action", body.Error)
	})

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(middleware.WithIdentity(req.Context(),
			&middleware.Identity{ID: adminID, Role: rbac.RoleAdmin}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
