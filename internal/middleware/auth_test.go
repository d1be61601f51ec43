// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type stubVerifier struct {
	principal *VerifiedPrincipal
	err       error
	calls     int
}

func (s *stubVerifier) VerifyToken(_ context.Context, _ string) (*VerifiedPrincipal, error) {
	s.calls++
	return s.principal, s.err
}

type stubResolver struct {
	role rbac.Role
	err  error
}

func (s stubResolver) ResolveRole(_ context.Context, _ string) (rbac.Role, error) {
	return s.role, s.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) core.Response {
	t.Helper()
	var body core.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func captureIdentity(dst **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	verifier := &stubVerifier{}
	var got *Identity

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		Authenticator(verifier, nil)(captureIdentity(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		body := decodeBody(t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, "No authorization token provided", body.Error)
	}

	assert.Zero(t, verifier.calls)
	assert.Nil(t, got)
}

func TestAuthenticatorErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"rejected token", core.ErrTokenInvalid, http.StatusUnauthorized, "Invalid or expired token"},
		{"expired token", fmt.Errorf("verify: %w", core.ErrTokenExpired), http.StatusUnauthorized, "Invalid or expired token"},
		{"provider outage", errors.New("connection refused"), http.StatusInternalServerError, "Authentication failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer tok")
			rec := httptest.NewRecorder()

			var got *Identity
			Authenticator(&stubVerifier{err: tt.err}, nil)(captureIdentity(&got)).
				ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec).Error)
			assert.Nil(t, got)
		})
	}
}

func TestAuthenticatorRoleResolution(t *testing.T) {
	principal := &VerifiedPrincipal{
		ID:       "u-1",
		Email:    "budi@example.com",
		RoleHint: "admin",
	}

	tests := []struct {
		name     string
		resolver RoleResolver
		want     rbac.Role
	}{
		{"local mirror wins over metadata", stubResolver{role: rbac.RoleUser}, rbac.RoleUser},
		{"metadata used when not mirrored", stubResolver{err: core.ErrNotFound}, rbac.RoleAdmin},
		{"metadata used on lookup failure", stubResolver{err: errors.New("db down")}, rbac.RoleAdmin},
		{"no resolver", nil, rbac.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer tok")
			rec := httptest.NewRecorder()

			var got *Identity
			Authenticator(&stubVerifier{principal: principal}, tt.resolver)(
				captureIdentity(&got),
			).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Role)
			assert.Equal(t, "budi@example.com", got.Name)
		})
	}
}

func TestAuthenticatorDefaultsUnknownMetadataRoleToUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer tok")
	rec := httptest.NewRecorder()

	var got *Identity
	Authenticator(&stubVerifier{principal: &VerifiedPrincipal{
		ID: "u-2", Email: "x@example.com", Name: "Siti", RoleHint: "owner",
	}}, stubResolver{err: core.ErrNotFound})(captureIdentity(&got)).ServeHTTP(rec, req)

	require.NotNil(t, got)
	assert.Equal(t, rbac.RoleUser, got.Role)
	assert.Equal(t, "Siti", got.Name)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		role   rbac.Role
		guard  func(http.Handler) http.Handler
		status int
	}{
		{"anonymous", "", RequireAdmin, http.StatusUnauthorized},
		{"user on admin route", rbac.RoleUser, RequireAdmin, http.StatusForbidden},
		{"admin on admin route", rbac.RoleAdmin, RequireAdmin, http.StatusOK},
		{"superadmin on admin route", rbac.RoleSuperAdmin, RequireAdmin, http.StatusOK},
		{"admin on superadmin route", rbac.RoleAdmin, RequireSuperAdmin, http.StatusForbidden},
		{"superadmin on superadmin route", rbac.RoleSuperAdmin, RequireSuperAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				req = req.WithContext(WithIdentity(req.Context(), &Identity{ID: "u", Role: tt.role}))
			}
			rec := httptest.NewRecorder()

			tt.guard(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				body := decodeBody(t, rec)
				assert.Equal(t, string(tt.role), body.Details["yourRole"])
			}
		})
	}
}
