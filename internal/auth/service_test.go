// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/provisioning"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
	"github.com/carterperez-dev/perumahan-api/internal/user"
)

type fakeProvider struct {
	users       map[string]*identity.User
	signUpMeta  map[string]any
	signInErr   error
	signUpErr   error
	resetTo     string
	updatedName string
	signedOut   map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: map[string]*identity.User{
		"token-budi": {
			ID:           "u-budi",
			Email:        "budi@example.com",
			UserMetadata: map[string]any{"name": "Budi Santoso", "role": "admin"},
		},
	}}
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, meta map[string]any) (*identity.SignUpResult, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.signUpMeta = meta
	return &identity.SignUpResult{User: &identity.User{ID: "u-new", Email: email, UserMetadata: meta}}, nil
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, _ string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &identity.Session{
		AccessToken:  "token-budi",
		RefreshToken: "refresh-budi",
		ExpiresAt:    1700000000,
		User:         f.users["token-budi"],
	}, nil
}

func (f *fakeProvider) RefreshSession(_ context.Context, token string) (*identity.Session, error) {
	if token == "stale" {
		return nil, &identity.ProviderError{Status: http.StatusBadRequest, Msg: "Invalid Refresh Token"}
	}
	return &identity.Session{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: 42}, nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	if f.signedOut == nil {
		f.signedOut = map[string]bool{}
	}
	f.signedOut[token] = true
	return nil
}

func (f *fakeProvider) ResetPasswordForEmail(_ context.Context, _, redirectTo string) error {
	f.resetTo = redirectTo
	return nil
}

func (f *fakeProvider) GetUser(_ context.Context, token string) (*identity.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, core.ErrTokenInvalid
	}
	return u, nil
}

func (f *fakeProvider) UpdateUser(_ context.Context, _ string, data map[string]any) (*identity.User, error) {
	f.updatedName, _ = data["name"].(string)
	return &identity.User{ID: "u-budi", UserMetadata: data}, nil
}

type fakeOAuth struct{}

func (fakeOAuth) Begin(_ context.Context, provider, _ string) (*identity.OAuthStart, error) {
	if provider == "myspace" {
		return nil, core.ValidationError("Unsupported OAuth provider: myspace")
	}
	return &identity.OAuthStart{URL: "https://idp.example/authorize", Provider: provider, FlowID: "f-1"}, nil
}

func (fakeOAuth) Complete(_ context.Context, flowID, _ string) (*identity.Session, error) {
	if flowID != "f-1" {
		return nil, core.ValidationError("OAuth flow expired or unknown")
	}
	return &identity.Session{AccessToken: "token-budi"}, nil
}

type fakeMirror struct {
	seen    map[string]rbac.Role
	syncErr error
}

func (m *fakeMirror) SyncFromPrincipal(_ context.Context, p *middleware.VerifiedPrincipal) (*user.User, bool, error) {
	if m.syncErr != nil {
		return nil, false, m.syncErr
	}
	role := rbac.ParseOrUser(p.RoleHint)
	_, existed := m.seen[p.ID]
	m.seen[p.ID] = role
	return &user.User{ID: p.ID, Email: p.Email, Role: role}, !existed, nil
}

type countingProvisioner struct {
	calls []string
	err   error
}

func (c *countingProvisioner) OnUserFirstSeen(_ context.Context, userID string, role rbac.Role) (provisioning.Result, error) {
	c.calls = append(c.calls, userID)
	return provisioning.Result{UserID: userID, Role: role}, c.err
}

func newTestService() (*Service, *fakeProvider, *fakeMirror, *countingProvisioner) {
	provider := newFakeProvider()
	mirror := &fakeMirror{seen: map[string]rbac.Role{}}
	prov := &countingProvisioner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(provider, fakeOAuth{}, mirror, prov, "http://localhost:5173/", logger), provider, mirror, prov
}

func statusOf(t *testing.T, err error) (int, string) {
	t.Helper()
	appErr, ok := core.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.StatusCode, appErr.Message
}

func TestSignUpForcesUserRole(t *testing.T) {
	svc, provider, mirror, prov := newTestService()

	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "Siti@Example.com",
		Password: "rahasia123",
		Name:     "Siti",
		Role:     "superadmin",
	})
	require.NoError(t, err)

	assert.Equal(t, "user", provider.signUpMeta["role"])
	assert.Equal(t, rbac.RoleUser, resp.User.Role)
	assert.Equal(t, "siti@example.com", resp.User.Email)
	assert.Nil(t, resp.Session)
	assert.Equal(t, rbac.RoleUser, mirror.seen["u-new"])
	assert.Equal(t, []string{"u-new"}, prov.calls)
}

func TestSignUpRejectsUnknownRole(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.co", Password: "x", Role: "owner"})
	status, _ := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSignUpProviderRefusal(t *testing.T) {
	svc, provider, _, _ := newTestService()
	provider.signUpErr = &identity.ProviderError{Status: http.StatusUnprocessableEntity, Msg: "User already registered"}

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.co", Password: "secret1"})
	status, msg := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already registered", msg)
}

func TestSignInProvisionsOnlyOnce(t *testing.T) {
	svc, _, _, prov := newTestService()
	ctx := context.Background()

	first, err := svc.SignIn(ctx, SignInRequest{Email: "budi@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, first.User.Role)
	assert.Equal(t, "Budi Santoso", first.User.Name)
	assert.Equal(t, "refresh-budi", first.Session.RefreshToken)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "budi@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u-budi"}, prov.calls)
}

func TestSignInBadCredentials(t *testing.T) {
	svc, provider, _, _ := newTestService()
	provider.signInErr = &identity.ProviderError{Status: http.StatusBadRequest, Msg: "Invalid login credentials"}

	_, err := svc.SignIn(context.Background(), SignInRequest{Email: "budi@example.com", Password: "nope"})
	status, msg := statusOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Email atau password salah", msg)

	provider.signInErr = errors.New("dial tcp: refused")
	_, err = svc.SignIn(context.Background(), SignInRequest{Email: "budi@example.com", Password: "nope"})
	status, _ = statusOf(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestFollowUpFailuresNeverBlockLogin(t *testing.T) {
	svc, _, mirror, prov := newTestService()
	prov.err = errors.New("db down")

	resp, err := svc.SignIn(context.Background(), SignInRequest{Email: "budi@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "token-budi", resp.Session.AccessToken)

	mirror.syncErr = errors.New("db down")
	resp, err = svc.SignIn(context.Background(), SignInRequest{Email: "budi@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, resp.User.Role, "falls back to metadata role")
}

func TestRefresh(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Refresh(ctx, " ")
	_, msg := statusOf(t, err)
	assert.Equal(t, "Refresh token not provided", msg)

	_, err = svc.Refresh(ctx, "stale")
	status, msg := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid Refresh Token", msg)

	s, err := svc.Refresh(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "a2", s.AccessToken)
}

func TestCallback(t *testing.T) {
	svc, _, _, prov := newTestService()
	ctx := context.Background()

	_, err := svc.Callback(ctx, CallbackRequest{})
	_, msg := statusOf(t, err)
	assert.Equal(t, "Access token not provided", msg)

	resp, err := svc.Callback(ctx, CallbackRequest{Code: "abc", FlowID: "f-1"})
	require.NoError(t, err)
	assert.Equal(t, "u-budi", resp.User.ID)

	_, err = svc.Callback(ctx, CallbackRequest{Code: "abc", FlowID: "replayed"})
	status, _ := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	resp, err = svc.Callback(ctx, CallbackRequest{AccessToken: "token-budi", RefreshToken: "r"})
	require.NoError(t, err)
	assert.Equal(t, "r", resp.Session.RefreshToken)

	_, err = svc.Callback(ctx, CallbackRequest{AccessToken: "forged"})
	status, _ = statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Len(t, prov.calls, 1)
}

func TestOAuthURLRejectsUnknownProvider(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.OAuthURL(context.Background(), "myspace", "")
	status, _ := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestResetPasswordRedirect(t *testing.T) {
	svc, provider, _, _ := newTestService()

	require.NoError(t, svc.ResetPassword(context.Background(), "budi@example.com"))
	assert.Equal(t, "http://localhost:5173/reset-password", provider.resetTo)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	name := "Budi S"
	role := "user"

	t.Run("name only", func(t *testing.T) {
		svc, provider, _, _ := newTestService()
		caller := &middleware.Identity{ID: "u-budi", Email: "budi@example.com", Role: rbac.RoleAdmin, Name: "Budi"}

		resp, err := svc.UpdateProfile(ctx, caller, "token-budi", UpdateProfileRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Budi S", provider.updatedName)
		assert.Equal(t, "Budi S", resp.Name)
		assert.Equal(t, rbac.RoleAdmin, resp.Role)
	})

	t.Run("role is not editable", func(t *testing.T) {
		for _, r := range []rbac.Role{rbac.RoleAdmin, rbac.RoleSuperAdmin} {
			svc, _, mirror, _ := newTestService()
			caller := &middleware.Identity{ID: "u-budi", Role: r}

			_, err := svc.UpdateProfile(ctx, caller, "token-budi", UpdateProfileRequest{Role: &role})
			status, _ := statusOf(t, err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Empty(t, mirror.seen)
		}
	})

	t.Run("unchanged role is accepted", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		caller := &middleware.Identity{ID: "u-budi", Role: rbac.RoleAdmin}
		same := "admin"

		resp, err := svc.UpdateProfile(ctx, caller, "token-budi", UpdateProfileRequest{Name: &name, Role: &same})
		require.NoError(t, err)
		assert.Equal(t, rbac.RoleAdmin, resp.Role)
	})
}

// sessionVerifier accepts any token the provider has not signed out.
type sessionVerifier struct {
	provider *fakeProvider
	calls    int
}

func (v *sessionVerifier) VerifyToken(_ context.Context, token string) (*middleware.VerifiedPrincipal, error) {
	v.calls++
	if v.provider.signedOut[token] {
		return nil, core.ErrTokenInvalid
	}
	return &middleware.VerifiedPrincipal{ID: "u-budi", Email: "budi@example.com"}, nil
}

func TestSignOutEvictsCachedVerification(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc, provider, _, _ := newTestService()
	inner := &sessionVerifier{provider: provider}
	cache := identity.NewCachedVerifier(inner, rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithTokenInvalidator(cache)
	ctx := context.Background()

	for range 2 {
		_, err := cache.VerifyToken(ctx, "opaque-budi")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, svc.SignOut(ctx, "opaque-budi"))

	_, err := cache.VerifyToken(ctx, "opaque-budi")
	assert.True(t, errors.Is(err, core.ErrTokenInvalid), err)
	assert.Equal(t, 2, inner.calls)
}
