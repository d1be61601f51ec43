// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/provisioning"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
	"github.com/carterperez-dev/perumahan-api/internal/user"
)

// Provider is the session half of the identity provider API.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*identity.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	GetUser(ctx context.Context, accessToken string) (*identity.User, error)
	UpdateUser(ctx context.Context, accessToken string, data map[string]any) (*identity.User, error)
}

type OAuth interface {
	Begin(ctx context.Context, provider, redirectTo string) (*identity.OAuthStart, error)
	Complete(ctx context.Context, flowID, code string) (*identity.Session, error)
}

type Mirror interface {
	SyncFromPrincipal(ctx context.Context, p *middleware.VerifiedPrincipal) (*user.User, bool, error)
}

type Provisioner interface {
	OnUserFirstSeen(ctx context.Context, userID string, role rbac.Role) (provisioning.Result, error)
}

// TokenInvalidator forgets any cached verification of an access token.
type TokenInvalidator interface {
	Invalidate(ctx context.Context, token string)
}

type Service struct {
	provider    Provider
	oauth       OAuth
	mirror      Mirror
	provisioner Provisioner
	tokens      TokenInvalidator
	resetURL    string
	logger      *slog.Logger
}

func NewService(
	provider Provider,
	oauth OAuth,
	mirror Mirror,
	provisioner Provisioner,
	frontendURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		provider:    provider,
		oauth:       oauth,
		mirror:      mirror,
		provisioner: provisioner,
		resetURL:    strings.TrimRight(frontendURL, "/") + "/reset-password",
		logger:      logger,
	}
}

// WithTokenInvalidator makes SignOut evict the token from the
// verification cache.
func (s *Service) WithTokenInvalidator(tokens TokenInvalidator) *Service {
	s.tokens = tokens
	return s
}

// SignUp always registers a plain user. Elevated roles are granted later
// through the role endpoints.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	if req.Role != "" {
		if _, ok := rbac.Parse(req.Role); !ok {
			return nil, rbac.InvalidRoleError()
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	res, err := s.provider.SignUp(ctx, email, req.Password, map[string]any{
		"name": strings.TrimSpace(req.Name),
		"role": rbac.RoleUser.String(),
	})
	if err != nil {
		return nil, providerError(err, "Registrasi gagal")
	}

	if res.User == nil {
		return nil, core.InternalError("Registrasi gagal", errors.New("provider returned no user"))
	}

	role := s.afterAuthentication(ctx, res.User)
	out := &SignUpResponse{User: toUserResponse(res.User, role)}
	if res.Session != nil {
		session := toSession(res.Session)
		out.Session = &session
	}
	return out, nil
}

func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	session, err := s.provider.SignInWithPassword(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		var pe *identity.ProviderError
		if errors.As(err, &pe) && pe.Status < 500 {
			return nil, core.UnauthorizedError("Email atau password salah")
		}
		return nil, core.InternalError("Login gagal", err)
	}
	return s.sessionResponse(ctx, session)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, core.ValidationError("Refresh token not provided")
	}

	session, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, providerError(err, "Token refresh failed")
	}

	out := toSession(session)
	return &out, nil
}

// SignOut revokes the session at the provider, then drops the cached
// verification so the token is rejected on its next use.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		return providerError(err, "Logout gagal")
	}
	if s.tokens != nil {
		s.tokens.Invalidate(ctx, accessToken)
	}
	return nil
}

func (s *Service) OAuthURL(ctx context.Context, provider, redirectTo string) (*identity.OAuthStart, error) {
	start, err := s.oauth.Begin(ctx, provider, redirectTo)
	if err != nil {
		if core.IsAppError(err) {
			return nil, err
		}
		return nil, core.InternalError("Failed to get OAuth URL", err)
	}
	return start, nil
}

// Callback finishes an OAuth sign-in either by exchanging a PKCE code or
// by resolving tokens the frontend received directly.
func (s *Service) Callback(ctx context.Context, req CallbackRequest) (*AuthResponse, error) {
	switch {
	case req.Code != "":
		session, err := s.oauth.Complete(ctx, req.FlowID, req.Code)
		if err != nil {
			if core.IsAppError(err) {
				return nil, err
			}
			return nil, core.InternalError("OAuth callback failed", err)
		}
		return s.sessionResponse(ctx, session)

	case req.AccessToken != "":
		u, err := s.provider.GetUser(ctx, req.AccessToken)
		if err != nil {
			if errors.Is(err, core.ErrTokenInvalid) {
				return nil, core.ValidationError("Invalid or expired token")
			}
			return nil, providerError(err, "OAuth callback failed")
		}
		return s.sessionResponse(ctx, &identity.Session{
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			User:         u,
		})
	}

	return nil, core.ValidationError("Access token not provided")
}

func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if err := s.provider.ResetPasswordForEmail(ctx, strings.ToLower(strings.TrimSpace(email)), s.resetURL); err != nil {
		return providerError(err, "Reset password failed")
	}
	return nil
}

// UpdateProfile changes the caller's display name. Roles are never
// changed here; they go through the role endpoints.
func (s *Service) UpdateProfile(
	ctx context.Context,
	caller *middleware.Identity,
	accessToken string,
	req UpdateProfileRequest,
) (*UserResponse, error) {
	out := &UserResponse{
		ID:    caller.ID,
		Email: caller.Email,
		Name:  caller.Name,
		Role:  caller.Role,
	}

	if req.Role != nil && *req.Role != "" && *req.Role != caller.Role.String() {
		return nil, core.ValidationError("Role tidak dapat diubah melalui profil")
	}

	if req.Name != nil {
		u, err := s.provider.UpdateUser(ctx, accessToken, map[string]any{
			"name": strings.TrimSpace(*req.Name),
		})
		if err != nil {
			return nil, providerError(err, "Failed to update profile")
		}
		if name := u.Name(); name != "" {
			out.Name = name
		}
	}

	return out, nil
}

func (s *Service) sessionResponse(ctx context.Context, session *identity.Session) (*AuthResponse, error) {
	u := session.User
	if u == nil {
		fetched, err := s.provider.GetUser(ctx, session.AccessToken)
		if err != nil {
			return nil, core.InternalError("Login gagal", fmt.Errorf("resolve session user: %w", err))
		}
		u = fetched
	}

	role := s.afterAuthentication(ctx, u)
	return &AuthResponse{
		User:    toUserResponse(u, role),
		Session: toSession(session),
	}, nil
}

// afterAuthentication mirrors the account and provisions it on first
// sight. Failures here are logged and never block the login.
func (s *Service) afterAuthentication(ctx context.Context, u *identity.User) rbac.Role {
	fallback := rbac.ParseOrUser(u.RoleHint())

	local, inserted, err := s.mirror.SyncFromPrincipal(ctx, u.Principal())
	if err != nil {
		s.logger.ErrorContext(ctx, "user mirror sync failed",
			"user_id", u.ID,
			"error", err,
		)
		return fallback
	}

	if inserted && s.provisioner != nil {
		if _, err := s.provisioner.OnUserFirstSeen(ctx, local.ID, local.Role); err != nil {
			s.logger.ErrorContext(ctx, "default provisioning failed",
				"user_id", local.ID,
				"role", local.Role,
				"error", err,
			)
		}
	}

	return local.Role
}

// providerError surfaces a provider refusal as a 400 with the provider's
// own message and anything else as a 500 with the given message.
func providerError(err error, internal string) error {
	if mapped := identity.AsBadRequest(err); core.IsAppError(mapped) {
		return mapped
	}
	return core.InternalError(internal, err)
}
