// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	IdentityKey contextKey = "identity"
)

// VerifiedPrincipal is what the identity provider vouches for after a
// token check.
type VerifiedPrincipal struct {
	ID       string
	Email    string
	Name     string
	RoleHint string
}

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*VerifiedPrincipal, error)
}

// RoleResolver returns the role stored in the local user mirror. It
// returns core.ErrNotFound when the principal has not been mirrored yet.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID string) (rbac.Role, error)
}

// Identity is attached to every authenticated request.
type Identity struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  rbac.Role `json:"role"`
	Name  string    `json:"name"`
}

func Authenticator(
	verifier TokenVerifier,
	resolver RoleResolver,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("No authorization token provided"),
				)
				return
			}

			principal, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			identity := resolveIdentity(r.Context(), resolver, principal)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func resolveIdentity(
	ctx context.Context,
	resolver RoleResolver,
	p *VerifiedPrincipal,
) *Identity {
	role := rbac.ParseOrUser(p.RoleHint)

	if resolver != nil {
		local, err := resolver.ResolveRole(ctx, p.ID)
		switch {
		case err == nil && local.Valid():
			role = local
		case err != nil && !errors.Is(err, core.ErrNotFound):
			slog.WarnContext(ctx, "local role lookup failed, using provider metadata",
				"user_id", p.ID,
				"error", err,
			)
		}
	}

	name := p.Name
	if name == "" {
		name = p.Email
	}

	return &Identity{
		ID:    p.ID,
		Email: p.Email,
		Role:  role,
		Name:  name,
	}
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, identity.ID)
	ctx = context.WithValue(ctx, UserRoleKey, identity.Role)
	ctx = context.WithValue(ctx, IdentityKey, identity)
	return ctx
}

func RequireRole(roles ...rbac.Role) func(http.Handler) http.Handler {
	roleSet := make(map[rbac.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r.Context())

			if userRole == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("User not authenticated"),
				)
				return
			}

			if _, ok := roleSet[userRole]; !ok {
				core.JSONError(
					w,
					core.ForbiddenError("Access denied. Insufficient permissions.").
						WithDetails(map[string]any{
							"requiredRoles": roles,
							"yourRole":      userRole,
						}),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(rbac.RoleAdmin, rbac.RoleSuperAdmin)(next)
}

func RequireSuperAdmin(next http.Handler) http.Handler {
	return RequireRole(rbac.RoleSuperAdmin)(next)
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	case errors.Is(err, core.ErrTokenInvalid), errors.Is(err, core.ErrUnauthorized):
		core.JSONError(w, core.TokenInvalidError())
	default:
		core.JSONError(w, core.InternalError("Authentication failed", err))
	}
}

func GetIdentity(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(IdentityKey).(*Identity); ok {
		return identity
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserRole(ctx context.Context) rbac.Role {
	if role, ok := ctx.Value(UserRoleKey).(rbac.Role); ok {
		return role
	}
	return ""
}

