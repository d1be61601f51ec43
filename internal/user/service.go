// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

// IdentityAdmin is the slice of the provider admin API this package needs.
type IdentityAdmin interface {
	AdminUpdateUserMetadata(ctx context.Context, id string, metadata map[string]any) (*identity.User, error)
	AdminDeleteUser(ctx context.Context, id string) error
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	ID   string
	Role rbac.Role
}

// RoleHook reacts to a committed role change. Failures are logged and
// never undo the change.
type RoleHook interface {
	OnRoleChanged(ctx context.Context, userID string, oldRole, newRole rbac.Role) error
}

type Service struct {
	repo     Repository
	idp      IdentityAdmin
	roleHook RoleHook
	logger   *slog.Logger
}

func NewService(repo Repository, idp IdentityAdmin, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, idp: idp, logger: logger}
}

func (s *Service) SetRoleHook(h RoleHook) {
	s.roleHook = h
}

// SyncFromPrincipal mirrors the provider account locally and reports
// whether this was the first time the user was seen. Accounts without a
// valid metadata role keep their mirrored role; new ones start as user.
func (s *Service) SyncFromPrincipal(
	ctx context.Context,
	p *middleware.VerifiedPrincipal,
) (*User, bool, error) {
	if p == nil || p.ID == "" {
		return nil, false, fmt.Errorf("sync user: %w", core.ErrInvalidInput)
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	u := &User{
		ID:       p.ID,
		Username: DeriveUsername(p.Name, email),
		Email:    email,
	}
	// Only a recognised metadata role overwrites the mirror.
	if role, ok := rbac.Parse(p.RoleHint); ok {
		u.Role = role
	}

	inserted, err := s.repo.Upsert(ctx, u)
	if err != nil {
		return nil, false, err
	}

	if inserted {
		s.logger.InfoContext(ctx, "user mirrored",
			"user_id", u.ID,
			"role", u.Role,
		)
	}

	return u, inserted, nil
}

// ResolveRole returns the mirrored role for the identity bridge.
func (s *Service) ResolveRole(ctx context.Context, userID string) (rbac.Role, error) {
	return s.repo.GetRole(ctx, userID)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, userNotFound(err)
	}
	return u, err
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if params.Role != "" {
		role, ok := rbac.Parse(params.Role)
		if !ok {
			return nil, 0, rbac.InvalidRoleError()
		}
		params.Role = role.String()
	}
	return s.repo.List(ctx, params)
}

// ChangeRole applies a role mutation. Checks run in a fixed order and the
// provider metadata is updated before the local mirror, so a provider
// refusal leaves both sides untouched.
func (s *Service) ChangeRole(
	ctx context.Context,
	actor Actor,
	targetID, rawRole string,
) (*RoleChangeResult, error) {
	if strings.TrimSpace(rawRole) == "" {
		return nil, core.ValidationError("Role wajib diisi")
	}

	newRole, ok := rbac.Parse(rawRole)
	if !ok {
		return nil, rbac.InvalidRoleError()
	}

	if err := rbac.CheckSelfAndGrant(actor.ID, actor.Role, targetID, newRole); err != nil {
		return nil, err
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := rbac.CheckLevel(actor.ID, actor.Role, target.ID, target.Role); err != nil {
		return nil, err
	}

	if _, err := s.idp.AdminUpdateUserMetadata(ctx, target.ID, map[string]any{
		"role": newRole.String(),
	}); err != nil {
		return nil, providerFailure(err)
	}

	updated, err := s.repo.UpdateRole(ctx, target.ID, newRole)
	if err != nil {
		s.logger.ErrorContext(ctx, "provider role updated but local mirror failed",
			"user_id", target.ID,
			"role", newRole,
			"error", err,
		)
		if errors.Is(err, core.ErrNotFound) {
			return nil, userNotFound(err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "role changed",
		"user_id", target.ID,
		"old_role", target.Role,
		"new_role", newRole,
		"changed_by", actor.ID,
	)

	if s.roleHook != nil {
		if err := s.roleHook.OnRoleChanged(ctx, target.ID, target.Role, newRole); err != nil {
			s.logger.WarnContext(ctx, "role change hook failed",
				"user_id", target.ID,
				"new_role", newRole,
				"error", err,
			)
		}
	}

	return &RoleChangeResult{
		UserResponse: ToUserResponse(updated),
		OldRole:      target.Role,
		NewRole:      newRole,
		Permissions:  rbac.PermissionsFor(newRole),
		UpdatedBy:    actor.ID,
	}, nil
}

// DeleteUser removes the account at the provider first, then the mirror.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, targetID string) (*User, error) {
	if actor.ID == targetID {
		return nil, core.ForbiddenError("Tidak dapat menghapus akun sendiri")
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.Role.IsSuperAdmin() {
		if !actor.Role.IsSuperAdmin() {
			return nil, core.ForbiddenError("Hanya superadmin yang dapat menghapus superadmin")
		}
		count, err := s.repo.CountActiveByRole(ctx, rbac.RoleSuperAdmin)
		if err != nil {
			return nil, err
		}
		if count <= 1 && target.IsActive {
			return nil, core.ConflictError("Superadmin terakhir tidak dapat dihapus")
		}
	}

	if err := s.idp.AdminDeleteUser(ctx, target.ID); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return nil, providerFailure(err)
		}
		s.logger.WarnContext(ctx, "user already absent at provider", "user_id", target.ID)
	}

	if err := s.repo.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, userNotFound(err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", target.ID,
		"deleted_by", actor.ID,
	)

	return target, nil
}

func (s *Service) RoleOverview(ctx context.Context) (*RoleOverview, error) {
	rows, err := s.repo.ListActivity(ctx)
	if err != nil {
		return nil, err
	}

	out := &RoleOverview{
		Count:         len(rows),
		Users:         make([]UserWithPermissions, 0, len(rows)),
		GroupedByRole: make(map[rbac.Role][]UserWithPermissions, 3),
		Statistics:    map[string]int{"total": len(rows)},
	}
	for _, r := range rbac.All() {
		out.GroupedByRole[r] = []UserWithPermissions{}
		out.Statistics[r.String()] = 0
	}

	for i := range rows {
		perms := rbac.PermissionsFor(rows[i].Role)
		u := UserWithPermissions{
			UserResponse:     ToUserResponse(&rows[i].User),
			TransactionCount: rows[i].TransactionCount,
			SaleCount:        rows[i].SaleCount,
			Permissions:      perms,
			PermissionCount:  len(perms),
		}
		out.Users = append(out.Users, u)
		out.GroupedByRole[u.Role] = append(out.GroupedByRole[u.Role], u)
		out.Statistics[u.Role.String()]++
	}

	return out, nil
}

func (s *Service) UsersByRole(ctx context.Context, rawRole string) (*UsersByRole, error) {
	role, ok := rbac.Parse(rawRole)
	if !ok {
		return nil, rbac.InvalidRoleError()
	}

	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	return &UsersByRole{
		Role:        role,
		Count:       len(users),
		Permissions: rbac.PermissionsFor(role),
		Users:       ToUserResponseList(users),
	}, nil
}

func (s *Service) RoleStatistics(ctx context.Context) (*RoleStatistics, error) {
	rows, err := s.repo.RoleStatistics(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RoleStatistics{
		ByRole:      make(map[rbac.Role]RoleStat, len(rows)),
		Permissions: make(map[rbac.Role][]rbac.Key, len(rows)),
	}
	for _, row := range rows {
		perms := rbac.PermissionsFor(row.Role)
		stats.Total += row.Count
		stats.ByRole[row.Role] = RoleStat{
			Count:            row.Count,
			FirstUserCreated: row.FirstUserCreated,
			LastUserCreated:  row.LastUserCreated,
			Permissions:      perms,
			PermissionCount:  len(perms),
		}
		stats.Permissions[row.Role] = perms
	}

	return stats, nil
}

// providerFailure surfaces a provider refusal as a 400 carrying the
// provider's own message.
func providerFailure(err error) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		return core.NewAppError(err, pe.Text(), http.StatusBadRequest, "PROVIDER_ERROR")
	}
	return core.InternalError("Identity provider request failed", err)
}

func userNotFound(err error) *core.AppError {
	return core.NewAppError(err, "User tidak ditemukan", http.StatusNotFound, "NOT_FOUND")
}
