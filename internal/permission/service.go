// AngelaMos | 2026
// service.go

package permission

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
	"github.com/carterperez-dev/perumahan-api/internal/user"
)

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// ManageScope decides whether a division admin may manage a target.
type ManageScope interface {
	CanManageUser(ctx context.Context, actorID string, actorRole rbac.Role, targetID string) error
}

type Service struct {
	store  Store
	users  UserLookup
	scope  ManageScope
	logger *slog.Logger
}

func NewService(store Store, users UserLookup, scope ManageScope, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		users:  users,
		scope:  scope,
		logger: logger,
	}
}

// MyPermissions resolves the caller's module grants for the frontend.
// Superadmin grants are computed, never read from rows.
func (s *Service) MyPermissions(
	ctx context.Context,
	identity *middleware.Identity,
) (*MyPermissions, error) {
	var (
		divisions []DivisionRef
		modules   []Module
		grants    []ModuleGrant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		divisions, err = s.store.DivisionsForUser(gctx, identity.ID)
		return err
	})
	g.Go(func() error {
		var err error
		modules, err = s.store.ActiveModules(gctx)
		return err
	})
	if !identity.Role.IsSuperAdmin() {
		g.Go(func() error {
			var err error
			grants, err = s.store.ListForUser(gctx, identity.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.InternalError("Failed to fetch permissions", err)
	}

	perms := make(map[string]ModulePermission, len(modules))
	if identity.Role.IsSuperAdmin() {
		for _, m := range modules {
			perms[m.Code] = newModulePermission(m, FullGrants())
		}
	} else {
		for _, mg := range grants {
			perms[mg.Code] = newModulePermission(mg.Module, mg.Grants())
		}
	}

	return &MyPermissions{
		User:        identity,
		Divisions:   nonNil(divisions),
		Permissions: perms,
		Modules:     nonNil(modules),
	}, nil
}

func (s *Service) UserPermissions(ctx context.Context, targetID string) (*UserPermissions, error) {
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	var (
		divisions []DivisionRef
		modules   []Module
		grants    []ModuleGrant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		divisions, err = s.store.DivisionsForUser(gctx, target.ID)
		return err
	})
	if target.Role.IsSuperAdmin() {
		g.Go(func() error {
			var err error
			modules, err = s.store.ActiveModules(gctx)
			return err
		})
	} else {
		g.Go(func() error {
			var err error
			grants, err = s.store.ListForUser(gctx, target.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.InternalError("Failed to fetch user permissions", err)
	}

	perms := make(map[string]ModulePermission)
	for _, m := range modules {
		perms[m.Code] = newModulePermission(m, FullGrants())
	}
	for _, mg := range grants {
		perms[mg.Code] = newModulePermission(mg.Module, mg.Grants())
	}

	return &UserPermissions{
		User: TargetUser{
			ID:       target.ID,
			Email:    target.Email,
			Username: target.Username,
			Role:     target.Role,
		},
		Divisions:   nonNil(divisions),
		Permissions: perms,
	}, nil
}

// SetUserPermissions upserts one row per known module code. Unknown codes
// are skipped. All guards run before the first write.
func (s *Service) SetUserPermissions(
	ctx context.Context,
	actor Subject,
	targetID string,
	perms map[string]Grants,
) ([]UserPermission, error) {
	if perms == nil {
		return nil, core.ValidationError("permissions object is required")
	}

	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := checkTarget(actor, target); err != nil {
		return nil, err
	}

	moduleIDs, err := s.store.ModuleIDsByCode(ctx)
	if err != nil {
		return nil, core.InternalError("Failed to set user permissions", err)
	}

	results, err := s.apply(ctx, actor, target.ID, moduleIDs, perms)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user permissions updated",
		"user_id", target.ID,
		"modules", len(results),
		"granted_by", actor.UserID,
	)
	return results, nil
}

// BulkSetPermissions applies the same map to every target, skipping the
// ones the actor may not modify. It returns how many users were updated.
func (s *Service) BulkSetPermissions(
	ctx context.Context,
	actor Subject,
	userIDs []string,
	perms map[string]Grants,
) (int, error) {
	if len(userIDs) == 0 {
		return 0, core.ValidationError("user_ids array is required")
	}
	if perms == nil {
		return 0, core.ValidationError("permissions object is required")
	}

	moduleIDs, err := s.store.ModuleIDsByCode(ctx)
	if err != nil {
		return 0, core.InternalError("Failed to set permissions", err)
	}

	updated := 0
	for _, id := range userIDs {
		target, err := s.users.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return updated, err
		}
		if checkTarget(actor, target) != nil {
			s.logger.DebugContext(ctx, "bulk permissions skipped target",
				"user_id", target.ID,
				"role", target.Role,
			)
			continue
		}

		if _, err := s.apply(ctx, actor, target.ID, moduleIDs, perms); err != nil {
			return updated, err
		}
		updated++
	}

	s.logger.InfoContext(ctx, "bulk permissions updated",
		"requested", len(userIDs),
		"updated", updated,
		"granted_by", actor.UserID,
	)
	return updated, nil
}

func (s *Service) RevokeModule(
	ctx context.Context,
	actor Subject,
	targetID, moduleCode string,
) error {
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := checkTarget(actor, target); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, target.ID, strings.ToLower(moduleCode)); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NotFoundError("Permission")
		}
		return core.InternalError("Failed to revoke permission", err)
	}

	s.logger.InfoContext(ctx, "module permission revoked",
		"user_id", target.ID,
		"module", moduleCode,
		"revoked_by", actor.UserID,
	)
	return nil
}

// UpdateMemberPermissions is the division admin path: the actor manages a
// single module for a member of a division they administer.
func (s *Service) UpdateMemberPermissions(
	ctx context.Context,
	actor Subject,
	targetID string,
	req MemberPermissionRequest,
) (*UserPermission, error) {
	moduleCode := strings.ToLower(strings.TrimSpace(req.ModuleCode))
	if moduleCode == "" || req.Permissions == nil {
		return nil, core.ValidationError("Module code dan permissions wajib diisi")
	}

	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := checkTarget(actor, target); err != nil {
		return nil, err
	}
	if target.ID != actor.UserID && target.Role.Level() > actor.Role.Level() {
		return nil, core.ForbiddenError("Tidak bisa mengubah permissions user dengan role lebih tinggi")
	}
	if err := s.scope.CanManageUser(ctx, actor.UserID, actor.Role, target.ID); err != nil {
		return nil, err
	}

	moduleIDs, err := s.store.ModuleIDsByCode(ctx)
	if err != nil {
		return nil, core.InternalError("Failed to update member permissions", err)
	}
	moduleID, ok := moduleIDs[moduleCode]
	if !ok {
		return nil, core.NewAppError(core.ErrNotFound, "Module tidak ditemukan", http.StatusNotFound, "NOT_FOUND")
	}

	p, err := s.store.Upsert(ctx, Grant{
		UserID:    target.ID,
		ModuleID:  moduleID,
		Grants:    req.Permissions.Grants(),
		GrantedBy: actor.UserID,
	})
	if err != nil {
		return nil, core.InternalError("Failed to update member permissions", err)
	}

	s.logger.InfoContext(ctx, "member permissions updated",
		"user_id", target.ID,
		"module", moduleCode,
		"granted_by", actor.UserID,
	)
	return p, nil
}

func (s *Service) apply(
	ctx context.Context,
	actor Subject,
	targetID string,
	moduleIDs map[string]string,
	perms map[string]Grants,
) ([]UserPermission, error) {
	results := make([]UserPermission, 0, len(perms))
	for code, g := range perms {
		moduleID, ok := moduleIDs[strings.ToLower(code)]
		if !ok {
			continue
		}
		p, err := s.store.Upsert(ctx, Grant{
			UserID:    targetID,
			ModuleID:  moduleID,
			Grants:    g,
			GrantedBy: actor.UserID,
		})
		if err != nil {
			return nil, core.InternalError("Failed to set user permissions", err)
		}
		results = append(results, *p)
	}
	return results, nil
}

// checkTarget holds the guards shared by every permission write.
func checkTarget(actor Subject, target *user.User) error {
	if target.Role.IsSuperAdmin() {
		return core.ValidationError("Cannot modify permissions for superadmin")
	}
	if actor.Role == rbac.RoleAdmin && target.Role == rbac.RoleAdmin {
		return core.ForbiddenError("Admin cannot modify permissions for another admin")
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
