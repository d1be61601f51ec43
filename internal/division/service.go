// AngelaMos | 2026
// service.go

package division

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type ModuleLister interface {
	ActiveModules(ctx context.Context) ([]permission.Module, error)
}

type Service struct {
	repo    Repository
	modules ModuleLister
	logger  *slog.Logger
}

func NewService(repo Repository, modules ModuleLister, logger *slog.Logger) *Service {
	return &Service{repo: repo, modules: modules, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Division, error) {
	divisions, err := s.repo.List(ctx)
	if err != nil {
		return nil, core.InternalError("Failed to fetch divisions", err)
	}
	if divisions == nil {
		divisions = []Division{}
	}
	return divisions, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Division, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, core.NotFoundError("Division"), "Failed to fetch division")
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, req CreateDivisionRequest) (*Division, error) {
	d := &Division{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.ConflictError("Division code already exists")
		}
		return nil, core.InternalError("Failed to create division", err)
	}

	s.logger.InfoContext(ctx, "division created", "division_id", d.ID, "code", d.Code)
	return d, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateDivisionRequest) (*Division, error) {
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		req.Code = &code
	}

	d, err := s.repo.Update(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			return nil, core.NotFoundError("Division")
		case errors.Is(err, core.ErrDuplicateKey):
			return nil, core.ConflictError("Division code already exists")
		}
		return nil, core.InternalError("Failed to update division", err)
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, core.NotFoundError("Division"), "Failed to delete division")
	}
	s.logger.InfoContext(ctx, "division deleted", "division_id", id)
	return nil
}

func (s *Service) Members(ctx context.Context, divisionID string) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx, divisionID)
	if err != nil {
		return nil, core.InternalError("Failed to fetch division users", err)
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}

func (s *Service) AddMember(ctx context.Context, actorID, divisionID, userID string) error {
	if err := s.repo.AddMember(ctx, divisionID, userID, actorID); err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			return core.ConflictError("User already assigned to this division")
		case errors.Is(err, core.ErrForeignKey):
			return userOrDivisionNotFound(err)
		}
		return core.InternalError("Failed to assign user to division", err)
	}

	s.logger.InfoContext(ctx, "division member added",
		"division_id", divisionID,
		"user_id", userID,
		"assigned_by", actorID,
	)
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, divisionID, userID string) error {
	if err := s.repo.RemoveMember(ctx, divisionID, userID); err != nil {
		return notFoundOr(err, memberNotFound(err), "Failed to remove user from division")
	}
	return nil
}

// AssignAdmin makes userID a division admin, enrolling them first when
// they are not a member yet.
func (s *Service) AssignAdmin(ctx context.Context, actorID, divisionID, userID string) error {
	if err := s.repo.SetAdmin(ctx, divisionID, userID, actorID); err != nil {
		if errors.Is(err, core.ErrForeignKey) {
			return userOrDivisionNotFound(err)
		}
		return core.InternalError("Failed to assign division admin", err)
	}

	s.logger.InfoContext(ctx, "division admin assigned",
		"division_id", divisionID,
		"user_id", userID,
		"assigned_by", actorID,
	)
	return nil
}

func (s *Service) RemoveAdmin(ctx context.Context, divisionID, userID string) error {
	if err := s.repo.RevokeAdmin(ctx, divisionID, userID); err != nil {
		return notFoundOr(err, memberNotFound(err), "Failed to remove division admin")
	}

	s.logger.InfoContext(ctx, "division admin removed",
		"division_id", divisionID,
		"user_id", userID,
	)
	return nil
}

// Scope picks the division a division-admin view reads. A superadmin may
// name any division through DivisionID; everyone else reads the division
// they administer and DivisionID is ignored.
type Scope struct {
	UserID     string
	Role       rbac.Role
	DivisionID string
}

func (s *Service) MyDivision(ctx context.Context, scope Scope) (*AdminDivision, error) {
	if scope.Role.IsSuperAdmin() {
		return s.overseenDivision(ctx, scope)
	}

	d, err := s.repo.AdminDivision(ctx, scope.UserID)
	if err != nil {
		return nil, notFoundOr(err, core.NewAppError(
			err,
			"Anda belum ditugaskan sebagai admin divisi manapun",
			http.StatusNotFound,
			"NOT_FOUND",
		), "Failed to get division information")
	}
	return d, nil
}

func (s *Service) Team(ctx context.Context, scope Scope) (*Team, error) {
	d, err := s.adminDivision(ctx, scope)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.TeamMembers(ctx, d.ID)
	if err != nil {
		return nil, core.InternalError("Failed to get team members", err)
	}
	if members == nil {
		members = []TeamMember{}
	}

	return &Team{Division: d, Count: len(members), Members: members}, nil
}

// PermissionsMatrix lays out every active member against every active
// module. Modules without a row show all-false.
func (s *Service) PermissionsMatrix(ctx context.Context, scope Scope) (*PermissionsMatrix, error) {
	d, err := s.adminDivision(ctx, scope)
	if err != nil {
		return nil, err
	}

	modules, err := s.modules.ActiveModules(ctx)
	if err != nil {
		return nil, core.InternalError("Failed to get permissions matrix", err)
	}
	members, err := s.repo.TeamMembers(ctx, d.ID)
	if err != nil {
		return nil, core.InternalError("Failed to get permissions matrix", err)
	}
	grants, err := s.repo.TeamGrants(ctx, d.ID)
	if err != nil {
		return nil, core.InternalError("Failed to get permissions matrix", err)
	}

	byUser := make(map[string]map[string]permission.Grants, len(members))
	for _, g := range grants {
		if byUser[g.UserID] == nil {
			byUser[g.UserID] = make(map[string]permission.Grants)
		}
		byUser[g.UserID][g.ModuleCode] = g.Grants()
	}

	out := &PermissionsMatrix{
		Modules: make([]MatrixModule, 0, len(modules)),
		Matrix:  make([]MatrixRow, 0, len(members)),
	}
	for _, m := range modules {
		out.Modules = append(out.Modules, MatrixModule{Code: m.Code, Name: m.Name, Icon: m.Icon})
	}
	for _, member := range members {
		row := MatrixRow{
			User: MatrixUser{
				ID:       member.ID,
				Username: member.Username,
				Email:    member.Email,
				Role:     member.Role,
			},
			Permissions: make(map[string]permission.MemberGrants, len(modules)),
		}
		for _, m := range modules {
			g := byUser[member.ID][m.Code]
			row.Permissions[m.Code] = permission.MemberGrants{
				CanView:   g.View,
				CanCreate: g.Create,
				CanUpdate: g.Update,
				CanDelete: g.Delete,
			}
		}
		out.Matrix = append(out.Matrix, row)
	}
	return out, nil
}

func (s *Service) adminDivision(ctx context.Context, scope Scope) (*AdminDivision, error) {
	if scope.Role.IsSuperAdmin() {
		return s.overseenDivision(ctx, scope)
	}

	d, err := s.repo.AdminDivision(ctx, scope.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ForbiddenError("Anda bukan admin divisi")
		}
		return nil, core.InternalError("Failed to get division information", err)
	}
	return d, nil
}

func notFoundOr(err error, notFound *core.AppError, internal string) error {
	if errors.Is(err, core.ErrNotFound) {
		return notFound
	}
	return core.InternalError(internal, err)
}

func memberNotFound(err error) *core.AppError {
	return core.NewAppError(err, "User not found in this division", http.StatusNotFound, "NOT_FOUND")
}

func userOrDivisionNotFound(err error) *core.AppError {
	return core.NewAppError(err, "User or division not found", http.StatusNotFound, "NOT_FOUND")
}

// overseenDivision resolves a superadmin's scope: the named division, else
// one they administer themselves.
func (s *Service) overseenDivision(ctx context.Context, scope Scope) (*AdminDivision, error) {
	if scope.DivisionID != "" {
		d, err := s.repo.Overview(ctx, scope.DivisionID)
		if err != nil {
			return nil, notFoundOr(err, core.NotFoundError("Division"), "Failed to get division information")
		}
		return d, nil
	}

	d, err := s.repo.AdminDivision(ctx, scope.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ValidationError("division_id wajib diisi untuk superadmin")
		}
		return nil, core.InternalError("Failed to get division information", err)
	}
	return d, nil
}
