// AngelaMos | 2026
// service.go

package module

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Module, error) {
	modules, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, core.InternalError("Failed to fetch modules", err)
	}
	if modules == nil {
		modules = []Module{}
	}
	return modules, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Module, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("Module")
		}
		return nil, core.InternalError("Failed to fetch module", err)
	}
	return m, nil
}

// Create stores module codes lowercased; grants and route gates match on
// the lowercase code.
func (s *Service) Create(ctx context.Context, req CreateModuleRequest) (*Module, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToLower(strings.TrimSpace(req.Code))

	m, err := s.repo.Create(ctx, req)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.ConflictError("Module code already exists")
		}
		return nil, core.InternalError("Failed to create module", err)
	}

	s.logger.InfoContext(ctx, "module created", "module_id", m.ID, "code", m.Code)
	return m, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateModuleRequest) (*Module, error) {
	if req.Code != nil {
		code := strings.ToLower(strings.TrimSpace(*req.Code))
		req.Code = &code
	}

	m, err := s.repo.Update(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			return nil, core.NotFoundError("Module")
		case errors.Is(err, core.ErrDuplicateKey):
			return nil, core.ConflictError("Module code already exists")
		}
		return nil, core.InternalError("Failed to update module", err)
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NotFoundError("Module")
		}
		return core.InternalError("Failed to delete module", err)
	}
	s.logger.InfoContext(ctx, "module deleted", "module_id", id)
	return nil
}
