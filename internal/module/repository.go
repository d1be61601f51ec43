// AngelaMos | 2026
// repository.go

package module

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Module, error)
	GetByID(ctx context.Context, id string) (*Module, error)
	Create(ctx context.Context, req CreateModuleRequest) (*Module, error)
	Update(ctx context.Context, id string, req UpdateModuleRequest) (*Module, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const moduleColumns = `id, name, code, description, icon, route, sort_order, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM modules`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY sort_order ASC, name ASC`

	var modules []Module
	if err := r.db.SelectContext(ctx, &modules, query); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Module, error) {
	var m Module
	err := r.db.GetContext(ctx, &m,
		`SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get module: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get module: %w", err)
	}
	return &m, nil
}

func (r *repository) Create(ctx context.Context, req CreateModuleRequest) (*Module, error) {
	query := `
		INSERT INTO modules (name, code, description, icon, route, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + moduleColumns

	var m Module
	err := r.db.GetContext(ctx, &m, query,
		req.Name, req.Code, req.Description, req.Icon, req.Route, req.SortOrder)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("create module: %w", core.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("create module: %w", err)
	}
	return &m, nil
}

func (r *repository) Update(ctx context.Context, id string, req UpdateModuleRequest) (*Module, error) {
	query := `
		UPDATE modules
		SET name = COALESCE($2, name),
		    code = COALESCE($3, code),
		    description = COALESCE($4, description),
		    icon = COALESCE($5, icon),
		    route = COALESCE($6, route),
		    is_active = COALESCE($7, is_active),
		    sort_order = COALESCE($8, sort_order),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + moduleColumns

	var m Module
	err := r.db.GetContext(ctx, &m, query, id,
		req.Name, req.Code, req.Description, req.Icon, req.Route, req.IsActive, req.SortOrder)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("update module: %w", core.ErrNotFound)
		case core.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("update module: %w", core.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update module: %w", err)
	}
	return &m, nil
}

// Delete cascades to every user_permissions row of the module.
func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete module rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete module: %w", core.ErrNotFound)
	}
	return nil
}
