// AngelaMos | 2026
// repository.go

package permission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

// Store is the user_permissions table plus the module and division
// lookups the permission decisions depend on.
type Store interface {
	GetGrants(ctx context.Context, userID, moduleCode string) (Grants, bool, error)
	ListForUser(ctx context.Context, userID string) ([]ModuleGrant, error)
	Upsert(ctx context.Context, grant Grant) (*UserPermission, error)
	Seed(ctx context.Context, grant Grant) (bool, error)
	ResetDefault(ctx context.Context, grant Grant) (bool, error)
	Delete(ctx context.Context, userID, moduleCode string) error
	DeleteForUser(ctx context.Context, userID string) (int64, error)
	ActiveModules(ctx context.Context) ([]Module, error)
	ModuleIDsByCode(ctx context.Context) (map[string]string, error)
	DivisionsForUser(ctx context.Context, userID string) ([]DivisionRef, error)
}

type store struct {
	db core.DBTX
}

func NewStore(db core.DBTX) Store {
	return &store{db: db}
}

const moduleColumns = `m.id, m.code, m.name, m.icon, m.route, m.sort_order`

// GetGrants reports found=false when there is no row or the module is
// inactive. Both cases deny.
func (s *store) GetGrants(
	ctx context.Context,
	userID, moduleCode string,
) (Grants, bool, error) {
	query := `
		SELECT up.can_view, up.can_create, up.can_update, up.can_delete
		FROM user_permissions up
		JOIN modules m ON m.id = up.module_id
		WHERE up.user_id = $1 AND m.code = $2 AND m.is_active = true`

	var row struct {
		CanView   bool `db:"can_view"`
		CanCreate bool `db:"can_create"`
		CanUpdate bool `db:"can_update"`
		CanDelete bool `db:"can_delete"`
	}
	err := s.db.GetContext(ctx, &row, query, userID, moduleCode)
	if errors.Is(err, sql.ErrNoRows) {
		return Grants{}, false, nil
	}
	if err != nil {
		return Grants{}, false, fmt.Errorf("get grants: %w", err)
	}

	return Grants{
		View:   row.CanView,
		Create: row.CanCreate,
		Update: row.CanUpdate,
		Delete: row.CanDelete,
	}, true, nil
}

func (s *store) ListForUser(ctx context.Context, userID string) ([]ModuleGrant, error) {
	query := `
		SELECT ` + moduleColumns + `,
		       COALESCE(up.can_view, false)   AS can_view,
		       COALESCE(up.can_create, false) AS can_create,
		       COALESCE(up.can_update, false) AS can_update,
		       COALESCE(up.can_delete, false) AS can_delete
		FROM modules m
		LEFT JOIN user_permissions up ON up.module_id = m.id AND up.user_id = $1
		WHERE m.is_active = true
		ORDER BY m.sort_order ASC`

	var rows []ModuleGrant
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list grants for user: %w", err)
	}
	return rows, nil
}

const upsertReturning = `
	SELECT up.id, up.user_id, up.module_id, m.code AS module_code,
	       up.can_view, up.can_create, up.can_update, up.can_delete,
	       up.granted_by, up.updated_at
	FROM up
	JOIN modules m ON m.id = up.module_id`

// Upsert writes the four flags for (user, module); the last write wins.
func (s *store) Upsert(ctx context.Context, grant Grant) (*UserPermission, error) {
	query := `
		WITH up AS (
			INSERT INTO user_permissions
				(user_id, module_id, can_view, can_create, can_update, can_delete, granted_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, module_id) DO UPDATE
			SET can_view = EXCLUDED.can_view,
			    can_create = EXCLUDED.can_create,
			    can_update = EXCLUDED.can_update,
			    can_delete = EXCLUDED.can_delete,
			    granted_by = EXCLUDED.granted_by,
			    updated_at = NOW()
			RETURNING *
		)` + upsertReturning

	var p UserPermission
	err := s.db.GetContext(ctx, &p, query,
		grant.UserID,
		grant.ModuleID,
		grant.Grants.View,
		grant.Grants.Create,
		grant.Grants.Update,
		grant.Grants.Delete,
		nullable(grant.GrantedBy),
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return nil, fmt.Errorf("upsert permission: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("upsert permission: %w", err)
	}
	return &p, nil
}

// Seed inserts a default row and leaves an existing one untouched.
func (s *store) Seed(ctx context.Context, grant Grant) (bool, error) {
	query := `
		INSERT INTO user_permissions
			(user_id, module_id, can_view, can_create, can_update, can_delete, granted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, module_id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query,
		grant.UserID,
		grant.ModuleID,
		grant.Grants.View,
		grant.Grants.Create,
		grant.Grants.Update,
		grant.Grants.Delete,
		nullable(grant.GrantedBy),
	)
	if err != nil {
		return false, fmt.Errorf("seed permission: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed permission rows affected: %w", err)
	}
	return n > 0, nil
}

// ResetDefault writes a role default over a row that provisioning owns.
// Rows an actor granted (granted_by set) are kept as they are.
func (s *store) ResetDefault(ctx context.Context, grant Grant) (bool, error) {
	query := `
		INSERT INTO user_permissions
			(user_id, module_id, can_view, can_create, can_update, can_delete, granted_by)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
		ON CONFLICT (user_id, module_id) DO UPDATE
		SET can_view = EXCLUDED.can_view,
		    can_create = EXCLUDED.can_create,
		    can_update = EXCLUDED.can_update,
		    can_delete = EXCLUDED.can_delete,
		    updated_at = NOW()
		WHERE user_permissions.granted_by IS NULL`

	result, err := s.db.ExecContext(ctx, query,
		grant.UserID,
		grant.ModuleID,
		grant.Grants.View,
		grant.Grants.Create,
		grant.Grants.Update,
		grant.Grants.Delete,
	)
	if err != nil {
		return false, fmt.Errorf("reset default permission: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset default permission rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *store) Delete(ctx context.Context, userID, moduleCode string) error {
	query := `
		DELETE FROM user_permissions up
		USING modules m
		WHERE up.module_id = m.id AND up.user_id = $1 AND m.code = $2`

	result, err := s.db.ExecContext(ctx, query, userID, moduleCode)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete permission rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete permission: %w", core.ErrNotFound)
	}
	return nil
}

func (s *store) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM user_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete permissions for user: %w", err)
	}
	return result.RowsAffected()
}

func (s *store) ActiveModules(ctx context.Context) ([]Module, error) {
	query := `
		SELECT ` + moduleColumns + `
		FROM modules m
		WHERE m.is_active = true
		ORDER BY m.sort_order ASC`

	var modules []Module
	if err := s.db.SelectContext(ctx, &modules, query); err != nil {
		return nil, fmt.Errorf("list active modules: %w", err)
	}
	return modules, nil
}

func (s *store) ModuleIDsByCode(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ID   string `db:"id"`
		Code string `db:"code"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, code FROM modules WHERE is_active = true`); err != nil {
		return nil, fmt.Errorf("map module codes: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Code] = r.ID
	}
	return out, nil
}

func (s *store) DivisionsForUser(ctx context.Context, userID string) ([]DivisionRef, error) {
	query := `
		SELECT d.id, d.name, d.code
		FROM user_divisions ud
		JOIN divisions d ON d.id = ud.division_id
		WHERE ud.user_id = $1 AND d.is_active = true
		ORDER BY d.name ASC`

	var divisions []DivisionRef
	if err := s.db.SelectContext(ctx, &divisions, query, userID); err != nil {
		return nil, fmt.Errorf("list divisions for user: %w", err)
	}
	return divisions, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
