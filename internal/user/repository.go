// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type Repository interface {
	Upsert(ctx context.Context, user *User) (bool, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetRole(ctx context.Context, id string) (rbac.Role, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ListActivity(ctx context.Context) ([]UserActivity, error)
	ListByRole(ctx context.Context, role rbac.Role) ([]User, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role) (*User, error)
	Delete(ctx context.Context, id string) error
	CountActiveByRole(ctx context.Context, role rbac.Role) (int, error)
	RoleStatistics(ctx context.Context) ([]RoleCount, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, username, email, role, is_active, created_at, updated_at`

// roleOrder sorts highest role first.
const roleOrder = `CASE role WHEN 'superadmin' THEN 1 WHEN 'admin' THEN 2 ELSE 3 END`

// Upsert mirrors a provider account. It reports whether the row was
// freshly inserted; a repeated insert for the same id only refreshes
// username, email and role. An empty Role keeps the stored role, or
// starts a new row as user.
func (r *repository) Upsert(ctx context.Context, user *User) (bool, error) {
	query := `
		INSERT INTO users (id, username, email, role)
		VALUES ($1, $2, $3, COALESCE($4::VARCHAR, 'user'))
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    email = EXCLUDED.email,
		    role = COALESCE($4::VARCHAR, users.role),
		    updated_at = NOW()
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var row struct {
		User
		Inserted bool `db:"inserted"`
	}

	var role any
	if user.Role != "" {
		role = user.Role.String()
	}

	err := r.db.GetContext(ctx, &row, query,
		user.ID,
		user.Username,
		user.Email,
		role,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("upsert user: %w", core.ErrDuplicateKey)
		}
		return false, fmt.Errorf("upsert user: %w", err)
	}

	*user = row.User
	return row.Inserted, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetRole(ctx context.Context, id string) (rbac.Role, error) {
	var role rbac.Role
	err := r.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get role: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM users " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ListActivity(ctx context.Context) ([]UserActivity, error) {
	query := `
		SELECT u.id, u.username, u.email, u.role, u.is_active, u.created_at, u.updated_at,
		       (SELECT COUNT(*) FROM financial_transactions f WHERE f.created_by = u.id) AS transaction_count,
		       (SELECT COUNT(*) FROM property_sales s WHERE s.created_by = u.id) AS sale_count
		FROM users u
		ORDER BY CASE u.role WHEN 'superadmin' THEN 1 WHEN 'admin' THEN 2 ELSE 3 END,
		         u.created_at DESC`

	rows := []UserActivity{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list user activity: %w", err)
	}
	return rows, nil
}

func (r *repository) ListByRole(ctx context.Context, role rbac.Role) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at DESC`

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

func (r *repository) UpdateRole(
	ctx context.Context,
	id string,
	role rbac.Role,
) (*User, error) {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, id, role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	return &user, nil
}

// Delete removes the mirror row; grants and memberships cascade.
func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountActiveByRole(ctx context.Context, role rbac.Role) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE role = $1 AND is_active`
	if err := r.db.GetContext(ctx, &count, query, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

func (r *repository) RoleStatistics(ctx context.Context) ([]RoleCount, error) {
	query := `
		SELECT role,
		       COUNT(*) AS count,
		       MIN(created_at) AS first_user_created,
		       MAX(created_at) AS last_user_created
		FROM users
		GROUP BY role
		ORDER BY ` + roleOrder

	rows := []RoleCount{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("role statistics: %w", err)
	}
	return rows, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
