// AngelaMos | 2026
// repository.go

package division

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

// MembershipStore is the part of the repository the gate reads.
type MembershipStore interface {
	IsMember(ctx context.Context, userID, divisionID string) (bool, error)
	Memberships(ctx context.Context, userID string) ([]Membership, error)
}

type Repository interface {
	MembershipStore

	List(ctx context.Context) ([]Division, error)
	GetByID(ctx context.Context, id string) (*Division, error)
	Create(ctx context.Context, d *Division) error
	Update(ctx context.Context, id string, patch UpdateDivisionRequest) (*Division, error)
	Delete(ctx context.Context, id string) error

	ListMembers(ctx context.Context, divisionID string) ([]Member, error)
	AddMember(ctx context.Context, divisionID, userID, assignedBy string) error
	RemoveMember(ctx context.Context, divisionID, userID string) error
	SetAdmin(ctx context.Context, divisionID, userID, assignedBy string) error
	RevokeAdmin(ctx context.Context, divisionID, userID string) error

	AdminDivision(ctx context.Context, userID string) (*AdminDivision, error)
	Overview(ctx context.Context, divisionID string) (*AdminDivision, error)
	TeamMembers(ctx context.Context, divisionID string) ([]TeamMember, error)
	TeamGrants(ctx context.Context, divisionID string) ([]MemberGrant, error)

	ActiveIDs(ctx context.Context) ([]string, error)
	Enroll(ctx context.Context, userID, divisionID string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const divisionSelect = `
	SELECT d.id, d.name, d.code, d.description, d.is_active, d.created_at, d.updated_at,
	       COUNT(ud.user_id) AS user_count
	FROM divisions d
	LEFT JOIN user_divisions ud ON ud.division_id = d.id`

func (r *repository) List(ctx context.Context) ([]Division, error) {
	query := divisionSelect + `
		GROUP BY d.id
		ORDER BY d.name ASC`

	var divisions []Division
	if err := r.db.SelectContext(ctx, &divisions, query); err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	return divisions, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Division, error) {
	query := divisionSelect + `
		WHERE d.id = $1
		GROUP BY d.id`

	var d Division
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get division: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get division: %w", err)
	}
	return &d, nil
}

func (r *repository) Create(ctx context.Context, d *Division) error {
	query := `
		INSERT INTO divisions (name, code, description)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, d.Name, d.Code, d.Description).
		Scan(&d.ID, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create division: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create division: %w", err)
	}
	return nil
}

func (r *repository) Update(
	ctx context.Context,
	id string,
	patch UpdateDivisionRequest,
) (*Division, error) {
	query := `
		UPDATE divisions
		SET name = COALESCE($2, name),
		    code = COALESCE($3, code),
		    description = COALESCE($4, description),
		    is_active = COALESCE($5, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, code, description, is_active, created_at, updated_at`

	var d Division
	err := r.db.GetContext(ctx, &d, query,
		id, patch.Name, patch.Code, patch.Description, patch.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("update division: %w", core.ErrNotFound)
		case core.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("update division: %w", core.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update division: %w", err)
	}
	return &d, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM divisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete division: %w", err)
	}
	return expectRow(result, "delete division")
}

func (r *repository) ListMembers(ctx context.Context, divisionID string) ([]Member, error) {
	query := `
		SELECT u.id, u.username, u.email, u.role, ud.is_division_admin,
		       ud.created_at AS assigned_at, assigner.email AS assigned_by_email
		FROM user_divisions ud
		JOIN users u ON u.id = ud.user_id
		LEFT JOIN users assigner ON assigner.id = ud.assigned_by
		WHERE ud.division_id = $1
		ORDER BY u.email ASC`

	var members []Member
	if err := r.db.SelectContext(ctx, &members, query, divisionID); err != nil {
		return nil, fmt.Errorf("list division members: %w", err)
	}
	return members, nil
}

func (r *repository) AddMember(ctx context.Context, divisionID, userID, assignedBy string) error {
	query := `
		INSERT INTO user_divisions (user_id, division_id, assigned_by)
		VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, userID, divisionID, nullable(assignedBy)); err != nil {
		switch {
		case core.IsDuplicateKeyError(err):
			return fmt.Errorf("add division member: %w", core.ErrDuplicateKey)
		case core.IsForeignKeyError(err):
			return fmt.Errorf("add division member: %w", core.ErrForeignKey)
		}
		return fmt.Errorf("add division member: %w", err)
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, divisionID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_divisions WHERE user_id = $1 AND division_id = $2`,
		userID, divisionID)
	if err != nil {
		return fmt.Errorf("remove division member: %w", err)
	}
	return expectRow(result, "remove division member")
}

// SetAdmin enrolls the user if needed and raises the admin flag.
func (r *repository) SetAdmin(ctx context.Context, divisionID, userID, assignedBy string) error {
	query := `
		INSERT INTO user_divisions (user_id, division_id, is_division_admin, assigned_by)
		VALUES ($1, $2, true, $3)
		ON CONFLICT (user_id, division_id) DO UPDATE
		SET is_division_admin = true,
		    assigned_by = EXCLUDED.assigned_by`

	if _, err := r.db.ExecContext(ctx, query, userID, divisionID, nullable(assignedBy)); err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("set division admin: %w", core.ErrForeignKey)
		}
		return fmt.Errorf("set division admin: %w", err)
	}
	return nil
}

// RevokeAdmin clears the admin flag and keeps the membership.
func (r *repository) RevokeAdmin(ctx context.Context, divisionID, userID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE user_divisions
		SET is_division_admin = false
		WHERE user_id = $1 AND division_id = $2`,
		userID, divisionID)
	if err != nil {
		return fmt.Errorf("revoke division admin: %w", err)
	}
	return expectRow(result, "revoke division admin")
}

func (r *repository) IsMember(ctx context.Context, userID, divisionID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM user_divisions WHERE user_id = $1 AND division_id = $2
		)`, userID, divisionID)
	if err != nil {
		return false, fmt.Errorf("check division membership: %w", err)
	}
	return exists, nil
}

func (r *repository) Memberships(ctx context.Context, userID string) ([]Membership, error) {
	var rows []Membership
	err := r.db.SelectContext(ctx, &rows, `
		SELECT division_id, is_division_admin
		FROM user_divisions
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return rows, nil
}

// AdminDivision returns the first division the user administers.
func (r *repository) AdminDivision(ctx context.Context, userID string) (*AdminDivision, error) {
	query := `
		SELECT d.id, d.name, d.code, d.description, d.is_active,
		       COUNT(DISTINCT ud2.user_id) AS member_count,
		       ud.created_at AS admin_since
		FROM user_divisions ud
		JOIN divisions d ON d.id = ud.division_id
		LEFT JOIN user_divisions ud2 ON ud2.division_id = d.id
		WHERE ud.user_id = $1 AND ud.is_division_admin = true
		GROUP BY d.id, d.name, d.code, d.description, d.is_active, ud.created_at
		ORDER BY ud.created_at ASC
		LIMIT 1`

	var d AdminDivision
	if err := r.db.GetContext(ctx, &d, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get admin division: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get admin division: %w", err)
	}
	return &d, nil
}

// Overview reads a division in the AdminDivision shape for callers who
// oversee it without holding the admin flag. AdminSince is the division's
// creation time.
func (r *repository) Overview(ctx context.Context, divisionID string) (*AdminDivision, error) {
	query := `
		SELECT d.id, d.name, d.code, d.description, d.is_active,
		       COUNT(ud.user_id) AS member_count,
		       d.created_at AS admin_since
		FROM divisions d
		LEFT JOIN user_divisions ud ON ud.division_id = d.id
		WHERE d.id = $1
		GROUP BY d.id`

	var d AdminDivision
	if err := r.db.GetContext(ctx, &d, query, divisionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get division overview: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get division overview: %w", err)
	}
	return &d, nil
}

func (r *repository) TeamMembers(ctx context.Context, divisionID string) ([]TeamMember, error) {
	query := `
		SELECT u.id, u.username, u.email, u.role, ud.is_division_admin,
		       ud.created_at AS joined_at,
		       (
		           SELECT json_agg(json_build_object(
		               'module_id', m.id,
		               'module_code', m.code,
		               'module_name', m.name,
		               'can_view', up.can_view,
		               'can_create', up.can_create,
		               'can_update', up.can_update,
		               'can_delete', up.can_delete
		           ) ORDER BY m.sort_order)
		           FROM user_permissions up
		           JOIN modules m ON m.id = up.module_id
		           WHERE up.user_id = u.id AND m.is_active = true
		       ) AS permissions
		FROM user_divisions ud
		JOIN users u ON u.id = ud.user_id
		WHERE ud.division_id = $1 AND u.is_active = true
		ORDER BY ud.is_division_admin DESC, u.created_at ASC`

	var members []TeamMember
	if err := r.db.SelectContext(ctx, &members, query, divisionID); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

func (r *repository) TeamGrants(ctx context.Context, divisionID string) ([]MemberGrant, error) {
	query := `
		SELECT up.user_id, m.code AS module_code,
		       up.can_view, up.can_create, up.can_update, up.can_delete
		FROM user_permissions up
		JOIN modules m ON m.id = up.module_id
		JOIN user_divisions ud ON ud.user_id = up.user_id
		WHERE ud.division_id = $1 AND m.is_active = true`

	var grants []MemberGrant
	if err := r.db.SelectContext(ctx, &grants, query, divisionID); err != nil {
		return nil, fmt.Errorf("list team grants: %w", err)
	}
	return grants, nil
}

func (r *repository) ActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		`SELECT id FROM divisions WHERE is_active = true ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list active divisions: %w", err)
	}
	return ids, nil
}

// Enroll adds a plain membership and leaves an existing one untouched.
func (r *repository) Enroll(ctx context.Context, userID, divisionID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO user_divisions (user_id, division_id, is_division_admin)
		VALUES ($1, $2, false)
		ON CONFLICT (user_id, division_id) DO NOTHING`,
		userID, divisionID)
	if err != nil {
		return false, fmt.Errorf("enroll division: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll division rows affected: %w", err)
	}
	return n > 0, nil
}

func expectRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
