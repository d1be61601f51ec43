// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

var userCols = []string{"id", "username", "email", "role", "is_active", "created_at", "updated_at"}

func TestUpsertReportsInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("u-1", "budi", "budi@example.com", "user").
		WillReturnRows(sqlmock.NewRows(append(userCols, "inserted")).
			AddRow("u-1", "budi", "budi@example.com", "user", true, now, now, true))

	u := &User{ID: "u-1", Username: "budi", Email: "budi@example.com", Role: rbac.RoleUser}
	inserted, err := repo.Upsert(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.True(t, u.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WillReturnRows(sqlmock.NewRows(append(userCols, "inserted")).
			AddRow("u-1", "budi", "budi@example.com", "admin", true, now, now, false))

	inserted, err = repo.Upsert(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, rbac.RoleAdmin, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertWithoutRoleKeepsStoredRole(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("role = COALESCE($4::VARCHAR, users.role)")).
		WithArgs("u-1", "budi", "budi@example.com", nil).
		WillReturnRows(sqlmock.NewRows(append(userCols, "inserted")).
			AddRow("u-1", "budi", "budi@example.com", "superadmin", true, now, now, false))

	u := &User{ID: "u-1", Username: "budi", Email: "budi@example.com"}
	inserted, err := repo.Upsert(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, rbac.RoleSuperAdmin, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Upsert(context.Background(), &User{ID: "u-2", Email: "dup@example.com", Role: rbac.RoleUser})
	assert.True(t, errors.Is(err, core.ErrDuplicateKey))
}

func TestGetRoleNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	_, err := repo.GetRole(context.Background(), "ghost")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestListBuildsFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (email ILIKE $1 OR username ILIKE $1) AND role = $2")).
		WithArgs("%bu\\_di%", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3 OFFSET $4")).
		WithArgs("%bu\\_di%", "admin", 10, 10).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "bu_di", "budi@example.com", "admin", true, now, now))

	users, total, err := repo.List(context.Background(), ListUsersParams{
		Page: 2, PageSize: 10, Search: "bu_di", Role: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, rbac.RoleAdmin, users[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
