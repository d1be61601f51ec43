// AngelaMos | 2026
// migrate_test.go

package core

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db", "pgx5://u:p@localhost:5432/db"},
		{"postgresql://u:p@db/app?sslmode=disable", "pgx5://u:p@db/app?sslmode=disable"},
		{"pgx5://already/there", "pgx5://already/there"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, migrateURL(tt.in), tt.in)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.Equal(t, ups, downs)
}

func TestAuthorizationSchemaKeepsUniqueness(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/000001_authorization.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.Contains(t, schema, "UNIQUE (user_id, module_id)")
	assert.Contains(t, schema, "UNIQUE (user_id, division_id)")
	assert.Contains(t, schema, "REFERENCES users (id) ON DELETE CASCADE")
}
