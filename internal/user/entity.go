// AngelaMos | 2026
// entity.go

package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

// User is the local mirror of an identity provider account. The id is
// the provider's subject.
type User struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Role      rbac.Role `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UserActivity adds record counts used by the roles overview.
type UserActivity struct {
	User
	TransactionCount int `db:"transaction_count"`
	SaleCount        int `db:"sale_count"`
}

type RoleCount struct {
	Role             rbac.Role `db:"role"`
	Count            int       `db:"count"`
	FirstUserCreated time.Time `db:"first_user_created"`
	LastUserCreated  time.Time `db:"last_user_created"`
}

var whitespace = regexp.MustCompile(`\s+`)

// DeriveUsername lowercases the display name with whitespace runs
// replaced by underscores, falling back to the email local part.
func DeriveUsername(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return strings.ToLower(whitespace.ReplaceAllString(name, "_"))
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
