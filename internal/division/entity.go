// AngelaMos | 2026
// entity.go

package division

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type Division struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Code        string    `db:"code"        json:"code"`
	Description *string   `db:"description" json:"description"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
	UserCount   int       `db:"user_count"  json:"user_count"`
}

// Member is a user listed under a division.
type Member struct {
	ID              string    `db:"id"                json:"id"`
	Username        string    `db:"username"          json:"username"`
	Email           string    `db:"email"             json:"email"`
	Role            rbac.Role `db:"role"              json:"role"`
	IsDivisionAdmin bool      `db:"is_division_admin" json:"is_division_admin"`
	AssignedAt      time.Time `db:"assigned_at"       json:"assigned_at"`
	AssignedByEmail *string   `db:"assigned_by_email" json:"assigned_by_email"`
}

// Membership is one user_divisions row seen from the user's side.
type Membership struct {
	DivisionID      string `db:"division_id"`
	IsDivisionAdmin bool   `db:"is_division_admin"`
}

// AdminDivision is the division a division admin manages.
type AdminDivision struct {
	ID          string    `db:"id"           json:"id"`
	Name        string    `db:"name"         json:"name"`
	Code        string    `db:"code"         json:"code"`
	Description *string   `db:"description"  json:"description"`
	IsActive    bool      `db:"is_active"    json:"is_active"`
	MemberCount int       `db:"member_count" json:"member_count"`
	AdminSince  time.Time `db:"admin_since"  json:"admin_since"`
}

type ModuleGrant struct {
	ModuleID   string `json:"module_id"`
	ModuleCode string `json:"module_code"`
	ModuleName string `json:"module_name"`
	CanView    bool   `json:"can_view"`
	CanCreate  bool   `json:"can_create"`
	CanUpdate  bool   `json:"can_update"`
	CanDelete  bool   `json:"can_delete"`
}

// ModuleGrants scans the json_agg column of the team query.
type ModuleGrants []ModuleGrant

func (g *ModuleGrants) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*g = ModuleGrants{}
		return nil
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	default:
		return fmt.Errorf("scan module grants: unsupported type %T", src)
	}
}

func (g ModuleGrants) Value() (driver.Value, error) {
	return json.Marshal(g)
}

type TeamMember struct {
	ID              string       `db:"id"                json:"id"`
	Username        string       `db:"username"          json:"username"`
	Email           string       `db:"email"             json:"email"`
	Role            rbac.Role    `db:"role"              json:"role"`
	IsDivisionAdmin bool         `db:"is_division_admin" json:"is_division_admin"`
	JoinedAt        time.Time    `db:"joined_at"         json:"joined_at"`
	Permissions     ModuleGrants `db:"permissions"       json:"permissions"`
}

// MemberGrant is one stored grant row of a division member.
type MemberGrant struct {
	UserID     string `db:"user_id"`
	ModuleCode string `db:"module_code"`
	CanView    bool   `db:"can_view"`
	CanCreate  bool   `db:"can_create"`
	CanUpdate  bool   `db:"can_update"`
	CanDelete  bool   `db:"can_delete"`
}

func (g MemberGrant) Grants() permission.Grants {
	return permission.Grants{
		View:   g.CanView,
		Create: g.CanCreate,
		Update: g.CanUpdate,
		Delete: g.CanDelete,
	}
}
