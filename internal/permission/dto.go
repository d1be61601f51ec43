// AngelaMos | 2026
// dto.go

package permission

import (
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type SetPermissionsRequest struct {
	Permissions map[string]Grants `json:"permissions"`
}

type BulkSetRequest struct {
	UserIDs     []string          `json:"user_ids"    validate:"dive,uuid"`
	Permissions map[string]Grants `json:"permissions"`
}

// MemberGrants uses the column-style names the division admin screen
// sends.
type MemberGrants struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanUpdate bool `json:"can_update"`
	CanDelete bool `json:"can_delete"`
}

func (m MemberGrants) Grants() Grants {
	return Grants{View: m.CanView, Create: m.CanCreate, Update: m.CanUpdate, Delete: m.CanDelete}
}

type MemberPermissionRequest struct {
	ModuleCode  string        `json:"moduleCode"`
	Permissions *MemberGrants `json:"permissions"`
}

type ModulePermission struct {
	Name   string  `json:"name"`
	Icon   *string `json:"icon,omitempty"`
	Route  *string `json:"route,omitempty"`
	View   bool    `json:"view"`
	Create bool    `json:"create"`
	Update bool    `json:"update"`
	Delete bool    `json:"delete"`
}

func newModulePermission(m Module, g Grants) ModulePermission {
	return ModulePermission{
		Name:   m.Name,
		Icon:   m.Icon,
		Route:  m.Route,
		View:   g.View,
		Create: g.Create,
		Update: g.Update,
		Delete: g.Delete,
	}
}

type MyPermissions struct {
	User        *middleware.Identity        `json:"user"`
	Divisions   []DivisionRef               `json:"divisions"`
	Permissions map[string]ModulePermission `json:"permissions"`
	Modules     []Module                    `json:"modules"`
}

type TargetUser struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Role     rbac.Role `json:"role"`
}

type UserPermissions struct {
	User        TargetUser                  `json:"user"`
	Divisions   []DivisionRef               `json:"divisions"`
	Permissions map[string]ModulePermission `json:"permissions"`
}

type BulkResult struct {
	Updated int `json:"updated"`
}
