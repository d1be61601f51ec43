// AngelaMos | 2026
// entity.go

package permission

import (
	"time"
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Grants is the four-flag grant set stored per (user, module).
type Grants struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

func FullGrants() Grants {
	return Grants{View: true, Create: true, Update: true, Delete: true}
}

// Allows reports whether the grant set covers action. Verbs outside
// view/create/update/delete are never granted per user.
func (g Grants) Allows(action Action) bool {
	switch action {
	case ActionView:
		return g.View
	case ActionCreate:
		return g.Create
	case ActionUpdate:
		return g.Update
	case ActionDelete:
		return g.Delete
	}
	return false
}

// Module is the read model of a row in modules.
type Module struct {
	ID        string  `db:"id"         json:"id"`
	Code      string  `db:"code"       json:"code"`
	Name      string  `db:"name"       json:"name"`
	Icon      *string `db:"icon"       json:"icon"`
	Route     *string `db:"route"      json:"route"`
	SortOrder int     `db:"sort_order" json:"sort_order"`
}

type DivisionRef struct {
	ID   string `db:"id"   json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// UserPermission is one row of user_permissions.
type UserPermission struct {
	ID         string    `db:"id"          json:"id"`
	UserID     string    `db:"user_id"     json:"user_id"`
	ModuleID   string    `db:"module_id"   json:"module_id"`
	ModuleCode string    `db:"module_code" json:"module_code"`
	CanView    bool      `db:"can_view"    json:"can_view"`
	CanCreate  bool      `db:"can_create"  json:"can_create"`
	CanUpdate  bool      `db:"can_update"  json:"can_update"`
	CanDelete  bool      `db:"can_delete"  json:"can_delete"`
	GrantedBy  *string   `db:"granted_by"  json:"granted_by"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

func (p UserPermission) Grants() Grants {
	return Grants{
		View:   p.CanView,
		Create: p.CanCreate,
		Update: p.CanUpdate,
		Delete: p.CanDelete,
	}
}

// ModuleGrant pairs an active module with the caller's grant flags.
// Modules without a row carry all-false grants.
type ModuleGrant struct {
	Module
	CanView   bool `db:"can_view"`
	CanCreate bool `db:"can_create"`
	CanUpdate bool `db:"can_update"`
	CanDelete bool `db:"can_delete"`
}

func (m ModuleGrant) Grants() Grants {
	return Grants{
		View:   m.CanView,
		Create: m.CanCreate,
		Update: m.CanUpdate,
		Delete: m.CanDelete,
	}
}

// Grant is a write request for one (user, module) pair.
type Grant struct {
	UserID    string
	ModuleID  string
	Grants    Grants
	GrantedBy string
}
