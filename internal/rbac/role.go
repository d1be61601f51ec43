// AngelaMos | 2026
// role.go

// Package rbac holds the role hierarchy and the static role to permission
// table. It has no I/O and is safe to use from any layer.
package rbac

import (
	"fmt"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// All returns the roles from highest to lowest level.
func All() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleUser}
}

// Parse converts a raw role string. Unknown values return ok=false.
func Parse(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// ParseOrUser is used where the provider metadata is only a hint.
func ParseOrUser(raw string) Role {
	if r, ok := Parse(raw); ok {
		return r
	}
	return RoleUser
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

// Level is the single source of role ordering. Unknown roles are 0.
func (r Role) Level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}

func validRoleList() string {
	names := make([]string, 0, 3)
	for _, r := range All() {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

// InvalidRoleError is the 400 returned for unrecognized role values.
func InvalidRoleError() *core.AppError {
	return core.ValidationError(
		fmt.Sprintf("Role tidak valid. Role yang tersedia: %s", validRoleList()),
	)
}

// RoleChange describes a requested role mutation.
type RoleChange struct {
	ActorID    string
	ActorRole  Role
	TargetID   string
	TargetRole Role
	NewRole    Role
}

// CheckSelfAndGrant runs the checks that need no target lookup: the
// self-demotion guard and the superadmin grant guard.
func CheckSelfAndGrant(actorID string, actorRole Role, targetID string, newRole Role) error {
	if !newRole.Valid() {
		return InvalidRoleError()
	}

	if actorID == targetID && actorRole.IsSuperAdmin() && !newRole.IsSuperAdmin() {
		return core.ForbiddenError("Superadmin tidak dapat menurunkan role dirinya sendiri")
	}

	if newRole.IsSuperAdmin() && !actorRole.IsSuperAdmin() {
		return core.ForbiddenError("Hanya superadmin yang dapat memberikan role superadmin")
	}

	return nil
}

// CheckLevel forbids touching a target at the actor's level or above,
// except when the actor is changing themself.
func CheckLevel(actorID string, actorRole Role, targetID string, targetRole Role) error {
	if actorID == targetID {
		return nil
	}
	if targetRole.AtLeast(actorRole) {
		return core.ForbiddenError(
			"Tidak dapat mengubah role user dengan level yang sama atau lebih tinggi",
		)
	}
	return nil
}

// CheckRoleChange applies every role mutation guard in order.
func CheckRoleChange(c RoleChange) error {
	if err := CheckSelfAndGrant(c.ActorID, c.ActorRole, c.TargetID, c.NewRole); err != nil {
		return err
	}
	return CheckLevel(c.ActorID, c.ActorRole, c.TargetID, c.TargetRole)
}

// CanManage lists the roles an actor of role r may assign or edit.
func (r Role) CanManage() []Role {
	switch r {
	case RoleSuperAdmin:
		return []Role{RoleSuperAdmin, RoleAdmin, RoleUser}
	case RoleAdmin:
		return []Role{RoleAdmin, RoleUser}
	default:
		return []Role{}
	}
}
