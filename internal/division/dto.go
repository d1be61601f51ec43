// AngelaMos | 2026
// dto.go

package division

import (
	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type CreateDivisionRequest struct {
	Name        string  `json:"name"        validate:"required,max=100"`
	Code        string  `json:"code"        validate:"required,max=20"`
	Description *string `json:"description"`
}

// UpdateDivisionRequest is a partial update; nil fields are kept.
type UpdateDivisionRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=100"`
	Code        *string `json:"code"        validate:"omitempty,min=1,max=20"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type AssignUserRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type Team struct {
	Division *AdminDivision `json:"division"`
	Count    int            `json:"count"`
	Members  []TeamMember   `json:"members"`
}

type MatrixModule struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

type MatrixUser struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     rbac.Role `json:"role"`
}

type MatrixRow struct {
	User        MatrixUser                         `json:"user"`
	Permissions map[string]permission.MemberGrants `json:"permissions"`
}

type PermissionsMatrix struct {
	Modules []MatrixModule `json:"modules"`
	Matrix  []MatrixRow    `json:"matrix"`
}
