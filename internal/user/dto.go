// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// RoleChangeResult is returned by a successful role mutation.
type RoleChangeResult struct {
	UserResponse
	OldRole     rbac.Role  `json:"oldRole"`
	NewRole     rbac.Role  `json:"newRole"`
	Permissions []rbac.Key `json:"permissions"`
	UpdatedBy   string     `json:"updatedBy"`
}

type UserWithPermissions struct {
	UserResponse
	TransactionCount int        `json:"transaction_count"`
	SaleCount        int        `json:"sale_count"`
	Permissions      []rbac.Key `json:"permissions"`
	PermissionCount  int        `json:"permissionCount"`
}

type RoleOverview struct {
	Count         int                                 `json:"count"`
	Users         []UserWithPermissions               `json:"users"`
	GroupedByRole map[rbac.Role][]UserWithPermissions `json:"groupedByRole"`
	Statistics    map[string]int                      `json:"statistics"`
}

type UsersByRole struct {
	Role        rbac.Role      `json:"role"`
	Count       int            `json:"count"`
	Permissions []rbac.Key     `json:"permissions"`
	Users       []UserResponse `json:"users"`
}

type RoleStat struct {
	Count            int        `json:"count"`
	FirstUserCreated time.Time  `json:"firstUserCreated"`
	LastUserCreated  time.Time  `json:"lastUserCreated"`
	Permissions      []rbac.Key `json:"permissions"`
	PermissionCount  int        `json:"permissionCount"`
}

type RoleStatistics struct {
	Total       int                      `json:"total"`
	ByRole      map[rbac.Role]RoleStat   `json:"byRole"`
	Permissions map[rbac.Role][]rbac.Key `json:"permissions"`
}

type RolePermissions struct {
	Role        rbac.Role         `json:"role"`
	Level       int               `json:"level"`
	Permissions []PermissionEntry `json:"permissions"`
	Count       int               `json:"count"`
}

type PermissionEntry struct {
	Key         rbac.Key `json:"key"`
	Description string   `json:"description"`
}

type FeatureAccessResponse struct {
	Role     rbac.Role               `json:"role"`
	Level    int                     `json:"level"`
	Features map[string]rbac.Feature `json:"features"`
	Summary  rbac.FeatureSummary     `json:"summary"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
