// AngelaMos | 2026
// entity.go

package module

import (
	"time"
)

// Module is a feature area that per-user grants are attached to.
type Module struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Code        string    `db:"code"        json:"code"`
	Description *string   `db:"description" json:"description"`
	Icon        *string   `db:"icon"        json:"icon"`
	Route       *string   `db:"route"       json:"route"`
	SortOrder   int       `db:"sort_order"  json:"sort_order"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

type CreateModuleRequest struct {
	Name        string  `json:"name"        validate:"required,max=100"`
	Code        string  `json:"code"        validate:"required,max=50"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"        validate:"omitempty,max=50"`
	Route       *string `json:"route"       validate:"omitempty,max=100"`
	SortOrder   int     `json:"sort_order"  validate:"gte=0"`
}

// UpdateModuleRequest is a partial update; nil fields are kept.
type UpdateModuleRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=100"`
	Code        *string `json:"code"        validate:"omitempty,min=1,max=50"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"        validate:"omitempty,max=50"`
	Route       *string `json:"route"       validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"  validate:"omitempty,gte=0"`
}
