// AngelaMos | 2026
// role_handler.go

package user

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

// RoleHandler serves the role catalogue and role assignment endpoints.
type RoleHandler struct {
	service *Service
}

func NewRoleHandler(service *Service) *RoleHandler {
	return &RoleHandler{service: service}
}

func (h *RoleHandler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/roles", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireSuperAdmin)

		r.Get("/hierarchy", h.Hierarchy)
		r.Get("/statistics", h.Statistics)
		r.Get("/permissions/matrix", h.Matrix)
		r.Get("/users", h.UsersWithRoles)
		r.Get("/users/{role}", h.UsersByRole)
		r.Patch("/users/{id}/role", h.UpdateUserRole)
		r.Get("/{role}/permissions", h.RolePermissions)
		r.Get("/{role}/features", h.FeatureAccess)
	})
}

func (h *RoleHandler) Hierarchy(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, rbac.Hierarchy())
}

func (h *RoleHandler) Matrix(w http.ResponseWriter, _ *http.Request) {
	matrix, summary := rbac.Matrix()
	core.OK(w, map[string]any{
		"matrix":  matrix,
		"summary": summary,
	})
}

func (h *RoleHandler) RolePermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := rbac.Parse(chi.URLParam(r, "role"))
	if !ok {
		core.JSONError(w, rbac.InvalidRoleError())
		return
	}

	keys := rbac.PermissionsFor(role)
	entries := make([]PermissionEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, PermissionEntry{Key: k, Description: rbac.Describe(k)})
	}

	core.OK(w, RolePermissions{
		Role:        role,
		Level:       role.Level(),
		Permissions: entries,
		Count:       len(entries),
	})
}

func (h *RoleHandler) FeatureAccess(w http.ResponseWriter, r *http.Request) {
	role, ok := rbac.Parse(chi.URLParam(r, "role"))
	if !ok {
		core.JSONError(w, rbac.InvalidRoleError())
		return
	}

	features, summary := rbac.FeatureAccess(role)
	core.OK(w, FeatureAccessResponse{
		Role:     role,
		Level:    role.Level(),
		Features: features,
		Summary:  summary,
	})
}

func (h *RoleHandler) UsersWithRoles(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.RoleOverview(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, overview)
}

func (h *RoleHandler) UsersByRole(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.UsersByRole(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, out)
}

func (h *RoleHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.RoleStatistics(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, stats)
}

func (h *RoleHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	result, err := h.service.ChangeRole(r.Context(), actorFrom(r), id, req.Role)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, fmt.Sprintf(
		"Role user berhasil diubah dari %s menjadi %s",
		result.OldRole, result.NewRole,
	), result)
}
