// AngelaMos | 2026
// handler.go

package division

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/permission"
)

type Handler struct {
	service     *Service
	permissions *permission.Service
	gate        *Gate
	validator   *validator.Validate
}

func NewHandler(service *Service, permissions *permission.Service, gate *Gate) *Handler {
	return &Handler{
		service:     service,
		permissions: permissions,
		gate:        gate,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts /divisions and /division-admin.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/divisions", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperAdmin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/admin", h.AssignAdmin)
			r.Delete("/{id}/admin/{userId}", h.RemoveAdmin)
			r.Post("/{id}/members", h.AddMember)
			r.Delete("/{id}/members/{userId}", h.RemoveMember)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Use(h.gate.RequireMembership("id"))
			r.Get("/{id}/users", h.Members)
			r.Post("/{id}/users", h.AddMember)
			r.Delete("/{id}/users/{userId}", h.RemoveMember)
		})
	})

	r.Route("/division-admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(h.gate.RequireDivisionAdmin)

		r.Get("/my-division", h.MyDivision)
		r.Get("/team", h.Team)
		r.Patch("/team/{userId}/permissions", h.UpdateMemberPermissions)
		r.Get("/permissions-matrix", h.PermissionsMatrix)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.service.List(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, divisions)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, d)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDivisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, "Name and code are required")
		return
	}

	d, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.CreatedMessage(w, "Division created successfully", d)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}

	var req UpdateDivisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	d, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Division updated successfully", d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Division deleted successfully", nil)
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}

	members, err := h.service.Members(r.Context(), id)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, members)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}
	req, ok := h.decodeAssign(w, r)
	if !ok {
		return
	}

	if err := h.service.AddMember(r.Context(), middleware.GetUserID(r.Context()), id, req.UserID); err != nil {
		core.HandleError(w, err)
		return
	}

	core.CreatedMessage(w, "User assigned to division successfully", req)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId", "invalid user id")
	if !ok {
		return
	}

	if err := h.service.RemoveMember(r.Context(), id, userID); err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "User removed from division successfully", nil)
}

func (h *Handler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}
	req, ok := h.decodeAssign(w, r)
	if !ok {
		return
	}

	if err := h.service.AssignAdmin(r.Context(), middleware.GetUserID(r.Context()), id, req.UserID); err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Division admin assigned successfully", req)
}

func (h *Handler) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid division id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId", "invalid user id")
	if !ok {
		return
	}

	if err := h.service.RemoveAdmin(r.Context(), id, userID); err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Division admin removed successfully", nil)
}

func (h *Handler) MyDivision(w http.ResponseWriter, r *http.Request) {
	scope, ok := viewScope(w, r)
	if !ok {
		return
	}

	d, err := h.service.MyDivision(r.Context(), scope)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, d)
}

func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	scope, ok := viewScope(w, r)
	if !ok {
		return
	}

	team, err := h.service.Team(r.Context(), scope)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, team)
}

func (h *Handler) UpdateMemberPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "invalid user id")
	if !ok {
		return
	}

	var req permission.MemberPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	p, err := h.permissions.UpdateMemberPermissions(r.Context(), permission.SubjectFrom(r), userID, req)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Permissions berhasil diupdate", p)
}

func (h *Handler) PermissionsMatrix(w http.ResponseWriter, r *http.Request) {
	scope, ok := viewScope(w, r)
	if !ok {
		return
	}

	matrix, err := h.service.PermissionsMatrix(r.Context(), scope)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, matrix)
}

func (h *Handler) decodeAssign(w http.ResponseWriter, r *http.Request) (AssignUserRequest, bool) {
	var req AssignUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}
	return req, true
}

// viewScope reads the caller and the optional division_id query parameter
// for the division-admin views.
func viewScope(w http.ResponseWriter, r *http.Request) (Scope, bool) {
	scope := Scope{
		UserID:     middleware.GetUserID(r.Context()),
		Role:       middleware.GetUserRole(r.Context()),
		DivisionID: r.URL.Query().Get("division_id"),
	}
	if scope.DivisionID != "" {
		if _, err := uuid.Parse(scope.DivisionID); err != nil {
			core.BadRequest(w, "invalid division id")
			return scope, false
		}
	}
	return scope, true
}

func pathID(w http.ResponseWriter, r *http.Request, param, message string) (string, bool) {
	raw := chi.URLParam(r, param)
	if _, err := uuid.Parse(raw); err != nil {
		core.BadRequest(w, message)
		return "", false
	}
	return raw, true
}
