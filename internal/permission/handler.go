// AngelaMos | 2026
// handler.go

package permission

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/permissions", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/me", h.MyPermissions)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/user/{userId}", h.UserPermissions)
			r.Put("/user/{userId}", h.SetUserPermissions)
			r.Delete("/user/{userId}/modules/{moduleCode}", h.RevokeModule)
			r.Post("/bulk", h.BulkSetPermissions)
		})
	})
}

func (h *Handler) MyPermissions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		core.Unauthorized(w, "User not authenticated")
		return
	}

	resp, err := h.service.MyPermissions(r.Context(), identity)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.UserPermissions(r.Context(), id)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) SetUserPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	results, err := h.service.SetUserPermissions(r.Context(), SubjectFrom(r), id, req.Permissions)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Permissions updated successfully", results)
}

func (h *Handler) BulkSetPermissions(w http.ResponseWriter, r *http.Request) {
	var req BulkSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	updated, err := h.service.BulkSetPermissions(
		r.Context(),
		SubjectFrom(r),
		req.UserIDs,
		req.Permissions,
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, fmt.Sprintf("Permissions updated for %d users", updated), BulkResult{Updated: updated})
}

func (h *Handler) RevokeModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}

	moduleCode := chi.URLParam(r, "moduleCode")
	if err := h.service.RevokeModule(r.Context(), SubjectFrom(r), id, moduleCode); err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Permission revoked", nil)
}

// SubjectFrom reads the authenticated caller off the request context.
func SubjectFrom(r *http.Request) Subject {
	return Subject{
		UserID: middleware.GetUserID(r.Context()),
		Role:   middleware.GetUserRole(r.Context()),
	}
}

func pathUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "userId")
	if _, err := uuid.Parse(raw); err != nil {
		core.BadRequest(w, "invalid user id")
		return "", false
	}
	return raw, true
}
