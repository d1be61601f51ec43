// AngelaMos | 2026
// handler.go

package module

import (
	"encoding/json"
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
	r.Route("/modules", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperAdmin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List returns active modules unless ?all=true is passed.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	modules, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, modules)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathModuleID(w, r)
	if !ok {
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, m)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" || req.Code == "" {
		core.BadRequest(w, "Name and code are required")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	m, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.CreatedMessage(w, "Module created successfully", m)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathModuleID(w, r)
	if !ok {
		return
	}

	var req UpdateModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	m, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Module updated successfully", m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathModuleID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		core.HandleError(w, err)
		return
	}
	core.Message(w, "Module deleted successfully", nil)
}

func pathModuleID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	if _, err := uuid.Parse(raw); err != nil {
		core.BadRequest(w, "invalid module id")
		return "", false
	}
	return raw, true
}
