// AngelaMos | 2026
// handler.go

package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

var MovementRule = permission.Rule{
	Module: "persediaan",
	Action: permission.ActionUpdate,
	Key:    rbac.PersediaanTransaction,
}

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
	authorizer permission.Authorizer,
) {
	r.Route("/persediaan", func(r chi.Router) {
		r.Use(authenticator)
		r.With(permission.Require(authorizer, MovementRule)).
			Post("/{id}/transaction", h.RecordMovement)
	})
}

func (h *Handler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		core.BadRequest(w, "invalid inventory id")
		return
	}

	var req Movement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if req.Type == "" {
		core.BadRequest(w, "Field type dan quantity wajib diisi")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.RecordMovement(r.Context(), id, middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.CreatedMessage(w, "Transaksi persediaan berhasil ditambahkan", result)
}
