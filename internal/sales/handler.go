// AngelaMos | 2026
// handler.go

package sales

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

// CompleteRule gates sale completion. Under the per-user strategy it
// needs update on penjualan.
var CompleteRule = permission.Rule{
	Module: "penjualan",
	Action: permission.ActionUpdate,
	Key:    rbac.PenjualanComplete,
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	authorizer permission.Authorizer,
) {
	r.Route("/penjualan", func(r chi.Router) {
		r.Use(authenticator)
		r.With(permission.Require(authorizer, CompleteRule)).
			Post("/{id}/complete", h.Complete)
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		core.BadRequest(w, "invalid sale id")
		return
	}

	result, err := h.service.Complete(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Penjualan berhasil diselesaikan", result)
}
