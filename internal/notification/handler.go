// AngelaMos | 2026
// handler.go

package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Handler struct {
	inbox *Inbox
}

func NewHandler(inbox *Inbox) *Handler {
	return &Handler{inbox: inbox}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", h.List)
		r.Get("/unread-count", h.UnreadCount)
		r.Patch("/read-all", h.MarkAllRead)
		r.Patch("/{id}/read", h.MarkRead)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	items, err := h.inbox.List(
		r.Context(),
		middleware.GetUserID(r.Context()),
		r.URL.Query().Get("unread") == "true",
		limit,
	)
	if err != nil {
		core.HandleError(w, core.InternalError("Failed to fetch notifications", err))
		return
	}
	if items == nil {
		items = []Notification{}
	}

	core.OK(w, items)
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.inbox.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleError(w, core.InternalError("Failed to count notifications", err))
		return
	}

	core.OK(w, map[string]int{"count": n})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		core.BadRequest(w, "invalid notification id")
		return
	}

	if err := h.inbox.MarkRead(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "Notification")
			return
		}
		core.HandleError(w, core.InternalError("Failed to update notification", err))
		return
	}

	core.Message(w, "Notification marked as read", nil)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.inbox.MarkAllRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleError(w, core.InternalError("Failed to update notifications", err))
		return
	}

	core.Message(w, "All notifications marked as read", map[string]int64{"updated": n})
}
