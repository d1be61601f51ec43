// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

type Handler struct {
	service         *Service
	validator       *validator.Validate
	credentialLimit func(http.Handler) http.Handler
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:         service,
		validator:       validator.New(validator.WithRequiredStructEnabled()),
		credentialLimit: func(next http.Handler) http.Handler { return next },
	}
}

// WithCredentialLimiter guards the password routes with a stricter limit.
func (h *Handler) WithCredentialLimiter(limit func(http.Handler) http.Handler) *Handler {
	h.credentialLimit = limit
	return h
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.credentialLimit).Post("/signup", h.SignUp)
		r.With(h.credentialLimit).Post("/signin", h.SignIn)
		r.Post("/refresh", h.Refresh)
		r.With(h.credentialLimit).Post("/reset-password", h.ResetPassword)
		r.Get("/oauth/{provider}", h.OAuthURL)
		r.Get("/callback", h.Callback)
		r.Post("/callback", h.Callback)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/signout", h.SignOut)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
		})
	})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		core.BadRequest(w, "Email dan password wajib diisi")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.CreatedMessage(w, "Registrasi berhasil. Silakan cek email untuk verifikasi.", resp)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		core.BadRequest(w, "Email dan password wajib diisi")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.SignIn(r.Context(), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Login berhasil", resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context(), middleware.ExtractToken(r)); err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Logout berhasil", nil)
}

func (h *Handler) OAuthURL(w http.ResponseWriter, r *http.Request) {
	start, err := h.service.OAuthURL(
		r.Context(),
		chi.URLParam(r, "provider"),
		r.URL.Query().Get("redirectTo"),
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, start)
}

// Callback accepts the parameters on the query string (provider redirect)
// or as a JSON body (frontend relay).
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := CallbackRequest{
		Code:         q.Get("code"),
		FlowID:       q.Get("flow_id"),
		AccessToken:  q.Get("access_token"),
		RefreshToken: q.Get("refresh_token"),
	}

	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.BadRequest(w, "invalid request body")
			return
		}
	}

	resp, err := h.service.Callback(r.Context(), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if req.Email == "" {
		core.BadRequest(w, "Email wajib diisi")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email); err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Link reset password telah dikirim ke email", nil)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		core.Unauthorized(w, "User not authenticated")
		return
	}

	core.OK(w, identity)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		core.Unauthorized(w, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.UpdateProfile(r.Context(), identity, middleware.ExtractToken(r), req)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Message(w, "Profile berhasil diupdate", resp)
}
