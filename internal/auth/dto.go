// AngelaMos | 2026
// dto.go

package auth

import (
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

type SignUpRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name"     validate:"max=100"`
	Role     string `json:"role"`
}

type SignInRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// CallbackRequest covers both callback shapes: a PKCE code with its flow
// id, or tokens the frontend already holds.
type CallbackRequest struct {
	Code         string `json:"code"`
	FlowID       string `json:"flow_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=100"`
	Role *string `json:"role"`
}

type UserResponse struct {
	ID     string    `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   rbac.Role `json:"role"`
	Avatar string    `json:"avatar,omitempty"`
}

type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

type AuthResponse struct {
	User    UserResponse    `json:"user"`
	Session SessionResponse `json:"session"`
}

// SignUpResponse carries a session only when the provider skips email
// confirmation.
type SignUpResponse struct {
	User    UserResponse     `json:"user"`
	Session *SessionResponse `json:"session,omitempty"`
}

func toSession(s *identity.Session) SessionResponse {
	return SessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
}

func toUserResponse(u *identity.User, role rbac.Role) UserResponse {
	name := u.Name()
	if name == "" {
		name = u.Email
	}
	return UserResponse{
		ID:     u.ID,
		Email:  u.Email,
		Name:   name,
		Role:   role,
		Avatar: u.AvatarURL(),
	}
}
