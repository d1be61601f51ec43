// AngelaMos | 2026
// models.go

package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

// User is the GoTrue user object.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
	ConfirmedAt  *time.Time     `json:"confirmed_at,omitempty"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (u *User) metadataString(key string) string {
	if u.UserMetadata == nil {
		return ""
	}
	if v, ok := u.UserMetadata[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Name is the display name from metadata, empty when unset.
func (u *User) Name() string {
	if name := u.metadataString("name"); name != "" {
		return name
	}
	return u.metadataString("full_name")
}

// RoleHint is the unvalidated role stored in provider metadata.
func (u *User) RoleHint() string {
	return u.metadataString("role")
}

func (u *User) AvatarURL() string {
	return u.metadataString("avatar_url")
}

func (u *User) Principal() *middleware.VerifiedPrincipal {
	return &middleware.VerifiedPrincipal{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name(),
		RoleHint: u.RoleHint(),
	}
}

// Session is returned by the token endpoint for every grant type.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// SignUpResult carries a session only when email confirmation is off.
type SignUpResult struct {
	User    *User
	Session *Session
}

type UserList struct {
	Users []User `json:"users"`
	Aud   string `json:"aud,omitempty"`
}

// ProviderError is a non-2xx response from the identity provider.
type ProviderError struct {
	Status    int    `json:"-"`
	ErrorCode string `json:"error_code,omitempty"`
	Msg       string `json:"msg,omitempty"`
	Message   string `json:"message,omitempty"`
	Err       string `json:"error,omitempty"`
	ErrorDesc string `json:"error_description,omitempty"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, e.Text())
}

func (e *ProviderError) Unwrap() error {
	return core.ErrProvider
}

// Text picks the most specific human readable message from the body.
func (e *ProviderError) Text() string {
	for _, s := range []string{e.Msg, e.ErrorDesc, e.Message, e.Err} {
		if s != "" {
			return s
		}
	}
	return fmt.Sprintf("status %d", e.Status)
}

func (e *ProviderError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// AsBadRequest renders the provider message as a 400, the way client
// facing auth flows surface provider refusals.
func AsBadRequest(err error) error {
	if pe, ok := asProviderError(err); ok && pe.Status < http.StatusInternalServerError {
		return core.NewAppError(err, pe.Text(), http.StatusBadRequest, "PROVIDER_ERROR")
	}
	return err
}
