// AngelaMos | 2026
// client.go

// Package identity talks to the Supabase auth server (GoTrue). It owns
// credentials and sessions; this service only mirrors users locally.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carterperez-dev/perumahan-api/internal/config"
	"github.com/carterperez-dev/perumahan-api/internal/core"
)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.IdentityConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	serviceKey := cfg.ServiceRoleKey
	if serviceKey == "" {
		serviceKey = cfg.AnonKey
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:    cfg.AnonKey,
		serviceKey: serviceKey,
		httpClient: httpClient,
		logger:     logger.With("component", "identity_client"),
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	bearer string
	admin  bool
	body   any
}

func (c *Client) do(ctx context.Context, r request, target any) error {
	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	apiKey := c.anonKey
	if r.admin {
		apiKey = c.serviceKey
	}
	req.Header.Set("apikey", apiKey)

	bearer := r.bearer
	if bearer == "" {
		bearer = apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeProviderError(resp)
	}

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s response: %w", r.path, err)
	}
	return nil
}

func decodeProviderError(resp *http.Response) error {
	pe := &ProviderError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
	if len(body) > 0 {
		if err := json.Unmarshal(body, pe); err != nil {
			pe.Message = strings.TrimSpace(string(body))
		}
	}
	return pe
}

func asProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// GetUser resolves an access token to its user. A rejected token maps to
// core.ErrTokenInvalid.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/user",
		bearer: accessToken,
	}, &u)
	if err != nil {
		if pe, ok := asProviderError(err); ok && pe.Unauthorized() {
			return nil, fmt.Errorf("get user: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("get user: empty subject: %w", core.ErrTokenInvalid)
	}
	return &u, nil
}

func (c *Client) token(ctx context.Context, grant string, body any) (*Session, error) {
	var s Session
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
	}, &s)
	if err != nil {
		return nil, err
	}
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	return &s, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	s, err := c.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return s, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	s, err := c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return s, nil
}

// ExchangeCode completes a PKCE OAuth flow.
func (c *Client) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Session, error) {
	s, err := c.token(ctx, "pkce", map[string]string{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return s, nil
}

// SignUp registers a user. The provider answers with a bare user when
// email confirmation is pending and with a full session otherwise.
func (c *Client) SignUp(
	ctx context.Context,
	email, password string,
	metadata map[string]any,
) (*SignUpResult, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data":     metadata,
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err == nil && session.AccessToken != "" {
		return &SignUpResult{User: session.User, Session: &session}, nil
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode sign up response: %w", err)
	}
	return &SignUpResult{User: &u}, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/logout",
		bearer: accessToken,
	}, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}

	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/recover",
		query:  query,
		body:   map[string]string{"email": email},
	}, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// UpdateUser merges data into the caller's own metadata.
func (c *Client) UpdateUser(
	ctx context.Context,
	accessToken string,
	data map[string]any,
) (*User, error) {
	var u User
	if err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/user",
		bearer: accessToken,
		body:   map[string]any{"data": data},
	}, &u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &u, nil
}

func (c *Client) AdminGetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/admin/users/" + url.PathEscape(id),
		admin:  true,
	}, &u); err != nil {
		if pe, ok := asProviderError(err); ok && pe.Status == http.StatusNotFound {
			return nil, fmt.Errorf("admin get user: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("admin get user: %w", err)
	}
	return &u, nil
}

func (c *Client) AdminListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	var list UserList
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/admin/users",
		query: url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(perPage)},
		},
		admin: true,
	}, &list); err != nil {
		return nil, fmt.Errorf("admin list users: %w", err)
	}
	return list.Users, nil
}

// AdminUpdateUserMetadata merges metadata into a user's user_metadata.
func (c *Client) AdminUpdateUserMetadata(
	ctx context.Context,
	id string,
	metadata map[string]any,
) (*User, error) {
	var u User
	if err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/admin/users/" + url.PathEscape(id),
		admin:  true,
		body:   map[string]any{"user_metadata": metadata},
	}, &u); err != nil {
		return nil, fmt.Errorf("admin update user: %w", err)
	}

	c.logger.Info("provider metadata updated", "user_id", id)
	return &u, nil
}

func (c *Client) AdminDeleteUser(ctx context.Context, id string) error {
	if err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/admin/users/" + url.PathEscape(id),
		admin:  true,
	}, nil); err != nil {
		if pe, ok := asProviderError(err); ok && pe.Status == http.StatusNotFound {
			return fmt.Errorf("admin delete user: %w", core.ErrNotFound)
		}
		return fmt.Errorf("admin delete user: %w", err)
	}
	return nil
}

// Ping checks the provider's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, request{method: http.MethodGet, path: "/health"}, nil); err != nil {
		return fmt.Errorf("identity provider health: %w", err)
	}
	return nil
}
