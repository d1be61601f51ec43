// AngelaMos | 2026
// jwt.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/perumahan-api/internal/config"
	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

const jwksMinRefresh = 5 * time.Minute

// JWTVerifier checks provider access tokens without a network round
// trip, against either the project's HS256 secret or its JWKS.
type JWTVerifier struct {
	audience string
	secret   []byte
	jwksURL  string

	mu          sync.RWMutex
	keySet      jwk.Set
	lastFetched time.Time
}

func NewJWTVerifier(ctx context.Context, cfg config.IdentityConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{
		audience: cfg.Audience,
		jwksURL:  cfg.JWKSURL,
	}

	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
		return v, nil
	}

	if cfg.JWKSURL == "" {
		return nil, errors.New("jwt secret or jwks url required")
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *JWTVerifier) refreshKeys(ctx context.Context) error {
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	v.mu.Lock()
	v.keySet = set
	v.lastFetched = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *JWTVerifier) parseOptions() []jwt.ParseOption {
	opts := []jwt.ParseOption{jwt.WithValidate(true)}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	if v.secret != nil {
		return append(opts, jwt.WithKey(jwa.HS256(), v.secret))
	}

	v.mu.RLock()
	set := v.keySet
	v.mu.RUnlock()
	return append(opts, jwt.WithKeySet(set))
}

func (v *JWTVerifier) VerifyToken(
	ctx context.Context,
	tokenString string,
) (*middleware.VerifiedPrincipal, error) {
	token, err := jwt.Parse([]byte(tokenString), v.parseOptions()...)
	if err != nil && v.secret == nil && v.canRefresh() {
		// Rotated signing key: refetch once and retry.
		if refreshErr := v.refreshKeys(ctx); refreshErr == nil {
			token, err = jwt.Parse([]byte(tokenString), v.parseOptions()...)
		}
	}
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	var email string
	_ = token.Get("email", &email) //nolint:errcheck // optional claim

	var metadata map[string]any
	_ = token.Get("user_metadata", &metadata) //nolint:errcheck // optional claim

	u := User{ID: subject, Email: email, UserMetadata: metadata}
	return u.Principal(), nil
}

func (v *JWTVerifier) canRefresh() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return time.Since(v.lastFetched) > jwksMinRefresh
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}

// tokenExpiry reads exp without verifying the signature. Only used to
// bound cache lifetimes after a verifier has accepted the token.
func tokenExpiry(tokenString string) (time.Time, bool) {
	token, err := jwt.ParseInsecure([]byte(tokenString))
	if err != nil {
		return time.Time{}, false
	}
	return token.Expiration()
}
