// AngelaMos | 2026
// oauth.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

const (
	oauthStateTTL = 10 * time.Minute

	// FlowParam is appended to the redirect so the callback can find the
	// stored PKCE verifier.
	FlowParam = "flow_id"
)

var allowedProviders = map[string]struct{}{
	"google":    {},
	"github":    {},
	"azure":     {},
	"gitlab":    {},
	"bitbucket": {},
	"facebook":  {},
	"twitter":   {},
	"discord":   {},
}

type OAuthStart struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
	FlowID   string `json:"flow_id"`
}

// OAuthFlow runs the provider's PKCE authorization code flow. The code
// verifier never leaves the server; it is parked in Redis under the flow id.
type OAuthFlow struct {
	client   *Client
	rdb      redis.UniversalClient
	authURL  string
	fallback string
}

func NewOAuthFlow(client *Client, rdb redis.UniversalClient, defaultRedirect string) *OAuthFlow {
	return &OAuthFlow{
		client:   client,
		rdb:      rdb,
		authURL:  client.baseURL + "/authorize",
		fallback: strings.TrimRight(defaultRedirect, "/"),
	}
}

func (f *OAuthFlow) Begin(ctx context.Context, provider, redirectTo string) (*OAuthStart, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "google"
	}
	if _, ok := allowedProviders[provider]; !ok {
		return nil, core.ValidationError("Unsupported OAuth provider: " + provider)
	}

	base := strings.TrimRight(redirectTo, "/")
	if base == "" {
		base = f.fallback
	}

	flowID := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	callback, err := url.Parse(base + "/auth/callback")
	if err != nil {
		return nil, core.ValidationError("Invalid redirect URL")
	}
	q := callback.Query()
	q.Set("provider", provider)
	q.Set(FlowParam, flowID)
	callback.RawQuery = q.Encode()

	cfg := oauth2.Config{
		Endpoint:    oauth2.Endpoint{AuthURL: f.authURL},
		RedirectURL: callback.String(),
	}

	authURL := cfg.AuthCodeURL(
		flowID,
		oauth2.SetAuthURLParam("provider", provider),
		oauth2.SetAuthURLParam("redirect_to", callback.String()),
		oauth2.S256ChallengeOption(verifier),
	)

	if err := f.rdb.Set(ctx, oauthStateKey(flowID), verifier, oauthStateTTL).Err(); err != nil {
		return nil, fmt.Errorf("store oauth state: %w", err)
	}

	return &OAuthStart{URL: authURL, Provider: provider, FlowID: flowID}, nil
}

// Complete exchanges the authorization code. Each flow id is usable once.
func (f *OAuthFlow) Complete(ctx context.Context, flowID, code string) (*Session, error) {
	if flowID == "" || code == "" {
		return nil, core.ValidationError("Authorization code not provided")
	}

	verifier, err := f.rdb.GetDel(ctx, oauthStateKey(flowID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ValidationError("OAuth flow expired or unknown")
		}
		return nil, fmt.Errorf("load oauth state: %w", err)
	}

	session, err := f.client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, AsBadRequest(err)
	}
	return session, nil
}

func oauthStateKey(flowID string) string {
	return core.RedisKey("oauth", "state", flowID)
}
