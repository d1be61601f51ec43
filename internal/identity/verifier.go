// AngelaMos | 2026
// verifier.go

package identity

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/perumahan-api/internal/config"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

// RemoteVerifier asks the provider to resolve every token.
type RemoteVerifier struct {
	client *Client
}

func NewRemoteVerifier(client *Client) *RemoteVerifier {
	return &RemoteVerifier{client: client}
}

func (v *RemoteVerifier) VerifyToken(
	ctx context.Context,
	token string,
) (*middleware.VerifiedPrincipal, error) {
	u, err := v.client.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return u.Principal(), nil
}

// NewVerifier builds the verifier selected by identity.verify_mode.
func NewVerifier(
	ctx context.Context,
	cfg config.IdentityConfig,
	client *Client,
) (middleware.TokenVerifier, error) {
	switch cfg.VerifyMode {
	case config.VerifyModeLocal:
		v, err := NewJWTVerifier(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("local verifier: %w", err)
		}
		return v, nil
	default:
		return NewRemoteVerifier(client), nil
	}
}
