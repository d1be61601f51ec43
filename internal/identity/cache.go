// AngelaMos | 2026
// cache.go

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
)

func verifyCacheKey(token string) string {
	return core.RedisKey("identity", "verified", core.HashToken(token))
}

// CachedVerifier remembers accepted tokens in Redis for a short time.
// Rejections are never cached, and a Redis failure falls through to the
// inner verifier.
type CachedVerifier struct {
	inner  middleware.TokenVerifier
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewCachedVerifier(
	inner middleware.TokenVerifier,
	rdb redis.UniversalClient,
	ttl time.Duration,
	logger *slog.Logger,
) *CachedVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedVerifier{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (c *CachedVerifier) VerifyToken(
	ctx context.Context,
	token string,
) (*middleware.VerifiedPrincipal, error) {
	if c.ttl <= 0 {
		return c.inner.VerifyToken(ctx, token)
	}

	key := verifyCacheKey(token)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p middleware.VerifiedPrincipal
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil && p.ID != "" {
			return &p, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "verify cache read failed", "error", err)
	}

	p, err := c.inner.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := c.ttl
	if exp, ok := tokenExpiry(token); ok {
		remaining := exp.Sub(c.now())
		if remaining <= 0 {
			return p, nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(p)
	if err == nil {
		if setErr := c.rdb.Set(ctx, key, data, ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "verify cache write failed", "error", setErr)
		}
	}

	return p, nil
}

// Invalidate drops a token from the cache, used on sign-out.
func (c *CachedVerifier) Invalidate(ctx context.Context, token string) {
	if err := c.rdb.Del(ctx, verifyCacheKey(token)).Err(); err != nil {
		c.logger.WarnContext(ctx, "verify cache delete failed", "error", err)
	}
}
