// AngelaMos | 2026
// oauth_test.go

package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/perumahan-api/internal/core"
)

func TestOAuthFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var gotVerifier string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the-code", body["auth_code"])
		gotVerifier = body["code_verifier"]
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "at",
			"expires_in":   3600,
			"user":         map[string]any{"id": "u-1", "email": "a@b.c"},
		})
	})
	client := setupProvider(t, mux)
	flow := NewOAuthFlow(client, rdb, "http://localhost:5173")
	ctx := context.Background()

	start, err := flow.Begin(ctx, "Google", "")
	require.NoError(t, err)
	assert.Equal(t, "google", start.Provider)

	u, err := url.Parse(start.URL)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "google", q.Get("provider"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))

	redirect, err := url.Parse(q.Get("redirect_to"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback", redirect.Path)
	assert.Equal(t, start.FlowID, redirect.Query().Get(FlowParam))

	session, err := flow.Complete(ctx, start.FlowID, "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.NotEmpty(t, gotVerifier)

	_, err = flow.Complete(ctx, start.FlowID, "the-code")
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestOAuthFlowRejectsUnknownProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	flow := NewOAuthFlow(setupProvider(t, http.NewServeMux()), rdb, "http://localhost:5173")
	_, err := flow.Begin(context.Background(), "myspace", "")

	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Empty(t, mr.Keys())
}
