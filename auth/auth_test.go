package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"golang.org/x/oauth2"

	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/status"
)

func testSecret() *config.ClientSecret {
	return &config.ClientSecret{
		Installed: &config.OAuthClient{
			ClientID:     "client-id",
			ProjectID:    "project-id",
			ClientSecret: "client-secret",
			AuthURI:      "https://accounts.google.com/o/oauth2/auth",
			TokenURI:     "https://oauth2.googleapis.com/token",
		},
	}
}

func testAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := New(testSecret(), filepath.Join(t.TempDir(), "creds.json"))
	assert.NoError(t, err)
	return a
}

func TestNewRejectsMissingSecret(t *testing.T) {
	_, err := New(nil, "creds.json")
	assert.True(t, errors.Is(err, status.ErrClientSecretNotFound))

	_, err = New(&config.ClientSecret{}, "creds.json")
	assert.True(t, errors.Is(err, status.ErrClientSecretInvalid))
}

func TestTokenWithoutCache(t *testing.T) {
	a := testAuthenticator(t)
	_, err := a.Token(context.Background())
	assert.True(t, errors.Is(err, status.ErrCredsNotFound))
	assert.False(t, a.Authenticated())
}

func TestTokenRoundTrip(t *testing.T) {
	a := testAuthenticator(t)
	assert.NoError(t, a.save(&oauth2.Token{
		AccessToken: "token",
		Expiry:      time.Now().Add(time.Hour),
	}))

	tok, err := a.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "token", tok.AccessToken)
	assert.True(t, a.Authenticated())
}

func TestTokenRejectsCorruptCache(t *testing.T) {
	a := testAuthenticator(t)
	assert.NoError(t, os.MkdirAll(filepath.Dir(a.tokenPath), 0o700))
	assert.NoError(t, os.WriteFile(a.tokenPath, []byte("not json"), 0o600))

	_, err := a.Token(context.Background())
	assert.True(t, errors.Is(err, status.ErrCredsInvalid))
}

func TestTokenExpiredWithoutRefreshToken(t *testing.T) {
	a := testAuthenticator(t)
	assert.NoError(t, a.save(&oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Hour),
	}))

	_, err := a.Token(context.Background())
	assert.True(t, errors.Is(err, status.ErrNotAuthenticated))
}

func TestTokenRefreshPersists(t *testing.T) {
	var refreshes int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	a := testAuthenticator(t)
	a.config.Endpoint.TokenURL = server.URL
	assert.NoError(t, a.save(&oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	tok, err := a.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 1, refreshes)

	// The refreshed token replaced the stale cache.
	cached, err := a.load()
	assert.NoError(t, err)
	assert.Equal(t, "fresh", cached.AccessToken)
}

func TestSignOut(t *testing.T) {
	a := testAuthenticator(t)
	assert.NoError(t, a.SignOut())

	assert.NoError(t, a.save(&oauth2.Token{AccessToken: "token"}))
	assert.NoError(t, a.SignOut())
	assert.False(t, a.Authenticated())
}

func TestSignIn(t *testing.T) {
	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "signed-in",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer exchange.Close()

	a := testAuthenticator(t)
	a.config.Endpoint.TokenURL = exchange.URL

	// Play the browser: follow the consent URL's redirect_uri with the
	// state and a code, as Google would after the user approves.
	notify := func(authURL string) {
		go func() {
			u, err := url.Parse(authURL)
			if err != nil {
				return
			}
			q := u.Query()
			redirect := q.Get("redirect_uri") + "?state=" + q.Get("state") + "&code=auth-code"
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	assert.NoError(t, a.SignIn(context.Background(), notify))

	tok, err := a.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "signed-in", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}
