// Package auth manages the Google OAuth credentials used to reach the
// spreadsheet. Tokens are cached on disk and refreshed silently; an
// interactive sign-in is only required when no usable refresh token exists.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/wgergely/expensetracker/config"
	"github.com/wgergely/expensetracker/status"
)

// Scope grants read and write access to spreadsheets and nothing else.
const Scope = "https://www.googleapis.com/auth/spreadsheets"

// signInTimeout bounds how long the loopback server waits for the browser
// to redirect back.
const signInTimeout = 5 * time.Minute

// Authenticator owns the OAuth configuration and the on-disk token cache.
type Authenticator struct {
	config    *oauth2.Config
	tokenPath string
}

// New builds an Authenticator from the ledger's client secret. The redirect
// URL is filled in later by SignIn, once the loopback listener has a port.
func New(secret *config.ClientSecret, tokenPath string) (*Authenticator, error) {
	if secret == nil {
		return nil, status.Err(status.ClientSecretNotFound)
	}
	if err := secret.Validate(); err != nil {
		return nil, err
	}
	client, err := secret.Client()
	if err != nil {
		return nil, err
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  client.AuthURI,
				TokenURL: client.TokenURI,
			},
		},
		tokenPath: tokenPath,
	}, nil
}

// Token returns the cached token, refreshing it when expired. It never
// prompts: a missing or unrefreshable token yields ErrNotAuthenticated and
// the caller decides whether to start an interactive sign-in.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.load()
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, status.New(status.NotAuthenticated, "cached token expired and has no refresh token")
	}

	log.Debug("refreshing expired token")
	fresh, err := a.config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, status.Wrap(status.NotAuthenticated, err, "token refresh failed; sign in again")
	}
	if err := a.save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// TokenSource returns a source that refreshes silently and persists every
// refreshed token, so long-running processes keep the cache current.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	return &persistingSource{
		auth: a,
		src:  a.config.TokenSource(ctx, tok),
		last: tok,
	}, nil
}

// SignIn runs the installed-app flow: it starts a loopback listener, prints
// the consent URL through notify, and exchanges the returned code for a
// token which is saved to the cache.
func (a *Authenticator) SignIn(ctx context.Context, notify func(url string)) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return status.Wrap(status.ServiceUnavailable, err, "failed to start local redirect server")
	}
	defer listener.Close()

	cfg := *a.config
	cfg.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr())

	state, err := randomState()
	if err != nil {
		return err
	}
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- result{err: status.New(status.NotAuthenticated, "redirect state mismatch")}
			return
		}
		if errMsg := query.Get("error"); errMsg != "" {
			http.Error(w, "sign-in declined", http.StatusBadRequest)
			results <- result{err: status.New(status.NotAuthenticated, "sign-in declined: %s", errMsg)}
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this tab and return to the terminal.")
		results <- result{code: query.Get("code")}
	})}
	go server.Serve(listener)
	defer server.Close()

	notify(authURL)

	ctx, cancel := context.WithTimeout(ctx, signInTimeout)
	defer cancel()

	var code string
	select {
	case res := <-results:
		if res.err != nil {
			return res.err
		}
		code = res.code
	case <-ctx.Done():
		return status.Wrap(status.NotAuthenticated, ctx.Err(), "sign-in timed out")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return status.Wrap(status.NotAuthenticated, err, "code exchange failed")
	}
	log.Info("sign-in complete", "expires", tok.Expiry.Format(time.RFC3339))
	return a.save(tok)
}

// SignOut discards the cached token.
func (a *Authenticator) SignOut() error {
	err := os.Remove(a.tokenPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return status.Wrap(status.CredsInvalid, err, "failed to remove cached credentials")
	}
	return nil
}

// Authenticated reports whether a token cache exists, without validating it.
func (a *Authenticator) Authenticated() bool {
	_, err := os.Stat(a.tokenPath)
	return err == nil
}

func (a *Authenticator) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, status.Err(status.CredsNotFound)
	}
	if err != nil {
		return nil, status.Wrap(status.CredsInvalid, err, "failed to read cached credentials")
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, status.Wrap(status.CredsInvalid, err, "cached credentials are not valid JSON")
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, status.New(status.CredsInvalid, "cached credentials hold no token")
	}
	return &tok, nil
}

func (a *Authenticator) save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0o700); err != nil {
		return status.Wrap(status.CredsInvalid, err, "failed to create credentials directory")
	}
	data, err := json.MarshalIndent(tok, "", "    ")
	if err != nil {
		return status.Wrap(status.CredsInvalid, err, "failed to encode credentials")
	}
	if err := os.WriteFile(a.tokenPath, append(data, '\n'), 0o600); err != nil {
		return status.Wrap(status.CredsInvalid, err, "failed to write credentials")
	}
	return nil
}

// persistingSource saves the token back to disk whenever the wrapped source
// hands out a new one.
type persistingSource struct {
	auth *Authenticator
	src  oauth2.TokenSource
	last *oauth2.Token
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, status.Wrap(status.NotAuthenticated, err, "token refresh failed; sign in again")
	}
	if tok.AccessToken != p.last.AccessToken {
		if err := p.auth.save(tok); err != nil {
			log.Warn("failed to persist refreshed token", "err", err)
		}
		p.last = tok
	}
	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", status.Wrap(status.NotAuthenticated, err, "failed to generate state")
	}
	return hex.EncodeToString(buf), nil
}
