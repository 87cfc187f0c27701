package drive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Scopes requested during consent.
var Scopes = []string{
	drive.DriveFileScope,
	drive.DriveReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// ConsentFunc runs the interactive consent flow and returns a fresh token.
type ConsentFunc func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// OAuthConnector connects with an installed-app OAuth client. A stored token
// is reused, refreshed when expired, and replaced by an interactive consent
// flow when neither works.
type OAuthConnector struct {
	CredentialsPath string
	Tokens          TokenStore
	Port            int
	// Out receives the consent URL. Defaults to stderr.
	Out io.Writer
	// Consent overrides the interactive flow (tests).
	Consent ConsentFunc
}

func (c *OAuthConnector) Connect(ctx context.Context) (Backend, error) {
	cfg, err := c.oauthConfig()
	if err != nil {
		return nil, err
	}
	// The session outlives the request that created it.
	bg := context.WithoutCancel(ctx)

	tok, err := c.Tokens.Load()
	switch {
	case errors.Is(err, ErrNoToken):
		tok = nil
	case err != nil:
		slog.Warn("drive: stored token unreadable, re-authenticating", "error", err)
		tok = nil
	}

	if tok != nil && !tok.Valid() {
		if tok.RefreshToken == "" {
			tok = nil
		} else if fresh, err := cfg.TokenSource(bg, tok).Token(); err != nil {
			slog.Warn("drive: token refresh failed, re-authenticating", "error", err)
			tok = nil
		} else {
			tok = fresh
		}
	}

	if tok == nil {
		consent := c.Consent
		if consent == nil {
			consent = c.localServerConsent
		}
		if tok, err = consent(ctx, cfg); err != nil {
			return nil, fmt.Errorf("oauth consent: %w", err)
		}
	}
	if err := c.Tokens.Save(tok); err != nil {
		slog.Warn("drive: save token failed", "error", err)
	}

	src := oauth2.ReuseTokenSource(tok, &persistingSource{
		base:  cfg.TokenSource(bg, tok),
		store: c.Tokens,
		last:  tok.AccessToken,
	})
	srv, err := drive.NewService(bg, option.WithHTTPClient(oauth2.NewClient(bg, src)))
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &apiBackend{srv: srv, tokens: src}, nil
}

func (c *OAuthConnector) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(c.CredentialsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Credentials file not found: %s. Please download credentials.json from Google Cloud Console", c.CredentialsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", c.CredentialsPath, err)
	}
	return cfg, nil
}

// localServerConsent prints the consent URL and waits for Google to redirect
// back to a one-shot listener on 127.0.0.1:Port.
func (c *OAuthConnector) localServerConsent(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(c.Port)))
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/", port)

	state := randomState()
	verifier := oauth2.GenerateVerifier()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case q.Get("error") != "":
				fmt.Fprintln(w, "Authorization failed. You may close this window.")
				done <- result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))}
			default:
				fmt.Fprintln(w, "Authorization complete. You may close this window.")
				done <- result{code: q.Get("code")}
			}
		}),
	}
	go srv.Serve(ln)
	defer srv.Close()

	out := c.Out
	if out == nil {
		out = os.Stderr
	}
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(out, "Open this URL to authorize Google Drive access:\n\n%s\n\n", authURL)
	slog.Info("drive: waiting for oauth callback", "port", port)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
