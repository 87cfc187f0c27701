package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a TokenStore that holds nothing yet.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// FileTokenStore keeps the token as JSON on disk.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", s.Path, err)
	}
	return &tok, nil
}

func (s FileTokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	return os.WriteFile(s.Path, data, 0o600)
}

const keyringService = "mcpgate-drive"

// KeyringTokenStore keeps the token in the OS keychain.
type KeyringTokenStore struct {
	Account string
}

func (s KeyringTokenStore) account() string {
	if s.Account == "" {
		return "default"
	}
	return s.Account
}

func (s KeyringTokenStore) Load() (*oauth2.Token, error) {
	raw, err := keyring.Get(keyringService, s.account())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode keyring token: %w", err)
	}
	return &tok, nil
}

func (s KeyringTokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, s.account(), string(data)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// NewTokenStore picks a store by kind ("file" or "keyring").
func NewTokenStore(kind, path string) TokenStore {
	if kind == "keyring" {
		return KeyringTokenStore{}
	}
	return FileTokenStore{Path: path}
}

// persistingSource saves every new access token it sees so refreshed tokens
// survive restarts. Callers must serialise Token; oauth2.ReuseTokenSource does.
type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore
	last  string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.store.Save(tok); err != nil {
			slog.Warn("drive: persist refreshed token failed", "error", err)
		}
	}
	return tok, nil
}
