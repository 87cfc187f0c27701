package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/crypto"
	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
	"github.com/nextlevelbuilder/mcpgate/internal/store/redisstore"
	"github.com/nextlevelbuilder/mcpgate/internal/store/sqlstore"
)

// stores bundles the persistence layer every command shares.
type stores struct {
	db      *sqlstore.DB
	users   *sqlstore.UserStore
	creds   store.CredentialStore
	closers []func() error
}

// openStores opens the relational store and the credential backend. With
// migrate set, pending migrations are applied first.
func openStores(ctx context.Context, cfg *config.Config, migrate bool) (*stores, error) {
	sc := cfg.StoreConfig()
	if err := ensureDBDir(sc); err != nil {
		return nil, err
	}

	if migrate {
		v, err := sqlstore.MigrateUp(sc)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Debug("store: schema ready", "version", v)
	}

	db, err := sqlstore.Open(sc)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	st := &stores{db: db, users: sqlstore.NewUserStore(db)}
	st.closers = append(st.closers, db.Close)

	var sealer *crypto.Sealer
	if sc.EncryptionKey != "" {
		sealer, err = crypto.NewSealer(sc.EncryptionKey)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("encryption key: %w", err)
		}
	} else {
		slog.Warn("security.plaintext_api_keys", "hint", "set database.encryption_key or MCPGATE_ENCRYPTION_KEY")
	}

	switch sc.CredentialBackend {
	case "redis":
		rs, err := redisstore.New(ctx, sc.RedisURL, sealer)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open redis credential store: %w", err)
		}
		st.creds = rs
		st.closers = append(st.closers, rs.Close)
	default:
		st.creds = sqlstore.NewCredentialStore(db, sealer)
	}
	return st, nil
}

// ensureDBDir creates the SQLite file's parent directory.
func ensureDBDir(sc store.StoreConfig) error {
	if sc.IsPostgres() || sc.SQLitePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0o700); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}

// Close releases everything in reverse order of opening.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("store: close failed", "error", err)
		}
	}
}

// requireUser fails unless the account exists.
func (s *stores) requireUser(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("--user is required")
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return err
	}
	return nil
}

func providerSettings(cfg *config.Config) providers.Settings {
	p := cfg.Providers
	return providers.Settings{
		OpenAIBase:            p.OpenAI.APIBase,
		OpenAIDefaultModel:    p.OpenAI.DefaultModel,
		AnthropicBase:         p.Anthropic.APIBase,
		AnthropicDefaultModel: p.Anthropic.DefaultModel,
		AnthropicMaxTokens:    p.Anthropic.MaxTokens,
		LocalEnabled:          p.Local.Enabled,
		LocalBase:             p.Local.APIBase,
		Timeout:               time.Duration(p.TimeoutSeconds) * time.Second,
	}
}

func newDriveService(cfg *config.Config) *drive.Service {
	return drive.NewService(&drive.OAuthConnector{
		CredentialsPath: config.ExpandHome(cfg.Drive.CredentialsPath),
		Tokens:          drive.NewTokenStore(cfg.Drive.TokenStore, config.ExpandHome(cfg.Drive.TokenPath)),
		Port:            cfg.Drive.OAuthPort,
	})
}

// mcpDrive returns svc for the MCP tool set, or nil when no OAuth client
// file is present, in which case the google_drive_* tools are not registered.
func mcpDrive(cfg *config.Config, svc *drive.Service) dispatch.Storage {
	path := config.ExpandHome(cfg.Drive.CredentialsPath)
	if _, err := os.Stat(path); err != nil {
		slog.Info("mcp: drive tools disabled", "credentials_path", path, "error", err)
		return nil
	}
	return svc
}

func newDispatcher(cfg *config.Config, storage dispatch.Storage, resolver dispatch.Resolver) *dispatch.Dispatcher {
	return dispatch.New(storage, resolver, dispatch.Config{
		DefaultModel: cfg.Providers.DefaultModel,
		DownloadDir:  config.ExpandHome(cfg.Drive.DownloadDir),
	})
}

// newTokenIssuer builds the JWT issuer. With ephemeral set, a missing secret
// is replaced by a random one that lives as long as the process.
func newTokenIssuer(cfg *config.Config, ephemeral bool) (*auth.TokenIssuer, error) {
	secret := cfg.Auth.JWTSecret
	if secret == "" && ephemeral {
		secret = randomHex(32)
		slog.Warn("security.ephemeral_jwt_secret",
			"hint", "tokens will not survive a restart; set auth.jwt_secret or MCPGATE_JWT_SECRET")
	}
	if secret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is not set (run 'mcpgate onboard' or set MCPGATE_JWT_SECRET)")
	}
	return auth.NewTokenIssuer(secret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return hex.EncodeToString(b)
}
