package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
	"github.com/nextlevelbuilder/mcpgate/internal/config"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "nested", "mcpgate.db")
	cfg.Database.EncryptionKey = strings.Repeat("ab", 32)
	return cfg
}

func TestOpenStoresSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	st, err := openStores(ctx, cfg, true)
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	defer st.Close()

	if err := st.requireUser(ctx, "alice"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("requireUser before register = %v", err)
	}
	if err := st.requireUser(ctx, ""); err == nil {
		t.Fatal("empty user accepted")
	}
	if _, err := auth.NewService(st.users, nil).Register(ctx, "alice", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := st.requireUser(ctx, "alice"); err != nil {
		t.Fatalf("requireUser: %v", err)
	}

	if err := st.creds.Upsert(ctx, "alice", "openai", "sk-1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := st.creds.Get(ctx, "alice", "openai")
	if err != nil || got != "sk-1" {
		t.Fatalf("get = %q, %v", got, err)
	}
}

func TestOpenStoresBadEncryptionKey(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Database.EncryptionKey = "too-short"
	if _, err := openStores(context.Background(), cfg, true); err == nil {
		t.Fatal("expected encryption key error")
	}
}

func TestNewTokenIssuer(t *testing.T) {
	cfg := config.Default()
	if _, err := newTokenIssuer(cfg, false); err == nil {
		t.Error("missing secret accepted without ephemeral")
	}

	iss, err := newTokenIssuer(cfg, true)
	if err != nil {
		t.Fatalf("ephemeral: %v", err)
	}
	tok, err := iss.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if user, err := iss.Verify(tok); err != nil || user != "alice" {
		t.Errorf("verify = %q, %v", user, err)
	}
}

func TestProviderSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.TimeoutSeconds = 7
	cfg.Providers.Local.Enabled = false
	s := providerSettings(cfg)
	if s.Timeout != 7*time.Second {
		t.Errorf("timeout = %v", s.Timeout)
	}
	if s.LocalEnabled {
		t.Error("local should be disabled")
	}
	if s.OpenAIBase != cfg.Providers.OpenAI.APIBase || s.AnthropicMaxTokens != cfg.Providers.Anthropic.MaxTokens {
		t.Errorf("settings = %+v", s)
	}
}

func TestMCPDriveNeedsCredentialsFile(t *testing.T) {
	cfg := config.Default()
	cfg.Drive.CredentialsPath = filepath.Join(t.TempDir(), "credentials.json")
	cfg.Drive.TokenPath = filepath.Join(t.TempDir(), "token.json")
	svc := newDriveService(cfg)

	if got := mcpDrive(cfg, svc); got != nil {
		t.Fatalf("drive tools wired without a credentials file: %v", got)
	}

	if err := os.WriteFile(cfg.Drive.CredentialsPath, []byte(`{"installed":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := mcpDrive(cfg, svc); got == nil {
		t.Fatal("drive tools missing with a credentials file present")
	}
}
