// Package config loads the mcpgate configuration file (JSON5 or YAML) and
// overlays environment variables on top of it.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/mcpgate/internal/crypto"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// DefaultPath is used when neither --config nor MCPGATE_CONFIG is given.
const DefaultPath = "~/.mcpgate/config.json5"

// Config is the root configuration.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway" yaml:"gateway"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Providers ProvidersConfig `json:"providers" yaml:"providers"`
	Drive     DriveConfig     `json:"drive" yaml:"drive"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

type GatewayConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	RateLimitRPM   int    `json:"rate_limit_rpm" yaml:"rate_limit_rpm"`     // 0 = disabled
	RateLimitBurst int    `json:"rate_limit_burst" yaml:"rate_limit_burst"` // defaults to 5
	MaxBodyBytes   int64  `json:"max_body_bytes" yaml:"max_body_bytes"`
}

type AuthConfig struct {
	JWTSecret       string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	TokenTTLMinutes int    `json:"token_ttl_minutes" yaml:"token_ttl_minutes"`
}

type DatabaseConfig struct {
	Driver            string `json:"driver" yaml:"driver"` // "sqlite" | "postgres"
	SQLitePath        string `json:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN       string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`
	EncryptionKey     string `json:"encryption_key,omitempty" yaml:"encryption_key,omitempty"`
	CredentialBackend string `json:"credential_backend" yaml:"credential_backend"` // "sql" | "redis"
	RedisURL          string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
}

type ProvidersConfig struct {
	DefaultModel   string          `json:"default_model" yaml:"default_model"`
	OpenAI         OpenAIConfig    `json:"openai" yaml:"openai"`
	Anthropic      AnthropicConfig `json:"anthropic" yaml:"anthropic"`
	Local          LocalConfig     `json:"local" yaml:"local"`
	TimeoutSeconds int             `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type OpenAIConfig struct {
	APIBase      string `json:"api_base" yaml:"api_base"`
	DefaultModel string `json:"default_model" yaml:"default_model"`
}

type AnthropicConfig struct {
	APIBase      string `json:"api_base" yaml:"api_base"`
	DefaultModel string `json:"default_model" yaml:"default_model"`
	MaxTokens    int    `json:"max_tokens" yaml:"max_tokens"`
}

type LocalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	APIBase string `json:"api_base" yaml:"api_base"`
}

type DriveConfig struct {
	CredentialsPath string `json:"credentials_path" yaml:"credentials_path"`
	TokenPath       string `json:"token_path" yaml:"token_path"`
	TokenStore      string `json:"token_store" yaml:"token_store"` // "file" | "keyring"
	OAuthPort       int    `json:"oauth_port" yaml:"oauth_port"`
	DownloadDir     string `json:"download_dir,omitempty" yaml:"download_dir,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // text | json
}

type TelemetryConfig struct {
	Enabled     bool              `json:"enabled" yaml:"enabled"`
	Endpoint    string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty" yaml:"protocol,omitempty"` // grpc | http
	Insecure    bool              `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Default returns a config with every field at its built-in default.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			RateLimitBurst: 5,
			MaxBodyBytes:   10 << 20,
		},
		Auth: AuthConfig{TokenTTLMinutes: 30},
		Database: DatabaseConfig{
			Driver:            "sqlite",
			SQLitePath:        "~/.mcpgate/mcpgate.db",
			CredentialBackend: "sql",
		},
		Providers: ProvidersConfig{
			DefaultModel: "openai",
			OpenAI: OpenAIConfig{
				APIBase:      "https://api.openai.com/v1",
				DefaultModel: "gpt-3.5-turbo",
			},
			Anthropic: AnthropicConfig{
				APIBase:      "https://api.anthropic.com/v1",
				DefaultModel: "claude-3-sonnet-20240229",
				MaxTokens:    1000,
			},
			Local: LocalConfig{
				Enabled: true,
				APIBase: "http://localhost:11434",
			},
			TimeoutSeconds: 120,
		},
		Drive: DriveConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
			TokenStore:      "file",
			OAuthPort:       8080,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "mcpgate",
		},
	}
}

// Load reads the config file at path. A missing file yields defaults.
// Environment variables are applied last and win over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandHome(path))
	switch {
	case err == nil:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		slog.Debug("config file not found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json5.Unmarshal(data, cfg)
}

// Save writes cfg to path, creating parent directories. The encoding follows
// the file extension.
func Save(path string, cfg *Config) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnv() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				slog.Warn("config: ignoring non-numeric env", "key", key, "value", v)
			}
		}
	}

	envStr("MCPGATE_JWT_SECRET", &c.Auth.JWTSecret)
	envStr("MCPGATE_ENCRYPTION_KEY", &c.Database.EncryptionKey)
	envStr("MCPGATE_SQLITE_PATH", &c.Database.SQLitePath)
	if v := os.Getenv("MCPGATE_POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
		c.Database.Driver = "postgres"
	}
	if v := os.Getenv("MCPGATE_REDIS_URL"); v != "" {
		c.Database.RedisURL = v
		c.Database.CredentialBackend = "redis"
	}
	envStr("GOOGLE_DRIVE_CREDENTIALS_PATH", &c.Drive.CredentialsPath)
	envStr("GOOGLE_DRIVE_TOKEN_PATH", &c.Drive.TokenPath)
	envStr("HOST", &c.Gateway.Host)
	envInt("PORT", &c.Gateway.Port)
	envInt("ACCESS_TOKEN_EXPIRE_MINUTES", &c.Auth.TokenTTLMinutes)
}

// Validate checks enumerated fields and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", c.Database.Driver)
	}

	switch c.Database.CredentialBackend {
	case "sql":
	case "redis":
		if c.Database.RedisURL == "" {
			return fmt.Errorf("database.redis_url is required for the redis credential backend")
		}
	default:
		return fmt.Errorf("database.credential_backend must be \"sql\" or \"redis\", got %q", c.Database.CredentialBackend)
	}

	if c.Database.EncryptionKey != "" {
		if _, err := crypto.DeriveKey(c.Database.EncryptionKey); err != nil {
			return fmt.Errorf("database.encryption_key: %w", err)
		}
	}

	if c.Drive.TokenStore != "file" && c.Drive.TokenStore != "keyring" {
		return fmt.Errorf("drive.token_store must be \"file\" or \"keyring\", got %q", c.Drive.TokenStore)
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port)
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	return nil
}

// StoreConfig converts the database section for the store layer.
func (c *Config) StoreConfig() store.StoreConfig {
	return store.StoreConfig{
		Driver:            c.Database.Driver,
		SQLitePath:        ExpandHome(c.Database.SQLitePath),
		PostgresDSN:       c.Database.PostgresDSN,
		EncryptionKey:     c.Database.EncryptionKey,
		CredentialBackend: c.Database.CredentialBackend,
		RedisURL:          c.Database.RedisURL,
	}
}

// SlogLevel maps log.level onto slog levels. Unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
