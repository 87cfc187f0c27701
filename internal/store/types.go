package store

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common fields for all database models.
type BaseModel struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// GenNewID generates a new UUID v7 (time-ordered).
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// User is a registered account. Users are created at registration and never
// mutated afterwards.
type User struct {
	BaseModel
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// CredentialInfo describes a stored API key without its secret.
type CredentialInfo struct {
	ModelName string    `json:"model_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreConfig configures the store layer.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string

	// SQLitePath is the database file used when Driver is "sqlite".
	SQLitePath string

	// PostgresDSN is the Postgres connection string used when Driver is "postgres".
	PostgresDSN string

	// EncryptionKey is the AES-256 key for sealing stored API keys.
	// If empty, API keys are stored in plain text.
	EncryptionKey string

	// CredentialBackend is "sql" (default) or "redis".
	CredentialBackend string

	// RedisURL is used when CredentialBackend is "redis".
	RedisURL string
}

// IsPostgres returns true if the relational store is backed by Postgres.
func (c StoreConfig) IsPostgres() bool {
	return c.Driver == "postgres" && c.PostgresDSN != ""
}
