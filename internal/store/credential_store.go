package store

import "context"

// CredentialStore manages per-user, per-model API keys.
// At most one credential exists per (username, model name); Upsert overwrites.
type CredentialStore interface {
	// Get returns the plain-text secret, or ErrNotFound.
	Get(ctx context.Context, username, model string) (string, error)
	Upsert(ctx context.Context, username, model, secret string) error
	// Delete reports whether a credential was removed.
	Delete(ctx context.Context, username, model string) (bool, error)
	// List returns the user's model names ordered by name. Secrets are never included.
	List(ctx context.Context, username string) ([]CredentialInfo, error)
}
