package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/mcpgate/internal/crypto"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// CredentialStore implements store.CredentialStore over the api_keys table.
// Secrets are sealed with the configured key before they reach the database.
type CredentialStore struct {
	db     *DB
	sealer *crypto.Sealer
}

func NewCredentialStore(db *DB, sealer *crypto.Sealer) *CredentialStore {
	return &CredentialStore{db: db, sealer: sealer}
}

func (s *CredentialStore) Get(ctx context.Context, username, model string) (string, error) {
	userID, err := s.db.userID(ctx, username)
	if err != nil {
		return "", err
	}

	var value string
	err = s.db.GetContext(ctx, &value,
		s.db.Rebind(`SELECT api_key FROM api_keys WHERE user_id = ? AND model_name = ?`), userID, model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get api key: %w", err)
	}

	plain, err := s.sealer.Open(value)
	if err != nil {
		return "", fmt.Errorf("decrypt api key %q: %w", model, err)
	}
	return plain, nil
}

func (s *CredentialStore) Upsert(ctx context.Context, username, model, secret string) error {
	if err := store.ValidateModelName(model); err != nil {
		return err
	}
	userID, err := s.db.userID(ctx, username)
	if err != nil {
		return err
	}

	sealed, err := s.sealer.Seal(secret)
	if err != nil {
		return fmt.Errorf("encrypt api key %q: %w", model, err)
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO api_keys (id, user_id, model_name, api_key, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, model_name) DO UPDATE SET api_key = excluded.api_key, updated_at = excluded.updated_at`),
		store.GenNewID().String(), userID, model, sealed, toMillis(s.db.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert api key: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, username, model string) (bool, error) {
	userID, err := s.db.userID(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM api_keys WHERE user_id = ? AND model_name = ?`), userID, model)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type credentialRow struct {
	ModelName string `db:"model_name"`
	UpdatedAt int64  `db:"updated_at"`
}

func (s *CredentialStore) List(ctx context.Context, username string) ([]store.CredentialInfo, error) {
	userID, err := s.db.userID(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []credentialRow
	err = s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT model_name, updated_at FROM api_keys WHERE user_id = ? ORDER BY model_name`), userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	out := make([]store.CredentialInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.CredentialInfo{ModelName: r.ModelName, UpdatedAt: fromMillis(r.UpdatedAt)})
	}
	return out, nil
}

// Count returns how many rows exist for (username, model).
func (s *CredentialStore) Count(ctx context.Context, username, model string) (int, error) {
	userID, err := s.db.userID(ctx, username)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.GetContext(ctx, &n,
		s.db.Rebind(`SELECT COUNT(*) FROM api_keys WHERE user_id = ? AND model_name = ?`), userID, model)
	return n, err
}
