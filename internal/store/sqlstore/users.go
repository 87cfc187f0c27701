package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// UserStore implements store.UserStore.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func (s *UserStore) CreateUser(ctx context.Context, u *store.User) error {
	if err := store.ValidateUsername(u.Username); err != nil {
		return err
	}
	if u.ID == uuid.Nil {
		u.ID = store.GenNewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.db.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		u.ID.String(), u.Username, u.PasswordHash, toMillis(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	s.db.ids.Add(u.Username, u.ID.String())
	return nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", row.ID, err)
	}
	s.db.ids.Add(row.Username, row.ID)
	return &store.User{
		BaseModel:    store.BaseModel{ID: id, CreatedAt: fromMillis(row.CreatedAt)},
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
	}, nil
}

func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
