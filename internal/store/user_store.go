package store

import "context"

// UserStore persists registered accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrUserExists if the username is taken.
	CreateUser(ctx context.Context, u *User) error
	// GetUserByUsername returns ErrNotFound if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CountUsers(ctx context.Context) (int, error)
}
