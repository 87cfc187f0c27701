package store

import "errors"

var (
	// ErrNotFound is returned when a requested user or credential does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned by CreateUser when the username is taken.
	ErrUserExists = errors.New("username already exists")
)
