package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// ErrBadCredentials is returned by Login for an unknown user or wrong password.
var ErrBadCredentials = errors.New("incorrect username or password")

// Service implements registration, login and bearer-token authentication.
type Service struct {
	users  store.UserStore
	tokens *TokenIssuer
}

func NewService(users store.UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates an account. Returns store.ErrUserExists for a taken name.
func (s *Service) Register(ctx context.Context, username, password string) (*store.User, error) {
	if err := store.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &store.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("auth: user registered", "user", username)
	return u, nil
}

// Login checks the password and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("security.login_failed", "user", username, "reason", "unknown_user")
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if !CheckPassword(u.PasswordHash, password) {
		slog.Warn("security.login_failed", "user", username, "reason", "bad_password")
		return "", ErrBadCredentials
	}
	return s.tokens.Issue(username)
}

// IssueToken signs a token for an existing user without a password check.
// Used by the CLI for operator-issued tokens.
func (s *Service) IssueToken(ctx context.Context, username string) (string, error) {
	if _, err := s.users.GetUserByUsername(ctx, username); err != nil {
		return "", err
	}
	return s.tokens.Issue(username)
}

// Authenticate verifies a bearer token and confirms the user still exists.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return username, nil
}
