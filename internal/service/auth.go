// Package service holds the client-side view logic of ResourceHub.
//
// Both front ends (the local web server and the terminal commands) drive the
// same services:
//
//	handler / cmd → service (view rules) → repository.* (remote API, SQLite)
//	                   ↘ auth.Session (bearer token)
//
// KEY RESPONSIBILITIES:
//   - Decide who the viewer is (IdentityResolver)
//   - Run the resource detail view with optimistic likes (ResourceDetail)
//   - Keep the "my resources" list in step with create/delete (ProfileView)
//   - Log in, register, and log out (AuthService)
//
// Nothing in here knows about HTTP requests, cookies, or terminals.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/repository"
)

// TokenStore is the session as AuthService sees it. *auth.Session satisfies it.
type TokenStore interface {
	TokenChecker
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// AuthService handles login, registration, and logout.
//
// DEPENDENCIES (injected via NewAuthService):
//   - remote   repository.AuthRepository → POST /auth/login, /auth/register
//   - session  TokenStore                → where the bearer token lives
//   - logger   *slog.Logger              → structured logging
type AuthService struct {
	remote  repository.AuthRepository
	session TokenStore
	logger  *slog.Logger
}

func NewAuthService(remote repository.AuthRepository, session TokenStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		remote:  remote,
		session: session,
		logger:  logger,
	}
}

// Login exchanges credentials for a token and stores it in the session.
// The password is sent once and never kept.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}

	token, err := s.remote.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("service/auth: logging in %q: %w", username, err)
	}
	if err := s.session.SetToken(ctx, token); err != nil {
		return fmt.Errorf("service/auth: storing session: %w", err)
	}

	s.logger.Info("logged in", slog.String("username", username))
	return nil
}

// Register creates an account. It does not log in; the caller does that
// separately, as the server issues no token on registration.
func (s *AuthService) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return apperror.ValidationFailed("username", "username is required")
	case email == "":
		return apperror.ValidationFailed("email", "email is required")
	case password == "":
		return apperror.ValidationFailed("password", "password is required")
	}

	if err := s.remote.Register(ctx, username, email, password); err != nil {
		return fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("account registered", slog.String("username", username))
	return nil
}

// Logout forgets the token. There is no server-side logout.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.session.Clear(ctx); err != nil {
		return fmt.Errorf("service/auth: clearing session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// LoggedIn reports whether a token is present. It says nothing about
// whether the server still accepts it.
func (s *AuthService) LoggedIn() bool {
	return s.session.HasToken()
}
