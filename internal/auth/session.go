// Package auth holds the client's credentials and the local web front's
// visit cookies.
//
// TWO DIFFERENT TOKENS:
//
//	Session      → the opaque bearer token issued by the remote API at login.
//	               Persisted on disk, attached to every authenticated request.
//	VisitTokens  → short-lived JWTs the local web front hands to the browser
//	               so it can find the detail view a tab has mounted.
//
// They never mix: the bearer token is never sent to the browser, and visit
// cookies never leave localhost.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sakif/resourcehub/internal/repository"
)

// ErrNoToken is returned by Session.Token when the user is logged out.
var ErrNoToken = errors.New("auth: no session token")

// Session is the explicit session context handed to the API client.
//
// The token is read on every authenticated call and written only by login
// and logout, so reads take an RLock and never touch the store.
//
// Session implements oauth2.TokenSource: the API client asks it for a token
// and lets (*oauth2.Token).SetAuthHeader format "Authorization: Bearer …".
type Session struct {
	mu    sync.RWMutex
	token string
	store repository.SessionRepository
}

var _ oauth2.TokenSource = (*Session)(nil)

// OpenSession restores the persisted token so a restart doesn't force a
// new login.
func OpenSession(ctx context.Context, store repository.SessionRepository) (*Session, error) {
	token, err := store.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: restoring session: %w", err)
	}
	return &Session{token: token, store: store}, nil
}

// Token returns the bearer token, or ErrNoToken when there is none.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// HasToken reports whether a user is logged in. It never does I/O.
func (s *Session) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// SetToken persists a new token. The in-memory copy only changes once the
// store has accepted it, so a failed write can't leave the two disagreeing.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("auth: refusing to store an empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("auth: saving session: %w", err)
	}
	s.token = token
	return nil
}

// Clear logs the user out.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteToken(ctx); err != nil {
		return fmt.Errorf("auth: clearing session: %w", err)
	}
	s.token = ""
	return nil
}

// MemoryStore is a SessionRepository that forgets everything on exit.
// Used by tests and by `hub --ephemeral`.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

var _ repository.SessionRepository = (*MemoryStore)(nil)

func (m *MemoryStore) GetToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) DeleteToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
