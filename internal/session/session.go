// Package session holds the signed-in user and their token, and persists the
// token so it survives restarts.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zombor/scanly/internal/api"
)

// Session is the current authentication state: a user and token, or neither.
// It is created once and injected into whatever needs it.
type Session struct {
	mu     sync.RWMutex
	store  TokenStore
	logger *slog.Logger
	user   *api.User
	token  string
}

// New creates an empty Session backed by store
func New(store TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{store: store, logger: logger}
}

// Login sets the user and token and persists the token.
func (s *Session) Login(token string, user api.User) error {
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	if err := s.store.SaveToken(token); err != nil {
		s.logger.Error("Failed to persist token", "error", err)
		return err
	}
	return nil
}

// Logout clears the user and token and removes the persisted token.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.store.ClearToken(); err != nil {
		s.logger.Error("Failed to remove persisted token", "error", err)
		return err
	}
	return nil
}

// stage holds a token that has not been confirmed by /auth/me yet, so the
// API client can send it. The user stays unset.
func (s *Session) stage(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = nil
}

// Token returns the current token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a user is signed in. Route guards call this
// on every protected request.
func (s *Session) Authenticated() bool {
	return s.User() != nil
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here; the server decides.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
