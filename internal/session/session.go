package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/logging"
	"go.uber.org/zap"
)

// Storage keys, shared with the web storefront.
const (
	TokenKey = "accessToken"
	RoleKey  = "role"
)

// Session holds the access token and role for the current user. Reads are
// served from memory; writes go through to Storage so the session survives
// restarts. A Session is safe for concurrent use.
type Session struct {
	storage Storage
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
	role  string
}

// Open loads any persisted token and role from storage.
func Open(ctx context.Context, storage Storage, logger *zap.Logger) (*Session, error) {
	s := &Session{
		storage: storage,
		logger:  logging.Component(logger, "session"),
	}

	token, _, err := storage.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", TokenKey, err)
	}
	role, _, err := storage.Get(ctx, RoleKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", RoleKey, err)
	}

	s.token = token
	s.role = role
	return s, nil
}

// Token returns the access token, if any.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Authenticated reports whether an access token is present. It does not
// check expiry; the server signals that with a 401.
func (s *Session) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// SetToken replaces the access token. An empty token clears it.
func (s *Session) SetToken(ctx context.Context, token string) {
	if token == "" {
		s.Clear(ctx)
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		s.logger.Warn("failed to persist access token", zap.Error(err))
	}
}

// Role returns the stored role, or "" when unknown.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole replaces the stored role.
func (s *Session) SetRole(ctx context.Context, role string) {
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()

	var err error
	if role == "" {
		err = s.storage.Delete(ctx, RoleKey)
	} else {
		err = s.storage.Set(ctx, RoleKey, role)
	}
	if err != nil {
		s.logger.Warn("failed to persist role", zap.Error(err))
	}
}

// Clear removes the token and role.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.role = ""
	s.mu.Unlock()

	for _, key := range []string{TokenKey, RoleKey} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete session key", zap.String("key", key), zap.Error(err))
		}
	}
}

// IsAdmin reports whether the stored role is admin.
func (s *Session) IsAdmin() bool {
	return s.Role() == auth.RoleAdmin
}

// Claims decodes the current token's claims without verifying them.
func (s *Session) Claims() (*auth.Claims, error) {
	token, ok := s.Token()
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return auth.PeekClaims(token)
}
