package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry an access token is replaced.
const refreshBuffer = 30 * time.Second

// Session is a logged-in principal. Methods refresh the access token when
// it is about to expire.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	sessionID    string
	expiresAt    time.Time
	revoked      bool
}

// newSession creates a session from a token pair.
func newSession(client *SDKClient, pair *TokenPair) *Session {
	s := &Session{client: client}
	s.apply(pair)
	return s
}

// apply stores pair. Callers hold the write lock or own s exclusively.
func (s *Session) apply(pair *TokenPair) {
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	if pair.SessionID != "" {
		s.sessionID = pair.SessionID
	}
	s.expiresAt = time.Now().Add(time.Duration(pair.ExpiresIn)*time.Second - refreshBuffer)
}

// Logout revokes the session on the server. The Session is unusable
// afterwards.
func (s *Session) Logout(ctx context.Context) error {
	err := s.do(ctx, exchange{method: http.MethodDelete, path: "/v1/sessions/current", want: http.StatusNoContent})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked = true
	s.mu.Unlock()
	return nil
}

// Refresh rotates the refresh token now, regardless of access token expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// getValidToken returns a valid access token, refreshing it if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.revoked {
		s.mu.RUnlock()
		return "", fmt.Errorf("session has been logged out")
	}
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.revoked {
		return fmt.Errorf("session has been logged out")
	}
	if s.refreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token available")
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(pair)
	return nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// ID returns the server-side session id, empty for sessions built from
// bare tokens that have not refreshed yet.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}
