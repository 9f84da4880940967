package domain

import (
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// TokenPair is what session issuance and refresh return: the short-lived
// access token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"` // always "Bearer"
	ExpiresIn        int64     `json:"expires_in"` // seconds until the access token expires
	SessionID        idx.ID    `json:"session_id"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Identity is what a verified access token asserts.
type Identity struct {
	PrincipalID idx.ID
	SessionID   idx.ID
	Role        Role
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Actor returns the authorization subject for this identity.
func (i Identity) Actor() Actor {
	return Actor{ID: i.PrincipalID, Role: i.Role}
}
