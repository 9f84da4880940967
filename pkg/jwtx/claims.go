package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

const (
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL bounds a whole session, not just its refresh token.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims. Subject is the principal id.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session the token was minted for. Revoking it kills the
	// token before exp.
	SID string `json:"sid"`

	// Role of the principal when the token was minted.
	Role string `json:"role"`
}

// NewAccessClaims stamps a fresh jti. expiresAt is explicit so the caller can
// cap a token at its session's expiry.
func NewAccessClaims(subject, sid, role, issuer string, audience []string, now, expiresAt time.Time) Claims {
	c := Claims{SID: sid, Role: role}
	c.Issuer = issuer
	c.Subject = subject
	c.Audience = audience
	c.IssuedAt = jwt.NewNumericDate(now)
	c.NotBefore = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)
	c.ID = NewJTI()
	return c
}

// NewJTI returns a unique "jti" value.
func NewJTI() string {
	return idx.New().String()
}

// Check enforces what the signature check leaves open: the issuer, at least
// one shared audience, and the postauth claims. An empty issuer or audience
// is not enforced.
func (c *Claims) Check(issuer string, audience []string) error {
	switch {
	case issuer != "" && c.Issuer != issuer:
		return ErrIssuer
	case len(audience) > 0 && !slices.ContainsFunc(audience, func(a string) bool {
		return slices.Contains(c.Audience, a)
	}):
		return ErrAudience
	case c.Subject == "" || c.SID == "" || c.Role == "":
		return ErrInvalidClaim
	case c.ExpiresAt == nil || c.IssuedAt == nil:
		return ErrInvalidClaim
	}
	return nil
}
