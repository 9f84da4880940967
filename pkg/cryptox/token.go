package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// TokenGenerator produces opaque, unguessable token values. Refresh tokens
// and password reset tokens are minted through it.
type TokenGenerator interface {
	Generate() (string, error)
}

// RandomTokens is the crypto/rand backed TokenGenerator.
type RandomTokens struct {
	// Size in bytes, TokenSize256 when zero.
	Size int
}

// Generate implements TokenGenerator.
func (r RandomTokens) Generate() (string, error) {
	size := r.Size
	if size == 0 {
		size = TokenSize256
	}
	return GenerateToken(size)
}

// GenerateToken creates a cryptographically secure random token of the specified byte length.
// The token is returned as a base64url-encoded string (URL-safe, no padding).
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Only fingerprints are persisted, the opaque value never is.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
