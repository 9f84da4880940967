package domain

import (
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// Principal is a user identity. The auth core only reads it, except for the
// credential hash which a password reset replaces.
type Principal struct {
	ID             idx.ID
	Username       string
	Email          string
	CredentialHash string // argon2id PHC string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Lifecycle
}

// Actor is the subject of an authorization decision.
func (p Principal) Actor() Actor {
	return Actor{ID: p.ID, Role: p.Role}
}

// Actor is who is asking to mutate a resource. Guests have a zero ID.
type Actor struct {
	ID   idx.ID
	Role Role
}

// GuestActor is the unauthenticated caller.
func GuestActor() Actor { return Actor{Role: RoleGuest} }

// CredentialVerifier checks a plaintext credential against a stored hash.
type CredentialVerifier interface {
	Verify(plaintext, hash string) bool
}

// CredentialHasher produces the stored form of a credential.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
}
