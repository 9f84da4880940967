package domain

import (
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// PasswordReset is a single-use reset token record. Only the token
// fingerprint is stored.
type PasswordReset struct {
	ID          idx.ID
	PrincipalID idx.ID
	TokenHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Used        bool
	UsedAt      *time.Time

	Lifecycle
}

// Expired reports whether the token is past its expiry at now.
func (r PasswordReset) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
