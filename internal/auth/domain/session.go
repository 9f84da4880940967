package domain

import (
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// Revocation reasons recorded on sessions.
const (
	RevokeReasonLogout        = "logout"
	RevokeReasonLogoutAll     = "logout_all"
	RevokeReasonRotated       = "rotated"
	RevokeReasonReuseDetected = "reuse_detected"
	RevokeReasonPasswordReset = "password_reset"
)

// SessionState is the derived state of a Session at a given instant.
type SessionState uint8

const (
	SessionActive SessionState = iota
	SessionExpired
	SessionRevoked
	SessionDeleted
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionExpired:
		return "expired"
	case SessionRevoked:
		return "revoked"
	case SessionDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Session is one refresh-token lineage link. Rotation revokes the session and
// points ReplacedBy at its successor. Only the refresh token fingerprint is
// stored.
type Session struct {
	ID           idx.ID
	PrincipalID  idx.ID
	RefreshHash  string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Revoked      bool
	RevokedAt    *time.Time
	RevokeReason string
	ReplacedBy   idx.ID

	Lifecycle
}

// State reports the session state at now. Deleted wins over Revoked, which
// wins over Expired.
func (s Session) State(now time.Time) SessionState {
	switch {
	case !IsLive(s):
		return SessionDeleted
	case s.Revoked:
		return SessionRevoked
	case !now.Before(s.ExpiresAt):
		return SessionExpired
	default:
		return SessionActive
	}
}
