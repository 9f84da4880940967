package store

import (
	"context"
	"errors"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by conditional updates that matched no row
	// because another writer got there first (already revoked, already used).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and hands
// out a Tx-scoped set of the same repositories inside WithTx so nested
// transactions cannot be started by accident.
type Store interface {
	Repos

	ApplyMigrations() error

	// SchemaVersion reports the applied migration, ErrNotFound before the
	// first one.
	SchemaVersion() (uint, error)

	// WithTx executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// fn must only use tx; touching the outer Store from inside fn can
	// deadlock drivers that serialise connections.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the repositories.
type Tx interface {
	Repos
}

// Repos groups the sub-repositories.
type Repos interface {
	Principals() Principals
	Sessions() Sessions
	PasswordResets() PasswordResets
	Comments() Comments
}

type Principals interface {
	// CreatePrincipal inserts a principal; ErrAlreadyExists on a duplicate
	// username or email.
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	GetPrincipalByID(ctx context.Context, id idx.ID) (domain.Principal, error)

	// GetPrincipalByUsername is used by login.
	GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error)

	// GetPrincipalByEmail is used by password reset requests.
	GetPrincipalByEmail(ctx context.Context, email string) (domain.Principal, error)

	// UpdateCredentialHash replaces the stored credential and bumps updated_at.
	UpdateCredentialHash(ctx context.Context, id idx.ID, hash string, at time.Time) error

	// SetPrincipalActive enables or disables a principal.
	SetPrincipalActive(ctx context.Context, id idx.ID, active bool, at time.Time) error

	// SoftDeletePrincipal marks the principal deleted. Rows are never removed.
	SoftDeletePrincipal(ctx context.Context, id idx.ID, at time.Time) error
}

// Revocation describes a single-session revoke.
type Revocation struct {
	Reason     string
	At         time.Time
	ReplacedBy idx.ID // set on rotation only
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByID(ctx context.Context, id idx.ID) (domain.Session, error)

	// GetSessionByRefreshHash looks a session up by refresh token fingerprint.
	GetSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error)

	// RevokeSession flips revoked=1 only if the session is not already
	// revoked. ErrConflict if it was, ErrNotFound if it does not exist.
	RevokeSession(ctx context.Context, id idx.ID, rev Revocation) error

	// RevokePrincipalSessions revokes every unrevoked session of a principal
	// and reports how many changed.
	RevokePrincipalSessions(ctx context.Context, principalID idx.ID, reason string, at time.Time) (int64, error)

	// SoftDeleteSessionsExpiredBefore is housekeeping; rows are kept.
	SoftDeleteSessionsExpiredBefore(ctx context.Context, cutoff, at time.Time) (int64, error)
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r domain.PasswordReset) error

	// GetPasswordResetByHash looks a reset up by token fingerprint.
	GetPasswordResetByHash(ctx context.Context, hash string) (domain.PasswordReset, error)

	// MarkPasswordResetUsed sets used=1 only if it is still unused;
	// ErrConflict otherwise.
	MarkPasswordResetUsed(ctx context.Context, id idx.ID, at time.Time) error

	// InvalidateActivePasswordResets marks every unused reset of a principal
	// used, so a newly issued one is the only active token.
	InvalidateActivePasswordResets(ctx context.Context, principalID idx.ID, at time.Time) (int64, error)

	// SoftDeleteResetsExpiredBefore is housekeeping; rows are kept.
	SoftDeleteResetsExpiredBefore(ctx context.Context, cutoff, at time.Time) (int64, error)
}

type Comments interface {
	CreateComment(ctx context.Context, c domain.Comment) error

	// GetCommentByID returns live and soft-deleted comments alike.
	GetCommentByID(ctx context.Context, id idx.ID) (domain.Comment, error)

	// UpdateCommentContent edits a live comment; ErrNotFound if deleted.
	UpdateCommentContent(ctx context.Context, id idx.ID, content string, at time.Time) error

	// SoftDeleteComment marks a live comment deleted; ErrNotFound if it is
	// missing or already deleted.
	SoftDeleteComment(ctx context.Context, id idx.ID, at time.Time) error
}
