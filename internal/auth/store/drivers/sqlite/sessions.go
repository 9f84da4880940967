package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

const sessionColumns = `id, principal_id, refresh_hash, issued_at, expires_at, revoked, revoked_at,
	revoke_reason, replaced_by, active, deleted_at`

type sessionsRepo struct {
	q dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(),
		s.PrincipalID.String(),
		s.RefreshHash,
		toNanos(s.IssuedAt),
		toNanos(s.ExpiresAt),
		boolInt(s.Revoked),
		nullNanos(s.RevokedAt),
		s.RevokeReason,
		s.ReplacedBy.String(),
		boolInt(s.Active),
		nullNanos(s.DeletedAt),
	)
	return mapUniqueViolation(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id idx.ID) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_hash = ?`, hash)
	return scanSession(row)
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id idx.ID, rev store.Revocation) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET revoked = 1, revoked_at = ?, revoke_reason = ?, replaced_by = ?
		WHERE id = ? AND revoked = 0`,
		toNanos(rev.At), rev.Reason, rev.ReplacedBy.String(), id.String())
	if err != nil {
		return err
	}

	err = rowsChanged(res)
	if !errors.Is(err, store.ErrConflict) {
		return err
	}

	// Nothing changed: tell "already revoked" apart from "no such session".
	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id.String()).Scan(&one); err != nil {
		return mapNotFound(err)
	}
	return store.ErrConflict
}

func (r *sessionsRepo) RevokePrincipalSessions(
	ctx context.Context,
	principalID idx.ID,
	reason string,
	at time.Time,
) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET revoked = 1, revoked_at = ?, revoke_reason = ?
		WHERE principal_id = ? AND revoked = 0`,
		toNanos(at), reason, principalID.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) SoftDeleteSessionsExpiredBefore(ctx context.Context, cutoff, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET active = 0, deleted_at = ?
		WHERE expires_at < ? AND deleted_at IS NULL`,
		toNanos(at), toNanos(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row scanner) (domain.Session, error) {
	var (
		s                       domain.Session
		id, principal, replaced string
		issued, expires         int64
		revokedAt, deletedAt    sql.NullInt64
	)

	err := row.Scan(&id, &principal, &s.RefreshHash, &issued, &expires, &s.Revoked, &revokedAt,
		&s.RevokeReason, &replaced, &s.Active, &deletedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.ID = idx.ID(id)
	s.PrincipalID = idx.ID(principal)
	s.ReplacedBy = idx.ID(replaced)
	s.IssuedAt = fromNanos(issued)
	s.ExpiresAt = fromNanos(expires)
	s.RevokedAt = timePtr(revokedAt)
	s.DeletedAt = timePtr(deletedAt)
	return s, nil
}
