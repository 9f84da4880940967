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

const passwordResetColumns = `id, principal_id, token_hash, issued_at, expires_at, used, used_at, active, deleted_at`

type passwordResetsRepo struct {
	q dbtx
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, pr domain.PasswordReset) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_resets (`+passwordResetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pr.ID.String(),
		pr.PrincipalID.String(),
		pr.TokenHash,
		toNanos(pr.IssuedAt),
		toNanos(pr.ExpiresAt),
		boolInt(pr.Used),
		nullNanos(pr.UsedAt),
		boolInt(pr.Active),
		nullNanos(pr.DeletedAt),
	)
	return mapUniqueViolation(err)
}

func (r *passwordResetsRepo) GetPasswordResetByHash(ctx context.Context, hash string) (domain.PasswordReset, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+passwordResetColumns+` FROM password_resets WHERE token_hash = ?`, hash)
	return scanPasswordReset(row)
}

func (r *passwordResetsRepo) MarkPasswordResetUsed(ctx context.Context, id idx.ID, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_resets SET used = 1, used_at = ? WHERE id = ? AND used = 0`,
		toNanos(at), id.String())
	if err != nil {
		return err
	}

	err = rowsChanged(res)
	if !errors.Is(err, store.ErrConflict) {
		return err
	}

	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM password_resets WHERE id = ?`, id.String()).Scan(&one); err != nil {
		return mapNotFound(err)
	}
	return store.ErrConflict
}

func (r *passwordResetsRepo) InvalidateActivePasswordResets(
	ctx context.Context,
	principalID idx.ID,
	at time.Time,
) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_resets SET used = 1, used_at = ? WHERE principal_id = ? AND used = 0`,
		toNanos(at), principalID.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *passwordResetsRepo) SoftDeleteResetsExpiredBefore(ctx context.Context, cutoff, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE password_resets
		SET active = 0, deleted_at = ?
		WHERE expires_at < ? AND deleted_at IS NULL`,
		toNanos(at), toNanos(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanPasswordReset(row scanner) (domain.PasswordReset, error) {
	var (
		pr                domain.PasswordReset
		id, principal     string
		issued, expires   int64
		usedAt, deletedAt sql.NullInt64
	)

	err := row.Scan(&id, &principal, &pr.TokenHash, &issued, &expires, &pr.Used, &usedAt,
		&pr.Active, &deletedAt)
	if err != nil {
		return domain.PasswordReset{}, mapNotFound(err)
	}

	pr.ID = idx.ID(id)
	pr.PrincipalID = idx.ID(principal)
	pr.IssuedAt = fromNanos(issued)
	pr.ExpiresAt = fromNanos(expires)
	pr.UsedAt = timePtr(usedAt)
	pr.DeletedAt = timePtr(deletedAt)
	return pr, nil
}
