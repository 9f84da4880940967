package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

const principalColumns = `id, username, email, credential_hash, role, active, deleted_at, created_at, updated_at`

type principalsRepo struct {
	q dbtx
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO principals (`+principalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(),
		p.Username,
		strings.ToLower(p.Email),
		p.CredentialHash,
		p.Role.String(),
		boolInt(p.Active),
		nullNanos(p.DeletedAt),
		toNanos(p.CreatedAt),
		toNanos(p.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id idx.ID) (domain.Principal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id.String())
	return scanPrincipal(row)
}

func (r *principalsRepo) GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE username = ?`, username)
	return scanPrincipal(row)
}

func (r *principalsRepo) GetPrincipalByEmail(ctx context.Context, email string) (domain.Principal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE email = ?`, strings.ToLower(email))
	return scanPrincipal(row)
}

func (r *principalsRepo) UpdateCredentialHash(ctx context.Context, id idx.ID, hash string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET credential_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toNanos(at), id.String())
	if err != nil {
		return err
	}
	return notFoundIfUnchanged(res)
}

func (r *principalsRepo) SetPrincipalActive(ctx context.Context, id idx.ID, active bool, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		boolInt(active), toNanos(at), id.String())
	if err != nil {
		return err
	}
	return notFoundIfUnchanged(res)
}

func (r *principalsRepo) SoftDeletePrincipal(ctx context.Context, id idx.ID, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE principals SET active = 0, deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		toNanos(at), toNanos(at), id.String())
	if err != nil {
		return err
	}
	return notFoundIfUnchanged(res)
}

func scanPrincipal(row scanner) (domain.Principal, error) {
	var (
		p                domain.Principal
		id, role         string
		deletedAt        sql.NullInt64
		created, updated int64
	)

	err := row.Scan(&id, &p.Username, &p.Email, &p.CredentialHash, &role,
		&p.Active, &deletedAt, &created, &updated)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}

	p.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("sqlite: principal %s: %w", id, err)
	}

	p.ID = idx.ID(id)
	p.DeletedAt = timePtr(deletedAt)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return p, nil
}

func notFoundIfUnchanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
