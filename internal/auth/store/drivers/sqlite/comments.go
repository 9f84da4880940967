package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

const commentColumns = `id, author_id, post_id, content, active, deleted_at, created_at, updated_at`

type commentsRepo struct {
	q dbtx
}

func (r *commentsRepo) CreateComment(ctx context.Context, c domain.Comment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(),
		c.AuthorID.String(),
		c.PostID.String(),
		c.Content,
		boolInt(c.Active),
		nullNanos(c.DeletedAt),
		toNanos(c.CreatedAt),
		toNanos(c.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *commentsRepo) GetCommentByID(ctx context.Context, id idx.ID) (domain.Comment, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id.String())
	return scanComment(row)
}

func (r *commentsRepo) UpdateCommentContent(ctx context.Context, id idx.ID, content string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		content, toNanos(at), id.String())
	if err != nil {
		return err
	}
	return notFoundIfUnchanged(res)
}

func (r *commentsRepo) SoftDeleteComment(ctx context.Context, id idx.ID, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE comments SET active = 0, deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		toNanos(at), toNanos(at), id.String())
	if err != nil {
		return err
	}
	return notFoundIfUnchanged(res)
}

func scanComment(row scanner) (domain.Comment, error) {
	var (
		c                domain.Comment
		id, author, post string
		deletedAt        sql.NullInt64
		created, updated int64
	)

	err := row.Scan(&id, &author, &post, &c.Content, &c.Active, &deletedAt, &created, &updated)
	if err != nil {
		return domain.Comment{}, mapNotFound(err)
	}

	c.ID = idx.ID(id)
	c.AuthorID = idx.ID(author)
	c.PostID = idx.ID(post)
	c.DeletedAt = timePtr(deletedAt)
	c.CreatedAt = fromNanos(created)
	c.UpdatedAt = fromNanos(updated)
	return c, nil
}
