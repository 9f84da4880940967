package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/authz"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

const (
	opCreateComment = "create_comment"
	opUpdateComment = "update_comment"
	opDeleteComment = "delete_comment"
)

// CommentService applies the actor's role strategy to every comment
// mutation. A request must be both authorized and valid. Strategies may waive
// validation, but a mutation always needs a payload to write.
type CommentService struct {
	Store    store.Store
	Registry *authz.Registry

	Clock   clockx.Clock
	IDs     idx.Source
	Metrics *metrics.Metrics
}

func (s *CommentService) Create(ctx context.Context, actor domain.Actor, payload *domain.CommentPayload) (domain.Comment, error) {
	strategy, err := s.Registry.Resolve(actor.Role)
	if err != nil {
		return domain.Comment{}, err
	}

	if err := s.check(ctx, actor, opCreateComment, strategy.CanCreateComment(ctx, actor)); err != nil {
		return domain.Comment{}, err
	}
	if d := strategy.ValidateCreateData(payload); !d.Allowed {
		return domain.Comment{}, fmt.Errorf("%w: %s", ErrInvalidPayload, d.Reason)
	}
	if payload == nil {
		return domain.Comment{}, fmt.Errorf("%w: %s", ErrInvalidPayload, authz.ReasonMissingPayload)
	}

	now := s.now()
	c := domain.Comment{
		ID:        s.ids().NewID(),
		AuthorID:  actor.ID,
		PostID:    payload.PostID,
		Content:   strings.TrimSpace(payload.Content),
		CreatedAt: now,
		UpdatedAt: now,
		Lifecycle: domain.NewLifecycle(),
	}
	if err := s.Store.Comments().CreateComment(ctx, c); err != nil {
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	slogx.FromContext(ctx).Info("comment created", "comment_id", c.ID, "author_id", c.AuthorID)
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, actor domain.Actor, id idx.ID, payload *domain.CommentPayload) (domain.Comment, error) {
	strategy, err := s.Registry.Resolve(actor.Role)
	if err != nil {
		return domain.Comment{}, err
	}

	target, err := s.load(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}

	if err := s.check(ctx, actor, opUpdateComment, strategy.CanUpdateComment(ctx, actor, target)); err != nil {
		return domain.Comment{}, err
	}
	if d := strategy.ValidateUpdateData(payload); !d.Allowed {
		return domain.Comment{}, fmt.Errorf("%w: %s", ErrInvalidPayload, d.Reason)
	}
	if payload == nil {
		return domain.Comment{}, fmt.Errorf("%w: %s", ErrInvalidPayload, authz.ReasonMissingPayload)
	}

	now := s.now()
	content := strings.TrimSpace(payload.Content)
	if err := s.Store.Comments().UpdateCommentContent(ctx, id, content, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Comment{}, ErrCommentNotFound
		}
		return domain.Comment{}, fmt.Errorf("update comment: %w", err)
	}

	target.Content = content
	target.UpdatedAt = now
	slogx.FromContext(ctx).Info("comment updated", "comment_id", id, "actor_id", actor.ID)
	return target, nil
}

// Delete soft-deletes the comment.
func (s *CommentService) Delete(ctx context.Context, actor domain.Actor, id idx.ID) error {
	strategy, err := s.Registry.Resolve(actor.Role)
	if err != nil {
		return err
	}

	target, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.check(ctx, actor, opDeleteComment, strategy.CanDeleteComment(ctx, actor, target)); err != nil {
		return err
	}

	if err := s.Store.Comments().SoftDeleteComment(ctx, id, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}

	slogx.FromContext(ctx).Info("comment deleted", "comment_id", id, "actor_id", actor.ID)
	return nil
}

func (s *CommentService) load(ctx context.Context, id idx.ID) (domain.Comment, error) {
	c, err := s.Store.Comments().GetCommentByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Comment{}, ErrCommentNotFound
		}
		return domain.Comment{}, err
	}
	if !domain.IsLive(c) {
		return domain.Comment{}, ErrCommentNotFound
	}
	return c, nil
}

func (s *CommentService) check(ctx context.Context, actor domain.Actor, op string, d authz.Decision) error {
	s.Metrics.AuthzDecision(actor.Role.String(), op, d.Allowed)
	if d.Allowed {
		return nil
	}
	slogx.FromContext(ctx).Info("comment mutation denied",
		"op", op,
		"actor_id", actor.ID,
		"role", actor.Role,
		"reason", d.Reason,
	)
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

func (s *CommentService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *CommentService) ids() idx.Source {
	if s.IDs == nil {
		return idx.ClockSource{Clock: s.Clock}
	}
	return s.IDs
}
