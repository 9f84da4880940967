package authz

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
)

var (
	_ Strategy = Owner{}
	_ Strategy = Moderator{}
	_ Strategy = Admin{}
	_ Strategy = Guest{}
)

// Owner is the strategy for ordinary users: anyone signed in may comment,
// only the author may edit or delete, and content is shape checked.
type Owner struct {
	// MaxLength in runes; domain.MaxCommentLength when zero.
	MaxLength int
}

func (Owner) CanCreateComment(_ context.Context, actor domain.Actor) Decision {
	if actor.ID.IsZero() {
		return Deny(ReasonUnauthenticated)
	}
	return Allow(ReasonAuthenticated)
}

func (o Owner) CanUpdateComment(_ context.Context, actor domain.Actor, target domain.Comment) Decision {
	return ownership(actor, target)
}

func (o Owner) CanDeleteComment(_ context.Context, actor domain.Actor, target domain.Comment) Decision {
	return ownership(actor, target)
}

func (o Owner) ValidateCreateData(payload *domain.CommentPayload) Decision {
	if payload == nil {
		return Deny(ReasonMissingPayload)
	}
	if payload.PostID.IsZero() {
		return Deny(ReasonMissingPost)
	}
	return o.validateContent(payload.Content)
}

func (o Owner) ValidateUpdateData(payload *domain.CommentPayload) Decision {
	if payload == nil {
		return Deny(ReasonMissingPayload)
	}
	return o.validateContent(payload.Content)
}

func (o Owner) validateContent(content string) Decision {
	limit := o.MaxLength
	if limit <= 0 {
		limit = domain.MaxCommentLength
	}

	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return Deny(ReasonEmptyContent)
	case utf8.RuneCountInString(trimmed) > limit:
		return Deny(ReasonContentTooLong)
	default:
		return Allow(ReasonValid)
	}
}

func ownership(actor domain.Actor, target domain.Comment) Decision {
	if actor.ID.IsZero() {
		return Deny(ReasonUnauthenticated)
	}
	if target.AuthorID != actor.ID {
		return Deny(ReasonNotOwner)
	}
	return Allow(ReasonOwner)
}

// Moderator is the override authority: every check passes, including payload
// validation.
type Moderator struct{}

func (Moderator) CanCreateComment(context.Context, domain.Actor) Decision {
	return Allow(ReasonElevatedRole)
}

func (Moderator) CanUpdateComment(context.Context, domain.Actor, domain.Comment) Decision {
	return Allow(ReasonElevatedRole)
}

func (Moderator) CanDeleteComment(context.Context, domain.Actor, domain.Comment) Decision {
	return Allow(ReasonElevatedRole)
}

func (Moderator) ValidateCreateData(*domain.CommentPayload) Decision {
	return Allow(ReasonElevatedRole)
}

func (Moderator) ValidateUpdateData(*domain.CommentPayload) Decision {
	return Allow(ReasonElevatedRole)
}

// Admin may act on any comment like a Moderator, but what it writes is
// validated like an Owner's.
type Admin struct {
	Moderator
	Validation Owner
}

func (a Admin) ValidateCreateData(payload *domain.CommentPayload) Decision {
	return a.Validation.ValidateCreateData(payload)
}

func (a Admin) ValidateUpdateData(payload *domain.CommentPayload) Decision {
	return a.Validation.ValidateUpdateData(payload)
}

// Guest is the unauthenticated caller: no mutation is permitted. Payloads are
// still shape checked so validation stays independent of authorization.
type Guest struct {
	Validation Owner
}

func (Guest) CanCreateComment(context.Context, domain.Actor) Decision {
	return Deny(ReasonGuest)
}

func (Guest) CanUpdateComment(context.Context, domain.Actor, domain.Comment) Decision {
	return Deny(ReasonGuest)
}

func (Guest) CanDeleteComment(context.Context, domain.Actor, domain.Comment) Decision {
	return Deny(ReasonGuest)
}

func (g Guest) ValidateCreateData(payload *domain.CommentPayload) Decision {
	return g.Validation.ValidateCreateData(payload)
}

func (g Guest) ValidateUpdateData(payload *domain.CommentPayload) Decision {
	return g.Validation.ValidateUpdateData(payload)
}
