package domain

import (
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// MaxCommentLength bounds comment content in runes.
const MaxCommentLength = 2000

type Comment struct {
	ID        idx.ID
	AuthorID  idx.ID
	PostID    idx.ID
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time

	Lifecycle
}

// CommentPayload is the mutable part of a comment as submitted by a caller.
// A nil *CommentPayload is a missing body.
type CommentPayload struct {
	PostID  idx.ID `json:"post_id,omitempty"`
	Content string `json:"content"`
}
