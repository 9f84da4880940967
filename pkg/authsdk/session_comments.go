package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

func commentPath(id string) string {
	return "/v1/comments/" + url.PathEscape(id)
}

// CreateComment posts a comment on postID.
func (s *Session) CreateComment(ctx context.Context, postID, content string) (*Comment, error) {
	var c Comment
	err := s.do(ctx, exchange{
		method: http.MethodPost,
		path:   "/v1/comments",
		in:     commentRequest{PostID: postID, Content: content},
		out:    &c,
		want:   http.StatusCreated,
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComment replaces the content of comment id.
func (s *Session) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	var c Comment
	err := s.do(ctx, exchange{
		method: http.MethodPatch,
		path:   commentPath(id),
		in:     commentRequest{Content: content},
		out:    &c,
		want:   http.StatusOK,
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteComment soft-deletes comment id.
func (s *Session) DeleteComment(ctx context.Context, id string) error {
	return s.do(ctx, exchange{method: http.MethodDelete, path: commentPath(id), want: http.StatusNoContent})
}
