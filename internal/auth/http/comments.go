package http

import (
	"net/http"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

// CommentsHandler serves comment mutations. Every decision is made by the
// actor's role strategy inside CommentService.
type CommentsHandler struct {
	CommentService *service.CommentService
}

type commentResponse struct {
	ID        idx.ID    `json:"id"`
	AuthorID  idx.ID    `json:"author_id"`
	PostID    idx.ID    `json:"post_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		PostID:    c.PostID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// HandleCreate serves POST /v1/comments.
func (h *CommentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	c, err := h.CommentService.Create(r.Context(), ActorFromContext(r.Context()), payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toCommentResponse(c))
}

// HandleUpdate serves PATCH /v1/comments/{id}.
func (h *CommentsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	c, err := h.CommentService.Update(r.Context(), ActorFromContext(r.Context()), id, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toCommentResponse(c))
}

// HandleDelete serves DELETE /v1/comments/{id}.
func (h *CommentsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	if err := h.CommentService.Delete(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func commentID(w http.ResponseWriter, r *http.Request) (idx.ID, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, CodeNotFound, "comment not found")
		return idx.Zero, false
	}
	return id, true
}

// decodePayload reads an optional JSON body. An empty body yields a nil
// payload, which the role strategy judges like any other.
func decodePayload(w http.ResponseWriter, r *http.Request) (*domain.CommentPayload, bool) {
	if r.ContentLength == 0 {
		return nil, true
	}

	var payload domain.CommentPayload
	if err := httpx.DecodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return nil, false
	}
	if !payload.PostID.IsZero() {
		if _, err := idx.Parse(payload.PostID.String()); err != nil {
			writeBadRequest(w, "post_id is not a valid id")
			return nil, false
		}
	}
	return &payload, true
}
