package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/authsdk"
)

// TestCommentOwnership walks the role table through the public API:
// users manage their own comments, strangers cannot touch them and the
// bootstrap admin can remove anything.
func TestCommentOwnership(t *testing.T) {
	svc := setupAuthService(t)

	owner, ownerSession := svc.register("grace")
	_, strangerSession := svc.register("heidi")
	adminSession := svc.login(adminUsername, adminPassword)

	c, err := ownerSession.CreateComment(t.Context(), postID, "  first!  ")
	require.NoError(t, err)
	require.Equal(t, owner.ID, c.AuthorID)
	require.Equal(t, postID, c.PostID)
	require.Equal(t, "first!", c.Content)

	_, err = ownerSession.CreateComment(t.Context(), postID, "   ")
	assertAPIError(t, err, http.StatusUnprocessableEntity, authsdk.CodeInvalidPayload)

	updated, err := ownerSession.UpdateComment(t.Context(), c.ID, "edited")
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Content)

	_, err = strangerSession.UpdateComment(t.Context(), c.ID, "defaced")
	assertAPIError(t, err, http.StatusForbidden, authsdk.CodeForbidden)

	err = strangerSession.DeleteComment(t.Context(), c.ID)
	assertAPIError(t, err, http.StatusForbidden, authsdk.CodeForbidden)

	require.NoError(t, adminSession.DeleteComment(t.Context(), c.ID))

	err = ownerSession.DeleteComment(t.Context(), c.ID)
	assertAPIError(t, err, http.StatusNotFound, authsdk.CodeNotFound)
}

// TestCommentGuest sends requests without a token; guests may not mutate.
func TestCommentGuest(t *testing.T) {
	svc := setupAuthService(t)

	resp, err := http.Post(svc.baseURL+"/v1/comments", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
