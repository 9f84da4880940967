package authz_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/authz"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

var (
	alice = domain.Actor{ID: idx.MustParse("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4B"), Role: domain.RoleUser}
	bob   = domain.Actor{ID: idx.MustParse("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4C"), Role: domain.RoleUser}
	post  = idx.MustParse("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4D")

	aliceComment = domain.Comment{
		ID:        idx.MustParse("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4E"),
		AuthorID:  alice.ID,
		PostID:    post,
		Content:   "first!",
		Lifecycle: domain.NewLifecycle(),
	}
)

func payloads() map[string]*domain.CommentPayload {
	return map[string]*domain.CommentPayload{
		"nil":       nil,
		"empty":     {},
		"blank":     {PostID: post, Content: "   "},
		"too long":  {PostID: post, Content: strings.Repeat("x", domain.MaxCommentLength+1)},
		"no post":   {Content: "hello"},
		"well form": {PostID: post, Content: "hello"},
	}
}

func TestRegistry_TotalAndDeterministic(t *testing.T) {
	t.Parallel()

	reg := authz.Default()
	ctx := context.Background()

	for _, role := range domain.Roles() {
		first, err := reg.Resolve(role)
		require.NoError(t, err)
		second, err := reg.Resolve(role)
		require.NoError(t, err)

		actor := domain.Actor{ID: alice.ID, Role: role}
		require.Equal(t, first.CanCreateComment(ctx, actor), second.CanCreateComment(ctx, actor))
		require.Equal(t, first.CanUpdateComment(ctx, actor, aliceComment), second.CanUpdateComment(ctx, actor, aliceComment))
		require.Equal(t, first.CanDeleteComment(ctx, actor, aliceComment), second.CanDeleteComment(ctx, actor, aliceComment))
		for _, p := range payloads() {
			require.Equal(t, first.ValidateCreateData(p), second.ValidateCreateData(p))
			require.Equal(t, first.ValidateUpdateData(p), second.ValidateUpdateData(p))
		}
	}

	_, err := reg.Resolve(domain.Role(domain.RoleCount))
	require.ErrorIs(t, err, authz.ErrUnknownRole)
}

func TestNewRegistry_RejectsMissingStrategy(t *testing.T) {
	t.Parallel()

	table := authz.DefaultTable()
	table[domain.RoleAdmin] = nil

	_, err := authz.NewRegistry(table)
	require.ErrorIs(t, err, authz.ErrUnknownRole)
	require.ErrorContains(t, err, "admin")

	require.Panics(t, func() { authz.MustNewRegistry(table) })
}

func TestModerator_AlwaysAllows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := authz.Moderator{}
	mod := domain.Actor{ID: bob.ID, Role: domain.RoleModerator}

	for _, actor := range []domain.Actor{mod, {}, alice} {
		require.True(t, m.CanCreateComment(ctx, actor).Allowed)
		for _, target := range []domain.Comment{{}, aliceComment} {
			require.True(t, m.CanUpdateComment(ctx, actor, target).Allowed)
			require.True(t, m.CanDeleteComment(ctx, actor, target).Allowed)
		}
	}

	for name, p := range payloads() {
		require.True(t, m.ValidateCreateData(p).Allowed, name)
		require.True(t, m.ValidateUpdateData(p).Allowed, name)
	}
}

func TestGuest_DeniesAllMutations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := authz.Guest{}

	for _, actor := range []domain.Actor{domain.GuestActor(), alice} {
		require.Equal(t, authz.Deny(authz.ReasonGuest), g.CanCreateComment(ctx, actor))
		require.False(t, g.CanUpdateComment(ctx, actor, aliceComment).Allowed)
		require.False(t, g.CanDeleteComment(ctx, actor, aliceComment).Allowed)
	}
}

func TestOwner_Ownership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	o := authz.Owner{}

	tests := []struct {
		name   string
		actor  domain.Actor
		allow  bool
		reason authz.Reason
	}{
		{name: "author", actor: alice, allow: true, reason: authz.ReasonOwner},
		{name: "other user", actor: bob, allow: false, reason: authz.ReasonNotOwner},
		{name: "anonymous", actor: domain.GuestActor(), allow: false, reason: authz.ReasonUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			up := o.CanUpdateComment(ctx, tt.actor, aliceComment)
			del := o.CanDeleteComment(ctx, tt.actor, aliceComment)
			require.Equal(t, tt.allow, up.Allowed)
			require.Equal(t, tt.reason, up.Reason)
			require.Equal(t, up, del)
		})
	}

	require.True(t, o.CanCreateComment(ctx, bob).Allowed)
	require.False(t, o.CanCreateComment(ctx, domain.GuestActor()).Allowed)
}

func TestOwner_Validation(t *testing.T) {
	t.Parallel()

	o := authz.Owner{}
	p := payloads()

	require.Equal(t, authz.ReasonMissingPayload, o.ValidateCreateData(p["nil"]).Reason)
	require.Equal(t, authz.ReasonMissingPost, o.ValidateCreateData(p["empty"]).Reason)
	require.Equal(t, authz.ReasonEmptyContent, o.ValidateCreateData(p["blank"]).Reason)
	require.Equal(t, authz.ReasonContentTooLong, o.ValidateCreateData(p["too long"]).Reason)
	require.Equal(t, authz.ReasonMissingPost, o.ValidateCreateData(p["no post"]).Reason)
	require.True(t, o.ValidateCreateData(p["well form"]).Allowed)

	// Updates only touch content.
	require.True(t, o.ValidateUpdateData(p["no post"]).Allowed)
	require.False(t, o.ValidateUpdateData(p["blank"]).Allowed)

	short := authz.Owner{MaxLength: 3}
	require.False(t, short.ValidateUpdateData(&domain.CommentPayload{Content: "four"}).Allowed)
	require.True(t, short.ValidateUpdateData(&domain.CommentPayload{Content: "héé"}).Allowed, "limit counts runes")
}

func TestAdmin_ModeratesButValidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := authz.Admin{}
	admin := domain.Actor{ID: bob.ID, Role: domain.RoleAdmin}

	require.True(t, a.CanUpdateComment(ctx, admin, aliceComment).Allowed)
	require.True(t, a.CanDeleteComment(ctx, admin, aliceComment).Allowed)
	require.False(t, a.ValidateUpdateData(&domain.CommentPayload{Content: ""}).Allowed)
	require.True(t, a.ValidateCreateData(&domain.CommentPayload{PostID: post, Content: "ok"}).Allowed)
}
