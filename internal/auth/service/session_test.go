package service_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
)

func TestIssueSession_RequiresLivePrincipal(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	inactive := e.principal(t, "dormant", domain.RoleUser)
	inactive.Active = false
	_, err := e.sessions.IssueSession(ctx, inactive)
	require.ErrorIs(t, err, service.ErrPrincipalInactive)

	deleted := e.principal(t, "gone", domain.RoleUser)
	deleted.SoftDelete(e.clock.Now())
	_, err = e.sessions.IssueSession(ctx, deleted)
	require.ErrorIs(t, err, service.ErrPrincipalInactive)

	// Refused issuance is not a token verification.
	n, err := testutil.GatherAndCount(e.metrics.Registry(), "postauth_token_verifications_total")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestIssueSession_TokenPair(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	p := e.principal(t, "alice", domain.RoleModerator)

	pair, err := e.sessions.IssueSession(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(accessTTL.Seconds()), pair.ExpiresIn)
	require.Equal(t, epoch.Add(accessTTL), pair.AccessExpiresAt)
	require.Equal(t, epoch.Add(refreshTTL), pair.RefreshExpiresAt)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	stored, err := e.store.Sessions().GetSessionByID(ctx, pair.SessionID)
	require.NoError(t, err)
	require.Equal(t, p.ID, stored.PrincipalID)
	require.Equal(t, cryptox.FingerprintToken(pair.RefreshToken), stored.RefreshHash)
	require.NotContains(t, stored.RefreshHash, pair.RefreshToken)

	id, err := e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, p.ID, id.PrincipalID)
	require.Equal(t, pair.SessionID, id.SessionID)
	require.Equal(t, domain.RoleModerator, id.Role)

	const issued = `
# HELP postauth_sessions_issued_total Sessions issued by login or refresh.
# TYPE postauth_sessions_issued_total counter
postauth_sessions_issued_total 1
`
	require.NoError(t, testutil.GatherAndCompare(e.metrics.Registry(),
		strings.NewReader(issued), "postauth_sessions_issued_total"))
}

func TestIssueSession_AccessNeverOutlivesSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.sessions.AccessTTL = 2 * time.Hour
	e.sessions.RefreshTTL = time.Hour

	pair, err := e.sessions.IssueSession(context.Background(), e.principal(t, "bob", domain.RoleUser))
	require.NoError(t, err)
	require.Equal(t, pair.RefreshExpiresAt, pair.AccessExpiresAt)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	p := e.principal(t, "carol", domain.RoleUser)

	pair, err := e.sessions.Login(ctx, "carol", testPassword)
	require.NoError(t, err)

	id, err := e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, p.ID, id.PrincipalID)

	_, err = e.sessions.Login(ctx, "carol", "wrong")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = e.sessions.Login(ctx, "nobody", testPassword)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	require.NoError(t, e.store.Principals().SetPrincipalActive(ctx, p.ID, false, e.clock.Now()))
	_, err = e.sessions.Login(ctx, "carol", testPassword)
	require.ErrorIs(t, err, service.ErrPrincipalInactive)
}

func TestVerifyAccessToken_Expiry(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	pair, err := e.sessions.IssueSession(ctx, e.principal(t, "dave", domain.RoleUser))
	require.NoError(t, err)

	e.clock.Advance(accessTTL - time.Second)
	_, err = e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	e.clock.Advance(time.Second)
	_, err = e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestVerifyAccessToken_Invalid(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	pair, err := e.sessions.IssueSession(ctx, e.principal(t, "erin", domain.RoleUser))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-jwt",
		"refresh":  pair.RefreshToken,
		"tampered": pair.AccessToken[:len(pair.AccessToken)-4] + "AAAA",
	} {
		_, err := e.sessions.VerifyAccessToken(ctx, token)
		require.ErrorIs(t, err, service.ErrTokenInvalid, name)
	}
}

func TestVerifyAccessToken_RevokedSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	pair, err := e.sessions.IssueSession(ctx, e.principal(t, "frank", domain.RoleUser))
	require.NoError(t, err)

	require.NoError(t, e.sessions.Revoke(ctx, pair.SessionID))
	require.True(t, e.revoked.Contains(pair.SessionID))

	_, err = e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)

	// The store is authoritative even when the cache is cold.
	e.sessions.Revoked = nil
	_, err = e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
}

func TestVerifyAccessToken_DeletedSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	pair, err := e.sessions.IssueSession(ctx, e.principal(t, "grace", domain.RoleUser))
	require.NoError(t, err)

	// Housekeeping soft-deletes anything whose expiry precedes the cutoff.
	n, err := e.store.Sessions().SoftDeleteSessionsExpiredBefore(ctx, epoch.Add(refreshTTL+time.Second), e.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
}

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	pair, err := e.sessions.IssueSession(ctx, e.principal(t, "heidi", domain.RoleUser))
	require.NoError(t, err)

	require.NoError(t, e.sessions.Revoke(ctx, pair.SessionID))
	require.NoError(t, e.sessions.Revoke(ctx, pair.SessionID))

	s, err := e.store.Sessions().GetSessionByID(ctx, pair.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.RevokeReasonLogout, s.RevokeReason)
	require.Equal(t, domain.SessionRevoked, s.State(e.clock.Now()))

	err = e.sessions.Revoke(ctx, idx.NewAt(epoch))
	require.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestRevokeAll(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	p := e.principal(t, "ivan", domain.RoleUser)
	other := e.principal(t, "judy", domain.RoleUser)

	var pairs []domain.TokenPair
	for range 3 {
		pair, err := e.sessions.IssueSession(ctx, p)
		require.NoError(t, err)
		pairs = append(pairs, pair)
	}
	keep, err := e.sessions.IssueSession(ctx, other)
	require.NoError(t, err)

	n, err := e.sessions.RevokeAll(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	for _, pair := range pairs {
		_, err := e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
		require.ErrorIs(t, err, service.ErrSessionRevoked)
	}
	_, err = e.sessions.VerifyAccessToken(ctx, keep.AccessToken)
	require.NoError(t, err)
}

func TestRefresh_Rotates(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.sessions.IssueSession(ctx, e.principal(t, "kate", domain.RoleUser))
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	second, err := e.sessions.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.SessionID, second.SessionID)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	old, err := e.store.Sessions().GetSessionByID(ctx, first.SessionID)
	require.NoError(t, err)
	require.True(t, old.Revoked)
	require.Equal(t, domain.RevokeReasonRotated, old.RevokeReason)
	require.Equal(t, second.SessionID, old.ReplacedBy)

	_, err = e.sessions.VerifyAccessToken(ctx, first.AccessToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
	_, err = e.sessions.VerifyAccessToken(ctx, second.AccessToken)
	require.NoError(t, err)
}

func TestRefresh_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, err := e.sessions.Refresh(context.Background(), "never-issued")
		require.ErrorIs(t, err, service.ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ctx := context.Background()
		pair, err := e.sessions.IssueSession(ctx, e.principal(t, "leo", domain.RoleUser))
		require.NoError(t, err)

		e.clock.Advance(refreshTTL)
		_, err = e.sessions.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrTokenExpired)
	})

	t.Run("logged out", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ctx := context.Background()
		pair, err := e.sessions.IssueSession(ctx, e.principal(t, "mia", domain.RoleUser))
		require.NoError(t, err)

		require.NoError(t, e.sessions.Revoke(ctx, pair.SessionID))
		_, err = e.sessions.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrSessionRevoked)
	})

	t.Run("principal disabled", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ctx := context.Background()
		p := e.principal(t, "ned", domain.RoleUser)
		pair, err := e.sessions.IssueSession(ctx, p)
		require.NoError(t, err)

		require.NoError(t, e.store.Principals().SetPrincipalActive(ctx, p.ID, false, e.clock.Now()))
		_, err = e.sessions.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrPrincipalInactive)

		// The failed attempt must not have rotated anything.
		s, err := e.store.Sessions().GetSessionByID(ctx, pair.SessionID)
		require.NoError(t, err)
		require.False(t, s.Revoked)
	})
}

func TestRefresh_ReuseRevokesChain(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.sessions.IssueSession(ctx, e.principal(t, "olga", domain.RoleUser))
	require.NoError(t, err)
	second, err := e.sessions.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	third, err := e.sessions.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)

	// Replaying the very first token compromises the whole lineage.
	e.clock.Advance(service.DefaultReuseGrace)
	_, err = e.sessions.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)

	_, err = e.sessions.VerifyAccessToken(ctx, third.AccessToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
	_, err = e.sessions.Refresh(ctx, third.RefreshToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)

	s, err := e.store.Sessions().GetSessionByID(ctx, third.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.RevokeReasonReuseDetected, s.RevokeReason)
}

func TestRefresh_ReplayWithinGrace(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.sessions.IssueSession(ctx, e.principal(t, "piet", domain.RoleUser))
	require.NoError(t, err)
	second, err := e.sessions.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	e.clock.Advance(service.DefaultReuseGrace - time.Second)
	_, err = e.sessions.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)

	// A late duplicate is not theft; the successor survives.
	_, err = e.sessions.VerifyAccessToken(ctx, second.AccessToken)
	require.NoError(t, err)

	t.Run("disabled", func(t *testing.T) {
		e := newEnv(t)
		e.sessions.ReuseGrace = -1

		first, err := e.sessions.IssueSession(ctx, e.principal(t, "piet", domain.RoleUser))
		require.NoError(t, err)
		second, err := e.sessions.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)

		_, err = e.sessions.Refresh(ctx, first.RefreshToken)
		require.ErrorIs(t, err, service.ErrSessionRevoked)
		_, err = e.sessions.VerifyAccessToken(ctx, second.AccessToken)
		require.ErrorIs(t, err, service.ErrSessionRevoked)
	})
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	pair, err := e.sessions.IssueSession(ctx, e.principal(t, "pat", domain.RoleUser))
	require.NoError(t, err)

	const callers = 8
	var (
		wins   atomic.Int32
		losses atomic.Int32
		winner atomic.Value
	)

	var g errgroup.Group
	for range callers {
		g.Go(func() error {
			next, err := e.sessions.Refresh(ctx, pair.RefreshToken)
			switch {
			case err == nil:
				wins.Add(1)
				winner.Store(next)
			case errors.Is(err, service.ErrSessionRevoked):
				losses.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, callers-1, losses.Load())

	// The losers are a race, not theft: the winner's pair stays usable.
	next := winner.Load().(domain.TokenPair)
	_, err = e.sessions.VerifyAccessToken(ctx, next.AccessToken)
	require.NoError(t, err)
	_, err = e.sessions.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

// Login, use, logout, then the old access token is rejected.
func TestSessionLifecycle_Logout(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.principal(t, "quinn", domain.RoleUser)

	pair, err := e.sessions.Login(ctx, "quinn", testPassword)
	require.NoError(t, err)

	id, err := e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	e.clock.Advance(5 * time.Minute)
	require.NoError(t, e.sessions.Revoke(ctx, id.SessionID))

	_, err = e.sessions.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
	_, err = e.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrSessionRevoked)
}
