package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

func TestHousekeeping_RunOnce(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	p := e.principal(t, "alice", domain.RoleUser)

	stale, err := e.sessions.IssueSession(ctx, p)
	require.NoError(t, err)
	_, err = e.resets.RequestPasswordReset(ctx, p)
	require.NoError(t, err)

	e.clock.Advance(refreshTTL + 2*time.Hour)
	fresh, err := e.sessions.IssueSession(ctx, p)
	require.NoError(t, err)

	hk := service.NewHousekeepingService(e.store, slogx.Nop(), e.clock, time.Hour, time.Hour)
	sweep := hk.RunOnce(ctx)
	require.EqualValues(t, 1, sweep.Sessions)
	require.EqualValues(t, 1, sweep.Resets)

	s, err := e.store.Sessions().GetSessionByID(ctx, stale.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionDeleted, s.State(e.clock.Now()))

	_, err = e.sessions.VerifyAccessToken(ctx, fresh.AccessToken)
	require.NoError(t, err)

	// A second pass finds nothing new.
	require.Equal(t, service.Sweep{}, hk.RunOnce(ctx))
}

func TestHousekeeping_StartStop(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	hk := service.NewHousekeepingService(e.store, slogx.Nop(), e.clock, time.Hour, 0)
	require.Equal(t, service.DefaultSessionRetention, hk.Retention)
	hk.Start()
	hk.Stop()
	hk.Stop()

	// Never started: Stop returns straight away.
	service.NewHousekeepingService(e.store, slogx.Nop(), e.clock, time.Hour, 0).Stop()
}

func TestRevocationCache(t *testing.T) {
	t.Parallel()

	var nilCache *service.RevocationCache
	require.False(t, nilCache.Contains("x"))
	nilCache.Add("x")
	require.Zero(t, nilCache.Len())

	c := service.NewRevocationCache(time.Minute)
	c.Add("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4B")
	require.True(t, c.Contains("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4B"))
	require.False(t, c.Contains("01J9ZQ6R3W8V1ZK4ZQ0X2Y3A4C"))
	require.Equal(t, 1, c.Len())
}
