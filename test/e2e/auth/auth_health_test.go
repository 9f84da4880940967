package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	svc := setupAuthService(t)

	live, err := svc.client.Live(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Nil(t, live.Checks)

	ready, err := svc.client.Ready(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
	require.Equal(t, "ok", ready.Checks.Schema)
}
