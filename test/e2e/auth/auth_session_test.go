package auth_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/app"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/authsdk"
)

// TestRegisterLoginRefresh covers the normal lifecycle:
// 1. Register and log in
// 2. Rotate the refresh token
// 3. Log out, after which neither token works
func TestRegisterLoginRefresh(t *testing.T) {
	svc := setupAuthService(t)

	p, session := svc.register("alice")
	require.Equal(t, "user", p.Role)
	require.Equal(t, "Welcome", svc.lastMailTo("alice@postauth.test").Subject)

	oldAccess := session.AccessToken()
	oldRefresh := session.RefreshToken()
	oldID := session.ID()

	require.NoError(t, session.Refresh(t.Context()))
	require.NotEqual(t, oldAccess, session.AccessToken(), "access token should be rotated")
	require.NotEqual(t, oldRefresh, session.RefreshToken(), "refresh token should be rotated")
	require.NotEqual(t, oldID, session.ID(), "rotation starts a new session")

	// The rotated session still authenticates.
	_, err := session.CreateComment(t.Context(), postID, "still here")
	require.NoError(t, err)

	latestRefresh := session.RefreshToken()
	require.NoError(t, session.Logout(t.Context()))

	_, err = svc.client.Refresh(t.Context(), latestRefresh)
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeSessionRevoked)
}

func TestLoginFailures(t *testing.T) {
	svc := setupAuthService(t)
	svc.register("bob")

	_, err := svc.client.Login(t.Context(), "bob", "wrong-password")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)

	// Unknown users get the same answer as bad passwords.
	_, err = svc.client.Login(t.Context(), "nobody", userPassword)
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)

	_, err = svc.client.Register(t.Context(), authsdk.RegisterRequest{
		Username: "bob",
		Email:    "bob2@postauth.test",
		Password: userPassword,
	})
	assertAPIError(t, err, http.StatusConflict, authsdk.CodePrincipalExists)
}

// TestRefreshTokenReuse replays a rotated refresh token. The replay fails and
// the session that replaced it is revoked as well.
func TestRefreshTokenReuse(t *testing.T) {
	svc := setupAuthService(t, func(cfg *app.Config) {
		// Any replay after the rotation counts as theft.
		cfg.ReuseGrace = time.Nanosecond
	})
	_, session := svc.register("carol")

	stolen := session.RefreshToken()
	require.NoError(t, session.Refresh(t.Context()))

	_, err := svc.client.Refresh(t.Context(), stolen)
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeSessionRevoked)

	// The legitimate holder has been logged out too. Bearer failures all
	// carry invalid_token.
	_, err = session.CreateComment(t.Context(), postID, "after reuse")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeInvalidToken)
	require.Contains(t, err.Error(), "session revoked")

	err = session.Refresh(t.Context())
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeSessionRevoked)
}

func TestGarbageTokens(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.client.Refresh(t.Context(), "not-a-refresh-token")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeInvalidToken)

	forged := svc.client.NewSessionFromTokens("not.a.jwt", "", 900)
	_, err = forged.CreateComment(t.Context(), postID, "forged")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeInvalidToken)
}

// TestSigningKeySurvivesRestart restarts the service on the same files. The
// access token minted before the restart still verifies.
func TestSigningKeySurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	sameFiles := func(cfg *app.Config) {
		fresh := testConfig(dir)
		cfg.SigningKeyFile = fresh.SigningKeyFile
		cfg.DatabaseFile = fresh.DatabaseFile
		cfg.PepperFile = fresh.PepperFile
	}

	first := setupAuthService(t, sameFiles)
	_, session := first.register("dave")
	access := session.AccessToken()
	require.NoError(t, first.app.Shutdown())

	second := setupAuthService(t, sameFiles)
	resumed := second.client.NewSessionFromTokens(access, "", 900)
	_, err := resumed.CreateComment(t.Context(), postID, "after restart")
	require.NoError(t, err)

	// Bootstrap is idempotent across restarts.
	second.login(adminUsername, adminPassword)
}
