package auth_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/app"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/notify"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/authsdk"
)

/*
 * End-to-end tests run the fully wired service in-process: real config
 * validation, sqlite file database, argon2id hashing, persistent signing key
 * and the console notification backend. Requests go over a loopback HTTP
 * server through the client SDK.
 */

const (
	adminUsername = "admin"
	adminEmail    = "admin@postauth.test"
	adminPassword = "Admin123!-long-enough"

	userPassword = "User123!-long-enough"

	postID = "01HZY3Q4X8W5V2N6M7K9J0P1R2"
)

var resetCodePattern = regexp.MustCompile(`reset your password: (\S+)`)

type service struct {
	t       *testing.T
	app     *app.Application
	baseURL string
	client  *authsdk.SDKClient
	console *notify.Console
}

func testConfig(dir string) app.Config {
	return app.Config{
		Issuer:         "postauth-e2e",
		Audience:       []string{"postauth-e2e"},
		Algorithm:      "EdDSA",
		SigningKeyFile: filepath.Join(dir, "signing.pem"),
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     24 * time.Hour,
		ResetTTL:       30 * time.Minute,
		DatabaseFile:   filepath.Join(dir, "postauth.db"),
		PepperFile:     filepath.Join(dir, "pepper"),

		BootstrapUsername: adminUsername,
		BootstrapEmail:    adminEmail,
		BootstrapPassword: adminPassword,

		NotifyProvider: "console",
		NotifyFrom:     "no-reply@postauth.test",
		NotifyWorkers:  2,
		NotifyTimeout:  5 * time.Second,

		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  5 * time.Second,
		HousekeepingInterval: time.Hour,
		SessionRetention:     24 * time.Hour,
	}
}

// setupAuthService starts the service with cfg adjusted by mutate.
func setupAuthService(t *testing.T, mutate ...func(*app.Config)) *service {
	t.Helper()

	cfg := testConfig(t.TempDir())
	for _, m := range mutate {
		m(&cfg)
	}

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, application.Shutdown())
	})

	console, ok := application.Dispatcher().Backend().(*notify.Console)
	require.True(t, ok, "console backend expected")

	client := authsdk.NewSDKClient(srv.URL)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.WaitReady(ctx, 50*time.Millisecond))

	return &service{
		t:       t,
		app:     application,
		baseURL: srv.URL,
		client:  client,
		console: console,
	}
}

// register creates a user principal and logs it in.
func (s *service) register(username string) (*authsdk.Principal, *authsdk.Session) {
	s.t.Helper()

	p, err := s.client.Register(s.t.Context(), authsdk.RegisterRequest{
		Username: username,
		Email:    username + "@postauth.test",
		Password: userPassword,
	})
	require.NoError(s.t, err)

	return p, s.login(username, userPassword)
}

func (s *service) login(username, password string) *authsdk.Session {
	s.t.Helper()

	session, err := s.client.Login(s.t.Context(), username, password)
	require.NoError(s.t, err, "login %s", username)
	require.NotEmpty(s.t, session.AccessToken())
	require.NotEmpty(s.t, session.RefreshToken())
	return session
}

// lastMailTo returns the newest envelope sent to address.
func (s *service) lastMailTo(address string) notify.Envelope {
	s.t.Helper()

	sent := s.console.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if strings.EqualFold(sent[i].To, address) {
			return sent[i]
		}
	}
	s.t.Fatalf("no mail sent to %s", address)
	return notify.Envelope{}
}

// resetCode extracts the reset code from the newest reset mail to address.
func (s *service) resetCode(address string) string {
	s.t.Helper()

	m := resetCodePattern.FindStringSubmatch(s.lastMailTo(address).Body)
	require.Len(s.t, m, 2, "reset mail carries a code")
	return m[1]
}

// assertAPIError checks err is an API error with the given status and code.
func assertAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, authsdk.StatusCode(err), "unexpected status, got: %v", err)
	require.True(t, authsdk.IsCode(err, code), "expected %s, got: %v", code, err)
}
