package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/authz"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store/drivers/sqlite"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/notify"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/jwtx"
)

const (
	testIssuer   = "https://postauth.example.test"
	testAudience = "postauth-api"
	testPassword = "correct horse battery staple"

	accessTTL  = 15 * time.Minute
	refreshTTL = 24 * time.Hour
	resetTTL   = 30 * time.Minute
)

var epoch = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

// plainVerifier keeps tests fast; argon2 is covered in cryptox.
type plainVerifier struct{}

func (plainVerifier) Verify(plaintext, hash string) bool { return "plain:"+plaintext == hash }

func (plainVerifier) Hash(plaintext string) (string, error) { return "plain:" + plaintext, nil }

type env struct {
	clock    *clockx.Fake
	store    *sqlite.Store
	codec    *jwtx.KeyRing
	metrics  *metrics.Metrics
	console  *notify.Console
	revoked  *service.RevocationCache
	sessions *service.SessionService
	resets   *service.PasswordResetService
	comments *service.CommentService
	signups  *service.RegistrationService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := clockx.NewFake(epoch)

	key, err := jwtx.GenerateKey(jwtx.AlgorithmEdDSA)
	require.NoError(t, err)
	codec, err := jwtx.NewKeyRing(jwtx.Options{
		Issuer:   testIssuer,
		Audience: []string{testAudience},
		Clock:    clock,
	}, key)
	require.NoError(t, err)

	m := metrics.New()
	console := notify.NewConsole("noreply@postauth.example.test")
	dispatcher := notify.NewDispatcher(console, notify.DispatcherOptions{Workers: 2, Timeout: time.Second})
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })

	revoked := service.NewRevocationCache(time.Hour)
	ids := idx.ClockSource{Clock: clock}

	return &env{
		clock:   clock,
		store:   st,
		codec:   codec,
		metrics: m,
		console: console,
		revoked: revoked,
		sessions: &service.SessionService{
			Store:      st,
			Codec:      codec,
			Verifier:   plainVerifier{},
			Clock:      clock,
			IDs:        ids,
			Revoked:    revoked,
			Metrics:    m,
			Issuer:     testIssuer,
			Audience:   []string{testAudience},
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		resets: &service.PasswordResetService{
			Store:    st,
			Notifier: dispatcher,
			Clock:    clock,
			IDs:      ids,
			TTL:      resetTTL,
			Metrics:  m,
		},
		comments: &service.CommentService{
			Store:    st,
			Registry: authz.Default(),
			Clock:    clock,
			IDs:      ids,
			Metrics:  m,
		},
		signups: &service.RegistrationService{
			Store:    st,
			Hasher:   plainVerifier{},
			Notifier: dispatcher,
			Clock:    clock,
			IDs:      ids,
			Metrics:  m,
		},
	}
}

func (e *env) principal(t *testing.T, username string, role domain.Role) domain.Principal {
	t.Helper()

	now := e.clock.Now()
	p := domain.Principal{
		ID:             idx.NewAt(now),
		Username:       username,
		Email:          strings.ToLower(username) + "@example.test",
		CredentialHash: "plain:" + testPassword,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
		Lifecycle:      domain.NewLifecycle(),
	}
	require.NoError(t, e.store.Principals().CreatePrincipal(context.Background(), p))
	return p
}
