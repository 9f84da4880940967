package http

import (
	"context"
	"errors"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

type identityKey struct{}

// IdentityFromContext returns the identity attached by RequireIdentity or
// OptionalIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// ActorFromContext is the authorization subject of the request; anonymous
// requests act as a guest.
func ActorFromContext(ctx context.Context) domain.Actor {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.Actor()
	}
	return domain.GuestActor()
}

func bearer(sessions *service.SessionService) httpx.Bearer {
	return httpx.Bearer{Authenticate: authenticator(sessions), Describe: describeAuthError}
}

// RequireIdentity rejects requests without a valid access token.
func RequireIdentity(sessions *service.SessionService) httpx.Middleware {
	return bearer(sessions).Require()
}

// OptionalIdentity authenticates the request when it carries a bearer token
// and lets it through anonymously otherwise. A token that is present but bad
// is still rejected.
func OptionalIdentity(sessions *service.SessionService) httpx.Middleware {
	return bearer(sessions).Optional()
}

func authenticator(sessions *service.SessionService) httpx.Authenticator {
	return func(ctx context.Context, token string) (context.Context, error) {
		id, err := sessions.VerifyAccessToken(ctx, token)
		if err != nil {
			return ctx, err
		}

		ctx = context.WithValue(ctx, identityKey{}, id)
		ctx = httpx.WithPrincipal(ctx, id.PrincipalID.String())
		ctx = slogx.With(ctx, "principal_id", id.PrincipalID, "session_id", id.SessionID)
		return ctx, nil
	}
}

func describeAuthError(err error) string {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		return "access token expired"
	case errors.Is(err, service.ErrSessionRevoked):
		return "session revoked"
	default:
		return "invalid access token"
	}
}
