package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// Authenticator turns a bearer token into the request context handlers see.
type Authenticator func(ctx context.Context, token string) (context.Context, error)

// Bearer guards handlers with an RFC 6750 bearer token check.
type Bearer struct {
	Authenticate Authenticator
	// Describe maps an authentication failure to its error_description.
	// Defaults to "invalid access token".
	Describe func(error) string
}

// Require rejects requests that carry no token or a token Authenticate
// refuses.
func (b Bearer) Require() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				challenge(w, "missing bearer token")
				return
			}
			ctx, err := b.Authenticate(r.Context(), token)
			if err != nil {
				slogx.FromContext(r.Context()).Debug("bearer authentication failed", "err", err)
				challenge(w, b.describe(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional lets requests without an Authorization header through
// unauthenticated. A header that is present is held to Require.
func (b Bearer) Optional() Middleware {
	require := b.Require()
	return func(next http.Handler) http.Handler {
		guarded := require(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func (b Bearer) describe(err error) string {
	if b.Describe == nil {
		return "invalid access token"
	}
	return b.Describe(err)
}

// BearerToken extracts the credential of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func challenge(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
