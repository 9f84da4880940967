package auth_test

import (
	"net/http"
	"testing"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/authsdk"
)

// TestLoginRateLimit hammers one account from one address. The strict
// profile allows five attempts per minute.
func TestLoginRateLimit(t *testing.T) {
	svc := setupAuthService(t)

	var err error
	for range 5 {
		_, err = svc.client.Login(t.Context(), "ivan", "wrong-password")
		assertAPIError(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)
	}

	_, err = svc.client.Login(t.Context(), "ivan", "wrong-password")
	assertAPIError(t, err, http.StatusTooManyRequests, authsdk.CodeRateLimited)
}
