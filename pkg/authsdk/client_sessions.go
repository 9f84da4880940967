package authsdk

import (
	"context"
	"net/http"
)

// Register creates a principal with the user role.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Principal, error) {
	var p Principal
	err := c.do(ctx, exchange{method: http.MethodPost, path: "/v1/principals", in: req, out: &p, want: http.StatusCreated})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateSession performs a password login and returns the raw token pair.
// Most callers want Login instead.
func (c *SDKClient) CreateSession(ctx context.Context, username, password string) (*TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, exchange{
		method: http.MethodPost,
		path:   "/v1/sessions",
		in:     loginRequest{Username: username, Password: password},
		out:    &pair,
		want:   http.StatusCreated,
	})
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Refresh rotates refreshToken. The token is spent even when the call fails.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, exchange{
		method: http.MethodPost,
		path:   "/v1/sessions/refresh",
		in:     refreshRequest{RefreshToken: refreshToken},
		out:    &pair,
		want:   http.StatusOK,
	})
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// RequestPasswordReset asks for a reset code to be sent to email. The service
// accepts the request whether or not the address is registered.
func (c *SDKClient) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, exchange{
		method: http.MethodPost,
		path:   "/v1/password-resets",
		in:     passwordResetRequest{Email: email},
		want:   http.StatusAccepted,
	})
}

// ConsumePasswordReset sets a new password with a reset code. Every session
// of the principal is revoked on success.
func (c *SDKClient) ConsumePasswordReset(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, exchange{
		method: http.MethodPost,
		path:   "/v1/password-resets/consume",
		in:     consumeResetRequest{Token: token, NewPassword: newPassword},
		want:   http.StatusNoContent,
	})
}
