package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the postauth service. It performs
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login authenticates with a username and password and returns a Session.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	pair, err := c.CreateSession(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, pair), nil
}

// ResumeSession rotates an existing refresh token and returns a Session for
// the new pair. The presented token is spent.
func (c *SDKClient) ResumeSession(ctx context.Context, refreshToken string) (*Session, error) {
	pair, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, pair), nil
}

// NewSessionFromTokens wraps a pair obtained elsewhere. The access token is
// refreshed on first use once expiresIn seconds (less the buffer) have passed.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
