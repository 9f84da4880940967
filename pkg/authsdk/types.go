package authsdk

import "time"

// ErrorResponse is the error envelope written by the service.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	// AccessToken is the JWT presented as a Bearer token
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque, single-use token for the next rotation
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	SessionID        string    `json:"session_id"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RegisterRequest is the body of POST /v1/principals.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Principal is a registered account.
type Principal struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a comment as returned by the service.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	PostID    string    `json:"post_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is only present on /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Signer   string `json:"signer"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type consumeResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type commentRequest struct {
	PostID  string `json:"post_id,omitempty"`
	Content string `json:"content"`
}
