package service

import "errors"

// Session and token errors. Each kind is distinct so callers can react
// differently: expired means refresh, revoked or invalid means log in again.
var (
	ErrPrincipalInactive  = errors.New("principal_inactive")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTokenInvalid       = errors.New("token_invalid")
	ErrTokenExpired       = errors.New("token_expired")
	ErrSessionRevoked     = errors.New("session_revoked")
	ErrSessionNotFound    = errors.New("session_not_found")
)

// Registration errors.
var (
	ErrPrincipalExists     = errors.New("principal_exists")
	ErrInvalidRegistration = errors.New("invalid_registration")
)

// Password reset errors. Handlers may present one uniform message, but the
// precise kind is always reported for logging.
var (
	ErrResetTokenInvalid     = errors.New("reset_token_invalid")
	ErrResetTokenExpired     = errors.New("reset_token_expired")
	ErrResetTokenAlreadyUsed = errors.New("reset_token_already_used")
	ErrPrincipalNotFound     = errors.New("principal_not_found")
	ErrDeliveryFailed        = errors.New("delivery_failed")
)

// Comment mutation errors.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidPayload  = errors.New("invalid_payload")
	ErrCommentNotFound = errors.New("comment_not_found")
)
