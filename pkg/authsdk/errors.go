package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes the service writes in the "error" field.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeSessionRevoked     = "session_revoked"
	CodePrincipalInactive  = "principal_inactive"
	CodePrincipalExists    = "principal_exists"
	CodeInvalidResetToken  = "invalid_reset_token"
	CodeForbidden          = "forbidden"
	CodeInvalidPayload     = "invalid_payload"
	CodeNotFound           = "not_found"
	CodeRateLimited        = "rate_limit_exceeded"
	CodeServerError        = "server_error"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// Code is the machine readable error code, one of the Code* constants
	Code string

	// Description is a human readable description of the error
	Description string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseErrorResponse turns an error response into an *APIError. Bodies that
// are not the usual envelope still produce one, keyed on the status code.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	code := CodeServerError
	if resp.StatusCode == http.StatusTooManyRequests {
		code = CodeRateLimited
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
