package http

import (
	"errors"
	"net/http"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/authz"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// Error codes written in the "error" field of error responses.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeSessionRevoked     = "session_revoked"
	CodePrincipalInactive  = "principal_inactive"
	CodeInvalidResetToken  = "invalid_reset_token"
	CodeForbidden          = "forbidden"
	CodeInvalidPayload     = "invalid_payload"
	CodeNotFound           = "not_found"
	CodePrincipalExists    = "principal_exists"
	CodeServerError        = "server_error"
)

type errorMapping struct {
	err    error
	status int
	code   string
	desc   string
}

// errorTable maps service errors to responses. The three reset token kinds
// share one response so callers cannot probe token state; logs keep the
// precise kind.
var errorTable = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid username or password"},
	{service.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired, "token expired"},
	{service.ErrSessionRevoked, http.StatusUnauthorized, CodeSessionRevoked, "session revoked"},
	{service.ErrTokenInvalid, http.StatusUnauthorized, CodeInvalidToken, "invalid token"},
	{service.ErrPrincipalInactive, http.StatusForbidden, CodePrincipalInactive, "account is disabled"},
	{service.ErrPrincipalExists, http.StatusConflict, CodePrincipalExists, "username or email already registered"},
	{service.ErrInvalidRegistration, http.StatusUnprocessableEntity, CodeInvalidPayload, ""},
	{service.ErrSessionNotFound, http.StatusNotFound, CodeNotFound, "session not found"},
	{service.ErrResetTokenInvalid, http.StatusBadRequest, CodeInvalidResetToken, "reset token is invalid or expired"},
	{service.ErrResetTokenExpired, http.StatusBadRequest, CodeInvalidResetToken, "reset token is invalid or expired"},
	{service.ErrResetTokenAlreadyUsed, http.StatusBadRequest, CodeInvalidResetToken, "reset token is invalid or expired"},
	{service.ErrForbidden, http.StatusForbidden, CodeForbidden, "not allowed"},
	{service.ErrInvalidPayload, http.StatusUnprocessableEntity, CodeInvalidPayload, ""},
	{service.ErrCommentNotFound, http.StatusNotFound, CodeNotFound, "comment not found"},
	{authz.ErrUnknownRole, http.StatusInternalServerError, CodeServerError, "internal error"},
}

// writeServiceError writes the mapped response for err. Unmapped errors are
// logged and surface as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	for _, m := range errorTable {
		if !errors.Is(err, m.err) {
			continue
		}
		desc := m.desc
		if desc == "" {
			desc = err.Error()
		}
		if m.status >= http.StatusInternalServerError {
			log.Error("request failed", "err", err)
		}
		httpx.WriteError(w, m.status, m.code, desc)
		return
	}

	log.Error("unhandled service error", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, CodeServerError, "internal error")
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, CodeInvalidRequest, desc)
}
