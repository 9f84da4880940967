package http

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// PasswordResetsHandler serves reset requests and redemptions.
type PasswordResetsHandler struct {
	ResetService     *service.PasswordResetService
	CredentialHasher domain.CredentialHasher
}

type resetRequest struct {
	Email string `json:"email"`
}

type consumeRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleRequest serves POST /v1/password-resets. The response is the same
// whether or not the address is known, and a failed delivery is not an error
// to the caller.
func (h *PasswordResetsHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req resetRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	issue, err := h.ResetService.RequestPasswordResetByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, service.ErrPrincipalNotFound), errors.Is(err, service.ErrPrincipalInactive):
		log.Info("password reset requested for unusable account", "reason", err.Error())
	case err != nil:
		writeServiceError(w, r, err)
		return
	case issue.Warning != nil:
		log.Warn("password reset issued without delivery", "reset_id", issue.Reset.ID, "err", issue.Warning)
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleConsume serves POST /v1/password-resets/consume.
func (h *PasswordResetsHandler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < service.MinPasswordLength {
		writeBadRequest(w, "new_password is too short")
		return
	}

	hash, err := h.CredentialHasher.Hash(req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.ResetService.ConsumePasswordReset(r.Context(), req.Token, hash); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
