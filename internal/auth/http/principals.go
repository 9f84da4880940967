package http

import (
	"net/http"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
)

// PrincipalsHandler serves self-registration.
type PrincipalsHandler struct {
	Registrations *service.RegistrationService
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type principalResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleRegister serves POST /v1/principals. Self-registered principals
// always get the user role.
func (h *PrincipalsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	p, err := h.Registrations.Register(r.Context(), service.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.RoleUser,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, principalResponse{
		ID:        p.ID.String(),
		Username:  p.Username,
		Email:     p.Email,
		Role:      p.Role.String(),
		CreatedAt: p.CreatedAt,
	})
}
