package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
)

const readinessTimeout = 2 * time.Second

// HealthResponse is the body of /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds one verdict per dependency, "ok" or "error: ...".
type HealthChecks struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Signer   string `json:"signer"`
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	Started  time.Time
	Version  string
	Store    store.Store
	Sessions *service.SessionService
}

func (h *HealthHandler) response(status string, checks *HealthChecks) HealthResponse {
	return HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.Started).Round(time.Second).String(),
		Version: h.Version,
		Checks:  checks,
	}
}

// HandleLive answers 200 for as long as the process serves requests.
func (h *HealthHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.response("ok", nil))
}

// HandleReady answers 503 until the database is reachable and migrated and a
// signing key is loaded.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := &HealthChecks{
		Database: verdict(h.Store.Ping(ctx)),
		Signer:   verdict(h.signer()),
	}
	if checks.Database == "ok" {
		checks.Schema = verdict(h.schema())
	} else {
		checks.Schema = "error: database unavailable"
	}

	status, code := "ok", http.StatusOK
	for _, c := range []string{checks.Database, checks.Schema, checks.Signer} {
		if c != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	httpx.WriteJSON(w, code, h.response(status, checks))
}

func (h *HealthHandler) schema() error {
	_, err := h.Store.SchemaVersion()
	return err
}

// keyHolder is implemented by codecs that can report their signing key.
type keyHolder interface {
	ActiveKID() string
}

func (h *HealthHandler) signer() error {
	if h.Sessions == nil || h.Sessions.Codec == nil {
		return errors.New("no token codec")
	}
	if kh, ok := h.Sessions.Codec.(keyHolder); ok && kh.ActiveKID() == "" {
		return errors.New("no signing key loaded")
	}
	return nil
}

func verdict(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
