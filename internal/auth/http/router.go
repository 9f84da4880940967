package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/httpx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	metrics      *metrics.Metrics

	SessionService   *service.SessionService
	Registrations    *service.RegistrationService
	ResetService     *service.PasswordResetService
	CommentService   *service.CommentService
	CredentialHasher domain.CredentialHasher
}

func NewRouter(
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.RequestLogger(r.logger),
	}

	return r
}

// ApplyRoutes registers every endpoint. Services must be set first.
func (r *Router) ApplyRoutes() {
	r.registerPrincipals()
	r.registerSessions()
	r.registerPasswordResets()
	r.registerComments()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h behind the latency histogram, then mws in order.
func (r *Router) handle(pattern, route string, h http.Handler, mws ...httpx.Middleware) {
	chain := append([]httpx.Middleware{r.metrics.HTTPMiddleware(route)}, mws...)
	r.Mux.Handle(pattern, httpx.Chain(h, chain...))
}

func (r *Router) registerPrincipals() {
	h := &PrincipalsHandler{Registrations: r.Registrations}

	r.handle("POST /v1/principals", "/v1/principals",
		http.HandlerFunc(h.HandleRegister),
		httpx.RateLimitByIP(httpx.Strict),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	// Login is keyed on IP + username so one account cannot be sprayed from
	// one address.
	r.handle("POST /v1/sessions", "/v1/sessions",
		http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIPAndField(httpx.Strict, "username"),
	)

	r.handle("POST /v1/sessions/refresh", "/v1/sessions/refresh",
		http.HandlerFunc(h.HandleRefresh),
		httpx.RateLimitByIP(httpx.Moderate),
	)

	r.handle("DELETE /v1/sessions/current", "/v1/sessions/current",
		http.HandlerFunc(h.HandleLogout),
		RequireIdentity(r.SessionService),
		httpx.RateLimitByPrincipal(httpx.Moderate),
	)
}

func (r *Router) registerPasswordResets() {
	h := &PasswordResetsHandler{
		ResetService:     r.ResetService,
		CredentialHasher: r.CredentialHasher,
	}

	r.handle("POST /v1/password-resets", "/v1/password-resets",
		http.HandlerFunc(h.HandleRequest),
		httpx.RateLimitByIPAndField(httpx.Strict, "email"),
	)

	r.handle("POST /v1/password-resets/consume", "/v1/password-resets/consume",
		http.HandlerFunc(h.HandleConsume),
		httpx.RateLimitByIP(httpx.Strict),
	)
}

func (r *Router) registerComments() {
	h := &CommentsHandler{CommentService: r.CommentService}

	// Anonymous callers reach the guest strategy rather than a 401, so the
	// role table alone decides what they may do.
	authn := OptionalIdentity(r.SessionService)

	r.handle("POST /v1/comments", "/v1/comments",
		http.HandlerFunc(h.HandleCreate),
		authn,
		httpx.RateLimitByPrincipal(httpx.Moderate),
	)
	r.handle("PATCH /v1/comments/{id}", "/v1/comments/{id}",
		http.HandlerFunc(h.HandleUpdate),
		authn,
		httpx.RateLimitByPrincipal(httpx.Moderate),
	)
	r.handle("DELETE /v1/comments/{id}", "/v1/comments/{id}",
		http.HandlerFunc(h.HandleDelete),
		authn,
		httpx.RateLimitByPrincipal(httpx.Moderate),
	)
}

func (r *Router) registerSystem() {
	h := &HealthHandler{
		Started:  r.startTime,
		Version:  r.buildVersion,
		Store:    r.store,
		Sessions: r.SessionService,
	}

	// Probes are polled by monitoring, so they sit outside the latency
	// histogram and get the lenient profile.
	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(h.HandleLive), httpx.RateLimitByIP(httpx.Lenient)))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(h.HandleReady), httpx.RateLimitByIP(httpx.Lenient)))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
