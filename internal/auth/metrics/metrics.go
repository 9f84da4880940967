// Package metrics holds the prometheus collectors for the auth core. A nil
// *Metrics is valid and records nothing, which keeps tests free of registries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postauth"

// Result label values.
const (
	ResultOK       = "ok"
	ResultExpired  = "expired"
	ResultInvalid  = "invalid"
	ResultRevoked  = "revoked"
	ResultReused   = "reused"
	ResultUsed     = "used"
	ResultError    = "error"
	ResultFailed   = "failed"
	ResultInactive = "inactive"
	ResultExists   = "exists"
)

type Metrics struct {
	registry *prometheus.Registry

	sessionsIssued     prometheus.Counter
	registrations      *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	refreshes          *prometheus.CounterVec
	passwordResets     *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	authzDecisions     *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Sessions issued by login or refresh.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Principal registrations by result.",
		}, []string{"result"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Access token verifications by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh token rotations by result.",
		}, []string{"result"}),
		passwordResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Password reset requests and consumptions by result.",
		}, []string{"op", "result"}), // op: request|consume
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by backend and result.",
		}, []string{"kind", "result"}),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Comment authorization decisions.",
		}, []string{"role", "op", "allowed"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsIssued,
		m.registrations,
		m.tokenVerifications,
		m.refreshes,
		m.passwordResets,
		m.notifications,
		m.authzDecisions,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackRevocations exports size as a gauge sampled at scrape time. Call once.
func (m *Metrics) TrackRevocations(size func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "revocation_cache_entries",
		Help:      "Revoked session ids held in the in-process cache.",
	}, func() float64 { return float64(size()) }))
}

func (m *Metrics) SessionIssued() {
	if m == nil {
		return
	}
	m.sessionsIssued.Inc()
}

func (m *Metrics) Registered(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) TokenVerified(result string) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Refreshed(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) PasswordReset(op, result string) {
	if m == nil {
		return
	}
	m.passwordResets.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Notified(kind string, delivered bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !delivered {
		result = ResultFailed
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) AuthzDecision(role, op string, allowed bool) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(role, op, strconv.FormatBool(allowed)).Inc()
}

// HTTPMiddleware records request latency under a fixed route label so path
// parameters do not explode cardinality.
func (m *Metrics) HTTPMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.httpDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
