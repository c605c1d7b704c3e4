// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certledger/internal/audit"
	credentialservice "certledger/internal/credential/service"
	"certledger/internal/identity/access"
	"certledger/internal/identity/lockout"
	"certledger/internal/identity/models"
	identityservice "certledger/internal/identity/service"
	"certledger/internal/identity/token"
	"certledger/internal/platform/health"
	"certledger/internal/platform/metrics"
	"certledger/internal/platform/middleware"
	"certledger/internal/verification"
)

// Dependencies carries everything the router needs. Identity, Tokens,
// Credentials, and Verifier are required; the rest degrade gracefully when
// nil.
type Dependencies struct {
	Identity    *identityservice.Service
	Tokens      *token.Service
	Credentials *credentialservice.Service
	Verifier    *verification.Engine
	Lockout     *lockout.Service
	Auditor     audit.Publisher
	Metrics     *metrics.Metrics
	Health      *health.Handler
	Logger      *slog.Logger
}

// NewRouter wires all public endpoints with the middleware stack.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := &AuthHandler{
		identity: deps.Identity,
		tokens:   deps.Tokens,
		lockout:  deps.Lockout,
		auditor:  deps.Auditor,
		metrics:  deps.Metrics,
		logger:   logger,
	}
	credentialHandler := &CredentialHandler{
		credentials: deps.Credentials,
		verifier:    deps.Verifier,
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(latency(deps.Metrics))
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Post("/auth/register", authHandler.handleRegister)
	r.Post("/auth/login", authHandler.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Tokens, deps.Identity, logger))

		r.With(middleware.RequireRole(access.AnyRole)).Get("/auth/me", authHandler.handleMe)

		r.With(middleware.RequireRole(models.RoleAdmin)).Get("/auth/users", authHandler.handleListUsers)
		r.With(middleware.RequireRole(models.RoleAdmin)).Patch("/auth/users/{username}/role", authHandler.handleSetRole)
		r.With(middleware.RequireRole(models.RoleAdmin)).Patch("/auth/users/{username}/active", authHandler.handleSetActive)

		r.With(middleware.RequireRole(models.RoleIssuer)).Post("/issue", credentialHandler.handleIssue)
		r.With(middleware.RequireRole(access.AnyRole)).Post("/verify", credentialHandler.handleVerify)
		r.With(middleware.RequireRole(access.AnyRole)).Get("/certificates", credentialHandler.handleList)
	})

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// latency records per-endpoint request duration. The chi route pattern is
// resolved after the handler runs so parametrized routes share one label.
func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			endpoint := chi.RouteContext(r.Context()).RoutePattern()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			m.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		})
	}
}
