package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"certledger/internal/identity/access"
	"certledger/internal/identity/models"
	dErrors "certledger/pkg/domain-errors"
)

// TokenValidator validates a bearer token string and returns its subject.
type TokenValidator interface {
	ValidateToken(tokenString string) (subject string, err error)
}

// IdentitySource resolves a token subject into a full identity, giving the
// active flag and role their store-fresh values at token-consumption time.
type IdentitySource interface {
	Resolve(ctx context.Context, username string) (*access.Identity, error)
}

type contextKeyIdentity struct{}

// GetIdentity retrieves the authenticated identity from the context.
// Returns nil if the request did not pass RequireAuth.
func GetIdentity(ctx context.Context) *access.Identity {
	identity, ok := ctx.Value(contextKeyIdentity{}).(*access.Identity)
	if !ok {
		return nil
	}
	return identity
}

// RequireAuth extracts and validates the bearer token, resolves the caller's
// identity, and stores it in the request context. Role and activity checks are
// left to RequireRole so each route states its own requirement.
func RequireAuth(validator TokenValidator, identities IdentitySource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			tokenString, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || tokenString == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			subject, err := validator.ValidateToken(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			identity, err := identities.Resolve(ctx, subject)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Unknown user")
					return
				}
				logger.ErrorContext(ctx, "identity resolution failed",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, http.StatusServiceUnavailable, "service_unavailable", "Could not resolve identity")
				return
			}

			ctx = context.WithValue(ctx, contextKeyIdentity{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a route with a role requirement. Use access.AnyRole for
// routes open to any active authenticated identity.
func RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if err := access.Authorize(identity, required); err != nil {
				var domainErr *dErrors.Error
				status := http.StatusForbidden
				code := "forbidden"
				if e, ok := err.(*dErrors.Error); ok { //nolint:errorlint // Authorize returns a bare domain error
					domainErr = e
					code = string(e.Code)
					if e.Code == dErrors.CodeUnauthorized {
						status = http.StatusUnauthorized
					}
				}
				message := "Forbidden"
				if domainErr != nil {
					message = domainErr.Message
				}
				writeAuthError(w, status, code, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + description + `"}`))
}
