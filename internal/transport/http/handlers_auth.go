package httptransport

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certledger/internal/audit"
	"certledger/internal/identity/device"
	"certledger/internal/identity/lockout"
	"certledger/internal/identity/models"
	identityservice "certledger/internal/identity/service"
	"certledger/internal/identity/token"
	"certledger/internal/platform/metrics"
	"certledger/internal/platform/middleware"
	jsonx "certledger/internal/transport/http/json"
	"certledger/internal/transport/http/shared"
	dErrors "certledger/pkg/domain-errors"
)

// AuthHandler serves registration, login, and user administration.
type AuthHandler struct {
	identity *identityservice.Service
	tokens   *token.Service
	lockout  *lockout.Service
	auditor  audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// handleRegister creates a new account. The role is optional and defaults to
// user; unknown roles are rejected by the identity service.
func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}

	user, err := h.identity.Register(r.Context(), identityservice.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonx.WriteJSON(w, http.StatusCreated, user.Profile())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        models.Profile `json:"user"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	ctx := r.Context()
	ip := clientIP(r)

	if h.lockout != nil && h.lockout.Locked(ctx, req.Username, ip) {
		shared.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many failed login attempts, try again later"))
		return
	}

	user, err := h.identity.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if h.lockout != nil && dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			if locked := h.lockout.OnFailure(ctx, req.Username, ip); locked {
				h.logger.WarnContext(ctx, "account locked after repeated failures",
					"username", req.Username,
					"ip", ip,
				)
			}
		}
		shared.WriteError(w, err)
		return
	}
	if h.lockout != nil {
		h.lockout.OnSuccess(ctx, req.Username, ip)
	}

	accessToken, expiresAt, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue token"))
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssued.Inc()
	}
	h.emitAudit(r, audit.Event{
		Action:  audit.ActionLoginSucceeded,
		Actor:   user.Username,
		Subject: user.Username,
		Outcome: audit.OutcomeSuccess,
		Device:  device.Summarize(r.UserAgent()),
	})

	jsonx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user.Profile(),
	})
}

// handleMe returns the caller's profile, store-fresh.
func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	user, err := h.identity.Get(r.Context(), identity.Username)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonx.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	profiles := make([]models.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Profile())
	}
	jsonx.WriteJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AuthHandler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	actor := middleware.GetIdentity(r.Context())
	username := chi.URLParam(r, "username")
	if err := h.identity.SetRole(r.Context(), actor.Username, username, models.Role(req.Role)); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.identity.Get(r.Context(), username)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonx.WriteJSON(w, http.StatusOK, user.Profile())
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *AuthHandler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	actor := middleware.GetIdentity(r.Context())
	username := chi.URLParam(r, "username")
	if err := h.identity.SetActive(r.Context(), actor.Username, username, req.Active); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.identity.Get(r.Context(), username)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonx.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *AuthHandler) emitAudit(r *http.Request, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Emit(r.Context(), event); err != nil {
		h.logger.WarnContext(r.Context(), "audit emit failed", "action", event.Action, "error", err)
	}
}

// clientIP extracts the remote address without its port. Proxy headers are
// deliberately ignored; the service is expected to sit behind a trusted
// reverse proxy that rewrites RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
