package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"certledger/internal/audit"
	"certledger/internal/identity/access"
	"certledger/internal/identity/models"
	"certledger/internal/platform/metrics"
	"certledger/internal/sentinel"
	dErrors "certledger/pkg/domain-errors"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// UserStore is the persistence dependency of the identity service.
type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, username string, role models.Role) error
	UpdateActive(ctx context.Context, username string, active bool) error
}

// AuditPublisher emits audit events for identity operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages user accounts: registration, password verification, and
// admin mutations. Passwords are bcrypt-hashed with a per-password salt;
// plaintext never reaches the store or the logs.
type Service struct {
	store   UserStore
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics sets the metrics collector for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets the audit publisher for the service.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// New creates an identity service. Panics if the store is nil - fail fast at startup.
func New(store UserStore, opts ...Option) *Service {
	if store == nil {
		panic("identity.New: user store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries the registration input. Role defaults to user.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// Register creates a new user. Username uniqueness is case-insensitive:
// the username is lowercased before validation and storage.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.TrimSpace(req.Email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if !emailPattern.MatchString(email) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of admin, issuer, user")
	}

	// The store enforces uniqueness too; checking here gives precise messages.
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "username already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not save user")
	}

	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionUserCreated,
		Actor:   username,
		Subject: username,
		Outcome: audit.OutcomeSuccess,
	})
	return user, nil
}

// Authenticate verifies a username/password pair. The account's active flag is
// deliberately not checked here; it is enforced when the resulting token is
// consumed. On any mismatch the caller receives the same unauthorized error so
// usernames cannot be enumerated.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.authFailure(ctx, username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.authFailure(ctx, username)
	}
	return user, nil
}

func (s *Service) authFailure(ctx context.Context, username string) error {
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionLoginFailed,
		Subject: username,
		Outcome: audit.OutcomeFailure,
	})
	return dErrors.New(dErrors.CodeUnauthorized, "incorrect username or password")
}

// Get returns a user by username.
func (s *Service) Get(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.FindByUsername(ctx, strings.ToLower(username))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}
	return user, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}
	return users, nil
}

// SetRole changes a user's role. Admin-gated at the transport layer.
func (s *Service) SetRole(ctx context.Context, actor, username string, role models.Role) error {
	if _, err := models.ParseRole(string(role)); err != nil {
		return dErrors.New(dErrors.CodeValidation, "role must be one of admin, issuer, user")
	}
	username = strings.ToLower(username)
	if err := s.store.UpdateRole(ctx, username, role); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not update role")
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionRoleChanged,
		Actor:   actor,
		Subject: username,
		Outcome: audit.OutcomeSuccess,
		Detail:  string(role),
	})
	return nil
}

// SetActive activates or deactivates a user. Admin-gated at the transport layer.
func (s *Service) SetActive(ctx context.Context, actor, username string, active bool) error {
	username = strings.ToLower(username)
	if err := s.store.UpdateActive(ctx, username, active); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not update active flag")
	}
	action := audit.ActionUserActivated
	if !active {
		action = audit.ActionUserDeactivated
	}
	s.emitAudit(ctx, audit.Event{
		Action:  action,
		Actor:   actor,
		Subject: username,
		Outcome: audit.OutcomeSuccess,
	})
	return nil
}

// Resolve returns the current identity snapshot for a token subject. The
// active flag and role come from the store, not the token, so revocations
// apply to tokens already in the wild.
func (s *Service) Resolve(ctx context.Context, username string) (*access.Identity, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return &access.Identity{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Active:   user.Active,
	}, nil
}

// emitAudit publishes an audit event. Audit failures never fail the business
// operation; they are logged and dropped.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func validateUsername(username string) error {
	if len(username) < minUsernameLength {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("username must be at least %d characters long", minUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return dErrors.New(dErrors.CodeValidation,
			"username can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}
