// Package lockout throttles repeated failed logins per username and source IP.
// It is an advisory guard: a store failure never blocks login evaluation.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const keyPrefix = "lockout"

// Store counts login failures within a rolling window.
type Store interface {
	// RecordFailure increments the failure count for the key and returns the
	// new count. The count expires after the configured window.
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	// Count returns the current failure count for the key.
	Count(ctx context.Context, key string) (int, error)
	// Clear removes the failure count for the key.
	Clear(ctx context.Context, key string) error
}

// Config tunes the lockout policy.
type Config struct {
	MaxFailures int
	Window      time.Duration
}

// DefaultConfig returns the default lockout policy: 5 failures in 15 minutes.
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}
}

// Service applies the lockout policy.
type Service struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithConfig overrides the default lockout policy.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a lockout service backed by the given store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		cfg:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locked reports whether the caller has exhausted the failure budget.
// Store errors are logged and treated as not locked.
func (s *Service) Locked(ctx context.Context, username, ip string) bool {
	count, err := s.store.Count(ctx, s.key(username, ip))
	if err != nil {
		s.warn(ctx, "lockout store failure on count", err)
		return false
	}
	return count >= s.cfg.MaxFailures
}

// OnFailure records a failed login and reports whether the caller is now
// locked out.
func (s *Service) OnFailure(ctx context.Context, username, ip string) bool {
	count, err := s.store.RecordFailure(ctx, s.key(username, ip), s.cfg.Window)
	if err != nil {
		s.warn(ctx, "lockout store failure on record", err)
		return false
	}
	return count >= s.cfg.MaxFailures
}

// OnSuccess clears the failure window after a successful login.
func (s *Service) OnSuccess(ctx context.Context, username, ip string) {
	if err := s.store.Clear(ctx, s.key(username, ip)); err != nil {
		s.warn(ctx, "lockout store failure on clear", err)
	}
}

// key normalizes the username the same way authentication does, so
// case-varying attempts draw on a single failure budget.
func (s *Service) key(username, ip string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	return fmt.Sprintf("%s:%s:%s", keyPrefix, username, ip)
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}
