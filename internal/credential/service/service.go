// Package service implements credential issuance and listing.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CredentialStore,Attestor,AuditPublisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certledger/internal/audit"
	"certledger/internal/credential/canonical"
	"certledger/internal/credential/models"
	"certledger/internal/platform/metrics"
	dErrors "certledger/pkg/domain-errors"
)

const (
	minGraduationYear = 1900
	maxGraduationYear = 2100
)

// CredentialStore is the persistence dependency of the credential service.
type CredentialStore interface {
	Save(ctx context.Context, record *models.Credential) error
	FindByDigest(ctx context.Context, digest string) (*models.Credential, error)
	List(ctx context.Context) ([]*models.Credential, error)
}

// Attestor anchors digests on the ledger.
type Attestor interface {
	Store(ctx context.Context, digest string) (bool, error)
}

// AuditPublisher emits audit events for credential operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues credentials: it canonicalizes the payload, computes its
// digest, anchors the digest on the ledger best-effort, and persists the
// record. Persistence is the source of truth; a ledger outage degrades the
// record to unanchored but never blocks issuance.
type Service struct {
	store    CredentialStore
	attestor Attestor
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
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

// New creates a credential service. Panics if a dependency is nil - fail
// fast at startup.
func New(store CredentialStore, attestor Attestor, opts ...Option) *Service {
	if store == nil {
		panic("credential.New: credential store is required")
	}
	if attestor == nil {
		panic("credential.New: attestor is required")
	}
	s := &Service{store: store, attestor: attestor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest carries the certificate fields submitted by an issuer.
type IssueRequest struct {
	StudentName    string
	StudentEmail   string
	Institution    string
	Degree         string
	GraduationYear int
	CGPA           *float64
	RegNumber      string
	Honours        string
	StateOfOrigin  string
}

// IssueResult is the outcome of an issuance: the persisted record, its
// digest, and whether the digest was confirmed on the ledger.
type IssueResult struct {
	Credential   *models.Credential
	Digest       string
	LedgerStored bool
}

// Issue validates the request, computes the content digest, anchors it on the
// ledger, and persists the record. The issuer identity is recorded alongside
// the certificate fields but is not part of the digest.
func (s *Service) Issue(ctx context.Context, issuer, issuerEmail string, req IssueRequest) (*IssueResult, error) {
	record, err := buildRecord(issuer, issuerEmail, req)
	if err != nil {
		return nil, err
	}

	digest, err := canonical.Digest(record.CanonicalPayload())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not compute credential digest")
	}
	record.Digest = digest

	ledgerStored := s.anchor(ctx, digest)

	if err := s.store.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "the record could not be durably recorded")
	}

	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionCredentialIssued,
		Actor:   issuer,
		Subject: digest,
		Outcome: audit.OutcomeSuccess,
		Detail:  fmt.Sprintf("ledger_stored=%t", ledgerStored),
	})
	return &IssueResult{Credential: record, Digest: digest, LedgerStored: ledgerStored}, nil
}

// anchor writes the digest to the ledger. Failures are absorbed: the record
// will simply verify with chain_valid=false until re-anchored.
func (s *Service) anchor(ctx context.Context, digest string) bool {
	confirmed, err := s.attestor.Store(ctx, digest)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "ledger anchoring failed", "digest", digest, "error", err)
		}
		s.countAttestation("error")
		return false
	}
	if confirmed {
		s.countAttestation("confirmed")
	} else {
		s.countAttestation("unconfirmed")
	}
	return confirmed
}

func (s *Service) countAttestation(outcome string) {
	if s.metrics != nil {
		s.metrics.LedgerAttestation.WithLabelValues("store", outcome).Inc()
	}
}

// Get returns the credential record for a digest. When several records share
// a digest the oldest one is returned.
func (s *Service) Get(ctx context.Context, digest string) (*models.Credential, error) {
	normalized, err := canonical.NormalizeDigest(digest)
	if err != nil {
		return nil, err
	}
	record, err := s.store.FindByDigest(ctx, normalized)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return record, nil
}

// List returns all issued credentials, oldest first.
func (s *Service) List(ctx context.Context) ([]*models.Credential, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "credential store unavailable")
	}
	return records, nil
}

func buildRecord(issuer, issuerEmail string, req IssueRequest) (*models.Credential, error) {
	studentName := strings.TrimSpace(req.StudentName)
	institution := strings.TrimSpace(req.Institution)
	degree := strings.TrimSpace(req.Degree)

	if studentName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "student_name is required")
	}
	if institution == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	if degree == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "degree is required")
	}
	if req.GraduationYear < minGraduationYear || req.GraduationYear > maxGraduationYear {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("graduation_year must be between %d and %d", minGraduationYear, maxGraduationYear))
	}
	if req.CGPA != nil && (*req.CGPA < 0 || *req.CGPA > 5) {
		return nil, dErrors.New(dErrors.CodeValidation, "cgpa must be between 0 and 5")
	}

	return &models.Credential{
		StudentName:    studentName,
		StudentEmail:   strings.TrimSpace(req.StudentEmail),
		Institution:    institution,
		Degree:         degree,
		GraduationYear: req.GraduationYear,
		CGPA:           req.CGPA,
		RegNumber:      strings.TrimSpace(req.RegNumber),
		Honours:        strings.TrimSpace(req.Honours),
		StateOfOrigin:  strings.TrimSpace(req.StateOfOrigin),
		IssuedBy:       issuer,
		IssuerEmail:    issuerEmail,
		CreatedAt:      time.Now().UTC(),
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
