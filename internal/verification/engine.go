// Package verification combines the credential store, a hash recheck, and the
// ledger attestor into a single verdict.
package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"certledger/internal/audit"
	"certledger/internal/credential/canonical"
	"certledger/internal/credential/models"
	"certledger/internal/platform/metrics"
	"certledger/internal/verification/tracer"
)

// signalTimeout bounds the whole signal-gathering phase. It sits above the
// attestor's own confirmation timeout so the ledger call, not this deadline,
// is the usual bound.
const signalTimeout = 75 * time.Second

// CredentialSource is the store dependency of the engine.
type CredentialSource interface {
	FindByDigest(ctx context.Context, digest string) (*models.Credential, error)
}

// Attestor is the ledger dependency of the engine.
type Attestor interface {
	Verify(ctx context.Context, digest string) (bool, error)
}

// Verdict is the outcome of a verification request.
type Verdict string

const (
	VerdictValid   Verdict = "valid"
	VerdictInvalid Verdict = "invalid"
)

// Reasons reported on an invalid verdict, in evaluation order.
const (
	ReasonNotFoundInStore = "not found in store"
	ReasonHashMismatch    = "hash mismatch for stored record"
	ReasonNotOnLedger     = "not found on ledger"
)

// Result carries the verdict, its itemized reasons, and the three raw signals
// it was derived from.
type Result struct {
	Digest        string   `json:"hash"`
	Verdict       Verdict  `json:"status"`
	Reasons       []string `json:"reasons,omitempty"`
	ExistsInStore bool     `json:"exists_in_store"`
	IntegrityOK   bool     `json:"integrity_ok"`
	ChainValid    bool     `json:"chain_valid"`
}

// Engine evaluates the three verification signals. Each signal is independent:
// a failure in one never prevents evaluation of the others, and adapter errors
// are absorbed into a false signal so verification always produces a verdict.
type Engine struct {
	store    CredentialSource
	attestor Attestor
	tracer   tracer.Tracer
	auditor  audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithTracer sets the tracer for the engine.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithMetrics sets the metrics collector for the engine.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithAuditPublisher sets the audit publisher for the engine.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(e *Engine) {
		e.auditor = p
	}
}

// New creates a verification engine. Panics if a dependency is nil - fail
// fast at startup.
func New(store CredentialSource, attestor Attestor, opts ...Option) *Engine {
	if store == nil {
		panic("verification.New: credential source is required")
	}
	if attestor == nil {
		panic("verification.New: attestor is required")
	}
	e := &Engine{
		store:    store,
		attestor: attestor,
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// signals holds the three independent verification inputs.
// Each goroutine writes to its own field, avoiding data races.
type signals struct {
	existsInStore bool
	integrityOK   bool
	chainValid    bool
}

// Verify evaluates the claimed digest against store, recomputed hash, and
// ledger. The only error path is a malformed digest; everything downstream is
// absorbed into the verdict.
func (e *Engine) Verify(ctx context.Context, claimedDigest string) (*Result, error) {
	digest, err := canonical.NormalizeDigest(claimedDigest)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "verification.verify",
		tracer.String("digest", digest),
	)

	sig := e.gatherSignals(ctx, digest)
	result := buildResult(digest, sig)

	span.SetAttributes(
		tracer.Bool("exists_in_store", sig.existsInStore),
		tracer.Bool("integrity_ok", sig.integrityOK),
		tracer.Bool("chain_valid", sig.chainValid),
		tracer.String("verdict", string(result.Verdict)),
	)
	span.End(nil)

	if e.metrics != nil {
		e.metrics.Verifications.WithLabelValues(string(result.Verdict)).Inc()
	}
	e.emitAudit(ctx, result)
	return result, nil
}

// emitAudit records the verification outcome. Failures are logged and
// dropped; the verdict has already been computed.
func (e *Engine) emitAudit(ctx context.Context, result *Result) {
	if e.auditor == nil {
		return
	}
	outcome := audit.OutcomeSuccess
	if result.Verdict != VerdictValid {
		outcome = audit.OutcomeFailure
	}
	err := e.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionCredentialVerified,
		Subject: result.Digest,
		Outcome: outcome,
		Detail:  strings.Join(result.Reasons, "; "),
	})
	if err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionCredentialVerified, "error", err)
	}
}

// gatherSignals evaluates the store and ledger signals concurrently. Adapter
// errors are logged and converted to false; the errgroup never carries an
// error, it only bounds and joins the fetches.
func (e *Engine) gatherSignals(ctx context.Context, digest string) signals {
	ctx, cancel := context.WithTimeout(ctx, signalTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	var sig signals

	g.Go(func() error {
		record, err := e.store.FindByDigest(ctx, digest)
		if err != nil {
			// Not-found and store outage alike mean the record cannot be
			// produced, so both collapse into existsInStore=false.
			e.debug(ctx, "store signal unavailable", digest, err)
			return nil
		}
		sig.existsInStore = true
		sig.integrityOK = recordIntact(record)
		return nil
	})

	g.Go(func() error {
		present, err := e.attestor.Verify(ctx, digest)
		if err != nil {
			e.debug(ctx, "ledger signal unavailable", digest, err)
			e.countAttestation("error")
			return nil
		}
		if present {
			e.countAttestation("present")
		} else {
			e.countAttestation("absent")
		}
		sig.chainValid = present
		return nil
	})

	_ = g.Wait() //nolint:errcheck // goroutines above never return an error
	return sig
}

func (e *Engine) countAttestation(outcome string) {
	if e.metrics != nil {
		e.metrics.LedgerAttestation.WithLabelValues("verify", outcome).Inc()
	}
}

// recordIntact recomputes the digest over the record's canonical fields and
// compares it with the stored digest.
func recordIntact(record *models.Credential) bool {
	recomputed, err := canonical.Digest(record.CanonicalPayload())
	if err != nil {
		return false
	}
	return recomputed == record.Digest
}

func buildResult(digest string, sig signals) *Result {
	result := &Result{
		Digest:        digest,
		ExistsInStore: sig.existsInStore,
		IntegrityOK:   sig.integrityOK,
		ChainValid:    sig.chainValid,
	}
	if sig.existsInStore && sig.integrityOK && sig.chainValid {
		result.Verdict = VerdictValid
		return result
	}

	result.Verdict = VerdictInvalid
	if !sig.existsInStore {
		result.Reasons = append(result.Reasons, ReasonNotFoundInStore)
	} else if !sig.integrityOK {
		// Mismatch only applies when a record was found.
		result.Reasons = append(result.Reasons, ReasonHashMismatch)
	}
	if !sig.chainValid {
		result.Reasons = append(result.Reasons, ReasonNotOnLedger)
	}
	return result
}

func (e *Engine) debug(ctx context.Context, msg, digest string, err error) {
	if e.logger != nil {
		e.logger.DebugContext(ctx, msg, "digest", digest, "error", err)
	}
}
