// Package ledger defines the external attestation interface: a best-effort
// second trust signal recording that a digest exists, independent of the
// primary credential store.
package ledger

import "context"

// Attestor stores and verifies digests on an external ledger. Implementations
// must degrade to (false, err) on any connectivity, configuration, or contract
// error; callers absorb the error into a boolean signal and never let it abort
// issuance or verification.
type Attestor interface {
	// Store records the digest on the ledger. Returns true only on a
	// confirmed, successful transaction. Single attempt, bounded by the
	// implementation's timeout.
	Store(ctx context.Context, digest string) (bool, error)
	// Verify reports whether the digest is present on the ledger.
	Verify(ctx context.Context, digest string) (bool, error)
	// Status reports connectivity for diagnostics only. It gates no
	// business decision.
	Status(ctx context.Context) Status
}

// Status is a diagnostic snapshot of the attestor's connectivity.
type Status struct {
	Connected       bool   `json:"connected"`
	ContractReady   bool   `json:"contract_ready"`
	NodeURL         string `json:"node_url"`
	ContractAddress string `json:"contract_address"`
}

// Disabled is the attestor used when no contract address is configured.
// Store and Verify report false so the ledger signal is absent, not faked.
type Disabled struct{}

func (Disabled) Store(context.Context, string) (bool, error)  { return false, nil }
func (Disabled) Verify(context.Context, string) (bool, error) { return false, nil }
func (Disabled) Status(context.Context) Status                { return Status{} }
