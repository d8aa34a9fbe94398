package types

import (
	"context"
	"math/big"
)

// FailureClass categorizes a fatal simulation failure.
type FailureClass string

const (
	// FailureInvalidShape indicates a runtime panic or wasm trap: the transaction
	// shape is not valid for this chain.
	FailureInvalidShape FailureClass = "invalid_shape"
	// FailureRejected indicates a declared simulation rejection.
	FailureRejected FailureClass = "rejected"
	// FailureUnclassified indicates a validation failure with no recognized pattern.
	FailureUnclassified FailureClass = "unclassified"
)

// SimulationOutcome is the result of dry-running a transaction.
//
// Fields:
// - Success: whether the transaction is expected to succeed on chain.
// - Class: the failure classification, empty on success.
// - Error: the failure message, cleaned of internal prefixes.
// - EstimatedFee: the estimated fee in smallest units, nil when unavailable.
// - BalanceDeltas: per-address balance changes observed on the fork, when a real
//   chain fork was used.
// - ForkUsed: whether the fork path ran, as opposed to the fee-only fallback.
type SimulationOutcome struct {
	Success       bool
	Class         FailureClass
	Error         string
	EstimatedFee  *big.Int
	BalanceDeltas map[string]*big.Int
	ForkUsed      bool
}

// Fork phases reported by the fork backend for a failed dry run.
const (
	// PhaseExecution covers the dry-run block execution itself. Failures here
	// are never ignorable.
	PhaseExecution = "execution"
	// PhaseFeeEstimation covers the payment-fee calculation step, which is known
	// to produce false positives on certain chain configurations.
	PhaseFeeEstimation = "fee_estimation"
)

// ForkOutcome is the raw result reported by the fork backend.
type ForkOutcome struct {
	Success       bool
	Phase         string
	Error         string
	Fee           *big.Int
	BalanceDeltas map[string]*big.Int
}

// ForkBackend spins up a disposable copy of current chain state, applies one
// transaction as a new block and reports the outcome. External collaborator.
type ForkBackend interface {
	// DryRun executes the extrinsic against a fresh fork built from the first
	// reachable endpoint in the candidate list.
	DryRun(ctx context.Context, endpoints []string, ext Extrinsic, sender string) (*ForkOutcome, error)
}
