package types

import (
	"context"
	"math/big"
)

// SigningRequest describes one transaction awaiting approval.
//
// Fields:
// - Extrinsic: the transaction awaiting approval.
// - Description: a human-readable summary of what the transaction does.
// - EstimatedFee: the estimated inclusion fee in smallest units, nil when unknown.
// - Warnings: advisory warnings attached during construction or simulation.
type SigningRequest struct {
	Extrinsic    Extrinsic
	Description  string
	EstimatedFee *big.Int
	Warnings     []string
}

// BatchSigningRequest describes a merged group of transactions awaiting one
// combined approval.
type BatchSigningRequest struct {
	Extrinsics   []Extrinsic
	Description  string
	EstimatedFee *big.Int
	Warnings     []string
}

// Signer is the pluggable signing backend. The executioner depends only on this
// interface; browser-extension, local-key and test signers are all substituted
// through it.
type Signer interface {
	// Sign signs the extrinsic for the given address.
	Sign(ctx context.Context, ext Extrinsic, address string) (SignedExtrinsic, error)

	// RequestApproval resolves one approval decision. The decision may depend on
	// a human and has no bound other than the context.
	RequestApproval(ctx context.Context, req *SigningRequest) (bool, error)

	// RequestBatchApproval resolves one combined approval decision for a batch.
	RequestBatchApproval(ctx context.Context, req *BatchSigningRequest) (bool, error)
}
