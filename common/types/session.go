package types

import (
	"context"
	"math/big"
)

// ChainProperties holds the on-chain system properties used for address encoding
// and amount conversion.
type ChainProperties struct {
	TokenSymbol   string
	TokenDecimals int
	AddressPrefix uint16
}

// Extrinsic is an opaque handle to a constructed, not yet signed transaction.
// Concrete implementations are owned by the chain session backend.
type Extrinsic interface {
	// Method returns the pallet.call identifier the extrinsic was built from.
	Method() string

	// PayloadToSign returns the canonical signing payload bytes.
	PayloadToSign() ([]byte, error)

	// Attach combines the extrinsic with a signature produced over the signing
	// payload, yielding a submittable transaction.
	Attach(signature []byte, signer string) (SignedExtrinsic, error)
}

// SignedExtrinsic is a signed, submittable transaction handle.
type SignedExtrinsic interface {
	// Method returns the pallet.call identifier the extrinsic was built from.
	Method() string
}

// ExtrinsicStatus is one progress update reported while a submitted extrinsic
// moves toward finality.
//
// Fields:
// - InBlock: the extrinsic has been included in a block.
// - Finalized: the including block has been finalized.
// - BlockHash: the hash of the including block, when known.
// - DispatchError: a decoded on-chain execution failure, empty on success.
// - Events: the event identifiers emitted for this extrinsic.
type ExtrinsicStatus struct {
	InBlock       bool
	Finalized     bool
	BlockHash     string
	DispatchError string
	Events        []string
}

// ExtrinsicWatcher yields status updates for one submitted extrinsic.
type ExtrinsicWatcher interface {
	// Next blocks until the next status update or context expiry.
	Next(ctx context.Context) (*ExtrinsicStatus, error)
}

// ChainSession is the connection to one chain. It is an external collaborator:
// the pipeline only consumes it and never manages its lifecycle.
type ChainSession interface {
	// Ready blocks until the session is usable or the context expires.
	Ready(ctx context.Context) error

	// ChainName returns the reported chain name, empty when unknown.
	ChainName() string

	// SpecName returns the runtime spec name.
	SpecName() string

	// SpecVersion returns the runtime spec version.
	SpecVersion() uint32

	// Properties returns the chain system properties. ok is false when the
	// chain does not publish them, which is common on unfamiliar networks.
	Properties() (props ChainProperties, ok bool)

	// HasCall reports whether the runtime metadata contains the given call.
	HasCall(pallet, call string) bool

	// ConstantUint looks up an integer runtime constant such as the existential
	// deposit. ok is false when the constant is absent.
	ConstantUint(pallet, name string) (value *big.Int, ok bool)

	// FreeBalance returns the free balance of an account in smallest units.
	FreeBalance(ctx context.Context, address string) (*big.Int, error)

	// NewCall constructs an extrinsic for the given pallet.call identifier.
	NewCall(method string, args map[string]interface{}) (Extrinsic, error)

	// EstimateFee estimates the inclusion fee for an unsigned extrinsic.
	EstimateFee(ctx context.Context, ext Extrinsic, sender string) (*big.Int, error)

	// Submit broadcasts a signed extrinsic and returns a watcher for its progress.
	Submit(ctx context.Context, ext SignedExtrinsic) (ExtrinsicWatcher, error)
}
