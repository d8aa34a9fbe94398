// Package signers provides concrete signing backends behind the common Signer
// interface: a local ed25519 key for tests and server-side flows, and a
// struct-of-funcs adapter for external backends such as browser extensions or
// remote signing services.
package signers

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/ss58"
)

// ApprovalFunc decides whether a signing request proceeds. Returning false
// without an error is a clean rejection.
type ApprovalFunc func(ctx context.Context, request *types.SigningRequest) (bool, error)

// BatchApprovalFunc decides whether a combined batch signing request proceeds.
type BatchApprovalFunc func(ctx context.Context, request *types.BatchSigningRequest) (bool, error)

// LocalKey signs with an in-process ed25519 private key. Approval defaults to
// approve-all; a callback can be attached for interactive confirmation.
type LocalKey struct {
	private ed25519.PrivateKey
	address string

	approve      ApprovalFunc
	approveBatch BatchApprovalFunc
}

// LocalOption configures a LocalKey signer.
type LocalOption func(*LocalKey)

// WithApproval attaches a single-transaction approval callback.
func WithApproval(fn ApprovalFunc) LocalOption {
	return func(s *LocalKey) { s.approve = fn }
}

// WithBatchApproval attaches a batch approval callback.
func WithBatchApproval(fn BatchApprovalFunc) LocalOption {
	return func(s *LocalKey) { s.approveBatch = fn }
}

// NewLocalKey creates a signer around an ed25519 private key, deriving its
// address for the given network prefix.
//
// Parameters:
// - private: the ed25519 private key.
// - addressPrefix: the network prefix used to derive the signer's address.
// - opts: optional configuration.
//
// Returns:
// - *LocalKey: the new signer instance.
// - error: if the key has the wrong size.
func NewLocalKey(private ed25519.PrivateKey, addressPrefix uint16, opts ...LocalOption) (*LocalKey, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(private))
	}

	public := private.Public().(ed25519.PublicKey)
	address, err := ss58.Encode(public, addressPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "deriving signer address")
	}

	s := &LocalKey{private: private, address: address}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Address returns the signer's derived address.
func (s *LocalKey) Address() string {
	return s.address
}

// Sign signs the extrinsic payload for the given address.
//
// Parameters:
// - ctx: the context for managing the request.
// - ext: the extrinsic to sign.
// - address: the expected sender address; must match the signer's own key.
//
// Returns:
// - types.SignedExtrinsic: the signed extrinsic.
// - error: if the address does not belong to this key or signing fails.
func (s *LocalKey) Sign(ctx context.Context, ext types.Extrinsic, address string) (types.SignedExtrinsic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The same account can be rendered under different network prefixes;
	// compare public keys, not encoded strings.
	requested, _, err := ss58.Decode(address)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidAddress, err, "invalid signing address").
			WithDetail("address", address)
	}
	own, _, err := ss58.Decode(s.address)
	if err != nil {
		return nil, errors.Wrap(err, "decoding own address")
	}
	if !bytes.Equal(requested, own) {
		return nil, errors.Errorf("address %s does not belong to this signer", address)
	}

	payload, err := ext.PayloadToSign()
	if err != nil {
		return nil, errors.Wrap(err, "building signing payload")
	}

	signature := ed25519.Sign(s.private, payload)
	return ext.Attach(signature, s.address)
}

// RequestApproval runs the configured approval callback, approving by default.
func (s *LocalKey) RequestApproval(ctx context.Context, request *types.SigningRequest) (bool, error) {
	if s.approve == nil {
		return true, nil
	}
	return s.approve(ctx, request)
}

// RequestBatchApproval runs the configured batch approval callback, approving
// by default.
func (s *LocalKey) RequestBatchApproval(ctx context.Context, request *types.BatchSigningRequest) (bool, error) {
	if s.approveBatch == nil {
		return true, nil
	}
	return s.approveBatch(ctx, request)
}
