// Package txbuilder turns abstract transfer requests into concrete,
// chain-correct transactions using a detected capability descriptor.
package txbuilder

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/ss58"
)

// Builder constructs safe transactions for one chain session. The capability
// descriptor must be fully populated before any transaction is built from it.
type Builder struct {
	session types.ChainSession
	caps    *types.CapabilityDescriptor
	logger  *logrus.Logger
}

// New creates a new safe transaction builder.
//
// Parameters:
// - session: the active chain session.
// - caps: the detected capability descriptor for that session.
// - logger: the logger for logging purposes.
//
// Returns:
// - *Builder: the new builder instance.
// - error: a CHAIN_NOT_READY error when the descriptor is absent or incomplete.
func New(session types.ChainSession, caps *types.CapabilityDescriptor, logger *logrus.Logger) (*Builder, error) {
	if caps == nil || caps.ExistentialDeposit == nil {
		return nil, xerrors.New(xerrors.CodeChainNotReady, "capability descriptor not populated")
	}
	return &Builder{session: session, caps: caps, logger: logger}, nil
}

// Capabilities returns the descriptor the builder was created with.
func (b *Builder) Capabilities() *types.CapabilityDescriptor {
	return b.caps
}

// Build constructs a single safe transfer.
//
// Parameters:
// - ctx: the context for managing chain queries.
// - req: the abstract transfer request.
//
// Returns:
// - *types.SafeTransactionResult: the constructed transaction with advisory warnings.
// - error: a coded error (MISSING_CAPABILITY, METHOD_UNAVAILABLE, INVALID_AMOUNT,
//   INVALID_ADDRESS, SAME_ACCOUNT, INTERNAL_MISMATCH) when construction fails.
func (b *Builder) Build(ctx context.Context, req *types.TransferRequest) (*types.SafeTransactionResult, error) {
	if !b.caps.HasBalances() {
		return nil, xerrors.New(xerrors.CodeMissingCapability, "chain has no balances transfer primitive").
			WithDetail("chain", b.caps.ChainName)
	}

	method, err := b.selectMethod(req.KeepAlive)
	if err != nil {
		return nil, err
	}

	planck, err := NormalizePlanck(req.Amount, b.caps.TokenDecimals)
	if err != nil {
		return nil, err
	}

	recipient, err := b.checkAddresses(req.From, req.To)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if !req.SkipBalanceCheck {
		if warning := b.reapingWarning(ctx, req.From, planck, req.KeepAlive); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	ext, err := b.session.NewCall(method, map[string]interface{}{
		"dest":  recipient,
		"value": planck,
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainNotReady, err, "failed to construct transfer").
			WithDetail("method", method)
	}

	// Construction sanity check: a mismatch here is a bug, not a user error.
	if ext.Method() != method {
		return nil, xerrors.Newf(xerrors.CodeInternalMismatch,
			"constructed %s but selected %s", ext.Method(), method)
	}

	b.logger.WithFields(logrus.Fields{
		"chain":  b.caps.ChainName,
		"method": method,
		"amount": planck.String(),
	}).Debug("Built safe transfer")

	return &types.SafeTransactionResult{
		Extrinsic: ext,
		Method:    method,
		Recipient: recipient,
		Amount:    planck,
		Warnings:  warnings,
	}, nil
}

// selectMethod picks the transfer call. A keep-alive request requires the
// keep-alive primitive and fails loudly when it is absent: silently dropping
// keep-alive risks unintended account removal. Otherwise the allow-death
// primitive is preferred, then the legacy basic transfer, in that fixed order.
func (b *Builder) selectMethod(keepAlive bool) (string, error) {
	if keepAlive {
		if !b.caps.HasTransferKeepAlive {
			return "", xerrors.New(xerrors.CodeMethodUnavailable,
				"keep-alive transfer requested but the chain does not support it").
				WithDetail("chain", b.caps.ChainName)
		}
		return types.MethodTransferKeepAlive, nil
	}
	if b.caps.HasTransferAllowDeath {
		return types.MethodTransferAllowDeath, nil
	}
	if b.caps.HasTransfer {
		return types.MethodTransfer, nil
	}
	return "", xerrors.New(xerrors.CodeMethodUnavailable, "no usable transfer method on this chain").
		WithDetail("chain", b.caps.ChainName)
}

// checkAddresses validates both addresses independently and re-encodes the
// recipient into the chain's prefix. The sender is never re-encoded because
// signature validation requires the exact encoding the signer's key material
// expects.
func (b *Builder) checkAddresses(from, to string) (string, error) {
	senderKey, _, err := ss58.Decode(from)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidAddress, err, "invalid sender address").
			WithDetail("address", from).
			WithDetail("role", "sender")
	}

	recipientKey, _, err := ss58.Decode(to)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidAddress, err, "invalid recipient address").
			WithDetail("address", to).
			WithDetail("role", "recipient")
	}

	if bytes.Equal(senderKey, recipientKey) {
		return "", xerrors.New(xerrors.CodeSameAccount, "sender and recipient are the same account").
			WithDetail("address", from)
	}

	recipient, err := ss58.Encode(recipientKey, b.caps.AddressPrefix)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidAddress, err, "failed to re-encode recipient").
			WithDetail("address", to)
	}
	return recipient, nil
}

// reapingWarning computes the post-transfer balance against the existential
// deposit. Falling below it without keep-alive is advisory, not a hard failure.
// An unavailable balance skips the check rather than blocking construction.
func (b *Builder) reapingWarning(ctx context.Context, sender string, planck *big.Int, keepAlive bool) string {
	if keepAlive {
		return ""
	}

	free, err := b.session.FreeBalance(ctx, sender)
	if err != nil {
		b.logger.WithField("sender", sender).WithError(err).
			Debug("Balance unavailable, skipping existential deposit check")
		return ""
	}

	remaining := new(big.Int).Sub(free, planck)
	if remaining.Cmp(b.caps.ExistentialDeposit) < 0 {
		return fmt.Sprintf(
			"transfer leaves the sender below the existential deposit (%s %s remaining, %s required); the account may be removed",
			remaining.String(), b.caps.TokenSymbol, b.caps.ExistentialDeposit.String())
	}
	return ""
}
