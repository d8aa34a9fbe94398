package txbuilder

import (
	"context"
	"math/big"

	"github.com/sirupsen/logrus"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
)

// BuildBatch constructs a batch of transfers from one sender, wrapped in either
// an atomic batch (all entries succeed or the whole group rolls back) or an
// independent batch (each entry may fail without affecting siblings), selected
// by caller preference and batch-primitive availability.
//
// Parameters:
// - ctx: the context for managing chain queries.
// - req: the batch transfer request.
//
// Returns:
// - *types.SafeBatchResult: the wrapped batch with per-entry results.
// - error: a coded error (NO_TRANSFERS, TOO_MANY_TRANSFERS, MISSING_CAPABILITY,
//   or any per-entry construction error) when the batch cannot be built.
func (b *Builder) BuildBatch(ctx context.Context, req *types.BatchTransferRequest) (*types.SafeBatchResult, error) {
	if len(req.Entries) == 0 {
		return nil, xerrors.New(xerrors.CodeNoTransfers, "batch contains no transfers")
	}
	if len(req.Entries) > types.MaxBatchEntries {
		return nil, xerrors.Newf(xerrors.CodeTooManyTransfers,
			"batch contains %d transfers, maximum is %d", len(req.Entries), types.MaxBatchEntries).
			WithDetail("count", len(req.Entries))
	}
	if !b.caps.HasBalances() {
		return nil, xerrors.New(xerrors.CodeMissingCapability, "chain has no balances transfer primitive").
			WithDetail("chain", b.caps.ChainName)
	}

	batchMethod, batchWarning, err := b.selectBatchMethod(req.Atomic)
	if err != nil {
		return nil, err
	}

	entries := make([]*types.SafeTransactionResult, 0, len(req.Entries))
	calls := make([]types.Extrinsic, 0, len(req.Entries))
	total := new(big.Int)
	seen := make(map[string]bool)
	var warnings []string
	if batchWarning != "" {
		warnings = append(warnings, batchWarning)
	}

	for i, entry := range req.Entries {
		result, err := b.Build(ctx, &types.TransferRequest{
			From:      req.From,
			To:        entry.To,
			Amount:    entry.Amount,
			KeepAlive: req.KeepAlive,
			// The deposit check runs once against the batch total below.
			SkipBalanceCheck: true,
		})
		if err != nil {
			if coded, ok := err.(*xerrors.Error); ok {
				return nil, coded.WithDetail("entry", i)
			}
			return nil, err
		}

		entries = append(entries, result)
		calls = append(calls, result.Extrinsic)
		total.Add(total, result.Amount)
		for _, warning := range result.Warnings {
			if !seen[warning] {
				seen[warning] = true
				warnings = append(warnings, warning)
			}
		}
	}

	if !req.SkipBalanceCheck {
		if warning := b.reapingWarning(ctx, req.From, total, req.KeepAlive); warning != "" && !seen[warning] {
			warnings = append(warnings, warning)
		}
	}

	ext, err := b.session.NewCall(batchMethod, map[string]interface{}{"calls": calls})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeChainNotReady, err, "failed to construct batch").
			WithDetail("method", batchMethod)
	}
	if ext.Method() != batchMethod {
		return nil, xerrors.Newf(xerrors.CodeInternalMismatch,
			"constructed %s but selected %s", ext.Method(), batchMethod)
	}

	b.logger.WithFields(logrus.Fields{
		"chain":   b.caps.ChainName,
		"method":  batchMethod,
		"entries": len(entries),
		"total":   total.String(),
	}).Debug("Built safe batch")

	return &types.SafeBatchResult{
		Extrinsic:   ext,
		Method:      batchMethod,
		Entries:     entries,
		TotalAmount: total,
		Warnings:    warnings,
	}, nil
}

// selectBatchMethod picks the wrapping call. An explicit atomic request
// requires utility.batch_all; an independent request degrades to the atomic
// variant with a warning when only that one exists, since stricter semantics
// never lose funds.
func (b *Builder) selectBatchMethod(atomic bool) (method, warning string, err error) {
	if atomic {
		if !b.caps.HasBatchAll {
			return "", "", xerrors.New(xerrors.CodeMissingCapability,
				"atomic batch requested but utility.batch_all is unavailable").
				WithDetail("chain", b.caps.ChainName)
		}
		return types.MethodBatchAll, "", nil
	}
	if b.caps.HasBatch {
		return types.MethodBatch, "", nil
	}
	if b.caps.HasBatchAll {
		return types.MethodBatchAll,
			"independent batch unavailable on this chain; falling back to atomic batch", nil
	}
	return "", "", xerrors.New(xerrors.CodeMissingCapability, "chain has no batch primitive").
		WithDetail("chain", b.caps.ChainName)
}
