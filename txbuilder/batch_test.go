package txbuilder

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/internal/chaintest"
	"github.com/dotbot/transfer-lib/ss58"
)

// batchRecipients generates n distinct valid addresses.
func batchRecipients(t *testing.T, n int) []string {
	t.Helper()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		key := make([]byte, 32)
		copy(key, []byte(fmt.Sprintf("batch-recipient-%03d", i)))
		addr, err := ss58.Encode(key, 42)
		require.NoError(t, err)
		out[i] = addr
	}
	return out
}

func batchEntries(t *testing.T, n int) []types.BatchEntry {
	t.Helper()
	recipients := batchRecipients(t, n)
	entries := make([]types.BatchEntry, n)
	for i, to := range recipients {
		entries[i] = types.BatchEntry{To: to, Amount: types.NewAmount("1")}
	}
	return entries
}

func TestBuildBatchAtomic(t *testing.T) {
	builder := newTestBuilder(t, chaintest.NewWestendSession(), westendCaps())

	result, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: batchEntries(t, 3),
		Atomic:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, types.MethodBatchAll, result.Method)
	assert.Len(t, result.Entries, 3)
	// 3 x 1 whole token at 12 decimals.
	assert.Equal(t, "3000000000000", result.TotalAmount.String())
	for _, entry := range result.Entries {
		assert.Equal(t, types.MethodTransferAllowDeath, entry.Method)
	}
}

func TestBuildBatchIndependent(t *testing.T) {
	builder := newTestBuilder(t, chaintest.NewWestendSession(), westendCaps())

	result, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: batchEntries(t, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, types.MethodBatch, result.Method)
}

func TestBuildBatchSizeLimits(t *testing.T) {
	builder := newTestBuilder(t, chaintest.NewWestendSession(), westendCaps())

	_, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{From: alice})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeNoTransfers, xerrors.CodeOf(err))

	_, err = builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: batchEntries(t, 101),
	})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeTooManyTransfers, xerrors.CodeOf(err))

	result, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: batchEntries(t, 100),
	})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 100)
}

func TestBuildBatchEntryValidation(t *testing.T) {
	builder := newTestBuilder(t, chaintest.NewWestendSession(), westendCaps())

	entries := batchEntries(t, 3)
	entries[1].To = "not-an-address"

	_, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: entries,
	})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeInvalidAddress, xerrors.CodeOf(err))

	var coded *xerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, 1, coded.Details["entry"])
}

func TestBuildBatchAtomicUnavailable(t *testing.T) {
	caps := westendCaps()
	caps.HasBatchAll = false
	builder := newTestBuilder(t, chaintest.NewWestendSession(), caps)

	_, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: batchEntries(t, 2),
		Atomic:  true,
	})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeMissingCapability, xerrors.CodeOf(err))
}

func TestBuildBatchIndependentFallsBackToAtomic(t *testing.T) {
	caps := westendCaps()
	caps.HasBatch = false
	builder := newTestBuilder(t, chaintest.NewWestendSession(), caps)

	result, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: batchEntries(t, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, types.MethodBatchAll, result.Method)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "atomic batch")
}

func TestBuildBatchDepositCheckUsesTotal(t *testing.T) {
	session := chaintest.NewWestendSession()
	// 2.5 WND free; two transfers of 1.25 drain the account entirely.
	session.Balances[alice] = big.NewInt(2_500_000_000_000)
	builder := newTestBuilder(t, session, westendCaps())

	entries := batchEntries(t, 2)
	entries[0].Amount = types.NewAmount("1.25")
	entries[1].Amount = types.NewAmount("1.25")

	result, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:    alice,
		Entries: entries,
		Atomic:  true,
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "existential deposit")
}

func TestBuildBatchKeepAliveUnavailable(t *testing.T) {
	caps := westendCaps()
	caps.HasTransferKeepAlive = false
	builder := newTestBuilder(t, chaintest.NewWestendSession(), caps)

	_, err := builder.BuildBatch(context.Background(), &types.BatchTransferRequest{
		From:      alice,
		Entries:   batchEntries(t, 2),
		KeepAlive: true,
	})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeMethodUnavailable, xerrors.CodeOf(err))
}
