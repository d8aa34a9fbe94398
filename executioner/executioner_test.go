package executioner

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/internal/chaintest"
	"github.com/dotbot/transfer-lib/queue"
)

const sender = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

type fakeSimulator struct {
	outcome *types.SimulationOutcome
	err     error
	calls   int
}

func (f *fakeSimulator) Simulate(ctx context.Context, ext types.Extrinsic, sender string) (*types.SimulationOutcome, error) {
	f.calls++
	return f.outcome, f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func westendCaps() *types.CapabilityDescriptor {
	return &types.CapabilityDescriptor{
		ChainName:   "Westend",
		HasBatch:    true,
		HasBatchAll: true,
	}
}

func transferItem(description string) *types.ExecutionItem {
	return queue.NewTransactionItem(&types.SafeTransactionResult{
		Extrinsic: &chaintest.Extrinsic{CallMethod: types.MethodTransferAllowDeath},
		Method:    types.MethodTransferAllowDeath,
		Recipient: "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty",
		Amount:    big.NewInt(1_000_000_000_000),
	}, sender, description)
}

func newFixture(session *chaintest.Session, signer *chaintest.Signer, sim Simulator, cfg Config) (*Executioner, *queue.Queue) {
	q := queue.New(testLogger())
	return New(session, signer, westendCaps(), q, sim, testLogger(), cfg), q
}

func TestRunFinalizesTransaction(t *testing.T) {
	session := chaintest.NewWestendSession()
	session.Fee = big.NewInt(125)
	signer := chaintest.NewApprovingSigner()
	e, q := newFixture(session, signer, nil, Config{})

	item := transferItem("send 1 WND")
	q.Add(item)

	require.NoError(t, e.Run(context.Background()))

	got, _ := q.Get(item.ID)
	assert.Equal(t, types.StatusFinalized, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "0xblock", got.Result.BlockHash)
	assert.Equal(t, []string{"balances.Transfer"}, got.Result.Events)
	assert.Equal(t, big.NewInt(125), got.Result.Fee)

	assert.Equal(t, 1, signer.SingleRequestCount())
	assert.Equal(t, 1, session.SubmittedCount())

	// The approval carried the fee estimate.
	assert.Equal(t, big.NewInt(125), signer.SingleRequests[0].EstimatedFee)

	state := q.Snapshot()
	assert.False(t, state.Running)
	assert.Equal(t, 1, state.Completed)
}

func TestRunAutoApproveSkipsApproval(t *testing.T) {
	session := chaintest.NewWestendSession()
	signer := chaintest.NewApprovingSigner()
	e, q := newFixture(session, signer, nil, Config{AutoApprove: true})

	q.Add(transferItem("send 1 WND"))
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 0, signer.SingleRequestCount())
	assert.Equal(t, 1, session.SubmittedCount())
}

func TestRunRejectionCancelsItem(t *testing.T) {
	session := chaintest.NewWestendSession()
	signer := &chaintest.Signer{Approve: false}
	e, q := newFixture(session, signer, nil, Config{})

	item := transferItem("send 1 WND")
	q.Add(item)
	require.NoError(t, e.Run(context.Background()))

	got, _ := q.Get(item.ID)
	assert.Equal(t, types.StatusCancelled, got.Status)
	assert.Equal(t, 0, session.SubmittedCount())
}

func TestRunFatalSimulationFailsItem(t *testing.T) {
	session := chaintest.NewWestendSession()
	signer := chaintest.NewApprovingSigner()
	sim := &fakeSimulator{outcome: &types.SimulationOutcome{
		Success: false,
		Class:   types.FailureRejected,
		Error:   "Token balance too low",
	}}
	e, q := newFixture(session, signer, sim, Config{Simulate: true, ContinueOnError: true})

	item := transferItem("send 1 WND")
	q.Add(item)
	require.NoError(t, e.Run(context.Background()))

	got, _ := q.Get(item.ID)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, "Token balance too low", got.Error)
	assert.Equal(t, 1, sim.calls)
	// Nothing reached approval or broadcast.
	assert.Equal(t, 0, signer.SingleRequestCount())
	assert.Equal(t, 0, session.SubmittedCount())
}

func TestRunAbortsOnFailureWithoutContinueOnError(t *testing.T) {
	session := chaintest.NewWestendSession()
	signer := chaintest.NewApprovingSigner()
	sim := &fakeSimulator{outcome: &types.SimulationOutcome{Success: false, Error: "bad shape"}}
	e, q := newFixture(session, signer, sim, Config{Simulate: true})

	first := transferItem("first")
	second := transferItem("second")
	q.AddMany(first, second)

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, xerrors.HasCode(err, xerrors.CodeExecutionFailed))

	// The second item was never started.
	got, _ := q.Get(second.ID)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestRunDispatchErrorFailsItem(t *testing.T) {
	session := chaintest.NewWestendSession()
	session.WatcherFor = func(types.SignedExtrinsic) types.ExtrinsicWatcher {
		return &chaintest.Watcher{Statuses: []*types.ExtrinsicStatus{
			{InBlock: true, BlockHash: "0xblock"},
			{InBlock: true, BlockHash: "0xblock", DispatchError: "Module(balances.InsufficientBalance)"},
		}}
	}
	signer := chaintest.NewApprovingSigner()
	e, q := newFixture(session, signer, nil, Config{ContinueOnError: true})

	item := transferItem("send 1 WND")
	q.Add(item)
	require.NoError(t, e.Run(context.Background()))

	got, _ := q.Get(item.ID)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "InsufficientBalance")
}

func TestRunTimeoutFailsOnlyThatItem(t *testing.T) {
	session := chaintest.NewWestendSession()
	stall := true
	session.WatcherFor = func(types.SignedExtrinsic) types.ExtrinsicWatcher {
		if stall {
			stall = false
			// Never reports anything; the item timeout must fire.
			return &chaintest.Watcher{}
		}
		return &chaintest.Watcher{Statuses: []*types.ExtrinsicStatus{
			{InBlock: true, Finalized: true, BlockHash: "0xblock"},
		}}
	}
	signer := chaintest.NewApprovingSigner()
	e, q := newFixture(session, signer, nil, Config{
		ContinueOnError: true,
		ItemTimeout:     30 * time.Millisecond,
	})

	stalled := transferItem("stalled")
	healthy := transferItem("healthy")
	q.AddMany(stalled, healthy)

	require.NoError(t, e.Run(context.Background()))

	got, _ := q.Get(stalled.ID)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "timed out")

	got, _ = q.Get(healthy.ID)
	assert.Equal(t, types.StatusFinalized, got.Status)
}

func TestRunNonTransactionItemsRunBeforeTransactions(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(label string) {
		mu.Lock()
		order = append(order, label)
		mu.Unlock()
	}

	session := chaintest.NewWestendSession()
	session.WatcherFor = func(types.SignedExtrinsic) types.ExtrinsicWatcher {
		record("broadcast")
		return &chaintest.Watcher{Statuses: []*types.ExtrinsicStatus{
			{InBlock: true, Finalized: true, BlockHash: "0xblock"},
		}}
	}
	signer := chaintest.NewApprovingSigner()
	e, q := newFixture(session, signer, nil, Config{AutoApprove: true})

	check := queue.NewFuncItem(types.KindValidation, "verify balance", func(ctx context.Context) error {
		record("check")
		return nil
	})
	lookup := queue.NewFuncItem(types.KindQuery, "fetch nonce", func(ctx context.Context) error {
		record("lookup")
		return nil
	})
	q.AddMany(transferItem("send 1 WND"), check, lookup)

	require.NoError(t, e.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, "broadcast", order[2])

	got, _ := q.Get(check.ID)
	assert.Equal(t, types.StatusCompleted, got.Status)
	got, _ = q.Get(lookup.ID)
	assert.Equal(t, types.StatusCompleted, got.Status)
}

func TestRunFailedFuncItem(t *testing.T) {
	session := chaintest.NewWestendSession()
	e, q := newFixture(session, chaintest.NewApprovingSigner(), nil, Config{ContinueOnError: true})

	item := queue.NewFuncItem(types.KindQuery, "doomed lookup", func(ctx context.Context) error {
		return errors.New("node unreachable")
	})
	q.Add(item)

	require.NoError(t, e.Run(context.Background()))
	got, _ := q.Get(item.ID)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, "node unreachable", got.Error)
}

func TestRunHonorsPause(t *testing.T) {
	session := chaintest.NewWestendSession()
	signer := chaintest.NewApprovingSigner()
	e, q := newFixture(session, signer, nil, Config{
		AutoApprove:  true,
		PollInterval: 5 * time.Millisecond,
	})

	item := transferItem("send 1 WND")
	q.Add(item)
	q.SetPaused(true)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	// While paused the item must not start.
	time.Sleep(30 * time.Millisecond)
	got, _ := q.Get(item.ID)
	assert.Equal(t, types.StatusPending, got.Status)

	q.SetPaused(false)
	require.NoError(t, <-done)

	got, _ = q.Get(item.ID)
	assert.Equal(t, types.StatusFinalized, got.Status)
}

func TestRunCancelledContext(t *testing.T) {
	session := chaintest.NewWestendSession()
	e, q := newFixture(session, chaintest.NewApprovingSigner(), nil, Config{})
	q.Add(transferItem("send 1 WND"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
