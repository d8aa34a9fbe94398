package types

import (
	"context"
	"math/big"
	"time"
)

// ExecutionStatus is the lifecycle state of one execution item. An item only
// moves forward through the state machine; the only regressions allowed are the
// explicit terminal states failed and cancelled.
type ExecutionStatus string

const (
	// StatusPending is the initial state of a queued item.
	StatusPending ExecutionStatus = "pending"
	// StatusReady indicates the item has been picked up by the executioner.
	StatusReady ExecutionStatus = "ready"
	// StatusSigning indicates the item is awaiting or undergoing signing.
	StatusSigning ExecutionStatus = "signing"
	// StatusBroadcasting indicates the item has been submitted to the chain.
	StatusBroadcasting ExecutionStatus = "broadcasting"
	// StatusInBlock indicates the transaction has been included in a block.
	StatusInBlock ExecutionStatus = "in_block"
	// StatusFinalized indicates the including block has been finalized.
	StatusFinalized ExecutionStatus = "finalized"
	// StatusCompleted indicates a non-transaction item finished successfully.
	StatusCompleted ExecutionStatus = "completed"
	// StatusFailed indicates the item failed; reachable from any pre-terminal state.
	StatusFailed ExecutionStatus = "failed"
	// StatusCancelled indicates the item was cancelled; reachable from any pre-terminal state.
	StatusCancelled ExecutionStatus = "cancelled"
)

// statusRank orders the forward progression of the state machine.
var statusRank = map[ExecutionStatus]int{
	StatusPending:      0,
	StatusReady:        1,
	StatusSigning:      2,
	StatusBroadcasting: 3,
	StatusInBlock:      4,
	StatusFinalized:    5,
	StatusCompleted:    5,
}

// Terminal reports whether the status is a terminal state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusFinalized, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Batchable reports whether an item in this status may still be picked for batching.
func (s ExecutionStatus) Batchable() bool {
	return s == StatusPending || s == StatusReady
}

// CanTransition reports whether moving from s to next respects the forward-only
// state machine. Failed and cancelled are reachable from any pre-terminal state.
func (s ExecutionStatus) CanTransition(next ExecutionStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed || next == StatusCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// ExecutionKind distinguishes queue items by what executing them means.
type ExecutionKind string

const (
	// KindTransaction items sign and broadcast an extrinsic; strictly sequential.
	KindTransaction ExecutionKind = "transaction"
	// KindQuery items perform pure data lookups and may run concurrently.
	KindQuery ExecutionKind = "query"
	// KindValidation items perform local checks and may run concurrently.
	KindValidation ExecutionKind = "validation"
)

// ExecutionResult records the on-chain outcome of a finalized item.
type ExecutionResult struct {
	TxHash    string
	BlockHash string
	Events    []string
	Fee       *big.Int
}

// ExecutionItem is one unit of work in an execution queue. Fields are mutated
// only through the queue's own methods, which are the single serialization point.
//
// Fields:
// - ID: the item identity.
// - Kind: the execution kind.
// - Description: a human-readable summary for approval prompts and logs.
// - Sender: the signing address, for transaction kinds.
// - Prepared: the prepared single-transfer result, for transaction kinds.
// - PreparedBatch: the prepared batch result, when the item is a prebuilt batch.
// - Run: the work function, for non-transaction kinds.
// - Status: the current lifecycle state.
// - Error: the failure message when Status is failed.
// - Result: the recorded outcome when Status is finalized or completed.
// - CreatedAt, StartedAt, CompletedAt: lifecycle timestamps.
// - Position: the ordinal position in the queue.
type ExecutionItem struct {
	ID            string
	Kind          ExecutionKind
	Description   string
	Sender        string
	Prepared      *SafeTransactionResult
	PreparedBatch *SafeBatchResult
	Run           func(ctx context.Context) error
	Status        ExecutionStatus
	Error         string
	Result        *ExecutionResult
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	Position      int
}

// ExecutionArrayState is a snapshot of the full queue with derived counts.
type ExecutionArrayState struct {
	Items        []ExecutionItem
	CurrentIndex int
	Running      bool
	Paused       bool
	Completed    int
	Failed       int
	Cancelled    int
}
