// Package queue holds the ordered collection of execution items with status
// tracking and synchronous subscriber notification. All item mutation goes
// through the queue's methods, which are the single serialization point.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
)

// StatusFunc receives a copy of an item after every status change.
type StatusFunc func(item types.ExecutionItem)

// ProgressFunc receives a snapshot after every progress change (current index,
// running or paused flags).
type ProgressFunc func(state types.ExecutionArrayState)

// Subscription detaches a subscriber when no longer needed.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Unsubscribe detaches the subscriber. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Queue is an ordered execution queue. Status and progress changes notify all
// currently registered subscribers before the mutating call returns, so
// subscribers never observe a stale combined state.
type Queue struct {
	logger *logrus.Logger

	mu           sync.RWMutex
	items        []*types.ExecutionItem
	byID         map[string]*types.ExecutionItem
	currentIndex int
	running      bool
	paused       bool
	statusSubs   map[uint64]StatusFunc
	progressSubs map[uint64]ProgressFunc
	nextSubID    uint64
}

// New creates a new empty execution queue.
//
// Parameters:
// - logger: the logger for logging purposes.
//
// Returns:
// - *Queue: the new queue instance.
func New(logger *logrus.Logger) *Queue {
	return &Queue{
		logger:       logger,
		byID:         make(map[string]*types.ExecutionItem),
		statusSubs:   make(map[uint64]StatusFunc),
		progressSubs: make(map[uint64]ProgressFunc),
	}
}

// NewTransactionItem creates a pending transaction item from a prepared result.
func NewTransactionItem(prepared *types.SafeTransactionResult, sender, description string) *types.ExecutionItem {
	return &types.ExecutionItem{
		ID:          uuid.NewString(),
		Kind:        types.KindTransaction,
		Description: description,
		Sender:      sender,
		Prepared:    prepared,
		Status:      types.StatusPending,
		CreatedAt:   time.Now(),
	}
}

// NewBatchItem creates a pending transaction item from a prepared batch.
func NewBatchItem(prepared *types.SafeBatchResult, sender, description string) *types.ExecutionItem {
	return &types.ExecutionItem{
		ID:            uuid.NewString(),
		Kind:          types.KindTransaction,
		Description:   description,
		Sender:        sender,
		PreparedBatch: prepared,
		Status:        types.StatusPending,
		CreatedAt:     time.Now(),
	}
}

// NewFuncItem creates a pending non-transaction item around a work function.
func NewFuncItem(kind types.ExecutionKind, description string, run func(ctx context.Context) error) *types.ExecutionItem {
	return &types.ExecutionItem{
		ID:          uuid.NewString(),
		Kind:        kind,
		Description: description,
		Run:         run,
		Status:      types.StatusPending,
		CreatedAt:   time.Now(),
	}
}

// Add appends one item to the queue and assigns its ordinal position.
func (q *Queue) Add(item *types.ExecutionItem) {
	q.mu.Lock()
	item.Position = len(q.items)
	q.items = append(q.items, item)
	q.byID[item.ID] = item
	q.mu.Unlock()
}

// AddMany appends several items in order.
func (q *Queue) AddMany(items ...*types.ExecutionItem) {
	for _, item := range items {
		q.Add(item)
	}
}

// Get looks up an item copy by identity.
//
// Parameters:
// - id: the item identity.
//
// Returns:
// - types.ExecutionItem: a copy of the item.
// - bool: whether the item exists.
func (q *Queue) Get(id string) (types.ExecutionItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	item, ok := q.byID[id]
	if !ok {
		return types.ExecutionItem{}, false
	}
	return *item, true
}

// ListByStatus returns copies of all items in any of the given statuses, in
// queue order.
func (q *Queue) ListByStatus(statuses ...types.ExecutionStatus) []types.ExecutionItem {
	wanted := make(map[types.ExecutionStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []types.ExecutionItem
	for _, item := range q.items {
		if wanted[item.Status] {
			out = append(out, *item)
		}
	}
	return out
}

// ListByKind returns copies of all items of the given execution kind, in queue
// order.
func (q *Queue) ListByKind(kind types.ExecutionKind) []types.ExecutionItem {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []types.ExecutionItem
	for _, item := range q.items {
		if item.Kind == kind {
			out = append(out, *item)
		}
	}
	return out
}

// SetStatus moves one item forward through the state machine, stamping the
// start and completion timestamps on the relevant transitions, and notifies
// all status subscribers before returning.
//
// Parameters:
// - id: the item identity.
// - status: the new status.
//
// Returns:
// - error: ITEM_NOT_FOUND for unknown items, INVALID_TRANSITION for a backwards move.
func (q *Queue) SetStatus(id string, status types.ExecutionStatus) error {
	return q.setStatus(id, status, "", nil)
}

// Fail moves one item to failed, recording the failure message.
func (q *Queue) Fail(id, message string) error {
	return q.setStatus(id, types.StatusFailed, message, nil)
}

// Cancel moves one item to cancelled.
func (q *Queue) Cancel(id string) error {
	return q.setStatus(id, types.StatusCancelled, "", nil)
}

// Complete moves one item to its terminal success status and records the
// outcome.
func (q *Queue) Complete(id string, status types.ExecutionStatus, result *types.ExecutionResult) error {
	return q.setStatus(id, status, "", result)
}

func (q *Queue) setStatus(id string, status types.ExecutionStatus, message string, result *types.ExecutionResult) error {
	q.mu.Lock()
	item, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return xerrors.New(xerrors.CodeItemNotFound, "unknown execution item").WithDetail("id", id)
	}
	if !item.Status.CanTransition(status) {
		from := item.Status
		q.mu.Unlock()
		return xerrors.Newf(xerrors.CodeInvalidTransition, "cannot move item from %s to %s", from, status).
			WithDetail("id", id).
			WithDetail("from", string(from)).
			WithDetail("to", string(status))
	}

	now := time.Now()
	if item.StartedAt.IsZero() && status != types.StatusReady {
		item.StartedAt = now
	}
	if status.Terminal() {
		item.CompletedAt = now
	}
	item.Status = status
	if message != "" {
		item.Error = message
	}
	if result != nil {
		item.Result = result
	}

	copied := *item
	subscribers := make([]StatusFunc, 0, len(q.statusSubs))
	for _, fn := range q.statusSubs {
		subscribers = append(subscribers, fn)
	}
	q.mu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"item":   copied.ID,
		"status": copied.Status,
	}).Debug("Execution item status changed")

	for _, fn := range subscribers {
		fn(copied)
	}
	return nil
}

// SetCurrentIndex updates the execution cursor and notifies progress subscribers.
func (q *Queue) SetCurrentIndex(index int) {
	q.mu.Lock()
	q.currentIndex = index
	q.mu.Unlock()
	q.notifyProgress()
}

// SetRunning updates the running flag and notifies progress subscribers.
func (q *Queue) SetRunning(running bool) {
	q.mu.Lock()
	q.running = running
	q.mu.Unlock()
	q.notifyProgress()
}

// SetPaused updates the paused flag and notifies progress subscribers.
func (q *Queue) SetPaused(paused bool) {
	q.mu.Lock()
	q.paused = paused
	q.mu.Unlock()
	q.notifyProgress()
}

// Paused reports whether the queue is paused.
func (q *Queue) Paused() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.paused
}

// Snapshot returns the full ordered state with derived counts.
func (q *Queue) Snapshot() types.ExecutionArrayState {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.snapshotLocked()
}

func (q *Queue) snapshotLocked() types.ExecutionArrayState {
	state := types.ExecutionArrayState{
		Items:        make([]types.ExecutionItem, len(q.items)),
		CurrentIndex: q.currentIndex,
		Running:      q.running,
		Paused:       q.paused,
	}
	for i, item := range q.items {
		state.Items[i] = *item
		switch item.Status {
		case types.StatusFinalized, types.StatusCompleted:
			state.Completed++
		case types.StatusFailed:
			state.Failed++
		case types.StatusCancelled:
			state.Cancelled++
		}
	}
	return state
}

// SubscribeStatus registers a status subscriber. The returned subscription
// detaches it.
func (q *Queue) SubscribeStatus(fn StatusFunc) *Subscription {
	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.statusSubs[id] = fn
	q.mu.Unlock()

	return &Subscription{cancel: func() {
		q.mu.Lock()
		delete(q.statusSubs, id)
		q.mu.Unlock()
	}}
}

// SubscribeProgress registers a progress subscriber. The returned subscription
// detaches it.
func (q *Queue) SubscribeProgress(fn ProgressFunc) *Subscription {
	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.progressSubs[id] = fn
	q.mu.Unlock()

	return &Subscription{cancel: func() {
		q.mu.Lock()
		delete(q.progressSubs, id)
		q.mu.Unlock()
	}}
}

// Clear removes all items and resets the cursor. Subscribers stay registered.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.byID = make(map[string]*types.ExecutionItem)
	q.currentIndex = 0
	q.mu.Unlock()
	q.notifyProgress()
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *Queue) notifyProgress() {
	q.mu.RLock()
	state := q.snapshotLocked()
	subscribers := make([]ProgressFunc, 0, len(q.progressSubs))
	for _, fn := range q.progressSubs {
		subscribers = append(subscribers, fn)
	}
	q.mu.RUnlock()

	for _, fn := range subscribers {
		fn(state)
	}
}
