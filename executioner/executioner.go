// Package executioner drains the execution queue: each transaction item is
// optionally simulated, approved, signed through the pluggable signer,
// broadcast, and monitored to finality. Non-transaction items run concurrently
// ahead of any transaction. Independent pending transfers from the same sender
// are opportunistically merged into one atomic batch with a single combined
// approval.
package executioner

import (
	"context"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/queue"
)

const (
	defaultItemTimeout  = 2 * time.Minute
	defaultPollInterval = 200 * time.Millisecond
)

// Simulator predicts the outcome of a transaction without broadcasting it.
type Simulator interface {
	Simulate(ctx context.Context, ext types.Extrinsic, sender string) (*types.SimulationOutcome, error)
}

// Config tunes a single drain run.
//
// Fields:
// - Simulate: dry-run each transaction before approval; a fatal classification fails the item.
// - AutoApprove: skip the approval step entirely.
// - ContinueOnError: keep draining after a failed item instead of aborting the run.
// - MergePending: merge independent pending transfers into one atomic batch before draining.
// - ItemTimeout: per-item bound on broadcast and finality monitoring.
// - PollInterval: how often the paused flag is re-checked while suspended.
type Config struct {
	Simulate        bool
	AutoApprove     bool
	ContinueOnError bool
	MergePending    bool
	ItemTimeout     time.Duration
	PollInterval    time.Duration
}

// Executioner drains an execution queue against one chain session.
type Executioner struct {
	session   types.ChainSession
	signer    types.Signer
	caps      *types.CapabilityDescriptor
	queue     *queue.Queue
	simulator Simulator
	logger    *logrus.Logger
	cfg       Config
}

// New creates a new executioner.
//
// Parameters:
// - session: the active chain session.
// - signer: the signing backend.
// - caps: the detected chain capabilities, used for batch merging.
// - q: the queue to drain.
// - simulator: the simulator; may be nil when Config.Simulate is false.
// - logger: the logger for logging purposes.
// - cfg: the drain configuration.
//
// Returns:
// - *Executioner: the new executioner instance.
func New(session types.ChainSession, signer types.Signer, caps *types.CapabilityDescriptor,
	q *queue.Queue, simulator Simulator, logger *logrus.Logger, cfg Config) *Executioner {
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = defaultItemTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Executioner{
		session:   session,
		signer:    signer,
		caps:      caps,
		queue:     q,
		simulator: simulator,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run drains the queue until every item reaches a terminal state or the run
// aborts. Non-transaction items are executed concurrently first, then
// transaction items strictly in order. Pausing is cooperative: the loop checks
// the paused flag before each item and never interrupts one mid-flight.
//
// Parameters:
// - ctx: the context bounding the whole run.
//
// Returns:
// - error: a context error, or the first item failure when ContinueOnError is disabled.
func (e *Executioner) Run(ctx context.Context) error {
	e.queue.SetRunning(true)
	defer e.queue.SetRunning(false)

	if e.cfg.MergePending {
		if err := e.mergePendingTransfers(ctx); err != nil {
			return err
		}
	}

	if err := e.drainConcurrent(ctx); err != nil {
		return err
	}

	return e.drainSequential(ctx)
}

// drainConcurrent runs all pending non-transaction items in parallel and folds
// their results back before any transaction item proceeds.
func (e *Executioner) drainConcurrent(ctx context.Context) error {
	var work []types.ExecutionItem
	for _, item := range e.queue.ListByStatus(types.StatusPending, types.StatusReady) {
		if item.Kind != types.KindTransaction {
			work = append(work, item)
		}
	}
	if len(work) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, item := range work {
		item := item
		group.Go(func() error {
			if err := e.waitWhilePaused(groupCtx); err != nil {
				return err
			}
			if err := e.runFuncItem(groupCtx, item); err != nil && !e.cfg.ContinueOnError {
				return err
			}
			return nil
		})
	}
	return group.Wait()
}

// runFuncItem executes one query/validation item under the item timeout.
func (e *Executioner) runFuncItem(ctx context.Context, item types.ExecutionItem) error {
	if item.Run == nil {
		_ = e.queue.Fail(item.ID, "item carries no work function")
		return errItemFailed(item.ID, "item carries no work function")
	}

	if item.Status == types.StatusPending {
		if err := e.queue.SetStatus(item.ID, types.StatusReady); err != nil {
			return err
		}
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
	defer cancel()

	if err := item.Run(itemCtx); err != nil {
		_ = e.queue.Fail(item.ID, err.Error())
		return errItemFailed(item.ID, err.Error())
	}
	return e.queue.Complete(item.ID, types.StatusCompleted, nil)
}

// drainSequential executes transaction items strictly in queue order.
func (e *Executioner) drainSequential(ctx context.Context) error {
	for _, item := range e.queue.ListByStatus(types.StatusPending, types.StatusReady) {
		if item.Kind != types.KindTransaction {
			continue
		}

		if err := e.waitWhilePaused(ctx); err != nil {
			return err
		}

		// The item may have reached a terminal state since the listing, for
		// example through a merged batch.
		current, ok := e.queue.Get(item.ID)
		if !ok || !current.Status.Batchable() {
			continue
		}

		e.queue.SetCurrentIndex(current.Position)
		if err := e.executeTransaction(ctx, current); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !e.cfg.ContinueOnError {
				return err
			}
		}
	}
	return nil
}

// executeTransaction runs one transaction item through simulate, approve,
// sign, broadcast and finality monitoring.
func (e *Executioner) executeTransaction(ctx context.Context, item types.ExecutionItem) error {
	ext, warnings := preparedExtrinsic(&item)
	if ext == nil {
		_ = e.queue.Fail(item.ID, "item carries no prepared transaction")
		return errItemFailed(item.ID, "item carries no prepared transaction")
	}

	if item.Status == types.StatusPending {
		if err := e.queue.SetStatus(item.ID, types.StatusReady); err != nil {
			return err
		}
	}

	estimatedFee := e.estimateFee(ctx, ext, item.Sender)

	if e.cfg.Simulate && e.simulator != nil {
		outcome, err := e.simulator.Simulate(ctx, ext, item.Sender)
		if err != nil {
			return err
		}
		if !outcome.Success {
			e.logger.WithFields(logrus.Fields{
				"item":  item.ID,
				"class": outcome.Class,
			}).Warn("Simulation classified transaction as fatal")
			_ = e.queue.Fail(item.ID, outcome.Error)
			return errItemFailed(item.ID, outcome.Error)
		}
		if outcome.EstimatedFee != nil {
			estimatedFee = outcome.EstimatedFee
		}
	}

	if !e.cfg.AutoApprove {
		approved, err := e.requestApproval(ctx, &item, ext, estimatedFee, warnings)
		if err != nil {
			_ = e.queue.Fail(item.ID, err.Error())
			return errItemFailed(item.ID, err.Error())
		}
		if !approved {
			e.logger.WithField("item", item.ID).Info("Approval rejected, cancelling item")
			return e.queue.Cancel(item.ID)
		}
	}

	if err := e.queue.SetStatus(item.ID, types.StatusSigning); err != nil {
		return err
	}
	signed, err := e.signer.Sign(ctx, ext, item.Sender)
	if err != nil {
		_ = e.queue.Fail(item.ID, "signing failed: "+err.Error())
		return errItemFailed(item.ID, err.Error())
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
	defer cancel()

	if err := e.queue.SetStatus(item.ID, types.StatusBroadcasting); err != nil {
		return err
	}
	watcher, err := e.session.Submit(itemCtx, signed)
	if err != nil {
		_ = e.queue.Fail(item.ID, "broadcast failed: "+err.Error())
		return errItemFailed(item.ID, err.Error())
	}

	return e.monitor(itemCtx, []string{item.ID}, watcher, estimatedFee)
}

// requestApproval dispatches a single or combined approval depending on the
// item shape.
func (e *Executioner) requestApproval(ctx context.Context, item *types.ExecutionItem,
	ext types.Extrinsic, fee *big.Int, warnings []string) (bool, error) {
	if item.PreparedBatch != nil {
		extrinsics := make([]types.Extrinsic, 0, len(item.PreparedBatch.Entries))
		for _, entry := range item.PreparedBatch.Entries {
			extrinsics = append(extrinsics, entry.Extrinsic)
		}
		return e.signer.RequestBatchApproval(ctx, &types.BatchSigningRequest{
			Extrinsics:   extrinsics,
			Description:  item.Description,
			EstimatedFee: fee,
			Warnings:     warnings,
		})
	}
	return e.signer.RequestApproval(ctx, &types.SigningRequest{
		Extrinsic:    ext,
		Description:  item.Description,
		EstimatedFee: fee,
		Warnings:     warnings,
	})
}

// monitor follows a watcher until finality, recording the shared outcome on
// every listed item. A timeout fails only these items, never siblings.
func (e *Executioner) monitor(ctx context.Context, itemIDs []string, watcher types.ExtrinsicWatcher, fee *big.Int) error {
	for {
		status, err := watcher.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				message := "finality monitoring timed out"
				for _, id := range itemIDs {
					_ = e.queue.Fail(id, message)
				}
				return xerrors.New(xerrors.CodeExecutionTimeout, message).WithDetail("item", itemIDs[0])
			}
			message := "finality monitoring failed: " + err.Error()
			for _, id := range itemIDs {
				_ = e.queue.Fail(id, message)
			}
			return errItemFailed(itemIDs[0], message)
		}

		if status.DispatchError != "" {
			message := "transaction failed on chain: " + status.DispatchError
			for _, id := range itemIDs {
				_ = e.queue.Fail(id, message)
			}
			return errItemFailed(itemIDs[0], status.DispatchError)
		}

		if status.Finalized {
			result := &types.ExecutionResult{
				BlockHash: status.BlockHash,
				Events:    status.Events,
				Fee:       fee,
			}
			for _, id := range itemIDs {
				if err := e.queue.Complete(id, types.StatusFinalized, result); err != nil {
					return err
				}
			}
			return nil
		}

		if status.InBlock {
			for _, id := range itemIDs {
				_ = e.queue.SetStatus(id, types.StatusInBlock)
			}
		}
	}
}

// waitWhilePaused blocks until the queue is resumed or the context expires.
func (e *Executioner) waitWhilePaused(ctx context.Context) error {
	for e.queue.Paused() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.PollInterval):
		}
	}
	return ctx.Err()
}

// estimateFee asks the session for the inclusion fee, tolerating failure: the
// approval then simply shows no estimate.
func (e *Executioner) estimateFee(ctx context.Context, ext types.Extrinsic, sender string) *big.Int {
	fee, err := e.session.EstimateFee(ctx, ext, sender)
	if err != nil {
		e.logger.WithError(err).Debug("Fee estimation failed, approval will show no estimate")
		return nil
	}
	return fee
}

// errItemFailed produces the run-level error for a failed item.
func errItemFailed(id, message string) error {
	return xerrors.New(xerrors.CodeExecutionFailed, message).WithDetail("item", id)
}

// preparedExtrinsic extracts the extrinsic and construction warnings from a
// transaction item.
func preparedExtrinsic(item *types.ExecutionItem) (types.Extrinsic, []string) {
	if item.PreparedBatch != nil {
		return item.PreparedBatch.Extrinsic, item.PreparedBatch.Warnings
	}
	if item.Prepared != nil {
		return item.Prepared.Extrinsic, item.Prepared.Warnings
	}
	return nil, nil
}
