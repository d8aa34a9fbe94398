package executioner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dotbot/transfer-lib/common/types"
)

// mergePendingTransfers gathers pending single-transfer items per sender and
// merges groups of two or more into one atomic batch with a single combined
// approval. Everything before a successful broadcast is non-destructive: on
// any environment failure the members simply stay pending and fall back to
// individual execution in the sequential drain.
func (e *Executioner) mergePendingTransfers(ctx context.Context) error {
	if e.caps == nil || !e.caps.HasBatchAll {
		e.logger.Debug("Chain has no atomic batch call, skipping transfer merging")
		return nil
	}

	groups := make(map[string][]types.ExecutionItem)
	var senders []string
	for _, item := range e.queue.ListByStatus(types.StatusPending, types.StatusReady) {
		if item.Kind != types.KindTransaction || item.Prepared == nil || item.PreparedBatch != nil {
			continue
		}
		if _, seen := groups[item.Sender]; !seen {
			senders = append(senders, item.Sender)
		}
		groups[item.Sender] = append(groups[item.Sender], item)
	}

	for _, sender := range senders {
		members := groups[sender]
		if len(members) < 2 {
			continue
		}
		if len(members) > types.MaxBatchEntries {
			members = members[:types.MaxBatchEntries]
		}

		if err := e.waitWhilePaused(ctx); err != nil {
			return err
		}
		if err := e.mergeGroup(ctx, sender, members); err != nil {
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

// mergeGroup submits one sender's pending transfers as a single atomic batch.
func (e *Executioner) mergeGroup(ctx context.Context, sender string, members []types.ExecutionItem) error {
	calls := make([]interface{}, 0, len(members))
	extrinsics := make([]types.Extrinsic, 0, len(members))
	var warnings []string
	seen := make(map[string]bool)
	for _, member := range members {
		calls = append(calls, member.Prepared.Extrinsic)
		extrinsics = append(extrinsics, member.Prepared.Extrinsic)
		for _, warning := range member.Prepared.Warnings {
			if !seen[warning] {
				seen[warning] = true
				warnings = append(warnings, warning)
			}
		}
	}

	batchExt, err := e.session.NewCall(types.MethodBatchAll, map[string]interface{}{"calls": calls})
	if err != nil {
		e.logger.WithField("sender", sender).WithError(err).
			Warn("Batch construction failed, items fall back to individual execution")
		return nil
	}

	fee := e.estimateFee(ctx, batchExt, sender)

	if !e.cfg.AutoApprove {
		approved, err := e.signer.RequestBatchApproval(ctx, &types.BatchSigningRequest{
			Extrinsics:   extrinsics,
			Description:  fmt.Sprintf("atomic batch of %d transfers", len(members)),
			EstimatedFee: fee,
			Warnings:     warnings,
		})
		if err != nil {
			e.logger.WithField("sender", sender).WithError(err).
				Warn("Combined approval failed, items fall back to individual execution")
			return nil
		}
		if !approved {
			e.logger.WithFields(logrus.Fields{
				"sender": sender,
				"count":  len(members),
			}).Info("Combined approval rejected, cancelling batch members")
			for _, member := range members {
				_ = e.queue.Cancel(member.ID)
			}
			return nil
		}
	}

	signed, err := e.signer.Sign(ctx, batchExt, sender)
	if err != nil {
		e.logger.WithField("sender", sender).WithError(err).
			Warn("Batch signing failed, items fall back to individual execution")
		return nil
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
	defer cancel()

	watcher, err := e.session.Submit(itemCtx, signed)
	if err != nil {
		// Submission never reached the chain; members are untouched and remain
		// eligible for individual execution.
		e.logger.WithField("sender", sender).WithError(err).
			Warn("Batch submission failed, items fall back to individual execution")
		return nil
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
		_ = e.queue.SetStatus(member.ID, types.StatusBroadcasting)
	}

	e.logger.WithFields(logrus.Fields{
		"sender": sender,
		"count":  len(members),
	}).Info("Merged pending transfers into one atomic batch")

	return e.monitor(itemCtx, ids, watcher, fee)
}
