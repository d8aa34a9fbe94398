package orchestrator

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/queue"
	"github.com/dotbot/transfer-lib/txbuilder"
)

// Operation names understood by the transfer builder.
const (
	OpTransfer      = "transfer"
	OpBatchTransfer = "batch_transfer"
)

// TransferBuilder adapts the safe transaction builder to the step interface:
// it translates step parameters into transfer requests and wraps the prepared
// results as queue items.
type TransferBuilder struct {
	builder *txbuilder.Builder
}

// NewTransferBuilder creates a step builder around a safe transaction builder.
func NewTransferBuilder(builder *txbuilder.Builder) *TransferBuilder {
	return &TransferBuilder{builder: builder}
}

// Operations lists the operations this builder accepts.
func (b *TransferBuilder) Operations() []string {
	return []string{OpTransfer, OpBatchTransfer}
}

// Prepare builds one execution item for the named operation.
//
// Parameters:
// - ctx: the context for managing the request.
// - operation: one of transfer or batch_transfer.
// - params: the step parameters; see parseTransfer and parseBatch for the shape.
//
// Returns:
// - *types.ExecutionItem: the prepared queue item.
// - error: if the parameters are malformed or construction fails.
func (b *TransferBuilder) Prepare(ctx context.Context, operation string, params map[string]interface{}) (*types.ExecutionItem, error) {
	switch operation {
	case OpTransfer:
		req, err := parseTransfer(params)
		if err != nil {
			return nil, err
		}
		prepared, err := b.builder.Build(ctx, req)
		if err != nil {
			return nil, err
		}
		description := fmt.Sprintf("transfer to %s", prepared.Recipient)
		return queue.NewTransactionItem(prepared, req.From, description), nil

	case OpBatchTransfer:
		req, err := parseBatch(params)
		if err != nil {
			return nil, err
		}
		prepared, err := b.builder.BuildBatch(ctx, req)
		if err != nil {
			return nil, err
		}
		description := fmt.Sprintf("batch transfer to %d recipients", len(prepared.Entries))
		return queue.NewBatchItem(prepared, req.From, description), nil
	}
	return nil, errors.Errorf("unknown operation %q", operation)
}

// parseTransfer reads a single-transfer request from step parameters:
// from, to, amount (strings), keep_alive (optional bool).
func parseTransfer(params map[string]interface{}) (*types.TransferRequest, error) {
	from, err := stringParam(params, "from")
	if err != nil {
		return nil, err
	}
	to, err := stringParam(params, "to")
	if err != nil {
		return nil, err
	}
	amount, err := stringParam(params, "amount")
	if err != nil {
		return nil, err
	}
	return &types.TransferRequest{
		From:      from,
		To:        to,
		Amount:    types.NewAmount(amount),
		KeepAlive: boolParam(params, "keep_alive"),
	}, nil
}

// parseBatch reads a batch request from step parameters: from (string),
// transfers (list of {to, amount} maps), atomic and keep_alive (optional bools).
func parseBatch(params map[string]interface{}) (*types.BatchTransferRequest, error) {
	from, err := stringParam(params, "from")
	if err != nil {
		return nil, err
	}

	raw, ok := params["transfers"].([]interface{})
	if !ok {
		return nil, errors.New("parameter transfers must be a list")
	}

	entries := make([]types.BatchEntry, 0, len(raw))
	for i, element := range raw {
		entry, ok := element.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("transfer %d must be a map", i)
		}
		to, err := stringParam(entry, "to")
		if err != nil {
			return nil, errors.Wrapf(err, "transfer %d", i)
		}
		amount, err := stringParam(entry, "amount")
		if err != nil {
			return nil, errors.Wrapf(err, "transfer %d", i)
		}
		entries = append(entries, types.BatchEntry{To: to, Amount: types.NewAmount(amount)})
	}

	return &types.BatchTransferRequest{
		From:      from,
		Entries:   entries,
		Atomic:    boolParam(params, "atomic"),
		KeepAlive: boolParam(params, "keep_alive"),
	}, nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	value, ok := params[key].(string)
	if !ok || value == "" {
		return "", errors.Errorf("parameter %s must be a non-empty string", key)
	}
	return value, nil
}

func boolParam(params map[string]interface{}, key string) bool {
	value, _ := params[key].(bool)
	return value
}
