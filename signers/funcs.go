package signers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dotbot/transfer-lib/common/types"
)

// Funcs adapts plain functions into a Signer. Intended for external signing
// backends and for tests; only SignFunc is mandatory, the approval hooks
// default to approve-all.
type Funcs struct {
	SignFunc         func(ctx context.Context, ext types.Extrinsic, address string) (types.SignedExtrinsic, error)
	ApproveFunc      ApprovalFunc
	ApproveBatchFunc BatchApprovalFunc
}

// Sign delegates to SignFunc.
func (f *Funcs) Sign(ctx context.Context, ext types.Extrinsic, address string) (types.SignedExtrinsic, error) {
	if f.SignFunc == nil {
		return nil, errors.New("no signing function configured")
	}
	return f.SignFunc(ctx, ext, address)
}

// RequestApproval delegates to ApproveFunc, approving by default.
func (f *Funcs) RequestApproval(ctx context.Context, request *types.SigningRequest) (bool, error) {
	if f.ApproveFunc == nil {
		return true, nil
	}
	return f.ApproveFunc(ctx, request)
}

// RequestBatchApproval delegates to ApproveBatchFunc, approving by default.
func (f *Funcs) RequestBatchApproval(ctx context.Context, request *types.BatchSigningRequest) (bool, error) {
	if f.ApproveBatchFunc == nil {
		return true, nil
	}
	return f.ApproveBatchFunc(ctx, request)
}
