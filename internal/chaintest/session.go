// Package chaintest provides in-memory fakes for the external collaborators
// (chain session, signer, fork backend) used across the package tests.
package chaintest

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/dotbot/transfer-lib/common/types"
)

// Extrinsic is a fake extrinsic recording the call it was built from.
type Extrinsic struct {
	CallMethod string
	Args       map[string]interface{}
	// MethodOverride, when set, is reported instead of CallMethod. Used to
	// provoke construction sanity-check failures.
	MethodOverride string
}

func (e *Extrinsic) Method() string {
	if e.MethodOverride != "" {
		return e.MethodOverride
	}
	return e.CallMethod
}

func (e *Extrinsic) PayloadToSign() ([]byte, error) {
	return []byte(e.Method()), nil
}

func (e *Extrinsic) Attach(signature []byte, signer string) (types.SignedExtrinsic, error) {
	return &SignedExtrinsic{Extrinsic: e, Signature: signature, Signer: signer}, nil
}

// SignedExtrinsic is a fake signed extrinsic.
type SignedExtrinsic struct {
	Extrinsic *Extrinsic
	Signature []byte
	Signer    string
}

func (s *SignedExtrinsic) Method() string {
	return s.Extrinsic.Method()
}

// Watcher replays a scripted sequence of extrinsic statuses. Once exhausted it
// blocks until the context expires.
type Watcher struct {
	Statuses []*types.ExtrinsicStatus
	next     int
}

func (w *Watcher) Next(ctx context.Context) (*types.ExtrinsicStatus, error) {
	if w.next < len(w.Statuses) {
		status := w.Statuses[w.next]
		w.next++
		return status, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Session is a scriptable in-memory chain session.
type Session struct {
	Name        string
	Spec        string
	Version     uint32
	Props       types.ChainProperties
	PropsKnown  bool
	Calls       map[string]bool
	Constants   map[string]*big.Int
	Balances    map[string]*big.Int
	ReadyErr    error
	Fee         *big.Int
	FeeErr      error
	NewCallErr  error
	SubmitErr   error
	WatcherFor  func(ext types.SignedExtrinsic) types.ExtrinsicWatcher
	MethodOverride string

	mu        sync.Mutex
	Submitted []types.SignedExtrinsic
}

// NewWestendSession returns a session shaped like a modern Westend runtime:
// prefix 42, 12 decimals, existential deposit 0.01 WND, all transfer and batch
// primitives present.
func NewWestendSession() *Session {
	return &Session{
		Name:       "Westend",
		Spec:       "westend",
		Version:    1_016_000,
		Props:      types.ChainProperties{TokenSymbol: "WND", TokenDecimals: 12, AddressPrefix: 42},
		PropsKnown: true,
		Calls: map[string]bool{
			"balances.transfer":             true,
			"balances.transfer_allow_death": true,
			"balances.transfer_keep_alive":  true,
			"utility.batch":                 true,
			"utility.batch_all":             true,
		},
		Constants: map[string]*big.Int{
			"balances.existential_deposit": big.NewInt(10_000_000_000), // 0.01 WND
		},
		Balances: map[string]*big.Int{},
	}
}

func (s *Session) Ready(ctx context.Context) error {
	s.mu.Lock()
	err := s.ReadyErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

// SetReadyErr scripts the readiness probe outcome. Safe to call while a
// monitor goroutine is probing.
func (s *Session) SetReadyErr(err error) {
	s.mu.Lock()
	s.ReadyErr = err
	s.mu.Unlock()
}

func (s *Session) ChainName() string   { return s.Name }
func (s *Session) SpecName() string    { return s.Spec }
func (s *Session) SpecVersion() uint32 { return s.Version }

func (s *Session) Properties() (types.ChainProperties, bool) {
	return s.Props, s.PropsKnown
}

func (s *Session) HasCall(pallet, call string) bool {
	return s.Calls[pallet+"."+call]
}

func (s *Session) ConstantUint(pallet, name string) (*big.Int, bool) {
	v, ok := s.Constants[pallet+"."+name]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

func (s *Session) FreeBalance(ctx context.Context, address string) (*big.Int, error) {
	v, ok := s.Balances[address]
	if !ok {
		return nil, errors.Errorf("no balance recorded for %s", address)
	}
	return new(big.Int).Set(v), nil
}

func (s *Session) NewCall(method string, args map[string]interface{}) (types.Extrinsic, error) {
	if s.NewCallErr != nil {
		return nil, s.NewCallErr
	}
	return &Extrinsic{CallMethod: method, Args: args, MethodOverride: s.MethodOverride}, nil
}

func (s *Session) EstimateFee(ctx context.Context, ext types.Extrinsic, sender string) (*big.Int, error) {
	if s.FeeErr != nil {
		return nil, s.FeeErr
	}
	if s.Fee == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(s.Fee), nil
}

func (s *Session) Submit(ctx context.Context, ext types.SignedExtrinsic) (types.ExtrinsicWatcher, error) {
	if s.SubmitErr != nil {
		return nil, s.SubmitErr
	}
	s.mu.Lock()
	s.Submitted = append(s.Submitted, ext)
	s.mu.Unlock()
	if s.WatcherFor != nil {
		return s.WatcherFor(ext), nil
	}
	return &Watcher{Statuses: []*types.ExtrinsicStatus{
		{InBlock: true, BlockHash: "0xblock"},
		{InBlock: true, Finalized: true, BlockHash: "0xblock", Events: []string{"balances.Transfer"}},
	}}, nil
}

// SubmittedCount returns how many extrinsics have been submitted so far.
func (s *Session) SubmittedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Submitted)
}

// Signer is a scriptable signer backend recording every approval request.
type Signer struct {
	Approve      bool
	ApproveBatch bool
	SignErr      error

	mu             sync.Mutex
	SingleRequests []*types.SigningRequest
	BatchRequests  []*types.BatchSigningRequest
}

// NewApprovingSigner returns a signer that approves everything.
func NewApprovingSigner() *Signer {
	return &Signer{Approve: true, ApproveBatch: true}
}

func (f *Signer) Sign(ctx context.Context, ext types.Extrinsic, address string) (types.SignedExtrinsic, error) {
	if f.SignErr != nil {
		return nil, f.SignErr
	}
	payload, err := ext.PayloadToSign()
	if err != nil {
		return nil, err
	}
	return ext.Attach(append([]byte("signed:"), payload...), address)
}

func (f *Signer) RequestApproval(ctx context.Context, req *types.SigningRequest) (bool, error) {
	f.mu.Lock()
	f.SingleRequests = append(f.SingleRequests, req)
	f.mu.Unlock()
	return f.Approve, nil
}

func (f *Signer) RequestBatchApproval(ctx context.Context, req *types.BatchSigningRequest) (bool, error) {
	f.mu.Lock()
	f.BatchRequests = append(f.BatchRequests, req)
	f.mu.Unlock()
	return f.ApproveBatch, nil
}

// SingleRequestCount returns the number of single approvals requested.
func (f *Signer) SingleRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SingleRequests)
}

// BatchRequestCount returns the number of combined approvals requested.
func (f *Signer) BatchRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.BatchRequests)
}

// ForkBackend is a scriptable fork/simulation backend.
type ForkBackend struct {
	Outcome *types.ForkOutcome
	Err     error

	mu        sync.Mutex
	Endpoints [][]string
}

func (f *ForkBackend) DryRun(ctx context.Context, endpoints []string, ext types.Extrinsic, sender string) (*types.ForkOutcome, error) {
	f.mu.Lock()
	f.Endpoints = append(f.Endpoints, endpoints)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Outcome, nil
}
