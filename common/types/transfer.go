package types

import "math/big"

// MaxBatchEntries caps the number of transfers in one batch request.
const MaxBatchEntries = 100

// Amount is a transfer amount as supplied by the caller. It is either a
// human-readable token quantity ("1.25", "10") or a pre-converted value already
// expressed in the chain's smallest unit. Smallest-unit arithmetic never uses
// floating point.
type Amount struct {
	text   string
	planck *big.Int
}

// NewAmount creates an amount from a human-readable token quantity. A value
// without a decimal point is interpreted as whole native tokens.
func NewAmount(text string) Amount {
	return Amount{text: text}
}

// NewPlanckAmount creates an amount already expressed in smallest units. The
// value passes through normalization unchanged.
func NewPlanckAmount(v *big.Int) Amount {
	return Amount{planck: new(big.Int).Set(v)}
}

// IsPlanck reports whether the amount is pre-converted to smallest units.
func (a Amount) IsPlanck() bool {
	return a.planck != nil
}

// Text returns the human-readable form, empty for pre-converted amounts.
func (a Amount) Text() string {
	return a.text
}

// Planck returns a copy of the pre-converted value, nil for human-readable amounts.
func (a Amount) Planck() *big.Int {
	if a.planck == nil {
		return nil
	}
	return new(big.Int).Set(a.planck)
}

// String returns the human-readable form or the smallest-unit value as text.
func (a Amount) String() string {
	if a.planck != nil {
		return a.planck.String()
	}
	return a.text
}

// TransferRequest describes one abstract balance transfer.
//
// Fields:
// - From: the sender address in the encoding the signer's key material expects.
// - To: the recipient address, re-encoded to the chain prefix during construction.
// - Amount: the transfer amount.
// - KeepAlive: when set, the keep-alive transfer primitive is required and the
//   builder fails loudly if it is absent rather than silently falling back.
// - SkipBalanceCheck: when set, the existential-deposit check is not performed.
type TransferRequest struct {
	From             string
	To               string
	Amount           Amount
	KeepAlive        bool
	SkipBalanceCheck bool
}

// BatchEntry is one (recipient, amount) pair of a batch transfer.
type BatchEntry struct {
	To     string
	Amount Amount
}

// BatchTransferRequest describes an ordered group of transfers from one sender.
//
// Fields:
// - From: the shared sender address.
// - Entries: the ordered (recipient, amount) pairs, capped at MaxBatchEntries.
// - Atomic: when set, all entries succeed or the whole group is rolled back.
// - KeepAlive: applies the keep-alive requirement to every entry.
// - SkipBalanceCheck: when set, the existential-deposit check is not performed.
type BatchTransferRequest struct {
	From             string
	Entries          []BatchEntry
	Atomic           bool
	KeepAlive        bool
	SkipBalanceCheck bool
}

// SafeTransactionResult is the outcome of safe transaction construction.
//
// Fields:
// - Extrinsic: the constructed transaction handle.
// - Method: the pallet.call actually chosen.
// - Recipient: the recipient address re-encoded to the chain's prefix.
// - Amount: the amount in smallest units.
// - Warnings: advisory warnings that do not block execution.
type SafeTransactionResult struct {
	Extrinsic Extrinsic
	Method    string
	Recipient string
	Amount    *big.Int
	Warnings  []string
}

// SafeBatchResult is the outcome of safe batch construction.
//
// Fields:
// - Extrinsic: the wrapping batch transaction handle.
// - Method: the batch call used (utility.batch or utility.batch_all).
// - Entries: the per-entry construction results, in request order.
// - TotalAmount: the sum of all entry amounts in smallest units.
// - Warnings: advisory warnings, deduplicated across entries.
type SafeBatchResult struct {
	Extrinsic   Extrinsic
	Method      string
	Entries     []*SafeTransactionResult
	TotalAmount *big.Int
	Warnings    []string
}
