package types

import "math/big"

// ChainClass classifies a chain by its role in the ecosystem.
type ChainClass string

const (
	// ChainClassRelay represents a relay chain (e.g. Polkadot, Kusama, Westend).
	ChainClassRelay ChainClass = "RELAY"
	// ChainClassAssetHub represents a system parachain carrying the assets pallet.
	ChainClassAssetHub ChainClass = "ASSET_HUB"
	// ChainClassParachain represents any other parachain.
	ChainClassParachain ChainClass = "PARACHAIN"
)

// String converts ChainClass to string representation.
func (c ChainClass) String() string {
	return string(c)
}

// Transfer and batch call identifiers in pallet.call form, matching runtime metadata.
const (
	MethodTransfer           = "balances.transfer"
	MethodTransferAllowDeath = "balances.transfer_allow_death"
	MethodTransferKeepAlive  = "balances.transfer_keep_alive"
	MethodBatch              = "utility.batch"
	MethodBatchAll           = "utility.batch_all"
	MethodAssetsTransfer     = "assets.transfer"
)

// CapabilityDescriptor is a snapshot of the transfer primitives and metadata a
// chain/runtime supports. It is fully populated by the capability detector before
// any transaction is built from it and is never mutated afterwards.
//
// Fields:
// - ChainName: the reported chain name, or "unknown" when metadata is absent.
// - SpecName: the runtime spec name.
// - SpecVersion: the runtime spec version.
// - TokenSymbol: the native token symbol.
// - TokenDecimals: the native token decimal count.
// - AddressPrefix: the SS58 address prefix of the chain.
// - ExistentialDeposit: the minimum balance an account must retain, in smallest units.
// - HasTransfer: whether the legacy balances.transfer call exists.
// - HasTransferAllowDeath: whether balances.transfer_allow_death exists.
// - HasTransferKeepAlive: whether balances.transfer_keep_alive exists.
// - HasBatch: whether utility.batch exists.
// - HasBatchAll: whether the atomic utility.batch_all exists.
// - HasAssets: whether the assets/tokens pallet exists.
// - Class: the chain classification.
type CapabilityDescriptor struct {
	ChainName             string
	SpecName              string
	SpecVersion           uint32
	TokenSymbol           string
	TokenDecimals         int
	AddressPrefix         uint16
	ExistentialDeposit    *big.Int
	HasTransfer           bool
	HasTransferAllowDeath bool
	HasTransferKeepAlive  bool
	HasBatch              bool
	HasBatchAll           bool
	HasAssets             bool
	Class                 ChainClass
}

// HasBalances reports whether any balances transfer primitive is available at all.
func (d *CapabilityDescriptor) HasBalances() bool {
	return d.HasTransfer || d.HasTransferAllowDeath || d.HasTransferKeepAlive
}

// HasAnyBatch reports whether any batch primitive is available.
func (d *CapabilityDescriptor) HasAnyBatch() bool {
	return d.HasBatch || d.HasBatchAll
}
