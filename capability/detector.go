// Package capability inspects a connected chain session and produces a
// descriptor of the transfer and batch primitives the runtime supports.
package capability

import (
	"context"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
)

// Safe placeholders for chains that do not publish their metadata. Prefix 42 is
// the generic Substrate prefix.
const (
	defaultChainName     = "unknown"
	defaultTokenSymbol   = "UNIT"
	defaultTokenDecimals = 12
	defaultAddressPrefix = uint16(42)
)

// relaySpecNames are the runtime spec names of the public relay chains.
var relaySpecNames = map[string]bool{
	"polkadot": true,
	"kusama":   true,
	"westend":  true,
	"rococo":   true,
	"paseo":    true,
}

// assetHubSpecNames are the runtime spec names of the asset-hub system parachains,
// including their historic statemint-era names.
var assetHubSpecNames = map[string]bool{
	"statemint": true,
	"statemine": true,
	"westmint":  true,
}

// Detector produces capability descriptors from chain sessions. Detection is
// pure inspection and cheap to repeat; callers may cache the result per session.
type Detector struct {
	logger *logrus.Logger
}

// NewDetector creates a new capability detector.
//
// Parameters:
// - logger: the logger for logging purposes.
//
// Returns:
// - *Detector: the new detector instance.
func NewDetector(logger *logrus.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect waits for the session to become ready and inspects its metadata.
// Missing chain metadata is defaulted to safe placeholders rather than failing,
// since metadata absence is common on unfamiliar networks.
//
// Parameters:
// - ctx: the context bounding how long to wait for session readiness.
// - session: the active chain session to inspect.
//
// Returns:
// - *types.CapabilityDescriptor: the fully populated descriptor.
// - error: a SESSION_NOT_READY error if the session cannot become ready in time.
func (d *Detector) Detect(ctx context.Context, session types.ChainSession) (*types.CapabilityDescriptor, error) {
	if err := session.Ready(ctx); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSessionNotReady, err, "chain session did not become ready").
			WithDetail("chain", session.ChainName())
	}

	descriptor := &types.CapabilityDescriptor{
		ChainName:     session.ChainName(),
		SpecName:      session.SpecName(),
		SpecVersion:   session.SpecVersion(),
		TokenSymbol:   defaultTokenSymbol,
		TokenDecimals: defaultTokenDecimals,
		AddressPrefix: defaultAddressPrefix,
	}
	if descriptor.ChainName == "" {
		descriptor.ChainName = defaultChainName
	}

	if props, ok := session.Properties(); ok {
		if props.TokenSymbol != "" {
			descriptor.TokenSymbol = props.TokenSymbol
		}
		if props.TokenDecimals > 0 {
			descriptor.TokenDecimals = props.TokenDecimals
		}
		descriptor.AddressPrefix = props.AddressPrefix
	} else {
		d.logger.WithField("chain", descriptor.ChainName).
			Warn("Chain properties unavailable, using generic defaults")
	}

	descriptor.HasTransfer = session.HasCall("balances", "transfer")
	descriptor.HasTransferAllowDeath = session.HasCall("balances", "transfer_allow_death")
	descriptor.HasTransferKeepAlive = session.HasCall("balances", "transfer_keep_alive")
	descriptor.HasBatch = session.HasCall("utility", "batch")
	descriptor.HasBatchAll = session.HasCall("utility", "batch_all")
	descriptor.HasAssets = session.HasCall("assets", "transfer") || session.HasCall("tokens", "transfer")

	if deposit, ok := session.ConstantUint("balances", "existential_deposit"); ok {
		descriptor.ExistentialDeposit = deposit
	} else {
		descriptor.ExistentialDeposit = new(big.Int)
	}

	descriptor.Class = classify(descriptor)

	d.logger.WithFields(logrus.Fields{
		"chain":     descriptor.ChainName,
		"spec":      descriptor.SpecName,
		"class":     descriptor.Class,
		"keepAlive": descriptor.HasTransferKeepAlive,
		"batchAll":  descriptor.HasBatchAll,
	}).Debug("Detected chain capabilities")

	return descriptor, nil
}

// classify buckets the chain into relay, asset-hub or other-parachain.
func classify(d *types.CapabilityDescriptor) types.ChainClass {
	spec := strings.ToLower(d.SpecName)
	if relaySpecNames[spec] {
		return types.ChainClassRelay
	}
	if assetHubSpecNames[spec] || strings.Contains(spec, "asset-hub") || strings.Contains(spec, "asset_hub") {
		return types.ChainClassAssetHub
	}
	if d.HasAssets {
		return types.ChainClassAssetHub
	}
	return types.ChainClassParachain
}
