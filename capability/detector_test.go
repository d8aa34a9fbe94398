package capability

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/internal/chaintest"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestDetectFullyPopulates(t *testing.T) {
	session := chaintest.NewWestendSession()
	detector := NewDetector(testLogger())

	caps, err := detector.Detect(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, "Westend", caps.ChainName)
	assert.Equal(t, "westend", caps.SpecName)
	assert.Equal(t, "WND", caps.TokenSymbol)
	assert.Equal(t, 12, caps.TokenDecimals)
	assert.Equal(t, uint16(42), caps.AddressPrefix)
	assert.Equal(t, big.NewInt(10_000_000_000), caps.ExistentialDeposit)
	assert.True(t, caps.HasTransfer)
	assert.True(t, caps.HasTransferAllowDeath)
	assert.True(t, caps.HasTransferKeepAlive)
	assert.True(t, caps.HasBatch)
	assert.True(t, caps.HasBatchAll)
	assert.False(t, caps.HasAssets)
	assert.Equal(t, types.ChainClassRelay, caps.Class)
}

func TestDetectSessionNotReady(t *testing.T) {
	session := chaintest.NewWestendSession()
	session.ReadyErr = errors.New("connection refused")

	_, err := NewDetector(testLogger()).Detect(context.Background(), session)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeSessionNotReady, xerrors.CodeOf(err))
}

func TestDetectDefaultsMissingMetadata(t *testing.T) {
	session := &chaintest.Session{
		Calls: map[string]bool{"balances.transfer": true},
	}

	caps, err := NewDetector(testLogger()).Detect(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, "unknown", caps.ChainName)
	assert.Equal(t, "UNIT", caps.TokenSymbol)
	assert.Equal(t, 12, caps.TokenDecimals)
	assert.Equal(t, uint16(42), caps.AddressPrefix)
	require.NotNil(t, caps.ExistentialDeposit)
	assert.Zero(t, caps.ExistentialDeposit.Sign())
	assert.True(t, caps.HasTransfer)
	assert.False(t, caps.HasTransferKeepAlive)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		spec string
		assets bool
		want types.ChainClass
	}{
		{"polkadot relay", "polkadot", false, types.ChainClassRelay},
		{"kusama relay", "kusama", false, types.ChainClassRelay},
		{"statemint era asset hub", "statemint", false, types.ChainClassAssetHub},
		{"renamed asset hub", "asset-hub-polkadot", true, types.ChainClassAssetHub},
		{"parachain with assets", "acala", true, types.ChainClassAssetHub},
		{"plain parachain", "moonbeam", false, types.ChainClassParachain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := chaintest.NewWestendSession()
			session.Spec = tt.spec
			if tt.assets {
				session.Calls["assets.transfer"] = true
			}

			caps, err := NewDetector(testLogger()).Detect(context.Background(), session)
			require.NoError(t, err)
			assert.Equal(t, tt.want, caps.Class)
		})
	}
}

func TestDetectIsRepeatable(t *testing.T) {
	session := chaintest.NewWestendSession()
	detector := NewDetector(testLogger())

	first, err := detector.Detect(context.Background(), session)
	require.NoError(t, err)
	second, err := detector.Detect(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
