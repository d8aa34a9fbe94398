package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPresets(t *testing.T) {
	cfg := Default()

	polkadot, ok := cfg.Network("polkadot")
	require.True(t, ok)
	assert.Equal(t, uint16(0), polkadot.SS58Prefix)
	assert.Equal(t, 10, polkadot.Decimals)
	assert.Equal(t, "DOT", polkadot.Symbol)

	kusama, ok := cfg.Network("kusama")
	require.True(t, ok)
	assert.Equal(t, uint16(2), kusama.SS58Prefix)
	assert.Equal(t, 12, kusama.Decimals)

	westend, ok := cfg.Network("westend")
	require.True(t, ok)
	assert.Equal(t, uint16(42), westend.SS58Prefix)
}

func TestLoadBytesOverlay(t *testing.T) {
	data := []byte(`
networks:
  westend:
    rpc_url: wss://example.test
    ss58_prefix: 42
    decimals: 12
    symbol: WND
  local:
    rpc_url: ws://127.0.0.1:9944
    ss58_prefix: 42
    decimals: 12
    symbol: UNIT
aliases:
  dave: 5DAAnrj7VHTznn2AWBemMuyBwZWs6FNFjdyVXUeYum3PTXFy
`)

	cfg, err := LoadBytes(data)
	require.NoError(t, err)

	local, ok := cfg.Network("local")
	require.True(t, ok)
	assert.Equal(t, "local", local.Name)
	assert.Equal(t, "ws://127.0.0.1:9944", local.RPCURL)

	westend, ok := cfg.Network("westend")
	require.True(t, ok)
	assert.Equal(t, "wss://example.test", westend.RPCURL)

	// Presets not mentioned in the overlay survive.
	_, ok = cfg.Network("polkadot")
	assert.True(t, ok)

	assert.Equal(t, "5DAAnrj7VHTznn2AWBemMuyBwZWs6FNFjdyVXUeYum3PTXFy", cfg.ResolveAlias("dave"))
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", cfg.ResolveAlias("alice"))
}

func TestResolveAliasPassthrough(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty", cfg.ResolveAlias("bob"))
	assert.Equal(t, "not-an-alias", cfg.ResolveAlias("not-an-alias"))
}

func TestLoadBytesRejectsBadYAML(t *testing.T) {
	_, err := LoadBytes([]byte("networks: [not a map"))
	require.Error(t, err)
}
