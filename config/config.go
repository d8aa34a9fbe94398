// Package config carries the built-in network presets and their YAML overrides.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Network describes one known chain endpoint and its address/amount parameters.
type Network struct {
	Name       string `yaml:"name"`
	RPCURL     string `yaml:"rpc_url"`
	SS58Prefix uint16 `yaml:"ss58_prefix"`
	Decimals   int    `yaml:"decimals"`
	Symbol     string `yaml:"symbol"`
}

// Config holds the known networks and the development alias book.
type Config struct {
	Networks map[string]Network `yaml:"networks"`
	Aliases  map[string]string  `yaml:"aliases"`
}

// Default returns the built-in configuration: the public relay chains plus the
// well-known dev accounts.
func Default() *Config {
	return &Config{
		Networks: map[string]Network{
			"polkadot": {
				Name:       "polkadot",
				RPCURL:     "wss://rpc.polkadot.io",
				SS58Prefix: 0,
				Decimals:   10,
				Symbol:     "DOT",
			},
			"kusama": {
				Name:       "kusama",
				RPCURL:     "wss://kusama-rpc.polkadot.io",
				SS58Prefix: 2,
				Decimals:   12,
				Symbol:     "KSM",
			},
			"westend": {
				Name:       "westend",
				RPCURL:     "wss://westend-rpc.polkadot.io",
				SS58Prefix: 42,
				Decimals:   12,
				Symbol:     "WND",
			},
		},
		Aliases: map[string]string{
			"alice":   "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
			"bob":     "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty",
			"charlie": "5FLSigC9HGRKVhB9FiEo4Y3koPsNmBmLJbpXg2mp1hXcS59Y",
		},
	}
}

// Load reads a YAML file and overlays it on the defaults.
//
// Parameters:
// - path: the YAML file path.
//
// Returns:
// - *Config: the merged configuration.
// - error: an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return LoadBytes(data)
}

// LoadBytes parses YAML config bytes and overlays them on the defaults.
func LoadBytes(data []byte) (*Config, error) {
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	cfg := Default()
	for name, network := range overlay.Networks {
		if network.Name == "" {
			network.Name = name
		}
		cfg.Networks[name] = network
	}
	for alias, address := range overlay.Aliases {
		cfg.Aliases[alias] = address
	}
	return cfg, nil
}

// Network looks up a known network by name.
func (c *Config) Network(name string) (Network, bool) {
	network, ok := c.Networks[name]
	return network, ok
}

// ResolveAlias maps a development alias to its address. Unknown names pass
// through unchanged so callers can hand in real addresses directly.
func (c *Config) ResolveAlias(name string) string {
	if address, ok := c.Aliases[name]; ok {
		return address
	}
	return name
}
