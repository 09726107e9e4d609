package entity

// ChainKey is the canonical identifier for one blockchain network
// (e.g. "ethereum", "polygon"). Every raw chain identifier a provider
// returns maps to exactly one ChainKey; unrecognized identifiers pass
// through unchanged so records are never dropped on chain resolution.
type ChainKey string

func (c ChainKey) String() string { return string(c) }

// ChainDefinition describes one supported EVM network and the names the
// upstream providers use for it.
type ChainDefinition struct {
	Key           ChainKey `json:"key"`
	ChainID       uint64   `json:"chainId"`
	Name          string   `json:"name"`
	NativeSymbol  string   `json:"nativeSymbol"`
	Decimals      uint8    `json:"decimals"`
	CovalentName  string   `json:"-"` // chain path segment for the Covalent-style API
	AlchemyPrefix string   `json:"-"` // subdomain prefix for the Alchemy-style API
	// DEXScreenerChainID is the platform identifier used when batching
	// price lookups for tokens on this chain.
	DEXScreenerChainID string `json:"-"`
	// WrappedNativeTokenAddress is used to price the native asset via its
	// wrapped ERC20 representation.
	WrappedNativeTokenAddress string `json:"-"`
}
