package networkdefinition

import (
	"strconv"
	"strings"

	"chainfolio/internal/domain/entity"
)

// Predefined chain definitions. The registry is built once at init and is
// read-only afterwards.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.ChainDefinition{
		Key:                       "ethereum",
		ChainID:                   1,
		Name:                      "Ethereum Mainnet",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		CovalentName:              "eth-mainnet",
		AlchemyPrefix:             "eth-mainnet",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
	}
	Polygon = entity.ChainDefinition{
		Key:                       "polygon",
		ChainID:                   137,
		Name:                      "Polygon PoS",
		NativeSymbol:              "POL",
		Decimals:                  18,
		CovalentName:              "matic-mainnet",
		AlchemyPrefix:             "polygon-mainnet",
		DEXScreenerChainID:        "polygon",
		WrappedNativeTokenAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", // WMATIC
	}
	BSC = entity.ChainDefinition{
		Key:                       "bsc",
		ChainID:                   56,
		Name:                      "BNB Smart Chain",
		NativeSymbol:              "BNB",
		Decimals:                  18,
		CovalentName:              "bsc-mainnet",
		AlchemyPrefix:             "bnb-mainnet",
		DEXScreenerChainID:        "bsc",
		WrappedNativeTokenAddress: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", // WBNB
	}
	Arbitrum = entity.ChainDefinition{
		Key:                       "arbitrum",
		ChainID:                   42161,
		Name:                      "Arbitrum One",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		CovalentName:              "arbitrum-mainnet",
		AlchemyPrefix:             "arb-mainnet",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", // WETH on Arbitrum
	}
	Optimism = entity.ChainDefinition{
		Key:                       "optimism",
		ChainID:                   10,
		Name:                      "OP Mainnet",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		CovalentName:              "optimism-mainnet",
		AlchemyPrefix:             "opt-mainnet",
		DEXScreenerChainID:        "optimism",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on OP
	}
	Base = entity.ChainDefinition{
		Key:                       "base",
		ChainID:                   8453,
		Name:                      "Base Mainnet",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		CovalentName:              "base-mainnet",
		AlchemyPrefix:             "base-mainnet",
		DEXScreenerChainID:        "base",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on Base
	}
	Avalanche = entity.ChainDefinition{
		Key:                       "avalanche",
		ChainID:                   43114,
		Name:                      "Avalanche C-Chain",
		NativeSymbol:              "AVAX",
		Decimals:                  18,
		CovalentName:              "avalanche-mainnet",
		AlchemyPrefix:             "avax-mainnet",
		DEXScreenerChainID:        "avalanche",
		WrappedNativeTokenAddress: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7", // WAVAX
	}
	Fantom = entity.ChainDefinition{
		Key:                       "fantom",
		ChainID:                   250,
		Name:                      "Fantom Opera",
		NativeSymbol:              "FTM",
		Decimals:                  18,
		CovalentName:              "fantom-mainnet",
		AlchemyPrefix:             "fantom-mainnet",
		DEXScreenerChainID:        "fantom",
		WrappedNativeTokenAddress: "0x21be370D5312f44cB42ce377BC9b8a0cEF1A4C83", // WFTM
	}
	Gnosis = entity.ChainDefinition{
		Key:                       "gnosis",
		ChainID:                   100,
		Name:                      "Gnosis Chain",
		NativeSymbol:              "xDAI",
		Decimals:                  18,
		CovalentName:              "gnosis-mainnet",
		AlchemyPrefix:             "gnosis-mainnet",
		DEXScreenerChainID:        "gnosis",
		WrappedNativeTokenAddress: "0xe91D153E0b41518A2Ce8DD3D7944Fa863463A97d", // WXDAI
	}
)

var allDefinitions = []entity.ChainDefinition{
	Ethereum, Polygon, BSC, Arbitrum, Optimism, Base, Avalanche, Fantom, Gnosis,
}

var (
	byKey     map[entity.ChainKey]entity.ChainDefinition
	byChainID map[uint64]entity.ChainDefinition
	aliases   map[string]entity.ChainKey
)

func init() {
	byKey = make(map[entity.ChainKey]entity.ChainDefinition, len(allDefinitions))
	byChainID = make(map[uint64]entity.ChainDefinition, len(allDefinitions))
	aliases = make(map[string]entity.ChainKey)

	for _, def := range allDefinitions {
		byKey[def.Key] = def
		byChainID[def.ChainID] = def

		addAlias(string(def.Key), def.Key)
		addAlias(def.Name, def.Key)
		addAlias(def.CovalentName, def.Key)
		addAlias(def.AlchemyPrefix, def.Key)
		addAlias(def.DEXScreenerChainID, def.Key)
		addAlias(strconv.FormatUint(def.ChainID, 10), def.Key)
		addAlias("eip155:"+strconv.FormatUint(def.ChainID, 10), def.Key)
	}

	// Common spellings the static registration above does not cover.
	for alias, key := range map[string]entity.ChainKey{
		"eth":                 Ethereum.Key,
		"ether":               Ethereum.Key,
		"mainnet":             Ethereum.Key,
		"homestead":           Ethereum.Key,
		"matic":               Polygon.Key,
		"polygon-pos":         Polygon.Key,
		"binance":             BSC.Key,
		"bnb":                 BSC.Key,
		"binance-smart-chain": BSC.Key,
		"arb":                 Arbitrum.Key,
		"arbitrum-one":        Arbitrum.Key,
		"op":                  Optimism.Key,
		"optimistic-ethereum": Optimism.Key,
		"avax":                Avalanche.Key,
		"ftm":                 Fantom.Key,
		"xdai":                Gnosis.Key,
	} {
		addAlias(alias, key)
	}
}

func addAlias(raw string, key entity.ChainKey) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return
	}
	aliases[raw] = key
}

// Canonicalize maps any raw chain identifier (numeric chain ID, eip155 URI,
// slug, provider enum, display name) to its canonical ChainKey. Resolution
// never fails: unrecognized identifiers pass through unchanged so the
// record still lands in some bucket. Pure and stable across calls; it
// underlies deduplication and allocation grouping.
func Canonicalize(raw string) entity.ChainKey {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return ""
	}

	if key, ok := aliases[normalized]; ok {
		return key
	}

	if id, ok := strings.CutPrefix(normalized, "eip155:"); ok {
		if chainID, err := strconv.ParseUint(id, 10, 64); err == nil {
			if def, found := byChainID[chainID]; found {
				return def.Key
			}
		}
	}

	return entity.ChainKey(normalized)
}

// DefinitionFor returns the registry entry for a canonical chain key.
func DefinitionFor(key entity.ChainKey) (entity.ChainDefinition, bool) {
	def, ok := byKey[key]
	return def, ok
}

// DefaultDecimals returns the chain's native-unit precision, or 18 when the
// chain is not in the registry.
func DefaultDecimals(key entity.ChainKey) uint8 {
	if def, ok := byKey[key]; ok {
		return def.Decimals
	}
	return 18
}

// All returns every supported chain definition.
func All() []entity.ChainDefinition {
	out := make([]entity.ChainDefinition, len(allDefinitions))
	copy(out, allDefinitions)
	return out
}

// ByKeys filters the registry down to the configured chain list; unknown
// keys are skipped.
func ByKeys(keys []string) []entity.ChainDefinition {
	out := make([]entity.ChainDefinition, 0, len(keys))
	for _, k := range keys {
		if def, ok := byKey[Canonicalize(k)]; ok {
			out = append(out, def)
		}
	}
	return out
}
