package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"chainfolio/internal/app/port"
	"chainfolio/internal/domain/entity"
	networkdefinition "chainfolio/internal/infrastructure/network/definition"
	"chainfolio/internal/infrastructure/pricing"

	gocache "github.com/patrickmn/go-cache"
)

// priceServiceImpl implements port.PriceOracle on top of the DEX Screener
// pairs API. Lookups are batched per chain platform and cached with a TTL;
// a failed or missing lookup is absent, never an error.
type priceServiceImpl struct {
	client      pricing.Client
	cache       *gocache.Cache
	logger      port.Logger
	maxPerBatch int
}

// NewPriceService creates a new price oracle backed by the given pairs
// client.
func NewPriceService(client pricing.Client, cacheTTL time.Duration, maxPerBatch int, logger port.Logger) port.PriceOracle {
	if maxPerBatch <= 0 {
		maxPerBatch = 30
	}
	return &priceServiceImpl{
		client:      client,
		cache:       gocache.New(cacheTTL, 2*cacheTTL),
		logger:      logger,
		maxPerBatch: maxPerBatch,
	}
}

// Prime batch-fetches prices for the requested assets grouped by chain
// platform. Assets already cached are skipped; failures leave the affected
// assets unpriced.
func (s *priceServiceImpl) Prime(ctx context.Context, requests []port.PriceRequest) {
	byPlatform := make(map[string][]string)
	for _, req := range requests {
		platformID, address, ok := s.lookupTarget(req.Chain, req.ContractAddress)
		if !ok {
			continue
		}
		if _, cached := s.cache.Get(cacheKey(req.Chain, address)); cached {
			continue
		}
		byPlatform[platformID] = appendUnique(byPlatform[platformID], address)
	}

	for platformID, addresses := range byPlatform {
		for _, batch := range batchStrings(addresses, s.maxPerBatch) {
			pairs, err := s.client.GetTokenPairsByAddresses(ctx, platformID, batch)
			if err != nil {
				s.logger.Warn("Price batch lookup failed, affected assets stay unpriced",
					"platform", platformID, "tokenCount", len(batch), "error", err)
				continue
			}
			s.cachePairs(platformID, pairs)
		}
	}
}

// PriceFor returns the cached USD unit price for an asset. Native assets
// are priced via their wrapped ERC20 representation.
func (s *priceServiceImpl) PriceFor(chain entity.ChainKey, contractAddress string) (float64, bool) {
	_, address, ok := s.lookupTarget(chain, contractAddress)
	if !ok {
		return 0, false
	}
	if v, found := s.cache.Get(cacheKey(chain, address)); found {
		if price, isFloat := v.(float64); isFloat && price > 0 {
			return price, true
		}
	}
	return 0, false
}

// lookupTarget maps an asset to its DEX Screener platform and the token
// address to query: the wrapped-native address for native assets, the
// contract address otherwise.
func (s *priceServiceImpl) lookupTarget(chain entity.ChainKey, contractAddress string) (platformID, address string, ok bool) {
	def, found := networkdefinition.DefinitionFor(chain)
	if !found || def.DEXScreenerChainID == "" {
		return "", "", false
	}
	if contractAddress == "" {
		if def.WrappedNativeTokenAddress == "" {
			return "", "", false
		}
		return def.DEXScreenerChainID, strings.ToLower(def.WrappedNativeTokenAddress), true
	}
	return def.DEXScreenerChainID, strings.ToLower(contractAddress), true
}

func (s *priceServiceImpl) cachePairs(platformID string, pairs []pricing.PairData) {
	chain := networkdefinition.Canonicalize(platformID)
	for _, pair := range pairs {
		price, err := strconv.ParseFloat(pair.PriceUsd, 64)
		if err != nil || price <= 0 {
			continue
		}
		addr := strings.ToLower(pair.BaseToken.Address)
		if addr == "" {
			continue
		}
		key := cacheKey(chain, addr)
		// Keep the first (most liquid) pair reported for a token.
		if _, exists := s.cache.Get(key); exists {
			continue
		}
		s.cache.SetDefault(key, price)
	}
}

func cacheKey(chain entity.ChainKey, address string) string {
	return string(chain) + ":" + address
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func batchStrings(items []string, size int) [][]string {
	if size <= 0 {
		return [][]string{items}
	}
	var batches [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
