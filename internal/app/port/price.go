package port

import (
	"context"

	"chainfolio/internal/domain/entity"
)

// PriceRequest identifies one asset whose USD price is wanted. An empty
// ContractAddress means the chain's native asset.
type PriceRequest struct {
	Chain           entity.ChainKey
	ContractAddress string
}

// PriceOracle maps a (chain, optional-contract-address) key to a current
// USD price. Lookups never fail: an unpriceable asset yields (0, false).
type PriceOracle interface {
	// Prime batch-fetches prices for the given assets, grouped by chain
	// platform, and caches them for subsequent PriceFor calls.
	Prime(ctx context.Context, requests []PriceRequest)

	// PriceFor returns the cached USD unit price for an asset.
	PriceFor(chain entity.ChainKey, contractAddress string) (float64, bool)
}
