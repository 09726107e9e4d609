package port

import (
	"context"
	"time"

	"chainfolio/internal/domain/entity"
)

// ProviderAdapter is implemented once per upstream data source. Each
// adapter knows its upstream's request shape, pagination protocol and
// response schema, and emits provider-shaped raw records for the
// normalizers.
//
// Both fetch operations fan out across the configured chains concurrently
// and collect each chain's outcome independently: if at least one chain
// succeeds, partial results are returned and failures are logged; if every
// chain fails, a single aggregated error wrapping the first failure is
// returned.
type ProviderAdapter interface {
	// Name identifies the upstream source, used for logging and metrics.
	Name() string

	// FetchBalances returns the raw balance records for an address across
	// all configured chains.
	FetchBalances(ctx context.Context, address string) ([]entity.RawBalance, error)

	// FetchTransactions returns raw transaction records no older than the
	// lookback window. Pagination is cursor-based with a fixed page-count
	// safety ceiling, so the call always terminates.
	FetchTransactions(ctx context.Context, address string, lookback time.Duration) ([]entity.RawTransaction, error)
}
