package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chainfolio/internal/app/port"
	"chainfolio/internal/domain/entity"
	networkdefinition "chainfolio/internal/infrastructure/network/definition"

	"golang.org/x/sync/errgroup"
)

// ErrNoProvidersConfigured is returned when no provider adapter could be
// constructed, which means the required credentials are absent. It belongs
// to the configuration error class and maps to a failure status at the
// boundary.
var ErrNoProvidersConfigured = errors.New("no data providers configured: check provider credentials")

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	resolver  port.AddressResolver
	adapters  []port.ProviderAdapter
	oracle    port.PriceOracle
	balances  *BalanceNormalizer
	txs       *TransactionNormalizer
	analytics AnalyticsEngine
	cache     port.SummaryCache
	cacheTTL  time.Duration
	logger    port.Logger
}

// NewPortfolioService creates a new PortfolioServiceImpl. Adapters are
// tried in order for balances; transactions are merged across all of them.
func NewPortfolioService(
	resolver port.AddressResolver,
	adapters []port.ProviderAdapter,
	oracle port.PriceOracle,
	cache port.SummaryCache,
	cacheTTL time.Duration,
	logger port.Logger,
) port.PortfolioService {
	return &PortfolioServiceImpl{
		resolver:  resolver,
		adapters:  adapters,
		oracle:    oracle,
		balances:  NewBalanceNormalizer(oracle, logger),
		txs:       NewTransactionNormalizer(logger),
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// AnalyzePortfolio runs one full fetch+normalize+analyze cycle for an
// address, serving from the cache when a fresh derived payload exists.
func (s *PortfolioServiceImpl) AnalyzePortfolio(ctx context.Context, input string) (*entity.PortfolioReport, error) {
	if len(s.adapters) == 0 {
		return nil, ErrNoProvidersConfigured
	}

	address, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	key := "portfolio:" + strings.ToLower(address)
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(*entity.PortfolioReport); ok {
			s.logger.Debug("Serving portfolio from cache", "address", address)
			return report, nil
		}
	}

	raws, err := s.fetchBalancesWithFallback(ctx, address)
	if err != nil {
		return nil, err
	}

	s.oracle.Prime(ctx, priceRequests(raws))

	holdings := s.balances.NormalizeAll(raws, "")
	summary := s.analytics.ComputeSummary(holdings)
	report := &entity.PortfolioReport{
		Address:  address,
		Summary:  summary,
		Holdings: holdings,
		Insights: s.analytics.GenerateInsights(summary, holdings),
	}

	s.cache.Set(key, report, s.cacheTTL)
	s.logger.Info("Portfolio analyzed", "address", address,
		"holdings", len(holdings), "netWorth", summary.NetWorth, "risk", summary.RiskLevel)
	return report, nil
}

// TransactionHistory fetches raw transactions from every configured
// adapter, waits for all outcomes, and returns the merged, deduplicated,
// newest-first canonical set. Partial provider failures are logged; only a
// total failure surfaces, as the first encountered error.
func (s *PortfolioServiceImpl) TransactionHistory(ctx context.Context, input string, lookback time.Duration) ([]entity.Transaction, error) {
	if len(s.adapters) == 0 {
		return nil, ErrNoProvidersConfigured
	}

	address, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("txs:%s:%s", strings.ToLower(address), lookback)
	if cached, found := s.cache.Get(key); found {
		if txs, ok := cached.([]entity.Transaction); ok {
			s.logger.Debug("Serving transactions from cache", "address", address)
			return txs, nil
		}
	}

	var (
		mu       sync.Mutex
		merged   []entity.RawTransaction
		firstErr error
		failures int
	)

	var g errgroup.Group
	for _, adapter := range s.adapters {
		g.Go(func() error {
			raws, fetchErr := adapter.FetchTransactions(ctx, address, lookback)
			mu.Lock()
			defer mu.Unlock()
			if fetchErr != nil {
				failures++
				if firstErr == nil {
					firstErr = fetchErr
				}
				s.logger.Warn("Transaction fetch failed for provider",
					"provider", adapter.Name(), "address", address, "error", fetchErr)
				return nil
			}
			merged = append(merged, raws...)
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(s.adapters) && firstErr != nil {
		return nil, firstErr
	}

	txs := s.txs.NormalizeBatch(merged, address, "")
	s.cache.Set(key, txs, s.cacheTTL)
	s.logger.Info("Transaction history assembled", "address", address, "count", len(txs))
	return txs, nil
}

// fetchBalancesWithFallback tries adapters in configured order and returns
// the first successful snapshot, mirroring a primary/fallback endpoint
// loop. Only when every adapter fails does the first error surface.
func (s *PortfolioServiceImpl) fetchBalancesWithFallback(ctx context.Context, address string) ([]entity.RawBalance, error) {
	var firstErr error
	for _, adapter := range s.adapters {
		raws, err := adapter.FetchBalances(ctx, address)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("Balance fetch failed, trying next provider",
				"provider", adapter.Name(), "address", address, "error", err)
			continue
		}
		return raws, nil
	}
	return nil, firstErr
}

// priceRequests collects the assets that need an oracle lookup: records
// without a directly-reported USD value or unit price.
func priceRequests(raws []entity.RawBalance) []port.PriceRequest {
	requests := make([]port.PriceRequest, 0, len(raws))
	for _, raw := range raws {
		if raw.QuoteUSD != nil && *raw.QuoteUSD > 0 {
			continue
		}
		if raw.QuoteRate != nil && *raw.QuoteRate > 0 {
			continue
		}
		contract := ""
		if !raw.IsNative {
			contract = strings.ToLower(raw.TokenAddress)
		}
		requests = append(requests, port.PriceRequest{
			Chain:           networkdefinition.Canonicalize(raw.Chain),
			ContractAddress: contract,
		})
	}
	return requests
}
