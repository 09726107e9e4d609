package port

import (
	"context"
	"time"

	"chainfolio/internal/domain/entity"
)

// PortfolioService is the application entry point behind the read
// endpoints.
type PortfolioService interface {
	// AnalyzePortfolio resolves the input address, fetches and normalizes
	// balances, and derives the portfolio summary and insights. A request
	// with zero usable data returns a well-formed empty report, not an
	// error; configuration and resolution failures return typed errors.
	AnalyzePortfolio(ctx context.Context, input string) (*entity.PortfolioReport, error)

	// TransactionHistory returns canonical transactions within the
	// lookback window, newest first, deduplicated across providers.
	TransactionHistory(ctx context.Context, input string, lookback time.Duration) ([]entity.Transaction, error)
}
