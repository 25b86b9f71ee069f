package interfaces

import (
	"context"

	"github.com/openfolio/folio/internal/models"
)

// MarketDataClient provides access to the external market data service.
// Implementations own caching and rate-limit backoff; one symbol's failure
// must never abort callers iterating many symbols.
type MarketDataClient interface {
	// GetPrice retrieves the current price for a symbol, or nil when the
	// provider has no data for it.
	GetPrice(ctx context.Context, symbol string, forceRefresh bool) (*models.PriceQuote, error)

	// GetHistoricalPrices retrieves the dated price map for a symbol.
	GetHistoricalPrices(ctx context.Context, symbol string) (models.PriceHistory, error)

	// GetSplits retrieves historical split events on or after the from date
	// ("YYYY-MM-DD").
	GetSplits(ctx context.Context, symbol string, from string) ([]models.SplitEvent, error)

	// GetExchangeRate returns the conversion rate from one currency to
	// another, or an error when the provider has no rate.
	GetExchangeRate(ctx context.Context, from, to string) (float64, error)
}
