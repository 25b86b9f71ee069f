package interfaces

import (
	"context"
	"time"

	"github.com/openfolio/folio/internal/models"
)

// LedgerService reconstructs holdings from the activity ledger and keeps the
// ledger consistent with upstream corporate actions.
type LedgerService interface {
	// GetHoldings replays one investment into its terminal holding state,
	// optionally scoped to one account.
	GetHoldings(ctx context.Context, symbol, accountID string) (models.HoldingState, error)

	// GetInvestmentStats combines replayed state with current market prices.
	GetInvestmentStats(ctx context.Context, symbol, accountID, displayCurrency string) (*models.InvestmentStats, error)

	// ReconcileSplits synthesizes missing stock split activities for one
	// symbol, one per affected account. Idempotent.
	ReconcileSplits(ctx context.Context, symbol string) (int, error)

	// ReconcileAllSplits runs split reconciliation across the whole ledger.
	ReconcileAllSplits(ctx context.Context) (int, error)
}

// ValuationService derives time series and returns from the ledger.
type ValuationService interface {
	// BuildPortfolioSeries produces one valuation point per calendar day.
	BuildPortfolioSeries(ctx context.Context, q ActivityQuery, from, to time.Time) ([]models.ValuationPoint, error)

	// PortfolioXIRR computes the money-weighted annualized return for the
	// queried ledger slice. ok=false means the solver did not converge.
	PortfolioXIRR(ctx context.Context, q ActivityQuery, now time.Time) (rate float64, ok bool, err error)

	// CompareWithBenchmark simulates routing every contribution into a
	// benchmark symbol instead.
	CompareWithBenchmark(ctx context.Context, q ActivityQuery, benchmark string, from, to time.Time) (*models.BenchmarkComparison, error)

	// PrefetchHistories loads price history for many symbols in parallel
	// batches; failed symbols are absent from the result.
	PrefetchHistories(ctx context.Context, symbols []string) map[string]models.PriceHistory
}
