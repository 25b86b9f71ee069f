package ledger

import (
	"context"
	"fmt"

	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

// GetInvestmentStats replays one investment (optionally scoped to one
// account) and combines the terminal state with the current market price.
// The stats object is a derived view, recomputed on every call.
func (s *Service) GetInvestmentStats(ctx context.Context, symbol, accountID, displayCurrency string) (*models.InvestmentStats, error) {
	table, err := s.LoadBehaviorTable(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.storage.ActivityStore().List(ctx, interfaces.ActivityQuery{
		Symbol:    symbol,
		AccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activities for %s: %w", symbol, err)
	}

	state, steps := ReplayTrace(activities, table, s.logger)

	stats := &models.InvestmentStats{
		Symbol:          symbol,
		AccountID:       accountID,
		Quantity:        state.Quantity,
		AvgPrice:        state.AvgCost(),
		TotalInvestment: state.CostBasis,
		TotalFees:       state.Fees,
		TotalDividends:  state.Dividends,
		AvgPriceHistory: make(map[string]float64, len(steps)),
	}

	// Average-price history keyed by date: last state per activity date wins.
	for _, step := range steps {
		stats.AvgPriceHistory[step.Date] = step.State.AvgCost()
	}

	// Market price is best-effort: a missing quote degrades stats to
	// cost-basis-only, it never fails the computation.
	quote, err := s.market.GetPrice(ctx, symbol, false)
	if err != nil {
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("No market price for stats — returning cost basis only")
		return stats, nil
	}
	if quote == nil {
		return stats, nil
	}

	price := quote.Price
	if quote.Currency != "" && displayCurrency != "" && quote.Currency != displayCurrency {
		rate, err := s.market.GetExchangeRate(ctx, quote.Currency, displayCurrency)
		if err != nil || rate <= 0 {
			s.logger.Warn().
				Str("symbol", symbol).
				Str("from", quote.Currency).
				Str("to", displayCurrency).
				Msg("Missing exchange rate — treating as 1")
			rate = 1
		}
		price *= rate
	}

	stats.MarketPrice = price
	stats.CurrentValue = state.Quantity * price
	stats.Return = stats.CurrentValue - stats.TotalInvestment
	if stats.TotalInvestment > 0 {
		stats.ReturnPct = (stats.Return / stats.TotalInvestment) * 100
	}

	return stats, nil
}
