package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

// CompareWithBenchmark simulates "what if each contribution had instead
// bought the benchmark at that date's price" and returns the portfolio's own
// daily series alongside the simulated one, over the same range and in the
// display currency.
//
// Activity amounts recorded in another currency are converted with the
// market data service's exchange rate; a missing rate degrades to 1 and is
// recorded in the result's Debug field rather than corrupting data silently.
func (s *Service) CompareWithBenchmark(ctx context.Context, q interfaces.ActivityQuery, benchmark string, from, to time.Time) (*models.BenchmarkComparison, error) {
	table, err := s.loadBehaviorTable(ctx)
	if err != nil {
		return nil, err
	}

	activities, from, to, err := s.loadActivities(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 || from.IsZero() {
		return nil, nil
	}

	result := &models.BenchmarkComparison{
		Symbol:   benchmark,
		Currency: s.displayCurrency,
	}

	converted := s.convertToDisplayCurrency(ctx, activities, result)

	symbols := distinctSymbols(converted)
	histories := s.PrefetchHistories(ctx, append(symbols, benchmark))

	result.Portfolio = BuildSeries(converted, table, histories, from, to, s.lookbackDays, s.logger)

	benchHistory := histories[benchmark]
	if benchHistory == nil {
		result.Debug = append(result.Debug, fmt.Sprintf("no price history for benchmark %s", benchmark))
		return result, nil
	}

	// Replay the portfolio's net flows into benchmark units. A contribution
	// (negative flow) buys units at that day's benchmark price; a withdrawal
	// sells them. Flow on a day with no resolvable benchmark price is
	// carried as uninvested cash.
	var units, cash float64
	result.Benchmark = make([]models.ValuationPoint, 0, len(result.Portfolio))

	for _, p := range result.Portfolio {
		price, ok := benchHistory.PriceOn(p.Date, s.lookbackDays)

		flow := p.NetFlow
		if flow != 0 {
			if ok && price > 0 {
				units += -flow / price
			} else {
				cash += -flow
				result.Debug = append(result.Debug, fmt.Sprintf("no benchmark price on %s — flow held as cash", p.Date.Format("2006-01-02")))
			}
		}

		value := cash
		if ok {
			value += units * price
		}

		result.Benchmark = append(result.Benchmark, models.ValuationPoint{
			Date:        p.Date,
			MarketValue: value,
			NetFlow:     p.NetFlow,
			Invested:    p.Invested,
		})
	}

	return result, nil
}

// convertToDisplayCurrency returns activity copies with prices and fees
// scaled into the display currency. Conversion failures fall back to rate 1
// and are surfaced in the comparison's Debug field.
func (s *Service) convertToDisplayCurrency(ctx context.Context, activities []*models.Activity, result *models.BenchmarkComparison) []*models.Activity {
	rates := make(map[string]float64)
	flagged := make(map[string]bool)

	converted := make([]*models.Activity, 0, len(activities))
	for _, a := range activities {
		if a.Currency == "" || a.Currency == s.displayCurrency {
			converted = append(converted, a)
			continue
		}

		rate, ok := rates[a.Currency]
		if !ok {
			r, err := s.market.GetExchangeRate(ctx, a.Currency, s.displayCurrency)
			if err != nil || r <= 0 {
				r = 1
				if !flagged[a.Currency] {
					flagged[a.Currency] = true
					result.Debug = append(result.Debug, fmt.Sprintf("missing exchange rate %s->%s — treated as 1", a.Currency, s.displayCurrency))
					s.logger.Warn().Str("from", a.Currency).Str("to", s.displayCurrency).Msg("Missing exchange rate — treating as 1")
				}
			}
			rate = r
			rates[a.Currency] = rate
		}

		copied := *a
		copied.Price *= rate
		copied.Fee *= rate
		copied.Currency = s.displayCurrency
		converted = append(converted, &copied)
	}

	return converted
}
