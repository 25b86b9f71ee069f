package valuation

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
	"github.com/openfolio/folio/internal/services/ledger"
)

const (
	xirrGuess    = 0.1
	xirrMaxIter  = 100
	xirrTol      = 1e-6
	xirrDerivMin = 1e-6
	daysPerYear  = 365.0
)

// SolveXIRR computes the annualized internal rate of return for irregular
// dated cash flows via Newton-Raphson: the rate r such that
// sum(amount_i / (1+r)^(days_i/365)) = 0, with days measured from the
// earliest flow. Deterministic and free of I/O.
//
// Returns ok=false when the input is insufficient (<2 flows), the derivative
// collapses (unstable step), or the iteration fails to converge — an
// expected outcome callers must treat as "undefined", never retry.
func SolveXIRR(flows []models.CashFlow) (rate float64, ok bool) {
	if len(flows) < 2 {
		return 0, false
	}

	// Input order is not authoritative.
	sorted := make([]models.CashFlow, len(flows))
	copy(sorted, flows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	base := sorted[0].Date
	years := make([]float64, len(sorted))
	for i, f := range sorted {
		years[i] = f.Date.Sub(base).Hours() / 24 / daysPerYear
	}

	x0 := xirrGuess
	for iter := 0; iter < xirrMaxIter; iter++ {
		var npv, dnpv float64
		for i, f := range sorted {
			y := years[i]
			discount := math.Pow(1+x0, y)
			if discount == 0 || math.IsNaN(discount) || math.IsInf(discount, 0) {
				return 0, false
			}
			npv += f.Amount / discount
			if y != 0 {
				dnpv -= y * f.Amount / (discount * (1 + x0))
			}
		}

		if math.Abs(dnpv) < xirrDerivMin {
			// Near-zero derivative makes the Newton step unstable.
			return 0, false
		}

		x1 := x0 - npv/dnpv
		if math.IsNaN(x1) || math.IsInf(x1, 0) {
			return 0, false
		}
		if math.Abs(x1-x0) < xirrTol {
			return x1, true
		}
		x0 = x1
	}

	return 0, false
}

// cashFlowsFromActivities derives signed XIRR cash flows from a replayable
// activity list: ADD behaviors are outflows, REMOVE behaviors are inflows,
// dividends are inflows at their own date. Malformed rows are skipped.
func (s *Service) cashFlowsFromActivities(activities []*models.Activity, table ledger.BehaviorTable) []models.CashFlow {
	flows := make([]models.CashFlow, 0, len(activities))
	for _, a := range activities {
		if !a.IsWellFormed() {
			continue
		}
		d := a.ParsedDate()

		switch table.Resolve(a.Type) {
		case models.BehaviorAdd:
			flows = append(flows, models.CashFlow{Date: d, Amount: -(a.Quantity*a.Price + a.Fee)})
		case models.BehaviorRemove:
			flows = append(flows, models.CashFlow{Date: d, Amount: a.Quantity*a.Price - a.Fee})
		case models.BehaviorNeutral:
			if a.Type == models.TypeDividend {
				flows = append(flows, models.CashFlow{Date: d, Amount: a.Quantity * a.Price})
			}
		}
	}
	return flows
}

// PortfolioXIRR computes the money-weighted return for the queried slice of
// the ledger, closing the position at its current market value. Returns
// ok=false when the solver does not converge or there is insufficient data.
func (s *Service) PortfolioXIRR(ctx context.Context, q interfaces.ActivityQuery, now time.Time) (float64, bool, error) {
	table, err := s.loadBehaviorTable(ctx)
	if err != nil {
		return 0, false, err
	}

	activities, _, _, err := s.loadActivities(ctx, q, time.Time{}, now)
	if err != nil {
		return 0, false, err
	}
	if len(activities) == 0 {
		return 0, false, nil
	}

	flows := s.cashFlowsFromActivities(activities, table)

	// Terminal flow: the open position valued at current prices.
	terminal := 0.0
	cursor := ledger.NewCursor(activities, table, s.logger)
	cursor.AdvanceTo(now)
	for symbol, state := range cursor.Holdings() {
		if state.Quantity <= 0 {
			continue
		}
		quote, err := s.market.GetPrice(ctx, symbol, false)
		if err != nil || quote == nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("No market price for XIRR terminal value — contributing 0")
			continue
		}
		terminal += state.Quantity * quote.Price
	}
	if terminal > 0 {
		flows = append(flows, models.CashFlow{Date: now, Amount: terminal})
	}

	rate, ok := SolveXIRR(flows)
	return rate, ok, nil
}
