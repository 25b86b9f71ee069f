package ledger

import (
	"sort"
	"time"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/models"
)

// SortActivities stable-sorts activities ascending by date. Ties keep
// insertion order, which is the replay ordering contract.
func SortActivities(activities []*models.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return models.NormalizeDateStr(activities[i].Date) < models.NormalizeDateStr(activities[j].Date)
	})
}

// applyActivity applies one activity to the holding state and returns the
// signed cash movement it represents. Returns applied=false when the
// activity was skipped (malformed, or an ignorable split ratio).
func applyActivity(state *models.HoldingState, a *models.Activity, behavior models.Behavior, logger *common.Logger) (netFlow float64, applied bool) {
	if !a.IsWellFormed() {
		logger.Warn().Str("id", a.ID).Str("symbol", a.Symbol).Str("date", a.Date).Msg("Skipping malformed activity")
		return 0, false
	}

	switch behavior {
	case models.BehaviorAdd:
		state.Quantity += a.Quantity
		state.CostBasis += a.Quantity * a.Price
		state.Fees += a.Fee
		netFlow = -(a.Quantity*a.Price + a.Fee)

	case models.BehaviorRemove:
		// Average-cost reduction using the pre-removal quantity. An empty
		// position removes at zero cost so the basis never goes negative
		// from an unmatched sell.
		avgCost := 0.0
		if state.Quantity > 0 {
			avgCost = state.CostBasis / state.Quantity
		}
		state.CostBasis -= a.Quantity * avgCost
		state.Quantity -= a.Quantity
		state.Fees += a.Fee
		netFlow = a.Quantity*a.Price - a.Fee

	case models.BehaviorSplit:
		// Quantity field holds the multiplicative ratio for splits.
		ratio := a.Quantity
		if ratio <= 0 {
			logger.Warn().Str("id", a.ID).Str("symbol", a.Symbol).Float64("ratio", ratio).Msg("Ignoring split with non-positive ratio")
			return 0, false
		}
		state.Quantity *= ratio
		// Cost basis unchanged: a split is non-dilutive to invested capital.

	case models.BehaviorNeutral:
		if a.Type == models.TypeDividend {
			state.Dividends += a.Quantity * a.Price
		}
	}

	return netFlow, true
}

// Replay folds a chronologically ordered activity sequence into the terminal
// holding state. Unmapped activity types resolve to NEUTRAL; malformed
// activities are skipped with a warning, never a failure.
func Replay(activities []*models.Activity, table BehaviorTable, logger *common.Logger) models.HoldingState {
	var state models.HoldingState
	for _, a := range activities {
		applyActivity(&state, a, table.Resolve(a.Type), logger)
	}
	return state
}

// ReplayTrace folds activities like Replay but also records the holding
// state after each applied activity, for average-price history and the
// valuation series builder.
func ReplayTrace(activities []*models.Activity, table BehaviorTable, logger *common.Logger) (models.HoldingState, []models.ReplayStep) {
	var state models.HoldingState
	steps := make([]models.ReplayStep, 0, len(activities))

	for _, a := range activities {
		if _, applied := applyActivity(&state, a, table.Resolve(a.Type), logger); !applied {
			continue
		}
		steps = append(steps, models.ReplayStep{
			Date:     models.NormalizeDateStr(a.Date),
			Activity: a,
			State:    state,
		})
	}

	return state, steps
}

// ReplayAsOf replays only activities dated on or before the cutoff.
func ReplayAsOf(activities []*models.Activity, table BehaviorTable, cutoff time.Time, logger *common.Logger) models.HoldingState {
	cutoffStr := cutoff.Format("2006-01-02")

	var state models.HoldingState
	for _, a := range activities {
		d := models.NormalizeDateStr(a.Date)
		if d == "" || d > cutoffStr {
			continue
		}
		applyActivity(&state, a, table.Resolve(a.Type), logger)
	}
	return state
}

// Cursor is an incremental replay over a multi-symbol activity list. It
// advances forward through dates, applying only activities newer than the
// previous cutoff, and must produce results identical to a from-scratch
// replay at every cutoff.
type Cursor struct {
	table    BehaviorTable
	sorted   []*models.Activity
	idx      int
	holdings map[string]*models.HoldingState // by symbol
	logger   *common.Logger
}

// NewCursor builds a cursor over the given activities. The input is copied
// and stable-sorted by date; rows with unparseable dates are dropped here
// with a warning so they cannot stall the forward walk.
func NewCursor(activities []*models.Activity, table BehaviorTable, logger *common.Logger) *Cursor {
	sorted := make([]*models.Activity, 0, len(activities))
	for _, a := range activities {
		if a.ParsedDate().IsZero() {
			logger.Warn().Str("id", a.ID).Str("symbol", a.Symbol).Str("date", a.Date).Msg("Skipping activity with unparseable date")
			continue
		}
		sorted = append(sorted, a)
	}
	SortActivities(sorted)

	return &Cursor{
		table:    table,
		sorted:   sorted,
		holdings: make(map[string]*models.HoldingState),
		logger:   logger,
	}
}

// AdvanceTo applies all unprocessed activities dated on or before cutoff and
// returns their combined signed cash movement (negative for buys, positive
// for sells). Calling with an earlier cutoff than a previous call is a no-op.
func (c *Cursor) AdvanceTo(cutoff time.Time) (netFlow float64) {
	cutoffStr := cutoff.Format("2006-01-02")

	for c.idx < len(c.sorted) {
		a := c.sorted[c.idx]
		if models.NormalizeDateStr(a.Date) > cutoffStr {
			break
		}

		state := c.holdings[a.Symbol]
		if state == nil {
			state = &models.HoldingState{}
			c.holdings[a.Symbol] = state
		}

		flow, _ := applyActivity(state, a, c.table.Resolve(a.Type), c.logger)
		netFlow += flow
		c.idx++
	}

	return netFlow
}

// Holdings returns the current per-symbol holding states. The map is live;
// callers must not mutate it.
func (c *Cursor) Holdings() map[string]*models.HoldingState {
	return c.holdings
}
