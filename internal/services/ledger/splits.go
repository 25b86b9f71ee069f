package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

// splitDedupWindow treats an existing split activity within this distance of
// a detected split date as already applied.
const splitDedupWindow = 24 * time.Hour

// ReconcileAllSplits runs split reconciliation for every symbol in the
// ledger. A market data failure for one symbol is logged and skipped; it
// never aborts the remaining symbols. Returns the number of synthesized
// split activities.
func (s *Service) ReconcileAllSplits(ctx context.Context) (int, error) {
	symbols, err := s.storage.ActivityStore().Symbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list ledger symbols: %w", err)
	}

	total := 0
	for _, symbol := range symbols {
		created, err := s.ReconcileSplits(ctx, symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Split reconciliation failed for symbol — continuing")
			continue
		}
		total += created
	}

	s.logger.Info().Int("symbols", len(symbols)).Int("created", total).Msg("Split reconciliation complete")
	return total, nil
}

// ReconcileSplits compares the authoritative split events for one symbol
// against recorded activities and synthesizes one STOCK_SPLIT activity per
// account that held the position before each missing split. Re-running after
// a partial failure is safe: the de-dup check makes the whole process
// idempotent without a cross-account transaction.
func (s *Service) ReconcileSplits(ctx context.Context, symbol string) (int, error) {
	table, err := s.LoadBehaviorTable(ctx)
	if err != nil {
		return 0, err
	}

	activities, err := s.storage.ActivityStore().List(ctx, interfaces.ActivityQuery{Symbol: symbol})
	if err != nil {
		return 0, fmt.Errorf("failed to list activities for %s: %w", symbol, err)
	}
	if len(activities) == 0 {
		return 0, nil
	}

	first := firstActivityDate(activities)
	if first.IsZero() {
		s.logger.Warn().Str("symbol", symbol).Msg("No parseable activity dates — skipping split reconciliation")
		return 0, nil
	}

	events, err := s.market.GetSplits(ctx, symbol, first.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch splits for %s: %w", symbol, err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	// Existing split activities (by behavior, so custom split types count)
	// partitioned by account for the ±24h de-dup rule.
	existingSplits := make(map[string][]time.Time)
	for _, a := range activities {
		if table.Resolve(a.Type) != models.BehaviorSplit {
			continue
		}
		if d := a.ParsedDate(); !d.IsZero() {
			existingSplits[a.AccountKey()] = append(existingSplits[a.AccountKey()], d)
		}
	}

	created := 0
	for _, ev := range events {
		ratio := ev.Ratio()
		if ratio <= 0 {
			s.logger.Warn().Str("symbol", symbol).Str("date", ev.Date).Msg("Ignoring split event with non-positive ratio")
			continue
		}
		evDate := models.ParseLedgerDate(ev.Date)
		if evDate.IsZero() {
			s.logger.Warn().Str("symbol", symbol).Str("date", ev.Date).Msg("Ignoring split event with unparseable date")
			continue
		}

		// Partition activities strictly before the split date by account.
		partitions := make(map[string][]*models.Activity)
		for _, a := range activities {
			d := a.ParsedDate()
			if d.IsZero() || !d.Before(evDate) {
				continue
			}
			key := a.AccountKey()
			partitions[key] = append(partitions[key], a)
		}

		accounts := make([]string, 0, len(partitions))
		for key := range partitions {
			accounts = append(accounts, key)
		}
		sort.Strings(accounts)

		for _, account := range accounts {
			// An account that fully exited before the split is still
			// included: applying the ratio to zero quantity is a safe no-op
			// downstream.
			if !heldAtAnyPoint(partitions[account], table) {
				continue
			}
			if hasSplitNear(existingSplits[account], evDate) {
				continue
			}

			synth := &models.Activity{
				ID:        uuid.NewString(),
				Date:      evDate.Format("2006-01-02"),
				Type:      models.TypeStockSplit,
				Quantity:  ratio,
				Price:     0,
				Symbol:    symbol,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if account != models.UnassignedAccount {
				synth.AccountID = account
			}

			if err := s.storage.ActivityStore().Save(ctx, synth); err != nil {
				s.logger.Warn().Str("symbol", symbol).Str("account", account).Err(err).Msg("Failed to persist synthesized split — will retry on next run")
				continue
			}

			existingSplits[account] = append(existingSplits[account], evDate)
			created++
			s.logger.Info().
				Str("symbol", symbol).
				Str("account", account).
				Str("date", synth.Date).
				Float64("ratio", ratio).
				Msg("Synthesized missing stock split activity")
		}
	}

	return created, nil
}

// heldAtAnyPoint reports whether replaying the given activities ever produced
// a non-zero position.
func heldAtAnyPoint(activities []*models.Activity, table BehaviorTable) bool {
	_, steps := ReplayTrace(activities, table, common.NewSilentLogger())
	for _, step := range steps {
		if math.Abs(step.State.Quantity) > 1e-12 {
			return true
		}
	}
	return false
}

// hasSplitNear reports whether any recorded split date falls within the
// de-dup window of the candidate date.
func hasSplitNear(dates []time.Time, candidate time.Time) bool {
	for _, d := range dates {
		delta := candidate.Sub(d)
		if delta < 0 {
			delta = -delta
		}
		if delta <= splitDedupWindow {
			return true
		}
	}
	return false
}

// firstActivityDate returns the earliest parseable activity date.
func firstActivityDate(activities []*models.Activity) time.Time {
	var earliest time.Time
	for _, a := range activities {
		d := a.ParsedDate()
		if d.IsZero() {
			continue
		}
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}
	return earliest
}
