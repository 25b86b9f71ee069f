// Package valuation builds daily portfolio value series from the activity
// ledger and sparse market price history, and derives returns from them.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
	"github.com/openfolio/folio/internal/services/ledger"
)

// Service implements the valuation series builder and benchmark comparison.
type Service struct {
	storage         interfaces.StorageManager
	market          interfaces.MarketDataClient
	logger          *common.Logger
	lookbackDays    int
	batchSize       int
	batchPause      time.Duration
	displayCurrency string
}

// NewService creates a new valuation service
func NewService(storage interfaces.StorageManager, market interfaces.MarketDataClient, cfg *common.Config, logger *common.Logger) *Service {
	lookback := cfg.Valuation.LookbackDays
	if lookback <= 0 {
		lookback = 5
	}
	batch := cfg.Valuation.BatchSize
	if batch <= 0 {
		batch = 5
	}

	return &Service{
		storage:         storage,
		market:          market,
		logger:          logger,
		lookbackDays:    lookback,
		batchSize:       batch,
		batchPause:      cfg.Valuation.GetBatchPause(),
		displayCurrency: cfg.DisplayCurrency,
	}
}

// loadBehaviorTable loads the merged behavior table for one computation.
func (s *Service) loadBehaviorTable(ctx context.Context) (ledger.BehaviorTable, error) {
	overrides, err := s.storage.ActivityTypeStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity type behaviors: %w", err)
	}
	return ledger.NewBehaviorTable(overrides), nil
}

// loadActivities lists activities for the query and resolves the date range:
// a zero from falls back to the earliest activity date, a zero to falls back
// to yesterday.
func (s *Service) loadActivities(ctx context.Context, q interfaces.ActivityQuery, from, to time.Time) ([]*models.Activity, time.Time, time.Time, error) {
	activities, err := s.storage.ActivityStore().List(ctx, q)
	if err != nil {
		return nil, from, to, fmt.Errorf("failed to list activities: %w", err)
	}

	if from.IsZero() {
		for _, a := range activities {
			d := a.ParsedDate()
			if d.IsZero() {
				continue
			}
			if from.IsZero() || d.Before(from) {
				from = d
			}
		}
	}
	yesterday := time.Now().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if to.IsZero() || to.After(time.Now()) {
		to = yesterday
	}

	return activities, from, to, nil
}

// distinctSymbols returns the sorted set of symbols present in the activities.
func distinctSymbols(activities []*models.Activity) []string {
	seen := make(map[string]bool)
	for _, a := range activities {
		if a.Symbol != "" {
			seen[a.Symbol] = true
		}
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
