package ledger

import (
	"context"
	"fmt"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

// Service reconstructs holdings from the activity ledger.
type Service struct {
	storage interfaces.StorageManager
	market  interfaces.MarketDataClient
	logger  *common.Logger
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, market interfaces.MarketDataClient, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		market:  market,
		logger:  logger,
	}
}

// LoadBehaviorTable loads the user's activity type overrides and merges them
// over the built-in defaults. Loaded once per computation; the returned table
// is immutable for the replay's duration.
func (s *Service) LoadBehaviorTable(ctx context.Context) (BehaviorTable, error) {
	overrides, err := s.storage.ActivityTypeStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity type behaviors: %w", err)
	}
	return NewBehaviorTable(overrides), nil
}

// GetHoldings replays the full ledger for one investment, optionally scoped
// to a single account, and returns the terminal holding state.
func (s *Service) GetHoldings(ctx context.Context, symbol, accountID string) (models.HoldingState, error) {
	table, err := s.LoadBehaviorTable(ctx)
	if err != nil {
		return models.HoldingState{}, err
	}

	activities, err := s.storage.ActivityStore().List(ctx, interfaces.ActivityQuery{
		Symbol:    symbol,
		AccountID: accountID,
	})
	if err != nil {
		return models.HoldingState{}, fmt.Errorf("failed to list activities for %s: %w", symbol, err)
	}

	return Replay(activities, table, s.logger), nil
}
