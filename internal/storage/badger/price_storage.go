package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

type priceStorage struct {
	store  *Store
	logger *common.Logger
}

// NewPriceStorage creates a new PriceStore backed by BadgerHold.
func NewPriceStorage(store *Store, logger *common.Logger) interfaces.PriceStore {
	return &priceStorage{store: store, logger: logger}
}

func (s *priceStorage) GetHistory(_ context.Context, symbol string) (*models.PriceHistoryRecord, error) {
	var record models.PriceHistoryRecord
	err := s.store.db.Get(symbol, &record)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("no price history for '%s'", symbol)
		}
		return nil, fmt.Errorf("failed to get price history for '%s': %w", symbol, err)
	}
	return &record, nil
}

func (s *priceStorage) SaveHistory(_ context.Context, record *models.PriceHistoryRecord) error {
	if record.Symbol == "" {
		return fmt.Errorf("price history symbol is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}

	if err := s.store.db.Upsert(record.Symbol, record); err != nil {
		return fmt.Errorf("failed to save price history for '%s': %w", record.Symbol, err)
	}
	s.logger.Debug().Str("symbol", record.Symbol).Int("points", len(record.Prices)).Msg("Price history cached")
	return nil
}
