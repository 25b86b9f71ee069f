// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/openfolio/folio/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	ActivityStore() ActivityStore
	ActivityTypeStore() ActivityTypeStore
	PriceStore() PriceStore

	// Lifecycle
	Close() error
}

// ActivityQuery filters activity listings. Zero values mean "no filter".
// Results are always ordered by date ascending, ties broken by insertion
// order (stable).
type ActivityQuery struct {
	Symbol    string
	AccountID string // models.UnassignedAccount selects the unassigned bucket
	Type      string
	From      string // inclusive, "YYYY-MM-DD"
	To        string // inclusive, "YYYY-MM-DD"
}

// ActivityStore is the persistent, append-only activity ledger.
type ActivityStore interface {
	List(ctx context.Context, q ActivityQuery) ([]*models.Activity, error)
	Get(ctx context.Context, id string) (*models.Activity, error)
	Save(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id string) error

	// Symbols returns the distinct investment symbols present in the ledger.
	Symbols(ctx context.Context) ([]string, error)
}

// ActivityTypeStore holds user-editable activity type behavior overrides.
type ActivityTypeStore interface {
	List(ctx context.Context) ([]*models.ActivityType, error)
	Save(ctx context.Context, t *models.ActivityType) error
	Delete(ctx context.Context, name string) error
}

// PriceStore caches historical price series per symbol.
type PriceStore interface {
	GetHistory(ctx context.Context, symbol string) (*models.PriceHistoryRecord, error)
	SaveHistory(ctx context.Context, record *models.PriceHistoryRecord) error
}
