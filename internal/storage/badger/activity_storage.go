package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

type activityStorage struct {
	store  *Store
	logger *common.Logger
}

// NewActivityStorage creates a new ActivityStore backed by BadgerHold.
func NewActivityStorage(store *Store, logger *common.Logger) interfaces.ActivityStore {
	return &activityStorage{store: store, logger: logger}
}

func (s *activityStorage) List(_ context.Context, q interfaces.ActivityQuery) ([]*models.Activity, error) {
	var query *badgerhold.Query
	if q.Symbol != "" {
		query = badgerhold.Where("Symbol").Eq(q.Symbol)
	}

	var rows []models.Activity
	if err := s.store.db.Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	activities := make([]*models.Activity, 0, len(rows))
	for i := range rows {
		a := &rows[i]
		if q.AccountID != "" && a.AccountKey() != q.AccountID {
			continue
		}
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		d := models.NormalizeDateStr(a.Date)
		if q.From != "" && d < q.From {
			continue
		}
		if q.To != "" && d > q.To {
			continue
		}
		activities = append(activities, a)
	}

	// Date ascending, ties broken by insertion order (creation time, then ID
	// for determinism).
	sort.SliceStable(activities, func(i, j int) bool {
		di, dj := models.NormalizeDateStr(activities[i].Date), models.NormalizeDateStr(activities[j].Date)
		if di != dj {
			return di < dj
		}
		if !activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].CreatedAt.Before(activities[j].CreatedAt)
		}
		return activities[i].ID < activities[j].ID
	})

	return activities, nil
}

func (s *activityStorage) Get(_ context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	err := s.store.db.Get(id, &activity)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("activity '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get activity '%s': %w", id, err)
	}
	return &activity, nil
}

func (s *activityStorage) Save(_ context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	activity.UpdatedAt = time.Now()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	if err := s.store.db.Upsert(activity.ID, activity); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	s.logger.Debug().Str("id", activity.ID).Str("symbol", activity.Symbol).Str("type", activity.Type).Msg("Activity saved")
	return nil
}

func (s *activityStorage) Delete(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.Activity{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete activity '%s': %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Activity deleted")
	return nil
}

func (s *activityStorage) Symbols(_ context.Context) ([]string, error) {
	var rows []models.Activity
	if err := s.store.db.Find(&rows, nil); err != nil {
		return nil, fmt.Errorf("failed to scan activities for symbols: %w", err)
	}

	seen := make(map[string]bool)
	for i := range rows {
		if rows[i].Symbol != "" {
			seen[rows[i].Symbol] = true
		}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
