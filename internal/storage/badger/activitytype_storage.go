package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

type activityTypeStorage struct {
	store  *Store
	logger *common.Logger
}

// NewActivityTypeStorage creates a new ActivityTypeStore backed by BadgerHold.
func NewActivityTypeStorage(store *Store, logger *common.Logger) interfaces.ActivityTypeStore {
	return &activityTypeStorage{store: store, logger: logger}
}

func (s *activityTypeStorage) List(_ context.Context) ([]*models.ActivityType, error) {
	var rows []models.ActivityType
	if err := s.store.db.Find(&rows, nil); err != nil {
		return nil, fmt.Errorf("failed to list activity types: %w", err)
	}

	types := make([]*models.ActivityType, len(rows))
	for i := range rows {
		types[i] = &rows[i]
	}
	return types, nil
}

func (s *activityTypeStorage) Save(_ context.Context, t *models.ActivityType) error {
	if t.Name == "" {
		return fmt.Errorf("activity type name is required")
	}
	if err := s.store.db.Upsert(t.Name, t); err != nil {
		return fmt.Errorf("failed to save activity type '%s': %w", t.Name, err)
	}
	s.logger.Debug().Str("name", t.Name).Str("behavior", string(t.Behavior)).Msg("Activity type saved")
	return nil
}

func (s *activityTypeStorage) Delete(_ context.Context, name string) error {
	err := s.store.db.Delete(name, models.ActivityType{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete activity type '%s': %w", name, err)
	}
	return nil
}
