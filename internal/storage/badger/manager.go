package badger

import (
	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
)

// Manager bundles the BadgerHold-backed stores behind the StorageManager
// contract.
type Manager struct {
	store         *Store
	activities    interfaces.ActivityStore
	activityTypes interfaces.ActivityTypeStore
	prices        interfaces.PriceStore
}

// NewManager opens the store at path and wires up all storage areas.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:         store,
		activities:    NewActivityStorage(store, logger),
		activityTypes: NewActivityTypeStorage(store, logger),
		prices:        NewPriceStorage(store, logger),
	}, nil
}

func (m *Manager) ActivityStore() interfaces.ActivityStore {
	return m.activities
}

func (m *Manager) ActivityTypeStore() interfaces.ActivityTypeStore {
	return m.activityTypes
}

func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.prices
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.store.Close()
}
