// Package ledger implements activity replay over the append-only ledger:
// behavior resolution, holdings reconstruction, and split reconciliation.
package ledger

import (
	"github.com/openfolio/folio/internal/models"
)

// defaultBehaviors is the guaranteed total base table. User overrides are
// merged on top; any type absent from the merged table resolves to NEUTRAL.
var defaultBehaviors = map[string]models.Behavior{
	models.TypeBuy:        models.BehaviorAdd,
	models.TypeSell:       models.BehaviorRemove,
	models.TypeDividend:   models.BehaviorNeutral,
	models.TypeStockSplit: models.BehaviorSplit,
}

// BehaviorTable resolves activity type names to behaviors. Loaded once per
// computation and held invariant for the duration of a replay.
type BehaviorTable map[string]models.Behavior

// NewBehaviorTable builds a table from the default behaviors with user
// overrides merged on top.
func NewBehaviorTable(overrides []*models.ActivityType) BehaviorTable {
	table := make(BehaviorTable, len(defaultBehaviors)+len(overrides))
	for name, b := range defaultBehaviors {
		table[name] = b
	}
	for _, t := range overrides {
		if t == nil || t.Name == "" {
			continue
		}
		switch t.Behavior {
		case models.BehaviorAdd, models.BehaviorRemove, models.BehaviorSplit, models.BehaviorNeutral:
			table[t.Name] = t.Behavior
		}
	}
	return table
}

// Resolve returns the behavior for an activity type, defaulting to NEUTRAL
// for unmapped types.
func (t BehaviorTable) Resolve(typeName string) models.Behavior {
	if b, ok := t[typeName]; ok {
		return b
	}
	return models.BehaviorNeutral
}
