package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

// memStorage is an in-memory StorageManager for service tests.
type memStorage struct {
	activities *memActivityStore
	types      *memActivityTypeStore
	prices     *memPriceStore
}

func newMemStorage() *memStorage {
	return &memStorage{
		activities: &memActivityStore{},
		types:      &memActivityTypeStore{},
		prices:     &memPriceStore{records: make(map[string]*models.PriceHistoryRecord)},
	}
}

func (m *memStorage) ActivityStore() interfaces.ActivityStore         { return m.activities }
func (m *memStorage) ActivityTypeStore() interfaces.ActivityTypeStore { return m.types }
func (m *memStorage) PriceStore() interfaces.PriceStore               { return m.prices }
func (m *memStorage) Close() error                                    { return nil }

type memActivityStore struct {
	items   []*models.Activity
	saveErr error
}

func (s *memActivityStore) List(_ context.Context, q interfaces.ActivityQuery) ([]*models.Activity, error) {
	var out []*models.Activity
	for _, a := range s.items {
		if q.Symbol != "" && a.Symbol != q.Symbol {
			continue
		}
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
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.NormalizeDateStr(out[i].Date) < models.NormalizeDateStr(out[j].Date)
	})
	return out, nil
}

func (s *memActivityStore) Get(_ context.Context, id string) (*models.Activity, error) {
	for _, a := range s.items {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("activity '%s' not found", id)
}

func (s *memActivityStore) Save(_ context.Context, a *models.Activity) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for i, existing := range s.items {
		if existing.ID == a.ID {
			s.items[i] = a
			return nil
		}
	}
	s.items = append(s.items, a)
	return nil
}

func (s *memActivityStore) Delete(_ context.Context, id string) error {
	for i, a := range s.items {
		if a.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memActivityStore) Symbols(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, a := range s.items {
		seen[a.Symbol] = true
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

type memActivityTypeStore struct {
	items []*models.ActivityType
}

func (s *memActivityTypeStore) List(_ context.Context) ([]*models.ActivityType, error) {
	return s.items, nil
}

func (s *memActivityTypeStore) Save(_ context.Context, t *models.ActivityType) error {
	s.items = append(s.items, t)
	return nil
}

func (s *memActivityTypeStore) Delete(_ context.Context, name string) error {
	for i, t := range s.items {
		if t.Name == name {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type memPriceStore struct {
	records map[string]*models.PriceHistoryRecord
}

func (s *memPriceStore) GetHistory(_ context.Context, symbol string) (*models.PriceHistoryRecord, error) {
	r, ok := s.records[symbol]
	if !ok {
		return nil, fmt.Errorf("no price history for '%s'", symbol)
	}
	return r, nil
}

func (s *memPriceStore) SaveHistory(_ context.Context, record *models.PriceHistoryRecord) error {
	s.records[record.Symbol] = record
	return nil
}

// fakeMarket is a canned MarketDataClient.
type fakeMarket struct {
	quotes    map[string]*models.PriceQuote
	histories map[string]models.PriceHistory
	splits    map[string][]models.SplitEvent
	rates     map[string]float64
	splitsErr map[string]error
}

func (f *fakeMarket) GetPrice(_ context.Context, symbol string, _ bool) (*models.PriceQuote, error) {
	return f.quotes[symbol], nil
}

func (f *fakeMarket) GetHistoricalPrices(_ context.Context, symbol string) (models.PriceHistory, error) {
	h, ok := f.histories[symbol]
	if !ok {
		return nil, fmt.Errorf("no history for %s", symbol)
	}
	return h, nil
}

func (f *fakeMarket) GetSplits(_ context.Context, symbol string, _ string) ([]models.SplitEvent, error) {
	if err := f.splitsErr[symbol]; err != nil {
		return nil, err
	}
	return f.splits[symbol], nil
}

func (f *fakeMarket) GetExchangeRate(_ context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	rate, ok := f.rates[from+"/"+to]
	if !ok {
		return 0, fmt.Errorf("no exchange rate for %s/%s", from, to)
	}
	return rate, nil
}
