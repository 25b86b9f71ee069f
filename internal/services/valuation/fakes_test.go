package valuation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

// memStorage is an in-memory StorageManager for valuation tests.
type memStorage struct {
	activities []*models.Activity
	types      []*models.ActivityType

	mu       sync.Mutex
	histRecs map[string]*models.PriceHistoryRecord
	saved    []string // symbols passed to SaveHistory, in order
}

func newMemStorage() *memStorage {
	return &memStorage{histRecs: make(map[string]*models.PriceHistoryRecord)}
}

func (m *memStorage) ActivityStore() interfaces.ActivityStore         { return (*memActivities)(m) }
func (m *memStorage) ActivityTypeStore() interfaces.ActivityTypeStore { return (*memTypes)(m) }
func (m *memStorage) PriceStore() interfaces.PriceStore               { return (*memPrices)(m) }
func (m *memStorage) Close() error                                    { return nil }

type memActivities memStorage

func (s *memActivities) List(_ context.Context, q interfaces.ActivityQuery) ([]*models.Activity, error) {
	var out []*models.Activity
	for _, a := range s.activities {
		if q.Symbol != "" && a.Symbol != q.Symbol {
			continue
		}
		if q.AccountID != "" && a.AccountKey() != q.AccountID {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.NormalizeDateStr(out[i].Date) < models.NormalizeDateStr(out[j].Date)
	})
	return out, nil
}

func (s *memActivities) Get(_ context.Context, id string) (*models.Activity, error) {
	return nil, fmt.Errorf("activity '%s' not found", id)
}

func (s *memActivities) Save(_ context.Context, a *models.Activity) error {
	s.activities = append(s.activities, a)
	return nil
}

func (s *memActivities) Delete(_ context.Context, _ string) error { return nil }

func (s *memActivities) Symbols(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, a := range s.activities {
		seen[a.Symbol] = true
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

type memTypes memStorage

func (s *memTypes) List(_ context.Context) ([]*models.ActivityType, error) { return s.types, nil }
func (s *memTypes) Save(_ context.Context, t *models.ActivityType) error {
	s.types = append(s.types, t)
	return nil
}
func (s *memTypes) Delete(_ context.Context, _ string) error { return nil }

type memPrices memStorage

func (s *memPrices) GetHistory(_ context.Context, symbol string) (*models.PriceHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.histRecs[symbol]
	if !ok {
		return nil, fmt.Errorf("no price history for '%s'", symbol)
	}
	return r, nil
}

func (s *memPrices) SaveHistory(_ context.Context, record *models.PriceHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histRecs[record.Symbol] = record
	s.saved = append(s.saved, record.Symbol)
	return nil
}

// fakeMarket is a canned MarketDataClient that counts history fetches.
type fakeMarket struct {
	quotes    map[string]*models.PriceQuote
	histories map[string]models.PriceHistory
	rates     map[string]float64

	mu         sync.Mutex
	histCalls  map[string]int
	quoteCalls int
}

func (f *fakeMarket) GetPrice(_ context.Context, symbol string, _ bool) (*models.PriceQuote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()
	return f.quotes[symbol], nil
}

func (f *fakeMarket) GetHistoricalPrices(_ context.Context, symbol string) (models.PriceHistory, error) {
	f.mu.Lock()
	if f.histCalls == nil {
		f.histCalls = make(map[string]int)
	}
	f.histCalls[symbol]++
	f.mu.Unlock()

	h, ok := f.histories[symbol]
	if !ok {
		return nil, fmt.Errorf("no history for %s", symbol)
	}
	return h, nil
}

func (f *fakeMarket) GetSplits(_ context.Context, _ string, _ string) ([]models.SplitEvent, error) {
	return nil, nil
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

func (f *fakeMarket) historyFetches(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.histCalls[symbol]
}

func newTestService(storage *memStorage, market *fakeMarket) *Service {
	cfg := common.NewDefaultConfig()
	cfg.Valuation.BatchPause = "1ms"
	return NewService(storage, market, cfg, common.NewSilentLogger())
}
