package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/openfolio/folio/internal/models"
)

func TestPrefetchHistories_FreshCacheSkipsProvider(t *testing.T) {
	storage := newMemStorage()
	storage.histRecs["VAS.AX"] = &models.PriceHistoryRecord{
		Symbol:    "VAS.AX",
		Prices:    models.PriceHistory{"2024-01-01": 100},
		UpdatedAt: time.Now(),
	}
	market := &fakeMarket{histories: map[string]models.PriceHistory{
		"VAS.AX": {"2024-01-01": 999},
	}}
	svc := newTestService(storage, market)

	histories := svc.PrefetchHistories(context.Background(), []string{"VAS.AX"})

	if got := histories["VAS.AX"]["2024-01-01"]; got != 100 {
		t.Errorf("price = %v, want cached 100", got)
	}
	if market.historyFetches("VAS.AX") != 0 {
		t.Errorf("provider hit %d times for a fresh cache entry, want 0", market.historyFetches("VAS.AX"))
	}
}

func TestPrefetchHistories_StaleCacheRefetched(t *testing.T) {
	storage := newMemStorage()
	storage.histRecs["VAS.AX"] = &models.PriceHistoryRecord{
		Symbol:    "VAS.AX",
		Prices:    models.PriceHistory{"2024-01-01": 100},
		UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	market := &fakeMarket{histories: map[string]models.PriceHistory{
		"VAS.AX": {"2024-01-01": 101},
	}}
	svc := newTestService(storage, market)

	histories := svc.PrefetchHistories(context.Background(), []string{"VAS.AX"})

	if got := histories["VAS.AX"]["2024-01-01"]; got != 101 {
		t.Errorf("price = %v, want refetched 101", got)
	}
	if market.historyFetches("VAS.AX") != 1 {
		t.Errorf("provider fetches = %d, want 1", market.historyFetches("VAS.AX"))
	}
}

func TestPrefetchHistories_FetchedHistoriesCached(t *testing.T) {
	storage := newMemStorage()
	market := &fakeMarket{histories: map[string]models.PriceHistory{
		"VAS.AX": {"2024-01-01": 100},
	}}
	svc := newTestService(storage, market)

	svc.PrefetchHistories(context.Background(), []string{"VAS.AX"})

	record := storage.histRecs["VAS.AX"]
	if record == nil || record.Prices["2024-01-01"] != 100 {
		t.Errorf("fetched history not written back to cache: %+v", record)
	}
}

func TestPrefetchHistories_FailedSymbolIsolated(t *testing.T) {
	storage := newMemStorage()
	market := &fakeMarket{histories: map[string]models.PriceHistory{
		"GOOD1.AX": {"2024-01-01": 10},
		"GOOD2.AX": {"2024-01-01": 20},
	}}
	svc := newTestService(storage, market)

	// Seven symbols forces two batches at the default size of five; the
	// unknown ones fail without disturbing their siblings.
	symbols := []string{"GOOD1.AX", "MISSING1.AX", "MISSING2.AX", "MISSING3.AX", "MISSING4.AX", "MISSING5.AX", "GOOD2.AX"}
	histories := svc.PrefetchHistories(context.Background(), symbols)

	if len(histories) != 2 {
		t.Fatalf("histories = %d, want 2", len(histories))
	}
	if histories["GOOD1.AX"] == nil || histories["GOOD2.AX"] == nil {
		t.Errorf("good symbols missing from result: %v", histories)
	}
	if _, present := histories["MISSING1.AX"]; present {
		t.Error("failed symbol present in result, want absent")
	}
}

func TestPrefetchHistories_NoSymbols(t *testing.T) {
	svc := newTestService(newMemStorage(), &fakeMarket{})

	histories := svc.PrefetchHistories(context.Background(), nil)
	if len(histories) != 0 {
		t.Errorf("histories = %d, want 0", len(histories))
	}
}
