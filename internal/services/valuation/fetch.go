package valuation

import (
	"context"
	"sync"
	"time"

	"github.com/openfolio/folio/internal/models"
)

// historyMaxAge bounds how old a cached price history may be before the
// market data service is consulted again.
const historyMaxAge = 24 * time.Hour

// PrefetchHistories loads historical price maps for many symbols: cached
// records first, then an unordered parallel fetch of the misses in batches
// (no ordering guarantee among symbols). A fixed pause separates batches to
// respect upstream rate limits, and one symbol's failure never cancels or
// blocks its siblings — the symbol is simply absent from the result.
func (s *Service) PrefetchHistories(ctx context.Context, symbols []string) map[string]models.PriceHistory {
	histories := make(map[string]models.PriceHistory, len(symbols))

	// Serve what the cache can.
	var misses []string
	for _, symbol := range symbols {
		record, err := s.storage.PriceStore().GetHistory(ctx, symbol)
		if err == nil && record != nil && len(record.Prices) > 0 && time.Since(record.UpdatedAt) < historyMaxAge {
			histories[symbol] = record.Prices
			continue
		}
		misses = append(misses, symbol)
	}
	if len(misses) == 0 {
		return histories
	}

	var mu sync.Mutex
	failed := 0

	for start := 0; start < len(misses); start += s.batchSize {
		end := start + s.batchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		var wg sync.WaitGroup
		for _, symbol := range batch {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()

				prices, err := s.market.GetHistoricalPrices(ctx, sym)
				if err != nil {
					s.logger.Warn().Str("symbol", sym).Err(err).Msg("Failed to fetch price history — symbol skipped")
					mu.Lock()
					failed++
					mu.Unlock()
					return
				}

				mu.Lock()
				histories[sym] = prices
				mu.Unlock()

				// Best-effort cache write; a failure only costs a refetch.
				record := &models.PriceHistoryRecord{Symbol: sym, Prices: prices, UpdatedAt: time.Now()}
				if err := s.storage.PriceStore().SaveHistory(ctx, record); err != nil {
					s.logger.Warn().Str("symbol", sym).Err(err).Msg("Failed to cache price history")
				}
			}(symbol)
		}
		wg.Wait()

		if end < len(misses) {
			time.Sleep(s.batchPause)
		}
	}

	s.logger.Debug().
		Int("symbols", len(symbols)).
		Int("fetched", len(misses)-failed).
		Int("failed", failed).
		Msg("Price history prefetch complete")

	return histories
}
