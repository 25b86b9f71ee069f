package models

import (
	"time"
)

// PriceQuote holds a current price snapshot for a symbol.
type PriceQuote struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Currency         string    `json:"currency"`
	Sector           string    `json:"sector,omitempty"`
	Country          string    `json:"country,omitempty"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  float64   `json:"fifty_two_week_low,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// PriceHistory maps "YYYY-MM-DD" keys to closing prices. Providers also
// return range keys ("1W", "1M", "1Y", "YTD") alongside the dated entries;
// date-based lookups ignore them.
type PriceHistory map[string]float64

// PriceOn resolves a price for a calendar day: exact match first, then a
// look-back of up to lookbackDays calendar days for the nearest prior
// available price. Returns false when no price is found in the window.
func (h PriceHistory) PriceOn(day time.Time, lookbackDays int) (float64, bool) {
	for back := 0; back <= lookbackDays; back++ {
		key := day.AddDate(0, 0, -back).Format("2006-01-02")
		if price, ok := h[key]; ok && price > 0 {
			return price, true
		}
	}
	return 0, false
}

// PriceHistoryRecord is the persisted cache entry for one symbol's history.
type PriceHistoryRecord struct {
	Symbol    string       `json:"symbol"`
	Prices    PriceHistory `json:"prices"`
	UpdatedAt time.Time    `json:"updated_at"`
}
