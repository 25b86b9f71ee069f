package models

import (
	"time"
)

// ValuationPoint is one day in a portfolio valuation series.
type ValuationPoint struct {
	Date        time.Time `json:"date"`
	MarketValue float64   `json:"market_value"`
	NetFlow     float64   `json:"net_flow"` // signed cash movement for the day
	Invested    float64   `json:"invested"` // running sum of net flow, negated (capital deployed)
}

// InvestmentStats is the per-investment summary exposed to callers.
type InvestmentStats struct {
	Symbol          string             `json:"symbol"`
	AccountID       string             `json:"account_id,omitempty"`
	Quantity        float64            `json:"quantity"`
	AvgPrice        float64            `json:"avg_price"`
	MarketPrice     float64            `json:"market_price"`
	TotalInvestment float64            `json:"total_investment"`
	CurrentValue    float64            `json:"current_value"`
	Return          float64            `json:"return"`
	ReturnPct       float64            `json:"return_pct"`
	TotalFees       float64            `json:"total_fees"`
	TotalDividends  float64            `json:"total_dividends"`
	AvgPriceHistory map[string]float64 `json:"avg_price_history,omitempty"` // date -> average cost
}

// BenchmarkComparison pairs the portfolio's daily series with a simulated
// "what if every contribution bought the benchmark instead" series.
type BenchmarkComparison struct {
	Symbol    string           `json:"symbol"` // benchmark symbol
	Currency  string           `json:"currency"`
	Portfolio []ValuationPoint `json:"portfolio"`
	Benchmark []ValuationPoint `json:"benchmark"`
	Debug     []string         `json:"debug,omitempty"` // degradations applied (e.g. missing FX rates)
}
