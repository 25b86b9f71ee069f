// Package models defines data structures for Folio
package models

import (
	"math"
	"strings"
	"time"
)

// Behavior classifies how an activity type affects a holding.
type Behavior string

const (
	BehaviorAdd     Behavior = "ADD"
	BehaviorRemove  Behavior = "REMOVE"
	BehaviorSplit   Behavior = "SPLIT"
	BehaviorNeutral Behavior = "NEUTRAL"
)

// Well-known activity type names.
const (
	TypeBuy        = "BUY"
	TypeSell       = "SELL"
	TypeDividend   = "DIVIDEND"
	TypeStockSplit = "STOCK_SPLIT"
)

// UnassignedAccount is the pseudo-account grouping activities with no
// explicit account link.
const UnassignedAccount = "unassigned"

// Activity is a single immutable ledger entry: a trade, dividend, or
// corporate action. Dates are stored as "YYYY-MM-DD" strings (optionally with
// a time suffix) so malformed upstream dates surface at replay time as a
// skipped row rather than a failed import.
type Activity struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Type      string    `json:"type"`
	Quantity  float64   `json:"quantity"` // for SPLIT activities this holds the ratio, not a share count
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	Currency  string    `json:"currency"`
	Symbol    string    `json:"symbol"`
	AccountID string    `json:"account_id,omitempty"` // empty = unassigned bucket
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountKey returns the partition key for this activity's account,
// mapping an empty account to the unassigned bucket.
func (a *Activity) AccountKey() string {
	if strings.TrimSpace(a.AccountID) == "" {
		return UnassignedAccount
	}
	return a.AccountID
}

// ParsedDate parses the activity date. Returns the zero time when the
// date is malformed.
func (a *Activity) ParsedDate() time.Time {
	return ParseLedgerDate(a.Date)
}

// IsWellFormed reports whether the activity can be replayed: parseable date
// and finite quantity/price/fee.
func (a *Activity) IsWellFormed() bool {
	if a.ParsedDate().IsZero() {
		return false
	}
	for _, v := range []float64{a.Quantity, a.Price, a.Fee} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ActivityType maps an activity type name to its holding behavior.
// User-editable; the engine merges a total default table underneath.
type ActivityType struct {
	Name     string   `json:"name"`
	Behavior Behavior `json:"behavior"`
}

// HoldingState is the running replay state for one investment, optionally
// scoped to one account. Derived, never persisted.
type HoldingState struct {
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"`
	Fees      float64 `json:"fees"`      // reporting-only total, not part of cost basis
	Dividends float64 `json:"dividends"` // accumulated NEUTRAL dividend amounts
}

// AvgCost returns the average per-unit cost, or 0 for an empty position.
func (h *HoldingState) AvgCost() float64 {
	if h.Quantity <= 0 {
		return 0
	}
	return h.CostBasis / h.Quantity
}

// ReplayStep captures holding state immediately after one activity was applied.
type ReplayStep struct {
	Date     string       `json:"date"`
	Activity *Activity    `json:"-"`
	State    HoldingState `json:"state"`
}

// CashFlow is a signed, dated cash movement. Negative for outflows (buys),
// positive for inflows (sells, dividends, terminal market value).
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// SplitEvent is a corporate stock split sourced from the market data feed.
type SplitEvent struct {
	Date        string  `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
}

// Ratio returns the multiplicative split ratio, or 0 when the event is
// malformed (non-positive terms).
func (e *SplitEvent) Ratio() float64 {
	if e.Numerator <= 0 || e.Denominator <= 0 {
		return 0
	}
	return e.Numerator / e.Denominator
}

// ParseLedgerDate parses a ledger date string which may be "2006-01-02" or
// "2006-01-02T15:04:05". Returns the zero time on failure.
func ParseLedgerDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizeDateStr strips a time component (e.g. "T00:00:00") from a date
// string, returning just the "YYYY-MM-DD" portion for reliable string comparison.
func NormalizeDateStr(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, 'T'); idx == 10 {
		return s[:10]
	}
	return s
}
