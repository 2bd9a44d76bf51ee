// Package model defines the core domain types shared across the simulator.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the known order sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Instrument is one simulated tradable stock. Created once per session and
// only ever updated in place by the price engine.
type Instrument struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Sector        string          `json:"sector"`
	Volatility    float64         `json:"volatility"` // relative step scale, >= 0
	Description   string          `json:"description"`
}

// Holding is a current position in one instrument. A holding with zero
// quantity never exists; it is removed instead.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"` // cost basis per unit
}

// CostBasis is the amount still at risk in this holding.
func (h Holding) CostBasis() decimal.Decimal {
	return h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity))
}

// Transaction is an immutable record of an executed order.
// Once created, these are never modified or deleted.
type Transaction struct {
	ID        string          `json:"id"`
	Side      Side            `json:"side"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // instrument price at order time
	Total     decimal.Decimal `json:"total"` // price * quantity
	Timestamp time.Time       `json:"timestamp"`
}

// Position is a holding marked to market against the latest price.
type Position struct {
	Holding
	Price         decimal.Decimal `json:"price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"` // marketValue - costBasis
}

// Portfolio is the derived view of cash plus marked holdings. TotalValue and
// TotalGainLoss are projections, recomputed on every read.
type Portfolio struct {
	Cash           decimal.Decimal `json:"cash"`
	Positions      []Position      `json:"positions"`
	HoldingsValue  decimal.Decimal `json:"holdings_value"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalGainLoss  decimal.Decimal `json:"total_gain_loss"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
}

// Holdings returns the unmarked holdings behind the portfolio positions.
func (p Portfolio) Holdings() []Holding {
	out := make([]Holding, len(p.Positions))
	for i, pos := range p.Positions {
		out[i] = pos.Holding
	}
	return out
}

// Achievement is the runtime state of one catalog entry.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
	Progress    *int64     `json:"progress,omitempty"`
	Target      *int64     `json:"target,omitempty"`
}

// Clone returns a copy that shares no pointers with a.
func (a Achievement) Clone() Achievement {
	if a.UnlockedAt != nil {
		t := *a.UnlockedAt
		a.UnlockedAt = &t
	}
	if a.Progress != nil {
		p := *a.Progress
		a.Progress = &p
	}
	if a.Target != nil {
		t := *a.Target
		a.Target = &t
	}
	return a
}

// CloneAchievements deep-copies as.
func CloneAchievements(as []Achievement) []Achievement {
	if as == nil {
		return nil
	}
	out := make([]Achievement, len(as))
	for i, a := range as {
		out[i] = a.Clone()
	}
	return out
}

// Progression is experience and level bookkeeping.
type Progression struct {
	Experience      int64 `json:"experience"`
	Level           int64 `json:"level"`
	ProgressInLevel int64 `json:"progress_in_level"` // experience toward the next level
}
