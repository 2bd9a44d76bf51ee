// Package ledger owns the cash balance and holdings of a session and applies
// buy/sell orders with weighted-average cost accounting.
//
// All monetary values use shopspring/decimal, never float64.
// Averages are kept at full decimal precision so repeated small buys do not
// drift.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
)

// Result is the outcome of an order. Rejections are expected conditions and
// are reported here, never as errors.
type Result struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Reason      RejectReason       `json:"reason,omitempty"`
}

// RejectReason classifies a rejected order.
type RejectReason string

const (
	ReasonInsufficientFunds  RejectReason = "insufficient_funds"
	ReasonInsufficientShares RejectReason = "insufficient_shares"
	ReasonUnknownSymbol      RejectReason = "unknown_symbol"
	ReasonInvalidQuantity    RejectReason = "invalid_quantity"
)

// Reject builds a rejected result.
func Reject(reason RejectReason, message string) Result {
	return Result{Success: false, Message: message, Reason: reason}
}

// Ledger holds cash, holdings and the append-only transaction log.
// It is not safe for concurrent use; the owning session serializes access.
type Ledger struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	holdings       []model.Holding // first-acquired order
	transactions   []model.Transaction
	newID          func() string
}

// New creates a ledger funded with initialCapital.
func New(initialCapital decimal.Decimal) *Ledger {
	if initialCapital.IsNegative() {
		panic("ledger: negative initial capital")
	}
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		newID:          func() string { return uuid.New().String() },
	}
}

// InitialCapital returns the capital the session started with.
func (l *Ledger) InitialCapital() decimal.Decimal { return l.initialCapital }

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// Holdings returns a copy of the current holdings.
func (l *Ledger) Holdings() []model.Holding {
	out := make([]model.Holding, len(l.holdings))
	copy(out, l.holdings)
	return out
}

// Holding returns the holding for symbol, if any.
func (l *Ledger) Holding(symbol string) (model.Holding, bool) {
	if i := l.find(symbol); i >= 0 {
		return l.holdings[i], true
	}
	return model.Holding{}, false
}

// Transactions returns the log newest first.
func (l *Ledger) Transactions() []model.Transaction {
	n := len(l.transactions)
	out := make([]model.Transaction, n)
	for i, tx := range l.transactions {
		out[n-1-i] = tx
	}
	return out
}

// Buy purchases quantity shares of inst at its current price. No partial
// fills: the order is rejected before any mutation if cash cannot cover it.
func (l *Ledger) Buy(inst model.Instrument, quantity int64, at time.Time) Result {
	if quantity <= 0 {
		return Reject(ReasonInvalidQuantity, "Quantity must be a positive whole number.")
	}

	qty := decimal.NewFromInt(quantity)
	cost := inst.Price.Mul(qty)
	if cost.GreaterThan(l.cash) {
		return Reject(ReasonInsufficientFunds, fmt.Sprintf(
			"Insufficient funds! %d shares of %s cost %s but you have %s.",
			quantity, inst.Symbol, model.FormatMoney(cost), model.FormatMoney(l.cash)))
	}

	l.cash = l.cash.Sub(cost)
	if i := l.find(inst.Symbol); i >= 0 {
		h := &l.holdings[i]
		oldQty := decimal.NewFromInt(h.Quantity)
		h.AveragePrice = h.AveragePrice.Mul(oldQty).Add(cost).Div(oldQty.Add(qty))
		h.Quantity += quantity
	} else {
		l.holdings = append(l.holdings, model.Holding{
			Symbol:       inst.Symbol,
			Quantity:     quantity,
			AveragePrice: inst.Price,
		})
	}

	tx := l.record(model.SideBuy, inst, quantity, cost, at)
	l.mustBeConsistent()
	return Result{
		Success:     true,
		Message:     fmt.Sprintf("Successfully bought %d shares of %s!", quantity, inst.Symbol),
		Transaction: &tx,
	}
}

// Sell disposes of quantity shares of inst at its current price. The average
// price of any remaining shares is left unchanged.
func (l *Ledger) Sell(inst model.Instrument, quantity int64, at time.Time) Result {
	if quantity <= 0 {
		return Reject(ReasonInvalidQuantity, "Quantity must be a positive whole number.")
	}

	i := l.find(inst.Symbol)
	if i < 0 || l.holdings[i].Quantity < quantity {
		return Reject(ReasonInsufficientShares, "Insufficient shares to sell!")
	}

	revenue := inst.Price.Mul(decimal.NewFromInt(quantity))
	l.cash = l.cash.Add(revenue)
	if l.holdings[i].Quantity == quantity {
		l.holdings = append(l.holdings[:i], l.holdings[i+1:]...)
	} else {
		l.holdings[i].Quantity -= quantity
	}

	tx := l.record(model.SideSell, inst, quantity, revenue, at)
	l.mustBeConsistent()
	return Result{
		Success:     true,
		Message:     fmt.Sprintf("Successfully sold %d shares of %s!", quantity, inst.Symbol),
		Transaction: &tx,
	}
}

func (l *Ledger) record(side model.Side, inst model.Instrument, quantity int64, total decimal.Decimal, at time.Time) model.Transaction {
	tx := model.Transaction{
		ID:        l.newID(),
		Side:      side,
		Symbol:    inst.Symbol,
		Quantity:  quantity,
		Price:     inst.Price,
		Total:     total,
		Timestamp: at.UTC(),
	}
	l.transactions = append(l.transactions, tx)
	return tx
}

func (l *Ledger) find(symbol string) int {
	for i, h := range l.holdings {
		if h.Symbol == symbol {
			return i
		}
	}
	return -1
}

// mustBeConsistent panics on a broken invariant. These indicate a bug, not
// bad input.
func (l *Ledger) mustBeConsistent() {
	if l.cash.IsNegative() {
		panic(fmt.Sprintf("ledger: negative cash %s", l.cash))
	}
	for _, h := range l.holdings {
		if h.Quantity <= 0 {
			panic(fmt.Sprintf("ledger: holding %s has quantity %d", h.Symbol, h.Quantity))
		}
		if !h.AveragePrice.IsPositive() {
			panic(fmt.Sprintf("ledger: holding %s has average price %s", h.Symbol, h.AveragePrice))
		}
	}
}
