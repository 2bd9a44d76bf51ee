// Package achievement evaluates a fixed catalog of rules against the trade
// history and portfolio of a session and reports one-time unlocks.
//
// Rules are a closed set of tagged variants dispatched by Rule.evaluate.
// Every evaluation replays the whole transaction log from scratch, so the
// result never depends on how often or in which order Evaluate was called.
package achievement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
)

// Kind tags a rule variant.
type Kind string

const (
	// KindTradeCount unlocks after Target trades, optionally of one Side.
	KindTradeCount Kind = "trade_count"
	// KindPortfolioValue unlocks when total portfolio value reaches Threshold.
	KindPortfolioValue Kind = "portfolio_value"
	// KindDiversification unlocks when Target distinct symbols are held at once.
	KindDiversification Kind = "diversification"
	// KindSectorCoverage unlocks when holdings span Target distinct sectors.
	KindSectorCoverage Kind = "sector_coverage"
	// KindHoldingDuration unlocks when a position has stayed open for Duration.
	KindHoldingDuration Kind = "holding_duration"
	// KindProfitableSale unlocks after Target sells above the average cost.
	KindProfitableSale Kind = "profitable_sale"
)

// Rule is one tagged rule variant. Only the fields relevant to Kind are read.
type Rule struct {
	Kind      Kind            `json:"kind"`
	Side      model.Side      `json:"side,omitempty"`
	Target    int64           `json:"target,omitempty"`
	Threshold decimal.Decimal `json:"threshold"`
	Duration  time.Duration   `json:"duration,omitempty"`
}

// Snapshot is the input of an evaluation.
type Snapshot struct {
	Transactions []model.Transaction // newest first
	Portfolio    model.Portfolio
	Sectors      map[string]string // symbol -> sector
	At           time.Time
}

// outcome is what a rule reports: whether it is met and, for rules that
// track partial completion, the progress toward target.
type outcome struct {
	met      bool
	tracked  bool
	progress int64
	target   int64
}

func counted(n, target int64) outcome {
	return outcome{met: n >= target, tracked: true, progress: n, target: target}
}

func (r Rule) evaluate(s Snapshot) outcome {
	switch r.Kind {
	case KindTradeCount:
		return counted(countTrades(s.Transactions, r.Side), r.Target)
	case KindPortfolioValue:
		return outcome{met: s.Portfolio.TotalValue.GreaterThanOrEqual(r.Threshold)}
	case KindDiversification:
		return counted(int64(len(heldSymbols(s.Portfolio))), r.Target)
	case KindSectorCoverage:
		return counted(countSectors(s.Portfolio, s.Sectors), r.Target)
	case KindHoldingDuration:
		held := longestHeld(s.Transactions, s.Portfolio, s.At)
		return outcome{
			met:      held >= r.Duration,
			tracked:  true,
			progress: int64(held / time.Second),
			target:   int64(r.Duration / time.Second),
		}
	case KindProfitableSale:
		return counted(countProfitableSales(s.Transactions), r.Target)
	}
	// NewEngine rejects unknown kinds.
	panic("achievement: unknown rule kind " + string(r.Kind))
}

func countTrades(txs []model.Transaction, side model.Side) int64 {
	var n int64
	for _, tx := range txs {
		if side == "" || tx.Side == side {
			n++
		}
	}
	return n
}

func heldSymbols(p model.Portfolio) map[string]bool {
	held := make(map[string]bool, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.Quantity > 0 {
			held[pos.Symbol] = true
		}
	}
	return held
}

func countSectors(p model.Portfolio, sectors map[string]string) int64 {
	seen := make(map[string]bool)
	for sym := range heldSymbols(p) {
		if sec, ok := sectors[sym]; ok && sec != "" {
			seen[sec] = true
		}
	}
	return int64(len(seen))
}

// chronological returns the log oldest first.
func chronological(txs []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	return out
}

// longestHeld replays the log and returns how long the oldest still-open
// position has been continuously held. A position reopened after being sold
// down to zero starts a new clock.
func longestHeld(txs []model.Transaction, p model.Portfolio, at time.Time) time.Duration {
	qty := make(map[string]int64)
	opened := make(map[string]time.Time)
	for _, tx := range chronological(txs) {
		switch tx.Side {
		case model.SideBuy:
			if qty[tx.Symbol] == 0 {
				opened[tx.Symbol] = tx.Timestamp
			}
			qty[tx.Symbol] += tx.Quantity
		case model.SideSell:
			qty[tx.Symbol] -= tx.Quantity
			if qty[tx.Symbol] <= 0 {
				delete(qty, tx.Symbol)
				delete(opened, tx.Symbol)
			}
		}
	}

	var longest time.Duration
	for sym := range heldSymbols(p) {
		start, ok := opened[sym]
		if !ok {
			continue
		}
		if held := at.Sub(start); held > longest {
			longest = held
		}
	}
	return longest
}

// countProfitableSales replays weighted-average cost per symbol and counts
// sells executed above the average at the time of sale.
func countProfitableSales(txs []model.Transaction) int64 {
	type position struct {
		qty int64
		avg decimal.Decimal
	}
	book := make(map[string]position)

	var n int64
	for _, tx := range chronological(txs) {
		pos := book[tx.Symbol]
		switch tx.Side {
		case model.SideBuy:
			oldQty := decimal.NewFromInt(pos.qty)
			pos.avg = pos.avg.Mul(oldQty).Add(tx.Total).Div(oldQty.Add(decimal.NewFromInt(tx.Quantity)))
			pos.qty += tx.Quantity
		case model.SideSell:
			if pos.qty > 0 && tx.Price.GreaterThan(pos.avg) {
				n++
			}
			pos.qty -= tx.Quantity
			if pos.qty <= 0 {
				pos = position{}
			}
		}
		book[tx.Symbol] = pos
	}
	return n
}
