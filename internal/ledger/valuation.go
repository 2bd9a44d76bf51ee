package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
)

// DeriveValuation marks holdings to market against prices and returns the
// portfolio view. It is a pure projection: call it after any tick or trade
// instead of maintaining totals incrementally.
//
// A holding whose symbol has no price contributes nothing to the holdings
// value; this cannot happen for holdings created by Buy.
func DeriveValuation(cash decimal.Decimal, holdings []model.Holding, prices map[string]decimal.Decimal, initialCapital decimal.Decimal) model.Portfolio {
	positions := make([]model.Position, 0, len(holdings))
	holdingsValue := decimal.Zero

	for _, h := range holdings {
		price := prices[h.Symbol]
		value := price.Mul(decimal.NewFromInt(h.Quantity))
		holdingsValue = holdingsValue.Add(value)

		positions = append(positions, model.Position{
			Holding:       h,
			Price:         price,
			MarketValue:   value,
			UnrealizedPnL: value.Sub(h.CostBasis()),
		})
	}

	total := cash.Add(holdingsValue)
	return model.Portfolio{
		Cash:           cash,
		Positions:      positions,
		HoldingsValue:  holdingsValue,
		TotalValue:     total,
		TotalGainLoss:  total.Sub(initialCapital),
		InitialCapital: initialCapital,
	}
}

// PriceMap indexes instrument prices by symbol.
func PriceMap(instruments []model.Instrument) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(instruments))
	for _, inst := range instruments {
		prices[inst.Symbol] = inst.Price
	}
	return prices
}

// Valuation derives the ledger's portfolio against the given instruments.
func (l *Ledger) Valuation(instruments []model.Instrument) model.Portfolio {
	return DeriveValuation(l.cash, l.holdings, PriceMap(instruments), l.initialCapital)
}
