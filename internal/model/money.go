package model

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the single settlement currency of a session.
const Currency = money.USD

// FormatMoney renders an amount in major units, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
