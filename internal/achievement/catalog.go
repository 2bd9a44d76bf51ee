package achievement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
)

// GrowthMilestone is the portfolio value, as a multiple of initial capital,
// that unlocks the growth achievement.
var GrowthMilestone = decimal.RequireFromString("1.1")

// DefaultCatalog returns the standard achievements for a session that
// started with initialCapital.
func DefaultCatalog(initialCapital decimal.Decimal) []Definition {
	return []Definition{
		{
			ID: "first-trade", Title: "First Steps", Icon: "🎯",
			Description: "Make your first trade.",
			Rule:        Rule{Kind: KindTradeCount, Target: 1},
		},
		{
			ID: "first-sale", Title: "Cashing Out", Icon: "💵",
			Description: "Sell shares for the first time.",
			Rule:        Rule{Kind: KindTradeCount, Side: model.SideSell, Target: 1},
		},
		{
			ID: "active-trader", Title: "Active Trader", Icon: "📈",
			Description: "Complete 10 trades.",
			Rule:        Rule{Kind: KindTradeCount, Target: 10},
		},
		{
			ID: "seasoned-seller", Title: "Seasoned Seller", Icon: "🏷️",
			Description: "Sell 5 times.",
			Rule:        Rule{Kind: KindTradeCount, Side: model.SideSell, Target: 5},
		},
		{
			ID: "diversified", Title: "Diversified", Icon: "🌐",
			Description: "Hold 3 different stocks at the same time.",
			Rule:        Rule{Kind: KindDiversification, Target: 3},
		},
		{
			ID: "portfolio-builder", Title: "Portfolio Builder", Icon: "🧱",
			Description: "Hold 5 different stocks at the same time.",
			Rule:        Rule{Kind: KindDiversification, Target: 5},
		},
		{
			ID: "sector-explorer", Title: "Sector Explorer", Icon: "🧭",
			Description: "Hold stocks from 3 different sectors.",
			Rule:        Rule{Kind: KindSectorCoverage, Target: 3},
		},
		{
			ID: "growth-milestone", Title: "Growing Wealth", Icon: "🚀",
			Description: "Grow your portfolio to " + model.FormatMoney(initialCapital.Mul(GrowthMilestone)) + ". Checked each time you trade.",
			Rule:        Rule{Kind: KindPortfolioValue, Threshold: initialCapital.Mul(GrowthMilestone)},
		},
		{
			ID: "patient-investor", Title: "Patient Investor", Icon: "⏳",
			Description: "Keep a position open for 2 minutes. Checked each time you trade.",
			Rule:        Rule{Kind: KindHoldingDuration, Duration: 2 * time.Minute},
		},
		{
			ID: "buy-low-sell-high", Title: "Buy Low, Sell High", Icon: "💎",
			Description: "Sell shares for more than you paid.",
			Rule:        Rule{Kind: KindProfitableSale, Target: 1},
		},
	}
}
