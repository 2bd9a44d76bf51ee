package achievement

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/stockquest/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var t0 = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

// history builds a newest-first log from oldest-first transactions.
func history(oldestFirst ...model.Transaction) []model.Transaction {
	return chronological(oldestFirst)
}

func buy(sym string, qty int64, price string, at time.Time) model.Transaction {
	p := d(price)
	return model.Transaction{ID: sym + at.String(), Side: model.SideBuy, Symbol: sym, Quantity: qty, Price: p, Total: p.Mul(decimal.NewFromInt(qty)), Timestamp: at}
}

func sell(sym string, qty int64, price string, at time.Time) model.Transaction {
	tx := buy(sym, qty, price, at)
	tx.Side = model.SideSell
	return tx
}

func portfolio(total string, held ...string) model.Portfolio {
	p := model.Portfolio{TotalValue: d(total)}
	for _, sym := range held {
		p.Positions = append(p.Positions, model.Position{Holding: model.Holding{Symbol: sym, Quantity: 1, AveragePrice: d("1")}})
	}
	return p
}

var sectors = map[string]string{
	"AAPL": "Technology", "MSFT": "Technology", "JPM": "Finance", "KO": "Consumer", "XOM": "Energy",
}

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultCatalog(d("10000")))
	require.NoError(t, err)
	return e
}

func byID(state []model.Achievement, id string) model.Achievement {
	for _, a := range state {
		if a.ID == id {
			return a
		}
	}
	return model.Achievement{}
}

func ids(as []model.Achievement) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func TestNewEngine_RejectsMalformedCatalog(t *testing.T) {
	tests := map[string][]Definition{
		"empty id":       {{Rule: Rule{Kind: KindTradeCount, Target: 1}}},
		"duplicate id":   {{ID: "a", Rule: Rule{Kind: KindTradeCount, Target: 1}}, {ID: "a", Rule: Rule{Kind: KindTradeCount, Target: 2}}},
		"unknown kind":   {{ID: "a", Rule: Rule{Kind: "moon_landing", Target: 1}}},
		"zero target":    {{ID: "a", Rule: Rule{Kind: KindDiversification}}},
		"bad side":       {{ID: "a", Rule: Rule{Kind: KindTradeCount, Side: "short", Target: 1}}},
		"zero threshold": {{ID: "a", Rule: Rule{Kind: KindPortfolioValue}}},
		"tiny duration":  {{ID: "a", Rule: Rule{Kind: KindHoldingDuration, Duration: time.Millisecond}}},
	}
	for name, catalog := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(catalog)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "got %v", err)
		})
	}
}

func TestDefaultCatalogIsValid(t *testing.T) {
	e := newDefaultEngine(t)
	assert.Len(t, e.Catalog(), 10)

	init := e.Initial()
	require.Len(t, init, 10)
	for _, a := range init {
		assert.False(t, a.Unlocked, a.ID)
	}
	seller := byID(init, "seasoned-seller")
	require.NotNil(t, seller.Progress)
	assert.Equal(t, int64(0), *seller.Progress)
	assert.Equal(t, int64(5), *seller.Target)
	assert.Nil(t, byID(init, "growth-milestone").Progress)
}

func TestEvaluate_FirstTradeUnlocks(t *testing.T) {
	e := newDefaultEngine(t)
	snap := Snapshot{
		Transactions: history(buy("AAPL", 1, "100", t0)),
		Portfolio:    portfolio("10000", "AAPL"),
		Sectors:      sectors,
		At:           t0,
	}

	state, newly := e.Evaluate(snap, e.Initial())
	assert.Equal(t, []string{"first-trade"}, ids(newly))

	a := byID(state, "first-trade")
	assert.True(t, a.Unlocked)
	require.NotNil(t, a.UnlockedAt)
	assert.Equal(t, t0, *a.UnlockedAt)

	active := byID(state, "active-trader")
	assert.False(t, active.Unlocked)
	assert.Equal(t, int64(1), *active.Progress)
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := newDefaultEngine(t)
	snap := Snapshot{
		Transactions: history(
			buy("AAPL", 5, "100", t0),
			buy("JPM", 5, "150", t0.Add(time.Second)),
			buy("KO", 5, "60", t0.Add(2*time.Second)),
			sell("AAPL", 2, "110", t0.Add(3*time.Second)),
		),
		Portfolio: portfolio("11500", "AAPL", "JPM", "KO"),
		Sectors:   sectors,
		At:        t0.Add(4 * time.Second),
	}

	first, newly := e.Evaluate(snap, e.Initial())
	assert.Equal(t, []string{
		"first-trade", "first-sale", "diversified", "sector-explorer", "growth-milestone", "buy-low-sell-high",
	}, ids(newly), "newly unlocked are reported in catalog order")

	second, again := e.Evaluate(snap, first)
	assert.Empty(t, again, "second evaluation must not re-notify")
	assert.Equal(t, first, second)
}

func TestEvaluate_UnlockIsOneWayLatch(t *testing.T) {
	e := newDefaultEngine(t)
	rich := Snapshot{Portfolio: portfolio("12000"), At: t0}
	state, newly := e.Evaluate(rich, e.Initial())
	require.Equal(t, []string{"growth-milestone"}, ids(newly))

	// Value falls back below the milestone and the log is empty.
	poor := Snapshot{Portfolio: portfolio("9000"), At: t0.Add(time.Hour)}
	state, newly = e.Evaluate(poor, state)
	assert.Empty(t, newly)

	a := byID(state, "growth-milestone")
	assert.True(t, a.Unlocked)
	assert.Equal(t, t0, *a.UnlockedAt, "unlock time is kept")
}

func TestEvaluate_ProgressNeverDecreasesWhileLocked(t *testing.T) {
	e := newDefaultEngine(t)

	three := Snapshot{Portfolio: portfolio("10000", "AAPL", "MSFT", "KO", "JPM"), Sectors: sectors, At: t0}
	state, _ := e.Evaluate(three, e.Initial())
	builder := byID(state, "portfolio-builder")
	require.False(t, builder.Unlocked)
	assert.Equal(t, int64(4), *builder.Progress)

	one := Snapshot{Portfolio: portfolio("10000", "AAPL"), Sectors: sectors, At: t0}
	state, _ = e.Evaluate(one, state)
	assert.Equal(t, int64(4), *byID(state, "portfolio-builder").Progress)
}

func TestEvaluate_SellCountProgress(t *testing.T) {
	e := newDefaultEngine(t)
	var txs []model.Transaction
	txs = append(txs, buy("KO", 10, "60", t0))
	state := e.Initial()

	for i := 1; i <= 5; i++ {
		txs = append(txs, sell("KO", 1, "59", t0.Add(time.Duration(i)*time.Second)))
		var newly []model.Achievement
		state, newly = e.Evaluate(Snapshot{Transactions: history(txs...), Portfolio: portfolio("10000", "KO"), At: t0}, state)

		seller := byID(state, "seasoned-seller")
		assert.Equal(t, int64(i), *seller.Progress)
		if i == 5 {
			assert.True(t, seller.Unlocked)
			assert.Contains(t, ids(newly), "seasoned-seller")
		} else {
			assert.False(t, seller.Unlocked)
		}
	}
	assert.False(t, byID(state, "buy-low-sell-high").Unlocked, "all sells were below cost")
}

func TestEvaluate_HoldingDuration(t *testing.T) {
	e := newDefaultEngine(t)
	txs := history(buy("XOM", 1, "100", t0))

	state, _ := e.Evaluate(Snapshot{Transactions: txs, Portfolio: portfolio("10000", "XOM"), At: t0.Add(90 * time.Second)}, e.Initial())
	patient := byID(state, "patient-investor")
	assert.False(t, patient.Unlocked)
	assert.Equal(t, int64(90), *patient.Progress)
	assert.Equal(t, int64(120), *patient.Target)

	state, newly := e.Evaluate(Snapshot{Transactions: txs, Portfolio: portfolio("10000", "XOM"), At: t0.Add(2 * time.Minute)}, state)
	assert.Contains(t, ids(newly), "patient-investor")
	assert.True(t, byID(state, "patient-investor").Unlocked)
}

func TestLongestHeld_ReopenRestartsClock(t *testing.T) {
	txs := history(
		buy("XOM", 2, "100", t0),
		sell("XOM", 2, "100", t0.Add(time.Minute)),
		buy("XOM", 1, "100", t0.Add(3*time.Minute)),
	)
	held := longestHeld(txs, portfolio("0", "XOM"), t0.Add(4*time.Minute))
	assert.Equal(t, time.Minute, held)

	// Partial sells keep the original open time.
	txs = history(
		buy("XOM", 2, "100", t0),
		sell("XOM", 1, "100", t0.Add(time.Minute)),
	)
	held = longestHeld(txs, portfolio("0", "XOM"), t0.Add(4*time.Minute))
	assert.Equal(t, 4*time.Minute, held)
}

func TestCountProfitableSales_UsesReplayedAverage(t *testing.T) {
	txs := history(
		buy("AAPL", 10, "100", t0),
		buy("AAPL", 10, "120", t0.Add(time.Second)), // average 110
		sell("AAPL", 5, "105", t0.Add(2*time.Second)),
		sell("AAPL", 5, "111", t0.Add(3*time.Second)),
	)
	assert.Equal(t, int64(1), countProfitableSales(txs))
}

func TestCountSectors(t *testing.T) {
	p := portfolio("0", "AAPL", "MSFT", "JPM", "UNKNOWN")
	assert.Equal(t, int64(2), countSectors(p, sectors))
}

func TestDefaultCatalog_TimeAndValueRulesSayWhenChecked(t *testing.T) {
	for _, def := range DefaultCatalog(decimal.NewFromInt(10000)) {
		switch def.ID {
		case "patient-investor", "growth-milestone":
			assert.Contains(t, def.Description, "Checked each time you trade", def.ID)
		}
	}
}
