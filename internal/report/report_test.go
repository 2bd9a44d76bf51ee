package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/stockquest/internal/achievement"
	"github.com/atmx/stockquest/internal/market"
	"github.com/atmx/stockquest/internal/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	at := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	s, err := session.New(session.Config{
		InitialCapital: decimal.NewFromInt(10000),
		Instruments: []market.Spec{
			{Symbol: "AAPL", Name: "Apple Inc.", Sector: market.SectorTechnology, Price: decimal.NewFromInt(1500), Volatility: 0.02},
		},
	}, session.WithID("demo"), session.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	return s
}

func TestMarkdown_Sections(t *testing.T) {
	s := newSession(t)
	require.True(t, s.Buy(context.Background(), "AAPL", 2).Success)

	md := Markdown(s.Snapshot(), Options{Transactions: 5})

	assert.Contains(t, md, "# StockQuest session demo")
	assert.Contains(t, md, "Level **1** · 10 XP")
	assert.Contains(t, md, "| AAPL | Apple Inc. | Technology | $1,500.00 | $0.00 (0.00%) |")
	assert.Contains(t, md, "- Cash: $7,000.00")
	assert.Contains(t, md, "- Total value: **$10,000.00**")
	assert.Contains(t, md, "| AAPL | 2 | $1,500.00 | $1,500.00 | $3,000.00 | $0.00 |")
	assert.Contains(t, md, "| 15:04:05 | buy | AAPL | 2 | $1,500.00 | $3,000.00 |")
	assert.Contains(t, md, "## Achievements (1/10)")
	assert.Contains(t, md, "- [x] 🎯 **First Steps**")
	assert.Contains(t, md, "**Active Trader**: ")
	assert.Contains(t, md, "(1/10)")
}

func TestMarkdown_EmptySession(t *testing.T) {
	md := Markdown(newSession(t).Snapshot(), Options{})
	assert.Contains(t, md, "_No open positions._")
	assert.NotContains(t, md, "Recent transactions")
}

func TestSignedMoney(t *testing.T) {
	assert.Equal(t, "+$12.50", signedMoney(decimal.RequireFromString("12.5")))
	assert.Equal(t, "-$3.00", signedMoney(decimal.NewFromInt(-3)))
	assert.Equal(t, "$0.00", signedMoney(decimal.Zero))
}

func TestCatalog(t *testing.T) {
	md := Catalog(achievement.DefaultCatalog(decimal.NewFromInt(10000)))
	assert.Equal(t, 10, strings.Count(md, "| `"))
	assert.Contains(t, md, "`buy-low-sell-high`")
}

func TestRender(t *testing.T) {
	out, err := Render("# Hello\n\nworld", 60)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "world")
}
