package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/stockquest/internal/achievement"
	"github.com/atmx/stockquest/internal/ledger"
	"github.com/atmx/stockquest/internal/market"
	"github.com/atmx/stockquest/internal/model"
	"github.com/atmx/stockquest/internal/notify"
	"github.com/atmx/stockquest/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testSpecs = []market.Spec{
	{Symbol: "AAPL", Name: "Apple", Sector: market.SectorTechnology, Price: d("100"), Volatility: 0.02},
	{Symbol: "JPM", Name: "JPMorgan", Sector: market.SectorFinance, Price: d("150"), Volatility: 0.015},
	{Symbol: "KO", Name: "Coca-Cola", Sector: market.SectorConsumer, Price: d("60"), Volatility: 0.01},
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.now), WithID("test-session")}, opts...)
	s, err := New(Config{InitialCapital: d("10000"), Instruments: testSpecs, Seed: 1}, opts...)
	require.NoError(t, err)
	return s, clock
}

func ids(as []model.Achievement) []string {
	var out []string
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{InitialCapital: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidCapital)

	_, err = New(Config{
		InitialCapital: d("100"),
		Instruments:    []market.Spec{{Symbol: "BAD", Price: d("1"), Volatility: -1}},
	})
	assert.ErrorIs(t, err, market.ErrNegativeVolatility)

	_, err = New(Config{
		InitialCapital: d("100"),
		Catalog:        []achievement.Definition{{ID: "x", Rule: achievement.Rule{Kind: "bogus"}}},
	})
	assert.True(t, errors.Is(err, achievement.ErrInvalidCatalog))
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{InitialCapital: d("10000")})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Len(t, s.Instruments(), len(market.DefaultSpecs()))
	assert.Len(t, s.Achievements(), 10)
	assert.Equal(t, model.Progression{Experience: 0, Level: 1}, s.Progression())

	p := s.Portfolio()
	assert.True(t, p.TotalValue.Equal(d("10000")))
	assert.True(t, p.TotalGainLoss.IsZero())
}

func TestBuy_UpdatesLedgerProgressionAndAchievements(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	out := s.Buy(ctx, "AAPL", 10)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "Successfully bought 10 shares of AAPL!", out.Message)
	assert.Equal(t, []string{"first-trade"}, ids(out.Unlocked))
	assert.Nil(t, out.LevelUp)

	assert.Equal(t, int64(10), s.Progression().Experience)
	p := s.Portfolio()
	assert.True(t, p.Cash.Equal(d("9000")))
	require.Len(t, p.Positions, 1)
	assert.Equal(t, "AAPL", p.Positions[0].Symbol)

	n, ok := s.ActiveNotification()
	require.True(t, ok)
	assert.Equal(t, notify.KindAchievementUnlocked, n.Kind)
	assert.Equal(t, "first-trade", n.Achievement.ID)
}

func TestSell_GrantsSellExperience(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.True(t, s.Buy(ctx, "KO", 5).Success)
	out := s.Sell(ctx, "KO", 2)
	require.True(t, out.Success)
	assert.Contains(t, ids(out.Unlocked), "first-sale")
	assert.Equal(t, int64(25), s.Progression().Experience)
}

func TestOrders_Rejections(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	out := s.Buy(ctx, "NOPE", 1)
	assert.False(t, out.Success)
	assert.Equal(t, ledger.ReasonUnknownSymbol, out.Reason)
	assert.Equal(t, "Unknown symbol NOPE.", out.Message)

	out = s.Buy(ctx, "AAPL", 101)
	assert.False(t, out.Success)
	assert.Equal(t, ledger.ReasonInsufficientFunds, out.Reason)

	out = s.Sell(ctx, "AAPL", 1)
	assert.False(t, out.Success)
	assert.Equal(t, ledger.ReasonInsufficientShares, out.Reason)

	// Rejections change nothing.
	assert.Empty(t, s.Transactions())
	assert.Equal(t, int64(0), s.Progression().Experience)
	_, ok := s.ActiveNotification()
	assert.False(t, ok)
	assert.True(t, s.Portfolio().Cash.Equal(d("10000")))
}

func TestLevelUpIsQueuedAfterAchievements(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		require.True(t, s.Buy(ctx, "KO", 1).Success)
	}
	// 90 xp; next buy reaches 100.
	for s.DismissNotification() {
	}

	out := s.Buy(ctx, "JPM", 1)
	require.True(t, out.Success)
	require.NotNil(t, out.LevelUp)
	assert.Equal(t, int64(2), out.LevelUp.To)
	assert.Equal(t, int64(2), s.Progression().Level)

	n, ok := s.ActiveNotification()
	require.True(t, ok)
	assert.Equal(t, notify.KindAchievementUnlocked, n.Kind, "achievements display before the level-up")
	assert.Equal(t, "active-trader", n.Achievement.ID)

	require.True(t, s.DismissNotification())
	n, _ = s.ActiveNotification()
	assert.Equal(t, notify.KindLevelUp, n.Kind)
}

func TestMultipleUnlocksQueueInCatalogOrder(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	s.Buy(ctx, "AAPL", 1)
	s.Buy(ctx, "JPM", 1)
	for s.DismissNotification() {
	}

	out := s.Buy(ctx, "KO", 1)
	require.Equal(t, []string{"diversified", "sector-explorer"}, ids(out.Unlocked))

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Pending)
	require.NotNil(t, snap.Notification)
	assert.Equal(t, "diversified", snap.Notification.Achievement.ID)
}

func TestHoldingDurationUsesSessionClock(t *testing.T) {
	s, clock := newTestSession(t)
	ctx := context.Background()

	s.Buy(ctx, "AAPL", 1)
	clock.t = clock.t.Add(3 * time.Minute)
	out := s.Buy(ctx, "KO", 1)
	assert.Contains(t, ids(out.Unlocked), "patient-investor")
}

func TestTick_RevaluesWithoutTouchingLedger(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	require.True(t, s.Buy(ctx, "AAPL", 10).Success)
	require.True(t, s.Buy(ctx, "KO", 20).Success)
	cash := s.Portfolio().Cash
	txCount := len(s.Transactions())

	for i := 0; i < 25; i++ {
		res := s.Tick()

		p := s.Portfolio()
		assert.Equal(t, p, res.Portfolio, "tick %d: returned valuation matches a fresh read", i)
		prices := ledger.PriceMap(res.Instruments)
		want := cash
		for _, pos := range p.Positions {
			want = want.Add(prices[pos.Symbol].Mul(decimal.NewFromInt(pos.Quantity)))
		}
		assert.True(t, p.TotalValue.Equal(want), "tick %d: total %s, want %s", i, p.TotalValue, want)
		assert.True(t, p.TotalGainLoss.Equal(want.Sub(d("10000"))))
		assert.True(t, p.Cash.Equal(cash))
	}
	assert.Len(t, s.Transactions(), txCount)
	assert.Equal(t, uint64(25), s.Snapshot().Ticks)
}

func TestOrdersExecuteAtCurrentPrice(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	var price decimal.Decimal
	for _, inst := range s.Tick().Instruments {
		if inst.Symbol == "JPM" {
			price = inst.Price
		}
	}

	out := s.Buy(ctx, "JPM", 2)
	require.True(t, out.Success)
	assert.True(t, out.Transaction.Price.Equal(price))
	assert.True(t, out.Transaction.Total.Equal(price.Mul(decimal.NewFromInt(2))))
}

func TestJournalMirrorsTransactions(t *testing.T) {
	journal := store.NewMemoryStore()
	s, _ := newTestSession(t, WithJournal(journal))
	ctx := context.Background()

	s.Buy(ctx, "AAPL", 2)
	s.Buy(ctx, "AAPL", 100000) // rejected, not journaled
	s.Sell(ctx, "AAPL", 1)

	got, err := journal.List(ctx, "test-session")
	require.NoError(t, err)
	assert.Equal(t, s.Transactions(), got)
}

type failingJournal struct{}

func (failingJournal) Append(context.Context, string, model.Transaction) error {
	return errors.New("database is down")
}

func (failingJournal) List(context.Context, string) ([]model.Transaction, error) {
	return nil, errors.New("database is down")
}

func TestJournalFailureDoesNotFailTrade(t *testing.T) {
	s, _ := newTestSession(t, WithJournal(failingJournal{}))
	out := s.Buy(context.Background(), "AAPL", 1)
	assert.True(t, out.Success)
	assert.Len(t, s.Transactions(), 1)
}

func TestAchievementsNeverRelock(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	s.Buy(ctx, "AAPL", 1)
	s.Buy(ctx, "JPM", 1)
	s.Buy(ctx, "KO", 1)
	unlocked := map[string]bool{}
	for _, a := range s.Achievements() {
		if a.Unlocked {
			unlocked[a.ID] = true
		}
	}
	require.True(t, unlocked["diversified"])

	// Sell everything: diversification no longer holds.
	s.Sell(ctx, "AAPL", 1)
	s.Sell(ctx, "JPM", 1)
	s.Sell(ctx, "KO", 1)
	for _, a := range s.Achievements() {
		if unlocked[a.ID] {
			assert.True(t, a.Unlocked, "%s relocked", a.ID)
		}
	}
}

type stalledJournal struct {
	entered chan struct{}
	release chan struct{}
}

func (j *stalledJournal) Append(ctx context.Context, _ string, _ model.Transaction) error {
	close(j.entered)
	select {
	case <-j.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *stalledJournal) List(context.Context, string) ([]model.Transaction, error) {
	return nil, nil
}

func TestStalledJournalDoesNotBlockTicksOrReads(t *testing.T) {
	journal := &stalledJournal{entered: make(chan struct{}), release: make(chan struct{})}
	s, _ := newTestSession(t, WithJournal(journal))

	orderDone := make(chan Outcome, 1)
	go func() { orderDone <- s.Buy(context.Background(), "AAPL", 1) }()

	select {
	case <-journal.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("journal append never started")
	}

	readsDone := make(chan TickResult, 1)
	go func() {
		res := s.Tick()
		s.Portfolio()
		s.Snapshot()
		readsDone <- res
	}()

	select {
	case res := <-readsDone:
		require.Len(t, res.Portfolio.Positions, 1, "the executed buy is visible before the journal finishes")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("tick blocked behind journal append")
	}

	close(journal.release)
	assert.True(t, (<-orderDone).Success)
}

func TestReadViewsDoNotAliasSessionState(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	out := s.Buy(ctx, "AAPL", 1)
	require.True(t, out.Success)

	progressOf := func(as []model.Achievement, id string) *int64 {
		for _, a := range as {
			if a.ID == id {
				return a.Progress
			}
		}
		return nil
	}

	views := [][]model.Achievement{s.Achievements(), s.Snapshot().Achievements, out.Unlocked}
	for _, as := range views {
		for i := range as {
			if as[i].Progress != nil {
				*as[i].Progress = 999
			}
			if as[i].UnlockedAt != nil {
				*as[i].UnlockedAt = time.Time{}
			}
		}
	}

	fresh := s.Achievements()
	p := progressOf(fresh, "first-sale")
	require.NotNil(t, p)
	assert.Equal(t, int64(0), *p)
	for _, a := range fresh {
		if a.ID == "first-trade" {
			require.NotNil(t, a.UnlockedAt)
			assert.False(t, a.UnlockedAt.IsZero())
		}
	}

	// Later evaluations start from the untouched state.
	require.True(t, s.Sell(ctx, "AAPL", 1).Success)
	assert.Equal(t, int64(1), *progressOf(s.Achievements(), "first-sale"))
}
