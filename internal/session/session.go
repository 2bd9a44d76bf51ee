// Package session is the orchestrator core of one simulator run. It owns the
// instrument set, the ledger, progression, achievement state and the
// notification queue, and is the only mutation surface for trading.
//
// Every operation takes the session mutex and runs to completion, so ticks
// and orders are totally ordered by arrival. Journal writes happen after the
// mutex is released.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/achievement"
	"github.com/atmx/stockquest/internal/ledger"
	"github.com/atmx/stockquest/internal/market"
	"github.com/atmx/stockquest/internal/model"
	"github.com/atmx/stockquest/internal/notify"
	"github.com/atmx/stockquest/internal/progression"
	"github.com/atmx/stockquest/internal/store"
)

// Default experience policy.
const (
	DefaultBuyXP  int64 = 10
	DefaultSellXP int64 = 15
)

var ErrInvalidCapital = errors.New("session: initial capital must be positive")

// Config describes a new session.
type Config struct {
	InitialCapital decimal.Decimal
	Instruments    []market.Spec            // nil: market.DefaultSpecs()
	Catalog        []achievement.Definition // nil: achievement.DefaultCatalog(InitialCapital)
	Seed           uint64
	BuyXP          int64 // 0: DefaultBuyXP
	SellXP         int64 // 0: DefaultSellXP
}

// Option customizes a session.
type Option func(*Session)

// WithJournal mirrors executed transactions into j.
func WithJournal(j store.Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithID sets the session id instead of a random one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session is one running simulation.
type Session struct {
	mu sync.Mutex

	id           string
	instruments  []model.Instrument
	index        map[string]int
	engine       *market.Engine
	ledger       *ledger.Ledger
	tracker      *progression.Tracker
	achievements *achievement.Engine
	state        []model.Achievement
	queue        notify.Queue
	ticks        uint64

	journal store.Journal
	now     func() time.Time
	buyXP   int64
	sellXP  int64
}

// New validates cfg and starts a session. Invalid instruments or a malformed
// achievement catalog are reported here, before any trading happens.
func New(cfg Config, opts ...Option) (*Session, error) {
	if !cfg.InitialCapital.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCapital, cfg.InitialCapital)
	}

	specs := cfg.Instruments
	if specs == nil {
		specs = market.DefaultSpecs()
	}
	instruments, err := market.NewInstruments(specs)
	if err != nil {
		return nil, err
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = achievement.DefaultCatalog(cfg.InitialCapital)
	}
	engine, err := achievement.NewEngine(catalog)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:           uuid.NewString(),
		instruments:  instruments,
		index:        make(map[string]int, len(instruments)),
		engine:       market.NewEngine(cfg.Seed),
		ledger:       ledger.New(cfg.InitialCapital),
		tracker:      progression.NewTracker(),
		achievements: engine,
		state:        engine.Initial(),
		now:          time.Now,
		buyXP:        orDefault(cfg.BuyXP, DefaultBuyXP),
		sellXP:       orDefault(cfg.SellXP, DefaultSellXP),
	}
	for i, inst := range instruments {
		s.index[inst.Symbol] = i
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func orDefault(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Outcome is the result of an order plus the events it triggered.
type Outcome struct {
	ledger.Result
	Unlocked []model.Achievement  `json:"unlocked,omitempty"`
	LevelUp  *progression.LevelUp `json:"level_up,omitempty"`
}

// Buy routes a buy intent to the ledger.
func (s *Session) Buy(ctx context.Context, symbol string, quantity int64) Outcome {
	return s.order(ctx, model.SideBuy, symbol, quantity)
}

// Sell routes a sell intent to the ledger.
func (s *Session) Sell(ctx context.Context, symbol string, quantity int64) Outcome {
	return s.order(ctx, model.SideSell, symbol, quantity)
}

func (s *Session) order(ctx context.Context, side model.Side, symbol string, quantity int64) Outcome {
	out := s.execute(side, symbol, quantity)
	if !out.Success || s.journal == nil {
		return out
	}
	// Journal I/O runs outside the session lock so a slow store never
	// stalls ticks or reads.
	if err := s.journal.Append(ctx, s.id, *out.Transaction); err != nil {
		slog.Error("journal append failed", "session", s.id, "tx", out.Transaction.ID, "err", err)
	}
	return out
}

func (s *Session) execute(side model.Side, symbol string, quantity int64) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[symbol]
	if !ok {
		return Outcome{Result: ledger.Reject(ledger.ReasonUnknownSymbol, fmt.Sprintf("Unknown symbol %s.", symbol))}
	}
	inst := s.instruments[i]
	now := s.now()

	var res ledger.Result
	xp := s.buyXP
	if side == model.SideBuy {
		res = s.ledger.Buy(inst, quantity, now)
	} else {
		res = s.ledger.Sell(inst, quantity, now)
		xp = s.sellXP
	}
	if !res.Success {
		slog.Debug("order rejected",
			"session", s.id, "side", side, "symbol", symbol, "qty", quantity, "reason", res.Reason)
		return Outcome{Result: res}
	}

	out := Outcome{Result: res}
	if ev, up := s.tracker.GrantExperience(xp); up {
		out.LevelUp = &ev
	}

	var unlocked []model.Achievement
	s.state, unlocked = s.achievements.Evaluate(s.evaluationSnapshot(now), s.state)
	out.Unlocked = model.CloneAchievements(unlocked)

	for _, a := range unlocked {
		s.queue.Push(notify.Achievement(a.Clone(), now))
	}
	if out.LevelUp != nil {
		s.queue.Push(notify.LevelUp(*out.LevelUp, now))
	}

	slog.Info("order executed",
		"session", s.id,
		"tx", res.Transaction.ID,
		"side", side,
		"symbol", symbol,
		"qty", quantity,
		"price", res.Transaction.Price.String(),
		"cash", s.ledger.Cash().String(),
		"unlocked", len(unlocked),
	)
	return out
}

func (s *Session) evaluationSnapshot(at time.Time) achievement.Snapshot {
	sectors := make(map[string]string, len(s.instruments))
	for _, inst := range s.instruments {
		sectors[inst.Symbol] = inst.Sector
	}
	return achievement.Snapshot{
		Transactions: s.ledger.Transactions(),
		Portfolio:    s.ledger.Valuation(s.instruments),
		Sectors:      sectors,
		At:           at,
	}
}

// TickResult is the market and the portfolio valued at it, read in the same
// critical section as the price step.
type TickResult struct {
	Instruments []model.Instrument
	Portfolio   model.Portfolio
}

// Tick advances every instrument by one price step. The ledger is untouched;
// only the valuation moves.
func (s *Session) Tick() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instruments = s.engine.Advance(s.instruments)
	s.ticks++
	return TickResult{
		Instruments: s.copyInstruments(),
		Portfolio:   s.ledger.Valuation(s.instruments),
	}
}

func (s *Session) copyInstruments() []model.Instrument {
	out := make([]model.Instrument, len(s.instruments))
	copy(out, s.instruments)
	return out
}

// Instruments returns the current instrument set.
func (s *Session) Instruments() []model.Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyInstruments()
}

// Portfolio returns the portfolio valued at the latest prices.
func (s *Session) Portfolio() model.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Valuation(s.instruments)
}

// Transactions returns the transaction log newest first.
func (s *Session) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Transactions()
}

// Achievements returns the catalog with live unlock and progress state.
func (s *Session) Achievements() []model.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneAchievements(s.state)
}

// Progression returns level and experience.
func (s *Session) Progression() model.Progression {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Snapshot()
}

// ActiveNotification returns the notification currently on display.
func (s *Session) ActiveNotification() (notify.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Active()
}

// DismissNotification clears the active notification, revealing the next.
func (s *Session) DismissNotification() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Dismiss()
}

// Snapshot is a consistent read of the whole session.
type Snapshot struct {
	ID           string               `json:"id"`
	Ticks        uint64               `json:"ticks"`
	Instruments  []model.Instrument   `json:"instruments"`
	Portfolio    model.Portfolio      `json:"portfolio"`
	Transactions []model.Transaction  `json:"transactions"`
	Achievements []model.Achievement  `json:"achievements"`
	Progression  model.Progression    `json:"progression"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Pending      int                  `json:"pending_notifications"`
}

// Snapshot returns every read-only view under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.id,
		Ticks:        s.ticks,
		Instruments:  s.copyInstruments(),
		Portfolio:    s.ledger.Valuation(s.instruments),
		Transactions: s.ledger.Transactions(),
		Achievements: model.CloneAchievements(s.state),
		Progression:  s.tracker.Snapshot(),
		Pending:      s.queue.Pending(),
	}
	if n, ok := s.queue.Active(); ok {
		snap.Notification = &n
	}
	return snap
}
