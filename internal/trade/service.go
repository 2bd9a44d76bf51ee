// Package trade provides the HTTP handlers that surface a running session:
// instrument quotes, order placement, portfolio and progression reads, the
// notification queue and the transaction journal.
//
// All monetary values use shopspring/decimal, never float64.
package trade

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/stockquest/internal/metrics"
	"github.com/atmx/stockquest/internal/model"
	"github.com/atmx/stockquest/internal/notify"
	"github.com/atmx/stockquest/internal/session"
	"github.com/atmx/stockquest/internal/store"
)

// Service adapts one session to HTTP. The session serializes every mutation
// itself, so handlers hold no locks.
type Service struct {
	session *session.Session
	journal store.Journal
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(sess *session.Session, journal store.Journal, hub *WSHub) *Service {
	return &Service{
		session: sess,
		journal: journal,
		wsHub:   hub,
	}
}

// Routes mounts the API under r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/session", s.GetSession)
	r.Get("/instruments", s.ListInstruments)
	r.Get("/portfolio", s.GetPortfolio)
	r.Get("/transactions", s.ListTransactions)
	r.Get("/achievements", s.ListAchievements)
	r.Get("/progression", s.GetProgression)
	r.Post("/orders", s.PlaceOrder)
	r.Get("/notifications/active", s.ActiveNotification)
	r.Post("/notifications/dismiss", s.DismissNotification)
	r.Get("/journal/{sessionID}", s.GetJournal)
	if s.wsHub != nil {
		r.Get("/ws", s.wsHub.HandleWS)
	}
}

// --- Request/Response types ---

// OrderRequest is the JSON body for POST /orders.
type OrderRequest struct {
	Side     model.Side `json:"side"` // "buy" or "sell"
	Symbol   string     `json:"symbol"`
	Quantity int64      `json:"quantity"` // whole shares
}

// NotificationResponse is the body of GET /notifications/active.
type NotificationResponse struct {
	Active  *notify.Notification `json:"active"`
	Pending int                  `json:"pending"`
}

// --- Ticks ---

// Tick advances prices one step and broadcasts the new quotes. It is the
// scheduler's job.
func (s *Service) Tick() {
	res := s.session.Tick()
	portfolio := res.Portfolio

	metrics.TicksTotal.Inc()
	metrics.PortfolioValue.Set(portfolio.TotalValue.InexactFloat64())
	slog.Debug("tick", "session", s.session.ID(), "total_value", portfolio.TotalValue.String())

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: MsgTick, Instruments: res.Instruments, Portfolio: &portfolio})
	}
}

// --- HTTP Handlers ---

// GetSession handles GET /api/v1/session
func (s *Service) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// ListInstruments handles GET /api/v1/instruments
func (s *Service) ListInstruments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Instruments())
}

// GetPortfolio handles GET /api/v1/portfolio
// Returns cash, positions at current prices, and gain/loss against capital.
func (s *Service) GetPortfolio(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Portfolio())
}

// ListTransactions handles GET /api/v1/transactions
func (s *Service) ListTransactions(w http.ResponseWriter, _ *http.Request) {
	txs := s.session.Transactions()
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// ListAchievements handles GET /api/v1/achievements
func (s *Service) ListAchievements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Achievements())
}

// GetProgression handles GET /api/v1/progression
func (s *Service) GetProgression(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Progression())
}

// PlaceOrder handles POST /api/v1/orders
// A rejected order is a 409 carrying the ledger's message.
func (s *Service) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Side.Valid() {
		writeError(w, "side must be buy or sell", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		writeError(w, "symbol is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	var out session.Outcome
	if req.Side == model.SideBuy {
		out = s.session.Buy(r.Context(), req.Symbol, req.Quantity)
	} else {
		out = s.session.Sell(r.Context(), req.Symbol, req.Quantity)
	}
	metrics.TradeLatency.WithLabelValues(string(req.Side)).Observe(time.Since(start).Seconds())

	if !out.Success {
		metrics.OrderRejections.WithLabelValues(string(out.Reason)).Inc()
		writeJSON(w, http.StatusConflict, out)
		return
	}

	s.recordExecution(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) recordExecution(out session.Outcome) {
	tx := out.Transaction
	metrics.TradesTotal.WithLabelValues(string(tx.Side)).Inc()
	metrics.TradeVolume.WithLabelValues(tx.Symbol, string(tx.Side)).Add(float64(tx.Quantity))
	for _, a := range out.Unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
	}
	if out.LevelUp != nil {
		metrics.LevelUps.Inc()
	}
	portfolio := s.session.Portfolio()
	metrics.PortfolioValue.Set(portfolio.TotalValue.InexactFloat64())

	if s.wsHub == nil {
		return
	}
	s.wsHub.Broadcast(WSMessage{Type: MsgTradeExecuted, Transaction: tx, Portfolio: &portfolio})
	for _, a := range out.Unlocked {
		n := notify.Achievement(a, tx.Timestamp)
		s.wsHub.Broadcast(WSMessage{Type: MsgAchievementUnlocked, Notification: &n})
	}
	if out.LevelUp != nil {
		n := notify.LevelUp(*out.LevelUp, tx.Timestamp)
		s.wsHub.Broadcast(WSMessage{Type: MsgLevelUp, Notification: &n})
	}
}

// ActiveNotification handles GET /api/v1/notifications/active
func (s *Service) ActiveNotification(w http.ResponseWriter, _ *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, NotificationResponse{Active: snap.Notification, Pending: snap.Pending})
}

// DismissNotification handles POST /api/v1/notifications/dismiss
// Returns the next active notification; 404 when nothing was displayed.
func (s *Service) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !s.session.DismissNotification() {
		writeError(w, "no active notification", http.StatusNotFound)
		return
	}
	s.ActiveNotification(w, r)
}

// GetJournal handles GET /api/v1/journal/{sessionID}
// Returns the persisted transactions of any session, newest first.
func (s *Service) GetJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, "journal not configured", http.StatusNotFound)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	txs, err := s.journal.List(r.Context(), sessionID)
	if err != nil {
		slog.Error("journal list failed", "session", sessionID, "err", err)
		writeError(w, "failed to load journal", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
