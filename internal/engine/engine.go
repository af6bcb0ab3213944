// Package engine wires the analyzer, risk engine, trade manager and
// portfolio into the tick-driven pipeline: maintain state, protect the
// account, and only then consider opening anything new. The core is
// single-threaded; one tick is fully processed before the next.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurumlab/goldcore/internal/analyzer"
	"github.com/aurumlab/goldcore/internal/config"
	"github.com/aurumlab/goldcore/internal/feed"
	"github.com/aurumlab/goldcore/internal/journal"
	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/metrics"
	"github.com/aurumlab/goldcore/internal/portfolio"
	"github.com/aurumlab/goldcore/internal/risk"
	"github.com/aurumlab/goldcore/internal/trade"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// State is the engine lifecycle state.
type State string

const (
	StateCreated     State = "created"
	StateInitialized State = "initialized"
	StateStopped     State = "stopped"
)

// Snapshot is a point-in-time view of the engine for the status endpoint.
type Snapshot struct {
	RunID          string          `json:"run_id" yaml:"run_id"`
	State          State           `json:"state" yaml:"state"`
	TradingEnabled bool            `json:"trading_enabled" yaml:"trading_enabled"`
	Balance        float64         `json:"balance" yaml:"balance"`
	Equity         float64         `json:"equity" yaml:"equity"`
	DrawdownPct    float64         `json:"drawdown_pct" yaml:"drawdown_pct"`
	DailyLossPct   float64         `json:"daily_loss_pct" yaml:"daily_loss_pct"`
	OpenPositions  int             `json:"open_positions" yaml:"open_positions"`
	PendingOrders  int             `json:"pending_orders" yaml:"pending_orders"`
	Stats          portfolio.Stats `json:"stats" yaml:"stats"`
}

// Engine is the orchestrator. All trading state lives in the components it
// owns; the engine itself only sequences them.
type Engine struct {
	cfg     config.Config
	venue   venue.Venue
	feed    feed.Feed
	logger  *logger.Logger
	metrics *metrics.Registry
	journal journal.Journal

	analyzer  *analyzer.Analyzer
	portfolio *portfolio.Portfolio
	risk      *risk.Engine
	trade     *trade.Manager

	runID          string
	state          State
	tradingEnabled bool
	seenDeals      map[int64]struct{}

	// mu makes Snapshot safe to call from the status server goroutine while
	// the tick loop is running. The pipeline itself is single-threaded.
	mu sync.Mutex
}

// New creates an Engine around its external dependencies. The journal may be
// nil to disable run artifacts. Components are built by Initialize.
func New(
	cfg config.Config,
	v venue.Venue,
	indicatorFeed feed.Feed,
	reg *metrics.Registry,
	jrnl journal.Journal,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:            cfg,
		venue:          v,
		feed:           indicatorFeed,
		logger:         log,
		metrics:        reg,
		journal:        jrnl,
		analyzer:       nil,
		portfolio:      nil,
		risk:           nil,
		trade:          nil,
		runID:          uuid.New().String(),
		state:          StateCreated,
		tradingEnabled: false,
		seenDeals:      make(map[int64]struct{}),
	}
}

// Initialize builds the component pipeline. It either succeeds completely or
// leaves the engine unchanged in the created state. Deals already in the
// venue history are baselined so they are not folded into this run's P&L.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCreated {
		return errors.Newf(errors.ErrCodeEngineAlreadyInitialized, "engine is %s", e.state)
	}

	pf, err := portfolio.New(e.cfg.Portfolio, e.venue, e.cfg.Symbol, e.cfg.MagicNumber, e.logger)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEngineInitFailed, "failed to build portfolio", err)
	}

	deals, err := e.venue.Deals(types.DealFilter{Symbol: e.cfg.Symbol, Magic: e.cfg.MagicNumber})
	if err != nil {
		return errors.Wrap(errors.ErrCodeEngineInitFailed, "failed to baseline deal history", err)
	}

	for _, deal := range deals {
		e.seenDeals[deal.Ticket] = struct{}{}
	}

	e.portfolio = pf
	e.analyzer = analyzer.New(e.cfg.Analyzer, e.feed, e.venue, e.logger)
	e.risk = risk.New(e.cfg.Risk, e.venue, pf, e.analyzer, e.cfg.Symbol, e.cfg.MagicNumber, e.logger)
	e.trade = trade.NewManager(e.cfg.Trade, e.venue, e.cfg.Symbol, e.cfg.MagicNumber, e.logger)

	e.state = StateInitialized
	e.tradingEnabled = true
	e.metrics.SetTradingEnabled(true)

	e.logger.Info("engine initialized",
		zap.String("run_id", e.runID),
		zap.String("symbol", e.cfg.Symbol),
		zap.Int64("magic", e.cfg.MagicNumber),
		zap.Float64("initial_balance", pf.InitialBalance()),
	)

	return nil
}

// ProcessTick runs one full pipeline pass for a tick: refresh state,
// reconcile closed trades, maintain protective stops, enforce account
// protection, and finally evaluate and possibly act on a signal.
func (e *Engine) ProcessTick(tick types.Tick) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateInitialized {
		return errors.Newf(errors.ErrCodeEngineNotInitialized, "engine is %s", e.state)
	}

	e.metrics.RecordTick()

	// Feed failures abort signal evaluation below but never the upkeep.
	feedErr := e.analyzer.Update()

	if err := e.upkeep(tick.Time); err != nil {
		return err
	}

	if e.journal != nil {
		if err := e.journal.WriteEquityPoint(tick.Time, e.portfolio.Equity()); err != nil {
			e.logger.Warn("failed to journal equity point", zap.Error(err))
		}
	}

	if err := e.trade.ApplyTrailingStop(); err != nil {
		e.logger.Warn("trailing stop maintenance failed", zap.Error(err))
	}

	if err := e.trade.ApplyBreakEven(); err != nil {
		e.logger.Warn("break-even maintenance failed", zap.Error(err))
	}

	if breached := e.enforceProtection(); breached {
		return nil
	}

	if !e.tradingEnabled || feedErr != nil {
		return nil
	}

	return e.evaluateEntry(tick.Time)
}

// ProcessTimer runs the periodic upkeep that must not depend on ticks
// arriving: account refresh, deal reconciliation and protection checks.
func (e *Engine) ProcessTimer(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateInitialized {
		return errors.Newf(errors.ErrCodeEngineNotInitialized, "engine is %s", e.state)
	}

	if err := e.upkeep(now); err != nil {
		return err
	}

	e.enforceProtection()

	return nil
}

// upkeep refreshes the portfolio and folds newly closed trades into it.
func (e *Engine) upkeep(now time.Time) error {
	if err := e.portfolio.Update(now); err != nil {
		return err
	}

	if err := e.reconcileDeals(); err != nil {
		e.logger.Warn("deal reconciliation failed", zap.Error(err))
	}

	count, err := e.trade.OpenPositionsCount()
	if err == nil {
		e.metrics.SetOpenPositions(count)
	}

	e.metrics.SetAccountState(
		e.portfolio.Balance(),
		e.portfolio.Equity(),
		e.portfolio.CurrentDrawdownPercent(),
	)

	return nil
}

// reconcileDeals finds deals that closed since the last pass and feeds them
// to the portfolio and journal exactly once.
func (e *Engine) reconcileDeals() error {
	deals, err := e.venue.Deals(types.DealFilter{Symbol: e.cfg.Symbol, Magic: e.cfg.MagicNumber})
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryQueryFailed, "failed to query deals", err)
	}

	for _, deal := range deals {
		if _, seen := e.seenDeals[deal.Ticket]; seen {
			continue
		}

		e.seenDeals[deal.Ticket] = struct{}{}

		if err := e.portfolio.AddTradeResult(deal.Profit, deal.Commission, deal.Swap); err != nil {
			e.logger.Error("failed to fold closed trade into portfolio",
				zap.Int64("ticket", deal.Ticket), zap.Error(err))
		}

		if e.journal != nil {
			if err := e.journal.WriteDeal(deal); err != nil {
				e.logger.Warn("failed to journal deal",
					zap.Int64("ticket", deal.Ticket), zap.Error(err))
			}
		}

		e.logger.Info("trade closed",
			zap.Int64("ticket", deal.Ticket),
			zap.String("direction", string(deal.Direction)),
			zap.Float64("net_profit", deal.NetProfit()),
		)
	}

	return nil
}

// enforceProtection disables trading and flattens everything when a
// portfolio protection limit is breached. Returns true when a breach is
// active.
func (e *Engine) enforceProtection() bool {
	dailyBreached := e.portfolio.IsDailyLossLimitReached()
	drawdownBreached := e.portfolio.IsDrawdownLimitReached()

	if !dailyBreached && !drawdownBreached {
		return false
	}

	if !e.tradingEnabled {
		return true
	}

	reason := "daily loss limit"
	if drawdownBreached {
		reason = "drawdown limit"
	}

	e.logger.Error("protection limit breached, disabling trading and flattening",
		zap.String("reason", reason),
		zap.Float64("daily_loss_pct", e.portfolio.DailyLossPercent()),
		zap.Float64("drawdown_pct", e.portfolio.CurrentDrawdownPercent()),
	)

	e.disableTrading()

	closed, err := e.trade.CloseAllPositions()
	if err != nil {
		e.logger.Error("flatten left positions open", zap.Error(err))
	}

	deleted, err := e.trade.DeleteAllPending()
	if err != nil {
		e.logger.Error("flatten left pending orders resting", zap.Error(err))
	}

	e.logger.Info("flattened", zap.Int("closed", closed), zap.Int("deleted", deleted))

	return true
}

// evaluateEntry runs the signal and risk screen and opens a position when
// everything passes.
func (e *Engine) evaluateEntry(now time.Time) error {
	count, err := e.trade.OpenPositionsCount()
	if err != nil {
		return err
	}

	if count >= e.cfg.MaxOpenTrades {
		return nil
	}

	signal, err := e.analyzer.Signal(now)
	if err != nil {
		e.logger.Warn("signal evaluation aborted", zap.Error(err))

		return nil
	}

	if !signal.IsActionable() {
		return nil
	}

	if signal.Direction == types.DirectionBuy && !e.cfg.AllowLong {
		return nil
	}

	if signal.Direction == types.DirectionSell && !e.cfg.AllowShort {
		return nil
	}

	if err := signal.Validate(); err != nil {
		e.logger.Error("analyzer produced an invalid signal", zap.Error(err))

		return nil
	}

	e.metrics.RecordSignal(string(signal.Direction))

	lots, gate := e.screen(signal)
	if gate != "" {
		e.metrics.RecordRiskRejection(gate)
		e.logger.Info("signal rejected by risk gate",
			zap.String("gate", gate),
			zap.String("direction", string(signal.Direction)),
		)

		return nil
	}

	ticket, err := e.openPosition(signal, lots)
	if err != nil {
		e.metrics.RecordOrder("open", "rejected")
		e.logger.Error("failed to open position", zap.Error(err))

		return nil
	}

	e.metrics.RecordOrder("open", "filled")
	e.logger.Info("position opened from signal",
		zap.Int64("ticket", ticket),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("lots", lots),
		zap.Float64("strength", signal.Strength),
	)

	return nil
}

// screen sizes the trade and runs the acceptability gates. An empty gate
// name means the trade may proceed.
func (e *Engine) screen(signal types.Signal) (float64, string) {
	if !e.risk.IsDailyLossAcceptable() {
		return 0, "daily_loss"
	}

	if !e.risk.IsRiskRewardAcceptable(signal.EntryPrice, signal.StopLoss, signal.TakeProfit) {
		return 0, "reward_risk"
	}

	lots, err := e.risk.PositionSize(signal.EntryPrice, signal.StopLoss)
	if err != nil {
		e.logger.Warn("position sizing failed", zap.Error(err))

		return 0, "sizing"
	}

	if !e.risk.IsTradeRiskAcceptable(signal.EntryPrice, signal.StopLoss, lots) {
		return 0, "trade_risk"
	}

	if !e.risk.IsEquityRiskAcceptable() {
		return 0, "equity_risk"
	}

	return lots, ""
}

func (e *Engine) openPosition(signal types.Signal, lots float64) (int64, error) {
	comment := "goldcore " + signal.Timeframe

	if signal.Direction == types.DirectionBuy {
		return e.trade.OpenBuy(lots, signal.StopLoss, signal.TakeProfit, comment)
	}

	return e.trade.OpenSell(lots, signal.StopLoss, signal.TakeProfit, comment)
}

// EnableTrading re-enables opening new positions.
func (e *Engine) EnableTrading() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tradingEnabled = true
	e.metrics.SetTradingEnabled(true)
	e.logger.Info("trading enabled")
}

// DisableTrading stops new positions from being opened. Existing positions
// keep their maintenance.
func (e *Engine) DisableTrading() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.disableTrading()
}

func (e *Engine) disableTrading() {
	e.tradingEnabled = false
	e.metrics.SetTradingEnabled(false)
	e.logger.Info("trading disabled")
}

// TradingEnabled reports whether the engine may open new positions.
func (e *Engine) TradingEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.tradingEnabled
}

// Snapshot returns a consistent view of the engine for the status endpoint.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := Snapshot{
		RunID:          e.runID,
		State:          e.state,
		TradingEnabled: e.tradingEnabled,
		Balance:        0,
		Equity:         0,
		DrawdownPct:    0,
		DailyLossPct:   0,
		OpenPositions:  0,
		PendingOrders:  0,
		Stats:          portfolio.Stats{},
	}

	if e.state != StateInitialized {
		return snapshot
	}

	snapshot.Balance = e.portfolio.Balance()
	snapshot.Equity = e.portfolio.Equity()
	snapshot.DrawdownPct = e.portfolio.CurrentDrawdownPercent()
	snapshot.DailyLossPct = e.portfolio.DailyLossPercent()
	snapshot.Stats = e.portfolio.Statistics()

	if count, err := e.trade.OpenPositionsCount(); err == nil {
		snapshot.OpenPositions = count
	}

	if count, err := e.trade.PendingOrdersCount(); err == nil {
		snapshot.PendingOrders = count
	}

	return snapshot
}

// Shutdown writes the final run artifacts and stops the engine.
func (e *Engine) Shutdown(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateInitialized {
		e.state = StateStopped

		return nil
	}

	if e.journal != nil {
		if err := e.journal.WriteSnapshot(e.portfolio.Snapshot(now)); err != nil {
			e.logger.Error("failed to write final snapshot", zap.Error(err))
		}

		if err := e.journal.Close(); err != nil {
			e.logger.Error("failed to close journal", zap.Error(err))
		}
	}

	e.state = StateStopped
	e.tradingEnabled = false
	e.metrics.SetTradingEnabled(false)
	e.logger.Info("engine stopped")

	return nil
}
