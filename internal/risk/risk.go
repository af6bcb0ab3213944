// Package risk sizes prospective trades and screens them through the
// advisory acceptability gates: per-trade risk, reward:risk, aggregate
// equity-at-risk and daily loss. The gates only answer yes or no; acting on
// the answer is the orchestrator's job.
package risk

import (
	"go.uber.org/zap"

	"github.com/aurumlab/goldcore/internal/analyzer"
	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/portfolio"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/utils"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// Config holds the risk parameters, set once at startup.
type Config struct {
	// RiskPercent is the fraction of equity risked per trade.
	RiskPercent float64 `yaml:"risk_percent" json:"risk_percent" default:"1" validate:"gt=0,lte=100"`
	// UseFixedLot bypasses risk-based sizing and always trades FixedLot.
	UseFixedLot bool    `yaml:"use_fixed_lot" json:"use_fixed_lot"`
	FixedLot    float64 `yaml:"fixed_lot" json:"fixed_lot" default:"0.01" validate:"gt=0"`
	// MaxPositionSize caps the computed lot size.
	MaxPositionSize float64 `yaml:"max_position_size" json:"max_position_size" default:"1" validate:"gt=0"`
	// MaxEquityRiskPercent caps the summed stop-loss risk of all open
	// positions for the instrument.
	MaxEquityRiskPercent float64 `yaml:"max_equity_risk_percent" json:"max_equity_risk_percent" default:"6" validate:"gt=0,lte=100"`
	// MinRewardRatio is the minimum target:stop distance ratio.
	MinRewardRatio float64 `yaml:"min_reward_ratio" json:"min_reward_ratio" default:"2" validate:"gt=0"`
	// UseATRStops derives stop distances from the analyzer's ATR; otherwise
	// DefaultStopPoints is used.
	UseATRStops       bool    `yaml:"use_atr_stops" json:"use_atr_stops"`
	ATRMultiplier     float64 `yaml:"atr_multiplier" json:"atr_multiplier" default:"1.5" validate:"gt=0"`
	DefaultStopPoints float64 `yaml:"default_stop_points" json:"default_stop_points" default:"500" validate:"gt=0"`
}

// Engine computes sizes and gates. It holds non-owning references to the
// portfolio and analyzer and keeps no trade state of its own: every method
// is a pure function of its arguments plus current portfolio/venue reads.
type Engine struct {
	cfg       Config
	venue     venue.Venue
	portfolio *portfolio.Portfolio
	analyzer  *analyzer.Analyzer
	symbol    string
	magic     int64
	logger    *logger.Logger
}

// New creates a risk Engine.
func New(
	cfg Config,
	v venue.Venue,
	p *portfolio.Portfolio,
	a *analyzer.Analyzer,
	symbol string,
	magic int64,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		venue:     v,
		portfolio: p,
		analyzer:  a,
		symbol:    symbol,
		magic:     magic,
		logger:    log,
	}
}

// PositionSize computes the lot size for a trade between entry and stop.
// Fixed-lot mode returns the configured constant; risk-based mode sizes so
// that a stop-out loses RiskPercent of current equity. The result is always
// clamped to [venue min, MaxPositionSize] and aligned down to the lot step.
func (e *Engine) PositionSize(entry, stop float64) (float64, error) {
	info, err := e.venue.SymbolInfo()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeRiskSizingFailed, "failed to read symbol info", err)
	}

	maxLot := min(e.cfg.MaxPositionSize, info.MaxLot)

	if e.cfg.UseFixedLot {
		return utils.NormalizeLots(e.cfg.FixedLot, info.MinLot, maxLot, info.LotStep), nil
	}

	if entry == stop {
		return 0, errors.New(errors.ErrCodeRiskZeroDistance, "stop distance is zero, refusing to size")
	}

	equity := e.portfolio.Equity()
	if equity <= 0 {
		return 0, errors.Newf(errors.ErrCodeRiskZeroEquity, "equity %.2f is not positive", equity)
	}

	if info.Point <= 0 || info.TickValue <= 0 {
		return 0, errors.Newf(errors.ErrCodeRiskSizingFailed,
			"degenerate symbol constraints: point=%f tick_value=%f", info.Point, info.TickValue)
	}

	riskAmount := equity * e.cfg.RiskPercent / 100
	stopPoints := abs(entry-stop) / info.Point
	lots := riskAmount / (stopPoints * info.TickValue)

	return utils.NormalizeLots(lots, info.MinLot, maxLot, info.LotStep), nil
}

// StopLossPrice derives the protective stop for an entry: an ATR multiple
// when ATR stops are enabled, the fixed default distance otherwise.
func (e *Engine) StopLossPrice(entry float64, direction types.Direction) (float64, error) {
	info, err := e.venue.SymbolInfo()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeRiskSizingFailed, "failed to read symbol info", err)
	}

	distance := e.cfg.DefaultStopPoints * info.Point
	if e.cfg.UseATRStops {
		distance = e.analyzer.CurrentATR() * e.cfg.ATRMultiplier
	}

	if distance <= 0 {
		return 0, errors.New(errors.ErrCodeRiskZeroDistance, "computed stop distance is not positive")
	}

	if direction == types.DirectionBuy {
		return entry - distance, nil
	}

	return entry + distance, nil
}

// TakeProfitPrice derives the target: the stop distance scaled by the
// minimum reward ratio, applied on the profit side of the entry.
func (e *Engine) TakeProfitPrice(entry, stop float64, direction types.Direction) (float64, error) {
	distance := abs(entry - stop)
	if distance == 0 {
		return 0, errors.New(errors.ErrCodeRiskZeroDistance, "stop distance is zero")
	}

	targetDistance := distance * e.cfg.MinRewardRatio

	if direction == types.DirectionBuy {
		return entry + targetDistance, nil
	}

	return entry - targetDistance, nil
}

// RewardRiskRatio returns |target-entry| / |entry-stop|. A zero stop
// distance is an error, never a NaN.
func RewardRiskRatio(entry, stop, target float64) (float64, error) {
	stopDistance := abs(entry - stop)
	if stopDistance == 0 {
		return 0, errors.New(errors.ErrCodeRiskZeroDistance, "stop distance is zero")
	}

	return abs(target-entry) / stopDistance, nil
}

// IsTradeRiskAcceptable reports whether a stop-out on the proposed trade
// would lose no more than RiskPercent of current equity.
func (e *Engine) IsTradeRiskAcceptable(entry, stop, lots float64) bool {
	riskPct, err := e.riskPercentOf(entry, stop, lots)
	if err != nil {
		e.logger.Warn("trade risk not computable, denying", zap.Error(err))

		return false
	}

	return riskPct <= e.cfg.RiskPercent
}

// IsRiskRewardAcceptable reports whether the proposed trade's reward:risk
// ratio meets the configured minimum.
func (e *Engine) IsRiskRewardAcceptable(entry, stop, target float64) bool {
	ratio, err := RewardRiskRatio(entry, stop, target)
	if err != nil {
		e.logger.Warn("reward:risk not computable, denying", zap.Error(err))

		return false
	}

	return ratio >= e.cfg.MinRewardRatio
}

// IsEquityRiskAcceptable sums the stop-loss risk of every open position on
// this instrument owned by this system and compares it to the equity cap. A
// position without a stop loss is unbounded risk and fails the gate
// outright.
func (e *Engine) IsEquityRiskAcceptable() bool {
	positions, err := e.venue.Positions()
	if err != nil {
		e.logger.Warn("cannot enumerate positions, denying equity risk", zap.Error(err))

		return false
	}

	totalPct := 0.0

	for _, position := range positions {
		if position.Symbol != e.symbol || position.Magic != e.magic {
			continue
		}

		if position.StopLoss == 0 {
			e.logger.Warn("open position without stop loss, equity risk unbounded",
				zap.Int64("ticket", position.Ticket))

			return false
		}

		pct, err := e.riskPercentOf(position.OpenPrice, position.StopLoss, position.Volume)
		if err != nil {
			e.logger.Warn("position risk not computable, denying equity risk",
				zap.Int64("ticket", position.Ticket), zap.Error(err))

			return false
		}

		totalPct += pct
	}

	return totalPct <= e.cfg.MaxEquityRiskPercent
}

// IsDailyLossAcceptable reports whether today's realized loss is still under
// the portfolio's configured daily limit.
func (e *Engine) IsDailyLossAcceptable() bool {
	return !e.portfolio.IsDailyLossLimitReached()
}

// riskPercentOf converts a stop distance and volume into a percentage of
// current equity.
func (e *Engine) riskPercentOf(entry, stop, lots float64) (float64, error) {
	info, err := e.venue.SymbolInfo()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeRiskSizingFailed, "failed to read symbol info", err)
	}

	if info.Point <= 0 {
		return 0, errors.Newf(errors.ErrCodeRiskSizingFailed, "degenerate point size %f", info.Point)
	}

	stopDistance := abs(entry - stop)
	if stopDistance == 0 {
		return 0, errors.New(errors.ErrCodeRiskZeroDistance, "stop distance is zero")
	}

	equity := e.portfolio.Equity()
	if equity <= 0 {
		return 0, errors.Newf(errors.ErrCodeRiskZeroEquity, "equity %.2f is not positive", equity)
	}

	stopPoints := stopDistance / info.Point
	riskMoney := stopPoints * info.TickValue * lots

	return riskMoney / equity * 100, nil
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}

	return value
}
