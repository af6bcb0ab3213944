// Package analyzer turns indicator feed values into discrete trade signals:
// MA and MACD crossover agreement filtered by RSI, gated by trading session
// and ATR volatility, scored by an additive strength model.
package analyzer

import (
	"time"

	"go.uber.org/zap"

	"github.com/aurumlab/goldcore/internal/feed"
	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// RSI bands beyond which crossover candidates are discarded.
const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// baseStrength is the floor of the additive strength score; each of the four
// sub-scores adds at most 20 on top of it.
const baseStrength = 20.0

// Config holds the analyzer's gating and scoring parameters.
type Config struct {
	// ATRMultiplier scales the ATR into the stop distance.
	ATRMultiplier float64 `yaml:"atr_multiplier" json:"atr_multiplier" default:"1.5" validate:"gt=0"`
	// MinStrength demotes weaker signals to no-signal. Zero keeps everything.
	MinStrength float64 `yaml:"min_strength" json:"min_strength" validate:"gte=0,lte=100"`
	// Timeframe is provenance metadata stamped on produced signals.
	Timeframe string `yaml:"timeframe" json:"timeframe" default:"M15"`

	// UseVolatilityFilter suppresses signals while ATR is outside
	// [MinVolatility, MaxVolatility] (price units).
	UseVolatilityFilter bool    `yaml:"use_volatility_filter" json:"use_volatility_filter"`
	MinVolatility       float64 `yaml:"min_volatility" json:"min_volatility" validate:"gte=0"`
	MaxVolatility       float64 `yaml:"max_volatility" json:"max_volatility" validate:"gte=0"`

	// UseSessionFilter suppresses signals outside all enabled sessions.
	// Session windows are venue server-time hours and may overlap.
	UseSessionFilter bool `yaml:"use_session_filter" json:"use_session_filter"`
	AsianSession     bool `yaml:"asian_session" json:"asian_session"`
	EuropeanSession  bool `yaml:"european_session" json:"european_session"`
	USSession        bool `yaml:"us_session" json:"us_session"`
}

// Analyzer evaluates the indicator feed into trade signals. It keeps no
// state between evaluations other than the cached ATR refreshed by Update.
type Analyzer struct {
	cfg    Config
	feed   feed.Feed
	venue  venue.Venue
	logger *logger.Logger

	currentATR float64
}

// New creates an Analyzer. The venue reference is non-owning and used only
// for quote and symbol reads.
func New(cfg Config, indicatorFeed feed.Feed, v venue.Venue, log *logger.Logger) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		feed:       indicatorFeed,
		venue:      v,
		logger:     log,
		currentATR: 0,
	}
}

// Update refreshes the cached ATR from the feed. On feed failure it logs,
// keeps the previous value and returns the error; the caller decides whether
// to continue the cycle.
func (a *Analyzer) Update() error {
	values, err := a.feed.Values(types.IndicatorATR, 1)
	if err != nil {
		a.logger.Warn("failed to refresh ATR from feed", zap.Error(err))

		return errors.Wrap(errors.ErrCodeFeedCopyFailed, "failed to refresh ATR", err)
	}

	a.currentATR = values[0]

	return nil
}

// CurrentATR returns the last ATR value cached by Update.
func (a *Analyzer) CurrentATR() float64 {
	return a.currentATR
}

// Signal evaluates the feed into a trade signal for the given server time.
// A gated or weak evaluation returns a DirectionNone signal with nil error;
// a feed failure aborts the evaluation for this tick and returns the error.
func (a *Analyzer) Signal(now time.Time) (types.Signal, error) {
	if a.cfg.UseSessionFilter && !a.inEnabledSession(now) {
		return types.NoSignal(), nil
	}

	if a.cfg.UseVolatilityFilter &&
		(a.currentATR < a.cfg.MinVolatility || a.currentATR > a.cfg.MaxVolatility) {
		return types.NoSignal(), nil
	}

	snapshot, err := a.readSnapshot()
	if err != nil {
		return types.NoSignal(), errors.Wrap(errors.ErrCodeSignalEvaluation, "signal evaluation aborted", err)
	}

	direction := snapshot.direction()
	if direction == types.DirectionNone {
		return types.NoSignal(), nil
	}

	tick, err := a.venue.Tick()
	if err != nil {
		return types.NoSignal(), errors.Wrap(errors.ErrCodeSignalEvaluation, "no quote for signal entry", err)
	}

	info, err := a.venue.SymbolInfo()
	if err != nil {
		return types.NoSignal(), errors.Wrap(errors.ErrCodeSignalEvaluation, "no symbol info for signal", err)
	}

	signal := a.buildSignal(direction, tick, info, snapshot, now)

	if signal.Strength < a.cfg.MinStrength {
		a.logger.Debug("signal below minimum strength, discarded",
			zap.String("direction", string(direction)),
			zap.Float64("strength", signal.Strength),
			zap.Float64("min_strength", a.cfg.MinStrength),
		)

		return types.NoSignal(), nil
	}

	return signal, nil
}

// feedSnapshot holds the indicator values one evaluation works from.
type feedSnapshot struct {
	fastMA     []float64 // [0] newest, [1] previous
	slowMA     []float64
	macd       []float64
	macdSignal []float64
	rsi        float64
}

func (a *Analyzer) readSnapshot() (feedSnapshot, error) {
	var snapshot feedSnapshot

	var err error

	if snapshot.fastMA, err = a.feed.Values(types.IndicatorFastMA, 2); err != nil {
		return feedSnapshot{}, err
	}

	if snapshot.slowMA, err = a.feed.Values(types.IndicatorSlowMA, 2); err != nil {
		return feedSnapshot{}, err
	}

	if snapshot.macd, err = a.feed.Values(types.IndicatorMACD, 2); err != nil {
		return feedSnapshot{}, err
	}

	if snapshot.macdSignal, err = a.feed.Values(types.IndicatorMACDSignal, 2); err != nil {
		return feedSnapshot{}, err
	}

	rsi, err := a.feed.Values(types.IndicatorRSI, 1)
	if err != nil {
		return feedSnapshot{}, err
	}

	snapshot.rsi = rsi[0]

	return snapshot, nil
}

// direction resolves the crossover conditions into a candidate direction.
// Cross-up and cross-down are mutually exclusive by construction, so at most
// one direction can fire per evaluation.
func (s feedSnapshot) direction() types.Direction {
	maCrossUp := s.fastMA[1] <= s.slowMA[1] && s.fastMA[0] > s.slowMA[0]
	maCrossDown := s.fastMA[1] >= s.slowMA[1] && s.fastMA[0] < s.slowMA[0]
	macdCrossUp := s.macd[1] <= s.macdSignal[1] && s.macd[0] > s.macdSignal[0]
	macdCrossDown := s.macd[1] >= s.macdSignal[1] && s.macd[0] < s.macdSignal[0]

	if maCrossUp && macdCrossUp && s.rsi < rsiOverbought {
		return types.DirectionBuy
	}

	if maCrossDown && macdCrossDown && s.rsi > rsiOversold {
		return types.DirectionSell
	}

	return types.DirectionNone
}

func (a *Analyzer) buildSignal(
	direction types.Direction,
	tick types.Tick,
	info types.SymbolInfo,
	snapshot feedSnapshot,
	now time.Time,
) types.Signal {
	stopDistance := a.currentATR * a.cfg.ATRMultiplier

	var entry, stop, target float64

	if direction == types.DirectionBuy {
		entry = tick.Ask
		stop = entry - stopDistance
		target = entry + 2*stopDistance
	} else {
		entry = tick.Bid
		stop = entry + stopDistance
		target = entry - 2*stopDistance
	}

	// Target distance is twice the stop distance, so the ratio is 2 by
	// construction. The risk engine applies its own reward gate on top.
	rewardRisk := 2.0

	return types.Signal{
		Direction:       direction,
		EntryPrice:      entry,
		StopLoss:        stop,
		TakeProfit:      target,
		RewardRiskRatio: rewardRisk,
		Strength:        a.strength(direction, info, snapshot),
		Source:          "analyzer",
		Timeframe:       a.cfg.Timeframe,
		Time:            now,
	}
}

// strength scores a candidate in [20, 100]: a base of 20 plus four
// sub-scores (trend divergence, oscillator divergence, momentum, volatility)
// each clamped to [0, 20] before summation.
func (a *Analyzer) strength(direction types.Direction, info types.SymbolInfo, snapshot feedSnapshot) float64 {
	score := baseStrength

	if snapshot.slowMA[0] != 0 {
		divergencePct := abs(snapshot.fastMA[0]-snapshot.slowMA[0]) / abs(snapshot.slowMA[0]) * 100
		score += clamp(divergencePct*5, 0, 20)
	}

	score += clamp(abs(snapshot.macd[0]-snapshot.macdSignal[0])*100, 0, 20)

	// RSI distance from the 50 midline, counted only when it leans in the
	// signal's direction.
	var momentum float64
	if direction == types.DirectionBuy {
		momentum = (snapshot.rsi - 50) / 50 * 20
	} else {
		momentum = (50 - snapshot.rsi) / 50 * 20
	}

	score += clamp(momentum, 0, 20)

	if info.Point > 0 {
		atrPoints := a.currentATR / info.Point
		score += clamp(atrPoints/10, 0, 20)
	}

	return score
}

func (a *Analyzer) inEnabledSession(now time.Time) bool {
	hour := now.Hour()

	if a.cfg.AsianSession && hour >= 0 && hour < 8 {
		return true
	}

	if a.cfg.EuropeanSession && hour >= 8 && hour < 16 {
		return true
	}

	if a.cfg.USSession && hour >= 14 && hour < 23 {
		return true
	}

	return false
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}

	if value > high {
		return high
	}

	return value
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}

	return value
}
