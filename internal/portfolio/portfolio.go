// Package portfolio is the single source of truth for account performance:
// balance, equity, high-water mark, daily and lifetime P&L buckets, and the
// derived statistics the risk engine gates on.
package portfolio

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// Config holds the portfolio protection thresholds. A zero threshold
// disables the corresponding gate.
type Config struct {
	// DailyLossLimitPercent trips the daily-loss gate when the day's realized
	// loss reaches this percentage of the initial balance.
	DailyLossLimitPercent float64 `yaml:"daily_loss_limit_percent" json:"daily_loss_limit_percent" default:"5" validate:"gte=0,lte=100"`
	// MaxDrawdownPercent trips the drawdown gate when equity falls this far
	// below the high-water mark.
	MaxDrawdownPercent float64 `yaml:"max_drawdown_percent" json:"max_drawdown_percent" default:"20" validate:"gte=0,lte=100"`
}

// Stats are derived performance numbers, recomputed from the venue's full
// deal history rather than accumulated incrementally, so they cannot drift
// from the true account record.
type Stats struct {
	Trades       int     `yaml:"trades" json:"trades"`
	Wins         int     `yaml:"wins" json:"wins"`
	Losses       int     `yaml:"losses" json:"losses"`
	WinRate      float64 `yaml:"win_rate" json:"win_rate"`
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	AverageWin   float64 `yaml:"average_win" json:"average_win"`
	AverageLoss  float64 `yaml:"average_loss" json:"average_loss"`
}

// Snapshot is a point-in-time copy of the portfolio state, written as the
// YAML run report.
type Snapshot struct {
	Time           time.Time `yaml:"time" json:"time"`
	InitialBalance float64   `yaml:"initial_balance" json:"initial_balance"`
	Balance        float64   `yaml:"balance" json:"balance"`
	Equity         float64   `yaml:"equity" json:"equity"`
	HighWaterMark  float64   `yaml:"high_water_mark" json:"high_water_mark"`
	DrawdownPct    float64   `yaml:"drawdown_pct" json:"drawdown_pct"`
	TotalProfit    float64   `yaml:"total_profit" json:"total_profit"`
	TotalLoss      float64   `yaml:"total_loss" json:"total_loss"`
	DailyProfit    float64   `yaml:"daily_profit" json:"daily_profit"`
	DailyLoss      float64   `yaml:"daily_loss" json:"daily_loss"`
	Stats          Stats     `yaml:"stats" json:"stats"`
}

// Portfolio tracks account state. Loss buckets (totalLoss, dailyLoss) hold
// positive magnitudes. The daily buckets are reset at each detected calendar
// day rollover; nothing else in the model is ever reset.
type Portfolio struct {
	venue  venue.Venue
	logger *logger.Logger
	cfg    Config
	symbol string
	magic  int64

	initialBalance float64
	currentBalance float64
	currentEquity  float64
	highWaterMark  float64

	totalProfit float64
	totalLoss   float64
	dailyProfit float64
	dailyLoss   float64

	stats      Stats
	lastUpdate time.Time
}

// New creates a Portfolio and seeds it from the venue's current account
// state. The initial balance is fixed here and never changes afterwards.
func New(cfg Config, v venue.Venue, symbol string, magic int64, log *logger.Logger) (*Portfolio, error) {
	account, err := v.AccountInfo()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAccountQueryFailed, "failed to read initial account state", err)
	}

	if account.Balance <= 0 {
		return nil, errors.Newf(errors.ErrCodeAccountQueryFailed,
			"cannot start with non-positive balance %.2f", account.Balance)
	}

	return &Portfolio{
		venue:          v,
		logger:         log,
		cfg:            cfg,
		symbol:         symbol,
		magic:          magic,
		initialBalance: account.Balance,
		currentBalance: account.Balance,
		currentEquity:  account.Equity,
		highWaterMark:  account.Equity,
		totalProfit:    0,
		totalLoss:      0,
		dailyProfit:    0,
		dailyLoss:      0,
		stats:          Stats{},
		lastUpdate:     time.Time{},
	}, nil
}

// Update re-reads balance and equity from the venue, advances the high-water
// mark and resets the daily buckets when the calendar day has rolled over.
func (p *Portfolio) Update(now time.Time) error {
	account, err := p.venue.AccountInfo()
	if err != nil {
		return errors.Wrap(errors.ErrCodeAccountQueryFailed, "failed to refresh account state", err)
	}

	p.currentBalance = account.Balance
	p.currentEquity = account.Equity

	if p.currentEquity > p.highWaterMark {
		p.highWaterMark = p.currentEquity
	}

	if !p.lastUpdate.IsZero() && !sameDay(p.lastUpdate, now) {
		p.logger.Info("calendar day rollover, resetting daily P&L",
			zap.Float64("daily_profit", p.dailyProfit),
			zap.Float64("daily_loss", p.dailyLoss),
		)

		p.dailyProfit = 0
		p.dailyLoss = 0
	}

	p.lastUpdate = now

	return nil
}

// AddTradeResult folds one realized trade's net P&L into the daily and
// lifetime buckets (strictly one bucket, by sign), then recomputes the
// derived stats from the venue's full deal history.
func (p *Portfolio) AddTradeResult(profit, commission, swap float64) error {
	net := profit + commission + swap

	if net >= 0 {
		p.totalProfit += net
		p.dailyProfit += net
	} else {
		p.totalLoss += -net
		p.dailyLoss += -net
	}

	return p.recomputeStats()
}

func (p *Portfolio) recomputeStats() error {
	deals, err := p.venue.Deals(types.DealFilter{Symbol: p.symbol, Magic: p.magic})
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryQueryFailed, "failed to query deal history", err)
	}

	var stats Stats

	var grossProfit, grossLoss float64

	for _, deal := range deals {
		net := deal.NetProfit()
		stats.Trades++

		if net >= 0 {
			stats.Wins++
			grossProfit += net
		} else {
			stats.Losses++
			grossLoss += -net
		}
	}

	if stats.Trades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Trades) * 100
	}

	if stats.Wins > 0 {
		stats.AverageWin = grossProfit / float64(stats.Wins)
	}

	if stats.Losses > 0 {
		stats.AverageLoss = grossLoss / float64(stats.Losses)
	}

	// Profit factor is undefined without losses; reported as 0 until the
	// first losing trade.
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	}

	p.stats = stats

	return nil
}

// CurrentDrawdownPercent returns how far equity sits below the high-water
// mark, as a percentage of the mark.
func (p *Portfolio) CurrentDrawdownPercent() float64 {
	if p.highWaterMark <= 0 {
		return 0
	}

	drawdown := (p.highWaterMark - p.currentEquity) / p.highWaterMark * 100
	if drawdown < 0 {
		return 0
	}

	return drawdown
}

// DailyLossPercent returns the day's realized loss as a percentage of the
// initial balance.
func (p *Portfolio) DailyLossPercent() float64 {
	if p.initialBalance <= 0 {
		return 0
	}

	return p.dailyLoss / p.initialBalance * 100
}

// IsDailyLossLimitReached reports whether today's realized loss has reached
// the configured limit. A zero limit disables the gate.
func (p *Portfolio) IsDailyLossLimitReached() bool {
	if p.cfg.DailyLossLimitPercent <= 0 {
		return false
	}

	return p.DailyLossPercent() >= p.cfg.DailyLossLimitPercent
}

// IsDrawdownLimitReached reports whether the equity drawdown from the
// high-water mark has reached the configured limit. A zero limit disables
// the gate.
func (p *Portfolio) IsDrawdownLimitReached() bool {
	if p.cfg.MaxDrawdownPercent <= 0 {
		return false
	}

	return p.CurrentDrawdownPercent() >= p.cfg.MaxDrawdownPercent
}

// Balance returns the last observed realized balance.
func (p *Portfolio) Balance() float64 { return p.currentBalance }

// Equity returns the last observed equity.
func (p *Portfolio) Equity() float64 { return p.currentEquity }

// InitialBalance returns the balance fixed at startup.
func (p *Portfolio) InitialBalance() float64 { return p.initialBalance }

// HighWaterMark returns the highest equity observed so far.
func (p *Portfolio) HighWaterMark() float64 { return p.highWaterMark }

// TotalProfit returns the lifetime realized profit magnitude.
func (p *Portfolio) TotalProfit() float64 { return p.totalProfit }

// TotalLoss returns the lifetime realized loss magnitude.
func (p *Portfolio) TotalLoss() float64 { return p.totalLoss }

// DailyProfit returns today's realized profit magnitude.
func (p *Portfolio) DailyProfit() float64 { return p.dailyProfit }

// DailyLoss returns today's realized loss magnitude.
func (p *Portfolio) DailyLoss() float64 { return p.dailyLoss }

// Statistics returns the derived performance stats.
func (p *Portfolio) Statistics() Stats { return p.stats }

// Snapshot returns a copy of the current state for reporting.
func (p *Portfolio) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Time:           now,
		InitialBalance: p.initialBalance,
		Balance:        p.currentBalance,
		Equity:         p.currentEquity,
		HighWaterMark:  p.highWaterMark,
		DrawdownPct:    p.CurrentDrawdownPercent(),
		TotalProfit:    p.totalProfit,
		TotalLoss:      p.totalLoss,
		DailyProfit:    p.dailyProfit,
		DailyLoss:      p.dailyLoss,
		Stats:          p.stats,
	}
}

// WriteSnapshot writes the snapshot to a YAML file.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio snapshot to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write portfolio snapshot to file: %w", err)
	}

	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
