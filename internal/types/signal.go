package types

import (
	"time"

	"github.com/aurumlab/goldcore/pkg/errors"
)

// Signal is the outcome of one analyzer evaluation cycle. It is produced
// fresh on every call and never persisted.
type Signal struct {
	// Direction is the trade direction; DirectionNone means no signal.
	Direction Direction
	// EntryPrice is the proposed entry (ask for buy, bid for sell).
	EntryPrice float64
	// StopLoss is the protective stop price.
	StopLoss float64
	// TakeProfit is the target price.
	TakeProfit float64
	// RewardRiskRatio is |target-entry| / |entry-stop|.
	RewardRiskRatio float64
	// Strength is the additive signal score, nominal range [20, 100].
	Strength float64
	// Source names the component that produced the signal.
	Source string
	// Timeframe is the bar timeframe the signal was evaluated on.
	Timeframe string
	// Time is when the signal was generated.
	Time time.Time
}

// NoSignal returns an empty signal with DirectionNone.
func NoSignal() Signal {
	return Signal{
		Direction:       DirectionNone,
		EntryPrice:      0,
		StopLoss:        0,
		TakeProfit:      0,
		RewardRiskRatio: 0,
		Strength:        0,
		Source:          "",
		Timeframe:       "",
		Time:            time.Time{},
	}
}

// IsActionable reports whether the signal proposes a trade.
func (s Signal) IsActionable() bool {
	return s.Direction == DirectionBuy || s.Direction == DirectionSell
}

// Validate checks the price-ordering invariant: for a buy the stop must lie
// below the entry and the target above it, mirrored for a sell.
func (s Signal) Validate() error {
	if !s.IsActionable() {
		return nil
	}

	if s.EntryPrice <= 0 || s.StopLoss <= 0 || s.TakeProfit <= 0 {
		return errors.Newf(errors.ErrCodeSignalMisordered,
			"signal prices must be positive: entry=%.5f sl=%.5f tp=%.5f",
			s.EntryPrice, s.StopLoss, s.TakeProfit)
	}

	if s.StopLoss == s.EntryPrice {
		return errors.New(errors.ErrCodeSignalZeroStop, "stop loss equals entry price")
	}

	switch s.Direction {
	case DirectionBuy:
		if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit) {
			return errors.Newf(errors.ErrCodeSignalMisordered,
				"buy signal requires sl < entry < tp: entry=%.5f sl=%.5f tp=%.5f",
				s.EntryPrice, s.StopLoss, s.TakeProfit)
		}
	case DirectionSell:
		if !(s.TakeProfit < s.EntryPrice && s.EntryPrice < s.StopLoss) {
			return errors.Newf(errors.ErrCodeSignalMisordered,
				"sell signal requires tp < entry < sl: entry=%.5f sl=%.5f tp=%.5f",
				s.EntryPrice, s.StopLoss, s.TakeProfit)
		}
	}

	return nil
}
