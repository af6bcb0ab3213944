package types

import "time"

// PendingType is the resting order type.
type PendingType string

const (
	PendingTypeBuyLimit  PendingType = "buy_limit"
	PendingTypeSellLimit PendingType = "sell_limit"
	PendingTypeBuyStop   PendingType = "buy_stop"
	PendingTypeSellStop  PendingType = "sell_stop"
)

// Direction returns the trade direction the pending order opens once triggered.
func (p PendingType) Direction() Direction {
	switch p {
	case PendingTypeBuyLimit, PendingTypeBuyStop:
		return DirectionBuy
	case PendingTypeSellLimit, PendingTypeSellStop:
		return DirectionSell
	default:
		return DirectionNone
	}
}

// Position is an open position as mirrored from the venue. The venue owns the
// record; this struct is a read-only snapshot.
type Position struct {
	// Ticket is the venue-assigned position id.
	Ticket int64 `json:"ticket" yaml:"ticket" csv:"ticket"`
	// Symbol is the instrument the position is in.
	Symbol string `json:"symbol" yaml:"symbol" csv:"symbol"`
	// Direction is buy or sell.
	Direction Direction `json:"direction" yaml:"direction" csv:"direction"`
	// Volume is the position size in lots.
	Volume float64 `json:"volume" yaml:"volume" csv:"volume"`
	// OpenPrice is the fill price.
	OpenPrice float64 `json:"open_price" yaml:"open_price" csv:"open_price"`
	// StopLoss is the protective stop, 0 when not set.
	StopLoss float64 `json:"stop_loss" yaml:"stop_loss" csv:"stop_loss"`
	// TakeProfit is the target, 0 when not set.
	TakeProfit float64 `json:"take_profit" yaml:"take_profit" csv:"take_profit"`
	// Magic is the ownership tag distinguishing this system's positions from
	// other strategies or manual trades on the same account.
	Magic int64 `json:"magic" yaml:"magic" csv:"magic"`
	// Profit is the current floating P&L.
	Profit float64 `json:"profit" yaml:"profit" csv:"profit"`
	// OpenTime is when the position was opened.
	OpenTime time.Time `json:"open_time" yaml:"open_time" csv:"open_time"`
	// Comment is the free-form comment attached at open time.
	Comment string `json:"comment" yaml:"comment" csv:"comment"`
}

// PendingOrder is a resting limit/stop order mirrored from the venue.
type PendingOrder struct {
	Ticket     int64       `json:"ticket" yaml:"ticket" csv:"ticket"`
	Symbol     string      `json:"symbol" yaml:"symbol" csv:"symbol"`
	Type       PendingType `json:"type" yaml:"type" csv:"type"`
	Volume     float64     `json:"volume" yaml:"volume" csv:"volume"`
	Price      float64     `json:"price" yaml:"price" csv:"price"`
	StopLoss   float64     `json:"stop_loss" yaml:"stop_loss" csv:"stop_loss"`
	TakeProfit float64     `json:"take_profit" yaml:"take_profit" csv:"take_profit"`
	Magic      int64       `json:"magic" yaml:"magic" csv:"magic"`
	Comment    string      `json:"comment" yaml:"comment" csv:"comment"`
}

// Deal is a realized (closed) trade. Closing a position is the only point
// profit is realized and fed to the portfolio.
type Deal struct {
	Ticket     int64     `json:"ticket" yaml:"ticket" csv:"ticket"`
	Symbol     string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	Direction  Direction `json:"direction" yaml:"direction" csv:"direction"`
	Volume     float64   `json:"volume" yaml:"volume" csv:"volume"`
	OpenPrice  float64   `json:"open_price" yaml:"open_price" csv:"open_price"`
	ClosePrice float64   `json:"close_price" yaml:"close_price" csv:"close_price"`
	// Profit is the gross price P&L, excluding commission and swap.
	Profit     float64   `json:"profit" yaml:"profit" csv:"profit"`
	Commission float64   `json:"commission" yaml:"commission" csv:"commission"`
	Swap       float64   `json:"swap" yaml:"swap" csv:"swap"`
	Magic      int64     `json:"magic" yaml:"magic" csv:"magic"`
	OpenTime   time.Time `json:"open_time" yaml:"open_time" csv:"open_time"`
	CloseTime  time.Time `json:"close_time" yaml:"close_time" csv:"close_time"`
}

// NetProfit is the deal's P&L after commission and swap.
func (d Deal) NetProfit() float64 {
	return d.Profit + d.Commission + d.Swap
}

// DealFilter selects deals when querying trade history.
type DealFilter struct {
	// Symbol filters by instrument (empty string means no filter)
	Symbol string `json:"symbol" yaml:"symbol"`
	// Magic filters by ownership tag (0 means no filter)
	Magic int64 `json:"magic" yaml:"magic"`
	// Since filters deals closed at or after this time (zero time means no filter)
	Since time.Time `json:"since" yaml:"since"`
}

// Matches reports whether the deal passes the filter.
func (f DealFilter) Matches(d Deal) bool {
	if f.Symbol != "" && d.Symbol != f.Symbol {
		return false
	}

	if f.Magic != 0 && d.Magic != f.Magic {
		return false
	}

	if !f.Since.IsZero() && d.CloseTime.Before(f.Since) {
		return false
	}

	return true
}
