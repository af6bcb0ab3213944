package types

import "time"

// Tick is the venue's best bid/ask snapshot at a point in time.
type Tick struct {
	// Time is the venue (server) time of the quote.
	Time time.Time `json:"time" yaml:"time" csv:"time"`
	// Bid is the best bid price.
	Bid float64 `json:"bid" yaml:"bid" csv:"bid"`
	// Ask is the best ask price.
	Ask float64 `json:"ask" yaml:"ask" csv:"ask"`
}

// Spread returns the ask-bid spread in price units.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// SymbolInfo carries the venue's trading constraints for one instrument.
// Constraints can change tick to tick, so callers must re-fetch them
// immediately before every mutating operation instead of caching a snapshot.
type SymbolInfo struct {
	// Symbol is the instrument name, e.g. "XAUUSD".
	Symbol string `json:"symbol" yaml:"symbol"`
	// Point is the smallest price increment (0.01 for XAUUSD on 2-digit quotes).
	Point float64 `json:"point" yaml:"point"`
	// Digits is the number of decimal places in quoted prices.
	Digits int `json:"digits" yaml:"digits"`
	// TickValue is the account-currency value of one point per one lot.
	TickValue float64 `json:"tick_value" yaml:"tick_value"`
	// StopDistancePoints is the minimum distance, in points, the venue
	// requires between market price and any stop/limit/SL/TP level.
	StopDistancePoints float64 `json:"stop_distance_points" yaml:"stop_distance_points"`
	// MinLot is the smallest tradable volume.
	MinLot float64 `json:"min_lot" yaml:"min_lot"`
	// MaxLot is the largest tradable volume.
	MaxLot float64 `json:"max_lot" yaml:"max_lot"`
	// LotStep is the volume increment.
	LotStep float64 `json:"lot_step" yaml:"lot_step"`
}

// StopDistance returns the minimum stop distance in price units.
func (s SymbolInfo) StopDistance() float64 {
	return s.StopDistancePoints * s.Point
}
