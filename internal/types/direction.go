package types

// Direction is the trade direction of a signal, position or deal.
type Direction string

const (
	// DirectionNone means no trade should be taken
	DirectionNone Direction = "none"
	// DirectionBuy is a long trade
	DirectionBuy Direction = "buy"
	// DirectionSell is a short trade
	DirectionSell Direction = "sell"
)

// Opposite returns the opposite trade direction. DirectionNone maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionBuy:
		return DirectionSell
	case DirectionSell:
		return DirectionBuy
	default:
		return DirectionNone
	}
}
