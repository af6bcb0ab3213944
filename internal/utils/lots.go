package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// NormalizeLots clamps a volume to [minLot, maxLot], rounds it down to the
// venue's lot step and normalizes the result to two decimal places. Rounding
// is downward, not half-to-nearest, so a normalized size never carries more
// risk than the raw computed size. Normalizing an already-normalized volume
// is a no-op.
//
// Decimal arithmetic avoids the float drift of volume/step division
// (0.30/0.01 is 29.999... in binary floats).
func NormalizeLots(volume, minLot, maxLot, step float64) float64 {
	if step <= 0 || maxLot <= 0 || minLot > maxLot {
		return 0
	}

	if volume < minLot {
		volume = minLot
	}

	if volume > maxLot {
		volume = maxLot
	}

	steps := decimal.NewFromFloat(volume).Div(decimal.NewFromFloat(step)).Floor()
	normalized := steps.Mul(decimal.NewFromFloat(step)).Round(2)

	result, _ := normalized.Float64()

	return result
}

// IsLotStepAligned reports whether volume is an integer multiple of step
// within floating tolerance.
func IsLotStepAligned(volume, step float64) bool {
	if step <= 0 {
		return false
	}

	ratio := volume / step
	_, frac := math.Modf(ratio + 1e-8)

	return frac < 2e-8 || frac > 1-2e-8
}

// RoundToDigits rounds a price to the given number of decimal places.
func RoundToDigits(price float64, digits int) float64 {
	result, _ := decimal.NewFromFloat(price).Round(int32(digits)).Float64()

	return result
}
