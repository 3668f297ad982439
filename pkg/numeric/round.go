package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

// Storage rounding contract shared by the indicator and scoring engines.
const (
	PricePlaces = 2
	SMAPlaces   = 4
	RatioPlaces = 6
)

// Round rounds v half away from zero to the given number of decimal places.
// NaN and infinities collapse to 0 so downstream math degrades to neutral.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Price rounds a monetary value to 2 decimals
func Price(v float64) float64 {
	return Round(v, PricePlaces)
}

// Ratio rounds a return/momentum/volatility value to 6 decimals
func Ratio(v float64) float64 {
	return Round(v, RatioPlaces)
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampScore rounds v to the nearest integer and bounds it to [0, 100]
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(Clamp(v, 0, 100)))
}

// PctChange returns current/previous - 1, or 0 when previous is not positive
func PctChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return current/previous - 1
}
