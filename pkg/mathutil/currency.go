// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/loan-qualifier/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// Percent converts a fractional ratio to a percentage rounded to two decimals.
func Percent(ratio float64) float64 {
	return Round(ratio * constants.PercentageMultiplier)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}
