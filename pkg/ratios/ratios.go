// Package ratios computes the financial ratios lenders underwrite against.
package ratios

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when a ratio denominator is not a positive
// finite number.
var ErrInvalidInput = errors.New("invalid input")

// DebtToIncome returns monthly debt payments divided by monthly income.
func DebtToIncome(monthlyDebt, monthlyIncome float64) (float64, error) {
	if !positiveFinite(monthlyIncome) {
		return 0, fmt.Errorf("%w: monthly income must be positive, got %.2f", ErrInvalidInput, monthlyIncome)
	}
	return monthlyDebt / monthlyIncome, nil
}

// LoanToValue returns the requested loan amount divided by the home value.
func LoanToValue(loanAmount, homeValue float64) (float64, error) {
	if !positiveFinite(homeValue) {
		return 0, fmt.Errorf("%w: home value must be positive, got %.2f", ErrInvalidInput, homeValue)
	}
	return loanAmount / homeValue, nil
}

// positiveFinite reports whether v is greater than zero and finite. NaN
// compares false against everything, so it fails the first check.
func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
