package validation

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Conventional bounds of consumer credit scores. Scores outside the range
// are accepted but reported as warnings.
const (
	MinTypicalCreditScore = 300
	MaxTypicalCreditScore = 850
)

// ValidateCreditScore checks that a credit score is positive.
func ValidateCreditScore(score int) error {
	if score <= 0 {
		return fmt.Errorf("credit score must be positive, got %d", score)
	}
	return nil
}

// ValidateAmount checks a monetary amount. Zero is accepted only when allowZero is set.
func ValidateAmount(name string, value float64, allowZero bool) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s must be a finite number, got %v", name, value)
	}
	if value < 0 || (!allowZero && value == 0) {
		qualifier := "positive"
		if allowZero {
			qualifier = "non-negative"
		}
		return fmt.Errorf("%s must be %s, got %.2f", name, qualifier, value)
	}
	return nil
}

// ApplicantWarnings flags figures that are legal but unusual.
func ApplicantWarnings(creditScore int, loanAmount, homeValue float64) []string {
	var warnings []string
	if creditScore < MinTypicalCreditScore || creditScore > MaxTypicalCreditScore {
		warnings = append(warnings, fmt.Sprintf("credit score %d is outside the usual range %d-%d",
			creditScore, MinTypicalCreditScore, MaxTypicalCreditScore))
	}
	if homeValue > 0 && loanAmount > homeValue {
		warnings = append(warnings, fmt.Sprintf("loan amount %.2f exceeds the home value %.2f",
			loanAmount, homeValue))
	}
	return warnings
}

// ValidateSavePath checks that qualifying loans are being saved to a .csv file.
func ValidateSavePath(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return fmt.Errorf("save path is empty")
	}
	if !strings.EqualFold(filepath.Ext(trimmed), ".csv") {
		return fmt.Errorf("save path %s must end in .csv", trimmed)
	}
	return nil
}
