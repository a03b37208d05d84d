// Package format renders rate sheet figures for people to read.
package format

import (
	"math"

	"github.com/iwvelando/loan-qualifier/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := printer.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Ratio renders a fractional ratio as a percentage (e.g., 0.833 -> "83.30%").
func Ratio(ratio float64) string {
	return printer.Sprintf("%.2f%%", mathutil.Percent(ratio))
}

// Rate renders an interest rate as it appears on the rate sheet.
func Rate(rate float64) string {
	return printer.Sprintf("%.3f", rate)
}
