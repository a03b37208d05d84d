// Package loans estimates repayment figures for qualifying offers.
package loans

import (
	"math"

	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/mathutil"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
)

// Estimate holds the repayment figures for one offer.
type Estimate struct {
	LenderName     string  `json:"lenderName"`
	InterestRate   float64 `json:"interestRate"`
	TermMonths     int     `json:"termMonths"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalInterest  float64 `json:"totalInterest"`
}

// CalculateMonthlyPayment calculates the monthly payment for a loan using the
// standard amortization formula. annualInterestRate is a percentage.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) float64 {
	if termMonths <= 0 || principal <= 0 {
		return 0
	}
	if annualInterestRate == 0 {
		return principal / float64(termMonths)
	}

	periodicInterestRate := annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	discountFactor := (power - 1.00) / power
	return principal * periodicInterestRate / discountFactor
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * annualInterestRate / (constants.PercentageMultiplier * constants.MonthsPerYear)
}

// EstimateOffer computes the rounded repayment figures for borrowing
// loanAmount from offer over termMonths. Total interest is accumulated over
// the amortization schedule.
func EstimateOffer(offer ratesheet.Offer, loanAmount float64, termMonths int) Estimate {
	payment := CalculateMonthlyPayment(loanAmount, offer.InterestRate, termMonths)
	totalInterest := 0.0
	if payment > 0 {
		remaining := loanAmount
		for month := 0; month < termMonths; month++ {
			interest := CalculateInterestPayment(remaining, offer.InterestRate)
			totalInterest += interest
			remaining -= payment - interest
		}
		totalInterest = math.Max(totalInterest, 0)
	}

	return Estimate{
		LenderName:     offer.LenderName,
		InterestRate:   offer.InterestRate,
		TermMonths:     termMonths,
		MonthlyPayment: mathutil.Round(payment),
		TotalInterest:  mathutil.Round(totalInterest),
	}
}

// EstimateOffers returns one estimate per offer, in offer order.
func EstimateOffers(offers []ratesheet.Offer, loanAmount float64, termMonths int) []Estimate {
	estimates := make([]Estimate, 0, len(offers))
	for _, offer := range offers {
		estimates = append(estimates, EstimateOffer(offer, loanAmount, termMonths))
	}
	return estimates
}
