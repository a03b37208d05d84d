// Package filters narrows a list of lender offers to those whose eligibility
// ceilings are not exceeded by an applicant's figures.
//
// Every filter is stable and never mutates its input: the returned slice is
// freshly allocated, holds the surviving offers in their original order, and
// is empty (not nil) when nothing survives. Ceilings are inclusive, so an
// applicant figure equal to an offer's limit qualifies.
package filters

import (
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
)

// Predicate reports whether an offer should be kept.
type Predicate func(offer ratesheet.Offer) bool

// Keep returns the offers for which keep reports true.
func Keep(offers []ratesheet.Offer, keep Predicate) []ratesheet.Offer {
	kept := make([]ratesheet.Offer, 0, len(offers))
	for _, offer := range offers {
		if keep(offer) {
			kept = append(kept, offer)
		}
	}
	return kept
}

// MaxLoanSize keeps offers that lend at least loanAmount.
func MaxLoanSize(loanAmount float64, offers []ratesheet.Offer) []ratesheet.Offer {
	return Keep(offers, func(offer ratesheet.Offer) bool {
		return offer.MaxLoanAmount >= loanAmount
	})
}

// CreditScore keeps offers whose minimum credit score the applicant meets.
func CreditScore(creditScore int, offers []ratesheet.Offer) []ratesheet.Offer {
	return Keep(offers, func(offer ratesheet.Offer) bool {
		return creditScore >= offer.MinCreditScore
	})
}

// DebtToIncome keeps offers that tolerate the given debt-to-income ratio.
func DebtToIncome(ratio float64, offers []ratesheet.Offer) []ratesheet.Offer {
	return Keep(offers, func(offer ratesheet.Offer) bool {
		return offer.MaxDebtToIncome >= ratio
	})
}

// LoanToValue keeps offers that tolerate the given loan-to-value ratio.
func LoanToValue(ratio float64, offers []ratesheet.Offer) []ratesheet.Offer {
	return Keep(offers, func(offer ratesheet.Offer) bool {
		return offer.MaxLoanToValue >= ratio
	})
}

// Stage is one named step of a filter chain with its threshold already bound.
type Stage struct {
	Name  string
	Apply func(offers []ratesheet.Offer) []ratesheet.Offer
}

// Stage names, in the order Chain returns them.
const (
	StageMaxLoanSize  = "max_loan_size"
	StageCreditScore  = "credit_score"
	StageDebtToIncome = "debt_to_income"
	StageLoanToValue  = "loan_to_value"
)

// Chain binds the four thresholds to their filters in qualification order:
// loan size, credit score, debt-to-income, loan-to-value.
func Chain(loanAmount float64, creditScore int, debtToIncome, loanToValue float64) []Stage {
	return []Stage{
		{Name: StageMaxLoanSize, Apply: func(offers []ratesheet.Offer) []ratesheet.Offer {
			return MaxLoanSize(loanAmount, offers)
		}},
		{Name: StageCreditScore, Apply: func(offers []ratesheet.Offer) []ratesheet.Offer {
			return CreditScore(creditScore, offers)
		}},
		{Name: StageDebtToIncome, Apply: func(offers []ratesheet.Offer) []ratesheet.Offer {
			return DebtToIncome(debtToIncome, offers)
		}},
		{Name: StageLoanToValue, Apply: func(offers []ratesheet.Offer) []ratesheet.Offer {
			return LoanToValue(loanToValue, offers)
		}},
	}
}
