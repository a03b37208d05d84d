// Package testutil provides common utility functions for testing.
package testutil

import (
	"fmt"

	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
)

// FindOffer finds an offer by lender name in the offers slice.
// Returns a pointer to the first match if found, nil otherwise.
func FindOffer(offers []ratesheet.Offer, lender string) *ratesheet.Offer {
	for i := range offers {
		if offers[i].LenderName == lender {
			return &offers[i]
		}
	}
	return nil
}

// GenerateOffers builds a deterministic rate sheet of n offers whose limits
// cycle through a spread of loan sizes, ratios and credit scores.
func GenerateOffers(n int) []ratesheet.Offer {
	offers := make([]ratesheet.Offer, n)
	for i := range offers {
		offers[i] = ratesheet.Offer{
			LenderName:      fmt.Sprintf("Lender %04d", i),
			MaxLoanAmount:   float64(100000 + (i%10)*50000),
			MaxLoanToValue:  0.70 + float64(i%6)*0.05,
			MaxDebtToIncome: 0.30 + float64(i%5)*0.05,
			MinCreditScore:  550 + (i%9)*30,
			InterestRate:    2.5 + float64(i%8)*0.25,
		}
	}
	return offers
}
