// Package output provides utilities for formatting and displaying qualification results.
package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/format"
	"github.com/iwvelando/loan-qualifier/pkg/loans"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
)

// Summary prints the derived ratios and how many loans qualified.
func Summary(w io.Writer, result qualifier.Result) {
	_, _ = fmt.Fprintf(w, "The monthly debt to income ratio is %.02f\n", result.Ratios.DebtToIncome)
	_, _ = fmt.Fprintf(w, "The loan to value ratio is %.02f.\n", result.Ratios.LoanToValue)
	_, _ = fmt.Fprintf(w, "Found %d qualifying loans\n", len(result.Offers))
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, offers []ratesheet.Offer) {
	if len(offers) == 0 {
		_, _ = fmt.Fprintln(w, constants.NoQualifyingLoansMessage)
		return
	}

	_, _ = fmt.Fprintln(w, "Here are the loans you qualify for:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(constants.RateSheetHeader, "\t"))
	separators := make([]string, len(constants.RateSheetHeader))
	for i, column := range constants.RateSheetHeader {
		separators[i] = strings.Repeat("_", len(column))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(separators, "\t"))

	for _, offer := range offers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			offer.LenderName,
			format.Currency(offer.MaxLoanAmount),
			format.Ratio(offer.MaxLoanToValue),
			format.Ratio(offer.MaxDebtToIncome),
			offer.MinCreditScore,
			format.Rate(offer.InterestRate),
		)
	}
	_ = tw.Flush()
}

// PaymentEstimates prints the estimated repayments for each qualifying offer.
func PaymentEstimates(w io.Writer, estimates []loans.Estimate) {
	if len(estimates) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "\nEstimated payments over %d months:\n", estimates[0].TermMonths)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Lender\tInterest Rate\tMonthly Payment\tTotal Interest")
	for _, estimate := range estimates {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			estimate.LenderName,
			format.Rate(estimate.InterestRate),
			format.Currency(estimate.MonthlyPayment),
			format.Currency(estimate.TotalInterest),
		)
	}
	_ = tw.Flush()
}

// CsvFormat outputs the offers in rate sheet CSV format.
func CsvFormat(w io.Writer, offers []ratesheet.Offer) error {
	return ratesheet.Write(w, offers)
}

// CsvString returns the offers in rate sheet CSV format.
func CsvString(offers []ratesheet.Offer) string {
	var buf bytes.Buffer
	if err := ratesheet.Write(&buf, offers); err != nil {
		return ""
	}
	return buf.String()
}
