// Package qualifier runs an applicant through the lender eligibility filters
// and reports which offers on a rate sheet would underwrite the loan.
package qualifier

import (
	"fmt"

	"github.com/iwvelando/loan-qualifier/pkg/filters"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"github.com/iwvelando/loan-qualifier/pkg/ratios"
	"go.uber.org/zap"
)

// Applicant holds the figures an applicant supplies for one qualification run.
type Applicant struct {
	CreditScore   int     `json:"creditScore"`
	MonthlyDebt   float64 `json:"monthlyDebt"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	LoanAmount    float64 `json:"loanAmount"`
	HomeValue     float64 `json:"homeValue"`
}

// Ratios are derived from an Applicant once per run.
type Ratios struct {
	DebtToIncome float64 `json:"debtToIncomeRatio"`
	LoanToValue  float64 `json:"loanToValueRatio"`
}

// StageCount records how many offers entered and survived one filter stage.
type StageCount struct {
	Name string `json:"name"`
	In   int    `json:"in"`
	Out  int    `json:"out"`
}

// Result is the outcome of a qualification run. Offers is empty, not nil,
// when the applicant qualifies for nothing.
type Result struct {
	Ratios Ratios            `json:"ratios"`
	Offers []ratesheet.Offer `json:"offers"`
	Stages []StageCount      `json:"stages"`
}

// ComputeRatios derives the debt-to-income and loan-to-value ratios.
func ComputeRatios(applicant Applicant) (Ratios, error) {
	dti, err := ratios.DebtToIncome(applicant.MonthlyDebt, applicant.MonthlyIncome)
	if err != nil {
		return Ratios{}, err
	}
	ltv, err := ratios.LoanToValue(applicant.LoanAmount, applicant.HomeValue)
	if err != nil {
		return Ratios{}, err
	}
	return Ratios{DebtToIncome: dti, LoanToValue: ltv}, nil
}

// Qualify determines which offers the applicant qualifies for. Ratios are
// computed first; a ratio failure aborts the run before any filter executes.
// The offers then pass through the loan size, credit score, debt-to-income
// and loan-to-value filters in that order.
func Qualify(logger *zap.Logger, offers []ratesheet.Offer, applicant Applicant) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	derived, err := ComputeRatios(applicant)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compute ratios: %w", err)
	}

	logger.Info(fmt.Sprintf("the monthly debt to income ratio is %.02f", derived.DebtToIncome),
		zap.String("op", "qualifier.Qualify"),
	)
	logger.Info(fmt.Sprintf("the loan to value ratio is %.02f", derived.LoanToValue),
		zap.String("op", "qualifier.Qualify"),
	)

	chain := filters.Chain(applicant.LoanAmount, applicant.CreditScore, derived.DebtToIncome, derived.LoanToValue)

	result := Result{
		Ratios: derived,
		Stages: make([]StageCount, 0, len(chain)),
	}

	current := offers
	if current == nil {
		current = []ratesheet.Offer{}
	}
	for _, stage := range chain {
		in := len(current)
		current = stage.Apply(current)
		result.Stages = append(result.Stages, StageCount{Name: stage.Name, In: in, Out: len(current)})

		logger.Debug(fmt.Sprintf("%s filter kept %d of %d offers", stage.Name, len(current), in),
			zap.String("op", "qualifier.Qualify"),
		)
	}
	result.Offers = current

	logger.Info(fmt.Sprintf("found %d qualifying loans", len(result.Offers)),
		zap.String("op", "qualifier.Qualify"),
	)

	return result, nil
}
