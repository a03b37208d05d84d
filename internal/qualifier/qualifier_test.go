package qualifier

import (
	"errors"
	"math"
	"testing"

	"github.com/iwvelando/loan-qualifier/pkg/filters"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"github.com/iwvelando/loan-qualifier/pkg/ratios"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func starterOffer() ratesheet.Offer {
	return ratesheet.Offer{
		LenderName:      "Prosper MBS - Starter Plus",
		MaxLoanAmount:   300000,
		MaxLoanToValue:  0.97,
		MaxDebtToIncome: 0.45,
		MinCreditScore:  650,
		InterestRate:    0.045,
	}
}

func typicalApplicant() Applicant {
	return Applicant{
		CreditScore:   700,
		MonthlyDebt:   1000,
		MonthlyIncome: 5000,
		LoanAmount:    250000,
		HomeValue:     300000,
	}
}

func TestQualifyOfferQualifies(t *testing.T) {
	result, err := Qualify(zap.NewNop(), []ratesheet.Offer{starterOffer()}, typicalApplicant())
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}

	if math.Abs(result.Ratios.DebtToIncome-0.20) > 1e-9 {
		t.Errorf("DebtToIncome = %.4f, expected 0.20", result.Ratios.DebtToIncome)
	}
	if math.Abs(result.Ratios.LoanToValue-0.833) > 0.001 {
		t.Errorf("LoanToValue = %.4f, expected 0.833", result.Ratios.LoanToValue)
	}
	if len(result.Offers) != 1 || result.Offers[0] != starterOffer() {
		t.Fatalf("expected the offer to qualify, got %+v", result.Offers)
	}
}

func TestQualifyLowCreditScore(t *testing.T) {
	other := starterOffer()
	other.LenderName = "FHA Fredie Mac - Starter Plus"
	other.MinCreditScore = 550
	offers := []ratesheet.Offer{starterOffer(), other}

	applicant := typicalApplicant()
	applicant.CreditScore = 600

	result, err := Qualify(nil, offers, applicant)
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}

	if len(result.Offers) != len(offers)-1 {
		t.Fatalf("expected %d qualifying offers, got %d", len(offers)-1, len(result.Offers))
	}
	for _, offer := range result.Offers {
		if offer.LenderName == starterOffer().LenderName {
			t.Errorf("offer requiring credit score 650 should not qualify at 600")
		}
	}

	credit := result.Stages[1]
	if credit.Name != filters.StageCreditScore || credit.In != 2 || credit.Out != 1 {
		t.Errorf("unexpected credit score stage counts: %+v", credit)
	}
}

func TestQualifyEmptyOffers(t *testing.T) {
	for name, offers := range map[string][]ratesheet.Offer{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			result, err := Qualify(zap.NewNop(), offers, typicalApplicant())
			if err != nil {
				t.Fatalf("Qualify() error = %v", err)
			}
			if result.Offers == nil || len(result.Offers) != 0 {
				t.Fatalf("expected empty non-nil offers, got %#v", result.Offers)
			}
			for _, stage := range result.Stages {
				if stage.In != 0 || stage.Out != 0 {
					t.Errorf("expected zero counts for %s, got %+v", stage.Name, stage)
				}
			}
		})
	}
}

func TestQualifyInvalidInputStopsBeforeFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	tests := map[string]func(*Applicant){
		"zero income":     func(a *Applicant) { a.MonthlyIncome = 0 },
		"negative income": func(a *Applicant) { a.MonthlyIncome = -1 },
		"zero home value": func(a *Applicant) { a.HomeValue = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			applicant := typicalApplicant()
			mutate(&applicant)

			result, err := Qualify(logger, []ratesheet.Offer{starterOffer()}, applicant)
			if !errors.Is(err, ratios.ErrInvalidInput) {
				t.Fatalf("Qualify() error = %v, expected ErrInvalidInput", err)
			}
			if result.Offers != nil || result.Stages != nil {
				t.Errorf("expected no partial result, got %+v", result)
			}
		})
	}

	if logs.FilterMessageSnippet("filter kept").Len() != 0 {
		t.Errorf("no filter stage should run when a ratio fails")
	}
}

func TestQualifyStageOrderAndCounts(t *testing.T) {
	offers := []ratesheet.Offer{
		{LenderName: "too small", MaxLoanAmount: 100000, MaxLoanToValue: 1, MaxDebtToIncome: 1, MinCreditScore: 0},
		{LenderName: "credit too high", MaxLoanAmount: 500000, MaxLoanToValue: 1, MaxDebtToIncome: 1, MinCreditScore: 800},
		{LenderName: "dti too low", MaxLoanAmount: 500000, MaxLoanToValue: 1, MaxDebtToIncome: 0.1, MinCreditScore: 0},
		{LenderName: "ltv too low", MaxLoanAmount: 500000, MaxLoanToValue: 0.5, MaxDebtToIncome: 1, MinCreditScore: 0},
		{LenderName: "qualifies", MaxLoanAmount: 500000, MaxLoanToValue: 1, MaxDebtToIncome: 1, MinCreditScore: 0},
	}

	core, logs := observer.New(zapcore.DebugLevel)
	result, err := Qualify(zap.New(core), offers, typicalApplicant())
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}

	expected := []StageCount{
		{Name: filters.StageMaxLoanSize, In: 5, Out: 4},
		{Name: filters.StageCreditScore, In: 4, Out: 3},
		{Name: filters.StageDebtToIncome, In: 3, Out: 2},
		{Name: filters.StageLoanToValue, In: 2, Out: 1},
	}
	if len(result.Stages) != len(expected) {
		t.Fatalf("expected %d stages, got %d", len(expected), len(result.Stages))
	}
	for i := range expected {
		if result.Stages[i] != expected[i] {
			t.Errorf("stage %d = %+v, expected %+v", i, result.Stages[i], expected[i])
		}
	}
	if len(result.Offers) != 1 || result.Offers[0].LenderName != "qualifies" {
		t.Errorf("unexpected qualifying offers: %+v", result.Offers)
	}

	if logs.FilterMessage("found 1 qualifying loans").Len() != 1 {
		t.Errorf("expected a summary log entry, got %v", logs.All())
	}
	if logs.FilterMessage("the monthly debt to income ratio is 0.20").Len() != 1 {
		t.Errorf("expected the debt to income ratio to be logged")
	}
}

func TestQualifyDoesNotMutateInput(t *testing.T) {
	offers := []ratesheet.Offer{starterOffer(), starterOffer()}
	offers[1].MinCreditScore = 800

	_, err := Qualify(nil, offers, typicalApplicant())
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}
	if offers[0] != starterOffer() || offers[1].MinCreditScore != 800 || len(offers) != 2 {
		t.Errorf("input offers were modified: %+v", offers)
	}
}
