package integration

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/loan-qualifier/internal/config"
	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/output"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"github.com/iwvelando/loan-qualifier/pkg/testutil"
	"go.uber.org/zap"
)

func loadFixture(t *testing.T) (*config.Configuration, []ratesheet.Offer) {
	t.Helper()

	conf, err := config.LoadConfiguration("../test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	warnings, err := conf.ValidateConfiguration()
	if err != nil {
		t.Fatalf("ValidateConfiguration() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected configuration warnings: %v", warnings)
	}

	offers, err := ratesheet.Load(conf.RateSheet)
	if err != nil {
		t.Fatalf("ratesheet.Load() error = %v", err)
	}
	return conf, offers
}

// TestQualifyEndToEnd loads the fixture rate sheet the way main() does and
// checks the qualifying lenders, including one sitting exactly on every limit.
func TestQualifyEndToEnd(t *testing.T) {
	_, offers := loadFixture(t)
	if len(offers) != 4 {
		t.Fatalf("expected 4 offers in fixture, got %d", len(offers))
	}

	applicant := qualifier.Applicant{CreditScore: 750, MonthlyDebt: 1500, MonthlyIncome: 4000, LoanAmount: 210000, HomeValue: 250000}
	result, err := qualifier.Qualify(zap.NewNop(), offers, applicant)
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}

	if len(result.Offers) != 2 {
		t.Fatalf("expected 2 qualifying offers, got %d: %+v", len(result.Offers), result.Offers)
	}
	if result.Offers[0].LenderName != "Prosper MBS - Starter Plus" ||
		result.Offers[1].LenderName != "West Central Credit Union - Starter Plus" {
		t.Errorf("unexpected qualifying lenders or order: %+v", result.Offers)
	}
	if testutil.FindOffer(result.Offers, "FHA Fredie Mac - Starter") != nil {
		t.Error("FHA offer requires a higher credit score and must be filtered")
	}

	expectedStages := []qualifier.StageCount{
		{Name: "max_loan_size", In: 4, Out: 4},
		{Name: "credit_score", In: 4, Out: 3},
		{Name: "debt_to_income", In: 3, Out: 3},
		{Name: "loan_to_value", In: 3, Out: 2},
	}
	for i, stage := range result.Stages {
		if stage != expectedStages[i] {
			t.Errorf("stage %d = %+v, expected %+v", i, stage, expectedStages[i])
		}
	}
}

func TestOutputFormats(t *testing.T) {
	_, offers := loadFixture(t)

	applicant := qualifier.Applicant{CreditScore: 750, MonthlyDebt: 1500, MonthlyIncome: 4000, LoanAmount: 210000, HomeValue: 250000}
	result, err := qualifier.Qualify(zap.NewNop(), offers, applicant)
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}

	var summary bytes.Buffer
	output.Summary(&summary, result)
	for _, want := range []string{
		"The monthly debt to income ratio is 0.38",
		"The loan to value ratio is 0.84.",
		"Found 2 qualifying loans",
	} {
		if !strings.Contains(summary.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, summary.String())
		}
	}

	var pretty bytes.Buffer
	output.PrettyFormat(&pretty, result.Offers)
	if !strings.Contains(pretty.String(), "$210,000.00") {
		t.Errorf("pretty output missing boundary loan amount:\n%s", pretty.String())
	}

	// The csv output must load back as a rate sheet.
	path := filepath.Join(t.TempDir(), "qualifying_loans.csv")
	if err := ratesheet.Save(path, result.Offers); err != nil {
		t.Fatalf("ratesheet.Save() error = %v", err)
	}
	reloaded, err := ratesheet.Load(path)
	if err != nil {
		t.Fatalf("ratesheet.Load() error = %v", err)
	}
	if len(reloaded) != len(result.Offers) {
		t.Fatalf("expected %d reloaded offers, got %d", len(result.Offers), len(reloaded))
	}
	for i := range reloaded {
		if reloaded[i] != result.Offers[i] {
			t.Errorf("offer %d changed on save: %+v vs %+v", i, reloaded[i], result.Offers[i])
		}
	}
	if output.CsvString(result.Offers) != output.CsvString(reloaded) {
		t.Error("csv text differs after reload")
	}
}

func TestNoQualifyingLoans(t *testing.T) {
	_, offers := loadFixture(t)

	applicant := qualifier.Applicant{CreditScore: 500, MonthlyDebt: 1500, MonthlyIncome: 4000, LoanAmount: 210000, HomeValue: 250000}
	result, err := qualifier.Qualify(zap.NewNop(), offers, applicant)
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}
	if result.Offers == nil || len(result.Offers) != 0 {
		t.Fatalf("expected an empty, non-nil result, got %+v", result.Offers)
	}

	var pretty bytes.Buffer
	output.PrettyFormat(&pretty, result.Offers)
	if strings.TrimSpace(pretty.String()) != constants.NoQualifyingLoansMessage {
		t.Errorf("unexpected output %q", pretty.String())
	}
}

func TestSampleRateSheet(t *testing.T) {
	offers, err := ratesheet.Load(filepath.Join("..", "..", constants.DefaultRateSheetFile))
	if err != nil {
		t.Fatalf("failed to load bundled rate sheet: %v", err)
	}
	if len(offers) == 0 {
		t.Fatal("bundled rate sheet is empty")
	}

	applicant := qualifier.Applicant{CreditScore: 750, MonthlyDebt: 1500, MonthlyIncome: 4000, LoanAmount: 210000, HomeValue: 250000}
	result, err := qualifier.Qualify(zap.NewNop(), offers, applicant)
	if err != nil {
		t.Fatalf("Qualify() error = %v", err)
	}
	for _, offer := range result.Offers {
		if offer.MinCreditScore > applicant.CreditScore || offer.MaxLoanAmount < applicant.LoanAmount ||
			offer.MaxDebtToIncome < result.Ratios.DebtToIncome || offer.MaxLoanToValue < result.Ratios.LoanToValue {
			t.Errorf("offer %+v should not qualify", offer)
		}
	}
}
