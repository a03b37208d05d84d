// Package prompt asks the applicant for their details on a terminal and runs
// the save dialog once qualification is complete.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/output"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"github.com/iwvelando/loan-qualifier/pkg/validation"
	"go.uber.org/zap"
)

// ErrNoInput is returned when input ends before a question is answered.
var ErrNoInput = errors.New("no input")

// maxAttempts bounds how often an unparsable answer is asked again.
const maxAttempts = 5

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	logger *zap.Logger
}

// New creates a Prompter.
func New(logger *zap.Logger, in io.Reader, out io.Writer) *Prompter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prompter{in: bufio.NewReader(in), out: out, logger: logger}
}

// Text asks question and returns the trimmed answer.
func (p *Prompter) Text(question string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "? %s ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s", ErrNoInput, question)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask repeats question until parse accepts the answer.
func (p *Prompter) ask(question string, parse func(string) error) error {
	for attempt := 1; ; attempt++ {
		answer, err := p.Text(question)
		if err != nil {
			return err
		}
		err = parse(answer)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("%s: %w", question, err)
		}
		p.logger.Debug("rejected answer",
			zap.String("op", "prompt.ask"),
			zap.String("question", question),
			zap.Error(err),
		)
		_, _ = fmt.Fprintf(p.out, "  %v, please try again\n", err)
	}
}

// Int asks for an integer.
func (p *Prompter) Int(question string) (int, error) {
	var value int
	err := p.ask(question, func(answer string) error {
		parsed, err := strconv.Atoi(answer)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", answer)
		}
		value = parsed
		return nil
	})
	return value, err
}

// Float asks for a decimal number. Thousands separators and a leading dollar sign are accepted.
func (p *Prompter) Float(question string) (float64, error) {
	var value float64
	err := p.ask(question, func(answer string) error {
		cleaned := strings.ReplaceAll(strings.TrimPrefix(answer, "$"), ",", "")
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return fmt.Errorf("%q is not a number", answer)
		}
		value = parsed
		return nil
	})
	return value, err
}

// Confirm asks a yes/no question. An empty answer means no.
func (p *Prompter) Confirm(question string) (bool, error) {
	var value bool
	err := p.ask(question+" (y/N)", func(answer string) error {
		switch strings.ToLower(answer) {
		case "y", "yes":
			value = true
		case "", "n", "no":
			value = false
		default:
			return fmt.Errorf("%q is not yes or no", answer)
		}
		return nil
	})
	return value, err
}

// RateSheetPath asks for the rate sheet location.
func (p *Prompter) RateSheetPath() (string, error) {
	var path string
	err := p.ask("Enter a file path to a rate-sheet (.csv):", func(answer string) error {
		if answer == "" {
			return errors.New("a path is required")
		}
		path = answer
		return nil
	})
	return path, err
}

// ApplicantInfo asks for the five applicant figures. Credit score is read as
// an integer and the rest as decimals.
func (p *Prompter) ApplicantInfo() (qualifier.Applicant, error) {
	var applicant qualifier.Applicant
	var err error

	if applicant.CreditScore, err = p.Int("What's your credit score?"); err != nil {
		return applicant, err
	}
	if applicant.MonthlyDebt, err = p.Float("What is your monthly debt?"); err != nil {
		return applicant, err
	}
	if applicant.MonthlyIncome, err = p.Float("What is your monthly income?"); err != nil {
		return applicant, err
	}
	if applicant.LoanAmount, err = p.Float("What is the total loan amount?"); err != nil {
		return applicant, err
	}
	if applicant.HomeValue, err = p.Float("What is the value of the home you are looking to purchase?"); err != nil {
		return applicant, err
	}

	return applicant, nil
}

// SaveDialog offers to save the qualifying loans. When the applicant
// declines, the loans are printed as a table instead. Either way an empty
// list produces the no-qualifying-loans message. It returns the path the
// loans were saved to, or "" when nothing was saved.
func (p *Prompter) SaveDialog(offers []ratesheet.Offer) (string, error) {
	save, err := p.Confirm("Do you want to save the list of qualifying loans?")
	if err != nil {
		return "", err
	}

	if len(offers) == 0 {
		_, _ = fmt.Fprintln(p.out, constants.NoQualifyingLoansMessage)
		return "", nil
	}

	if !save {
		output.PrettyFormat(p.out, offers)
		return "", nil
	}

	var path string
	err = p.ask("Where do you want to save the list of qualifying loans? (enter file path that ends in .csv)", func(answer string) error {
		if err := validation.ValidateSavePath(answer); err != nil {
			return err
		}
		path = answer
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := ratesheet.Save(path, offers); err != nil {
		return "", err
	}
	p.logger.Info(fmt.Sprintf("saved %d qualifying loans to %s", len(offers), path),
		zap.String("op", "prompt.SaveDialog"),
	)
	_, _ = fmt.Fprintf(p.out, "Saved %d qualifying loans to %s\n", len(offers), path)
	return path, nil
}
