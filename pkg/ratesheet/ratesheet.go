// Package ratesheet reads and writes lender rate sheets in CSV form.
package ratesheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iwvelando/loan-qualifier/pkg/constants"
)

// ErrMalformedRecord is wrapped by every row-level parse failure.
var ErrMalformedRecord = errors.New("malformed rate sheet record")

// Offer is one lender row of a rate sheet.
type Offer struct {
	LenderName      string  `json:"lenderName" yaml:"lenderName"`
	MaxLoanAmount   float64 `json:"maxLoanAmount" yaml:"maxLoanAmount"`
	MaxLoanToValue  float64 `json:"maxLoanToValueRatio" yaml:"maxLoanToValueRatio"`
	MaxDebtToIncome float64 `json:"maxDebtToIncomeRatio" yaml:"maxDebtToIncomeRatio"`
	MinCreditScore  int     `json:"minCreditScore" yaml:"minCreditScore"`
	InterestRate    float64 `json:"interestRate" yaml:"interestRate"`
}

// MalformedRecordError describes which row and column of a rate sheet could
// not be parsed. Row numbers are 1-based and count the header.
type MalformedRecordError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: row %d: %v", ErrMalformedRecord, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: row %d column %q value %q: %v", ErrMalformedRecord, e.Row, e.Column, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// Load opens the CSV file at path and parses it with Read.
func Load(path string) ([]Offer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rate sheet %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	return Read(file)
}

// Read parses a rate sheet. The first row is a header and is skipped; every
// following row must carry all six fields with numeric values where numbers
// are expected. An empty input yields no offers.
func Read(r io.Reader) ([]Offer, error) {
	reader := csv.NewReader(r)
	// Field counts are checked per row so the error can name the row.
	reader.FieldsPerRecord = -1

	offers := []Offer{}
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return offers, nil
		}
		return nil, &MalformedRecordError{Row: 1, Err: err}
	}

	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, &MalformedRecordError{Row: row, Err: err}
		}

		offer, err := parseRecord(row, record)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}

	return offers, nil
}

func parseRecord(row int, record []string) (Offer, error) {
	if len(record) != constants.RateSheetColumns {
		return Offer{}, &MalformedRecordError{
			Row: row,
			Err: fmt.Errorf("expected %d fields, got %d", constants.RateSheetColumns, len(record)),
		}
	}

	var offer Offer
	offer.LenderName = strings.TrimSpace(record[0])
	if offer.LenderName == "" {
		return Offer{}, &MalformedRecordError{Row: row, Column: constants.RateSheetHeader[0], Err: errors.New("lender name is empty")}
	}

	floats := []*float64{&offer.MaxLoanAmount, &offer.MaxLoanToValue, &offer.MaxDebtToIncome}
	for i, dst := range floats {
		value, err := parseNumber(row, i+1, record[i+1])
		if err != nil {
			return Offer{}, err
		}
		*dst = value
	}

	raw := strings.TrimSpace(record[4])
	score, err := strconv.Atoi(raw)
	if err != nil || score < 0 {
		if err == nil {
			err = errors.New("must not be negative")
		}
		return Offer{}, &MalformedRecordError{Row: row, Column: constants.RateSheetHeader[4], Value: raw, Err: err}
	}
	offer.MinCreditScore = score

	offer.InterestRate, err = parseNumber(row, 5, record[5])
	if err != nil {
		return Offer{}, err
	}

	return offer, nil
}

func parseNumber(row, column int, value string) (float64, error) {
	raw := strings.TrimSpace(value)
	parsed, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil:
	case math.IsNaN(parsed) || math.IsInf(parsed, 0):
		err = errors.New("must be a finite number")
	case parsed < 0:
		err = errors.New("must not be negative")
	}
	if err != nil {
		return 0, &MalformedRecordError{Row: row, Column: constants.RateSheetHeader[column], Value: raw, Err: err}
	}
	return parsed, nil
}

// Save writes offers to path in rate sheet format, creating parent directories as needed.
func Save(path string, offers []Offer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Write(file, offers); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Write emits the header followed by one row per offer, in input column order.
func Write(w io.Writer, offers []Offer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(constants.RateSheetHeader); err != nil {
		return err
	}
	for _, offer := range offers {
		if err := writer.Write(Record(offer)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Record renders an offer as a CSV row.
func Record(offer Offer) []string {
	return []string{
		offer.LenderName,
		strconv.FormatFloat(offer.MaxLoanAmount, 'f', -1, 64),
		strconv.FormatFloat(offer.MaxLoanToValue, 'f', -1, 64),
		strconv.FormatFloat(offer.MaxDebtToIncome, 'f', -1, 64),
		strconv.Itoa(offer.MinCreditScore),
		strconv.FormatFloat(offer.InterestRate, 'f', -1, 64),
	}
}
