package validation

import (
	"strings"
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{name: "Valid pretty format", format: "pretty"},
		{name: "Valid csv format", format: "csv"},
		{name: "Invalid format", format: "json", expectErr: true},
		{name: "Empty format", format: "", expectErr: true},
		{name: "Case sensitive - uppercase", format: "PRETTY", expectErr: true},
		{name: "Case sensitive - CSV uppercase", format: "CSV", expectErr: true},
		{name: "Leading/trailing spaces", format: " pretty ", expectErr: true},
		{name: "Similar but incorrect format", format: "prettyprint", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)

			if tt.expectErr {
				if err == nil {
					t.Errorf("ValidateOutputFormat(%s) expected error but got none", tt.format)
				}
			} else if err != nil {
				t.Errorf("ValidateOutputFormat(%s) unexpected error = %v", tt.format, err)
			}
		})
	}
}

func TestValidateOutputFormatErrorMessage(t *testing.T) {
	err := ValidateOutputFormat("xml")
	if err == nil {
		t.Fatal("expected error for xml")
	}
	for _, want := range []string{"pretty", "csv", `"xml"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err.Error(), want)
		}
	}
}
