// backend/src/security/validation/validation_test.go
package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Trip earnings", "Trip earnings"},
		{"strips html", "<script>alert(1)</script>Tip", "Tip"},
		{"strips soft hyphen", "Toll refund\u00ad", "Toll refund"},
		{"trims whitespace", "  Quest bonus  ", "Quest bonus"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeLabel(tt.input); got != tt.want {
				t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeLabelTruncatesLongInput(t *testing.T) {
	got := SanitizeLabel(strings.Repeat("x", MaxLabelLength+40))
	if len(got) != MaxLabelLength {
		t.Errorf("len = %d, want %d", len(got), MaxLabelLength)
	}
}

func TestValidateDateString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "2025-06-09", false},
		{"wrong layout", "09/06/2025", true},
		{"non-canonical day", "2025-6-9", true},
		{"empty", "", true},
		{"garbage", "not-a-date", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDateString(tt.input, "period_start")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDateString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidationFailed) {
				t.Errorf("error %v is not ErrValidationFailed", err)
			}
		})
	}
}

func TestValidateStringMaxLength(t *testing.T) {
	if err := ValidateStringMaxLength("short", 10, "field"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateStringMaxLength(strings.Repeat("a", 11), 10, "field")
	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("error %v is not ErrValidationFailed", err)
	}
}
