// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxLabelLength       = 255
	MaxDescriptionLength = 1024
	MaxCategoryLength    = 64
	MaxFilenameLength    = 255
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateDateString checks if a string is a valid calendar date in
// "YYYY-MM-DD" format, rejecting normalized-but-wrong inputs like 2024-02-31.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is not a valid date (expected YYYY-MM-DD): %v", ErrValidationFailed, fieldName, s, err)
	}
	if t.Format("2006-01-02") != trimmed {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is an invalid date (e.g., day/month mismatch)", ErrValidationFailed, fieldName, s)
	}
	return t, nil
}
