package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// RequireID checks a referenced row id was supplied.
func RequireID(ve *ValidationErrors, field string, id int64) {
	if id <= 0 {
		ve.Add(field, "is required")
	}
}

// ValidateEnum checks a field is one of allowed values.
func ValidateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateDate checks a field is a valid date (YYYY-MM-DD).
func ValidateDate(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		ve.Add(field, "must be a valid date (YYYY-MM-DD)")
	}
}

// ValidateIntRange checks a field is within a specified range.
func ValidateIntRange(ve *ValidationErrors, field string, value, min, max int) {
	if value < min || value > max {
		ve.Add(field, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

// MaxAmount caps invoice totals.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

// ParseAmount parses a money string. Empty input is reported as required.
func ParseAmount(ve *ValidationErrors, field, value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		ve.Add(field, "is required")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		ve.Add(field, "must be a number")
		return decimal.Zero
	}
	if !d.IsPositive() {
		ve.Add(field, "must be greater than zero")
	}
	if d.GreaterThan(MaxAmount) {
		ve.Add(field, fmt.Sprintf("exceeds maximum allowed amount of %s", MaxAmount.String()))
	}
	if d.Exponent() < -2 {
		ve.Add(field, "must have at most 2 decimal places")
	}
	return d
}

// ValidateEmail checks a field is a valid email (if non-empty).
func ValidateEmail(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		ve.Add(field, "must be a valid email address")
	}
}

// ValidateMaxLength checks string doesn't exceed max length.
func ValidateMaxLength(ve *ValidationErrors, field, value string, max int) {
	if len(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// CodePattern matches jewel, design and PO codes (letters, numbers, hyphens, slashes).
var CodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_./]*$`)

// ValidateCode validates a scanned or typed code field.
func ValidateCode(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if !CodePattern.MatchString(value) {
		ve.Add(field, "must contain only letters, numbers, hyphens, underscores, slashes and dots")
	}
}
