// Package validation holds the single set of per-type rules applied to
// form answers, both for interactive field checks and for submissions.
package validation

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/model"
)

var (
	// ErrRequired is returned when a text field is blank.
	ErrRequired = errors.New("this field is required")
	// ErrInvalidEmail is returned when a value is not shaped like local@domain.tld.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidNumber is returned when a value does not parse as a number.
	ErrInvalidNumber = errors.New("must be a number")
	// ErrInvalidDate is returned when a value is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("must be a date in YYYY-MM-DD format")
	// ErrInvalidPhone is returned when a value is not exactly 10 digits.
	ErrInvalidPhone = errors.New("must be exactly 10 digits")
	// ErrUnknownField is returned for answers to fields the form does not declare.
	ErrUnknownField = errors.New("unknown field")
)

const dateLayout = "2006-01-02"

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	telRegex   = regexp.MustCompile(`^\d{10}$`)
)

// CheckValue applies the rule for fieldType to value. It returns the value to
// store: typed values (email, number, date, tel) are trimmed, everything else
// is returned unchanged.
func CheckValue(fieldType model.FieldType, value string) (string, error) {
	switch fieldType {
	case model.FieldText:
		if strings.TrimSpace(value) == "" {
			return value, ErrRequired
		}
		return value, nil
	case model.FieldEmail:
		v := strings.TrimSpace(value)
		if !emailRegex.MatchString(v) {
			return value, ErrInvalidEmail
		}
		return v, nil
	case model.FieldNumber:
		v := strings.TrimSpace(value)
		if _, err := decimal.NewFromString(v); err != nil {
			return value, ErrInvalidNumber
		}
		return v, nil
	case model.FieldDate:
		v := strings.TrimSpace(value)
		if !dateRegex.MatchString(v) {
			return value, ErrInvalidDate
		}
		if _, err := time.Parse(dateLayout, v); err != nil {
			return value, ErrInvalidDate
		}
		return v, nil
	case model.FieldTel:
		v := strings.TrimSpace(value)
		if !telRegex.MatchString(v) {
			return value, ErrInvalidPhone
		}
		return v, nil
	default:
		return value, nil
	}
}

// ValidateAnswers checks answers against every field of a form. A field with
// no answer is checked as the empty string. It returns the normalized answers
// and all violations, in field order followed by unknown keys sorted by name.
func ValidateAnswers(fields []model.FieldSpec, answers map[string]string) (map[string]string, []apperrors.FieldViolation) {
	normalized := make(map[string]string, len(fields))
	var violations []apperrors.FieldViolation

	declared := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		declared[field.Name] = struct{}{}

		raw, present := answers[field.Name]
		value, err := CheckValue(field.Type, raw)
		if err != nil {
			violations = append(violations, apperrors.FieldViolation{Field: field.Name, Reason: err.Error()})
			continue
		}
		if present {
			normalized[field.Name] = value
		}
	}

	var unknown []string
	for name := range answers {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		violations = append(violations, apperrors.FieldViolation{Field: name, Reason: ErrUnknownField.Error()})
	}

	return normalized, violations
}
