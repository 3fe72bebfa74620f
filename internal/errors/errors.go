package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Taxonomy roots. Specific errors below wrap one of these so callers can
// classify with errors.Is.
var (
	// ErrValidationFailed is returned for malformed, missing or rule-violating input.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUnauthenticated is returned when a bearer token is missing, invalid or expired.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict is returned when a unique key already exists.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when a resource does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable wraps failures of the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	// ErrEmailTaken is returned when signing up with an email that is already registered.
	ErrEmailTaken = fmt.Errorf("%w: user already exists", ErrConflict)
	// ErrFormIDTaken is returned when creating a form with an id that is already in use.
	ErrFormIDTaken = fmt.Errorf("%w: form id already exists", ErrConflict)
	// ErrAccountNotFound is returned when a token subject no longer resolves to an account.
	ErrAccountNotFound = fmt.Errorf("%w: user not found", ErrNotFound)
	// ErrFormNotFound is returned when a form is missing or not owned by the requester.
	ErrFormNotFound = fmt.Errorf("%w: form not found", ErrNotFound)
)

// Storage wraps a backing store failure so it classifies as ErrStorageUnavailable
// while keeping the driver error in the chain.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// FieldViolation names a field and why its value was rejected.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every violation found in one request.
type ValidationError struct {
	Violations []FieldViolation
}

// NewValidationError builds a ValidationError from violations.
func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidationFailed.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports ValidationError as ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string           `json:"error"`
	Code   string           `json:"code"`
	Fields []FieldViolation `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     []FieldViolation
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpErr := NewHTTPError(http.StatusBadRequest, ErrValidationFailed.Error(), "VALIDATION_FAILED")
		httpErr.Fields = verr.Violations
		return httpErr
	case errors.Is(err, ErrValidationFailed):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusBadRequest, "invalid email or password", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusBadRequest, "user already exists", "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrFormIDTaken):
		return NewHTTPError(http.StatusConflict, "form id already exists", "FORM_ALREADY_EXISTS")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, "resource already exists", "CONFLICT")
	case errors.Is(err, ErrAccountNotFound):
		return NewHTTPError(http.StatusNotFound, "user not found", "USER_NOT_FOUND")
	case errors.Is(err, ErrFormNotFound):
		return NewHTTPError(http.StatusNotFound, "form not found", "FORM_NOT_FOUND")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "not found", "NOT_FOUND")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, "invalid or missing token", "UNAUTHENTICATED")
	case errors.Is(err, ErrStorageUnavailable):
		return NewHTTPError(http.StatusInternalServerError, "storage unavailable", "STORAGE_UNAVAILABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
