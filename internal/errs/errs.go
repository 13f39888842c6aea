// Package errs defines the error taxonomy shared by the trading engines.
//
// ValidationError: malformed or out-of-range input, detected before any
// state mutation. BusinessError: a rule rejection (risk gate, insufficient
// shares, below-minimum investment) carrying a human-readable reason.
// ResolutionError: an external lookup failure, fatal for the operation.
// No error in this taxonomy ever leaves state half-applied.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validation creates a ValidationError for the given field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// BusinessError reports a rule rejection with a carried reason.
type BusinessError struct {
	Reason string
	Err    error // optional underlying sentinel
}

func (e *BusinessError) Error() string {
	return "rejected: " + e.Reason
}

func (e *BusinessError) Unwrap() error { return e.Err }

// Business creates a BusinessError with the given reason.
func Business(format string, args ...any) error {
	return &BusinessError{Reason: fmt.Sprintf(format, args...)}
}

// BusinessFrom wraps a sentinel error as a BusinessError, preserving it for
// errors.Is matching.
func BusinessFrom(err error) error {
	return &BusinessError{Reason: err.Error(), Err: err}
}

// ResolutionError reports a failed external lookup (e.g. the account
// service). Callers treat it as retryable; the engines perform no fallback.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution: %s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolution wraps an external lookup failure.
func Resolution(op string, err error) error {
	return &ResolutionError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsBusiness reports whether err is (or wraps) a BusinessError.
func IsBusiness(err error) bool {
	var b *BusinessError
	return errors.As(err, &b)
}

// IsResolution reports whether err is (or wraps) a ResolutionError.
func IsResolution(err error) bool {
	var r *ResolutionError
	return errors.As(err, &r)
}
