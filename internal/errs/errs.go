// Package errs defines the error taxonomy shared by the association pipeline.
//
// FormatError, MissingInputError and ValidationError are fatal to the call
// that returns them. RegressionFailure is the only per-item recoverable
// condition: the association engine logs it and moves on to the next variant.
package errs

import "fmt"

// FormatError reports an input object of an unexpected shape.
type FormatError struct {
	Input   string // name of the offending input
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Input, e.Message)
}

// MissingInputError reports a statistically required input that was not supplied.
type MissingInputError struct {
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Input)
}

// RegressionFailure reports that a single variant's model could not be fitted.
type RegressionFailure struct {
	Variant string
	Reason  string
	Err     error
}

func (e *RegressionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("regression failed for %s: %s: %v", e.Variant, e.Reason, e.Err)
	}
	return fmt.Sprintf("regression failed for %s: %s", e.Variant, e.Reason)
}

func (e *RegressionFailure) Unwrap() error {
	return e.Err
}

// ValidationError reports a violated ordering or shape constraint on user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Missing is shorthand for &MissingInputError{Input: input}.
func Missing(input string) error {
	return &MissingInputError{Input: input}
}

// Invalid is shorthand for a ValidationError with a formatted message.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
