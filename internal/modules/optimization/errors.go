package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below wrap them so callers can use errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
)

// InvalidInputError is returned before any computation when a parameter is out of range.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InsufficientDataError is returned when the price history cannot support the statistics.
type InsufficientDataError struct {
	Reason string
	Asset  string // empty when the problem is not tied to one asset
}

func (e *InsufficientDataError) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("insufficient data for %s: %s", e.Asset, e.Reason)
	}
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

func invalidInput(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
