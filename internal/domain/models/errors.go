package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Each kind is terminal for the
// affected scenario only; one scenario failing never aborts another.
type ErrorKind string

const (
	// KindInvalidRange means a date range resolved to start > end, or the
	// input mixed explicit and partial years in a way we refuse to guess at.
	KindInvalidRange ErrorKind = "invalid_range"

	// KindFutureRange means the resolved end date is after the reference date.
	KindFutureRange ErrorKind = "future_range"

	// KindMalformedData means a raw row had a missing, non-numeric, or
	// negative required field. The whole series is rejected.
	KindMalformedData ErrorKind = "malformed_data"

	// KindUnorderedData means timestamps could not be made strictly
	// increasing by a single re-sort (usually duplicate timestamps).
	KindUnorderedData ErrorKind = "unordered_data"

	// KindEmptyResult means the provider returned no rows.
	KindEmptyResult ErrorKind = "empty_result"

	// KindProviderError wraps transport, auth, or timeout failures from the
	// upstream data provider.
	KindProviderError ErrorKind = "provider_error"
)

// Error is the typed failure carried through the pipeline and into a
// scenario's Failed state. It wraps an optional cause for diagnostics.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two pipeline errors by kind, so callers can write
// errors.Is(err, models.ErrOfKind(models.KindEmptyResult)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// ErrOfKind returns a sentinel for errors.Is comparisons.
func ErrOfKind(k ErrorKind) error { return &Error{Kind: k} }

// NewError builds a typed pipeline error.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from any error in the chain, or "" if the error
// did not originate in the pipeline.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
