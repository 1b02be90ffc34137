// Package errors provides error handling for ontograph.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions and marking
var (
	AssertionFailedf = crdb.AssertionFailedf
	Mark             = crdb.Mark
)

// Common sentinel errors used across ontograph.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested entity or relationship does not
	// exist. Absence is not a failure: storage adapters return it so callers
	// can distinguish "no such node" from a backend fault.
	ErrNotFound = New("not found")

	// ErrValidation indicates a malformed ingestion record. Recovered
	// locally by the pipeline: the record is skipped and counted.
	ErrValidation = New("validation failed")

	// ErrTransient indicates a retryable storage failure (network, timeout,
	// lock contention). Counts toward the breaker failure threshold.
	ErrTransient = New("transient storage failure")

	// ErrPermanent indicates a non-retryable storage failure (schema
	// violation, corrupt data). Surfaced immediately; never counted by the
	// breaker and never retried.
	ErrPermanent = New("permanent storage failure")

	// ErrBreakerOpen is the fast-fail returned while the circuit breaker is
	// open. Query callers see it as UNKNOWN with a reason, never as NO.
	ErrBreakerOpen = New("circuit breaker open")

	// ErrStorageUnavailable indicates the backend could not be reached at
	// all (distinct from a transient single-call failure).
	ErrStorageUnavailable = New("storage unavailable")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsValidationError checks if an error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsTransient reports whether an error should count toward the circuit
// breaker failure threshold. Unclassified errors are treated as transient:
// a backend that fails in a new way is still a degrading backend.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrPermanent) || Is(err, ErrValidation) || Is(err, ErrNotFound) {
		return false
	}
	return true
}

// IsPermanent checks if an error is or wraps ErrPermanent.
func IsPermanent(err error) bool {
	return err != nil && Is(err, ErrPermanent)
}

// IsBreakerOpen checks if an error is or wraps ErrBreakerOpen.
func IsBreakerOpen(err error) bool {
	return err != nil && Is(err, ErrBreakerOpen)
}

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...interface{}) error {
	return Wrap(ErrValidation, Newf(format, args...).Error())
}

// NewTransient marks an error as a transient storage failure and wraps it
// with context. The original cause chain is preserved, so callers can still
// detect context cancellation underneath.
func NewTransient(err error, context string) error {
	return Wrap(Mark(err, ErrTransient), context)
}

// NewPermanent marks an error as a permanent storage failure and wraps it
// with context.
func NewPermanent(err error, context string) error {
	return Wrap(Mark(err, ErrPermanent), context)
}
