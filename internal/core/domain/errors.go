package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRefreshInProgress indicates an ingestion cycle is already running.
	ErrRefreshInProgress = errors.New("refresh in progress")

	// Pipeline Errors.

	// ErrTransport indicates the source could not be reached or answered
	// with something other than a page. Retryable.
	ErrTransport = errors.New("transport error")

	// ErrNormalisation indicates a record could not be mapped to the
	// canonical model. The record is skipped.
	ErrNormalisation = errors.New("normalisation error")

	// ErrStorage indicates a cache write or read failed. Fatal to the
	// current cycle.
	ErrStorage = errors.New("storage error")

	// ErrInvalidQuery indicates a malformed query parameter.
	ErrInvalidQuery = errors.New("invalid query")
)

// QueryError reports which query parameter was rejected.
type QueryError struct {
	Param  string
	Reason string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Param, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidQuery).
func (e *QueryError) Unwrap() error {
	return ErrInvalidQuery
}

// NewQueryError creates a QueryError.
func NewQueryError(param, reason string) *QueryError {
	return &QueryError{Param: param, Reason: reason}
}
