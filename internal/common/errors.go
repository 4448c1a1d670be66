package common

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the application.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable means the storage artifact could not be opened or
	// used at all. Fatal to the current operation, never silently swallowed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrFetchFailed covers every remote source failure: network errors,
	// timeouts, non-2xx status codes and malformed payloads. Callers treat
	// it as "no data this cycle", never as partial data.
	ErrFetchFailed = errors.New("remote fetch failed")

	// ErrInvalidRange reports a malformed caller-supplied time window.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrArchiveInvalid reports a missing or unrecognizable backup archive.
	// The live store is left untouched when this is returned.
	ErrArchiveInvalid = errors.New("backup archive missing or invalid")
)

// OperationError attaches the failing operation and entity to an error.
type OperationError struct {
	Op     string
	Entity string
	Err    error
}

func (e OperationError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e OperationError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation context.
func WrapError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{Op: op, Entity: entity, Err: err}
}
