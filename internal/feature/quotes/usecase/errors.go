// Package usecase implements batch aggregation and persistence of quote events.
package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("invalid quote event")

	// ErrTransientIO is returned when a store or transport is temporarily unreachable.
	// The whole batch may be retried.
	ErrTransientIO = errors.New("transient io failure")

	// ErrPersistence is returned when a store rejects a write for a non-transient reason.
	// The batch fails and must be surfaced to the operator.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports one event dropped from a batch.
type ValidationError struct {
	Index  int    // Position of the event in the batch
	Symbol string // Symbol of the event, if any
	Field  string // Offending field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event %d (%q): %s %s", e.Index, e.Symbol, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsRetryable reports whether err is worth a whole-batch retry.
// A batch that hit any persistence failure is never retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientIO) && !errors.Is(err, ErrPersistence)
}
