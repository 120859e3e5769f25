package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the competition core. Handlers translate
// them into HTTP statuses; late socket/timer callbacks treat ErrNotFound
// as a no-op instead of reporting it.
var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientEnergy = errors.New("insufficient energy")
	ErrPlayerLocked       = errors.New("player is locked in another flow")
)

// ValidationError reports bad caller input (invalid mode, missing
// favorite combo, malformed routine). Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a state clash the caller must resolve first,
// e.g. a duplicate pending challenge or queue entry.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// SettlementError wraps any scoring/rating/persistence failure during
// match creation. Participants get a generic cancellation; the cause is
// only logged server-side.
type SettlementError struct {
	Err error
}

func (e *SettlementError) Error() string { return "match settlement failed: " + e.Err.Error() }
func (e *SettlementError) Unwrap() error { return e.Err }
