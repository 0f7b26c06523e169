package domain

import "errors"

// Core error taxonomy. Callers match with errors.Is; the concrete message
// carries the specific violated condition.
var (
	// ErrInvalidInput - out-of-range numeric input (negative risk, negative
	// portfolio value). Validated at the call boundary, never propagated
	// past it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidScenarioParameters - a stress parameter outside its
	// documented range. This core rejects rather than clamps.
	ErrInvalidScenarioParameters = errors.New("invalid scenario parameters")

	// ErrNotFound - requested position absent in the position store.
	ErrNotFound = errors.New("not found")

	// ErrGuardViolation - a tier transition was requested but its guard
	// condition is unmet. The message names the unmet condition.
	ErrGuardViolation = errors.New("guard violation")

	// ErrPersistence - a position store write failed. Core state is left
	// exactly as it was before the write; retries are a caller concern.
	ErrPersistence = errors.New("persistence failure")
)
