package domain

import "errors"

// Engine error taxonomy. Callers classify per-entry failures with errors.Is
// against these sentinels; no single bad entry may abort a batch.
var (
	// ErrInvalidInput marks malformed weather or profile data. The entry is
	// skipped and recorded; the rest of the batch continues.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleObservation marks an observation no newer than the last one
	// already processed for its (user, location) key.
	ErrStaleObservation = errors.New("stale observation")

	// ErrStorageUnavailable marks a transient alert-state storage failure.
	// The entry should be retried by the caller, never silently dropped.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnknownTransition marks a risk level outside the defined ordered
	// set. A programming-contract violation: surfaced loudly, not recovered.
	ErrUnknownTransition = errors.New("unknown transition")
)
