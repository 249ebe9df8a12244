// Package engine orchestrates heat index computation, risk classification,
// and alert state transitions for batches of (profile, observation) entries.
// Failures are isolated per entry: one malformed reading or storage hiccup
// never blocks the rest of the batch.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// AlertStateStore persists the per-(user, location) alert state. The second
// return of Get distinguishes "never seen" from a stored zero state.
type AlertStateStore interface {
	Get(ctx context.Context, key domain.Key) (domain.AlertState, bool, error)
	Put(ctx context.Context, key domain.Key, state domain.AlertState) error
}

// Entry pairs one user profile with one weather observation for processing.
type Entry struct {
	Profile     domain.UserProfile
	Observation domain.WeatherObservation
}

// Outcome is the per-entry result of Process. Exactly one of Result or Err
// is meaningful; Event is set only when the state machine transitioned.
// State carries the advanced alert state, persisted by CommitStates once the
// batch's outputs have been delivered.
type Outcome struct {
	Key    domain.Key
	Result *domain.HeatIndexResult
	Event  *domain.AlertEvent
	State  *domain.AlertState
	Err    error
}

// Orchestrator runs the compute-classify-advance pipeline against a state
// store, serializing read-modify-write cycles per key.
type Orchestrator struct {
	states AlertStateStore
	params domain.Params
	logger *slog.Logger

	mu    sync.Mutex
	locks map[domain.Key]*sync.Mutex
}

// NewOrchestrator builds an Orchestrator around the given state store.
func NewOrchestrator(states AlertStateStore, params domain.Params, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		states: states,
		params: params,
		logger: logger,
		locks:  make(map[domain.Key]*sync.Mutex),
	}
}

// Process runs every entry through the pipeline and returns one Outcome per
// entry, in input order. Entries for the same key are sequenced against each
// other; a cancelled context marks the remaining entries with the context
// error instead of abandoning them silently.
//
// Process never writes to the state store: advanced states ride along in the
// outcomes until the caller has delivered the batch's results and events and
// calls CommitStates. A failure before that point leaves the stored state
// untouched, so a redelivered observation recomputes and re-emits instead of
// being rejected as stale.
func (o *Orchestrator) Process(ctx context.Context, entries []Entry) []Outcome {
	outcomes := make([]Outcome, len(entries))
	pending := make(map[domain.Key]domain.AlertState, len(entries))
	for i, entry := range entries {
		key := domain.Key{UserID: entry.Profile.UserID, LocationID: entry.Observation.LocationID}
		outcomes[i] = Outcome{Key: key}

		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}
		result, event, next, err := o.processEntry(ctx, key, entry, pending)
		outcomes[i].Result = result
		outcomes[i].Event = event
		outcomes[i].Err = err
		if err == nil {
			pending[key] = next
			state := next
			outcomes[i].State = &state
		}
	}
	return outcomes
}

// CommitStates persists the advanced states carried by a processed batch,
// last write per key winning. Callers invoke it only after the batch's
// results and events have reached their sinks; on a missed commit the
// deterministic result and event IDs make the redelivered outputs collapse
// into no-ops downstream.
func (o *Orchestrator) CommitStates(ctx context.Context, outcomes []Outcome) error {
	latest := make(map[domain.Key]*domain.AlertState, len(outcomes))
	order := make([]domain.Key, 0, len(outcomes))
	for i := range outcomes {
		if outcomes[i].State == nil {
			continue
		}
		if _, seen := latest[outcomes[i].Key]; !seen {
			order = append(order, outcomes[i].Key)
		}
		latest[outcomes[i].Key] = outcomes[i].State
	}

	for _, key := range order {
		if err := o.states.Put(ctx, key, *latest[key]); err != nil {
			return fmt.Errorf("store alert state for %s: %w", key, err)
		}
	}
	return nil
}

// processEntry runs one entry against the stored state, preferring the
// batch-local pending state so later entries for the same key see earlier
// advances before they are committed.
func (o *Orchestrator) processEntry(ctx context.Context, key domain.Key, entry Entry, pending map[domain.Key]domain.AlertState) (*domain.HeatIndexResult, *domain.AlertEvent, domain.AlertState, error) {
	var zero domain.AlertState

	if err := entry.Profile.Validate(); err != nil {
		return nil, nil, zero, err
	}
	if err := entry.Observation.Validate(); err != nil {
		return nil, nil, zero, err
	}

	unlock := o.lock(key)
	defer unlock()

	state, ok := pending[key]
	if !ok {
		var found bool
		var err error
		state, found, err = o.states.Get(ctx, key)
		if err != nil {
			return nil, nil, zero, fmt.Errorf("load alert state for %s: %w", key, err)
		}
		if !found {
			state = domain.NewAlertState()
		}
	}

	// Out-of-order or replayed observations never rewind the timeline.
	if !entry.Observation.Timestamp.After(state.LastObservation) {
		return nil, nil, zero, fmt.Errorf("observation at %s not newer than %s: %w",
			entry.Observation.Timestamp.Format(time.RFC3339),
			state.LastObservation.Format(time.RFC3339),
			domain.ErrStaleObservation)
	}

	result, err := domain.ComputeHeatIndex(entry.Observation, entry.Profile, o.params)
	if err != nil {
		return nil, nil, zero, err
	}
	result.Risk = domain.Classify(result.PersonalizedIndexC, entry.Profile, o.params)

	trigger := domain.TriggerLevel(entry.Profile, o.params)
	next, event, err := domain.Advance(key, state, result.Risk, trigger, entry.Observation.Timestamp, o.params)
	if err != nil {
		// An unknown transition means a bug or corrupt stored state; it must
		// be loud, never silently swallowed.
		o.logger.Error("alert state transition failed",
			"user_id", key.UserID,
			"location_id", key.LocationID,
			"phase", state.Phase,
			"level", result.Risk.String(),
			"error", err)
		return &result, nil, zero, err
	}

	next.LastObservation = entry.Observation.Timestamp
	next.LastIndexC = result.PersonalizedIndexC

	return &result, event, next, nil
}

// lock acquires the per-key mutex, creating it on first use, and returns the
// matching unlock.
func (o *Orchestrator) lock(key domain.Key) func() {
	o.mu.Lock()
	m, ok := o.locks[key]
	if !ok {
		m = &sync.Mutex{}
		o.locks[key] = m
	}
	o.mu.Unlock()

	m.Lock()
	return m.Unlock
}
