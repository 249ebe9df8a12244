package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/therealdaud/HealthShield/internal/domain"
	"github.com/therealdaud/HealthShield/internal/observability"
)

// BatchExtractor reads up to batchSize raw observations from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawObservation, error)
}

// ProfileSource resolves the user profiles subscribed to a location.
type ProfileSource interface {
	ProfilesForLocation(ctx context.Context, locationID string) ([]domain.UserProfile, error)
}

// EventSink publishes alert events to the notification channel.
type EventSink interface {
	PublishEvents(ctx context.Context, events []domain.AlertEvent) error
}

// ResultSink persists computed heat index results.
type ResultSink interface {
	SaveResults(ctx context.Context, results []domain.HeatIndexResult) error
}

// Runner drives the extract-compute-publish loop: pull raw observations, fan
// each out to the profiles subscribed to its location, run the orchestrator,
// persist results, publish alert events, then commit offsets.
type Runner struct {
	extractor BatchExtractor
	profiles  ProfileSource
	orch      *Orchestrator
	events    EventSink
	results   ResultSink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// NewRunner wires the loop's stages together.
func NewRunner(e BatchExtractor, p ProfileSource, orch *Orchestrator, events EventSink, results ResultSink, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Runner {
	return &Runner{
		extractor: e,
		profiles:  p,
		orch:      orch,
		events:    events,
		results:   results,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the runner has completed at least one batch,
// or an error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("engine has not processed any observations yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("engine started", "batch_size", r.batchSize)
	r.metrics.EngineRunning.Set(1)
	defer r.metrics.EngineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("engine stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !r.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-compute-publish cycle. Returns false if the
// runner should stop.
func (r *Runner) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := r.extractor.ExtractBatch(ctx, r.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.logger.Error("extract batch failed", "error", err)
		return r.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	r.metrics.ObservationsConsumed.Add(float64(len(rawBatch)))
	r.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	processed, ok := r.computeAndPublish(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if processed > 0 {
		r.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		r.ready.Store(true)
	}
	return true
}

// computeAndPublish parses each raw observation, fans it out to subscribed
// profiles, runs the orchestrator over the whole batch, then persists results,
// publishes events, commits the advanced alert states, and finally commits
// offsets. A malformed observation is committed and skipped; a profile lookup
// or sink failure leaves both the stored states and the offsets untouched so
// the redelivered batch recomputes and re-emits. Returns the number of results
// produced and false if the runner should stop.
func (r *Runner) computeAndPublish(ctx context.Context, rawBatch []domain.RawObservation, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	entries := make([]Entry, 0, len(rawBatch))
	committable := make([]domain.RawObservation, 0, len(rawBatch))

	for _, raw := range rawBatch {
		obs, err := domain.ParseRawObservation(raw)
		if err != nil {
			r.logger.Warn("parse observation failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			r.metrics.EntryErrors.WithLabelValues("invalid_input").Inc()
			r.commitOffset(ctx, raw)
			continue
		}

		profiles, err := r.profiles.ProfilesForLocation(ctx, obs.LocationID)
		if err != nil {
			// Leave the offset uncommitted: the observation is retried once
			// the profile source recovers.
			r.logger.Error("profile lookup failed", "error", err, "location_id", obs.LocationID)
			return 0, r.backoffOrStop(ctx, backoff, maxBackoff)
		}
		if len(profiles) == 0 {
			r.commitOffset(ctx, raw)
			continue
		}

		for _, profile := range profiles {
			entries = append(entries, Entry{Profile: profile, Observation: obs})
		}
		committable = append(committable, raw)
	}

	if len(entries) == 0 {
		return 0, true
	}

	outcomes := r.orch.Process(ctx, entries)

	results := make([]domain.HeatIndexResult, 0, len(outcomes))
	events := make([]domain.AlertEvent, 0, len(outcomes))
	retryable := false
	for _, out := range outcomes {
		if out.Err != nil {
			if r.recordEntryError(out) {
				retryable = true
			}
			continue
		}
		results = append(results, *out.Result)
		if out.Event != nil {
			events = append(events, *out.Event)
		}
	}
	if retryable {
		return 0, r.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(results) > 0 {
		if err := r.results.SaveResults(ctx, results); err != nil {
			r.logger.Error("save results failed", "error", err, "count", len(results))
			return 0, r.backoffOrStop(ctx, backoff, maxBackoff)
		}
		r.metrics.ResultsProduced.Add(float64(len(results)))
	}

	if len(events) > 0 {
		if err := r.events.PublishEvents(ctx, events); err != nil {
			r.logger.Error("publish events failed", "error", err, "count", len(events))
			return 0, r.backoffOrStop(ctx, backoff, maxBackoff)
		}
		for _, event := range events {
			r.metrics.AlertEvents.WithLabelValues(string(event.Kind)).Inc()
		}
	}

	// State writes are the last step of the cycle: a failure in either sink
	// above leaves LastObservation unadvanced, so the redelivered batch passes
	// the stale guard and its deterministic result and event IDs dedupe
	// downstream.
	if err := r.orch.CommitStates(ctx, outcomes); err != nil {
		r.logger.Error("commit alert states failed", "error", err, "count", len(outcomes))
		r.metrics.EntryErrors.WithLabelValues("storage_unavailable").Inc()
		return 0, r.backoffOrStop(ctx, backoff, maxBackoff)
	}

	for _, raw := range committable {
		r.commitOffset(ctx, raw)
	}

	return len(results), true
}

// recordEntryError counts a per-entry failure and reports whether it warrants
// redelivering the observation. Stale and invalid entries are final; storage
// outages and cancellation are not.
func (r *Runner) recordEntryError(out Outcome) bool {
	switch {
	case errors.Is(out.Err, domain.ErrStaleObservation):
		r.metrics.EntryErrors.WithLabelValues("stale_observation").Inc()
		return false
	case errors.Is(out.Err, domain.ErrInvalidInput):
		r.logger.Warn("entry rejected", "error", out.Err,
			"user_id", out.Key.UserID, "location_id", out.Key.LocationID)
		r.metrics.EntryErrors.WithLabelValues("invalid_input").Inc()
		return false
	case errors.Is(out.Err, domain.ErrUnknownTransition):
		r.metrics.EntryErrors.WithLabelValues("unknown_transition").Inc()
		return false
	case errors.Is(out.Err, context.Canceled), errors.Is(out.Err, context.DeadlineExceeded):
		r.metrics.EntryErrors.WithLabelValues("cancelled").Inc()
		return true
	default:
		r.logger.Error("entry failed", "error", out.Err,
			"user_id", out.Key.UserID, "location_id", out.Key.LocationID)
		r.metrics.EntryErrors.WithLabelValues("storage_unavailable").Inc()
		return true
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the runner should stop.
func (r *Runner) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (r *Runner) commitOffset(ctx context.Context, raw domain.RawObservation) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		r.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
