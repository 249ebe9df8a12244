package domain

import (
	"fmt"
	"time"
)

// clearLevel is the hysteresis threshold: an alert raised at trigger T only
// clears once the level drops below T minus the configured gap. The gap keeps
// an index oscillating around T from emitting raise/clear pairs.
func clearLevel(trigger RiskLevel, gap int) RiskLevel {
	cleared := trigger - RiskLevel(gap)
	if cleared < RiskLow {
		return RiskLow
	}
	return cleared
}

// Advance feeds one classified risk level into the per-key state machine and
// returns the successor state plus the emitted event, if any. Pure transition
// function: the caller owns reading and writing the state record.
//
// Transitions:
//
//	Normal   --[L >= T]-------------> Alerting(L)        emits Raised
//	Alerting --[L > peak]-----------> Alerting(L)        emits Escalated
//	Alerting --[L < clear(T)]-------> Cooldown(now+d)    emits Cleared
//	Cooldown --[now < until]--------> Cooldown(until)    suppressed, no event
//	Cooldown --[now >= until, L>=T]-> Alerting(L)        emits Raised
//	Cooldown --[now >= until, L<T]--> Normal             silent
//
// Level always tracks the newest classified observation; PeakLevel holds the
// escalation reference while an alert is active.
//
// Returns ErrUnknownTransition for a level outside the ordered set; that is a
// contract violation, never a recoverable condition.
func Advance(key Key, state AlertState, level, trigger RiskLevel, now time.Time, p Params) (AlertState, *AlertEvent, error) {
	if !level.Valid() {
		return AlertState{}, nil, fmt.Errorf("risk level %d for %s: %w", int(level), key, ErrUnknownTransition)
	}
	if !trigger.Valid() {
		return AlertState{}, nil, fmt.Errorf("trigger level %d for %s: %w", int(trigger), key, ErrUnknownTransition)
	}

	switch state.Phase {
	case PhaseAlerting:
		return advanceAlerting(key, state, level, trigger, now, p)
	case PhaseCooldown:
		return advanceCooldown(key, state, level, trigger, now)
	default:
		// Zero-value states count as Normal so fresh keys need no setup.
		return advanceNormal(key, state, level, trigger, now)
	}
}

func advanceNormal(key Key, state AlertState, level, trigger RiskLevel, now time.Time) (AlertState, *AlertEvent, error) {
	state.Phase = PhaseNormal
	state.Level = level
	state.PeakLevel = level
	if level >= trigger {
		state.Phase = PhaseAlerting
		state.LastTransition = now
		return state, newAlertEvent(key, EventRaised, level, now), nil
	}
	return state, nil, nil
}

func advanceAlerting(key Key, state AlertState, level, trigger RiskLevel, now time.Time, p Params) (AlertState, *AlertEvent, error) {
	state.Level = level

	switch {
	case level > state.PeakLevel:
		state.PeakLevel = level
		state.LastTransition = now
		return state, newAlertEvent(key, EventEscalated, level, now), nil

	case level < clearLevel(trigger, p.ClearGap):
		until := now.Add(p.Cooldown)
		state.Phase = PhaseCooldown
		state.PeakLevel = level
		state.LastTransition = now
		state.CooldownUntil = &until
		return state, newAlertEvent(key, EventCleared, level, now), nil

	default:
		// Still at or near the alerting level: hold the raised alert. A dip
		// and recovery back to the peak emits nothing.
		return state, nil, nil
	}
}

func advanceCooldown(key Key, state AlertState, level, trigger RiskLevel, now time.Time) (AlertState, *AlertEvent, error) {
	state.Level = level

	if state.CooldownUntil != nil && now.Before(*state.CooldownUntil) {
		// Alert storms are suppressed until the window elapses, even if the
		// level re-crosses the trigger.
		return state, nil, nil
	}

	state.CooldownUntil = nil
	state.PeakLevel = level
	if level >= trigger {
		state.Phase = PhaseAlerting
		state.LastTransition = now
		return state, newAlertEvent(key, EventRaised, level, now), nil
	}

	state.Phase = PhaseNormal
	state.LastTransition = now
	return state, nil, nil
}
