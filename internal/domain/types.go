package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RiskLevel is an ordered discrete heat-risk category.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskHigh
	RiskExtreme
)

var riskNames = [...]string{"low", "moderate", "high", "extreme"}

// Valid reports whether the level is inside the defined ordered set.
func (r RiskLevel) Valid() bool {
	return r >= RiskLow && r <= RiskExtreme
}

func (r RiskLevel) String() string {
	if !r.Valid() {
		return fmt.Sprintf("risk(%d)", int(r))
	}
	return riskNames[r]
}

// ParseRiskLevel maps a lowercase level name to its RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for i, name := range riskNames {
		if s == name {
			return RiskLevel(i), nil
		}
	}
	return RiskLow, fmt.Errorf("parse risk level %q: %w", s, ErrInvalidInput)
}

// MarshalText encodes the level as its lowercase name for JSON payloads.
func (r RiskLevel) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal risk level %d: %w", int(r), ErrUnknownTransition)
	}
	return []byte(riskNames[r]), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// ActivityLevel is the user's physical exertion category.
type ActivityLevel string

const (
	ActivityResting  ActivityLevel = "resting"
	ActivityLight    ActivityLevel = "light"
	ActivityModerate ActivityLevel = "moderate"
	ActivityVigorous ActivityLevel = "vigorous"
)

// ClothingLevel is the user's clothing insulation category.
type ClothingLevel string

const (
	ClothingLight  ClothingLevel = "light"
	ClothingNormal ClothingLevel = "normal"
	ClothingHeavy  ClothingLevel = "heavy"
)

// Acclimatization is the user's heat-adaptation status.
type Acclimatization string

const (
	AcclimatizationNone    Acclimatization = "unacclimatized"
	AcclimatizationPartial Acclimatization = "partial"
	AcclimatizationFull    Acclimatization = "acclimatized"
)

// Key identifies the per-(user, location) alert timeline.
type Key struct {
	UserID     string `json:"user_id"`
	LocationID string `json:"location_id"`
}

func (k Key) String() string {
	return k.UserID + ":" + k.LocationID
}

// WeatherObservation is one point-in-time ambient reading for a location.
// Temperature and humidity are mandatory; wind and solar exposure default to
// neutral when absent.
type WeatherObservation struct {
	LocationID    string    `json:"location_id"`
	Timestamp     time.Time `json:"timestamp"`
	TemperatureC  float64   `json:"temperature_c"`
	Humidity      float64   `json:"humidity_pct"`
	WindMPS       *float64  `json:"wind_mps,omitempty"`
	SolarExposure *float64  `json:"solar_exposure,omitempty"` // 0..1 fraction of clear-sky load
}

// Validate checks the mandatory-field invariants.
func (o WeatherObservation) Validate() error {
	if o.LocationID == "" {
		return fmt.Errorf("observation missing location id: %w", ErrInvalidInput)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("observation missing timestamp: %w", ErrInvalidInput)
	}
	if o.Humidity < 0 || o.Humidity > 100 {
		return fmt.Errorf("humidity %.1f outside [0,100]: %w", o.Humidity, ErrInvalidInput)
	}
	if o.SolarExposure != nil && (*o.SolarExposure < 0 || *o.SolarExposure > 1) {
		return fmt.Errorf("solar exposure %.2f outside [0,1]: %w", *o.SolarExposure, ErrInvalidInput)
	}
	return nil
}

// UserProfile is an immutable snapshot of a user's physiological and
// behavioral inputs. The engine never mutates it. Missing enum fields fall
// back to neutral adjustments during computation.
type UserProfile struct {
	UserID          string          `json:"user_id"`
	LocationID      string          `json:"location_id"`
	Activity        ActivityLevel   `json:"activity"`
	Clothing        ClothingLevel   `json:"clothing"`
	Acclimatization Acclimatization `json:"acclimatization"`
	HealthSensitive bool            `json:"health_sensitive,omitempty"`

	// TriggerOverride replaces the default alert trigger level for this user.
	// It never moves the classification bands.
	TriggerOverride *RiskLevel `json:"trigger_override,omitempty"`
}

// Validate checks the profile fields needed to key the alert timeline.
func (p UserProfile) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("profile missing user id: %w", ErrInvalidInput)
	}
	if p.TriggerOverride != nil && !p.TriggerOverride.Valid() {
		return fmt.Errorf("trigger override %d out of range: %w", int(*p.TriggerOverride), ErrInvalidInput)
	}
	return nil
}

// HeatIndexResult is one immutable computation outcome. Both the baseline and
// the personalized index are retained for transparency; a result is never
// updated in place, only superseded by a later timestamp.
type HeatIndexResult struct {
	UserID             string    `json:"user_id"`
	LocationID         string    `json:"location_id"`
	Timestamp          time.Time `json:"timestamp"`
	AmbientC           float64   `json:"ambient_c"`
	BaselineIndexC     float64   `json:"baseline_index_c"`
	PersonalizedIndexC float64   `json:"personalized_index_c"`
	Risk               RiskLevel `json:"risk_level"`
}

// ID produces a deterministic identifier from the result's key fields.
// Deterministic IDs enable idempotent inserts (ON CONFLICT DO NOTHING) and
// replay safety: reprocessing the same observation yields the same ID.
func (r HeatIndexResult) ID() string {
	input := fmt.Sprintf("%s|%s|%d", r.UserID, r.LocationID, r.Timestamp.UTC().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return "hix-" + hex.EncodeToString(hash[:8])
}

// MachinePhase names the alert state machine's current state.
type MachinePhase string

const (
	PhaseNormal   MachinePhase = "normal"
	PhaseAlerting MachinePhase = "alerting"
	PhaseCooldown MachinePhase = "cooldown"
)

// AlertState is the single mutable record per (user, location) timeline.
// It is advanced exclusively by Advance and stored atomically per key.
type AlertState struct {
	Phase MachinePhase `json:"phase"`

	// Level is the risk level of the newest classified observation, in every
	// phase; read paths report it as the current level.
	Level RiskLevel `json:"level"`

	// PeakLevel is the highest level seen since the alert was raised.
	// Escalation compares against it, so a dip and recovery inside an alert
	// stays silent.
	PeakLevel RiskLevel `json:"peak_level,omitempty"`

	LastTransition time.Time  `json:"last_transition,omitzero"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`

	// LastObservation is the newest observation timestamp folded into this
	// state; anything at or before it is stale.
	LastObservation time.Time `json:"last_observation,omitzero"`

	// LastIndexC is the personalized index from the newest observation,
	// kept so read paths can report the current value without a result lookup.
	LastIndexC float64 `json:"last_index_c,omitempty"`
}

// NewAlertState returns the initial state for a fresh (user, location) key.
func NewAlertState() AlertState {
	return AlertState{Phase: PhaseNormal, Level: RiskLow}
}

// AlertEventKind distinguishes the three emitted alert transitions.
type AlertEventKind string

const (
	EventRaised    AlertEventKind = "raised"
	EventEscalated AlertEventKind = "escalated"
	EventCleared   AlertEventKind = "cleared"
)

// AlertEvent is an immutable, append-only record of a state machine
// transition, consumed by the notification dispatcher.
type AlertEvent struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	LocationID string         `json:"location_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Kind       AlertEventKind `json:"kind"`
	Level      RiskLevel      `json:"risk_level"`
}

func newAlertEvent(key Key, kind AlertEventKind, level RiskLevel, at time.Time) *AlertEvent {
	input := fmt.Sprintf("%s|%s|%d|%s", key.UserID, key.LocationID, at.UTC().UnixNano(), kind)
	hash := sha256.Sum256([]byte(input))
	return &AlertEvent{
		ID:         string(kind) + "-" + hex.EncodeToString(hash[:8]),
		UserID:     key.UserID,
		LocationID: key.LocationID,
		Timestamp:  at,
		Kind:       kind,
		Level:      level,
	}
}
