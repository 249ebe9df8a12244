package domain

import "time"

// Params holds the tunable constants of the engine: adjustment coefficients,
// clamp bounds, risk band floors, and alert thresholds. The shape of the
// model (ordering, monotonicity, hysteresis) is fixed; only the numbers move.
type Params struct {
	// Calculator.
	MinIndexTempC         float64
	ActivityDeltaC        map[ActivityLevel]float64
	ClothingDeltaC        map[ClothingLevel]float64
	AcclimatizationDeltaC map[Acclimatization]float64
	ClothingDeltaCapC     float64
	WindCoeffC            float64 // subtracted at full normalized wind
	WindCapMPS            float64
	SolarCoeffC           float64 // added at full solar exposure
	MaxPersonalDeltaC     float64 // personalized index may not exceed baseline by more
	IndexCeilingC         float64

	// Classifier band floors (°C, half-open intervals).
	ModerateFloorC float64
	HighFloorC     float64
	ExtremeFloorC  float64
	HealthMarginC  float64

	// State machine.
	DefaultTrigger RiskLevel
	ClearGap       int // bands below the trigger that clear an alert
	Cooldown       time.Duration
}

// DefaultParams returns the operational constants. Band floors correspond to
// the 90/103/125 °F buckets of the published heat-risk guidance.
func DefaultParams() Params {
	return Params{
		MinIndexTempC: 26.7, // 80 °F, below which the regression is undefined
		ActivityDeltaC: map[ActivityLevel]float64{
			ActivityResting:  0,
			ActivityLight:    0.5,
			ActivityModerate: 1.5,
			ActivityVigorous: 3.0,
		},
		ClothingDeltaC: map[ClothingLevel]float64{
			ClothingLight:  0,
			ClothingNormal: 0.8,
			ClothingHeavy:  1.7,
		},
		AcclimatizationDeltaC: map[Acclimatization]float64{
			AcclimatizationNone:    0,
			AcclimatizationPartial: -0.7,
			AcclimatizationFull:    -1.5,
		},
		ClothingDeltaCapC: 2.0,
		WindCoeffC:        1.2,
		WindCapMPS:        4.0,
		SolarCoeffC:       1.8,
		MaxPersonalDeltaC: 6.7, // 12 °F
		IndexCeilingC:     82.0,

		ModerateFloorC: 32.2, // 90 °F
		HighFloorC:     39.4, // 103 °F
		ExtremeFloorC:  51.7, // 125 °F
		HealthMarginC:  2.0,

		DefaultTrigger: RiskHigh,
		ClearGap:       1,
		Cooldown:       10 * time.Minute,
	}
}

// Rothfusz regression coefficients, °F domain.
const (
	rfC1 = -42.379
	rfC2 = 2.04901523
	rfC3 = 10.14333127
	rfC4 = -0.22475541
	rfC5 = -6.83783e-3
	rfC6 = -5.481717e-2
	rfC7 = 1.22874e-3
	rfC8 = 8.5282e-4
	rfC9 = -1.99e-6
)

func cToF(c float64) float64 { return c*9.0/5.0 + 32.0 }
func fToC(f float64) float64 { return (f - 32.0) * 5.0 / 9.0 }

// baselineIndexC evaluates the Rothfusz regression for a temperature at or
// above Params.MinIndexTempC. Callers handle the below-threshold case.
func baselineIndexC(tempC, humidity float64) float64 {
	t := cToF(tempC)
	r := humidity
	hiF := rfC1 + rfC2*t + rfC3*r +
		rfC4*t*r + rfC5*t*t + rfC6*r*r +
		rfC7*t*t*r + rfC8*t*r*r + rfC9*t*t*r*r
	return fToC(hiF)
}

// ComputeHeatIndex derives the personalized apparent-temperature index for
// one (observation, profile) pair. Pure function: no side effects, no clock.
// The returned result carries the unadjusted baseline alongside the
// personalized value; Risk is left for the classifier to fill.
//
// Missing optional profile fields default to neutral adjustments. Fails only
// on malformed weather input.
func ComputeHeatIndex(obs WeatherObservation, profile UserProfile, p Params) (HeatIndexResult, error) {
	if err := obs.Validate(); err != nil {
		return HeatIndexResult{}, err
	}

	result := HeatIndexResult{
		UserID:     profile.UserID,
		LocationID: obs.LocationID,
		Timestamp:  obs.Timestamp,
		AmbientC:   obs.TemperatureC,
	}

	// The regression is meaningless below the threshold: the index is the
	// ambient reading and personalization stays inactive.
	if obs.TemperatureC < p.MinIndexTempC {
		result.BaselineIndexC = obs.TemperatureC
		result.PersonalizedIndexC = obs.TemperatureC
		return result, nil
	}

	baseline := baselineIndexC(obs.TemperatureC, obs.Humidity)
	delta := personalDelta(obs, profile, p)

	personalized := baseline + delta
	ceiling := min(baseline+p.MaxPersonalDeltaC, p.IndexCeilingC)
	personalized = min(personalized, max(ceiling, obs.TemperatureC))
	personalized = max(personalized, obs.TemperatureC)

	result.BaselineIndexC = baseline
	result.PersonalizedIndexC = personalized
	return result, nil
}

// personalDelta applies the adjustment pipeline in its fixed order:
// activity, clothing (capped), acclimatization, then the optional ambient
// modifiers. Unknown enum values contribute nothing.
func personalDelta(obs WeatherObservation, profile UserProfile, p Params) float64 {
	delta := p.ActivityDeltaC[profile.Activity]
	delta += min(p.ClothingDeltaC[profile.Clothing], p.ClothingDeltaCapC)
	delta += p.AcclimatizationDeltaC[profile.Acclimatization]

	if obs.WindMPS != nil && p.WindCapMPS > 0 {
		wind := min(max(*obs.WindMPS, 0), p.WindCapMPS) / p.WindCapMPS
		delta -= p.WindCoeffC * wind
	}
	if obs.SolarExposure != nil {
		delta += p.SolarCoeffC * min(max(*obs.SolarExposure, 0), 1)
	}
	return delta
}

// TriggerLevel resolves the alert trigger for a profile: the validated
// per-user override when present, the configured default otherwise.
func TriggerLevel(profile UserProfile, p Params) RiskLevel {
	if profile.TriggerOverride != nil && profile.TriggerOverride.Valid() {
		return *profile.TriggerOverride
	}
	return p.DefaultTrigger
}
