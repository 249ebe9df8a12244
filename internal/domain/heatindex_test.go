package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC)

func makeObservation(tempC, humidity float64) WeatherObservation {
	return WeatherObservation{
		LocationID:   "tampa-usf-valet",
		Timestamp:    testTime,
		TemperatureC: tempC,
		Humidity:     humidity,
	}
}

func makeProfile(activity ActivityLevel, clothing ClothingLevel, acclim Acclimatization) UserProfile {
	return UserProfile{
		UserID:          "user-1",
		LocationID:      "tampa-usf-valet",
		Activity:        activity,
		Clothing:        clothing,
		Acclimatization: acclim,
	}
}

func TestComputeHeatIndex_BelowThresholdEqualsAmbient(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name  string
		tempC float64
	}{
		{"cool day", 18.0},
		{"mild day", 24.5},
		{"just under threshold", 26.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Even the most aggressive profile must not move the index.
			profile := makeProfile(ActivityVigorous, ClothingHeavy, AcclimatizationNone)
			result, err := ComputeHeatIndex(makeObservation(tt.tempC, 90), profile, p)

			require.NoError(t, err)
			assert.Equal(t, tt.tempC, result.BaselineIndexC)
			assert.Equal(t, tt.tempC, result.PersonalizedIndexC)
		})
	}
}

func TestComputeHeatIndex_InvalidInput(t *testing.T) {
	p := DefaultParams()
	profile := makeProfile(ActivityResting, ClothingNormal, AcclimatizationNone)

	tests := []struct {
		name string
		obs  WeatherObservation
	}{
		{"humidity above 100", makeObservation(30, 101)},
		{"negative humidity", makeObservation(30, -0.5)},
		{"missing location", WeatherObservation{Timestamp: testTime, TemperatureC: 30, Humidity: 50}},
		{"missing timestamp", WeatherObservation{LocationID: "loc", TemperatureC: 30, Humidity: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeHeatIndex(tt.obs, profile, p)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestComputeHeatIndex_MonotonicInActivity(t *testing.T) {
	p := DefaultParams()
	obs := makeObservation(33, 60)

	levels := []ActivityLevel{ActivityResting, ActivityLight, ActivityModerate, ActivityVigorous}
	var prev float64
	for i, level := range levels {
		result, err := ComputeHeatIndex(obs, makeProfile(level, ClothingNormal, AcclimatizationNone), p)
		require.NoError(t, err)
		if i > 0 {
			assert.GreaterOrEqual(t, result.PersonalizedIndexC, prev, "activity %s", level)
		}
		prev = result.PersonalizedIndexC
	}
}

func TestComputeHeatIndex_MonotonicInClothing(t *testing.T) {
	p := DefaultParams()
	obs := makeObservation(33, 60)

	levels := []ClothingLevel{ClothingLight, ClothingNormal, ClothingHeavy}
	var prev float64
	for i, level := range levels {
		result, err := ComputeHeatIndex(obs, makeProfile(ActivityModerate, level, AcclimatizationNone), p)
		require.NoError(t, err)
		if i > 0 {
			assert.GreaterOrEqual(t, result.PersonalizedIndexC, prev, "clothing %s", level)
		}
		prev = result.PersonalizedIndexC
	}
}

func TestComputeHeatIndex_AcclimatizationDiscountBounded(t *testing.T) {
	p := DefaultParams()
	obs := makeObservation(34, 65)

	none, err := ComputeHeatIndex(obs, makeProfile(ActivityModerate, ClothingNormal, AcclimatizationNone), p)
	require.NoError(t, err)
	full, err := ComputeHeatIndex(obs, makeProfile(ActivityModerate, ClothingNormal, AcclimatizationFull), p)
	require.NoError(t, err)

	assert.Less(t, full.PersonalizedIndexC, none.PersonalizedIndexC)
	assert.GreaterOrEqual(t, none.PersonalizedIndexC-full.PersonalizedIndexC, 1.0)
	// The discount never drops the index below ambient.
	assert.GreaterOrEqual(t, full.PersonalizedIndexC, obs.TemperatureC)
}

func TestComputeHeatIndex_ClampsToAmbientFloor(t *testing.T) {
	p := DefaultParams()
	// At very low humidity the regression dips under the ambient reading;
	// a full acclimatization discount would push it further down.
	obs := makeObservation(27, 0)
	result, err := ComputeHeatIndex(obs, makeProfile(ActivityResting, ClothingLight, AcclimatizationFull), p)

	require.NoError(t, err)
	assert.Equal(t, obs.TemperatureC, result.PersonalizedIndexC)
}

func TestComputeHeatIndex_ClampsToCeiling(t *testing.T) {
	p := DefaultParams()
	// 45 °C at saturation humidity puts the raw regression far past any
	// physically sane value.
	obs := makeObservation(45, 100)
	result, err := ComputeHeatIndex(obs, makeProfile(ActivityVigorous, ClothingHeavy, AcclimatizationNone), p)

	require.NoError(t, err)
	assert.Equal(t, p.IndexCeilingC, result.PersonalizedIndexC)
}

func TestComputeHeatIndex_BoundedAboveBaseline(t *testing.T) {
	p := DefaultParams()
	obs := makeObservation(33, 60)
	result, err := ComputeHeatIndex(obs, makeProfile(ActivityVigorous, ClothingHeavy, AcclimatizationNone), p)

	require.NoError(t, err)
	assert.Greater(t, result.PersonalizedIndexC, result.BaselineIndexC)
	assert.LessOrEqual(t, result.PersonalizedIndexC, result.BaselineIndexC+p.MaxPersonalDeltaC)
}

func TestComputeHeatIndex_OptionalFieldsNeutral(t *testing.T) {
	p := DefaultParams()
	obs := makeObservation(33, 60)

	bare, err := ComputeHeatIndex(obs, makeProfile(ActivityModerate, ClothingNormal, AcclimatizationNone), p)
	require.NoError(t, err)

	wind := 3.0
	windy := obs
	windy.WindMPS = &wind
	withWind, err := ComputeHeatIndex(windy, makeProfile(ActivityModerate, ClothingNormal, AcclimatizationNone), p)
	require.NoError(t, err)
	assert.Less(t, withWind.PersonalizedIndexC, bare.PersonalizedIndexC)

	solar := 1.0
	sunny := obs
	sunny.SolarExposure = &solar
	withSolar, err := ComputeHeatIndex(sunny, makeProfile(ActivityModerate, ClothingNormal, AcclimatizationNone), p)
	require.NoError(t, err)
	assert.Greater(t, withSolar.PersonalizedIndexC, bare.PersonalizedIndexC)
}

func TestComputeHeatIndex_UnknownEnumsDefaultNeutral(t *testing.T) {
	p := DefaultParams()
	obs := makeObservation(33, 60)

	empty, err := ComputeHeatIndex(obs, UserProfile{UserID: "u", LocationID: obs.LocationID}, p)
	require.NoError(t, err)
	resting, err := ComputeHeatIndex(obs, makeProfile(ActivityResting, ClothingLight, AcclimatizationNone), p)
	require.NoError(t, err)

	assert.Equal(t, resting.PersonalizedIndexC, empty.PersonalizedIndexC)
}

func TestComputeHeatIndex_VigorousScenario(t *testing.T) {
	// 38 °C at 70 % humidity, worst-case profile: the index must exceed
	// ambient by a bounded positive margin and land in the Extreme band.
	p := DefaultParams()
	obs := makeObservation(38, 70)
	profile := makeProfile(ActivityVigorous, ClothingHeavy, AcclimatizationNone)

	result, err := ComputeHeatIndex(obs, profile, p)
	require.NoError(t, err)

	assert.Greater(t, result.PersonalizedIndexC, obs.TemperatureC)
	assert.Greater(t, result.PersonalizedIndexC, result.BaselineIndexC)
	assert.LessOrEqual(t, result.PersonalizedIndexC, result.BaselineIndexC+p.MaxPersonalDeltaC)
	assert.Equal(t, RiskExtreme, Classify(result.PersonalizedIndexC, profile, p))
}

func TestTriggerLevel(t *testing.T) {
	p := DefaultParams()

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, RiskHigh, TriggerLevel(UserProfile{}, p))
	})

	t.Run("override", func(t *testing.T) {
		moderate := RiskModerate
		profile := UserProfile{TriggerOverride: &moderate}
		assert.Equal(t, RiskModerate, TriggerLevel(profile, p))
	})

	t.Run("invalid override ignored", func(t *testing.T) {
		bogus := RiskLevel(7)
		profile := UserProfile{TriggerOverride: &bogus}
		assert.Equal(t, RiskHigh, TriggerLevel(profile, p))
	})
}
