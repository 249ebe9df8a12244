package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawObservation is an unprocessed message from the weather source topic.
type RawObservation struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// rawObservationRecord is the flat JSON published by station collectors.
// Pointer fields distinguish absent from zero: temperature and humidity are
// mandatory, wind and solar are optional.
type rawObservationRecord struct {
	LocationID    string   `json:"location_id"`
	UnixTS        int64    `json:"ts"`
	TemperatureC  *float64 `json:"temp_c"`
	Humidity      *float64 `json:"rh_pct"`
	WindMPS       *float64 `json:"wind_mps"`
	SolarExposure *float64 `json:"solar_pct"`
}

// ParseRawObservation deserializes and validates a raw source message.
// A zero ts falls back to the message timestamp set by the collector.
func ParseRawObservation(raw RawObservation) (WeatherObservation, error) {
	var rec rawObservationRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return WeatherObservation{}, fmt.Errorf("parse raw observation: %v: %w", err, ErrInvalidInput)
	}

	if rec.TemperatureC == nil {
		return WeatherObservation{}, fmt.Errorf("observation missing temp_c: %w", ErrInvalidInput)
	}
	if rec.Humidity == nil {
		return WeatherObservation{}, fmt.Errorf("observation missing rh_pct: %w", ErrInvalidInput)
	}

	ts := raw.Timestamp
	if rec.UnixTS > 0 {
		ts = time.Unix(rec.UnixTS, 0).UTC()
	}

	obs := WeatherObservation{
		LocationID:    rec.LocationID,
		Timestamp:     ts,
		TemperatureC:  *rec.TemperatureC,
		Humidity:      *rec.Humidity,
		WindMPS:       rec.WindMPS,
		SolarExposure: rec.SolarExposure,
	}
	if err := obs.Validate(); err != nil {
		return WeatherObservation{}, err
	}
	return obs, nil
}

// OutputMessage is the serialized form destined for the alert sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeAlertEvent marshals an alert event for the sink topic. The message
// key is the (user, location) key so one timeline stays on one partition.
func SerializeAlertEvent(event AlertEvent) (OutputMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return OutputMessage{
		Key:   []byte(Key{UserID: event.UserID, LocationID: event.LocationID}.String()),
		Value: data,
		Headers: map[string]string{
			"kind":       string(event.Kind),
			"risk_level": event.Level.String(),
			"emitted_at": event.Timestamp.Format(time.RFC3339),
		},
	}, nil
}
