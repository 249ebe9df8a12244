package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealdaud/HealthShield/internal/domain"
)

func TestMapMessageToRawObservation(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("tampa-usf-valet"),
		Value:     []byte(`{"location_id":"tampa-usf-valet","temp_c":36.5,"rh_pct":68}`),
		Topic:     "raw-weather-observations",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("station-collector")},
		},
	}

	raw := mapMessageToRawObservation(msg)

	assert.Equal(t, []byte("tampa-usf-valet"), raw.Key)
	assert.JSONEq(t, `{"location_id":"tampa-usf-valet","temp_c":36.5,"rh_pct":68}`, string(raw.Value))
	assert.Equal(t, "raw-weather-observations", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "station-collector", raw.Headers["source"])
}

func TestToKafkaMessage(t *testing.T) {
	at := time.Date(2026, time.July, 14, 15, 10, 0, 0, time.UTC)
	event := domain.AlertEvent{
		ID:         "raised-abc123",
		UserID:     "user-1",
		LocationID: "tampa-usf-valet",
		Timestamp:  at,
		Kind:       domain.EventRaised,
		Level:      domain.RiskHigh,
	}

	out, err := domain.SerializeAlertEvent(event)
	require.NoError(t, err)

	msg := toKafkaMessage(out)

	assert.Equal(t, []byte("user-1:tampa-usf-valet"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"raised"`)
	require.Len(t, msg.Headers, 3)
	// Headers come out in sorted key order.
	assert.Equal(t, "emitted_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(at.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "kind", msg.Headers[1].Key)
	assert.Equal(t, []byte("raised"), msg.Headers[1].Value)
	assert.Equal(t, "risk_level", msg.Headers[2].Key)
	assert.Equal(t, []byte("high"), msg.Headers[2].Value)
}
