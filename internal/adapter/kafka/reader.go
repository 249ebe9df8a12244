// Package kafka adapts the segmentio/kafka-go client to the engine's
// extractor and sink interfaces.
package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/therealdaud/HealthShield/internal/config"
	"github.com/therealdaud/HealthShield/internal/domain"
)

// Reader consumes raw weather observations from the source topic.
// It implements engine.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a Kafka consumer for the configured source topic.
// Offsets are committed explicitly through RawObservation.Commit, never on
// fetch, so an unprocessed observation is redelivered after a crash.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch blocks for the first message, then drains up to batchSize
// messages within the flush interval. A short interval keeps latency low at
// quiet locations; a full batch returns immediately.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawObservation, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.RawObservation, 0, batchSize)
	batch = append(batch, r.mapMessage(first))

	deadline, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(deadline)
		if err != nil {
			// The flush window closed or the parent context was cancelled;
			// either way the batch collected so far is returned.
			break
		}
		batch = append(batch, r.mapMessage(msg))
	}
	return batch, nil
}

func (r *Reader) mapMessage(msg kafkago.Message) domain.RawObservation {
	raw := mapMessageToRawObservation(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawObservation copies a Kafka message into the transport-neutral
// raw observation.
func mapMessageToRawObservation(msg kafkago.Message) domain.RawObservation {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawObservation{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
