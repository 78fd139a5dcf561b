package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// EventEnvelope is the wire format of every published event.
type EventEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload into a typed envelope with a fresh event id.
func NewEnvelope(eventType, source string, payload interface{}) (EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, apperrors.Wrap(err, apperrors.ErrCodeSerialization,
			"event payload not serializable")
	}
	return EventEnvelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Producer publishes envelopes to Kafka.  A nil *Producer is a valid no-op
// publisher, so callers need no Enabled checks at every publish site.
type Producer struct {
	writer  *kafka.Writer
	source  string
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewProducer builds a Kafka producer from configuration.
func NewProducer(cfg config.KafkaConfig, source string, logger logging.Logger, metrics *prometheus.AppMetrics) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries + 1,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, source: source, logger: logger.Named("producer"), metrics: metrics}
}

// Publish sends one event.  key selects the partition; use the case or
// record identifier so events for one entity stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, eventType string, payload interface{}) error {
	if p == nil {
		return nil
	}
	env, err := NewEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "event envelope not serializable")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "event-id", Value: []byte(env.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "event publish failed")
	}
	p.metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
	p.logger.Debug("published event",
		logging.String("topic", topic), logging.String("type", eventType), logging.String("id", env.ID))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
