package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Handler processes one decoded event.  Returning an error leaves the
// offset uncommitted so the event is redelivered.
type Handler func(ctx context.Context, env EventEnvelope) error

// Consumer reads one topic with a consumer group and dispatches envelopes.
type Consumer struct {
	reader *kafka.Reader
	logger logging.Logger
}

// NewConsumer builds a group consumer for one topic.
func NewConsumer(cfg config.KafkaConfig, topic string, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	start := kafka.LastOffset
	if cfg.AutoOffsetReset == "earliest" {
		start = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		StartOffset: start,
	})
	return &Consumer{reader: reader, logger: logger.Named("consumer").With(logging.String("topic", topic))}
}

// Run consumes until the context is canceled.  Malformed envelopes are
// logged and committed; they would never decode on redelivery either.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "event fetch failed")
		}

		var env EventEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Warn("skipping malformed event",
				logging.Int64("offset", msg.Offset), logging.Err(err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "offset commit failed")
			}
			continue
		}

		if err := handle(ctx, env); err != nil {
			c.logger.Error("event handling failed",
				logging.String("id", env.ID), logging.String("type", env.Type), logging.Err(err))
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "offset commit failed")
		}
	}
}

// Close shuts the reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
