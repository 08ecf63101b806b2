package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clientflow/alertrunner/internal/config"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
)

// MessageReader is the subset of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds business events from a Kafka topic into the alert runner.
// Offsets are committed after an event is handled, so delivery is at least
// once; cooldowns absorb the occasional redelivery.
type Consumer struct {
	reader     MessageReader
	runner     alert.Runner
	topic      string
	retryDelay time.Duration
	logger     *logger.Logger
}

// NewConsumer creates a consumer group reader for cfg.Topic
func NewConsumer(cfg config.KafkaConfig, runner alert.Runner, log *logger.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, fmt.Errorf("groupID cannot be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})

	return newConsumer(reader, runner, cfg.Topic, log), nil
}

func newConsumer(reader MessageReader, runner alert.Runner, topic string, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		runner:     runner,
		topic:      topic,
		retryDelay: 2 * time.Second,
		logger:     log.With("topic", topic),
	}
}

// Run consumes until ctx is cancelled. Malformed events are logged and
// committed; events whose handling fails are retried until they succeed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Event consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Event consumer stopped")
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Event consumer stopped")
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	for {
		_, err := c.Handle(ctx, msg)
		if err == nil || errors.Is(err, errMalformed) {
			return nil
		}

		c.logger.WithFields(map[string]interface{}{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).ErrorWithErr(err, "Event handling failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

var errMalformed = errors.New("malformed event")

// Handle decodes one message and triggers its event
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) (*alert.EventResult, error) {
	event, err := Decode(msg.Value)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"error":     err.Error(),
		}).Warn("Skipping malformed event")
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	result, err := Trigger(ctx, c.runner, event)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"event_type": event.EventType,
		"tenant_id":  result.TenantID,
		"success":    result.Success,
		"rules":      len(result.Results),
	}).Debug("Event handled")

	return result, nil
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		c.logger.ErrorWithErr(err, "Error closing event consumer")
		return err
	}
	return nil
}
