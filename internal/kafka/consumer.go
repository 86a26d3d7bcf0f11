package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/schema"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// MessageReader abstracts the kafka reader for testability.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SchemaLoader abstracts the schema registry for testability.
type SchemaLoader interface {
	Load(name, sdl string) (*schema.Snapshot, error)
}

// SchemaUpdate is the payload of a schema message.
type SchemaUpdate struct {
	Name string `json:"name"`
	SDL  string `json:"sdl"`
}

var errEmptySDL = errors.New("schema update has no sdl")

// Consumer reads schema updates from a Kafka topic and loads them into the registry.
type Consumer struct {
	reader  MessageReader
	loader  SchemaLoader
	topic   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsumer creates a consumer that reads from the given topic and loads into the registry.
func NewConsumer(brokers []string, topic, groupID string, l SchemaLoader, m *observability.Metrics, logger *slog.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10 MB
	})
	return &Consumer{
		reader:  reader,
		loader:  l,
		topic:   topic,
		logger:  logger,
		metrics: m,
	}
}

// Run consumes messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("kafka schema consumer started", "topic", c.topic)
	c.metrics.KafkaConsumerRunning.WithLabelValues(c.topic).Set(1)
	defer c.metrics.KafkaConsumerRunning.WithLabelValues(c.topic).Set(0)

	backoff := initialBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "fetch").Inc()
			c.logger.Error("fetch kafka message", "error", err, "retry_in", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if stop := c.handleMessage(ctx, msg); stop {
			return nil
		}
	}
}

// handleMessage loads one schema update and commits it. It returns true
// when the consumer should stop.
func (c *Consumer) handleMessage(ctx context.Context, msg kafkago.Message) bool {
	if ctx.Err() != nil {
		return true
	}

	update, err := decodeUpdate(msg)
	if err != nil {
		c.logger.Error("decode schema update", "error", err, "offset", msg.Offset)
		c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "unmarshal").Inc()
		c.commit(ctx, msg)
		return false
	}

	// Invalid SDL will never load; commit it so it is not redelivered.
	if _, err := c.loader.Load(update.Name, update.SDL); err != nil {
		c.logger.Error("load schema update", "error", err, "name", update.Name, "offset", msg.Offset)
		c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "load").Inc()
		c.commit(ctx, msg)
		return false
	}

	c.commit(ctx, msg)
	c.metrics.KafkaMessagesConsumed.WithLabelValues(c.topic).Inc()
	c.logger.Debug("consumed schema update", "name", update.Name, "offset", msg.Offset)
	return false
}

func (c *Consumer) commit(ctx context.Context, msg kafkago.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("commit offset", "error", err, "offset", msg.Offset)
	}
}

// decodeUpdate reads the payload, naming it after the message key when the
// payload carries no name.
func decodeUpdate(msg kafkago.Message) (SchemaUpdate, error) {
	var u SchemaUpdate
	if err := json.Unmarshal(msg.Value, &u); err != nil {
		return u, err
	}
	if u.SDL == "" {
		return u, errEmptySDL
	}
	if u.Name == "" {
		u.Name = string(msg.Key)
	}
	if u.Name == "" {
		u.Name = msg.Topic
	}
	return u, nil
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
