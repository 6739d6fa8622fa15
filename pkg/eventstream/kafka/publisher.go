// Package kafka provides a Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic receives all operation events.
	Topic string
}

// Publisher writes operation events to a Kafka topic as JSON messages keyed
// by collection, so events for one collection stay ordered.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka eventstream publisher.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if c.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(c.Brokers...),
		Topic:    c.Topic,
		Balancer: &kafkago.Hash{},
		// Operation events are low volume; flush quickly instead of
		// waiting for a batch to fill.
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishOperation writes one event to the topic.
func (p *Publisher) PublishOperation(ctx context.Context, event *eventstream.OperationEvent) error {
	if event == nil {
		return eventstream.ErrNilOperationEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling operation event: %w", err)
	}

	message := kafkago.Message{
		Key:   []byte(event.Collection),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("writing operation event: %w", err)
	}

	p.logger.Debug("published operation event",
		"event_id", event.EventID,
		"operation", event.Operation,
		"topic", p.writer.Topic,
	)

	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
