package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"solana-presale/internal/domain"
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes ledger events as JSON, keyed by sale ID so one
// sale's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	Topic  string
}

// NewKafkaPublisher creates a new Kafka publisher for ledger events.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, Topic: topic}
}

// Name implements Sink.
func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// Publish sends the event to the configured topic.
func (p *KafkaPublisher) Publish(ctx context.Context, e *domain.LedgerEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.SaleID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
			{Key: "event_id", Value: []byte(e.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
