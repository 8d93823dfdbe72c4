package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/guard"
	"github.com/segmentio/kafka-go"
)

// KafkaProducer wraps a kafka-go writer for publishing messages.
type KafkaProducer struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	enabled bool
}

// NewKafkaProducer creates a Kafka producer. If brokers is empty or disabled, writes are no-ops.
func NewKafkaProducer(brokers string, enabled bool, logger *slog.Logger) *KafkaProducer {
	if !enabled || brokers == "" {
		logger.Info("kafka producer disabled")
		return &KafkaProducer{enabled: false, logger: logger}
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka producer initialized", "brokers", brokers)
	return &KafkaProducer{writer: w, logger: logger, enabled: true}
}

// Publish sends a message to the given topic. No-op if disabled.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if !p.enabled {
		return nil
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Close shuts down the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// MessagePublisher is the raw topic/key/value sink behind EventPublisher.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// EventPublisher routes domain drafts to "<prefix>.<eventType>" topics keyed by aggregate ID.
// An optional circuit breaker per topic sheds publishes while the broker is failing,
// so request paths do not wait on the writer timeout for every event.
type EventPublisher struct {
	sink    MessagePublisher
	prefix  string
	breaker *guard.CircuitBreaker
}

// NewEventPublisher creates a domain.EventPublisher on top of a message sink.
// breaker may be nil.
func NewEventPublisher(sink MessagePublisher, prefix string, breaker *guard.CircuitBreaker) *EventPublisher {
	return &EventPublisher{sink: sink, prefix: prefix, breaker: breaker}
}

// Topic returns the topic a draft of the given type is written to.
func (p *EventPublisher) Topic(t domain.EventType) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

func (p *EventPublisher) Publish(ctx context.Context, draft domain.OutboxDraft) error {
	topic := p.Topic(draft.EventType)
	if len(draft.Payload) == 0 {
		return fmt.Errorf("publish %s: event has no payload", topic)
	}
	if result := p.breaker.Check(ctx, topic); !result.Allowed {
		return fmt.Errorf("publish %s skipped: %s", topic, result.Reason)
	}

	msg, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.sink.Publish(ctx, topic, []byte(draft.PartitionKey), msg); err != nil {
		p.breaker.RecordFailure(topic)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.breaker.RecordSuccess(topic)
	return nil
}
