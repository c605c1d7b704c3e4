package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"certledger/internal/platform/kafka/producer"
	"certledger/internal/platform/middleware"
)

// Publisher delivers audit events to a sink. Implementations must be safe for
// concurrent use. Emit failures are advisory: callers log and continue.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// enrich stamps the fields every sink needs.
func enrich(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = middleware.GetRequestID(ctx)
	}
	return event
}

// KafkaPublisher publishes audit events to a Kafka topic.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka-backed audit publisher.
func NewKafkaPublisher(p *producer.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	event = enrich(ctx, event)
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return k.producer.Publish(ctx, producer.Message{
		Topic: k.topic,
		Key:   []byte(event.Subject),
		Value: value,
	})
}

// MemoryPublisher keeps events in memory. Used for tests and for running
// without Kafka configured.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryPublisher creates an in-memory audit publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Emit(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, enrich(ctx, event))
	return nil
}

// Events returns a snapshot of all emitted events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
