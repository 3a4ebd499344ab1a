package repository

import (
	"context"

	domrepo "TradeForge/internal/domain/repository"
	pkgkafka "TradeForge/pkg/kafka"
)

// KafkaEventPublisher emits lifecycle events to a single topic, keyed
// by event type for per-type ordering.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	return p.producer.Publish(ctx, p.topic, []byte(eventType), payload)
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NopEventPublisher discards events. Used when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, string, any) error { return nil }
func (NopEventPublisher) Close() error                               { return nil }
