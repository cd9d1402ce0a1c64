package repository

import (
	"context"
	"time"

	"SigPull/internal/domain/models"
	domsvc "SigPull/internal/domain/service"
	pkgkafka "SigPull/pkg/kafka"
)

// KafkaSignalPublisher emits signal lifecycle events to a topic, keyed by
// symbol so per-coin ordering is preserved.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

var _ domsvc.SignalPublisher = (*KafkaSignalPublisher)(nil)

func (p *KafkaSignalPublisher) SignalCreated(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.CoinSymbol), map[string]interface{}{
		"event":     "signal.created",
		"timestamp": time.Now().UTC(),
		"signal":    s,
	})
}

func (p *KafkaSignalPublisher) SignalClosed(ctx context.Context, e *models.HistoryEntry) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.CoinSymbol), map[string]interface{}{
		"event":     "signal.closed",
		"timestamp": time.Now().UTC(),
		"history":   e,
	})
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) SignalCreated(context.Context, *models.Signal) error      { return nil }
func (NoopPublisher) SignalClosed(context.Context, *models.HistoryEntry) error { return nil }
func (NoopPublisher) Close() error                                             { return nil }
