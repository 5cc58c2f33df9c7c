package repository

import (
	"context"
	"fmt"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
)

// MessageProducer is the subset of pkg/kafka.Producer used for publishing.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaResultPublisher publishes analysis summaries keyed by "X:Y" so a
// hash balancer keeps each pair on one partition.
type KafkaResultPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaResultPublisher(p MessageProducer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (p *KafkaResultPublisher) PublishAnalysis(ctx context.Context, a *models.PairAnalysis) error {
	sum := a.Summary()
	key := []byte(models.PairKey(sum.SymbolX, sum.SymbolY))
	if err := p.producer.Publish(ctx, p.topic, key, sum); err != nil {
		return fmt.Errorf("publish analysis: %w", err)
	}
	return nil
}

func (p *KafkaResultPublisher) Close() error { return p.producer.Close() }

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
