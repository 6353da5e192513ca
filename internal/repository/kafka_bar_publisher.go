package repository

import (
	"context"

	"CoinSight/internal/domain/models"
	"CoinSight/internal/domain/repository"
	pkgkafka "CoinSight/pkg/kafka"
)

// KafkaBarPublisher implements BarPublisher for Kafka. Bars are keyed by
// symbol so a symbol's stream stays ordered within a partition.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaBarPublisher creates a Kafka bar publisher.
func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) repository.BarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) Publish(ctx context.Context, bar *models.MarketBar) error {
	return p.producer.Publish(ctx, p.topic, []byte(bar.Symbol), barPayload(bar))
}

func (p *KafkaBarPublisher) PublishBatch(ctx context.Context, bars []*models.MarketBar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(b.Symbol),
			Value: barPayload(b),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func barPayload(b *models.MarketBar) map[string]interface{} {
	return map[string]interface{}{
		"symbol":     b.Symbol,
		"ts":         b.Timestamp.Unix(),
		"open":       b.Open,
		"high":       b.High,
		"low":        b.Low,
		"close":      b.Close,
		"volume":     b.Volume,
		"market_cap": b.MarketCap,
		"source":     b.Source,
	}
}
