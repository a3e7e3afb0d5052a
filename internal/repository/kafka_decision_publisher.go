package repository

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
)

// KafkaDecisionPublisher emits pricing decisions to a Kafka topic, keyed by
// product_id so one product's decisions land on one partition in order.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (p *KafkaDecisionPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, d *models.PricingDecision) error {
	start := time.Now()
	if err := p.producer.Publish(ctx, p.topic, []byte(d.ProductID), d); err != nil {
		if p.l != nil {
			p.l.Error("kafka decision publish error",
				applogger.String("topic", p.topic),
				applogger.String("product_id", d.ProductID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish decision: %w", err)
	}
	if p.l != nil {
		p.l.Debug("kafka decision published",
			applogger.String("product_id", d.ProductID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (p *KafkaDecisionPublisher) PublishBatch(ctx context.Context, decisions []models.PricingDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(decisions))
	for i := range decisions {
		d := decisions[i]
		msgs = append(msgs, pkgkafka.Message{Key: []byte(d.ProductID), Value: d})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		if p.l != nil {
			p.l.Error("kafka decision batch publish error",
				applogger.String("topic", p.topic),
				applogger.Int("count", len(msgs)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish decision batch: %w", err)
	}
	if p.l != nil {
		p.l.Info("kafka decision batch published",
			applogger.String("topic", p.topic),
			applogger.Int("count", len(msgs)),
		)
	}
	return nil
}

func (p *KafkaDecisionPublisher) Close() error {
	return p.producer.Close()
}
