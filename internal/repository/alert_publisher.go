package repository

import (
	"context"
	"fmt"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	pkgkafka "NetRisk/pkg/kafka"
)

// AlertPublisher ships triggered alert events to a Kafka topic for downstream
// risk-desk consumers. Events are keyed by alert id so replays of one rule
// land in the same partition.
type AlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewAlertPublisher(producer *pkgkafka.Producer, topic string) drepo.AlertPublisher {
	if topic == "" {
		topic = "netrisk.alerts.triggered"
	}
	return &AlertPublisher{producer: producer, topic: topic}
}

func (p *AlertPublisher) PublishTriggered(ctx context.Context, events []models.AlertTriggered) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, ev := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(ev.ID), Value: ev}
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish alerts: %w", err)
	}
	return nil
}

func (p *AlertPublisher) Close() error {
	return p.producer.Close()
}
