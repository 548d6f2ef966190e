// Package events publishes persisted settlements to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/metrics"
	"github.com/yourusername/turf-ledger/internal/models"
)

// messageWriter is the subset of kafka.Writer used by the publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes settlement events as JSON keyed by bet id
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logrus.Entry
}

// NewWriter creates a Kafka writer for the settlement topic
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher creates a publisher on top of a writer
func NewKafkaPublisher(w messageWriter, topic string, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.WithFields(logrus.Fields{"component": "events", "topic": topic}),
	}
}

// Publish writes one settlement event. Events for the same bet share a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event *models.SettlementEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.RecordEventPublished(metrics.PublishOutcomeError)
		return fmt.Errorf("failed to encode settlement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.BetID.String()),
		Value: payload,
		Time:  event.SettledAt,
		Headers: []kafka.Header{
			{Key: "pass_id", Value: []byte(event.PassID.String())},
			{Key: "status", Value: []byte(event.Status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordEventPublished(metrics.PublishOutcomeError)
		return fmt.Errorf("failed to publish settlement event for bet %s: %w", event.BetID, err)
	}

	metrics.RecordEventPublished(metrics.PublishOutcomeSuccess)
	p.logger.WithFields(logrus.Fields{
		"bet_id": event.BetID.String(),
		"status": string(event.Status),
	}).Debug("Settlement event published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events when publishing is disabled
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, *models.SettlementEvent) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }
