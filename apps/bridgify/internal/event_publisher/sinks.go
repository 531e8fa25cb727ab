package event_publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

// KafkaSink produces order events to a topic keyed by wallet address, so one
// wallet's events stay ordered within a partition.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewKafkaSink(kafkaBroker, kafkaTopic string, logger *zap.Logger) (*KafkaSink, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaSink{
		producer: producer,
		topic:    kafkaTopic,
		logger:   logger,
	}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event model.OrderEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)

	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.WalletAddress),
		Value:          msgBytes,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce order event: %w", err)
	}

	// Wait for delivery confirmation
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		switch ev := e.(type) {
		case *kafka.Message:
			return ev.TopicPartition.Error
		default:
			return fmt.Errorf("unexpected kafka event type: %T", e)
		}
	}
}

func (s *KafkaSink) Close() error {
	if s.producer != nil {
		s.producer.Flush(5000)
		s.producer.Close()
	}
	return nil
}

// Broadcaster fans an event out to live subscribers.
type Broadcaster interface {
	Broadcast(event model.OrderEvent) int
}

// HubSink delivers events straight to stream subscribers, for deployments without Kafka.
type HubSink struct {
	hub    Broadcaster
	logger *zap.Logger
}

func NewHubSink(hub Broadcaster, logger *zap.Logger) *HubSink {
	return &HubSink{hub: hub, logger: logger}
}

func (s *HubSink) Publish(ctx context.Context, event model.OrderEvent) error {
	delivered := s.hub.Broadcast(event)
	s.logger.Debug("Broadcast order event",
		zap.String("event_id", event.EventID),
		zap.String("wallet_address", event.WalletAddress),
		zap.Int("subscribers", delivered))
	return nil
}

func (s *HubSink) Close() error {
	return nil
}
