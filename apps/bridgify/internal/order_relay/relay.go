package order_relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

const readTimeout = time.Second

// Broadcaster fans an event out to live subscribers.
type Broadcaster interface {
	Broadcast(event model.OrderEvent) int
}

// Relay consumes order events from Kafka and pushes them to stream subscribers.
type Relay struct {
	logger        *zap.Logger
	kafkaConsumer *kafka.Consumer
	kafkaTopic    string
	hub           Broadcaster
}

func NewRelay(kafkaBroker, kafkaTopic, groupID string, hub Broadcaster, logger *zap.Logger) (*Relay, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"group.id":          groupID,
		// live fan-out only; history is served by GET /api/orders
		"auto.offset.reset": "latest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &Relay{
		logger:        logger,
		kafkaConsumer: consumer,
		kafkaTopic:    kafkaTopic,
		hub:           hub,
	}, nil
}

// Start consumes until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("Starting order relay", zap.String("topic", r.kafkaTopic))

	if err := r.kafkaConsumer.Subscribe(r.kafkaTopic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", r.kafkaTopic, err)
	}

	for ctx.Err() == nil {
		msg, err := r.kafkaConsumer.ReadMessage(readTimeout)
		if err != nil {
			var kafkaErr kafka.Error
			if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrTimedOut {
				continue
			}
			r.logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		if err := r.processMessage(msg.Value); err != nil {
			r.logger.Error("Error processing message",
				zap.String("topic", *msg.TopicPartition.Topic),
				zap.Int32("partition", msg.TopicPartition.Partition),
				zap.String("key", string(msg.Key)),
				zap.Error(err))
		}
	}

	return nil
}

func (r *Relay) processMessage(value []byte) error {
	var event model.OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	delivered := r.hub.Broadcast(event)

	r.logger.Info("Relayed order event",
		zap.String("event_type", event.EventType),
		zap.Int64("order_id", event.Order.ID),
		zap.String("wallet_address", event.WalletAddress),
		zap.Int("subscribers", delivered))

	return nil
}

func (r *Relay) Close() error {
	if r.kafkaConsumer != nil {
		return r.kafkaConsumer.Close()
	}
	return nil
}
