package event_publisher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

const (
	DefaultPollInterval = 3 * time.Second
	claimBatchSize      = 100
)

// Outbox is the part of the order store the publisher drains.
type Outbox interface {
	ClaimUnsentEvents(ctx context.Context, limit int) ([]model.OrderEvent, error)
	MarkEventSent(ctx context.Context, eventID string) error
	MarkEventFailed(ctx context.Context, eventID string) error
}

// Sink delivers one order event. A returned error puts the event back in the outbox.
type Sink interface {
	Publish(ctx context.Context, event model.OrderEvent) error
	Close() error
}

type EventPublisher struct {
	logger   *zap.Logger
	outbox   Outbox
	sink     Sink
	interval time.Duration
	mu       sync.Mutex // one drain at a time per instance
}

func NewEventPublisher(outbox Outbox, sink Sink, interval time.Duration, logger *zap.Logger) *EventPublisher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &EventPublisher{
		logger:   logger,
		outbox:   outbox,
		sink:     sink,
		interval: interval,
	}
}

// StartPublishing drains the outbox every interval until ctx is cancelled.
func (ep *EventPublisher) StartPublishing(ctx context.Context) {
	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ep.PublishUnsentEvents(ctx); err != nil {
				ep.logger.Error("Error publishing order events", zap.Error(err))
			}
		}
	}
}

// PublishUnsentEvents claims one batch and hands each event to the sink. It returns
// the number of events delivered.
func (ep *EventPublisher) PublishUnsentEvents(ctx context.Context) (int, error) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	outboxEvents, err := ep.outbox.ClaimUnsentEvents(ctx, claimBatchSize)
	if err != nil {
		return 0, err
	}

	successCount := 0
	for _, event := range outboxEvents {
		if err := ep.sink.Publish(ctx, event); err != nil {
			ep.logger.Error("Failed to publish order event", zap.String("event_id", event.EventID), zap.String("wallet_address", event.WalletAddress), zap.Error(err))
			// Returns the event to 'unsent' for retry
			if markErr := ep.outbox.MarkEventFailed(ctx, event.EventID); markErr != nil {
				ep.logger.Error("Failed to mark event as failed", zap.String("event_id", event.EventID), zap.Error(markErr))
			}
			continue
		}

		if err := ep.outbox.MarkEventSent(ctx, event.EventID); err != nil {
			// Delivered but still claimed: the event may be sent twice
			ep.logger.Error("Failed to mark event as sent", zap.String("event_id", event.EventID), zap.Error(err))
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		ep.logger.Info("Published order events", zap.Int("success_count", successCount), zap.Int("attempted", len(outboxEvents)))
	}

	return successCount, nil
}

func (ep *EventPublisher) Close() error {
	return ep.sink.Close()
}
