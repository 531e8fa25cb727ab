package model

import (
	"time"
)

const EventOrderCreated = "order_created"

// OrderEvent is written to the outbox alongside every appended order and fanned
// out to stream subscribers.
type OrderEvent struct {
	EventID       string    `json:"event_id" db:"event_id"`
	EventType     string    `json:"event_type" db:"event_type"`
	WalletAddress string    `json:"wallet_address" db:"wallet_address"`
	Order         Order     `json:"order" db:"order_blob"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
