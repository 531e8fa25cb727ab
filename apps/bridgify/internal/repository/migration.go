package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			wallet_address VARCHAR(128) NOT NULL UNIQUE,
			email VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			kyc_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			total_volume DECIMAL(38,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES accounts(id),
			order_type VARCHAR(4) NOT NULL CHECK (order_type IN ('buy', 'sell')),
			crypto_currency VARCHAR(20) NOT NULL,
			fiat_currency VARCHAR(10) NOT NULL DEFAULT 'USD',
			crypto_amount DECIMAL(78,18) NOT NULL CHECK (crypto_amount >= 0),
			fiat_amount DECIMAL(38,2) NOT NULL CHECK (fiat_amount >= 0),
			exchange_rate DECIMAL(38,18) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_method VARCHAR(64),
			transaction_hash VARCHAR(66),
			wallet_address VARCHAR(128) NOT NULL,
			rates_status VARCHAR(20) NOT NULL DEFAULT 'live',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_wallet_created ON orders (wallet_address, created_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS order_outbox (
			event_id UUID PRIMARY KEY,
			event_type VARCHAR(32) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unsent',
			wallet_address VARCHAR(128) NOT NULL,
			event_blob JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_outbox_status ON order_outbox (status, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
