package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

const orderColumns = `id, user_id, order_type, crypto_currency, fiat_currency, crypto_amount, fiat_amount, exchange_rate,
	status, payment_method, transaction_hash, wallet_address, rates_status, created_at, completed_at`

// PostgresOrderStore is the durable OrderStore. Id assignment is serialized by the
// BIGSERIAL sequences; account upsert, order insert and outbox insert share one transaction.
type PostgresOrderStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresOrderStore(db *sql.DB, logger *zap.Logger) *PostgresOrderStore {
	return &PostgresOrderStore{db: db, logger: logger}
}

func (r *PostgresOrderStore) Append(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	if err := ValidateDraft(draft); err != nil {
		return model.Order{}, err
	}
	draft = withDefaults(draft)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	var accountID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO accounts (wallet_address, total_volume)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET
			total_volume = accounts.total_volume + EXCLUDED.total_volume,
			updated_at = NOW()
		RETURNING id
	`, draft.WalletAddress, draft.FiatAmount).Scan(&accountID)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to upsert account: %w", err)
	}

	order := model.Order{
		UserID:         accountID,
		OrderType:      draft.OrderType,
		CryptoCurrency: draft.CryptoCurrency,
		FiatCurrency:   draft.FiatCurrency,
		CryptoAmount:   draft.CryptoAmount,
		FiatAmount:     draft.FiatAmount,
		ExchangeRate:   draft.ExchangeRate,
		Status:         model.OrderStatusPending,
		PaymentMethod:  optionalString(draft.PaymentMethod),
		WalletAddress:  draft.WalletAddress,
		RatesStatus:    draft.RatesStatus,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, order_type, crypto_currency, fiat_currency, crypto_amount, fiat_amount, exchange_rate, status, payment_method, wallet_address, rates_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, order.UserID, order.OrderType, order.CryptoCurrency, order.FiatCurrency, order.CryptoAmount, order.FiatAmount,
		order.ExchangeRate, order.Status, order.PaymentMethod, order.WalletAddress, order.RatesStatus).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to create order: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()

	event := model.OrderEvent{
		EventID:       uuid.New().String(),
		EventType:     model.EventOrderCreated,
		WalletAddress: order.WalletAddress,
		Order:         order,
		CreatedAt:     order.CreatedAt,
	}
	blob, err := json.Marshal(event)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to marshal order event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_outbox (event_id, event_type, status, wallet_address, event_blob, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.EventID, event.EventType, outboxUnsent, event.WalletAddress, blob, event.CreatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to store outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, fmt.Errorf("failed to commit order: %w", err)
	}

	r.logger.Info("Created order",
		zap.Int64("order_id", order.ID),
		zap.String("order_type", string(order.OrderType)),
		zap.String("crypto_currency", order.CryptoCurrency),
		zap.String("crypto_amount", order.CryptoAmount.String()),
		zap.String("wallet_address", order.WalletAddress))

	return order, nil
}

func (r *PostgresOrderStore) Query(ctx context.Context, walletAddress string, limit int) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR wallet_address = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, walletAddress, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (r *PostgresOrderStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (r *PostgresOrderStore) GetAccount(ctx context.Context, walletAddress string) (*model.Account, error) {
	var account model.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, wallet_address, email, created_at, updated_at, kyc_status, total_volume
		FROM accounts
		WHERE wallet_address = $1
	`, walletAddress).Scan(&account.ID, &account.WalletAddress, &account.Email, &account.CreatedAt,
		&account.UpdatedAt, &account.KYCStatus, &account.TotalVolume)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

func (r *PostgresOrderStore) ClaimUnsentEvents(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Select and lock unsent events so concurrent publishers skip them
	rows, err := tx.QueryContext(ctx, `
		SELECT event_id, event_blob
		FROM order_outbox
		WHERE status = 'unsent'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var eventID string
		var blob []byte
		if err := rows.Scan(&eventID, &blob); err != nil {
			return nil, err
		}

		var event model.OrderEvent
		if err := json.Unmarshal(blob, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outbox event %s: %w", eventID, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, event := range events {
		_, err = tx.ExecContext(ctx, `
			UPDATE order_outbox SET status = 'processing' WHERE event_id = $1 AND status = 'unsent'
		`, event.EventID)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *PostgresOrderStore) MarkEventSent(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE order_outbox SET status = 'sent' WHERE event_id = $1`, eventID)
	return err
}

func (r *PostgresOrderStore) MarkEventFailed(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_outbox SET status = 'unsent' WHERE event_id = $1 AND status = 'processing'
	`, eventID)
	return err
}

func (r *PostgresOrderStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var order model.Order
	err := row.Scan(&order.ID, &order.UserID, &order.OrderType, &order.CryptoCurrency, &order.FiatCurrency,
		&order.CryptoAmount, &order.FiatAmount, &order.ExchangeRate, &order.Status, &order.PaymentMethod,
		&order.TransactionHash, &order.WalletAddress, &order.RatesStatus, &order.CreatedAt, &order.CompletedAt)
	if err != nil {
		return model.Order{}, err
	}

	order.CreatedAt = order.CreatedAt.UTC()
	if order.CompletedAt != nil {
		completed := order.CompletedAt.UTC()
		order.CompletedAt = &completed
	}

	return order, nil
}

var _ OrderStore = (*PostgresOrderStore)(nil)
var _ OrderStore = (*MemoryOrderStore)(nil)
