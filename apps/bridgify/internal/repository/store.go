package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bridgify/apps/bridgify/internal/model"
)

// DefaultQueryLimit is applied when Query is called with a non-positive limit.
const DefaultQueryLimit = 50

// OrderStore is the canonical, append-only (status fields aside) collection of orders
// and the accounts they belong to. Implementations must assign order ids monotonically.
type OrderStore interface {
	// Append validates the draft, applies defaults, upserts the owning account and
	// records an order_created event in the outbox.
	Append(ctx context.Context, draft model.OrderDraft) (model.Order, error)
	// Query returns orders newest first, filtered by wallet address when non-empty.
	Query(ctx context.Context, walletAddress string, limit int) ([]model.Order, error)
	// GetOrder returns nil when the order does not exist.
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	// GetAccount returns nil when no order has referenced the wallet yet.
	GetAccount(ctx context.Context, walletAddress string) (*model.Account, error)

	ClaimUnsentEvents(ctx context.Context, limit int) ([]model.OrderEvent, error)
	MarkEventSent(ctx context.Context, eventID string) error
	MarkEventFailed(ctx context.Context, eventID string) error

	Close() error
}

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError rejects an order draft. Code is a stable machine-readable token.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Column widths of the orders table; every store enforces them.
const (
	maxWalletAddressLen = 128
	maxCurrencyLen      = 20
	maxFiatCurrencyLen  = 10
	maxPaymentMethodLen = 64
)

// ValidateDraft checks the fields the store refuses to accept.
func ValidateDraft(draft model.OrderDraft) error {
	if strings.TrimSpace(draft.WalletAddress) == "" {
		return &ValidationError{Code: "missing_wallet_address", Message: "Wallet address is required"}
	}

	if len(draft.WalletAddress) > maxWalletAddressLen {
		return &ValidationError{Code: "invalid_wallet_address", Message: fmt.Sprintf("Wallet address must be at most %d characters", maxWalletAddressLen)}
	}

	if len(draft.CryptoCurrency) > maxCurrencyLen {
		return &ValidationError{Code: "invalid_crypto_currency", Message: fmt.Sprintf("Crypto currency must be at most %d characters", maxCurrencyLen)}
	}

	if len(draft.FiatCurrency) > maxFiatCurrencyLen {
		return &ValidationError{Code: "invalid_fiat_currency", Message: fmt.Sprintf("Fiat currency must be at most %d characters", maxFiatCurrencyLen)}
	}

	if len(draft.PaymentMethod) > maxPaymentMethodLen {
		return &ValidationError{Code: "invalid_payment_method", Message: fmt.Sprintf("Payment method must be at most %d characters", maxPaymentMethodLen)}
	}

	if !draft.OrderType.Valid() {
		return &ValidationError{Code: "invalid_order_type", Message: "Invalid order type"}
	}

	if draft.CryptoAmount.IsNegative() {
		return &ValidationError{Code: "invalid_crypto_amount", Message: "Crypto amount must not be negative"}
	}

	if draft.FiatAmount.IsNegative() {
		return &ValidationError{Code: "invalid_fiat_amount", Message: "Fiat amount must not be negative"}
	}

	if draft.ExchangeRate.IsNegative() {
		return &ValidationError{Code: "invalid_exchange_rate", Message: "Exchange rate must be positive"}
	}

	switch draft.RatesStatus {
	case "", model.RatesHardcoded, model.RatesUpdating, model.RatesLive:
	default:
		return &ValidationError{Code: "invalid_rates_status", Message: "Rates status must be hardcoded, updating or live"}
	}

	return nil
}

// withDefaults fills the optional draft fields the way the store records them.
func withDefaults(draft model.OrderDraft) model.OrderDraft {
	if draft.FiatCurrency == "" {
		draft.FiatCurrency = "USD"
	}
	if draft.RatesStatus == "" {
		draft.RatesStatus = model.RatesLive
	}
	return draft
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
