package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// Valid reports whether t is buy or sell.
func (t OrderType) Valid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

// OrderStatus is the order lifecycle state. Orders are always created as pending;
// no transition endpoint exists yet.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// RatesStatus is the provenance of the exchange rates an order was priced with.
type RatesStatus string

const (
	RatesHardcoded RatesStatus = "hardcoded"
	RatesUpdating  RatesStatus = "updating"
	RatesLive      RatesStatus = "live"
)

type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"user_id" db:"user_id"`
	OrderType       OrderType       `json:"order_type" db:"order_type"`
	CryptoCurrency  string          `json:"crypto_currency" db:"crypto_currency"`
	FiatCurrency    string          `json:"fiat_currency" db:"fiat_currency"`
	CryptoAmount    decimal.Decimal `json:"crypto_amount" db:"crypto_amount"`
	FiatAmount      decimal.Decimal `json:"fiat_amount" db:"fiat_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentMethod   *string         `json:"payment_method,omitempty" db:"payment_method"` // nullable field
	TransactionHash *string         `json:"transaction_hash,omitempty" db:"transaction_hash"`
	WalletAddress   string          `json:"wallet_address" db:"wallet_address"`
	RatesStatus     RatesStatus     `json:"rates_status" db:"rates_status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// OrderDraft is the client's request to create an order. Field names follow the
// POST /api/orders body.
type OrderDraft struct {
	OrderType      OrderType       `json:"orderType"`
	CryptoCurrency string          `json:"cryptoCurrency"`
	FiatCurrency   string          `json:"fiatCurrency,omitempty"`
	CryptoAmount   decimal.Decimal `json:"cryptoAmount"`
	FiatAmount     decimal.Decimal `json:"fiatAmount"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
	PaymentMethod  string          `json:"paymentMethod,omitempty"`
	WalletAddress  string          `json:"walletAddress"`
	RatesStatus    RatesStatus     `json:"ratesStatus,omitempty"`
}
