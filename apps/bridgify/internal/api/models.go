package api

import (
	"bridgify/apps/bridgify/internal/rates"
)

// BalanceResponse represents the reconciled balance of a wallet
type BalanceResponse struct {
	WalletAddress string                  `json:"wallet_address"`
	Balances      map[string]TokenBalance `json:"balances"`
	TotalUSD      string                  `json:"total_usd"`
	OrderCount    int                     `json:"order_count"`
	NoOrders      bool                    `json:"no_orders"`
	RatesStatus   rates.Status            `json:"rates_status"`
}

// TokenBalance represents balance information for a specific asset
type TokenBalance struct {
	Balance  string `json:"balance"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Decimals int    `json:"decimals"`
	ValueUSD string `json:"value_usd"`
}

// RatesResponse represents the current exchange rate table
type RatesResponse struct {
	Crypto map[string]string `json:"crypto"`
	Fiat   map[string]string `json:"fiat"`
	Status rates.Status      `json:"status"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
