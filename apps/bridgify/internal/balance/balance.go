package balance

import (
	"strings"

	"github.com/shopspring/decimal"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/model"
)

const (
	amountPlaces = 6
	usdPlaces    = 2
)

// HistoryLimit bounds the order history requested for a balance fold. Every reader
// of a wallet's balance asks for this many orders so they fold the same list.
const HistoryLimit = 100000

// PriceSource resolves the USD price of a crypto ticker; zero means no known rate.
type PriceSource interface {
	USDPrice(crypto string) decimal.Decimal
}

// Balance is derived from an order list and never stored authoritatively.
type Balance struct {
	Amounts    map[assets.Symbol]decimal.Decimal `json:"balances"`
	TotalUSD   decimal.Decimal                   `json:"total_usd"`
	OrderCount int                               `json:"order_count"`
	// NoOrders is set when the fold saw an empty order list, as opposed to a
	// balance that has not been computed yet.
	NoOrders bool `json:"no_orders"`
}

// Get looks up a balance by ticker in any case. Unknown assets read as zero.
func (b Balance) Get(symbol string) decimal.Decimal {
	amount, ok := b.Amounts[assets.Symbol(strings.ToLower(strings.TrimSpace(symbol)))]
	if !ok {
		return decimal.Zero
	}
	return amount
}

// Zero returns the all-zero balance for every asset in the registry.
func Zero(registry *assets.AssetRegistry) Balance {
	amounts := make(map[assets.Symbol]decimal.Decimal)
	for _, symbol := range registry.Symbols() {
		amounts[symbol] = decimal.Zero
	}
	return Balance{Amounts: amounts, TotalUSD: decimal.Zero}
}

// Reconcile folds orders into per-asset balances using the global asset registry.
func Reconcile(orders []model.Order, prices PriceSource) Balance {
	return ReconcileWith(assets.GlobalRegistry, orders, prices)
}

// ReconcileWith folds orders into per-asset balances: buys credit, sells debit, and
// each asset is clamped at zero once all orders are summed, so the result does not
// depend on the order of the list. Orders for unknown assets or with negative
// amounts are skipped.
func ReconcileWith(registry *assets.AssetRegistry, orders []model.Order, prices PriceSource) Balance {
	result := Zero(registry)
	result.OrderCount = len(orders)
	result.NoOrders = len(orders) == 0

	credits := make(map[assets.Symbol]decimal.Decimal)
	debits := make(map[assets.Symbol]decimal.Decimal)

	for _, order := range orders {
		symbol, ok := registry.ParseSymbol(order.CryptoCurrency)
		if !ok || order.CryptoAmount.IsNegative() {
			continue
		}

		switch order.OrderType {
		case model.OrderTypeBuy:
			credits[symbol] = credits[symbol].Add(order.CryptoAmount)
		case model.OrderTypeSell:
			debits[symbol] = debits[symbol].Add(order.CryptoAmount)
		}
	}

	total := decimal.Zero
	for _, symbol := range registry.Symbols() {
		amount := credits[symbol].Sub(debits[symbol])
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		amount = amount.Round(amountPlaces)
		result.Amounts[symbol] = amount

		if amount.IsZero() || prices == nil {
			continue
		}
		total = total.Add(amount.Mul(prices.USDPrice(symbol.Code())))
	}
	result.TotalUSD = total.Round(usdPlaces)

	return result
}
