package balance

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgify/apps/bridgify/internal/model"
)

type fixedPrices map[string]string

func (p fixedPrices) USDPrice(crypto string) decimal.Decimal {
	price, ok := p[strings.ToUpper(crypto)]
	if !ok {
		return decimal.Zero
	}
	return decimal.RequireFromString(price)
}

var testPrices = fixedPrices{"ETH": "3640.25", "BTC": "65000", "USDC": "1", "USDT": "1", "ARB": "2.45"}

func order(orderType model.OrderType, crypto, amount string) model.Order {
	return model.Order{
		OrderType:      orderType,
		CryptoCurrency: crypto,
		CryptoAmount:   decimal.RequireFromString(amount),
		WalletAddress:  "0xABC",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReconcile_Scenario(t *testing.T) {
	orders := []model.Order{
		order(model.OrderTypeBuy, "ETH", "1.0"),
		order(model.OrderTypeBuy, "ETH", "0.5"),
		order(model.OrderTypeSell, "ETH", "0.3"),
	}

	result := Reconcile(orders, testPrices)

	assert.True(t, result.Get("eth").Equal(dec("1.2")), result.Get("eth").String())
	assert.True(t, result.TotalUSD.Equal(dec("4368.3")), result.TotalUSD.String())
	assert.Equal(t, 3, result.OrderCount)
	assert.False(t, result.NoOrders)
}

func TestReconcile_ZeroOrders(t *testing.T) {
	result := Reconcile(nil, testPrices)

	assert.True(t, result.NoOrders)
	assert.True(t, result.TotalUSD.IsZero())
	require.Len(t, result.Amounts, 5)
	for symbol, amount := range result.Amounts {
		assert.True(t, amount.IsZero(), symbol)
	}
}

func TestReconcile_BuyThenSell(t *testing.T) {
	tests := []struct {
		name     string
		buy      string
		sell     string
		expected string
	}{
		{name: "PartialSell", buy: "2", sell: "0.75", expected: "1.25"},
		{name: "FullSell", buy: "1", sell: "1", expected: "0"},
		{name: "OversellClampsToZero", buy: "0.5", sell: "0.6", expected: "0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Reconcile([]model.Order{
				order(model.OrderTypeBuy, "BTC", test.buy),
				order(model.OrderTypeSell, "BTC", test.sell),
			}, testPrices)

			balance := result.Get("BTC")
			assert.True(t, balance.Equal(dec(test.expected)), balance.String())
			assert.False(t, balance.IsNegative())
		})
	}
}

func TestReconcile_OrderIndependent(t *testing.T) {
	orders := []model.Order{
		order(model.OrderTypeSell, "ETH", "1"),
		order(model.OrderTypeBuy, "ETH", "1"),
		order(model.OrderTypeBuy, "USDC", "250"),
		order(model.OrderTypeSell, "USDC", "100.5"),
		order(model.OrderTypeBuy, "ARB", "10"),
	}
	reversed := make([]model.Order, len(orders))
	for i, o := range orders {
		reversed[len(orders)-1-i] = o
	}

	forward := Reconcile(orders, testPrices)
	backward := Reconcile(reversed, testPrices)

	assert.Equal(t, forward.TotalUSD.String(), backward.TotalUSD.String())
	for symbol, amount := range forward.Amounts {
		assert.True(t, amount.Equal(backward.Amounts[symbol]), symbol)
	}
	assert.True(t, forward.Get("eth").IsZero())
	assert.True(t, forward.Get("usdc").Equal(dec("149.5")))
}

func TestReconcile_DuplicationDoublesContribution(t *testing.T) {
	buy := order(model.OrderTypeBuy, "ARB", "3.5")

	once := Reconcile([]model.Order{buy}, testPrices)
	twice := Reconcile([]model.Order{buy, buy}, testPrices)

	assert.True(t, twice.Get("arb").Equal(once.Get("arb").Mul(decimal.NewFromInt(2))))
}

func TestReconcile_SkipsUnknownAndInvalid(t *testing.T) {
	orders := []model.Order{
		order(model.OrderTypeBuy, "DOGE", "1000"),
		order(model.OrderTypeBuy, "usd", "10"),
		order(model.OrderTypeBuy, "eth", "-1"),
		order(model.OrderTypeBuy, "Eth", "0.25"),
		{OrderType: "hold", CryptoCurrency: "ETH", CryptoAmount: dec("5")},
	}

	result := Reconcile(orders, testPrices)

	assert.True(t, result.Get("ETH").Equal(dec("0.25")))
	assert.True(t, result.Get("doge").IsZero())
	_, tracked := result.Amounts["doge"]
	assert.False(t, tracked)
}

func TestReconcile_RoundsAmountsAndTotal(t *testing.T) {
	result := Reconcile([]model.Order{
		order(model.OrderTypeBuy, "ETH", "0.1234567"),
	}, testPrices)

	assert.Equal(t, "0.123457", result.Get("eth").String())
	// 0.123457 * 3640.25 = 449.4143...
	assert.Equal(t, "449.41", result.TotalUSD.String())
}

func TestReconcile_UnpricedAssetsContributeNothing(t *testing.T) {
	result := Reconcile([]model.Order{
		order(model.OrderTypeBuy, "ARB", "100"),
		order(model.OrderTypeBuy, "USDT", "5"),
	}, fixedPrices{"USDT": "1"})

	assert.True(t, result.Get("arb").Equal(dec("100")))
	assert.True(t, result.TotalUSD.Equal(dec("5")))
}
