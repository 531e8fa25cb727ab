package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bridgify/apps/bridgify/internal/assets"
)

// Table holds crypto prices in USD and fiat rates as USD per unit of fiat.
type Table struct {
	Crypto map[assets.Symbol]decimal.Decimal `json:"crypto"`
	Fiat   map[assets.Fiat]decimal.Decimal   `json:"fiat"`
}

// HardcodedTable is the fallback used until the first successful refresh.
func HardcodedTable() Table {
	return Table{
		Crypto: map[assets.Symbol]decimal.Decimal{
			"eth":  decimal.RequireFromString("3640.25"),
			"btc":  decimal.RequireFromString("65000.00"),
			"usdc": decimal.NewFromInt(1),
			"usdt": decimal.NewFromInt(1),
			"arb":  decimal.RequireFromString("2.45"),
		},
		Fiat: map[assets.Fiat]decimal.Decimal{
			"EUR":      decimal.RequireFromString("1.10"), // 1 EUR = 1.10 USD
			"GBP":      decimal.RequireFromString("1.27"), // 1 GBP = 1.27 USD
			assets.USD: decimal.NewFromInt(1),
		},
	}
}

func (t Table) clone() Table {
	out := Table{
		Crypto: make(map[assets.Symbol]decimal.Decimal, len(t.Crypto)),
		Fiat:   make(map[assets.Fiat]decimal.Decimal, len(t.Fiat)),
	}
	for k, v := range t.Crypto {
		out.Crypto[k] = v
	}
	for k, v := range t.Fiat {
		out.Fiat[k] = v
	}
	return out
}

// validate rejects tables that would leave a registered asset without a price.
func (t Table) validate(registry *assets.AssetRegistry) error {
	for _, symbol := range registry.Symbols() {
		price, ok := t.Crypto[symbol]
		if !ok {
			return fmt.Errorf("missing price for %s", symbol.Code())
		}
		if !price.IsPositive() {
			return fmt.Errorf("non-positive price for %s: %s", symbol.Code(), price)
		}
	}
	for code, rate := range t.Fiat {
		if !rate.IsPositive() {
			return fmt.Errorf("non-positive rate for %s: %s", code, rate)
		}
	}
	return nil
}
