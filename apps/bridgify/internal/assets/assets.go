package assets

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Symbol is the canonical lowercase key of a crypto asset (eth, usdc, ...).
// Only symbols present in a registry are valid; use AssetRegistry.ParseSymbol to obtain one.
type Symbol string

// Code returns the uppercase ticker used in orders and rate tables.
func (s Symbol) Code() string {
	return strings.ToUpper(string(s))
}

// Fiat is an uppercase fiat currency code (USD, EUR, ...).
type Fiat string

// USD is the base currency of every rate table.
const USD Fiat = "USD"

// Asset represents a cryptocurrency asset with its properties
type Asset struct {
	Symbol   Symbol         `json:"symbol"`
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Address  common.Address `json:"address"`
	Decimals int            `json:"decimals"`
	Native   bool           `json:"native"`
}

// FiatCurrency represents a supported fiat currency
type FiatCurrency struct {
	Code Fiat   `json:"code"`
	Name string `json:"name"`
}

// AssetRegistry holds all supported assets
type AssetRegistry struct {
	assets  map[Symbol]*Asset
	ordered []Symbol
	fiats   map[Fiat]*FiatCurrency
	fiatSeq []Fiat
}

// NewAssetRegistry creates a new asset registry with all supported assets
func NewAssetRegistry() *AssetRegistry {
	registry := &AssetRegistry{
		assets: make(map[Symbol]*Asset),
		fiats:  make(map[Fiat]*FiatCurrency),
	}

	supportedAssets := []*Asset{
		{
			Symbol:   "eth",
			Code:     "ETH",
			Name:     "Ether",
			Decimals: 18,
			Native:   true,
		},
		{
			Symbol:   "btc",
			Code:     "BTC",
			Name:     "Bitcoin",
			Decimals: 8,
			Native:   true,
		},
		{
			Symbol:   "usdc",
			Code:     "USDC",
			Name:     "USD Coin",
			Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			Decimals: 6,
		},
		{
			Symbol:   "usdt",
			Code:     "USDT",
			Name:     "Tether USD",
			Address:  common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
			Decimals: 6,
		},
		{
			Symbol:   "arb",
			Code:     "ARB",
			Name:     "Arbitrum",
			Address:  common.HexToAddress("0xB50721BCf8d664c30412Cfbc6cf7a15145234ad1"),
			Decimals: 18,
		},
	}

	for _, asset := range supportedAssets {
		registry.assets[asset.Symbol] = asset
		registry.ordered = append(registry.ordered, asset.Symbol)
	}

	supportedFiats := []*FiatCurrency{
		{Code: USD, Name: "US Dollar"},
		{Code: "EUR", Name: "Euro"},
		{Code: "GBP", Name: "British Pound"},
	}

	for _, fiat := range supportedFiats {
		registry.fiats[fiat.Code] = fiat
		registry.fiatSeq = append(registry.fiatSeq, fiat.Code)
	}

	return registry
}

// ParseSymbol resolves a ticker in any case to its registered Symbol.
func (r *AssetRegistry) ParseSymbol(code string) (Symbol, bool) {
	asset, ok := r.Lookup(code)
	if !ok {
		return "", false
	}
	return asset.Symbol, true
}

// Lookup returns an asset by its ticker (case-insensitive)
func (r *AssetRegistry) Lookup(code string) (*Asset, bool) {
	key := Symbol(strings.ToLower(strings.TrimSpace(code)))
	if key == "" {
		return nil, false
	}
	asset, exists := r.assets[key]
	return asset, exists
}

// ParseFiat resolves a fiat code in any case to its registered Fiat.
func (r *AssetRegistry) ParseFiat(code string) (Fiat, bool) {
	key := Fiat(strings.ToUpper(strings.TrimSpace(code)))
	if _, exists := r.fiats[key]; !exists {
		return "", false
	}
	return key, true
}

// IsFiat reports whether code names a registered fiat currency.
func (r *AssetRegistry) IsFiat(code string) bool {
	_, ok := r.ParseFiat(code)
	return ok
}

// Symbols returns the registered crypto symbols in registration order
func (r *AssetRegistry) Symbols() []Symbol {
	symbols := make([]Symbol, len(r.ordered))
	copy(symbols, r.ordered)
	return symbols
}

// FiatCodes returns the registered fiat codes in registration order
func (r *AssetRegistry) FiatCodes() []Fiat {
	codes := make([]Fiat, len(r.fiatSeq))
	copy(codes, r.fiatSeq)
	return codes
}

// GlobalRegistry is the immutable registry shared by the server and the dashboard.
var GlobalRegistry = NewAssetRegistry()
