package forms

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"bridgify/apps/bridgify/internal/balance"
	"bridgify/apps/bridgify/internal/model"
)

// NetworkFee is deducted from the fiat proceeds of a sell, in the selected fiat.
var NetworkFee = decimal.RequireFromString("1.50")

// Balances exposes the active wallet's current balance.
type Balances interface {
	Current() balance.Balance
}

// SellForm sells crypto for fiat. The requested amount must be covered by the
// wallet's reconciled balance of the selected asset.
type SellForm struct {
	mu               sync.Mutex
	pair             pair
	balances         Balances
	submitter        Submitter
	wallet           string
	withdrawalMethod string
	closed           bool
}

func NewSellForm(pricer Pricer, balances Balances, submitter Submitter, walletAddress string) *SellForm {
	return &SellForm{
		pair:      newPair(pricer, fieldCrypto),
		balances:  balances,
		submitter: submitter,
		wallet:    walletAddress,
	}
}

func (f *SellForm) SetFiatAmount(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair.setFiatAmount(value)
}

func (f *SellForm) SetCryptoAmount(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair.setCryptoAmount(value)
}

func (f *SellForm) SelectCrypto(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.selectCrypto(code)
}

func (f *SellForm) SelectFiat(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.selectFiat(code)
}

func (f *SellForm) SetWithdrawalMethod(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawalMethod = strings.TrimSpace(method)
}

// Max fills the crypto field with the whole available balance.
func (f *SellForm) Max() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair.setCryptoAmount(f.available().String())
}

// Available returns the balance of the selected asset.
func (f *SellForm) Available() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available()
}

func (f *SellForm) available() decimal.Decimal {
	if f.balances == nil {
		return decimal.Zero
	}
	return f.balances.Current().Get(f.pair.crypto)
}

func (f *SellForm) FiatAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.fiatAmount
}

func (f *SellForm) CryptoAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.cryptoAmount
}

func (f *SellForm) Pair() (crypto, fiat string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.crypto, f.pair.fiat
}

// NetProceeds is the fiat amount minus the network fee, never below zero.
func (f *SellForm) NetProceeds() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()

	fiat, ok := parseAmount(f.pair.fiatAmount)
	if !ok {
		return decimal.Zero
	}
	net := fiat.Sub(NetworkFee)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net.Round(fiatPlaces)
}

// InsufficientBalance reports whether an entered amount exceeds the available balance.
func (f *SellForm) InsufficientBalance() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insufficient()
}

func (f *SellForm) insufficient() bool {
	amount, ok := parseAmount(f.pair.cryptoAmount)
	if !ok {
		return false
	}
	return amount.GreaterThan(f.available())
}

func (f *SellForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready() == nil
}

func (f *SellForm) ready() error {
	if f.closed {
		return ErrClosed
	}
	if f.insufficient() {
		return ErrInsufficientBalance
	}
	if f.wallet == "" || f.withdrawalMethod == "" {
		return ErrNotReady
	}
	if _, _, ok := f.pair.amounts(); !ok {
		return ErrNotReady
	}
	if !f.pair.unitPrice().IsPositive() {
		return ErrNotReady
	}
	return nil
}

// Submit sends the sell order. On success the form closes.
func (f *SellForm) Submit(ctx context.Context) (model.Order, error) {
	f.mu.Lock()
	if err := f.ready(); err != nil {
		f.mu.Unlock()
		return model.Order{}, err
	}

	crypto, fiat, _ := f.pair.amounts()
	draft := model.OrderDraft{
		OrderType:      model.OrderTypeSell,
		CryptoCurrency: f.pair.crypto,
		FiatCurrency:   f.pair.fiat,
		CryptoAmount:   crypto,
		FiatAmount:     fiat,
		ExchangeRate:   f.pair.unitPrice(),
		PaymentMethod:  f.withdrawalMethod,
		WalletAddress:  f.wallet,
		RatesStatus:    f.pair.pricer.Status().Status,
	}
	f.mu.Unlock()

	order, err := f.submitter.Submit(ctx, draft)
	if err != nil {
		return model.Order{}, err
	}

	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	return order, nil
}

func (f *SellForm) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
