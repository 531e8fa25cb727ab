package forms

import (
	"context"
	"strings"
	"sync"

	"bridgify/apps/bridgify/internal/model"
)

// Submitter creates an order and refreshes the local order list.
type Submitter interface {
	Submit(ctx context.Context, draft model.OrderDraft) (model.Order, error)
}

// BuyForm buys crypto with fiat. Fiat is assumed to be available, so there is no
// balance check.
type BuyForm struct {
	mu            sync.Mutex
	pair          pair
	submitter     Submitter
	wallet        string
	paymentMethod string
	closed        bool
}

func NewBuyForm(pricer Pricer, submitter Submitter, walletAddress string) *BuyForm {
	return &BuyForm{
		pair:      newPair(pricer, fieldFiat),
		submitter: submitter,
		wallet:    walletAddress,
	}
}

func (f *BuyForm) SetFiatAmount(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair.setFiatAmount(value)
}

func (f *BuyForm) SetCryptoAmount(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair.setCryptoAmount(value)
}

func (f *BuyForm) SelectCrypto(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.selectCrypto(code)
}

func (f *BuyForm) SelectFiat(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.selectFiat(code)
}

// SetPaymentMethod takes a free-text method such as "card" or "bank".
func (f *BuyForm) SetPaymentMethod(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentMethod = strings.TrimSpace(method)
}

func (f *BuyForm) FiatAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.fiatAmount
}

func (f *BuyForm) CryptoAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.cryptoAmount
}

// Pair returns the selected crypto and fiat codes.
func (f *BuyForm) Pair() (crypto, fiat string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair.crypto, f.pair.fiat
}

func (f *BuyForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready()
}

func (f *BuyForm) ready() bool {
	if f.closed || f.wallet == "" || f.paymentMethod == "" {
		return false
	}
	if _, _, ok := f.pair.amounts(); !ok {
		return false
	}
	return f.pair.unitPrice().IsPositive()
}

// Submit sends the buy order. On success the form closes.
func (f *BuyForm) Submit(ctx context.Context) (model.Order, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return model.Order{}, ErrClosed
	}
	if !f.ready() {
		f.mu.Unlock()
		return model.Order{}, ErrNotReady
	}

	crypto, fiat, _ := f.pair.amounts()
	draft := model.OrderDraft{
		OrderType:      model.OrderTypeBuy,
		CryptoCurrency: f.pair.crypto,
		FiatCurrency:   f.pair.fiat,
		CryptoAmount:   crypto,
		FiatAmount:     fiat,
		ExchangeRate:   f.pair.unitPrice(),
		PaymentMethod:  f.paymentMethod,
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

// Closed reports whether the form was submitted successfully.
func (f *BuyForm) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
