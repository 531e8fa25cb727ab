package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/rates"
)

const (
	cryptoPlaces = 6
	fiatPlaces   = 2
)

var (
	ErrNotReady            = errors.New("form is not ready to submit")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrClosed              = errors.New("form is closed")
)

// Pricer is the part of the rate oracle the forms use.
type Pricer interface {
	GetUnitPrice(crypto, fiat string) decimal.Decimal
	Status() rates.Status
}

type field int

const (
	fieldFiat field = iota
	fieldCrypto
)

// pair holds the two linked amount fields. Editing one recomputes the other from
// the unit price of the selected pair; switching the pair recomputes from anchor.
type pair struct {
	pricer       Pricer
	registry     *assets.AssetRegistry
	crypto       string
	fiat         string
	cryptoAmount string
	fiatAmount   string
	anchor       field
}

func newPair(pricer Pricer, anchor field) pair {
	return pair{
		pricer:   pricer,
		registry: assets.GlobalRegistry,
		crypto:   "ETH",
		fiat:     string(assets.USD),
		anchor:   anchor,
	}
}

func (p *pair) unitPrice() decimal.Decimal {
	return p.pricer.GetUnitPrice(p.crypto, p.fiat)
}

func (p *pair) setFiatAmount(value string) {
	p.fiatAmount = value
	amount, ok := parseAmount(value)
	price := p.unitPrice()
	if !ok || !price.IsPositive() {
		p.cryptoAmount = ""
		return
	}
	p.cryptoAmount = amount.Div(price).StringFixed(cryptoPlaces)
}

func (p *pair) setCryptoAmount(value string) {
	p.cryptoAmount = value
	amount, ok := parseAmount(value)
	price := p.unitPrice()
	if !ok || !price.IsPositive() {
		p.fiatAmount = ""
		return
	}
	p.fiatAmount = amount.Mul(price).StringFixed(fiatPlaces)
}

func (p *pair) selectCrypto(code string) error {
	symbol, ok := p.registry.ParseSymbol(code)
	if !ok {
		return fmt.Errorf("unsupported crypto currency %q", code)
	}
	p.crypto = symbol.Code()
	p.recompute()
	return nil
}

func (p *pair) selectFiat(code string) error {
	fiat, ok := p.registry.ParseFiat(code)
	if !ok {
		return fmt.Errorf("unsupported fiat currency %q", code)
	}
	p.fiat = string(fiat)
	p.recompute()
	return nil
}

func (p *pair) recompute() {
	switch p.anchor {
	case fieldFiat:
		if p.fiatAmount != "" {
			p.setFiatAmount(p.fiatAmount)
		}
	case fieldCrypto:
		if p.cryptoAmount != "" {
			p.setCryptoAmount(p.cryptoAmount)
		}
	}
}

// amounts returns both fields parsed; ok is false unless both are positive numbers.
func (p *pair) amounts() (crypto, fiat decimal.Decimal, ok bool) {
	crypto, cryptoOK := parseAmount(p.cryptoAmount)
	fiat, fiatOK := parseAmount(p.fiatAmount)
	if !cryptoOK || !fiatOK || !crypto.IsPositive() || !fiat.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	return crypto, fiat, true
}

func parseAmount(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(value)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}
