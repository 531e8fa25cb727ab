package rates

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bridgify/apps/bridgify/internal/assets"
)

// Source produces a complete rate table.
type Source interface {
	Fetch(ctx context.Context) (Table, error)
}

// SimulatedSource stands in for a price API: it waits Delay and returns the fallback
// table with random drift applied.
type SimulatedSource struct {
	Delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedSource(delay time.Duration) *SimulatedSource {
	return &SimulatedSource{
		Delay: delay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type drift struct {
	center string
	spread string
	places int32
}

var cryptoDrift = map[assets.Symbol]drift{
	"eth":  {center: "3642.50", spread: "100", places: 2},
	"btc":  {center: "65100.00", spread: "1000", places: 2},
	"usdc": {center: "1", spread: "0", places: 2},
	"usdt": {center: "1", spread: "0", places: 2},
	"arb":  {center: "2.47", spread: "0.1", places: 4},
}

var fiatDrift = map[assets.Fiat]drift{
	"EUR": {center: "1.10", spread: "0.02", places: 4},
	"GBP": {center: "1.27", spread: "0.02", places: 4},
}

func (s *SimulatedSource) Fetch(ctx context.Context) (Table, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return Table{}, ctx.Err()
		case <-time.After(s.Delay):
		}
	}

	table := Table{
		Crypto: make(map[assets.Symbol]decimal.Decimal, len(cryptoDrift)),
		Fiat:   map[assets.Fiat]decimal.Decimal{assets.USD: decimal.NewFromInt(1)},
	}
	for symbol, d := range cryptoDrift {
		table.Crypto[symbol] = s.sample(d)
	}
	for code, d := range fiatDrift {
		table.Fiat[code] = s.sample(d)
	}

	return table, nil
}

// sample returns center + (u - 0.5) * spread for u uniform in [0, 1).
func (s *SimulatedSource) sample(d drift) decimal.Decimal {
	s.mu.Lock()
	u := s.rng.Float64()
	s.mu.Unlock()

	offset := decimal.NewFromFloat(u - 0.5).Mul(decimal.RequireFromString(d.spread))
	return decimal.RequireFromString(d.center).Add(offset).Round(d.places)
}
