package balance

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/localstate"
	"bridgify/apps/bridgify/internal/model"
)

// snapshot is the cached form of a Balance. The wallet it was computed for is
// stored inside the value because the cache key is fixed.
type snapshot struct {
	WalletAddress string                     `json:"wallet_address"`
	Balances      map[string]decimal.Decimal `json:"balances"`
	TotalUSD      decimal.Decimal            `json:"total_usd"`
	OrderCount    int                        `json:"order_count"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// Tracker owns the balance of the active wallet. It recomputes on every fresh
// order list and keeps a best-effort snapshot in local state.
type Tracker struct {
	mu        sync.RWMutex
	registry  *assets.AssetRegistry
	cache     localstate.Store
	prices    PriceSource
	logger    *zap.Logger
	now       func() time.Time
	wallet    string
	orders    []model.Order
	current   Balance
	loaded    bool
	fromCache bool
}

func NewTracker(cache localstate.Store, prices PriceSource, logger *zap.Logger) *Tracker {
	return &Tracker{
		registry: assets.GlobalRegistry,
		cache:    cache,
		prices:   prices,
		logger:   logger,
		now:      time.Now,
		current:  Zero(assets.GlobalRegistry),
	}
}

// Restore activates wallet and paints the cached snapshot when it belongs to that
// wallet. It reports whether a snapshot was used. The tracker stays not-loaded
// until Apply is called with real order data.
func (t *Tracker) Restore(ctx context.Context, wallet string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.wallet = wallet
	t.orders = nil
	t.current = Zero(t.registry)
	t.loaded = false
	t.fromCache = false

	if t.cache == nil || wallet == "" {
		return false
	}

	raw, ok, err := t.cache.Get(ctx, localstate.BalanceKey)
	if err != nil {
		t.logger.Warn("Failed to read cached balance", zap.String("wallet_address", wallet), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.logger.Warn("Discarding unreadable cached balance", zap.Error(err))
		return false
	}
	if snap.WalletAddress != wallet {
		return false
	}

	for key, amount := range snap.Balances {
		if symbol, ok := t.registry.ParseSymbol(key); ok && !amount.IsNegative() {
			t.current.Amounts[symbol] = amount
		}
	}
	t.current.TotalUSD = snap.TotalUSD
	t.current.OrderCount = snap.OrderCount
	t.current.NoOrders = snap.OrderCount == 0
	t.fromCache = true

	t.logger.Debug("Restored cached balance",
		zap.String("wallet_address", wallet),
		zap.Int("order_count", snap.OrderCount))

	return true
}

// Apply recomputes the balance from a complete order list and overwrites the
// cached snapshot, including with zeros when the list is empty.
func (t *Tracker) Apply(ctx context.Context, orders []model.Order) Balance {
	t.mu.Lock()
	t.orders = append([]model.Order(nil), orders...)
	t.current = ReconcileWith(t.registry, t.orders, t.prices)
	t.loaded = true
	t.fromCache = false
	wallet := t.wallet
	result := cloneBalance(t.current)
	t.mu.Unlock()

	t.persist(ctx, wallet, result)
	return result
}

// Revalue recomputes the USD total of the last applied orders, e.g. after a rate refresh.
// The recompute holds the write lock so a concurrent Apply of a newer list wins.
func (t *Tracker) Revalue(ctx context.Context) Balance {
	t.mu.Lock()
	if !t.loaded {
		result := cloneBalance(t.current)
		t.mu.Unlock()
		return result
	}
	t.current = ReconcileWith(t.registry, t.orders, t.prices)
	wallet := t.wallet
	result := cloneBalance(t.current)
	t.mu.Unlock()

	t.persist(ctx, wallet, result)
	return result
}

// Reset forgets the active wallet. The cached snapshot is left for the next session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.wallet = ""
	t.orders = nil
	t.current = Zero(t.registry)
	t.loaded = false
	t.fromCache = false
}

func (t *Tracker) Current() Balance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneBalance(t.current)
}

// Loaded reports whether the balance reflects fetched order data.
func (t *Tracker) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// FromCache reports whether the balance is the advisory snapshot from local state.
func (t *Tracker) FromCache() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fromCache
}

func (t *Tracker) Wallet() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.wallet
}

func (t *Tracker) persist(ctx context.Context, wallet string, b Balance) {
	if t.cache == nil || wallet == "" {
		return
	}

	snap := snapshot{
		WalletAddress: wallet,
		Balances:      make(map[string]decimal.Decimal, len(b.Amounts)),
		TotalUSD:      b.TotalUSD,
		OrderCount:    b.OrderCount,
		UpdatedAt:     t.now().UTC(),
	}
	for symbol, amount := range b.Amounts {
		snap.Balances[string(symbol)] = amount
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.logger.Error("Failed to marshal balance snapshot", zap.Error(err))
		return
	}
	if err := t.cache.Set(ctx, localstate.BalanceKey, string(raw)); err != nil {
		t.logger.Warn("Failed to cache balance", zap.String("wallet_address", wallet), zap.Error(err))
	}
}

func cloneBalance(b Balance) Balance {
	out := b
	out.Amounts = make(map[assets.Symbol]decimal.Decimal, len(b.Amounts))
	for k, v := range b.Amounts {
		out.Amounts[k] = v
	}
	return out
}
