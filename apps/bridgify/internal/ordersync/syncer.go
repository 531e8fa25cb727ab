package ordersync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

// DefaultPollInterval is how often an active wallet's orders are reloaded.
const DefaultPollInterval = 30 * time.Second

// ErrNoWallet is returned when background sync is started without an active wallet.
var ErrNoWallet = errors.New("no wallet connected")

// OrderSource is the remote order store as seen by the syncer.
type OrderSource interface {
	ListOrders(ctx context.Context, walletAddress string, limit int) ([]model.Order, error)
	CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error)
}

// Listener receives the full local order list after every change.
type Listener func(orders []model.Order)

// Syncer keeps a local copy of the active wallet's orders. Every load replaces the
// copy with the server's complete list; the latest successful load wins.
type Syncer struct {
	mu        sync.RWMutex
	source    OrderSource
	logger    *zap.Logger
	interval  time.Duration
	limit     int
	wallet    string
	orders    []model.Order
	lastErr   error
	inFlight  int
	listeners map[int]Listener
	nextID    int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSyncer(source OrderSource, interval time.Duration, logger *zap.Logger) *Syncer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Syncer{
		source:    source,
		logger:    logger,
		interval:  interval,
		listeners: make(map[int]Listener),
	}
}

// SetLimit caps the number of orders requested per load; zero uses the server default.
func (s *Syncer) SetLimit(limit int) {
	s.mu.Lock()
	s.limit = limit
	s.mu.Unlock()
}

// SetWallet switches the active wallet. Switching clears the local orders and error.
func (s *Syncer) SetWallet(walletAddress string) {
	s.mu.Lock()
	if s.wallet == walletAddress {
		s.mu.Unlock()
		return
	}
	s.wallet = walletAddress
	s.orders = nil
	s.lastErr = nil
	s.mu.Unlock()

	s.notify()
}

func (s *Syncer) Wallet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// Load replaces the local orders with the server's list. It is a no-op without a
// wallet. A failed load records the error and keeps the previous orders.
func (s *Syncer) Load(ctx context.Context) error {
	s.mu.Lock()
	wallet := s.wallet
	limit := s.limit
	if wallet == "" {
		s.mu.Unlock()
		return nil
	}
	s.inFlight++
	s.mu.Unlock()

	orders, err := s.source.ListOrders(ctx, wallet, limit)

	s.mu.Lock()
	s.inFlight--
	if s.wallet != wallet {
		// response for a wallet that is no longer active
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()

		s.logger.Warn("Failed to load orders", zap.String("wallet_address", wallet), zap.Error(err))
		return err
	}
	s.orders = orders
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Debug("Loaded orders", zap.String("wallet_address", wallet), zap.Int("count", len(orders)))
	s.notify()
	return nil
}

// Submit creates an order in two phases: the returned order is prepended locally,
// then the full list is reloaded from the server. A rejected draft leaves the local
// orders untouched and is recorded as the last error. A failed reload after a
// successful create is recorded but not returned.
func (s *Syncer) Submit(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	order, err := s.source.CreateOrder(ctx, draft)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		s.logger.Warn("Failed to submit order",
			zap.String("wallet_address", draft.WalletAddress),
			zap.String("order_type", string(draft.OrderType)),
			zap.Error(err))
		return model.Order{}, err
	}

	s.logger.Info("Submitted order",
		zap.Int64("order_id", order.ID),
		zap.String("wallet_address", order.WalletAddress),
		zap.String("order_type", string(order.OrderType)))

	// phase one: optimistic local apply
	s.mu.Lock()
	applied := s.wallet != "" && s.wallet == order.WalletAddress
	if applied {
		s.orders = append([]model.Order{order}, s.orders...)
	}
	s.mu.Unlock()
	if applied {
		s.notify()
	}

	// phase two: authoritative reload
	_ = s.Load(ctx)

	return order, nil
}

// Start loads immediately and then on every interval until Stop or ctx is done.
func (s *Syncer) Start(ctx context.Context) error {
	if s.Wallet() == "" {
		return ErrNoWallet
	}

	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		_ = s.Load(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Order polling stopped", zap.String("wallet_address", s.Wallet()))
				return
			case <-ticker.C:
				_ = s.Load(ctx)
			}
		}
	}()

	return nil
}

// Stop cancels polling and waits for the poll goroutine to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
}

// Orders returns a copy of the local orders, newest first.
func (s *Syncer) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Order(nil), s.orders...)
}

// LastError is the error of the most recent failed load or submit, cleared by the
// next successful load.
func (s *Syncer) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Loading reports whether a load is in flight.
func (s *Syncer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Subscribe registers fn for order changes and returns a function that removes it.
func (s *Syncer) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Syncer) notify() {
	s.mu.RLock()
	orders := append([]model.Order(nil), s.orders...)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(orders)
	}
}
