package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/balance"
	"bridgify/apps/bridgify/internal/forms"
	"bridgify/apps/bridgify/internal/localstate"
	"bridgify/apps/bridgify/internal/model"
	"bridgify/apps/bridgify/internal/ordersync"
	"bridgify/apps/bridgify/internal/rates"
)

type Options struct {
	PollInterval time.Duration
	// ServerURL enables the push stream when set together with Watch.
	ServerURL string
	Watch     bool
}

// Session binds one connected wallet to the order syncer, the balance tracker and
// the forms. Order changes flow syncer -> tracker; forms read the tracker and
// submit through the syncer.
type Session struct {
	mu          sync.Mutex
	oracle      *rates.Oracle
	syncer      *ordersync.Syncer
	tracker     *balance.Tracker
	prefs       *localstate.Preferences
	options     Options
	logger      *zap.Logger
	wallet      string
	watcher     *ordersync.Watcher
	unsubscribe func()
}

func NewSession(oracle *rates.Oracle, source ordersync.OrderSource, state localstate.Store, options Options, logger *zap.Logger) *Session {
	// the balance folds the whole history, not the server's default page
	syncer := ordersync.NewSyncer(source, options.PollInterval, logger)
	syncer.SetLimit(balance.HistoryLimit)

	return &Session{
		oracle:  oracle,
		syncer:  syncer,
		tracker: balance.NewTracker(state, oracle, logger),
		prefs:   localstate.NewPreferences(state),
		options: options,
		logger:  logger,
	}
}

// Connect activates wallet: the cached balance is painted first, then orders are
// loaded and polled until Disconnect.
func (s *Session) Connect(ctx context.Context, walletAddress string) error {
	if walletAddress == "" {
		return ordersync.ErrNoWallet
	}
	s.Disconnect()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallet = walletAddress
	restored := s.tracker.Restore(ctx, walletAddress)
	s.syncer.SetWallet(walletAddress)

	// subscribe after SetWallet so the empty list of the wallet switch does not
	// overwrite the restored snapshot
	s.unsubscribe = s.syncer.Subscribe(func(orders []model.Order) {
		if s.syncer.Wallet() != walletAddress {
			return
		}
		s.tracker.Apply(context.Background(), orders)
	})

	if err := s.syncer.Start(ctx); err != nil {
		return err
	}

	if s.options.Watch && s.options.ServerURL != "" {
		s.watcher = ordersync.NewWatcher(
			ordersync.StreamURL(s.options.ServerURL, walletAddress),
			func(ctx context.Context, _ []byte) { _ = s.syncer.Load(ctx) },
			s.logger,
		)
		s.watcher.Start(ctx)
	}

	s.logger.Info("Wallet connected",
		zap.String("wallet_address", walletAddress),
		zap.Bool("restored_cached_balance", restored),
		zap.Bool("watch", s.watcher != nil))

	return nil
}

// Disconnect stops every background task of the session and clears its state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wallet == "" {
		return
	}

	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	s.syncer.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.syncer.SetWallet("")
	s.tracker.Reset()

	s.logger.Info("Wallet disconnected", zap.String("wallet_address", s.wallet))
	s.wallet = ""
}

func (s *Session) Wallet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// Reload fetches the orders now instead of waiting for the next poll.
func (s *Session) Reload(ctx context.Context) error {
	return s.syncer.Load(ctx)
}

// RefreshRates refreshes the oracle and revalues the balance with the new prices.
func (s *Session) RefreshRates(ctx context.Context) (rates.Status, error) {
	status, err := s.oracle.Refresh(ctx)
	if err != nil {
		return status, err
	}
	s.tracker.Revalue(ctx)
	return status, nil
}

func (s *Session) Balance() balance.Balance {
	return s.tracker.Current()
}

// BalanceLoaded is false until the first order list arrives, even when a cached
// balance is shown.
func (s *Session) BalanceLoaded() bool {
	return s.tracker.Loaded()
}

func (s *Session) BalanceFromCache() bool {
	return s.tracker.FromCache()
}

func (s *Session) Orders() []model.Order {
	return s.syncer.Orders()
}

func (s *Session) LastError() error {
	return s.syncer.LastError()
}

func (s *Session) Loading() bool {
	return s.syncer.Loading()
}

func (s *Session) RatesStatus() rates.Status {
	return s.oracle.Status()
}

func (s *Session) Preferences() *localstate.Preferences {
	return s.prefs
}

func (s *Session) NewBuyForm() *forms.BuyForm {
	return forms.NewBuyForm(s.oracle, s.syncer, s.Wallet())
}

func (s *Session) NewSellForm() *forms.SellForm {
	return forms.NewSellForm(s.oracle, s.tracker, s.syncer, s.Wallet())
}
