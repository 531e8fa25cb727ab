package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

const (
	outboxUnsent     = "unsent"
	outboxProcessing = "processing"
	outboxSent       = "sent"
)

type outboxEntry struct {
	event  model.OrderEvent
	status string
}

// MemoryOrderStore keeps accounts, orders and the event outbox in process memory.
// A single mutex serializes id assignment.
type MemoryOrderStore struct {
	mu            sync.Mutex
	accounts      map[string]*model.Account
	orders        []model.Order
	outbox        []*outboxEntry
	nextAccountID int64
	nextOrderID   int64
	now           func() time.Time
	logger        *zap.Logger
}

func NewMemoryOrderStore(logger *zap.Logger) *MemoryOrderStore {
	return &MemoryOrderStore{
		accounts:      make(map[string]*model.Account),
		nextAccountID: 1,
		nextOrderID:   1,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger,
	}
}

func (s *MemoryOrderStore) Append(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	if err := ValidateDraft(draft); err != nil {
		return model.Order{}, err
	}
	draft = withDefaults(draft)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	account, exists := s.accounts[draft.WalletAddress]
	if !exists {
		account = &model.Account{
			ID:            s.nextAccountID,
			WalletAddress: draft.WalletAddress,
			CreatedAt:     now,
			UpdatedAt:     now,
			KYCStatus:     model.KYCPending,
			TotalVolume:   decimal.Zero,
		}
		s.nextAccountID++
		s.accounts[draft.WalletAddress] = account

		s.logger.Info("Created account", zap.String("wallet_address", draft.WalletAddress), zap.Int64("account_id", account.ID))
	}

	order := model.Order{
		ID:             s.nextOrderID,
		UserID:         account.ID,
		OrderType:      draft.OrderType,
		CryptoCurrency: draft.CryptoCurrency,
		FiatCurrency:   draft.FiatCurrency,
		CryptoAmount:   draft.CryptoAmount,
		FiatAmount:     draft.FiatAmount,
		ExchangeRate:   draft.ExchangeRate,
		Status:         model.OrderStatusPending,
		PaymentMethod:  optionalString(draft.PaymentMethod),
		WalletAddress:  draft.WalletAddress,
		RatesStatus:    draft.RatesStatus,
		CreatedAt:      now,
	}
	s.nextOrderID++
	s.orders = append(s.orders, order)

	account.TotalVolume = account.TotalVolume.Add(draft.FiatAmount)
	account.UpdatedAt = now

	s.outbox = append(s.outbox, &outboxEntry{
		event: model.OrderEvent{
			EventID:       uuid.New().String(),
			EventType:     model.EventOrderCreated,
			WalletAddress: order.WalletAddress,
			Order:         order,
			CreatedAt:     now,
		},
		status: outboxUnsent,
	})

	s.logger.Info("Created order",
		zap.Int64("order_id", order.ID),
		zap.String("order_type", string(order.OrderType)),
		zap.String("crypto_currency", order.CryptoCurrency),
		zap.String("crypto_amount", order.CryptoAmount.String()),
		zap.String("wallet_address", order.WalletAddress))

	return order, nil
}

func (s *MemoryOrderStore) Query(ctx context.Context, walletAddress string, limit int) ([]model.Order, error) {
	limit = normalizeLimit(limit)

	s.mu.Lock()
	result := make([]model.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if walletAddress == "" || order.WalletAddress == walletAddress {
			result = append(result, order)
		}
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (s *MemoryOrderStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			order := s.orders[i]
			return &order, nil
		}
	}

	return nil, nil
}

func (s *MemoryOrderStore) GetAccount(ctx context.Context, walletAddress string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, exists := s.accounts[walletAddress]
	if !exists {
		return nil, nil
	}

	accountCopy := *account
	return &accountCopy, nil
}

func (s *MemoryOrderStore) ClaimUnsentEvents(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// drop delivered entries so the outbox does not grow with the order history
	pending := s.outbox[:0]
	for _, entry := range s.outbox {
		if entry.status != outboxSent {
			pending = append(pending, entry)
		}
	}
	s.outbox = pending

	var events []model.OrderEvent
	for _, entry := range s.outbox {
		if len(events) >= limit {
			break
		}
		if entry.status != outboxUnsent {
			continue
		}
		entry.status = outboxProcessing
		events = append(events, entry.event)
	}

	return events, nil
}

func (s *MemoryOrderStore) MarkEventSent(ctx context.Context, eventID string) error {
	s.setEventStatus(eventID, outboxSent, "")
	return nil
}

func (s *MemoryOrderStore) MarkEventFailed(ctx context.Context, eventID string) error {
	s.setEventStatus(eventID, outboxUnsent, outboxProcessing)
	return nil
}

// setEventStatus moves an outbox entry to status, optionally only from the given state.
func (s *MemoryOrderStore) setEventStatus(eventID, status, from string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.outbox {
		if entry.event.EventID != eventID {
			continue
		}
		if from != "" && entry.status != from {
			return
		}
		entry.status = status
		return
	}
}

func (s *MemoryOrderStore) Close() error {
	return nil
}
