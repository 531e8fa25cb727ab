package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/model"
)

// refreshTimeout bounds one shared fetch.
const refreshTimeout = 30 * time.Second

// ErrRefreshFailed wraps every failed Refresh.
var ErrRefreshFailed = errors.New("failed to fetch live rates")

// Status reports the provenance of the current table.
type Status struct {
	Status      model.RatesStatus `json:"status"`
	LastUpdated string            `json:"last_updated,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Oracle is the single source of crypto/fiat conversion prices. The table is only
// ever replaced wholesale.
type Oracle struct {
	mu       sync.RWMutex
	table    Table
	status   Status
	registry *assets.AssetRegistry
	source   Source
	group    singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
}

// NewOracle starts from the hardcoded table so prices are available without a source.
func NewOracle(registry *assets.AssetRegistry, source Source, logger *zap.Logger) *Oracle {
	return &Oracle{
		table:    HardcodedTable(),
		status:   Status{Status: model.RatesHardcoded},
		registry: registry,
		source:   source,
		now:      time.Now,
		logger:   logger,
	}
}

// GetUnitPrice returns the price of one unit of crypto denominated in fiat.
// It returns zero when the crypto is unknown; callers must treat zero as "no price".
func (o *Oracle) GetUnitPrice(crypto, fiat string) decimal.Decimal {
	usdPrice := o.USDPrice(crypto)
	if usdPrice.IsZero() {
		return decimal.Zero
	}

	code := assets.Fiat(strings.ToUpper(strings.TrimSpace(fiat)))
	if code == assets.USD {
		return usdPrice
	}

	o.mu.RLock()
	fiatRate, ok := o.table.Fiat[code]
	o.mu.RUnlock()

	if !ok || !fiatRate.IsPositive() {
		return usdPrice
	}

	return usdPrice.Div(fiatRate)
}

// USDPrice returns the USD price of crypto, or zero when it has no known rate.
func (o *Oracle) USDPrice(crypto string) decimal.Decimal {
	symbol, ok := o.registry.ParseSymbol(crypto)
	if !ok {
		return decimal.Zero
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.table.Crypto[symbol]
	if !ok || !price.IsPositive() {
		return decimal.Zero
	}
	return price
}

// Table returns a copy of the current rate table.
func (o *Oracle) Table() Table {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.table.clone()
}

func (o *Oracle) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Refresh replaces the table from the source. Concurrent callers share one fetch.
// On failure the previous provenance and table are kept and the status carries an error.
func (o *Oracle) Refresh(ctx context.Context) (Status, error) {
	_, err, _ := o.group.Do("refresh", func() (interface{}, error) {
		// the fetch is shared, so one caller going away must not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, o.refresh(fetchCtx)
	})
	return o.Status(), err
}

func (o *Oracle) refresh(ctx context.Context) error {
	o.mu.Lock()
	prior := o.status
	o.status = Status{Status: model.RatesUpdating, LastUpdated: prior.LastUpdated}
	o.mu.Unlock()

	o.logger.Info("Refreshing exchange rates", zap.String("prior_status", string(prior.Status)))

	table, err := o.source.Fetch(ctx)
	if err == nil {
		err = table.validate(o.registry)
	}

	if err != nil {
		o.mu.Lock()
		o.status = Status{
			Status:      prior.Status,
			LastUpdated: prior.LastUpdated,
			Error:       "Failed to fetch live rates",
		}
		o.mu.Unlock()

		o.logger.Warn("Exchange rate refresh failed", zap.String("status", string(prior.Status)), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	next := table.clone()
	next.Fiat[assets.USD] = decimal.NewFromInt(1)

	o.mu.Lock()
	o.table = next
	o.status = Status{
		Status:      model.RatesLive,
		LastUpdated: o.now().Format("15:04"),
	}
	o.mu.Unlock()

	o.logger.Info("Exchange rates updated",
		zap.String("eth_usd", next.Crypto["eth"].String()),
		zap.String("last_updated", o.Status().LastUpdated))

	return nil
}
