package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/model"
	"bridgify/apps/bridgify/internal/rates"
	"bridgify/apps/bridgify/internal/repository"
)

type failingSource struct{}

func (failingSource) Fetch(ctx context.Context) (rates.Table, error) {
	return rates.Table{}, errors.New("upstream unavailable")
}

type testServer struct {
	*httptest.Server
	store  *repository.MemoryOrderStore
	oracle *rates.Oracle
	hub    *Hub
}

func newTestServer(t *testing.T, source rates.Source) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryOrderStore(logger)
	oracle := rates.NewOracle(assets.GlobalRegistry, source, logger)
	hub := NewHub(logger)

	server := NewServer(0, store, oracle, hub, 50, logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})

	return &testServer{Server: ts, store: store, oracle: oracle, hub: hub}
}

func (ts *testServer) postOrder(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func orderBody(wallet, orderType, amount string) string {
	return `{"orderType":"` + orderType + `","cryptoCurrency":"ETH","fiatCurrency":"USD",` +
		`"cryptoAmount":"` + amount + `","fiatAmount":"100","exchangeRate":"3640.25",` +
		`"paymentMethod":"card","walletAddress":"` + wallet + `"}`
}

func TestCreateOrder_ReturnsCreated(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))

	resp := ts.postOrder(t, orderBody("0xABC", "buy", "0.027471"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var order model.Order
	decode(t, resp, &order)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, model.OrderTypeBuy, order.OrderType)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.RatesLive, order.RatesStatus)
	assert.True(t, order.CryptoAmount.Equal(decimal.RequireFromString("0.027471")))
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, "card", *order.PaymentMethod)
}

func TestCreateOrder_Rejections(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing wallet", orderBody("", "buy", "1"), "missing_wallet_address"},
		{"bad order type", orderBody("0xABC", "swap", "1"), "invalid_order_type"},
		{"negative amount", orderBody("0xABC", "sell", "-1"), "invalid_crypto_amount"},
		{"malformed json", `{"orderType":`, "invalid_request_body"},
		{"oversized payment method", strings.Replace(orderBody("0xABC", "buy", "1"), `"card"`, `"`+strings.Repeat("p", 65)+`"`, 1), "invalid_payment_method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.postOrder(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errResp ErrorResponse
			decode(t, resp, &errResp)
			assert.Equal(t, tt.code, errResp.Error)
			assert.NotEmpty(t, errResp.Message)
		})
	}

	orders, err := ts.store.Query(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, orders)

	account, err := ts.store.GetAccount(context.Background(), "0xABC")
	require.NoError(t, err)
	assert.Nil(t, account)

	events, err := ts.store.ClaimUnsentEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListOrders_FiltersAndLimits(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))
	ts.postOrder(t, orderBody("0xABC", "buy", "1.0"))
	ts.postOrder(t, orderBody("0xDEF", "buy", "3"))
	ts.postOrder(t, orderBody("0xABC", "sell", "0.3"))

	resp := ts.get(t, "/api/orders?wallet=0xABC")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []model.Order
	decode(t, resp, &orders)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(3), orders[0].ID)
	assert.Equal(t, int64(1), orders[1].ID)

	resp = ts.get(t, "/api/orders?limit=1")
	decode(t, resp, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(3), orders[0].ID)

	resp = ts.get(t, "/api/orders?wallet=0xNOBODY")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &orders)
	assert.Empty(t, orders)

	resp = ts.get(t, "/api/orders?limit=many")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrder(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))
	ts.postOrder(t, orderBody("0xABC", "buy", "1"))

	resp := ts.get(t, "/api/orders/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order model.Order
	decode(t, resp, &order)
	assert.Equal(t, "0xABC", order.WalletAddress)

	resp = ts.get(t, "/api/orders/42")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errResp ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "order_not_found", errResp.Error)
}

func TestGetAccount(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))
	ts.postOrder(t, orderBody("0xABC", "buy", "1"))
	ts.postOrder(t, orderBody("0xABC", "buy", "2"))

	resp := ts.get(t, "/api/accounts/0xABC")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var account model.Account
	decode(t, resp, &account)
	assert.Equal(t, model.KYCPending, account.KYCStatus)
	assert.True(t, account.TotalVolume.Equal(decimal.NewFromInt(200)))

	resp = ts.get(t, "/api/accounts/0xNOBODY")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetBalance_ReconcilesOrders(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))
	ts.postOrder(t, orderBody("0xABC", "buy", "1.0"))
	ts.postOrder(t, orderBody("0xABC", "buy", "0.5"))
	ts.postOrder(t, orderBody("0xABC", "sell", "0.3"))

	resp := ts.get(t, "/api/balance/0xABC")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance BalanceResponse
	decode(t, resp, &balance)
	assert.Equal(t, "0xABC", balance.WalletAddress)
	assert.Equal(t, 3, balance.OrderCount)
	assert.False(t, balance.NoOrders)
	assert.Equal(t, "4368.30", balance.TotalUSD)
	assert.Equal(t, model.RatesHardcoded, balance.RatesStatus.Status)

	eth := balance.Balances["eth"]
	assert.True(t, decimal.RequireFromString(eth.Balance).Equal(decimal.RequireFromString("1.2")))
	assert.Equal(t, "ETH", eth.Symbol)
	assert.Empty(t, eth.Address)
	assert.Equal(t, "4368.30", eth.ValueUSD)

	usdc := balance.Balances["usdc"]
	assert.NotEmpty(t, usdc.Address)
	assert.Equal(t, "0.00", usdc.ValueUSD)
}

func TestGetBalance_EmptyWallet(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))

	resp := ts.get(t, "/api/balance/0xNEW")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance BalanceResponse
	decode(t, resp, &balance)
	assert.True(t, balance.NoOrders)
	assert.Equal(t, "0.00", balance.TotalUSD)
	assert.Len(t, balance.Balances, len(assets.GlobalRegistry.Symbols()))
}

func TestRates_GetAndRefresh(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))

	resp := ts.get(t, "/api/rates")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var table RatesResponse
	decode(t, resp, &table)
	assert.Equal(t, "3640.25", table.Crypto["ETH"])
	assert.Equal(t, "1.1", table.Fiat["EUR"])
	assert.Equal(t, model.RatesHardcoded, table.Status.Status)

	resp, err := http.Post(ts.URL+"/api/rates/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &table)
	assert.Equal(t, model.RatesLive, table.Status.Status)
	assert.NotEmpty(t, table.Status.LastUpdated)
	assert.Equal(t, "1", table.Crypto["USDC"])
}

func TestRates_RefreshFailure(t *testing.T) {
	ts := newTestServer(t, failingSource{})

	resp, err := http.Post(ts.URL+"/api/rates/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var status rates.Status
	decode(t, resp, &status)
	assert.Equal(t, model.RatesHardcoded, status.Status)
	assert.Equal(t, "Failed to fetch live rates", status.Error)
	assert.True(t, ts.oracle.USDPrice("ETH").Equal(decimal.RequireFromString("3640.25")))
}

func TestHealthAndCORS(t *testing.T) {
	ts := newTestServer(t, rates.NewSimulatedSource(0))

	resp := ts.get(t, "/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/orders", nil)
	require.NoError(t, err)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer preflight.Body.Close()
	assert.Equal(t, http.StatusOK, preflight.StatusCode)
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), "POST")
}
