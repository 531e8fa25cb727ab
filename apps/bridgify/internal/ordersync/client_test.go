package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

func TestClient_ListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "0xABC", r.URL.Query().Get("wallet"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":2,"order_type":"sell","crypto_currency":"ETH","crypto_amount":"0.3","wallet_address":"0xABC"},
			{"id":1,"order_type":"buy","crypto_currency":"ETH","crypto_amount":1.5,"wallet_address":"0xABC"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	orders, err := client.ListOrders(context.Background(), "0xABC", 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID)
	assert.Equal(t, model.OrderTypeSell, orders[0].OrderType)
	assert.True(t, orders[1].CryptoAmount.Equal(decimal.RequireFromString("1.5")))
}

func TestClient_ListOrdersNullBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer server.Close()

	orders, err := NewClient(server.URL, zap.NewNop()).ListOrders(context.Background(), "0xABC", 0)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestClient_CreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "buy", body["orderType"])
		assert.Equal(t, "0xABC", body["walletAddress"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"order_type":"buy","crypto_currency":"ETH","fiat_currency":"USD","status":"pending","wallet_address":"0xABC"}`))
	}))
	defer server.Close()

	order, err := NewClient(server.URL+"/", zap.NewNop()).CreateOrder(context.Background(), model.OrderDraft{
		OrderType:      model.OrderTypeBuy,
		CryptoCurrency: "ETH",
		CryptoAmount:   decimal.NewFromInt(1),
		WalletAddress:  "0xABC",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, model.OrderStatusPending, order.Status)
}

func TestClient_CreateOrderAcceptsAnySuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":9,"order_type":"sell","crypto_currency":"ETH","status":"pending","wallet_address":"0xABC"}`))
	}))
	defer server.Close()

	order, err := NewClient(server.URL, zap.NewNop()).CreateOrder(context.Background(), model.OrderDraft{
		OrderType:     model.OrderTypeSell,
		WalletAddress: "0xABC",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), order.ID)
}

func TestClient_DecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"missing_wallet_address","message":"Wallet address is required"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, zap.NewNop()).CreateOrder(context.Background(), model.OrderDraft{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "missing_wallet_address", apiErr.Code)
	assert.Equal(t, "Wallet address is required", apiErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := NewClient(server.URL, zap.NewNop()).ListOrders(context.Background(), "0xABC", 0)
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestStreamURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/api/orders/stream?wallet=0xABC", StreamURL("http://localhost:8080/", "0xABC"))
	assert.Equal(t, "wss://ramp.example/api/orders/stream?wallet=a+b", StreamURL("https://ramp.example", "a b"))
}
