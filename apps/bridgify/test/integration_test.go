package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bridgify/apps/bridgify/internal/api"
	"bridgify/apps/bridgify/internal/model"
)

// uniqueWallet keeps runs against a long-lived server independent.
func uniqueWallet() string {
	return fmt.Sprintf("%s-%d", TestWalletAddress, time.Now().UnixNano())
}

func createOrder(t *testing.T, req OrderRequest) *http.Response {
	t.Helper()
	reqBody, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	resp, err := http.Post(BaseURL+"/api/orders", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		t.Fatalf("Failed to make POST request: %v", err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(BaseURL + "/api/health")
	if err != nil {
		t.Fatalf("Failed to make GET request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var healthResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}

	if healthResp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%v'", healthResp["status"])
	}
}

func TestBuyThenSellReconciles(t *testing.T) {
	requireServer(t)
	wallet := uniqueWallet()

	t.Run("CreateBuyOrder", func(t *testing.T) {
		resp := createOrder(t, OrderRequest{
			OrderType:      "buy",
			CryptoCurrency: TestCrypto,
			FiatCurrency:   TestFiat,
			CryptoAmount:   TestBuyAmount,
			FiatAmount:     TestFiatAmount,
			ExchangeRate:   TestRate,
			PaymentMethod:  TestPaymentCard,
			WalletAddress:  wallet,
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			var errorResp api.ErrorResponse
			json.NewDecoder(resp.Body).Decode(&errorResp)
			t.Fatalf("Expected status 201, got %d. Error: %s - %s",
				resp.StatusCode, errorResp.Error, errorResp.Message)
		}

		var order model.Order
		if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if order.Status != model.OrderStatusPending {
			t.Errorf("Expected pending order, got %s", order.Status)
		}
	})

	t.Run("CreateSellOrder", func(t *testing.T) {
		resp := createOrder(t, OrderRequest{
			OrderType:      "sell",
			CryptoCurrency: TestCrypto,
			FiatCurrency:   TestFiat,
			CryptoAmount:   TestSellAmount,
			FiatAmount:     "728.05",
			ExchangeRate:   TestRate,
			WalletAddress:  wallet,
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", resp.StatusCode)
		}
	})

	t.Run("ListOrdersNewestFirst", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/orders?wallet=%s", BaseURL, wallet))
		if err != nil {
			t.Fatalf("Failed to make GET request: %v", err)
		}
		defer resp.Body.Close()

		var orders []model.Order
		if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(orders) != 2 {
			t.Fatalf("Expected 2 orders, got %d", len(orders))
		}
		if orders[0].OrderType != model.OrderTypeSell {
			t.Errorf("Expected newest order to be the sell, got %s", orders[0].OrderType)
		}
	})

	t.Run("GetBalance", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/balance/%s", BaseURL, wallet))
		if err != nil {
			t.Fatalf("Failed to make GET request: %v", err)
		}
		defer resp.Body.Close()

		var balanceResp api.BalanceResponse
		if err := json.NewDecoder(resp.Body).Decode(&balanceResp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		eth, ok := balanceResp.Balances["eth"]
		if !ok {
			t.Fatalf("Expected eth balance in response")
		}
		amount, err := decimal.NewFromString(eth.Balance)
		if err != nil {
			t.Fatalf("Failed to parse balance %q: %v", eth.Balance, err)
		}
		if !amount.Equal(decimal.RequireFromString("0.3")) {
			t.Errorf("Expected 0.3 ETH, got %s", eth.Balance)
		}

		t.Logf("✅ Wallet %s holds %s ETH worth %s USD", wallet, eth.Balance, eth.ValueUSD)
	})
}

func TestCreateOrderValidation(t *testing.T) {
	requireServer(t)

	testCases := []struct {
		name         string
		request      OrderRequest
		expectedCode string
	}{
		{
			name:         "MissingWallet",
			request:      OrderRequest{OrderType: "buy", CryptoCurrency: TestCrypto, CryptoAmount: "1", FiatAmount: "1", ExchangeRate: "1"},
			expectedCode: "missing_wallet_address",
		},
		{
			name:         "InvalidOrderType",
			request:      OrderRequest{OrderType: "swap", CryptoCurrency: TestCrypto, CryptoAmount: "1", FiatAmount: "1", ExchangeRate: "1", WalletAddress: TestWalletAddress},
			expectedCode: "invalid_order_type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := createOrder(t, tc.request)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", resp.StatusCode)
			}

			var errorResp api.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if errorResp.Error != tc.expectedCode {
				t.Errorf("Expected error code %s, got %s", tc.expectedCode, errorResp.Error)
			}
		})
	}
}

func TestGetNonExistentOrder(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(BaseURL + "/api/orders/999999999")
	if err != nil {
		t.Fatalf("Failed to make GET request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestGetRates(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(BaseURL + "/api/rates")
	if err != nil {
		t.Fatalf("Failed to make GET request: %v", err)
	}
	defer resp.Body.Close()

	var ratesResp api.RatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&ratesResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	for _, code := range []string{"ETH", "BTC", "USDC", "USDT", "ARB"} {
		if ratesResp.Crypto[code] == "" {
			t.Errorf("Expected a price for %s", code)
		}
	}
	if ratesResp.Fiat["USD"] != "1" {
		t.Errorf("Expected USD rate 1, got %s", ratesResp.Fiat["USD"])
	}
}
