package test

import (
	"net/http"
	"os"
	"testing"
	"time"
)

const (
	// Test server configuration
	DefaultBaseURL = "http://localhost:8080"

	// Test wallet address (example address)
	TestWalletAddress = "0x0B8fA6F76eB75ae3a4ca28eb3020DFC4503F2136"

	// Test order parameters
	TestCrypto      = "ETH"
	TestFiat        = "USD"
	TestBuyAmount   = "0.5"
	TestSellAmount  = "0.2"
	TestFiatAmount  = "1820.13"
	TestRate        = "3640.25"
	TestPaymentCard = "card"
)

// BaseURL points at a running bridgify server; override with BRIDGIFY_BASE_URL.
var BaseURL = func() string {
	if url := os.Getenv("BRIDGIFY_BASE_URL"); url != "" {
		return url
	}
	return DefaultBaseURL
}()

// requireServer skips the calling test when no server answers the health check.
func requireServer(t *testing.T) {
	t.Helper()
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(BaseURL + "/api/health")
	if err != nil {
		t.Skipf("bridgify server not reachable at %s: %v", BaseURL, err)
	}
	resp.Body.Close()
}

// OrderRequest represents the request body for creating an order
type OrderRequest struct {
	OrderType      string `json:"orderType"`
	CryptoCurrency string `json:"cryptoCurrency"`
	FiatCurrency   string `json:"fiatCurrency"`
	CryptoAmount   string `json:"cryptoAmount"`
	FiatAmount     string `json:"fiatAmount"`
	ExchangeRate   string `json:"exchangeRate"`
	PaymentMethod  string `json:"paymentMethod,omitempty"`
	WalletAddress  string `json:"walletAddress"`
}
