package ordersync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

// APIError is a non-2xx answer from the orders endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("orders api returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("orders api returned %d", e.StatusCode)
}

// Client talks to the order store over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the server at baseURL (e.g. http://localhost:8080).
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// BaseURL returns the server address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListOrders fetches the wallet's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, walletAddress string, limit int) ([]model.Order, error) {
	query := url.Values{}
	query.Set("wallet", walletAddress)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/orders?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build orders request: %w", err)
	}

	var orders []model.Order
	if err := c.do(req, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// CreateOrder posts a draft and returns the order as recorded by the store.
func (c *Client) CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to marshal order draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to build create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var order model.Order
	if err := c.do(req, &order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// do treats any 2xx answer as success and decodes it into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		}
		c.logger.Debug("Orders API returned an error",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Code))
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
