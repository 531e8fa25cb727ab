package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
	"bridgify/apps/bridgify/internal/repository"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	store        repository.OrderStore
	defaultLimit int
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(store repository.OrderStore, defaultLimit int, logger *zap.Logger) *OrderHandler {
	if defaultLimit <= 0 {
		defaultLimit = repository.DefaultQueryLimit
	}
	return &OrderHandler{
		store:        store,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// ListOrders handles GET /api/orders?wallet=&limit=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	walletAddress := r.URL.Query().Get("wallet")

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must be an integer")
			return
		}
		if parsed > 0 {
			limit = parsed
		}
	}

	orders, err := h.store.Query(r.Context(), walletAddress, limit)
	if err != nil {
		h.logger.Error("Failed to query orders", zap.String("wallet_address", walletAddress), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to fetch orders")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, orders)
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft model.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	order, err := h.store.Append(r.Context(), draft)
	if err != nil {
		var validationErr *repository.ValidationError
		if errors.As(err, &validationErr) {
			h.writeErrorResponse(w, http.StatusBadRequest, validationErr.Code, validationErr.Message)
			return
		}

		h.logger.Error("Failed to create order", zap.String("wallet_address", draft.WalletAddress), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to create order")
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, order)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_order_id", "Order id must be a positive integer")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get order", zap.Int64("order_id", id), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order")
		return
	}

	if order == nil {
		h.writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, order)
}

// GetAccount handles GET /api/accounts/{wallet_address}
func (h *OrderHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	walletAddress := mux.Vars(r)["wallet_address"]

	account, err := h.store.GetAccount(r.Context(), walletAddress)
	if err != nil {
		h.logger.Error("Failed to get account", zap.String("wallet_address", walletAddress), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve account")
		return
	}

	if account == nil {
		h.writeErrorResponse(w, http.StatusNotFound, "account_not_found", "Account not found")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, account)
}

// writeJSONResponse writes a JSON response
func (h *OrderHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *OrderHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
