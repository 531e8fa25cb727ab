package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/balance"
	"bridgify/apps/bridgify/internal/rates"
	"bridgify/apps/bridgify/internal/repository"
)

// BalanceHandler handles balance-related API endpoints
type BalanceHandler struct {
	store         repository.OrderStore
	oracle        *rates.Oracle
	logger        *zap.Logger
	assetRegistry *assets.AssetRegistry
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(store repository.OrderStore, oracle *rates.Oracle, logger *zap.Logger) *BalanceHandler {
	return &BalanceHandler{
		store:         store,
		oracle:        oracle,
		logger:        logger,
		assetRegistry: assets.GlobalRegistry,
	}
}

// GetBalance handles GET /api/balance/{wallet_address}
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	walletAddress := vars["wallet_address"]

	if walletAddress == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_wallet_address", "Wallet address is required")
		return
	}

	orders, err := h.store.Query(r.Context(), walletAddress, balance.HistoryLimit)
	if err != nil {
		h.logger.Error("Failed to query orders for balance", zap.String("wallet_address", walletAddress), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to fetch orders")
		return
	}

	reconciled := balance.ReconcileWith(h.assetRegistry, orders, h.oracle)
	balances := make(map[string]TokenBalance)

	for _, symbol := range h.assetRegistry.Symbols() {
		asset, _ := h.assetRegistry.Lookup(string(symbol))
		amount := reconciled.Amounts[symbol]

		tokenBalance := TokenBalance{
			Balance:  amount.String(),
			Symbol:   asset.Code,
			Name:     asset.Name,
			Decimals: asset.Decimals,
			ValueUSD: amount.Mul(h.oracle.USDPrice(asset.Code)).StringFixed(2),
		}
		if !asset.Native {
			tokenBalance.Address = asset.Address.Hex()
		}
		balances[string(symbol)] = tokenBalance
	}

	response := BalanceResponse{
		WalletAddress: walletAddress,
		Balances:      balances,
		TotalUSD:      reconciled.TotalUSD.StringFixed(2),
		OrderCount:    reconciled.OrderCount,
		NoOrders:      reconciled.NoOrders,
		RatesStatus:   h.oracle.Status(),
	}

	h.logger.Info("Reconciled wallet balance",
		zap.String("wallet_address", walletAddress),
		zap.Int("order_count", reconciled.OrderCount),
		zap.String("total_usd", response.TotalUSD))

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *BalanceHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *BalanceHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
