package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/rates"
)

// RatesHandler handles exchange rate API endpoints
type RatesHandler struct {
	oracle *rates.Oracle
	logger *zap.Logger
}

// NewRatesHandler creates a new RatesHandler
func NewRatesHandler(oracle *rates.Oracle, logger *zap.Logger) *RatesHandler {
	return &RatesHandler{
		oracle: oracle,
		logger: logger,
	}
}

// GetRates handles GET /api/rates
func (h *RatesHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.ratesResponse())
}

// RefreshRates handles POST /api/rates/refresh. A failed refresh answers 502 with
// the reverted status, which carries the error message.
func (h *RatesHandler) RefreshRates(w http.ResponseWriter, r *http.Request) {
	status, err := h.oracle.Refresh(r.Context())
	if err != nil {
		h.logger.Warn("Rate refresh failed", zap.String("status", string(status.Status)), zap.Error(err))
		h.writeJSONResponse(w, http.StatusBadGateway, status)
		return
	}

	h.logger.Info("Rates refreshed", zap.String("last_updated", status.LastUpdated))
	h.writeJSONResponse(w, http.StatusOK, h.ratesResponse())
}

func (h *RatesHandler) ratesResponse() RatesResponse {
	table := h.oracle.Table()

	response := RatesResponse{
		Crypto: make(map[string]string, len(table.Crypto)),
		Fiat:   make(map[string]string, len(table.Fiat)),
		Status: h.oracle.Status(),
	}
	for symbol, price := range table.Crypto {
		response.Crypto[symbol.Code()] = price.String()
	}
	for code, rate := range table.Fiat {
		response.Fiat[string(code)] = rate.String()
	}
	return response
}

// writeJSONResponse writes a JSON response
func (h *RatesHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}
