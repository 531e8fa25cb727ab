package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/rates"
	"bridgify/apps/bridgify/internal/repository"
)

// Server represents the API server
type Server struct {
	orderHandler   *OrderHandler
	balanceHandler *BalanceHandler
	ratesHandler   *RatesHandler
	hub            *Hub
	logger         *zap.Logger
	server         *http.Server
}

// NewServer creates a new API server
func NewServer(port int, store repository.OrderStore, oracle *rates.Oracle, hub *Hub, defaultLimit int, logger *zap.Logger) *Server {
	s := &Server{
		orderHandler:   NewOrderHandler(store, defaultLimit, logger),
		balanceHandler: NewBalanceHandler(store, oracle, logger),
		ratesHandler:   NewRatesHandler(oracle, logger),
		hub:            hub,
		logger:         logger,
		// No WriteTimeout: it would cut long-lived order streams
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
	}
	s.server.Handler = s.Handler()
	return s
}

// Handler returns the routed handler, also used by tests through httptest.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Add middleware
	router.Use(s.loggingMiddleware)
	router.Use(s.corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// Order endpoints; the stream route goes before the id pattern
	api.HandleFunc("/orders", s.orderHandler.ListOrders).Methods("GET")
	api.HandleFunc("/orders", s.orderHandler.CreateOrder).Methods("POST", "OPTIONS")
	api.HandleFunc("/orders/stream", s.hub.ServeStream).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}", s.orderHandler.GetOrder).Methods("GET")

	api.HandleFunc("/accounts/{wallet_address}", s.orderHandler.GetAccount).Methods("GET")
	api.HandleFunc("/balance/{wallet_address}", s.balanceHandler.GetBalance).Methods("GET")

	// Rate endpoints
	api.HandleFunc("/rates", s.ratesHandler.GetRates).Methods("GET")
	api.HandleFunc("/rates/refresh", s.ratesHandler.RefreshRates).Methods("POST", "OPTIONS")

	// Health check endpoint
	api.HandleFunc("/health", s.healthCheck).Methods("GET")

	return router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r)

		s.logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":             "healthy",
		"time":               time.Now().UTC().Format(time.RFC3339),
		"stream_subscribers": s.hub.ClientCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode health check response", zap.Error(err))
	}
}
