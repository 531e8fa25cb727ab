package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/api"
	"bridgify/apps/bridgify/internal/assets"
	"bridgify/apps/bridgify/internal/config"
	"bridgify/apps/bridgify/internal/event_publisher"
	"bridgify/apps/bridgify/internal/order_relay"
	"bridgify/apps/bridgify/internal/rates"
	"bridgify/apps/bridgify/internal/repository"
)

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration from environment variables
	cfg := config.NewConfig()

	logger.Info("Starting application with configuration",
		zap.Int("api_port", cfg.APIPort),
		zap.Bool("postgres", cfg.DbURL != ""),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Duration("outbox_poll_interval", cfg.OutboxPollInterval),
		zap.Int("orders_default_limit", cfg.OrdersDefaultLimit),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := openStore(cfg, logger)
	defer store.Close()

	oracle := rates.NewOracle(assets.GlobalRegistry, rates.NewSimulatedSource(cfg.RatesRefreshDelay), logger)
	hub := api.NewHub(logger)

	// Order events reach stream subscribers through Kafka when a broker is configured
	var sink event_publisher.Sink = event_publisher.NewHubSink(hub, logger)
	if cfg.UseKafka() {
		kafkaSink, err := event_publisher.NewKafkaSink(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka sink", zap.Error(err))
		}
		sink = kafkaSink

		relay, err := order_relay.NewRelay(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID, hub, logger)
		if err != nil {
			logger.Fatal("Failed to create order relay", zap.Error(err))
		}
		defer relay.Close()

		go func() {
			if err := relay.Start(ctx); err != nil {
				logger.Fatal("Order relay failed", zap.Error(err))
			}
		}()
	}

	eventPublisher := event_publisher.NewEventPublisher(store, sink, cfg.OutboxPollInterval, logger)
	defer eventPublisher.Close()

	// Start event publisher in background
	go eventPublisher.StartPublishing(ctx)

	// Create and start API server
	apiServer := api.NewServer(cfg.APIPort, store, oracle, hub, cfg.OrdersDefaultLimit, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}
	cancel()

	logger.Info("Application shutdown complete")
}

// openStore returns the Postgres store when DB_URL is set and the in-memory store otherwise.
func openStore(cfg *config.Config, logger *zap.Logger) repository.OrderStore {
	if cfg.DbURL == "" {
		logger.Warn("DB_URL not set, orders are kept in memory")
		return repository.NewMemoryOrderStore(logger)
	}

	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize database tables
	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	return repository.NewPostgresOrderStore(db, logger)
}
