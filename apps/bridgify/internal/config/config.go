package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort            int
	DbURL              string
	KafkaBroker        string
	KafkaTopic         string
	KafkaGroupID       string
	StateDBPath        string
	ServerURL          string
	OrderPollInterval  time.Duration
	OutboxPollInterval time.Duration
	RatesRefreshDelay  time.Duration
	OrdersDefaultLimit int
}

// NewConfig loads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func NewConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		APIPort:            getEnvInt("API_PORT", 8080),
		DbURL:              getEnv("DB_URL", ""),
		KafkaBroker:        getEnv("KAFKA_BROKER", ""),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "bridgify.orders"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "bridgify-order-relay"),
		StateDBPath:        getEnv("STATE_DB_PATH", ":memory:"),
		ServerURL:          getEnv("SERVER_URL", "http://localhost:8080"),
		OrderPollInterval:  getEnvDuration("ORDER_POLL_INTERVAL", 30*time.Second),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
		RatesRefreshDelay:  getEnvDuration("RATES_REFRESH_DELAY", 2*time.Second),
		OrdersDefaultLimit: getEnvInt("ORDERS_DEFAULT_LIMIT", 50),
	}
}

// UseKafka reports whether order events go through a broker.
func (c *Config) UseKafka() bool {
	return c.KafkaBroker != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
