package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   string
	NatsURL        string
	GatewayBaseURL string
	GatewayTimeout time.Duration
	ExpiryInterval time.Duration
}

func Load() *Config {
	// Local development convenience; in production everything comes from
	// the real environment.
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", "localhost:9092"),
		NatsURL:        getEnv("NATS_URL", "nats://localhost:4222"),
		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", "http://localhost:8090"),
		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", 10*time.Second),
		ExpiryInterval: getDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
