package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	RequireAuth   bool
}

// Postgres captures the policy store connection settings.
type Postgres struct {
	DSN string
}

// Redis captures the fraud classification cache settings.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures broker addresses, topic names and consumer behavior.
type Kafka struct {
	Brokers []string
	Group   string

	StatusTopic       string
	PaymentTopic      string
	SubscriptionTopic string

	// MaxAttempts bounds handler retries per record before the record is
	// parked on the topic's dead-letter twin.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Fraud captures the fraud analysis API client settings.
type Fraud struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Config is everything main needs to wire the service.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Fraud    Fraud
}

// FromEnv builds the full config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("POLICYD_ADDR", ":8080"),
			JWTSigningKey: envOr("POLICYD_JWT_SIGNING_KEY", ""),
			RequireAuth:   os.Getenv("POLICYD_REQUIRE_AUTH") == "true",
		},
		Postgres: Postgres{
			DSN: os.Getenv("POLICYD_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("POLICYD_REDIS_URL"),
			PoolSize:     envIntOr("POLICYD_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("POLICYD_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("POLICYD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("POLICYD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("POLICYD_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:           splitList(envOr("POLICYD_KAFKA_BROKERS", "localhost:9092")),
			Group:             envOr("POLICYD_KAFKA_GROUP", "policyd"),
			StatusTopic:       envOr("POLICYD_TOPIC_STATUS", "policy.status.changed"),
			PaymentTopic:      envOr("POLICYD_TOPIC_PAYMENTS", "payment-results"),
			SubscriptionTopic: envOr("POLICYD_TOPIC_SUBSCRIPTIONS", "subscription-results"),
			MaxAttempts:       envIntOr("POLICYD_KAFKA_MAX_ATTEMPTS", 5),
			RetryBackoff:      envDurationOr("POLICYD_KAFKA_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Fraud: Fraud{
			BaseURL:  envOr("POLICYD_FRAUD_BASE_URL", "http://localhost:8081"),
			Timeout:  envDurationOr("POLICYD_FRAUD_TIMEOUT", 3*time.Second),
			CacheTTL: envDurationOr("POLICYD_FRAUD_CACHE_TTL", 10*time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
