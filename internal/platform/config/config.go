package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the bridge daemon's configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Bridge   BridgeConfig
}

// RedisConfig configures the published-state snapshot store. An empty URL
// disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the asset-lock journal. An empty URL selects the
// in-memory journal.
type PostgresConfig struct {
	URL string
}

// KafkaConfig configures the audit trail sink. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// BridgeConfig tunes the funding engine.
type BridgeConfig struct {
	FeeEstimate         int64
	ConfirmationTimeout time.Duration
	FundingAttempts     int
	PriceFeedURL        string
	PriceCurrency       string

	// SimSeedBalance, when positive, seeds one simulator wallet with this
	// balance at startup so a fresh daemon can fund identities immediately.
	SimSeedBalance int64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:          envOr("BRIDGE_ADDR", ":8080"),
		JWTSigningKey: envOr("BRIDGE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("BRIDGE_REDIS_URL"),
			PoolSize:     envInt("BRIDGE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BRIDGE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("BRIDGE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BRIDGE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BRIDGE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("BRIDGE_POSTGRES_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: envList("BRIDGE_KAFKA_BROKERS"),
			Topic:   envOr("BRIDGE_KAFKA_AUDIT_TOPIC", "creditbridge.audit"),
		},
		Bridge: BridgeConfig{
			FeeEstimate:         envInt64("BRIDGE_FEE_ESTIMATE", 1_000),
			ConfirmationTimeout: envDuration("BRIDGE_CONFIRMATION_TIMEOUT", 30*time.Second),
			FundingAttempts:     envInt("BRIDGE_FUNDING_ATTEMPTS", 3),
			PriceFeedURL:        os.Getenv("BRIDGE_PRICE_FEED_URL"),
			PriceCurrency:       envOr("BRIDGE_PRICE_CURRENCY", "USD"),
			SimSeedBalance:      envInt64("BRIDGE_SIM_SEED_BALANCE", 0),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
