// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DocstoreBackend selects the profile document store implementation.
type DocstoreBackend string

const (
	DocstoreMemory   DocstoreBackend = "memory"
	DocstoreRedis    DocstoreBackend = "redis"
	DocstorePostgres DocstoreBackend = "postgres"
)

// Config captures server-level configuration.
type Config struct {
	Addr string

	Docstore    DocstoreBackend
	PostgresDSN string

	Redis RedisConfig

	// KafkaBrokers enables the kafka audit sink when non-empty; otherwise
	// audit events stay in the in-memory store.
	KafkaBrokers []string
	AuditTopic   string

	// GuardSettleTimeout bounds how long guards wait for the session to
	// settle before denying navigation.
	GuardSettleTimeout time.Duration

	// IDTokenSigningKey signs the dev provider's session tokens.
	IDTokenSigningKey string
}

// RedisConfig captures redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything unset.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("WARDEN_ADDR", ":8080"),
		Docstore:           DocstoreBackend(envOr("WARDEN_DOCSTORE", string(DocstoreMemory))),
		PostgresDSN:        os.Getenv("WARDEN_POSTGRES_DSN"),
		AuditTopic:         envOr("WARDEN_AUDIT_TOPIC", "warden.audit"),
		GuardSettleTimeout: envDurationOr("WARDEN_GUARD_SETTLE_TIMEOUT", 5*time.Second),
		// Default for development - must be overridden in production.
		IDTokenSigningKey: envOr("WARDEN_SIGNING_KEY", "dev-signing-key"),
		Redis: RedisConfig{
			URL:          os.Getenv("WARDEN_REDIS_URL"),
			PoolSize:     envIntOr("WARDEN_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("WARDEN_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("WARDEN_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("WARDEN_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("WARDEN_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if brokers := os.Getenv("WARDEN_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
