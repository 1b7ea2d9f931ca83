// Package config builds the explicit configuration injected into every
// component at construction. Environment lookups happen only here, so the
// rest of the codebase carries no ambient process state.
package config

import (
	"os"
	"strings"
	"time"
)

// Store backends selectable via CIVIC_STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full application configuration.
type Config struct {
	Server       Server
	Kafka        Kafka
	Redis        Redis
	Postgres     Postgres
	Cipher       Cipher
	StoreBackend string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Kafka configures the event bus transport. Empty Brokers selects the
// in-process bus instead.
type Kafka struct {
	Brokers        []string
	Topic          string
	Group          string
	AnalyticsTopic string
}

// Redis configures the redis-backed stores.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the postgres-backed stores.
type Postgres struct {
	DSN string
}

// Cipher configures the field encryption provider. Key is a base64-encoded
// 32-byte key; when empty, main generates an ephemeral development key.
type Cipher struct {
	Key string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Server: Server{
			Addr: envOr("CIVIC_ADDR", ":8080"),
		},
		Kafka: Kafka{
			Topic:          envOr("CIVIC_KAFKA_TOPIC", "civic.events"),
			Group:          envOr("CIVIC_KAFKA_GROUP", "civic"),
			AnalyticsTopic: envOr("CIVIC_ANALYTICS_TOPIC", "civic.analytics"),
		},
		Redis: Redis{
			URL:          os.Getenv("CIVIC_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: Postgres{
			DSN: os.Getenv("CIVIC_POSTGRES_DSN"),
		},
		Cipher: Cipher{
			Key: os.Getenv("CIVIC_CIPHER_KEY"),
		},
		StoreBackend: envOr("CIVIC_STORE_BACKEND", BackendMemory),
	}
	if brokers := os.Getenv("CIVIC_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
