package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// IngestSecretHash is the bcrypt hash of the shared secret presented by
	// the ingestion pipeline. Empty disables the ingest endpoint.
	IngestSecretHash string
	// PostgresURL selects the Postgres-backed stores when set; memory stores
	// are used otherwise.
	PostgresURL string
	Redis       RedisConfig
}

// RedisConfig captures Redis connection settings. An empty URL means Redis is
// not configured and the process-local channel hub is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("PRESSROOM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:             addr,
		JWTSigningKey:    jwtSigningKey,
		IngestSecretHash: os.Getenv("INGEST_SECRET_HASH"),
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
