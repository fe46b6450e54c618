package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	ScheduleOff = "off"
)

type Config struct {
	NatsHost      string
	NatsPort      string
	NatsUser      string
	NatsPassword  string
	BusBufferSize int

	TopicPrefix      string
	IdentityEmail    string
	RequestTimeoutMs int
	MinTransfer      int

	StoreProvider string
	RedisHost     string
	RedisPort     string
	DBUser        string
	DBPass        string
	DBHost        string
	DBPort        string
	DBName        string
	SSLMode       string

	ApiEnabled       string
	ApiPort          string
	GRPCPort         string
	SnapshotSchedule string

	LogLevel  string
	LogPretty bool
}

// New loads and validates configuration from environment variables.
// The HTTP API and the gRPC health endpoint are optional: ApiAddr() and
// GRPCAddr() return an error when they are not configured and the server is
// simply not started.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		NatsHost:         os.Getenv("WALLETDASH_NATS_HOST"),
		NatsPort:         os.Getenv("WALLETDASH_NATS_PORT"),
		NatsUser:         os.Getenv("WALLETDASH_NATS_USER"),
		NatsPassword:     os.Getenv("WALLETDASH_NATS_PASSWORD"),
		BusBufferSize:    getEnvInt("WALLETDASH_BUS_BUFFER_SIZE", 256),
		TopicPrefix:      getEnv("WALLETDASH_TOPIC_PREFIX", "B/F"),
		IdentityEmail:    os.Getenv("WALLETDASH_IDENTITY_EMAIL"),
		RequestTimeoutMs: getEnvInt("WALLETDASH_REQUEST_TIMEOUT_MS", 5000),
		MinTransfer:      getEnvInt("WALLETDASH_MIN_TRANSFER", 1000),
		StoreProvider:    strings.ToLower(getEnv("WALLETDASH_STORE_PROVIDER", StoreMemory)),
		RedisHost:        os.Getenv("WALLETDASH_REDIS_HOST"),
		RedisPort:        os.Getenv("WALLETDASH_REDIS_PORT"),
		DBUser:           os.Getenv("WALLETDASH_POSTGRES_USER"),
		DBPass:           os.Getenv("WALLETDASH_POSTGRES_PASSWORD"),
		DBHost:           os.Getenv("WALLETDASH_POSTGRES_HOST"),
		DBPort:           os.Getenv("WALLETDASH_POSTGRES_PORT"),
		DBName:           os.Getenv("WALLETDASH_POSTGRES_DB"),
		SSLMode:          os.Getenv("WALLETDASH_POSTGRES_SSLMODE"),
		ApiEnabled:       os.Getenv("WALLETDASH_API_ENABLED"),
		ApiPort:          os.Getenv("WALLETDASH_API_PORT"),
		GRPCPort:         os.Getenv("WALLETDASH_GRPC_PORT"),
		SnapshotSchedule: getEnv("WALLETDASH_SNAPSHOT_SCHEDULE", "@every 30s"),
		LogLevel:         getEnv("WALLETDASH_LOG_LEVEL", "info"),
		LogPretty:        os.Getenv("WALLETDASH_LOG_PRETTY") == "true",
	}

	// Required: broker and identity
	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats bus: WALLETDASH_NATS_HOST/PORT")
	}
	if cfg.IdentityEmail == "" {
		return nil, fmt.Errorf("missing required env: WALLETDASH_IDENTITY_EMAIL")
	}
	if cfg.RequestTimeoutMs <= 0 {
		return nil, fmt.Errorf("WALLETDASH_REQUEST_TIMEOUT_MS must be positive, got %d", cfg.RequestTimeoutMs)
	}

	// Selection store backend
	switch cfg.StoreProvider {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisHost == "" || cfg.RedisPort == "" {
			return nil, fmt.Errorf("missing required env for redis store: WALLETDASH_REDIS_HOST/PORT")
		}
	case StorePostgres:
		if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
			return nil, fmt.Errorf("missing required env for postgres store: WALLETDASH_POSTGRES_USER/HOST/DB/SSLMODE")
		}
	default:
		return nil, fmt.Errorf("invalid store provider %q, must be 'memory', 'redis' or 'postgres'", cfg.StoreProvider)
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if WALLETDASH_API_ENABLED != "true"; callers should skip starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("WALLETDASH_API_PORT is required when WALLETDASH_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (WALLETDASH_API_ENABLED != true)")
}

// GRPCAddr returns the health endpoint address, or an error when no port is set.
func (c *Config) GRPCAddr() (string, error) {
	if c.GRPCPort == "" {
		return "", fmt.Errorf("gRPC health endpoint is disabled (WALLETDASH_GRPC_PORT not set)")
	}
	return ":" + c.GRPCPort, nil
}

// SnapshotEnabled reports whether the periodic snapshot worker should run.
func (c *Config) SnapshotEnabled() bool {
	return c.SnapshotSchedule != "" && !strings.EqualFold(c.SnapshotSchedule, ScheduleOff)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}
