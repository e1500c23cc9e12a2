package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Event-log backends.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	RateLimitPath       string
	ClientAddressHeader string

	EventLog EventLogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	RetentionInterval time.Duration
}

// EventLogConfig selects and configures the event-log backend.
type EventLogConfig struct {
	Backend           string
	URL               string
	Table             string
	ServiceRoleKey    string
	Timeout           time.Duration
	MaxCallsPerSecond int // per source address; 0 disables the budget
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit stream configuration. Empty Brokers disables the stream.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// Enabled reports whether an audit stream is configured.
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// FromEnv builds a Server config from environment variables, loading an
// optional .env file first. Real environment variables take precedence.
func FromEnv() Server {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	return Server{
		Addr:                getEnv("CONFIDE_ADDR", ":8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RateLimitPath:       getEnv("RATE_LIMIT_PATH", "/rate-limit"),
		ClientAddressHeader: getEnv("CLIENT_ADDRESS_HEADER", "X-Forwarded-For"),
		EventLog: EventLogConfig{
			Backend:           strings.ToLower(getEnv("EVENT_LOG_BACKEND", BackendMemory)),
			URL:               strings.TrimRight(os.Getenv("EVENT_LOG_URL"), "/"),
			Table:             getEnv("EVENT_LOG_TABLE", "action_events"),
			ServiceRoleKey:    os.Getenv("SERVICE_ROLE_KEY"),
			Timeout:           getDuration("EVENT_LOG_TIMEOUT", 3*time.Second),
			MaxCallsPerSecond: getInt("EVENT_LOG_MAX_CALLS_PER_SECOND", 0),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: getEnv("AUDIT_TOPIC", "confide.audit"),
		},
		RetentionInterval: getDuration("RETENTION_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
