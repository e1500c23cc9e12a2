package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"CONFIDE_ADDR", "EVENT_LOG_BACKEND", "EVENT_LOG_TABLE", "CLIENT_ADDRESS_HEADER",
		"RATE_LIMIT_PATH", "EVENT_LOG_TIMEOUT", "KAFKA_BROKERS", "RETENTION_INTERVAL",
	} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.EventLog.Backend)
	assert.Equal(t, "action_events", cfg.EventLog.Table)
	assert.Equal(t, "X-Forwarded-For", cfg.ClientAddressHeader)
	assert.Equal(t, "/rate-limit", cfg.RateLimitPath)
	assert.Equal(t, 3*time.Second, cfg.EventLog.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.RetentionInterval)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONFIDE_ADDR", ":9090")
	t.Setenv("EVENT_LOG_BACKEND", "REST")
	t.Setenv("EVENT_LOG_URL", "https://project.example.co/rest/v1/")
	t.Setenv("EVENT_LOG_TIMEOUT", "750ms")
	t.Setenv("EVENT_LOG_MAX_CALLS_PER_SECOND", "200")
	t.Setenv("CLIENT_ADDRESS_HEADER", "X-Real-IP")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendREST, cfg.EventLog.Backend)
	assert.Equal(t, "https://project.example.co/rest/v1", cfg.EventLog.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.EventLog.Timeout)
	assert.Equal(t, 200, cfg.EventLog.MaxCallsPerSecond)
	assert.Equal(t, "X-Real-IP", cfg.ClientAddressHeader)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("EVENT_LOG_TIMEOUT", "soon")
	t.Setenv("EVENT_LOG_MAX_CALLS_PER_SECOND", "lots")

	cfg := FromEnv()

	assert.Equal(t, 3*time.Second, cfg.EventLog.Timeout)
	assert.Equal(t, 0, cfg.EventLog.MaxCallsPerSecond)
}
