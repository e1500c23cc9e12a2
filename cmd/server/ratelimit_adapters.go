package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"confide/internal/platform/config"
	"confide/internal/platform/database"
	"confide/internal/platform/health"
	"confide/internal/platform/kafka/producer"
	platformredis "confide/internal/platform/redis"
	ratelimitconfig "confide/internal/ratelimit/config"
	"confide/internal/ratelimit/ports"
	"confide/internal/ratelimit/store/events"
	"confide/migrations"
	"confide/pkg/platform/audit/publisher"
	kafkastore "confide/pkg/platform/audit/store/kafka"
	"confide/pkg/platform/circuit"
	"confide/pkg/platform/servicekey"
)

// eventLogBackend bundles the selected event log with what the composition
// root must run or close beside it.
type eventLogBackend struct {
	events ports.EventLog
	pruner ports.Pruner
	redis  *platformredis.Client
	pool   *database.Pool
}

func (b *eventLogBackend) Close(log *slog.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if err := b.pool.Close(); err != nil {
		log.Warn("database close failed", "error", err)
	}
}

// buildEventLog selects the backend named by EVENT_LOG_BACKEND, registers its
// readiness check and applies load shedding.
func buildEventLog(ctx context.Context, cfg config.Server, rules *ratelimitconfig.Rules, h *health.Handler) (*eventLogBackend, error) {
	b := &eventLogBackend{}

	switch cfg.EventLog.Backend {
	case config.BackendREST:
		if cfg.EventLog.URL == "" {
			return nil, errors.New("EVENT_LOG_URL is required for the rest backend")
		}
		if _, err := servicekey.RequireServiceRole(cfg.EventLog.ServiceRoleKey, time.Now()); err != nil {
			return nil, fmt.Errorf("SERVICE_ROLE_KEY: %w", err)
		}
		b.events = events.NewREST(cfg.EventLog.URL, cfg.EventLog.Table, cfg.EventLog.ServiceRoleKey,
			events.WithHTTPClient(&http.Client{Timeout: cfg.EventLog.Timeout}))

	case config.BackendPostgres:
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		if dbCfg.URL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		pool, err := database.New(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			pool.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, err
		}
		store := events.NewPostgres(pool.DB())
		b.pool, b.events, b.pruner = pool, store, store
		h.RegisterDependency("postgres", pool.Health)

	case config.BackendRedis:
		if cfg.Redis.URL == "" {
			return nil, errors.New("REDIS_URL is required for the redis backend")
		}
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.redis = client
		b.events = events.NewRedis(client, 2*rules.LongestWindow())
		h.RegisterDependency("redis", client.Health)

	case config.BackendMemory:
		store := events.NewInMemory()
		b.events, b.pruner = store, store

	default:
		return nil, fmt.Errorf("unknown EVENT_LOG_BACKEND %q", cfg.EventLog.Backend)
	}

	throttled, err := events.NewThrottled(b.events, cfg.EventLog.MaxCallsPerSecond)
	if err != nil {
		return nil, err
	}
	b.events = throttled
	return b, nil
}

// buildAuditPublisher streams audit events to Kafka when brokers are set.
// The returned close func is always safe to call.
func buildAuditPublisher(cfg config.KafkaConfig, log *slog.Logger, h *health.Handler) (*publisher.Publisher, func(), error) {
	if !cfg.Enabled() {
		return nil, func() {}, nil
	}

	pcfg := producer.DefaultConfig()
	pcfg.Brokers = cfg.Brokers
	p, err := producer.New(pcfg, log)
	if err != nil {
		return nil, nil, err
	}
	h.RegisterDependency("kafka", p.Health)

	pub := publisher.NewPublisher(kafkastore.New(p, cfg.AuditTopic),
		publisher.WithAsyncBuffer(1024),
		publisher.WithPublisherLogger(log),
	)
	return pub, func() {
		pub.Close()
		if err := p.Close(); err != nil {
			log.Warn("kafka producer close failed", "error", err)
		}
	}, nil
}

// circuitCheck reports the event-log circuit on /health. It is a dependency
// check, not a readiness check: the check endpoint keeps admitting either way.
func circuitCheck(b *circuit.Breaker) health.CheckFunc {
	return func(context.Context) error {
		if b.IsOpen() {
			return fmt.Errorf("%s circuit %s", b.Name(), b.State())
		}
		return nil
	}
}

func recordRedisPoolStats(ctx context.Context, c *platformredis.Client) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.RecordPoolStats()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
