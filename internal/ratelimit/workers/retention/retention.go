package retention

import (
	"context"
	"log/slog"
	"time"

	"confide/internal/ratelimit/metrics"
)

// Result contains the outcome of one retention run.
type Result struct {
	Deleted  int
	Cutoff   time.Time
	Duration time.Duration
}

// Pruner deletes events older than cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source used to compute the cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service periodically removes events that can no longer fall inside any
// window. It runs beside the admission path and never on it.
type Service struct {
	pruner   Pruner
	maxAge   time.Duration
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New keeps events younger than maxAge. Pass twice the longest class window
// so in-flight checks never lose events they are about to count.
func New(pruner Pruner, maxAge time.Duration, opts ...Option) *Service {
	service := &Service{
		pruner:   pruner,
		maxAge:   maxAge,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Start runs RunOnce on every tick until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("action_event_retention_failed",
					"error", err,
					"duration_ms", res.Duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.IncrementRetentionRuns("error")
					s.metrics.ObserveRetentionDuration(res.Duration.Seconds())
				}
				continue
			}

			s.logger.Info("action_event_retention_completed",
				"events_deleted", res.Deleted,
				"cutoff", res.Cutoff,
				"duration_ms", res.Duration.Milliseconds(),
			)
			if s.metrics != nil {
				s.metrics.IncrementRetentionDeleted(res.Deleted)
				s.metrics.IncrementRetentionRuns("success")
				s.metrics.ObserveRetentionDuration(res.Duration.Seconds())
			}

		case <-ctx.Done():
			s.logger.Info("action event retention worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single pass. Logging and metrics are handled by Start.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	cutoff := s.now().Add(-s.maxAge)
	deleted, err := s.pruner.PruneBefore(ctx, cutoff)
	return Result{
		Deleted:  deleted,
		Cutoff:   cutoff,
		Duration: time.Since(start),
	}, err
}
