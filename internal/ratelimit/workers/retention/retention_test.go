package retention

// Justification: retention timing cannot be expressed in the feature suite
// without waiting out real windows. These tests pin the cutoff arithmetic and
// the worker loop lifecycle.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"confide/internal/ratelimit/metrics"
	"confide/internal/ratelimit/models"
	"confide/internal/ratelimit/store/events"
	fixtures "confide/pkg/testutil"
)

type recordingPruner struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	deleted int
	err     error
}

func (p *recordingPruner) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.deleted, p.err
}

func (p *recordingPruner) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type RetentionSuite struct {
	suite.Suite
	pruner  *recordingPruner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func TestRetentionSuite(t *testing.T) {
	suite.Run(t, new(RetentionSuite))
}

func (s *RetentionSuite) SetupTest() {
	s.pruner = &recordingPruner{}
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *RetentionSuite) TestRunOnceComputesCutoff() {
	s.pruner.deleted = 7
	svc := New(s.pruner, 2*time.Minute, WithClock(func() time.Time { return fixtures.Epoch }))

	res, err := svc.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(7, res.Deleted)
	s.Equal(fixtures.Epoch.Add(-2*time.Minute), res.Cutoff)
	s.Equal([]time.Time{fixtures.Epoch.Add(-2 * time.Minute)}, s.pruner.cutoffs)
}

func (s *RetentionSuite) TestRunOncePropagatesError() {
	s.pruner.err = errors.New("db down")
	svc := New(s.pruner, time.Minute)

	_, err := svc.RunOnce(context.Background())
	s.ErrorContains(err, "db down")
}

func (s *RetentionSuite) TestStartTicksUntilCancelled() {
	s.pruner.deleted = 3
	svc := New(s.pruner, time.Minute,
		WithInterval(10*time.Millisecond),
		WithLogger(s.logger),
		WithMetrics(s.metrics),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	s.Eventually(func() bool { return s.pruner.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop")
	}
	s.GreaterOrEqual(testutil.ToFloat64(s.metrics.RetentionRunsTotal.WithLabelValues("success")), 2.0)
	s.GreaterOrEqual(testutil.ToFloat64(s.metrics.RetentionEventsDeleted), 6.0)
}

func (s *RetentionSuite) TestStartContinuesAfterErrors() {
	s.pruner.err = errors.New("transient")
	svc := New(s.pruner, time.Minute,
		WithInterval(10*time.Millisecond),
		WithLogger(s.logger),
		WithMetrics(s.metrics),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Start(ctx) }()

	s.Eventually(func() bool { return s.pruner.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	s.Eventually(func() bool {
		return testutil.ToFloat64(s.metrics.RetentionRunsTotal.WithLabelValues("error")) >= 2
	}, time.Second, 5*time.Millisecond)
}

func (s *RetentionSuite) TestPrunesMemoryStore() {
	clock := fixtures.NewManualClock()
	store := events.NewInMemory(events.WithClock(clock.Now))
	store.Seed("1.2.3.4", models.ClassPost, clock.Now().Add(-3*time.Minute))
	store.Seed("1.2.3.4", models.ClassPost, clock.Now().Add(-30*time.Second))

	svc := New(store, 2*time.Minute, WithClock(clock.Now))
	res, err := svc.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(1, res.Deleted)
	s.Equal(1, store.Len())
}
