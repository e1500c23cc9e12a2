package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"confide/internal/platform/config"
	"confide/internal/platform/health"
	"confide/internal/platform/logger"
	ratelimitconfig "confide/internal/ratelimit/config"
	ratelimithandler "confide/internal/ratelimit/handler"
	"confide/internal/ratelimit/metrics"
	"confide/internal/ratelimit/observability"
	"confide/internal/ratelimit/service/admission"
	"confide/internal/ratelimit/workers/retention"
	httptransport "confide/internal/transport/http"
	"confide/pkg/platform/circuit"
	"confide/pkg/platform/middleware/metadata"
	request "confide/pkg/platform/middleware/request"
)

// main wires dependencies and runs the HTTP server beside the retention
// worker until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "confide:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing confide",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"event_log_backend", cfg.EventLog.Backend,
		"rate_limit_path", cfg.RateLimitPath,
	)

	rules := ratelimitconfig.DefaultRules()
	for _, class := range rules.Classes() {
		log.Info("rate class", "class", class.Name, "window", class.Window, "max_count", class.MaxCount)
	}

	rlMetrics := metrics.New()
	healthHandler := health.New(cfg.Environment)

	backend, err := buildEventLog(ctx, cfg, rules, healthHandler)
	if err != nil {
		return err
	}
	defer backend.Close(log)

	auditPublisher, closeAudit, err := buildAuditPublisher(cfg.Kafka, log, healthHandler)
	if err != nil {
		return err
	}
	defer closeAudit()

	breaker := circuit.New("event_log")
	healthHandler.RegisterDependency("event_log_circuit", circuitCheck(breaker))

	opts := []admission.Option{
		admission.WithLogger(log),
		admission.WithMetrics(rlMetrics),
		admission.WithBreaker(breaker),
		admission.WithTracer(observability.NewTracer()),
		admission.WithCallTimeout(cfg.EventLog.Timeout),
	}
	if auditPublisher != nil {
		opts = append(opts, admission.WithAuditPublisher(auditPublisher))
	}
	svc, err := admission.New(backend.events, rules, opts...)
	if err != nil {
		return fmt.Errorf("create admission service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:         log,
		RateLimit:      ratelimithandler.New(svc, log),
		RateLimitPath:  cfg.RateLimitPath,
		Health:         healthHandler,
		Metadata:       metadata.NewMiddleware(&metadata.Config{AddressHeader: cfg.ClientAddressHeader}),
		LatencyMetrics: request.NewMetrics(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", ln.Addr().String())
		healthHandler.SetReady(true)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		healthHandler.SetReady(false)
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if backend.pruner != nil {
		worker := retention.New(backend.pruner, 2*rules.LongestWindow(),
			retention.WithLogger(log),
			retention.WithInterval(cfg.RetentionInterval),
			retention.WithMetrics(rlMetrics),
		)
		g.Go(func() error {
			return ignoreCanceled(worker.Start(gctx))
		})
	}

	if backend.redis != nil {
		g.Go(func() error {
			return ignoreCanceled(recordRedisPoolStats(gctx, backend.redis))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
