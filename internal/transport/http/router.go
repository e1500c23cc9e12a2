package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"confide/internal/platform/health"
	ratelimithandler "confide/internal/ratelimit/handler"
	"confide/pkg/platform/middleware/metadata"
	request "confide/pkg/platform/middleware/request"
	"confide/pkg/platform/middleware/requesttime"
)

// DefaultMaxBodyBytes caps the check body; the only field is a short label.
const DefaultMaxBodyBytes = 4 << 10

// Dependencies are the handlers and middleware the router mounts.
type Dependencies struct {
	Logger         *slog.Logger
	RateLimit      *ratelimithandler.Handler
	RateLimitPath  string
	Health         *health.Handler
	Metadata       *metadata.Middleware
	LatencyMetrics *request.Metrics
	MetricsHandler http.Handler
	MaxBodyBytes   int64
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(deps.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(deps.Metadata.Handler)
	r.Use(request.Logger(deps.Logger))
	if deps.LatencyMetrics != nil {
		r.Use(request.LatencyMiddleware(deps.LatencyMetrics))
	}

	if deps.Health != nil {
		deps.Health.Register(r)
	}

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	path := deps.RateLimitPath
	if path == "" {
		path = "/rate-limit"
	}
	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(maxBody))
		deps.RateLimit.Register(r, path)
	})

	return r
}
