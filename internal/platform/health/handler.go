// Package health provides HTTP health check endpoints for liveness, readiness, and status probes.
//
// Readiness reflects only this process: it flips to ready once the listener is
// bound and back to not_ready when shutdown begins. Shared dependencies (the
// event log, the audit stream) are reported on /health and never fail a probe,
// because every instance shares them and the check endpoint admits when they are down.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"confide/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc checks one dependency and returns nil if it is healthy.
type CheckFunc func(ctx context.Context) error

// checkTimeout bounds each dependency check.
const checkTimeout = 2 * time.Second

// Handler provides health check endpoints.
type Handler struct {
	startTime   time.Time
	environment string
	ready       atomic.Bool

	mu           sync.RWMutex
	dependencies map[string]CheckFunc
}

// New creates a new health handler. It reports not_ready until SetReady(true).
func New(environment string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		environment:  environment,
		dependencies: make(map[string]CheckFunc),
	}
}

// SetReady marks whether this instance should receive traffic.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// RegisterDependency adds a named check reported on /health.
func (h *Handler) RegisterDependency(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dependencies[name] = check
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always returns 200 while the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{
		Status: "alive",
	})
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status string `json:"status"`
}

// HandleReadiness returns 503 only before the listener is up or while shutting down.
func (h *Handler) HandleReadiness(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
}

// StatusResponse is the response for the general health status endpoint.
type StatusResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Environment   string            `json:"environment"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     string            `json:"timestamp"`
	Dependencies  map[string]string `json:"dependencies,omitempty"`
}

// HandleStatus reports version, uptime and dependency state. It is always 200;
// a failing dependency turns the status to "degraded".
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.dependencies))
	maps.Copy(checks, h.dependencies)
	h.mu.RUnlock()

	response := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if len(checks) > 0 {
		response.Dependencies = make(map[string]string, len(checks))
	}
	for name, check := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			response.Dependencies[name] = "down: " + err.Error()
			response.Status = "degraded"
			continue
		}
		response.Dependencies[name] = "up"
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}
