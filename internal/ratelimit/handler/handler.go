package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"confide/internal/ratelimit/models"
	dErrors "confide/pkg/domain-errors"
	"confide/pkg/platform/httputil"
	"confide/pkg/platform/privacy"
	"confide/pkg/requestcontext"
)

// Response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderStatus     = "X-RateLimit-Status"
	HeaderRetryAfter = "Retry-After"

	statusDegraded = "degraded"
)

// Service is the admission service the handler consults once per check.
type Service interface {
	Admit(ctx context.Context, address, action string) models.AdmissionDecision
	Degraded() bool
}

// Handler serves the rate-limit check endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a Handler over service.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the check endpoint for every method; HandleCheck answers
// non-POST requests itself so they get the JSON 405 body.
func (h *Handler) Register(r chi.Router, path string) {
	r.HandleFunc(path, h.HandleCheck)
}

// HandleCheck implements POST /rate-limit.
// Input: { "action": "post" | "comment" | "reaction" | anything }, all optional.
// Output: 200 { "ok": true } or 429 { "ok": false, "reason": "Please slow down" }.
//
// The caller address comes from the metadata middleware. Every internal
// failure, including a panic below this point, answers 200 { "ok": true }.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, models.ReasonMethodNotAllowed))
		return
	}

	ctx := r.Context()
	responded := false
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "rate limit check panicked; admitting",
				"panic", rec,
				"request_id", requestcontext.RequestID(ctx),
			)
			if !responded {
				httputil.WriteJSON(w, http.StatusOK, models.CheckResponse{OK: true})
			}
		}
	}()

	req, err := httputil.DecodeJSONLenient[models.CheckRequest](r)
	if err != nil {
		h.logger.DebugContext(ctx, "unreadable rate limit body; using default class",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	address := requestcontext.ClientIP(ctx)
	decision := h.service.Admit(ctx, address, req.Action)

	if h.service.Degraded() {
		w.Header().Set(HeaderStatus, statusDegraded)
	}
	if !decision.Bypassed {
		w.Header().Set(HeaderLimit, strconv.Itoa(decision.Class.MaxCount))
		w.Header().Set(HeaderRemaining, strconv.Itoa(decision.Remaining()))
	}

	responded = true
	if !decision.Admitted {
		h.logger.InfoContext(ctx, "action rate limited",
			"address", privacy.AnonymizeIP(address),
			"action_class", decision.Class.Name,
			"observed_count", decision.ObservedCount,
			"shed", decision.Shed,
			"request_id", requestcontext.RequestID(ctx),
		)
		w.Header().Set(HeaderRetryAfter, strconv.Itoa(decision.RetryAfterSeconds()))
		httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, models.ReasonSlowDown))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.CheckResponse{OK: true})
}
