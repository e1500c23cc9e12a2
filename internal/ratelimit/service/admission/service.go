// Package admission decides whether an anonymous action may proceed.
//
// One check is: classify the action, count the caller's events in the class
// window, admit if the count is under quota, and record the admitted event.
//
//	svc, _ := admission.New(eventLog, config.DefaultRules())
//	decision := svc.Admit(ctx, clientAddress, "comment")
//	if !decision.Admitted {
//	    // 429 Please slow down
//	}
//
// Admit never returns an error. Every event-log failure is folded to the
// admitting default in one place (foldOrDefault), so an outage of the log
// disables limiting instead of blocking posts. The one exception is a count
// refused by the per-address call budget (CodeRateLimited): that address is
// flooding, and the check is rejected.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"confide/internal/ratelimit/config"
	"confide/internal/ratelimit/metrics"
	"confide/internal/ratelimit/models"
	"confide/internal/ratelimit/observability"
	"confide/internal/ratelimit/ports"
	dErrors "confide/pkg/domain-errors"
	"confide/pkg/platform/audit"
	"confide/pkg/platform/circuit"
	"confide/pkg/platform/privacy"
	"confide/pkg/requestcontext"
)

// Service is safe for concurrent use. It holds no per-request state and takes
// no locks; concurrent checks for one address race between count and record.
type Service struct {
	events         ports.EventLog
	rules          *config.Rules
	breaker        *circuit.Breaker
	auditPublisher observability.AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         *observability.Tracer
	callTimeout    time.Duration
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger for audit and debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditPublisher sets the audit event publisher.
func WithAuditPublisher(publisher observability.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBreaker tracks event-log health. The breaker never blocks calls.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// WithTracer sets the span tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithCallTimeout bounds each event-log call. Zero leaves the caller's deadline alone.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.callTimeout = d
	}
}

// New creates an admission service over the given event log and frozen rules.
func New(events ports.EventLog, rules *config.Rules, opts ...Option) (*Service, error) {
	if events == nil {
		return nil, errors.New("event log is required")
	}
	if rules == nil {
		return nil, errors.New("rules are required")
	}

	svc := &Service{
		events: events,
		rules:  rules,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Degraded reports whether recent event-log calls have been failing.
func (s *Service) Degraded() bool {
	return s.breaker != nil && s.breaker.IsOpen()
}

// Admit runs one admission check for address and the client-supplied action label.
func (s *Service) Admit(ctx context.Context, address, action string) models.AdmissionDecision {
	if address == "" || address == requestcontext.UnknownAddress {
		s.recordDecision("", metrics.OutcomeBypassed)
		return models.AdmissionDecision{
			SourceAddress: requestcontext.UnknownAddress,
			Admitted:      true,
			Bypassed:      true,
		}
	}

	class := s.rules.Classify(action)
	windowStart := class.WindowStart(requestcontext.Now(ctx))

	ctx, span := s.tracer.Start(ctx, "ratelimit.admit",
		attribute.String("action_class", class.Name.String()),
		attribute.Int("max_count", class.MaxCount),
	)
	defer span.End(nil)

	count := call(ctx, s, metrics.OpCount, func(ctx context.Context) (int, error) {
		return s.events.CountSince(ctx, address, class.Name, windowStart)
	})
	if dErrors.HasCode(count.err, dErrors.CodeRateLimited) {
		return s.shed(ctx, span, address, class, windowStart)
	}
	observed, countOK := foldOrDefault(ctx, s, span, metrics.OpCount, address, class, count, 0)

	decision := models.AdmissionDecision{
		Class:         class,
		SourceAddress: address,
		WindowStart:   windowStart,
		ObservedCount: observed,
		Admitted:      models.Admit(observed, class.MaxCount),
		FailedOpen:    !countOK,
	}
	span.SetAttributes(
		attribute.Int("observed_count", observed),
		attribute.Bool("admitted", decision.Admitted),
	)

	if !decision.Admitted {
		s.recordDecision(class.Name.String(), metrics.OutcomeRejected)
		observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventRateLimited,
			"address", privacy.AnonymizeIP(address),
			"action_class", class.Name,
			"decision", "rejected",
			"reason", models.ReasonSlowDown,
			"observed_count", observed,
			"max_count", class.MaxCount,
			"window_seconds", int(class.Window.Seconds()),
		)
		return decision
	}

	recorded := call(ctx, s, metrics.OpRecord, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.events.Record(ctx, address, class.Name)
	})
	if _, ok := foldOrDefault(ctx, s, span, metrics.OpRecord, address, class, recorded, struct{}{}); !ok {
		decision.FailedOpen = true
	}

	if decision.FailedOpen {
		s.recordDecision(class.Name.String(), metrics.OutcomeFailedOpen)
	} else {
		s.recordDecision(class.Name.String(), metrics.OutcomeAdmitted)
	}
	return decision
}

// shed rejects a check the per-address call budget refused. The event log was
// not asked, so this is neither an upstream failure nor a breaker signal.
func (s *Service) shed(ctx context.Context, span *observability.Span, address string, class models.RateClass, windowStart time.Time) models.AdmissionDecision {
	s.recordDecision(class.Name.String(), metrics.OutcomeShed)
	span.AddEvent("shed")
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventRateLimited,
		"address", privacy.AnonymizeIP(address),
		"action_class", class.Name,
		"decision", "rejected",
		"reason", "call budget exceeded",
	)
	return models.AdmissionDecision{
		Class:         class,
		SourceAddress: address,
		WindowStart:   windowStart,
		ObservedCount: class.MaxCount,
		Shed:          true,
	}
}

// result is the outcome of one event-log call: a value or a failure.
type result[T any] struct {
	value T
	err   error
}

// call runs fn under the per-call timeout and converts a panic into a failure.
func call[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (res result[T]) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = result[T]{err: fmt.Errorf("event log %s panicked: %v", op, r)}
		}
		if s.metrics != nil {
			s.metrics.ObserveEventLogDuration(op, time.Since(start).Seconds())
		}
	}()

	v, err := fn(ctx)
	return result[T]{value: v, err: err}
}

// foldOrDefault is the only place an event-log failure is handled. A failure
// becomes fallback; ok is false when that happened.
func foldOrDefault[T any](
	ctx context.Context,
	s *Service,
	span *observability.Span,
	op string,
	address string,
	class models.RateClass,
	res result[T],
	fallback T,
) (value T, ok bool) {
	s.observeBreaker(ctx, res.err)
	if res.err == nil {
		return res.value, true
	}

	if s.metrics != nil {
		s.metrics.IncrementEventLogErrors(op)
	}
	span.AddEvent("fail_open", attribute.String("op", op))
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventEventLogFailOpen,
		"address", privacy.AnonymizeIP(address),
		"action_class", class.Name,
		"decision", "admitted",
		"reason", op+" failed",
		"op", op,
		"error", res.err.Error(),
	)
	return fallback, false
}

func (s *Service) observeBreaker(ctx context.Context, err error) {
	if s.breaker == nil {
		return
	}
	change := s.breaker.Observe(err)
	switch {
	case change.Opened:
		if s.metrics != nil {
			s.metrics.SetCircuitOpen(true)
		}
		observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventCircuitOpened,
			"circuit", s.breaker.Name(),
			"decision", "degraded",
		)
	case change.Closed:
		if s.metrics != nil {
			s.metrics.SetCircuitOpen(false)
		}
		observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventCircuitClosed,
			"circuit", s.breaker.Name(),
			"decision", "recovered",
		)
	}
}

func (s *Service) recordDecision(class, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDecision(class, outcome)
	}
}
