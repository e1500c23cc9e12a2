package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision outcomes.
const (
	OutcomeAdmitted   = "admitted"
	OutcomeRejected   = "rejected"
	OutcomeBypassed   = "bypassed"
	OutcomeFailedOpen = "failed_open"
	OutcomeShed       = "shed"
)

// Event-log operations.
const (
	OpCount  = "count"
	OpRecord = "record"
)

type Metrics struct {
	DecisionsTotal           *prometheus.CounterVec
	EventLogErrorsTotal      *prometheus.CounterVec
	EventLogDurationSeconds  *prometheus.HistogramVec
	EventLogCircuitOpen      prometheus.Gauge
	RetentionRunsTotal       *prometheus.CounterVec
	RetentionEventsDeleted   prometheus.Counter
	RetentionDurationSeconds prometheus.Histogram
}

// New registers the metrics on the default registry. Call once per process.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confide_ratelimit_decisions_total",
			Help: "Admission decisions by action class and outcome",
		}, []string{"class", "outcome"}),
		EventLogErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confide_ratelimit_event_log_errors_total",
			Help: "Event-log calls that failed and were folded to admission",
		}, []string{"op"}),
		EventLogDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confide_ratelimit_event_log_duration_seconds",
			Help:    "Latency of event-log calls",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		EventLogCircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "confide_ratelimit_event_log_circuit_open",
			Help: "1 while the event-log circuit is open",
		}),
		RetentionRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confide_ratelimit_retention_runs_total",
			Help: "Total number of retention runs",
		}, []string{"status"}),
		RetentionEventsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "confide_ratelimit_retention_events_deleted_total",
			Help: "Total number of expired action events deleted by the retention worker",
		}),
		RetentionDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "confide_ratelimit_retention_duration_seconds",
			Help: "Duration of retention runs in seconds",
		}),
	}
}

func (m *Metrics) RecordDecision(class, outcome string) {
	m.DecisionsTotal.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementEventLogErrors(op string) {
	m.EventLogErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveEventLogDuration(op string, durationSeconds float64) {
	m.EventLogDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.EventLogCircuitOpen.Set(1)
		return
	}
	m.EventLogCircuitOpen.Set(0)
}

func (m *Metrics) IncrementRetentionRuns(status string) {
	m.RetentionRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementRetentionDeleted(count int) {
	m.RetentionEventsDeleted.Add(float64(count))
}

func (m *Metrics) ObserveRetentionDuration(durationSeconds float64) {
	m.RetentionDurationSeconds.Observe(durationSeconds)
}
