package audit

import (
	"context"
	"time"
)

// Event is emitted from the rate limiter to capture abuse-control outcomes. Keep
// it transport-agnostic so sinks can fan out. Subject never holds a raw client
// address; callers anonymize first.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Subject     string    `json:"subject"`
	ActionClass string    `json:"action_class,omitempty"`
	Decision    string    `json:"decision"`
	Reason      string    `json:"reason,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventRateLimited      AuditEvent = "action_rate_limited"
	EventEventLogFailOpen AuditEvent = "event_log_fail_open"
	EventCircuitOpened    AuditEvent = "event_log_circuit_opened"
	EventCircuitClosed    AuditEvent = "event_log_circuit_closed"
)

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
