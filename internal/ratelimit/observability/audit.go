// Package observability provides audit logging and tracing helpers for the ratelimit module.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"confide/pkg/platform/audit"
	"confide/pkg/requestcontext"
)

// AuditPublisher emits audit events for abuse-control outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit event and forwards it to the publisher if one is set.
// Attributes must never carry a raw client address; pass the anonymized form
// under "address".
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", string(event), "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}

	decision := extractString(attrList, "decision")
	if decision == "" {
		decision = "admitted"
	}

	if err := publisher.Emit(ctx, audit.Event{
		Timestamp:   requestcontext.Now(ctx),
		Action:      string(event),
		Subject:     extractString(attrList, "address"),
		ActionClass: extractString(attrList, "action_class"),
		Decision:    decision,
		Reason:      extractString(attrList, "reason"),
		RequestID:   requestID,
	}); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

// extractString returns the value following key in a slog-style key/value list.
func extractString(attrList []any, key string) string {
	for i := 0; i+1 < len(attrList); i += 2 {
		k, ok := attrList[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrList[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
