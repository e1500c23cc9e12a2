package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/ratelimit/models"
	"confide/pkg/platform/audit"
	"confide/pkg/requestcontext"
)

type capturePublisher struct {
	events []audit.Event
	err    error
}

func (p *capturePublisher) Emit(_ context.Context, event audit.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestLogAudit_LogsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	pub := &capturePublisher{}
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")

	LogAudit(ctx, logger, pub, audit.EventRateLimited,
		"address", "1.2.3.0",
		"action_class", models.ClassComment,
		"decision", "rejected",
		"observed_count", 10,
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "action_rate_limited", line["event"])
	assert.Equal(t, "audit", line["log_type"])
	assert.Equal(t, "req-1", line["request_id"])

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "action_rate_limited", ev.Action)
	assert.Equal(t, "1.2.3.0", ev.Subject)
	assert.Equal(t, "comment", ev.ActionClass)
	assert.Equal(t, "rejected", ev.Decision)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestLogAudit_PublisherFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	pub := &capturePublisher{err: errors.New("buffer full")}

	LogAudit(context.Background(), logger, pub, audit.EventEventLogFailOpen, "address", "unknown")

	assert.Contains(t, buf.String(), "failed to emit audit event")
	require.Len(t, pub.events, 1)
	assert.Equal(t, "admitted", pub.events[0].Decision)
}

func TestLogAudit_NilSinksAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogAudit(context.Background(), nil, nil, audit.EventCircuitOpened)
	})
}
