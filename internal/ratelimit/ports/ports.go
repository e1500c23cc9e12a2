// Package ports defines the interfaces the ratelimit module consumes.
package ports

import (
	"context"
	"time"

	"confide/internal/ratelimit/models"
)

// EventLog is the durable, append-only log of admitted actions.
//
// CountSince and Record are separate calls. Two concurrent requests from one
// address can both observe a sub-quota count before either records, so the
// quota can be exceeded by the number of in-flight requests. Closing that gap
// needs a single conditional insert on the store side.
type EventLog interface {
	// CountSince returns how many events exist for address and class with
	// occurred_at >= since. Only a count is transferred, never rows.
	CountSince(ctx context.Context, address string, class models.ClassName, since time.Time) (int, error)

	// Record appends one event. The store assigns occurred_at.
	Record(ctx context.Context, address string, class models.ClassName) error
}

// Pruner deletes events that can no longer affect any window.
// Only self-hosted backends implement it; the admission path never calls it.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}
