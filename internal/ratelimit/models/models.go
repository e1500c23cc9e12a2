package models

import (
	"math"
	"time"
)

// ClassName identifies a RateClass.
type ClassName string

const (
	// ClassPost: new confessions, listings, matchmaker profiles.
	ClassPost ClassName = "post"
	// ClassComment: replies under any post.
	ClassComment ClassName = "comment"
	// ClassReaction: karma votes and emoji reactions; also the fallback for unrecognized actions.
	ClassReaction ClassName = "reaction"
)

func (c ClassName) String() string {
	return string(c)
}

// RateClass is a named quota: at most MaxCount admitted actions per trailing Window.
type RateClass struct {
	Name     ClassName     `validate:"required"`
	Window   time.Duration `validate:"gt=0"`
	MaxCount int           `validate:"gt=0"`
}

// WindowStart returns the inclusive lower bound of the window ending at now.
func (c RateClass) WindowStart(now time.Time) time.Time {
	return now.Add(-c.Window)
}

// ActionEvent is one admitted action. Events are append-only.
type ActionEvent struct {
	ID            string    `json:"id"`
	SourceAddress string    `json:"source_address"`
	ActionClass   ClassName `json:"action_class"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AdmissionDecision is the per-request outcome of the limiter. It is never persisted.
type AdmissionDecision struct {
	Class         RateClass
	SourceAddress string
	WindowStart   time.Time
	ObservedCount int
	Admitted      bool

	// Bypassed is set when the caller address is unknown and nothing was checked.
	Bypassed bool
	// FailedOpen is set when an event-log failure was folded into an admission.
	FailedOpen bool
	// Shed is set when the address sent checks faster than the per-address
	// call budget; the check is rejected without counting.
	Shed bool
}

// Admit reports whether one more action fits under maxCount. A count equal to maxCount is rejected.
func Admit(observed, maxCount int) bool {
	return observed < maxCount
}

// Remaining is the quota left after this decision, never negative.
func (d AdmissionDecision) Remaining() int {
	if d.Bypassed {
		return d.Class.MaxCount
	}
	used := d.ObservedCount
	if d.Admitted {
		used++
	}
	return max(d.Class.MaxCount-used, 0)
}

// RetryAfterSeconds is the window length rounded up to whole seconds.
// The oldest event is not fetched, so this is an upper bound. A shed check
// may retry after one second.
func (d AdmissionDecision) RetryAfterSeconds() int {
	if d.Admitted {
		return 0
	}
	if d.Shed {
		return 1
	}
	return int(math.Ceil(d.Class.Window.Seconds()))
}
