package testutil

import (
	"sync"
	"time"
)

// TestAddresses are stable source addresses for tests.
var TestAddresses = struct {
	Primary string
	Other   string
	IPv6    string
}{
	Primary: "1.2.3.4",
	Other:   "5.6.7.8",
	IPv6:    "2001:db8::42",
}

// Epoch is the fixed start time used by ManualClock.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ManualClock is a thread-safe clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
