package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"confide/internal/ratelimit/models"
)

// InMemoryStore keeps the event log in process memory.
// Suitable for local development and tests; state is lost on restart and is
// not shared between instances.
type InMemoryStore struct {
	mu      sync.RWMutex
	buckets map[string][]models.ActionEvent // EventKey.String() -> events in insertion order
	now     func() time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the timestamp source used by Record.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemory creates an empty in-memory event log.
func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		buckets: make(map[string][]models.ActionEvent),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CountSince counts events for the bucket with OccurredAt >= since.
func (s *InMemoryStore) CountSince(_ context.Context, address string, class models.ClassName, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ev := range s.buckets[models.NewEventKey(address, class).String()] {
		if !ev.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Record appends one event stamped with the store clock.
func (s *InMemoryStore) Record(_ context.Context, address string, class models.ClassName) error {
	ev := models.ActionEvent{
		ID:            uuid.NewString(),
		SourceAddress: address,
		ActionClass:   class,
		OccurredAt:    s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NewEventKey(address, class).String()
	s.buckets[key] = append(s.buckets[key], ev)
	return nil
}

// PruneBefore deletes events with OccurredAt < cutoff and returns how many were removed.
func (s *InMemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, evs := range s.buckets {
		kept := evs[:0]
		for _, ev := range evs {
			if ev.OccurredAt.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, ev)
		}
		if len(kept) == 0 {
			delete(s.buckets, key)
			continue
		}
		s.buckets[key] = kept
	}
	return deleted, nil
}

// Seed inserts an event with an explicit timestamp. Used by tests and the
// feature suite to set up prior history.
func (s *InMemoryStore) Seed(address string, class models.ClassName, occurredAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NewEventKey(address, class).String()
	s.buckets[key] = append(s.buckets[key], models.ActionEvent{
		ID:            uuid.NewString(),
		SourceAddress: address,
		ActionClass:   class,
		OccurredAt:    occurredAt,
	})
}

// Events returns a copy of every stored event for one bucket.
func (s *InMemoryStore) Events(address string, class models.ClassName) []models.ActionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.buckets[models.NewEventKey(address, class).String()]
	out := make([]models.ActionEvent, len(evs))
	copy(out, evs)
	return out
}

// Len returns the total number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, evs := range s.buckets {
		n += len(evs)
	}
	return n
}
