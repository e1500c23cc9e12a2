package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "confide/pkg/domain-errors"
	audit "confide/pkg/platform/audit"
	"confide/pkg/platform/audit/store/memory"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) Append(_ context.Context, _ audit.Event) error {
	<-s.release
	return nil
}

func TestPublisher_EmitStoresEventWithTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventRateLimited), Subject: "1.2.3.0"})
	require.NoError(t, err)

	events := store.ListByAction(string(audit.EventRateLimited))
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "1.2.3.0", events[0].Subject)
}

func TestPublisher_SyncPropagatesStoreError(t *testing.T) {
	pub := NewPublisher(&failingStore{err: errors.New("broker down")})
	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	for range 5 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventEventLogFailOpen)}))
	}
	pub.Close()

	assert.Len(t, store.ListAll(), 5)
}

func TestPublisher_AsyncFullBufferDropsEvent(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer func() {
		close(store.release)
		pub.Close()
	}()

	// the worker blocks on the first event, so the one-slot buffer fills up
	dropped := 0
	for range 10 {
		if err := pub.Emit(context.Background(), audit.Event{Action: "x"}); dErrors.HasCode(err, dErrors.CodeUnavailable) {
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 8)
}
