package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "comply/pkg/domain"
	"comply/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherEmit(t *testing.T) {
	t.Run("stamps timestamp and actor from the request context", func(t *testing.T) {
		pub := NewPublisher(discardLogger(), 4)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithCaller(requestcontext.WithTime(context.Background(), now), "svc-sync")

		pub.Emit(ctx, Event{Action: ActionScoreUpdated, OrgID: "org-1"})

		event := <-pub.Inbox()
		assert.Equal(t, now, event.Timestamp)
		assert.Equal(t, "svc-sync", event.Actor)
	})

	t.Run("preset timestamp and actor are kept", func(t *testing.T) {
		pub := NewPublisher(discardLogger(), 4)
		stamped := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		pub.Emit(context.Background(), Event{Action: ActionEvidenceSync, Timestamp: stamped, Actor: "batch"})

		event := <-pub.Inbox()
		assert.Equal(t, stamped, event.Timestamp)
		assert.Equal(t, "batch", event.Actor)
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		pub := NewPublisher(discardLogger(), 1)

		done := make(chan struct{})
		go func() {
			pub.Emit(context.Background(), Event{Action: "first"})
			pub.Emit(context.Background(), Event{Action: "second"})
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("emit blocked on a full buffer")
		}
		event := <-pub.Inbox()
		assert.Equal(t, "first", event.Action)
	})
}

func TestWorkerRun(t *testing.T) {
	t.Run("drains events into the store", func(t *testing.T) {
		store := NewMemoryStore()
		pub := NewPublisher(discardLogger(), 16)
		worker := NewWorker(store, pub.Inbox(), discardLogger())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = worker.Run(ctx) }()

		for i := 0; i < 3; i++ {
			pub.Emit(ctx, Event{OrgID: "org-w", Action: ActionEvidenceSync})
		}

		require.Eventually(t, func() bool {
			events, err := store.ListByOrg(context.Background(), id.OrgID("org-w"), 0)
			return err == nil && len(events) == 3
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("stops when the context is canceled", func(t *testing.T) {
		worker := NewWorker(NewMemoryStore(), make(chan Event), discardLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, worker.Run(ctx), context.Canceled)
	})
}

func TestMemoryStoreListByOrg(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Event{OrgID: "org-list", Action: ActionScoreUpdated}))
	}
	require.NoError(t, store.Append(ctx, Event{OrgID: "org-other", Action: ActionScoreUpdated}))

	events, err := store.ListByOrg(ctx, id.OrgID("org-list"), 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
