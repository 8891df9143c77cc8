package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryPublishBoundedAndNonBlocking(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.TryPublish(Event{Kind: EventStart}))
	require.NoError(t, q.TryPublish(Event{Kind: EventStop}))

	err := q.TryPublish(Event{Kind: EventFrame})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPublishAfterClose(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	assert.ErrorIs(t, q.TryPublish(Event{Kind: EventStart}), ErrQueueClosed)

	// Close is idempotent.
	q.Close()
}

func TestRunDeliversInOrder(t *testing.T) {
	q := NewQueue(8)
	require.NoError(t, q.TryPublish(Event{Kind: EventStart}))
	require.NoError(t, q.TryPublish(Event{Kind: EventFrame, Frame: []byte("a")}))
	require.NoError(t, q.TryPublish(Event{Kind: EventStop}))
	q.Close()

	var got []EventKind
	q.Run(context.Background(), func(e Event) {
		got = append(got, e.Kind)
	})
	assert.Equal(t, []EventKind{EventStart, EventFrame, EventStop}, got)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(Event) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}
