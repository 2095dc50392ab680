package runtime

import (
	"log/slog"
	"testing"
	"time"

	"table-lab/domain"
	"table-lab/domain/event"
	"table-lab/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newBatchFixture(t *testing.T, flushDelay time.Duration, maxBatch, maxPending int) (*DeltaBatcher, *observability.TimerRegistry, *recordingHandler, domain.RoomID) {
	t.Helper()
	log := slog.Default()
	timers := observability.NewTimerRegistry()
	broadcaster := NewBroadcaster(log, 10, time.Second)
	batcher := NewDeltaBatcher(log, broadcaster, timers, flushDelay, maxBatch, maxPending)

	roomID := domain.RoomID(uuid.NewString())
	handler := &recordingHandler{}
	_, err := broadcaster.Subscribe(roomID, "viewer", nil, handler)
	require.NoError(t, err)
	return batcher, timers, handler, roomID
}

func turnDelta(entity string) event.StateDelta {
	return event.NewDelta(event.DeltaTurn, map[string]any{"entity": entity})
}

func receivedBatches(h *recordingHandler) []event.DeltaBatch {
	var out []event.DeltaBatch
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if batch, ok := e.Payload.(event.DeltaBatch); ok {
			out = append(out, batch)
		}
	}
	return out
}

func TestDeltaBatcher_FlushesOnSizeCap(t *testing.T) {
	req := require.New(t)
	batcher, timers, handler, roomID := newBatchFixture(t, time.Hour, 3, 100)

	batcher.Enqueue(roomID, "interaction-1", turnDelta("a"))
	batcher.Enqueue(roomID, "interaction-1", turnDelta("b"))
	req.Equal(1, batcher.PendingRooms())

	batcher.Enqueue(roomID, "interaction-1", turnDelta("c"))

	req.Eventually(func() bool { return len(receivedBatches(handler)) == 1 }, time.Second, 5*time.Millisecond)
	req.Len(receivedBatches(handler)[0].Deltas, 3)
	req.Equal(0, batcher.PendingRooms())
	req.Equal(0, timers.Outstanding())
}

func TestDeltaBatcher_FlushesOnTimer(t *testing.T) {
	req := require.New(t)
	batcher, timers, handler, roomID := newBatchFixture(t, 25*time.Millisecond, 100, 100)

	batcher.Enqueue(roomID, "interaction-1", turnDelta("a"))
	batcher.Enqueue(roomID, "interaction-1", turnDelta("b"))
	req.Equal(1, timers.Outstanding())

	req.Eventually(func() bool { return len(receivedBatches(handler)) == 1 }, time.Second, 5*time.Millisecond)
	req.Len(receivedBatches(handler)[0].Deltas, 2)
	req.Equal(0, timers.Outstanding())
}

func TestDeltaBatcher_OverflowDropsOldest(t *testing.T) {
	req := require.New(t)
	batcher, _, handler, roomID := newBatchFixture(t, 25*time.Millisecond, 100, 5)

	for _, entity := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		batcher.Enqueue(roomID, "interaction-1", turnDelta(entity))
	}

	req.Eventually(func() bool { return len(receivedBatches(handler)) == 1 }, time.Second, 5*time.Millisecond)

	batch := receivedBatches(handler)[0]
	req.Len(batch.Deltas, 5)
	// The oldest deltas went overboard, the newest survived
	first := batch.Deltas[0].Changes.(map[string]any)
	last := batch.Deltas[4].Changes.(map[string]any)
	req.Equal("d", first["entity"])
	req.Equal("h", last["entity"])
}

func TestDeltaBatcher_CancelRoomDiscardsPendingFlush(t *testing.T) {
	req := require.New(t)
	batcher, timers, handler, roomID := newBatchFixture(t, 25*time.Millisecond, 100, 100)

	batcher.Enqueue(roomID, "interaction-1", turnDelta("a"))
	batcher.Enqueue(roomID, "interaction-1", turnDelta("b"))

	req.Equal(2, batcher.CancelRoom(roomID))
	req.Equal(0, batcher.PendingRooms())
	req.Equal(0, timers.Outstanding())

	// The armed timer was stopped, nothing arrives
	time.Sleep(60 * time.Millisecond)
	req.Empty(receivedBatches(handler))

	// Cancelling again is a no-op
	req.Equal(0, batcher.CancelRoom(roomID))
}

func TestDeltaBatcher_RoomsBatchIndependently(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	timers := observability.NewTimerRegistry()
	broadcaster := NewBroadcaster(log, 10, time.Second)
	batcher := NewDeltaBatcher(log, broadcaster, timers, 25*time.Millisecond, 100, 100)

	roomA := domain.RoomID(uuid.NewString())
	roomB := domain.RoomID(uuid.NewString())
	handlerA := &recordingHandler{}
	handlerB := &recordingHandler{}
	_, err := broadcaster.Subscribe(roomA, "viewer-a", nil, handlerA)
	req.NoError(err)
	_, err = broadcaster.Subscribe(roomB, "viewer-b", nil, handlerB)
	req.NoError(err)

	batcher.Enqueue(roomA, "interaction-a", turnDelta("a1"))
	batcher.Enqueue(roomA, "interaction-a", turnDelta("a2"))
	batcher.Enqueue(roomB, "interaction-b", turnDelta("b1"))
	req.Equal(2, batcher.PendingRooms())

	req.Eventually(func() bool {
		return len(receivedBatches(handlerA)) == 1 && len(receivedBatches(handlerB)) == 1
	}, time.Second, 5*time.Millisecond)

	req.Len(receivedBatches(handlerA)[0].Deltas, 2)
	req.Len(receivedBatches(handlerB)[0].Deltas, 1)
	req.Equal("interaction-a", handlerA.last().InteractionID)
	req.Equal("interaction-b", handlerB.last().InteractionID)
}

// Guards the flush latency promise: a lone delta reaches subscribers
// within a small multiple of the configured delay.
func TestDeltaBatcher_SingleDeltaFlushLatency(t *testing.T) {
	req := require.New(t)
	batcher, _, handler, roomID := newBatchFixture(t, 30*time.Millisecond, 100, 100)

	start := time.Now()
	batcher.Enqueue(roomID, "interaction-1", turnDelta("a"))

	req.Eventually(func() bool { return len(receivedBatches(handler)) == 1 }, time.Second, time.Millisecond)
	req.Less(time.Since(start), 500*time.Millisecond)
}
