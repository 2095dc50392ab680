package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"table-lab/contract"
	"table-lab/domain"
	"table-lab/domain/event"

	"github.com/google/uuid"
)

type pendingBatch struct {
	interactionID string
	deltas        []event.StateDelta
	timer         *time.Timer
	timerHandle   uuid.UUID
}

// DeltaBatcher coalesces frequent state deltas into one STATE_DELTA
// event per room. The first delta queued for a room arms a flush
// timer; the queue flushes when the timer fires or when it reaches the
// size cap, whichever comes first. That bounds both the latency of any
// single delta and the burst volume a fast-mutating room can emit.
type DeltaBatcher struct {
	mu sync.Mutex
	// emitMu serializes flush emissions so batches for a room are
	// delivered in the order their triggers fired.
	emitMu sync.Mutex

	log         *slog.Logger
	broadcaster *Broadcaster
	timers      contract.TimerTracker

	flushDelay time.Duration
	maxBatch   int
	maxPending int

	pending map[domain.RoomID]*pendingBatch
	dropped uint64
}

func NewDeltaBatcher(log *slog.Logger, broadcaster *Broadcaster, timers contract.TimerTracker,
	flushDelay time.Duration, maxBatch, maxPending int) *DeltaBatcher {
	return &DeltaBatcher{
		log:         log,
		broadcaster: broadcaster,
		timers:      timers,
		flushDelay:  flushDelay,
		maxBatch:    maxBatch,
		maxPending:  maxPending,
		pending:     make(map[domain.RoomID]*pendingBatch),
	}
}

// Enqueue appends a delta to the room's pending queue. Overflow past
// maxPending drops the oldest queued delta, keeping the queue bounded
// instead of growing with a runaway producer.
func (b *DeltaBatcher) Enqueue(roomID domain.RoomID, interactionID string, delta event.StateDelta) {
	b.mu.Lock()

	p, ok := b.pending[roomID]
	if !ok {
		p = &pendingBatch{interactionID: interactionID}
		p.timerHandle = b.timers.Track("batch-flush:" + string(roomID))
		p.timer = time.AfterFunc(b.flushDelay, func() {
			b.flushRoom(roomID)
		})
		b.pending[roomID] = p
	}

	p.deltas = append(p.deltas, delta)
	if b.maxPending > 0 && len(p.deltas) > b.maxPending {
		over := len(p.deltas) - b.maxPending
		p.deltas = p.deltas[over:]
		b.dropped += uint64(over)
		b.log.Warn("Delta queue overflow, dropping oldest", "room", roomID, "dropped", over)
	}

	if b.maxBatch > 0 && len(p.deltas) >= b.maxBatch {
		b.emitLocked(roomID, p)
		return // emitLocked released the lock
	}
	b.mu.Unlock()
}

// flushRoom is the timer path.
func (b *DeltaBatcher) flushRoom(roomID domain.RoomID) {
	b.mu.Lock()
	p, ok := b.pending[roomID]
	if !ok {
		b.mu.Unlock()
		return
	}
	b.emitLocked(roomID, p)
}

// emitLocked wraps the pending deltas into one batch event and
// broadcasts it. Called with b.mu held; unlocks it before the
// broadcast so no batcher lock is ever held across delivery.
func (b *DeltaBatcher) emitLocked(roomID domain.RoomID, p *pendingBatch) {
	delete(b.pending, roomID)
	p.timer.Stop()
	b.timers.Release(p.timerHandle)

	batch := event.DeltaBatch{
		BatchID:   uuid.New(),
		Timestamp: time.Now().UTC(),
		Deltas:    p.deltas,
	}

	b.emitMu.Lock()
	b.mu.Unlock()
	defer b.emitMu.Unlock()

	evt := event.New(event.StateDeltaBatch, p.interactionID, batch)
	if err := b.broadcaster.Broadcast(context.Background(), roomID, evt); err != nil {
		b.log.Error("Delta batch broadcast failed", "room", roomID, "err", err)
	}
	b.log.Debug("Delta batch flushed", "room", roomID, "size", len(batch.Deltas), "batch", batch.BatchID)
}

// CancelRoom stops the room's pending flush timer and discards its
// queued deltas. Called on room eviction.
func (b *DeltaBatcher) CancelRoom(roomID domain.RoomID) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[roomID]
	if !ok {
		return 0
	}
	delete(b.pending, roomID)
	p.timer.Stop()
	b.timers.Release(p.timerHandle)
	return len(p.deltas)
}

// PendingRooms reports how many rooms currently hold an unflushed
// batch.
func (b *DeltaBatcher) PendingRooms() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
