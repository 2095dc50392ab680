// Package runtime hosts the session engine: the room manager, the
// event broadcaster with delta batching, and the supervised background
// workers. It orchestrates the system without containing game rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"table-lab/contract"
	"table-lab/domain"
	"table-lab/domain/event"
	"table-lab/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// deliveryQueueSize bounds the backlog of one subscriber before
// further events are dropped and counted as failures.
const deliveryQueueSize = 64

type queuedEvent struct {
	ctx context.Context
	e   event.Event
}

// Subscription is one registered interest in a room's events. Each
// subscription owns a delivery goroutine draining queue, so events
// reach a subscriber in the order they were broadcast.
type Subscription struct {
	ID         uuid.UUID
	RoomID     domain.RoomID
	UserID     string // empty for anonymous broadcast-only subscriptions
	filters    map[event.Type]struct{}
	handler    contract.EventHandler
	queue      chan queuedEvent
	done       chan struct{}
	CreatedAt  time.Time
	lastActive time.Time
}

func (s *Subscription) wants(t event.Type) bool {
	if len(s.filters) == 0 {
		return true
	}
	_, ok := s.filters[t]
	return ok
}

// Broadcaster decouples "room state changed" from "clients are
// notified". Index mutation (subscribe/unsubscribe/sweep) always
// completes under the lock with no suspension point; deliveries run
// on each subscription's own queue, so a slow handler never blocks
// the emitter or a sibling subscriber, and one subscriber sees
// batches in the order they were emitted.
type Broadcaster struct {
	mu       sync.RWMutex
	log      *slog.Logger
	validate *validator.Validate

	subs   map[uuid.UUID]*Subscription
	byRoom map[domain.RoomID]map[uuid.UUID]*Subscription
	byUser map[string]map[uuid.UUID]struct{}

	perUserLimit    int
	deliveryTimeout time.Duration

	delivered atomic.Uint64
	failures  atomic.Uint64
}

func NewBroadcaster(log *slog.Logger, perUserLimit int, deliveryTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		log:             log,
		validate:        validator.New(),
		subs:            make(map[uuid.UUID]*Subscription),
		byRoom:          make(map[domain.RoomID]map[uuid.UUID]*Subscription),
		byUser:          make(map[string]map[uuid.UUID]struct{}),
		perUserLimit:    perUserLimit,
		deliveryTimeout: deliveryTimeout,
	}
}

// Subscribe registers a handler for a room, optionally filtered by
// event types (none means all). A user at their subscription limit is
// refused.
func (b *Broadcaster) Subscribe(roomID domain.RoomID, userID string, types []event.Type, h contract.EventHandler) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userID != "" && b.perUserLimit > 0 && len(b.byUser[userID]) >= b.perUserLimit {
		return uuid.Nil, fmt.Errorf("%w: %s", errors.ErrSubscriptionLimit, userID)
	}

	var filters map[event.Type]struct{}
	if len(types) > 0 {
		filters = make(map[event.Type]struct{}, len(types))
		for _, t := range types {
			if !t.Valid() {
				return uuid.Nil, fmt.Errorf("%w: %s", errors.ErrUnknownEventType, t)
			}
			filters[t] = struct{}{}
		}
	}

	now := time.Now().UTC()
	sub := &Subscription{
		ID:         uuid.New(),
		RoomID:     roomID,
		UserID:     userID,
		filters:    filters,
		handler:    h,
		queue:      make(chan queuedEvent, deliveryQueueSize),
		done:       make(chan struct{}),
		CreatedAt:  now,
		lastActive: now,
	}
	go b.pump(sub)

	b.subs[sub.ID] = sub
	if _, ok := b.byRoom[roomID]; !ok {
		b.byRoom[roomID] = make(map[uuid.UUID]*Subscription)
	}
	b.byRoom[roomID][sub.ID] = sub
	if userID != "" {
		if _, ok := b.byUser[userID]; !ok {
			b.byUser[userID] = make(map[uuid.UUID]struct{})
		}
		b.byUser[userID][sub.ID] = struct{}{}
	}
	return sub.ID, nil
}

// Unsubscribe removes a subscription from every index. Removing twice
// is a no-op returning false; an in-flight delivery is never
// interrupted.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(id)
}

func (b *Broadcaster) removeLocked(id uuid.UUID) bool {
	sub, ok := b.subs[id]
	if !ok {
		return false
	}
	delete(b.subs, id)
	close(sub.done)

	if room, ok := b.byRoom[sub.RoomID]; ok {
		delete(room, id)
		if len(room) == 0 {
			delete(b.byRoom, sub.RoomID)
		}
	}
	if sub.UserID != "" {
		if user, ok := b.byUser[sub.UserID]; ok {
			delete(user, id)
			if len(user) == 0 {
				delete(b.byUser, sub.UserID)
			}
		}
	}
	return true
}

// Broadcast validates the event and delivers it to every matching
// subscription of the room. Each delivery is independent: a handler
// error or panic is counted and logged, never propagated to the
// caller or to sibling subscribers.
func (b *Broadcaster) Broadcast(ctx context.Context, roomID domain.RoomID, e event.Event) error {
	if err := b.validateEvent(e); err != nil {
		return err
	}
	for _, sub := range b.snapshot(roomID, "", e.Type) {
		b.deliver(ctx, sub, e)
	}
	return nil
}

// BroadcastToUser scopes delivery to one user's subscriptions within
// the room, for private or whisper-style events.
func (b *Broadcaster) BroadcastToUser(ctx context.Context, roomID domain.RoomID, userID string, e event.Event) error {
	if err := b.validateEvent(e); err != nil {
		return err
	}
	for _, sub := range b.snapshot(roomID, userID, e.Type) {
		b.deliver(ctx, sub, e)
	}
	return nil
}

func (b *Broadcaster) validateEvent(e event.Event) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %s", errors.ErrUnknownEventType, e.Type)
	}
	if err := b.validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err)
	}
	if e.Payload != nil && reflect.ValueOf(e.Payload).Kind() == reflect.Struct {
		if err := b.validate.Struct(e.Payload); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err)
		}
	}
	return nil
}

// snapshot copies the matching subscriptions under the read lock so
// dispatch tolerates a concurrent unsubscribe.
func (b *Broadcaster) snapshot(roomID domain.RoomID, userID string, t event.Type) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	room, ok := b.byRoom[roomID]
	if !ok {
		return nil
	}
	out := make([]*Subscription, 0, len(room))
	for _, sub := range room {
		if userID != "" && sub.UserID != userID {
			continue
		}
		if sub.wants(t) {
			out = append(out, sub)
		}
	}
	return out
}

// deliver enqueues without blocking. A subscriber whose queue is full
// loses the event, counted as a failure; the emitter never waits.
func (b *Broadcaster) deliver(ctx context.Context, sub *Subscription, e event.Event) {
	select {
	case <-sub.done:
		return
	default:
	}
	select {
	case sub.queue <- queuedEvent{ctx: ctx, e: e}:
	default:
		b.failures.Add(1)
		b.log.Warn("Subscriber queue full, event dropped", "subscription", sub.ID, "event", e.Type)
	}
}

// pump drains one subscription's queue until it is removed, invoking
// the handler for one event at a time.
func (b *Broadcaster) pump(sub *Subscription) {
	for {
		select {
		case <-sub.done:
			return
		case q := <-sub.queue:
			b.handleOne(sub, q)
		}
	}
}

func (b *Broadcaster) handleOne(sub *Subscription, q queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1)
			b.log.Error("Subscriber handler panicked", "subscription", sub.ID, "event", q.e.Type, "panic", r)
		}
	}()

	dctx, cancel := context.WithTimeout(q.ctx, b.deliveryTimeout)
	defer cancel()

	if err := sub.handler.Handle(dctx, q.e); err != nil {
		b.failures.Add(1)
		b.log.Warn("Subscriber delivery failed", "subscription", sub.ID, "event", q.e.Type, "err", err)
		return
	}
	b.delivered.Add(1)

	b.mu.Lock()
	sub.lastActive = time.Now().UTC()
	b.mu.Unlock()
}

// DropRoom removes every subscription for a room, used when the room
// is evicted so no orphaned subscriptions linger.
func (b *Broadcaster) DropRoom(roomID domain.RoomID) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.byRoom[roomID]
	if !ok {
		return 0
	}
	dropped := 0
	for id := range room {
		if b.removeLocked(id) {
			dropped++
		}
	}
	return dropped
}

// SweepIdle drops subscriptions that have not seen a delivery within
// the timeout and reclaims empty index entries.
func (b *Broadcaster) SweepIdle(timeout time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().UTC().Add(-timeout)
	dropped := 0
	for id, sub := range b.subs {
		if sub.lastActive.Before(cutoff) {
			if b.removeLocked(id) {
				dropped++
			}
		}
	}
	return dropped
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) DeliveredCount() uint64 { return b.delivered.Load() }
func (b *Broadcaster) FailureCount() uint64   { return b.failures.Load() }
