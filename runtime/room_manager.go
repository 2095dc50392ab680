package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"table-lab/domain"
	"table-lab/domain/event"
	"table-lab/errors"
	"table-lab/moderation"

	"github.com/samber/lo"
)

// RoomManager is the single authority over which rooms exist. It
// routes every collaborator-facing operation to the target room and
// publishes the resulting events.
type RoomManager struct {
	mu  sync.RWMutex
	log *slog.Logger

	rooms         map[domain.RoomID]*domain.Room
	byInteraction map[string]domain.RoomID

	handlers    domain.HandlerRegistry
	broadcaster *Broadcaster
	batcher     *DeltaBatcher
	moderator   *moderation.Moderator

	maxChatLog int

	createHooks []func(*domain.Room)
	changeHooks []func(*domain.Room)
	retireHooks []func(*domain.Room)
}

func NewRoomManager(log *slog.Logger, handlers domain.HandlerRegistry,
	broadcaster *Broadcaster, batcher *DeltaBatcher, moderator *moderation.Moderator,
	maxChatLog int) *RoomManager {
	return &RoomManager{
		log:           log,
		rooms:         make(map[domain.RoomID]*domain.Room),
		byInteraction: make(map[string]domain.RoomID),
		handlers:      handlers,
		broadcaster:   broadcaster,
		batcher:       batcher,
		moderator:     moderator,
		maxChatLog:    maxChatLog,
	}
}

// OnCreate registers a hook run after every room creation. The memory
// layer uses it to track counts and seed the optimizer.
func (m *RoomManager) OnCreate(fn func(*domain.Room)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createHooks = append(m.createHooks, fn)
}

// OnChange registers a hook run after every published room event, the
// point where room state has just changed. The optimizer hangs its
// throttled compaction pass off this.
func (m *RoomManager) OnChange(fn func(*domain.Room)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeHooks = append(m.changeHooks, fn)
}

// OnRetire registers a hook run after a room is evicted or completed.
func (m *RoomManager) OnRetire(fn func(*domain.Room)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retireHooks = append(m.retireHooks, fn)
}

// CreateRoom fails when a room already exists for the interaction;
// lookup-or-create is the caller's job, not implicit here.
func (m *RoomManager) CreateRoom(interactionID, gmUserID string, initial domain.GameState) (*domain.Room, error) {
	m.mu.Lock()
	if _, ok := m.byInteraction[interactionID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", errors.ErrRoomExists, interactionID)
	}

	room := domain.NewRoom(interactionID, gmUserID, initial, m.handlers)
	m.rooms[room.ID] = room
	m.byInteraction[interactionID] = room.ID
	hooks := slices.Clone(m.createHooks)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(room)
	}
	m.log.Info("Room created", "room", room.ID, "interaction", interactionID, "gm", gmUserID)
	return room, nil
}

func (m *RoomManager) RoomByInteraction(interactionID string) (*domain.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byInteraction[interactionID]
	if !ok {
		return nil, false
	}
	room, ok := m.rooms[id]
	return room, ok
}

func (m *RoomManager) Rooms() []*domain.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Values(m.rooms)
}

func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *RoomManager) room(interactionID string) (*domain.Room, error) {
	room, ok := m.RoomByInteraction(interactionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrRoomNotFound, interactionID)
	}
	return room, nil
}

// JoinRoom locates the room, delegates to it and announces the new
// participant.
func (m *RoomManager) JoinRoom(ctx context.Context, interactionID string, p domain.Participant) (domain.GameState, error) {
	room, err := m.room(interactionID)
	if err != nil {
		return domain.GameState{}, err
	}
	if err := room.Join(p); err != nil {
		return domain.GameState{}, err
	}

	m.publish(ctx, room, event.ParticipantJoined, event.ParticipantPayload{
		UserID: p.UserID, EntityID: p.EntityID, EntityType: p.EntityType,
	})
	m.batcher.Enqueue(room.ID, interactionID, event.NewDelta(event.DeltaParticipant, map[string]any{
		"joined": p.EntityID,
	}))
	return room.Snapshot(), nil
}

func (m *RoomManager) LeaveRoom(ctx context.Context, interactionID, userID string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	p, ok := room.ParticipantByUser(userID)
	if !ok || !room.Leave(userID) {
		return fmt.Errorf("%w: %s", errors.ErrParticipantNotFound, userID)
	}

	m.publish(ctx, room, event.ParticipantLeft, event.ParticipantPayload{
		UserID: userID, EntityID: p.EntityID, EntityType: p.EntityType,
	})
	return nil
}

// SetInitiative replaces the room's turn order (GM only). A waiting
// room with participants becomes active and the first turn starts.
func (m *RoomManager) SetInitiative(ctx context.Context, interactionID, userID string, entries []domain.InitiativeEntry) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if userID != room.GMUserID {
		return errors.ErrNotGameMaster
	}

	wasWaiting := room.Status() == domain.RoomWaiting
	if err := room.SetInitiative(entries); err != nil {
		return err
	}

	m.publish(ctx, room, event.InitiativeUpdated, event.InitiativePayload{Entries: entries})
	if wasWaiting && room.Status() == domain.RoomActive {
		st := room.Snapshot()
		if current, ok := st.CurrentEntity(); ok {
			m.publish(ctx, room, event.TurnStarted, event.TurnPayload{
				EntityID: current.EntityID, UserID: current.UserID,
				Round: st.RoundNumber, Index: st.CurrentTurnIndex,
			})
		}
	}
	return nil
}

// ProcessTurnAction validates and applies one action. On success the
// state change rides the delta batch; an `end` action additionally
// triggers the explicit turn advance, with the completed and started
// turns broadcast as discrete events.
func (m *RoomManager) ProcessTurnAction(ctx context.Context, interactionID string, a domain.TurnAction) (domain.GameState, *domain.Rejection, error) {
	room, err := m.room(interactionID)
	if err != nil {
		return domain.GameState{}, nil, err
	}

	outcome, rej := room.ProcessTurnAction(a)
	if rej != nil {
		m.log.Debug("Turn action rejected", "interaction", interactionID, "entity", a.EntityID, "code", rej.Code)
		return domain.GameState{}, rej, nil
	}

	m.batcher.Enqueue(room.ID, interactionID, event.NewDelta(event.DeltaTurn, outcome.Record))

	if outcome.TurnEnded {
		if err := m.advance(ctx, room, false); err != nil {
			return domain.GameState{}, nil, err
		}
	}
	return room.Snapshot(), nil, nil
}

// SkipTurn advances past the current entity without an action, for
// turn timeouts or a GM skip.
func (m *RoomManager) SkipTurn(ctx context.Context, interactionID, userID string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if userID != room.GMUserID {
		return errors.ErrNotGameMaster
	}
	return m.advance(ctx, room, true)
}

// BacktrackTurn is the GM's undo for a mistaken advance: the table
// returns to the previous entity and spectators see the rewind as its
// own event.
func (m *RoomManager) BacktrackTurn(ctx context.Context, interactionID, userID string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if userID != room.GMUserID {
		return errors.ErrNotGameMaster
	}

	prev, err := room.BacktrackTurn()
	if err != nil {
		return err
	}

	after := room.Snapshot()
	m.publish(ctx, room, event.TurnBacktracked, event.TurnPayload{
		EntityID: prev.EntityID, UserID: prev.UserID,
		Round: after.RoundNumber, Index: after.CurrentTurnIndex,
	})
	m.batcher.Enqueue(room.ID, interactionID, event.NewDelta(event.DeltaTurn, after.Initiative[after.CurrentTurnIndex]))
	return nil
}

func (m *RoomManager) advance(ctx context.Context, room *domain.Room, skipped bool) error {
	st := room.Snapshot()
	prev, _ := st.CurrentEntity()

	next, _, err := room.AdvanceTurn(skipped)
	if err != nil {
		return err
	}

	after := room.Snapshot()
	completedType := event.TurnCompleted
	if skipped {
		completedType = event.TurnSkipped
	}
	m.publish(ctx, room, completedType, event.TurnPayload{
		EntityID: prev.EntityID, UserID: prev.UserID, Round: st.RoundNumber, Index: st.CurrentTurnIndex,
	})
	m.publish(ctx, room, event.TurnStarted, event.TurnPayload{
		EntityID: next.EntityID, UserID: next.UserID, Round: after.RoundNumber, Index: after.CurrentTurnIndex,
	})
	return nil
}

func (m *RoomManager) PauseRoom(ctx context.Context, interactionID, userID, reason string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if userID != room.GMUserID {
		return errors.ErrNotGameMaster
	}
	if err := room.Pause(reason); err != nil {
		return err
	}
	m.publish(ctx, room, event.InteractionPaused, event.LifecyclePayload{Reason: reason, ByUser: userID})
	return nil
}

func (m *RoomManager) ResumeRoom(ctx context.Context, interactionID, userID string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if userID != room.GMUserID {
		return errors.ErrNotGameMaster
	}
	if err := room.Resume(); err != nil {
		return err
	}
	m.publish(ctx, room, event.InteractionResumed, event.LifecyclePayload{ByUser: userID})
	return nil
}

func (m *RoomManager) GetRoomState(interactionID string) (domain.GameState, error) {
	room, err := m.room(interactionID)
	if err != nil {
		return domain.GameState{}, err
	}
	return room.Snapshot(), nil
}

// OverrideParticipantState swaps one entity's state outside the action
// pipeline, the GM escape hatch for fixing a ruling. The change rides
// the delta stream like any other state mutation.
func (m *RoomManager) OverrideParticipantState(ctx context.Context, interactionID, userID, entityID string, st domain.ParticipantState) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if err := room.OverrideParticipantState(userID, entityID, st); err != nil {
		return err
	}

	after := room.Snapshot()
	m.batcher.Enqueue(room.ID, interactionID, event.NewDelta(event.DeltaParticipant, after.Participants[entityID]))
	return nil
}

// PostChat censors the message, appends it to the bounded chat log
// and fans it out, also queueing a chat delta for late joiners who
// follow the batched stream.
func (m *RoomManager) PostChat(ctx context.Context, interactionID, userID, content string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if _, ok := room.ParticipantByUser(userID); !ok && userID != room.GMUserID {
		return fmt.Errorf("%w: %s", errors.ErrParticipantNotFound, userID)
	}

	censored := content
	if m.moderator != nil {
		var matches int
		censored, matches = m.moderator.Censor(content)
		if matches > 0 {
			m.log.Debug("Chat message censored", "interaction", interactionID, "user", userID, "matches", matches)
		}
	}

	entry := domain.ChatEntry{UserID: userID, Content: censored, At: time.Now().UTC()}
	room.PostChat(entry, m.maxChatLog)

	m.publish(ctx, room, event.ChatMessage, event.ChatPayload{UserID: userID, Content: censored})
	m.batcher.Enqueue(room.ID, interactionID, event.NewDelta(event.DeltaChat, entry))
	return nil
}

// NotifyDisconnect marks a user disconnected and announces it; the GM
// dropping gets its own event type so clients can freeze the table.
func (m *RoomManager) NotifyDisconnect(ctx context.Context, interactionID, userID string) error {
	return m.notifyConnection(ctx, interactionID, userID, false)
}

func (m *RoomManager) NotifyReconnect(ctx context.Context, interactionID, userID string) error {
	return m.notifyConnection(ctx, interactionID, userID, true)
}

func (m *RoomManager) notifyConnection(ctx context.Context, interactionID, userID string, connected bool) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}

	var ok bool
	if connected {
		ok = room.MarkReconnected(userID)
	} else {
		ok = room.MarkDisconnected(userID)
	}
	if !ok && userID != room.GMUserID {
		return fmt.Errorf("%w: %s", errors.ErrParticipantNotFound, userID)
	}

	var t event.Type
	switch {
	case userID == room.GMUserID && connected:
		t = event.GMReconnected
	case userID == room.GMUserID:
		t = event.GMDisconnected
	case connected:
		t = event.PlayerReconnected
	default:
		t = event.PlayerDisconnected
	}
	m.publish(ctx, room, t, event.ConnectionPayload{UserID: userID, At: time.Now().UTC()})
	return nil
}

// CompleteRoom ends the session (GM only) and retires the room
// immediately.
func (m *RoomManager) CompleteRoom(ctx context.Context, interactionID, userID string) error {
	room, err := m.room(interactionID)
	if err != nil {
		return err
	}
	if userID != room.GMUserID {
		return errors.ErrNotGameMaster
	}
	room.Complete()
	m.retire(room)
	return nil
}

// EvictIdle removes rooms idle beyond the window whose status is not
// active. Returns the evicted rooms.
func (m *RoomManager) EvictIdle(window time.Duration) []*domain.Room {
	cutoff := time.Now().UTC().Add(-window)

	m.mu.RLock()
	candidates := lo.Filter(lo.Values(m.rooms), func(r *domain.Room, _ int) bool {
		return r.Status() != domain.RoomActive && r.LastActivity().Before(cutoff)
	})
	m.mu.RUnlock()

	for _, room := range candidates {
		room.Complete()
		m.retire(room)
	}
	return candidates
}

// retire drops the room from the indexes, cancels its pending batch,
// drops its subscriptions and notifies the lifecycle hooks.
func (m *RoomManager) retire(room *domain.Room) {
	m.mu.Lock()
	delete(m.rooms, room.ID)
	delete(m.byInteraction, room.InteractionID)
	hooks := slices.Clone(m.retireHooks)
	m.mu.Unlock()

	discarded := m.batcher.CancelRoom(room.ID)
	dropped := m.broadcaster.DropRoom(room.ID)
	for _, hook := range hooks {
		hook(room)
	}
	m.log.Info("Room retired", "room", room.ID, "interaction", room.InteractionID,
		"discarded_deltas", discarded, "dropped_subscriptions", dropped)
}

func (m *RoomManager) publish(ctx context.Context, room *domain.Room, t event.Type, payload any) {
	if err := m.broadcaster.Broadcast(ctx, room.ID, event.New(t, room.InteractionID, payload)); err != nil {
		m.log.Error("Event broadcast failed", "room", room.ID, "type", t, "err", err)
	}
	m.mu.RLock()
	hooks := slices.Clone(m.changeHooks)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(room)
	}
}
