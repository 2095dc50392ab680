package domain

import (
	"fmt"
	"sync"
	"time"

	"table-lab/errors"

	"github.com/google/uuid"
)

type RoomID string

type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomActive    RoomStatus = "active"
	RoomPaused    RoomStatus = "paused"
	RoomCompleted RoomStatus = "completed"
)

// Participant is one connected user inside a room, bound to the
// entity they control.
type Participant struct {
	UserID       string
	EntityID     string
	EntityType   EntityType
	ConnectionID string
	Connected    bool
	JoinedAt     time.Time
}

// Room owns one session's authoritative GameState and its turn state
// machine. Every mutation happens under the room mutex as one
// validate-then-apply sequence, so two concurrently submitted actions
// for the same room can never interleave.
type Room struct {
	mu sync.Mutex

	ID            RoomID
	InteractionID string
	GMUserID      string
	CreatedAt     time.Time

	status       RoomStatus
	pauseReason  string
	participants map[string]*Participant // user id -> participant
	state        GameState
	handlers     HandlerRegistry
	lastActivity time.Time
}

func NewRoom(interactionID, gmUserID string, initial GameState, handlers HandlerRegistry) *Room {
	now := time.Now().UTC()
	if initial.Participants == nil {
		initial.Participants = make(map[string]*ParticipantState)
	}
	return &Room{
		ID:            RoomID(uuid.NewString()),
		InteractionID: interactionID,
		GMUserID:      gmUserID,
		CreatedAt:     now,
		status:        RoomWaiting,
		participants:  make(map[string]*Participant),
		state:         initial,
		handlers:      handlers,
		lastActivity:  now,
	}
}

func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) Touch() {
	r.mu.Lock()
	r.lastActivity = time.Now().UTC()
	r.mu.Unlock()
}

// Snapshot returns a deep copy of the current game state.
func (r *Room) Snapshot() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) ParticipantByUser(userID string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[userID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Join inserts a participant. A completed room accepts nobody, and an
// entity already claimed by a different user stays claimed.
func (r *Room) Join(p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == RoomCompleted {
		return errors.ErrRoomCompleted
	}
	for _, existing := range r.participants {
		if existing.EntityID == p.EntityID && existing.UserID != p.UserID {
			return fmt.Errorf("%w: %s", errors.ErrEntityClaimed, p.EntityID)
		}
	}

	p.Connected = true
	p.JoinedAt = time.Now().UTC()
	r.participants[p.UserID] = &p

	if _, ok := r.state.Participants[p.EntityID]; !ok {
		r.state.Participants[p.EntityID] = NewParticipantState(p.EntityID, defaultStartingHP)
	}
	r.bumpLocked()
	return nil
}

const defaultStartingHP = 100

// Leave removes a user from the room. The entity's state stays in the
// game state so the entity can keep its place in the initiative order.
func (r *Room) Leave(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[userID]; !ok {
		return false
	}
	delete(r.participants, userID)
	r.bumpLocked()
	return true
}

func (r *Room) MarkDisconnected(userID string) bool {
	return r.setConnected(userID, false)
}

func (r *Room) MarkReconnected(userID string) bool {
	return r.setConnected(userID, true)
}

func (r *Room) setConnected(userID string, connected bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[userID]
	if !ok {
		return false
	}
	p.Connected = connected
	r.bumpLocked()
	return true
}

// SetInitiative replaces the turn order. A waiting room with a
// non-empty order becomes active: round 1, first entry's turn.
// Replacing the order on a running room keeps the turn index inside
// the new bounds, resetting to 0 when the order shrank past it.
func (r *Room) SetInitiative(entries []InitiativeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == RoomCompleted {
		return errors.ErrRoomCompleted
	}

	var prevEntity string
	if r.status != RoomWaiting && r.state.CurrentTurnIndex < len(r.state.Initiative) {
		prevEntity = r.state.Initiative[r.state.CurrentTurnIndex].EntityID
	}

	r.state.Initiative = append([]InitiativeEntry(nil), entries...)

	switch {
	case r.status == RoomWaiting && len(entries) > 0:
		r.status = RoomActive
		r.state.CurrentTurnIndex = 0
		r.state.RoundNumber = 1
		if st, ok := r.state.Participants[entries[0].EntityID]; ok {
			st.TurnStatus = TurnActive
		}
	case len(entries) == 0:
		r.state.CurrentTurnIndex = 0
	case r.status != RoomWaiting:
		if r.state.CurrentTurnIndex >= len(entries) {
			r.state.CurrentTurnIndex = 0
		}
		current := entries[r.state.CurrentTurnIndex]
		if current.EntityID != prevEntity {
			if st, ok := r.state.Participants[prevEntity]; ok {
				st.TurnStatus = TurnWaiting
			}
			if st, ok := r.state.Participants[current.EntityID]; ok {
				st.TurnStatus = TurnActive
			}
		}
	}
	r.bumpLocked()
	return nil
}

// ApplyOutcome reports a successfully applied turn action.
type ApplyOutcome struct {
	Record    TurnRecord
	TurnEnded bool
}

// ProcessTurnAction validates then applies one action. Validation
// covers room status, turn ownership and entity ownership before the
// per-type handler sees the state; any failure leaves the state
// untouched. Applying never advances the turn index; AdvanceTurn is a
// separate explicit call so the caller can broadcast intermediate
// state first.
func (r *Room) ProcessTurnAction(a TurnAction) (ApplyOutcome, *Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomActive {
		return ApplyOutcome{}, NewRejection(RejectRoomNotActive, "The encounter is not running")
	}
	if !a.Type.Valid() {
		return ApplyOutcome{}, NewRejection(RejectBadAction, fmt.Sprintf("Unknown action %q", a.Type))
	}

	current, ok := r.state.CurrentEntity()
	if !ok {
		return ApplyOutcome{}, NewRejection(RejectRoomNotActive, "No initiative order")
	}
	if a.EntityID != current.EntityID {
		return ApplyOutcome{}, NewRejection(RejectNotYourTurn, "It is not this entity's turn")
	}
	if !r.userControlsLocked(a.UserID, a.EntityID) {
		return ApplyOutcome{}, NewRejection(RejectNotYourEntity, "You can only control your own entities")
	}
	if _, ok := r.state.Participants[a.EntityID]; !ok {
		return ApplyOutcome{}, NewRejection(RejectUnknownEntity, "Entity has no state in this room")
	}

	handler, ok := r.handlers.Handler(a.Type)
	if !ok {
		return ApplyOutcome{}, NewRejection(RejectBadAction, fmt.Sprintf("Action %q is not supported", a.Type))
	}
	if rej := handler.Validate(&r.state, a); rej != nil {
		return ApplyOutcome{}, rej
	}

	// Validation is done, nothing below may fail.
	handler.Apply(&r.state, a)

	record := TurnRecord{
		EntityID: a.EntityID,
		UserID:   a.UserID,
		Action:   a.Type,
		TargetID: a.TargetID,
		Round:    r.state.RoundNumber,
		At:       time.Now().UTC(),
	}
	r.state.TurnHistory = append(r.state.TurnHistory, record)
	r.bumpLocked()

	return ApplyOutcome{Record: record, TurnEnded: a.Type == ActionEnd}, nil
}

// userControlsLocked reports whether userID controls entityID, either
// through a joined participant or through the initiative entry. The GM
// controls every uncontrolled entity.
func (r *Room) userControlsLocked(userID, entityID string) bool {
	if p, ok := r.participants[userID]; ok && p.EntityID == entityID {
		return true
	}
	for _, entry := range r.state.Initiative {
		if entry.EntityID == entityID {
			if entry.UserID == userID {
				return true
			}
			if entry.UserID == "" && userID == r.GMUserID {
				return true
			}
			return false
		}
	}
	return false
}

// AdvanceTurn moves to the next initiative entry, wrapping to index 0
// and incrementing the round number at the end of the order. The
// previous entity is marked completed, or skipped when the advance
// comes from a timeout/skip path.
func (r *Room) AdvanceTurn(skipped bool) (InitiativeEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomActive {
		return InitiativeEntry{}, false, errors.ErrRoomNotActive
	}
	n := len(r.state.Initiative)
	if n == 0 {
		return InitiativeEntry{}, false, errors.ErrEmptyInitiative
	}

	prev := r.state.Initiative[r.state.CurrentTurnIndex]
	if st, ok := r.state.Participants[prev.EntityID]; ok {
		if skipped {
			st.TurnStatus = TurnSkipped
		} else {
			st.TurnStatus = TurnCompleted
		}
	}

	wrapped := false
	r.state.CurrentTurnIndex++
	if r.state.CurrentTurnIndex >= n {
		r.state.CurrentTurnIndex = 0
		r.state.RoundNumber++
		wrapped = true
	}

	next := r.state.Initiative[r.state.CurrentTurnIndex]
	if st, ok := r.state.Participants[next.EntityID]; ok {
		st.TurnStatus = TurnActive
	}
	r.bumpLocked()
	return next, wrapped, nil
}

// BacktrackTurn rewinds to the previous initiative entry, undoing a
// mistaken advance. Wrapping below index 0 decrements the round number
// but never below round 1; backtracking from the very first turn is
// refused. Entity state changes are not rolled back, the GM fixes
// those through an override.
func (r *Room) BacktrackTurn() (InitiativeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomActive {
		return InitiativeEntry{}, errors.ErrRoomNotActive
	}
	n := len(r.state.Initiative)
	if n == 0 {
		return InitiativeEntry{}, errors.ErrEmptyInitiative
	}
	if r.state.CurrentTurnIndex == 0 && r.state.RoundNumber <= 1 {
		return InitiativeEntry{}, errors.ErrNoPreviousTurn
	}

	current := r.state.Initiative[r.state.CurrentTurnIndex]
	if st, ok := r.state.Participants[current.EntityID]; ok {
		st.TurnStatus = TurnWaiting
	}

	r.state.CurrentTurnIndex--
	if r.state.CurrentTurnIndex < 0 {
		r.state.CurrentTurnIndex = n - 1
		r.state.RoundNumber--
	}

	prev := r.state.Initiative[r.state.CurrentTurnIndex]
	if st, ok := r.state.Participants[prev.EntityID]; ok {
		st.TurnStatus = TurnActive
	}
	r.bumpLocked()
	return prev, nil
}

// Pause freezes the turn clock without touching turn order or state
// data. GM identity is enforced by the caller.
func (r *Room) Pause(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RoomActive {
		return errors.ErrRoomNotActive
	}
	r.status = RoomPaused
	r.pauseReason = reason
	r.bumpLocked()
	return nil
}

func (r *Room) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RoomPaused {
		return fmt.Errorf("%w: status is %s", errors.ErrRoomNotActive, r.status)
	}
	r.status = RoomActive
	r.pauseReason = ""
	r.bumpLocked()
	return nil
}

func (r *Room) PauseReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseReason
}

// Complete makes the room terminal.
func (r *Room) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = RoomCompleted
	r.bumpLocked()
}

// PostChat appends a chat entry, evicting the oldest once maxLog is
// exceeded.
func (r *Room) PostChat(entry ChatEntry, maxLog int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.ChatLog = append(r.state.ChatLog, entry)
	if maxLog > 0 && len(r.state.ChatLog) > maxLog {
		r.state.ChatLog = r.state.ChatLog[len(r.state.ChatLog)-maxLog:]
	}
	r.bumpLocked()
}

// OverrideParticipantState is the GM escape hatch: it swaps one
// entity's state wholesale, outside the action pipeline.
func (r *Room) OverrideParticipantState(gmUserID, entityID string, st ParticipantState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gmUserID != r.GMUserID {
		return errors.ErrNotGameMaster
	}
	if _, ok := r.state.Participants[entityID]; !ok {
		return errors.ErrParticipantNotFound
	}
	st.EntityID = entityID
	r.state.Participants[entityID] = &st
	r.bumpLocked()
	return nil
}

// TrimHistory bounds the turn and chat logs, returning how many
// entries were dropped. Called by the memory monitor's cleanup pass.
func (r *Room) TrimHistory(maxTurns, maxChat int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	if maxTurns > 0 && len(r.state.TurnHistory) > maxTurns {
		dropped += len(r.state.TurnHistory) - maxTurns
		r.state.TurnHistory = append([]TurnRecord(nil), r.state.TurnHistory[len(r.state.TurnHistory)-maxTurns:]...)
	}
	if maxChat > 0 && len(r.state.ChatLog) > maxChat {
		dropped += len(r.state.ChatLog) - maxChat
		r.state.ChatLog = append([]ChatEntry(nil), r.state.ChatLog[len(r.state.ChatLog)-maxChat:]...)
	}
	return dropped
}

func (r *Room) bumpLocked() {
	now := time.Now().UTC()
	r.lastActivity = now
	r.state.UpdatedAt = now
}
