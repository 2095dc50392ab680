package domain

import (
	"time"
)

type EntityType string

const (
	EntityPlayer  EntityType = "player"
	EntityNPC     EntityType = "npc"
	EntityMonster EntityType = "monster"
)

type TurnStatus string

const (
	TurnWaiting   TurnStatus = "waiting"
	TurnActive    TurnStatus = "active"
	TurnCompleted TurnStatus = "completed"
	TurnSkipped   TurnStatus = "skipped"
)

type Position struct {
	X int
	Y int
}

// InitiativeEntry is one slot in a room's turn order.
// UserID is empty for entities nobody controls (monsters run by the GM).
type InitiativeEntry struct {
	EntityID   string
	EntityType EntityType
	Initiative int
	UserID     string
}

type Item struct {
	ID       string
	Name     string
	Quantity int
}

type Inventory struct {
	Items    []Item
	Equipped map[string]string // slot -> item id
	Capacity int
}

// ParticipantState is one entity's combat-relevant state.
// It is mutated only through Room.ProcessTurnAction or a GM override.
type ParticipantState struct {
	EntityID         string
	HP               int
	MaxHP            int
	Position         Position
	Conditions       map[string]struct{}
	Inventory        Inventory
	AvailableActions []ActionType
	TurnStatus       TurnStatus
}

func NewParticipantState(entityID string, hp int) *ParticipantState {
	return &ParticipantState{
		EntityID:   entityID,
		HP:         hp,
		MaxHP:      hp,
		Conditions: make(map[string]struct{}),
		Inventory:  Inventory{Equipped: make(map[string]string), Capacity: DefaultInventoryCapacity},
		TurnStatus: TurnWaiting,
	}
}

const DefaultInventoryCapacity = 20

func (p *ParticipantState) AddCondition(name string) {
	if p.Conditions == nil {
		p.Conditions = make(map[string]struct{})
	}
	p.Conditions[name] = struct{}{}
}

func (p *ParticipantState) RemoveCondition(name string) {
	delete(p.Conditions, name)
}

func (p *ParticipantState) HasCondition(name string) bool {
	_, ok := p.Conditions[name]
	return ok
}

// TurnRecord is one applied action in the bounded turn history.
type TurnRecord struct {
	EntityID string
	UserID   string
	Action   ActionType
	TargetID string
	Round    int
	At       time.Time
}

type ChatEntry struct {
	UserID  string
	Content string
	At      time.Time
}

// GameState is the game-visible truth for one room.
// While the room is active, CurrentTurnIndex always indexes a
// non-empty Initiative slice; advancing past the end wraps to 0
// and increments RoundNumber.
type GameState struct {
	Initiative       []InitiativeEntry
	CurrentTurnIndex int
	RoundNumber      int
	Participants     map[string]*ParticipantState // entity id -> state
	TurnHistory      []TurnRecord
	ChatLog          []ChatEntry
	UpdatedAt        time.Time
}

func NewGameState() GameState {
	return GameState{
		Participants: make(map[string]*ParticipantState),
		UpdatedAt:    time.Now().UTC(),
	}
}

// CurrentEntity returns the initiative entry whose turn it is.
func (s *GameState) CurrentEntity() (InitiativeEntry, bool) {
	if len(s.Initiative) == 0 || s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.Initiative) {
		return InitiativeEntry{}, false
	}
	return s.Initiative[s.CurrentTurnIndex], true
}

func (s *GameState) Participant(entityID string) (*ParticipantState, bool) {
	p, ok := s.Participants[entityID]
	return p, ok
}

// Clone returns a deep copy, used for snapshots handed to callers and
// for the unchanged-on-rejection guarantee in tests.
func (s *GameState) Clone() GameState {
	out := GameState{
		Initiative:       append([]InitiativeEntry(nil), s.Initiative...),
		CurrentTurnIndex: s.CurrentTurnIndex,
		RoundNumber:      s.RoundNumber,
		Participants:     make(map[string]*ParticipantState, len(s.Participants)),
		TurnHistory:      append([]TurnRecord(nil), s.TurnHistory...),
		ChatLog:          append([]ChatEntry(nil), s.ChatLog...),
		UpdatedAt:        s.UpdatedAt,
	}
	for id, p := range s.Participants {
		cp := *p
		cp.Conditions = make(map[string]struct{}, len(p.Conditions))
		for c := range p.Conditions {
			cp.Conditions[c] = struct{}{}
		}
		cp.Inventory.Items = append([]Item(nil), p.Inventory.Items...)
		cp.Inventory.Equipped = make(map[string]string, len(p.Inventory.Equipped))
		for slot, item := range p.Inventory.Equipped {
			cp.Inventory.Equipped[slot] = item
		}
		cp.AvailableActions = append([]ActionType(nil), p.AvailableActions...)
		out.Participants[id] = &cp
	}
	return out
}
