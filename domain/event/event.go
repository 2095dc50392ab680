package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ParticipantJoined  Type = "PARTICIPANT_JOINED"
	ParticipantLeft    Type = "PARTICIPANT_LEFT"
	TurnStarted        Type = "TURN_STARTED"
	TurnCompleted      Type = "TURN_COMPLETED"
	TurnSkipped        Type = "TURN_SKIPPED"
	TurnBacktracked    Type = "TURN_BACKTRACKED"
	StateDeltaBatch    Type = "STATE_DELTA"
	ChatMessage        Type = "CHAT_MESSAGE"
	InitiativeUpdated  Type = "INITIATIVE_UPDATED"
	InteractionPaused  Type = "INTERACTION_PAUSED"
	InteractionResumed Type = "INTERACTION_RESUMED"
	PlayerDisconnected Type = "PLAYER_DISCONNECTED"
	PlayerReconnected  Type = "PLAYER_RECONNECTED"
	GMDisconnected     Type = "DM_DISCONNECTED"
	GMReconnected      Type = "DM_RECONNECTED"
	ErrorEvent         Type = "ERROR"
)

func (t Type) Valid() bool {
	switch t {
	case ParticipantJoined, ParticipantLeft,
		TurnStarted, TurnCompleted, TurnSkipped, TurnBacktracked,
		StateDeltaBatch, ChatMessage, InitiativeUpdated,
		InteractionPaused, InteractionResumed,
		PlayerDisconnected, PlayerReconnected,
		GMDisconnected, GMReconnected, ErrorEvent:
		return true
	default:
		return false
	}
}

// Event is the envelope every room event travels in. The transport
// collaborator serializes it as-is; Payload carries the type-specific
// fields.
type Event struct {
	ID            uuid.UUID `validate:"required"`
	Type          Type      `validate:"required"`
	InteractionID string    `validate:"required"`
	Timestamp     time.Time `validate:"required"`
	Payload       any
}

func New(t Type, interactionID string, payload any) Event {
	return Event{
		ID:            uuid.New(),
		Type:          t,
		InteractionID: interactionID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
}
