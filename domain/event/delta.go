package event

import (
	"time"

	"github.com/google/uuid"
)

// DeltaCategory tags which slice of room state a delta touches.
type DeltaCategory string

const (
	DeltaParticipant DeltaCategory = "participant"
	DeltaTurn        DeltaCategory = "turn"
	DeltaMap         DeltaCategory = "map"
	DeltaInitiative  DeltaCategory = "initiative"
	DeltaChat        DeltaCategory = "chat"
)

func (c DeltaCategory) Valid() bool {
	switch c {
	case DeltaParticipant, DeltaTurn, DeltaMap, DeltaInitiative, DeltaChat:
		return true
	default:
		return false
	}
}

// StateDelta is one partial state change awaiting batched emission.
type StateDelta struct {
	Category  DeltaCategory `validate:"required"`
	Changes   any           `validate:"required"`
	Timestamp time.Time
}

func NewDelta(category DeltaCategory, changes any) StateDelta {
	return StateDelta{Category: category, Changes: changes, Timestamp: time.Now().UTC()}
}

// DeltaBatch is the combined emission for one room's pending deltas.
// Deltas keep their submission order inside the batch.
type DeltaBatch struct {
	BatchID   uuid.UUID
	Timestamp time.Time
	Deltas    []StateDelta
}
