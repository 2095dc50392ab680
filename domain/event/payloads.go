package event

import (
	"time"

	"table-lab/domain"
)

type ParticipantPayload struct {
	UserID     string `validate:"required"`
	EntityID   string `validate:"required"`
	EntityType domain.EntityType
}

type TurnPayload struct {
	EntityID string `validate:"required"`
	UserID   string
	Round    int `validate:"gte=0"`
	Index    int `validate:"gte=0"`
	Action   domain.ActionType
}

type ChatPayload struct {
	UserID  string `validate:"required"`
	Content string `validate:"required"`
}

type InitiativePayload struct {
	Entries []domain.InitiativeEntry `validate:"required,min=1"`
}

type LifecyclePayload struct {
	Reason string
	ByUser string
}

type ErrorPayload struct {
	Code   string `validate:"required"`
	Reason string `validate:"required"`
}

// ConnectionPayload accompanies player/GM disconnect and reconnect
// notices.
type ConnectionPayload struct {
	UserID string `validate:"required"`
	At     time.Time
}
