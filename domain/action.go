package domain

type ActionType string

const (
	ActionMove     ActionType = "move"
	ActionAttack   ActionType = "attack"
	ActionUseItem  ActionType = "useItem"
	ActionCast     ActionType = "cast"
	ActionInteract ActionType = "interact"
	ActionEnd      ActionType = "end"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionMove, ActionAttack, ActionUseItem, ActionCast, ActionInteract, ActionEnd:
		return true
	default:
		return false
	}
}

// TurnAction is a client-submitted intent. It is immutable once
// submitted; a rejected action is never stored.
type TurnAction struct {
	Type           ActionType
	EntityID       string
	UserID         string
	TargetID       string
	TargetPosition *Position
	ItemID         string
	SpellID        string
	Params         map[string]any
}

// Rejection is a structured refusal of a client operation. Reason is
// suitable for direct display to the player.
type Rejection struct {
	Code   string
	Reason string
}

const (
	RejectRoomNotActive = "ROOM_NOT_ACTIVE"
	RejectNotYourTurn   = "NOT_YOUR_TURN"
	RejectNotYourEntity = "NOT_YOUR_ENTITY"
	RejectUnknownEntity = "UNKNOWN_ENTITY"
	RejectBadAction     = "BAD_ACTION"
	RejectOutOfBounds   = "OUT_OF_BOUNDS"
	RejectTileOccupied  = "TILE_OCCUPIED"
	RejectNoSuchItem    = "NO_SUCH_ITEM"
	RejectNoTarget      = "NO_TARGET"
)

func NewRejection(code, reason string) *Rejection {
	return &Rejection{Code: code, Reason: reason}
}

// ActionHandler applies one action type's effects to the game state.
// Validate must not mutate anything; Apply runs only after every
// validation for the action has passed.
type ActionHandler interface {
	Validate(st *GameState, a TurnAction) *Rejection
	Apply(st *GameState, a TurnAction)
}

// HandlerRegistry resolves the handler for an action type.
type HandlerRegistry interface {
	Handler(t ActionType) (ActionHandler, bool)
}
