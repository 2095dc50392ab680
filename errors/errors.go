package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
	ErrRoomExists          = fmt.Errorf("a room already exists for this interaction")
	ErrRoomNotFound        = fmt.Errorf("room not found")
	ErrRoomCompleted       = fmt.Errorf("room is completed")
	ErrRoomNotActive       = fmt.Errorf("room is not active")
	ErrEmptyInitiative     = fmt.Errorf("initiative order is empty")
	ErrNoPreviousTurn      = fmt.Errorf("no previous turn to backtrack to")
	ErrEntityClaimed       = fmt.Errorf("entity is already claimed by another user")
	ErrParticipantNotFound = fmt.Errorf("participant not found")
	ErrNotGameMaster       = fmt.Errorf("operation restricted to the game master")
	ErrSubscriptionLimit   = fmt.Errorf("subscription limit reached for user")
	ErrUnknownEventType    = fmt.Errorf("unknown event type")
	ErrInvalidEvent        = fmt.Errorf("invalid event payload")
)
