//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"table-lab/domain"
	"table-lab/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; the supervisor handles panics and
// restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the
// worker for logging and supervision, avoiding a naming method on
// every Worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventHandler is a subscription's delivery callback. An error (or a
// panic) from one handler never reaches sibling subscribers.
type EventHandler interface {
	Handle(ctx context.Context, e event.Event) error
}

// RoomIndex is the read-only view of the room manager the memory
// management layer observes.
type RoomIndex interface {
	Rooms() []*domain.Room
	RoomByInteraction(interactionID string) (*domain.Room, bool)
}

// TimerTracker is the explicit timer-handle registry. Every component
// that schedules a timer or ticker registers it here so the leak
// detector can count outstanding handles.
type TimerTracker interface {
	Track(name string) uuid.UUID
	Release(id uuid.UUID)
	Outstanding() int
}
