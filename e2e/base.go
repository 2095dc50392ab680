package e2e

import (
	"context"
	"fmt"
	"sync"
	"time"

	"table-lab/contract"
	"table-lab/domain"
	"table-lab/domain/actions"
	"table-lab/domain/event"
	"table-lab/internal"
	"table-lab/moderation"
	"table-lab/observability"
	"table-lab/runtime"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseSessionSuite boots a full in-process engine per test: room
// manager, broadcaster, batcher, moderation and the memory facade,
// wired exactly the way cmd/server wires them.
type BaseSessionSuite struct {
	suite.Suite
	Config Config

	Timers      *observability.TimerRegistry
	Broadcaster *runtime.Broadcaster
	Batcher     *runtime.DeltaBatcher
	Manager     *runtime.RoomManager
	Memory      *observability.MemorySystem
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSessionSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseSessionSuite) SetupTest() {
	log := logs.GetLoggerFromString(s.Config.LogLevel)
	cfg := internal.Default()
	cfg.BatchFlushDelay = time.Duration(s.Config.FlushDelayMS) * time.Millisecond

	words, err := moderation.LoadWords()
	s.Require().NoError(err)
	moderator, err := moderation.New(words, '*', log)
	s.Require().NoError(err)

	s.Timers = observability.NewTimerRegistry()
	s.Broadcaster = runtime.NewBroadcaster(log, cfg.MaxSubscriptionsPerUser, cfg.DeliveryTimeout)
	s.Batcher = runtime.NewDeltaBatcher(log, s.Broadcaster, s.Timers,
		cfg.BatchFlushDelay, cfg.MaxBatchSize, cfg.MaxPendingDeltas)
	s.Manager = runtime.NewRoomManager(log, actions.NewRegistry(), s.Broadcaster, s.Batcher, moderator, cfg.MaxChatLog)
	s.Memory = observability.NewMemorySystem(log, s.Timers, s.Manager, s.Broadcaster.SubscriberCount, observability.Settings{
		SampleInterval: time.Second,
		HistoryLimit:   cfg.MemoryHistoryLimit,
		WarnMB:         cfg.MemoryWarnMB,
		CriticalMB:     cfg.MemoryCriticalMB,
		MaxTurnHistory: cfg.MaxTurnHistory,
		MaxChatLog:     cfg.MaxChatLog,
	})

	s.Manager.OnCreate(func(r *domain.Room) {
		s.Memory.Leaks.Increment(observability.CounterRooms)
	})
	s.Manager.OnRetire(func(r *domain.Room) {
		s.Memory.Leaks.Decrement(observability.CounterRooms)
	})
}

func (s *BaseSessionSuite) TearDownTest() {
	if s.Memory != nil {
		s.Memory.Shutdown()
	}
}

// Step prints a colorized scenario header in the test logs.
func (s *BaseSessionSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// CollectingHandler records every event delivered to a subscription.
type CollectingHandler struct {
	mu     sync.Mutex
	events []event.Event
}

var _ contract.EventHandler = (*CollectingHandler)(nil)

func (h *CollectingHandler) Handle(_ context.Context, e event.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *CollectingHandler) Events() []event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.Event(nil), h.events...)
}

func (h *CollectingHandler) OfType(t event.Type) []event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []event.Event
	for _, e := range h.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
