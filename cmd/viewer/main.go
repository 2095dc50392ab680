package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"table-lab/contract"
	"table-lab/domain"
	"table-lab/domain/actions"
	"table-lab/domain/event"
	"table-lab/internal"
	"table-lab/moderation"
	"table-lab/observability"
	"table-lab/runtime"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// The viewer drives one scripted session against an in-process engine
// and dumps the memory snapshot at the end. Handy for eyeballing the
// event flow without wiring a transport.
func main() {
	// 1. Load config (defaults, .env overrides the log level only)
	_ = godotenv.Load()
	config := internal.Default()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Build the engine
	words, err := moderation.LoadWords()
	if err != nil {
		log.Fatalf("Word lists: %v", err)
	}
	moderator, err := moderation.New(words, '*', logger)
	if err != nil {
		log.Fatalf("Moderation: %v", err)
	}

	timers := observability.NewTimerRegistry()
	broadcaster := runtime.NewBroadcaster(logger, config.MaxSubscriptionsPerUser, config.DeliveryTimeout)
	batcher := runtime.NewDeltaBatcher(logger, broadcaster, timers,
		config.BatchFlushDelay, config.MaxBatchSize, config.MaxPendingDeltas)
	manager := runtime.NewRoomManager(logger, actions.NewRegistry(), broadcaster, batcher, moderator, config.MaxChatLog)
	memory := observability.NewMemorySystem(logger, timers, manager, broadcaster.SubscriberCount, observability.Settings{
		SampleInterval: time.Second,
		HistoryLimit:   config.MemoryHistoryLimit,
		WarnMB:         config.MemoryWarnMB,
		CriticalMB:     config.MemoryCriticalMB,
		MaxTurnHistory: config.MaxTurnHistory,
		MaxChatLog:     config.MaxChatLog,
	})
	defer memory.Shutdown()

	// 3. One spectator printing every event it receives
	ctx := context.Background()
	const interaction = "demo-interaction"
	room, err := manager.CreateRoom(interaction, "gm", domain.GameState{})
	if err != nil {
		log.Fatalf("Create room: %v", err)
	}
	_, err = broadcaster.Subscribe(room.ID, "spectator", nil, printHandler{})
	if err != nil {
		log.Fatalf("Subscribe: %v", err)
	}

	// 4. Scripted session
	_, err = manager.JoinRoom(ctx, interaction, domain.Participant{
		UserID: "alice", EntityID: "char-a", EntityType: domain.EntityPlayer, Connected: true,
	})
	must(err)
	_, err = manager.JoinRoom(ctx, interaction, domain.Participant{
		UserID: "bob", EntityID: "char-b", EntityType: domain.EntityPlayer, Connected: true,
	})
	must(err)
	must(manager.SetInitiative(ctx, interaction, "gm", []domain.InitiativeEntry{
		{EntityID: "char-a", EntityType: domain.EntityPlayer, Initiative: 18, UserID: "alice"},
		{EntityID: "char-b", EntityType: domain.EntityPlayer, Initiative: 11, UserID: "bob"},
	}))

	play(manager, ctx, interaction, domain.TurnAction{
		Type: domain.ActionAttack, EntityID: "char-a", UserID: "alice", TargetID: "char-b",
	})
	play(manager, ctx, interaction, domain.TurnAction{
		Type: domain.ActionEnd, EntityID: "char-a", UserID: "alice",
	})
	must(manager.PostChat(ctx, interaction, "bob", "nice hit, you filthy metagamer"))
	play(manager, ctx, interaction, domain.TurnAction{
		Type: domain.ActionMove, EntityID: "char-b", UserID: "bob",
		TargetPosition: &domain.Position{X: 3, Y: 4},
	})

	// Let the batcher flush its pending deltas.
	time.Sleep(2 * config.BatchFlushDelay)

	// 5. Memory snapshot
	memory.Monitor.Observe()
	observability.RenderStatus(os.Stdout, memory.Status(), true)
}

func play(m *runtime.RoomManager, ctx context.Context, interaction string, a domain.TurnAction) {
	_, rejection, err := m.ProcessTurnAction(ctx, interaction, a)
	if err != nil {
		log.Fatalf("Turn action: %v", err)
	}
	if rejection != nil {
		log.Fatalf("Turn action rejected: %s (%s)", rejection.Reason, rejection.Code)
	}
}

func must(err error) {
	if err != nil {
		log.Fatalf("Session step failed: %v", err)
	}
}

type printHandler struct{}

var _ contract.EventHandler = printHandler{}

func (printHandler) Handle(_ context.Context, e event.Event) error {
	fmt.Printf("  -> %s %s\n", e.Type, e.InteractionID)
	return nil
}
