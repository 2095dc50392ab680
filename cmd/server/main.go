package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"table-lab/domain"
	"table-lab/domain/actions"
	"table-lab/internal"
	"table-lab/moderation"
	"table-lab/observability"
	"table-lab/runtime"
	"table-lab/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the engine lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the background workers.
func run() error {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Chat moderation
	words, err := moderation.LoadWords()
	if err != nil {
		return fmt.Errorf("word lists: %w", err)
	}
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.New(words, replacement, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	// 3. Session engine
	timers := observability.NewTimerRegistry()
	broadcaster := runtime.NewBroadcaster(log, config.MaxSubscriptionsPerUser, config.DeliveryTimeout)
	batcher := runtime.NewDeltaBatcher(log, broadcaster, timers,
		config.BatchFlushDelay, config.MaxBatchSize, config.MaxPendingDeltas)
	manager := runtime.NewRoomManager(log, actions.NewRegistry(), broadcaster, batcher, moderator, config.MaxChatLog)

	// 4. Memory management
	memory := observability.NewMemorySystem(log, timers, manager, broadcaster.SubscriberCount, settings(config))
	defer memory.Shutdown()

	manager.OnCreate(func(r *domain.Room) {
		memory.Leaks.Increment(observability.CounterRooms)
		memory.Optimizer.OptimizeRoom(r)
	})
	manager.OnChange(func(r *domain.Room) {
		memory.Optimizer.NotifyRoomChanged(r)
	})
	manager.OnRetire(func(r *domain.Room) {
		memory.Leaks.Decrement(observability.CounterRooms)
	})

	// 5. Supervision
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewEvictionWorker(log, manager, timers, config.EvictionInterval, config.RoomIdleWindow))
	sup.Add(workers.NewSweepWorker(log, broadcaster, timers, config.SweepInterval, config.SubscriptionIdleTimeout))
	sup.Add(memory.Workers()...)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SIGUSR1 dumps the memory snapshot without stopping anything.
	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-dump:
				observability.RenderStatus(os.Stdout, memory.Status(), true)
			}
		}
	}()

	// 7. Start the Engine
	log.Info("Engine started", "at", time.Now().UTC())
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

func settings(c internal.Config) observability.Settings {
	return observability.Settings{
		SampleInterval: c.MemorySampleInterval,
		HistoryLimit:   c.MemoryHistoryLimit,
		WarnMB:         c.MemoryWarnMB,
		CriticalMB:     c.MemoryCriticalMB,
		MaxTurnHistory: c.MaxTurnHistory,
		MaxChatLog:     c.MaxChatLog,

		GCInterval:        c.GCInterval,
		GCMinInterval:     c.GCMinInterval,
		GCMaxInterval:     c.GCMaxInterval,
		GCGrowthThreshold: c.GCGrowthThreshold,

		LeakScanInterval:   c.LeakScanInterval,
		LeakGrowthPerMin:   c.LeakGrowthPerMin,
		LeakSustainWindows: c.LeakSustainWindows,
		TimerCeiling:       c.TimerCeiling,
		SubscriberCeiling:  c.SubscriberCeiling,

		OptimizeInterval: c.OptimizeInterval,
		OptimizeMinRefs:  c.OptimizeMinRefs,
		OptimizeThrottle: c.OptimizeThrottle,
	}
}
