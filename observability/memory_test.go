package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"table-lab/domain"

	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	return Settings{
		SampleInterval:     time.Second,
		HistoryLimit:       10,
		MaxTurnHistory:     50,
		MaxChatLog:         5,
		GCInterval:         time.Second,
		GCMinInterval:      time.Second,
		LeakScanInterval:   time.Second,
		LeakGrowthPerMin:   10,
		LeakSustainWindows: 3,
		SubscriberCeiling:  5,
		OptimizeInterval:   time.Minute,
		OptimizeMinRefs:    2,
	}
}

func newTestSystem(rooms *fakeRooms, subscribers func() int) *MemorySystem {
	if subscribers == nil {
		subscribers = func() int { return 0 }
	}
	return NewMemorySystem(slog.Default(), NewTimerRegistry(), rooms, subscribers, testSettings())
}

func TestMemorySystem_StatusReflectsSubsystems(t *testing.T) {
	req := require.New(t)
	m := newTestSystem(&fakeRooms{rooms: []*domain.Room{roomWithChat("interaction-1", 10)}}, func() int { return 3 })

	m.Monitor.Observe()
	m.Collector.Collect("manual")

	status := m.Status()
	req.NotZero(status.Usage.HeapAlloc)
	req.Equal(PolicyBalanced, status.Policy)
	req.Len(status.RecentRuns, 1)
	req.Equal(1.0, status.GCSuccessRate)
	req.Equal(3, status.Subscribers)
	req.Zero(status.TimerOutstanding)
}

func TestMemorySystem_ForceCleanup(t *testing.T) {
	req := require.New(t)
	room := roomWithChat("interaction-1", 20)
	m := newTestSystem(&fakeRooms{rooms: []*domain.Room{room}}, nil)

	result := m.ForceCleanup()
	req.Equal(1, result.Cleanup.Rooms)
	req.Equal(15, result.Cleanup.EntriesDropped)
	req.Equal("forced", result.Run.Reason)
	req.True(result.Run.Success)
	req.Len(result.Optimized, 1)
	req.Len(room.Snapshot().ChatLog, 5)
}

func TestMemorySystem_WorkersCoverEverySubsystem(t *testing.T) {
	m := newTestSystem(&fakeRooms{}, nil)
	require.Len(t, m.Workers(), 5)
}

func TestMemorySystem_LowYieldTriggersLeakScan(t *testing.T) {
	req := require.New(t)
	m := newTestSystem(&fakeRooms{}, nil)

	m.Collector.onLowYield()
	req.Len(m.leakScan, 1)

	// A second trigger while one is pending is dropped, not queued
	m.Collector.onLowYield()
	req.Len(m.leakScan, 1)
}

func TestMemorySystem_SevereLeakTriggersOptimization(t *testing.T) {
	req := require.New(t)
	m := newTestSystem(&fakeRooms{}, nil)

	m.Leaks.onReport(LeakReport{Resource: "rooms", Severity: SeverityMedium})
	req.Empty(m.optimizeAll)

	m.Leaks.onReport(LeakReport{Resource: "rooms", Severity: SeverityHigh})
	req.Len(m.optimizeAll, 1)
}

func TestMemorySystem_ReactorRunsLeakScan(t *testing.T) {
	req := require.New(t)
	room := roomWithChat("interaction-1", 1)
	req.NoError(room.Join(domain.Participant{UserID: "alice", EntityID: "char-a", EntityType: domain.EntityPlayer}))
	m := newTestSystem(&fakeRooms{rooms: []*domain.Room{room}}, func() int { return 10 })

	m.trigger(m.leakScan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker := &reactor{system: m}
		_ = worker.Run(ctx)
	}()

	// The scan gauges participants and sweeps the ceilings: ten
	// subscribers against a ceiling of five raises a report.
	req.Eventually(func() bool {
		return len(m.Leaks.Reports()) > 0
	}, time.Second, 10*time.Millisecond)
	req.Equal("event-subscribers", m.Leaks.Reports()[0].Resource)
	req.Equal(int64(1), m.Leaks.Value(CounterParticipants))

	cancel()
	<-done
}

func TestMemorySystem_ReactorForcesCollectionOnCriticalAlert(t *testing.T) {
	req := require.New(t)
	m := newTestSystem(&fakeRooms{}, nil)

	m.alerts <- UsageAlert{Level: AlertCritical}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		worker := &reactor{system: m}
		_ = worker.Run(ctx)
	}()

	req.Eventually(func() bool {
		select {
		case reason := <-m.Collector.force:
			return reason == "critical-alert"
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemorySystem_ShutdownIsIdempotent(t *testing.T) {
	req := require.New(t)
	m := newTestSystem(&fakeRooms{}, nil)

	m.Shutdown()
	m.Shutdown()

	// Stopped systems drop triggers instead of queueing them
	m.trigger(m.leakScan)
	req.Empty(m.leakScan)

	worker := &reactor{system: m}
	req.NoError(worker.Run(context.Background()))
}

func TestMemorySystem_CountParticipants(t *testing.T) {
	req := require.New(t)
	first := domain.NewRoom("interaction-1", "gm", domain.NewGameState(), noHandlers{})
	req.NoError(first.Join(domain.Participant{UserID: "alice", EntityID: "char-a", EntityType: domain.EntityPlayer}))
	req.NoError(first.Join(domain.Participant{UserID: "bob", EntityID: "char-b", EntityType: domain.EntityPlayer}))
	second := domain.NewRoom("interaction-2", "gm", domain.NewGameState(), noHandlers{})
	req.NoError(second.Join(domain.Participant{UserID: "carol", EntityID: "char-c", EntityType: domain.EntityPlayer}))

	m := newTestSystem(&fakeRooms{rooms: []*domain.Room{first, second}}, nil)
	req.Equal(int64(3), m.countParticipants())
}
