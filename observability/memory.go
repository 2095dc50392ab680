package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"table-lab/contract"

	"github.com/samber/lo"
)

// Settings carry the memory-management knobs from the process
// configuration.
type Settings struct {
	SampleInterval time.Duration
	HistoryLimit   int
	WarnMB         uint64
	CriticalMB     uint64
	MaxTurnHistory int
	MaxChatLog     int

	GCInterval        time.Duration
	GCMinInterval     time.Duration
	GCMaxInterval     time.Duration
	GCGrowthThreshold float64

	LeakScanInterval   time.Duration
	LeakGrowthPerMin   float64
	LeakSustainWindows int
	TimerCeiling       int
	SubscriberCeiling  int

	OptimizeInterval time.Duration
	OptimizeMinRefs  int
	OptimizeThrottle time.Duration
}

// Counter names tracked by the leak detector.
const (
	CounterRooms        = "rooms"
	CounterParticipants = "participants"
)

// MemorySystem is the facade over the four housekeeping services.
// Each subsystem both reacts to and can trigger the others: a critical
// usage alert forces a collection, a collection that frees little
// under pressure forces a leak scan, and a high or critical leak
// report forces an optimization pass over all rooms.
type MemorySystem struct {
	log *slog.Logger

	Timers    *TimerRegistry
	Monitor   *Monitor
	Collector *Collector
	Leaks     *LeakDetector
	Optimizer *Optimizer

	rooms       contract.RoomIndex
	subscribers func() int

	alerts      chan UsageAlert
	leakScan    chan struct{}
	optimizeAll chan struct{}

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewMemorySystem wires the four services around a shared timer
// registry. The registry is passed in because the rest of the process
// (batcher, workers) registers its timers there too.
func NewMemorySystem(log *slog.Logger, timers *TimerRegistry, rooms contract.RoomIndex, subscriberCount func() int, s Settings) *MemorySystem {
	m := &MemorySystem{
		log:         log,
		Timers:      timers,
		rooms:       rooms,
		subscribers: subscriberCount,
		alerts:      make(chan UsageAlert, 8),
		leakScan:    make(chan struct{}, 1),
		optimizeAll: make(chan struct{}, 1),
		stopped:     make(chan struct{}),
	}

	m.Monitor = NewMonitor(log, rooms, m.Timers, s.SampleInterval, s.HistoryLimit,
		s.WarnMB, s.CriticalMB, s.MaxTurnHistory, s.MaxChatLog, m.alerts)
	m.Collector = NewCollector(log, m.Monitor, m.Timers,
		s.GCInterval, s.GCMinInterval, s.GCMaxInterval, s.GCGrowthThreshold, s.CriticalMB)
	m.Leaks = NewLeakDetector(log, m.Timers, subscriberCount,
		s.LeakScanInterval, s.LeakGrowthPerMin, s.LeakSustainWindows, s.TimerCeiling, s.SubscriberCeiling)
	m.Optimizer = NewOptimizer(log, rooms, m.Timers, s.OptimizeInterval, s.OptimizeMinRefs, s.OptimizeThrottle)

	m.Collector.SetOnLowYield(func() {
		m.trigger(m.leakScan)
	})
	m.Leaks.SetOnReport(func(r LeakReport) {
		if r.Severity == SeverityHigh || r.Severity == SeverityCritical {
			m.trigger(m.optimizeAll)
		}
	})
	return m
}

// trigger requests a reaction without ever blocking the subsystem that
// raised it. The stopped check comes first on its own so a stopped
// system never queues a trigger.
func (m *MemorySystem) trigger(ch chan struct{}) {
	select {
	case <-m.stopped:
		return
	default:
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Workers returns every supervised goroutine of the memory layer.
func (m *MemorySystem) Workers() []contract.Worker {
	return []contract.Worker{m.Monitor, m.Collector, m.Leaks, m.Optimizer, &reactor{system: m}}
}

// Shutdown disables cross-triggers; safe to call any number of times.
// The supervised workers themselves stop with the supervisor context,
// releasing their tracked timer handles on the way out.
func (m *MemorySystem) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		m.log.Info("Memory management shutting down")
	})
}

// reactor is the cross-trigger loop between the four services.
type reactor struct {
	system *MemorySystem
}

func (r *reactor) Run(ctx context.Context) error {
	m := r.system
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping memory reactor")
			return nil
		case <-m.stopped:
			return nil
		case alert := <-m.alerts:
			m.log.Info("Reacting to usage alert", "level", alert.Level)
			m.Monitor.Cleanup()
			if alert.Level == AlertCritical {
				m.Collector.Force("critical-alert")
			}
		case <-m.leakScan:
			m.Leaks.Set(CounterParticipants, m.countParticipants())
			m.Leaks.Observe(time.Now().UTC())
		case <-m.optimizeAll:
			reports := m.Optimizer.OptimizeAll()
			saved := lo.SumBy(reports, func(r OptimizeReport) int64 { return r.BytesSaved })
			m.log.Info("Forced optimization pass finished", "rooms", len(reports), "bytes_saved", saved)
		}
	}
}

func (m *MemorySystem) countParticipants() int64 {
	total := int64(0)
	for _, room := range m.rooms.Rooms() {
		total += int64(room.ParticipantCount())
	}
	return total
}

// Status is the administrative snapshot. Exposure to callers is gated
// by the transport collaborator; nothing here mutates state.
type Status struct {
	Usage            UsageSample
	GrowthRateMBMin  float64
	Policy           Policy
	RecentRuns       []RunMetrics
	AvgFreedKB       uint64
	GCSuccessRate    float64
	LeakReports      []LeakReport
	TimerOutstanding int
	TimersByName     map[string]int
	Subscribers      int
	TotalBytesSaved  int64
	LastCleanup      CleanupReport
	LastOptimizeRun  time.Time
}

func (m *MemorySystem) Status() Status {
	usage, _ := m.Monitor.Latest()
	runs := m.Collector.Runs()

	status := Status{
		Usage:            usage,
		GrowthRateMBMin:  m.Monitor.GrowthRate(),
		Policy:           m.Collector.ActivePolicy(),
		RecentRuns:       runs,
		LeakReports:      m.Leaks.Reports(),
		TimerOutstanding: m.Timers.Outstanding(),
		TimersByName:     m.Timers.ByName(),
		Subscribers:      m.subscribers(),
		TotalBytesSaved:  m.Optimizer.TotalBytesSaved(),
		LastCleanup:      m.Monitor.LastCleanup(),
		LastOptimizeRun:  m.Optimizer.LastRun(),
	}
	if len(runs) > 0 {
		freed := lo.SumBy(runs, func(r RunMetrics) uint64 { return r.Freed })
		successes := lo.CountBy(runs, func(r RunMetrics) bool { return r.Success })
		status.AvgFreedKB = freed / uint64(len(runs)) / 1024
		status.GCSuccessRate = float64(successes) / float64(len(runs))
	}
	return status
}

// ForceCleanup is the privileged "clean everything now" operation:
// trim histories, run a collection, compact every room.
type ForceCleanupResult struct {
	Cleanup   CleanupReport
	Run       RunMetrics
	Optimized []OptimizeReport
}

func (m *MemorySystem) ForceCleanup() ForceCleanupResult {
	m.Monitor.Observe()
	return ForceCleanupResult{
		Cleanup:   m.Monitor.Cleanup(),
		Run:       m.Collector.Collect("forced"),
		Optimized: m.Optimizer.OptimizeAll(),
	}
}
