package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"table-lab/contract"

	"github.com/shirou/gopsutil/process"
)

type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// UsageSample is one point of the rolling usage history.
type UsageSample struct {
	At        time.Time
	HeapAlloc uint64
	HeapSys   uint64
	NumGC     uint32
	RSS       uint64
	Percent   float32
}

// UsageAlert is raised when usage crosses a configured threshold.
type UsageAlert struct {
	Level  AlertLevel
	Sample UsageSample
}

// CleanupReport sums one history-trimming pass over all rooms.
type CleanupReport struct {
	Rooms          int
	EntriesDropped int
	At             time.Time
}

// Monitor samples process and heap usage on a timer, keeps a bounded
// rolling history and raises tiered alerts on threshold crossings.
// Alerts are edge-triggered: one per level change, not one per tick.
type Monitor struct {
	mu  sync.Mutex
	log *slog.Logger

	rooms  contract.RoomIndex
	timers contract.TimerTracker
	proc   *process.Process

	interval     time.Duration
	historyLimit int
	warnBytes    uint64
	critBytes    uint64

	maxTurnHistory int
	maxChatLog     int

	history   []UsageSample
	lastLevel AlertLevel
	alerts    chan<- UsageAlert
	lastClean CleanupReport
}

func NewMonitor(log *slog.Logger, rooms contract.RoomIndex, timers contract.TimerTracker,
	interval time.Duration, historyLimit int, warnMB, critMB uint64,
	maxTurnHistory, maxChatLog int, alerts chan<- UsageAlert) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Heap stats still work without the process handle.
		log.Warn("Process handle unavailable, RSS sampling disabled", "err", err)
	}
	return &Monitor{
		log:            log,
		rooms:          rooms,
		timers:         timers,
		proc:           proc,
		interval:       interval,
		historyLimit:   historyLimit,
		warnBytes:      warnMB * 1024 * 1024,
		critBytes:      critMB * 1024 * 1024,
		maxTurnHistory: maxTurnHistory,
		maxChatLog:     maxChatLog,
		lastLevel:      AlertNone,
		alerts:         alerts,
	}
}

func (m *Monitor) Run(ctx context.Context) error {
	handle := m.timers.Track("memory-monitor")
	defer m.timers.Release(handle)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping memory monitor")
			return nil
		case <-ticker.C:
			m.Observe()
		}
	}
}

// Observe takes one sample, appends it to the bounded history and
// raises an alert when the usage level changed.
func (m *Monitor) Observe() UsageSample {
	sample := m.sample()

	m.mu.Lock()
	m.history = append(m.history, sample)
	if m.historyLimit > 0 && len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
	level := m.classify(sample)
	crossed := level != m.lastLevel && level != AlertNone
	m.lastLevel = level
	alerts := m.alerts
	m.mu.Unlock()

	if crossed {
		m.log.Warn("Memory usage threshold crossed", "level", level,
			"heap_mb", sample.HeapAlloc/1024/1024, "rss_mb", sample.RSS/1024/1024)
		if alerts != nil {
			select {
			case alerts <- UsageAlert{Level: level, Sample: sample}:
			default:
				m.log.Debug("Usage alert dropped, channel full")
			}
		}
	}
	return sample
}

func (m *Monitor) sample() UsageSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := UsageSample{
		At:        time.Now().UTC(),
		HeapAlloc: ms.HeapAlloc,
		HeapSys:   ms.HeapSys,
		NumGC:     ms.NumGC,
	}
	if m.proc != nil {
		if info, err := m.proc.MemoryInfo(); err == nil {
			sample.RSS = info.RSS
		}
		if pct, err := m.proc.MemoryPercent(); err == nil {
			sample.Percent = pct
		}
	}
	return sample
}

func (m *Monitor) classify(s UsageSample) AlertLevel {
	usage := s.RSS
	if usage == 0 {
		usage = s.HeapAlloc
	}
	switch {
	case m.critBytes > 0 && usage >= m.critBytes:
		return AlertCritical
	case m.warnBytes > 0 && usage >= m.warnBytes:
		return AlertWarning
	default:
		return AlertNone
	}
}

// Cleanup trims every room's turn and chat history to the configured
// maximum.
func (m *Monitor) Cleanup() CleanupReport {
	report := CleanupReport{At: time.Now().UTC()}
	for _, room := range m.rooms.Rooms() {
		report.Rooms++
		report.EntriesDropped += room.TrimHistory(m.maxTurnHistory, m.maxChatLog)
	}

	m.mu.Lock()
	m.lastClean = report
	m.mu.Unlock()

	if report.EntriesDropped > 0 {
		m.log.Info("Room histories trimmed", "rooms", report.Rooms, "entries", report.EntriesDropped)
	}
	return report
}

func (m *Monitor) History() []UsageSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UsageSample(nil), m.history...)
}

func (m *Monitor) Latest() (UsageSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return UsageSample{}, false
	}
	return m.history[len(m.history)-1], true
}

func (m *Monitor) LastCleanup() CleanupReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastClean
}

// GrowthRate returns the heap growth in MB per minute over the rolling
// history, 0 until two samples exist.
func (m *Monitor) GrowthRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < 2 {
		return 0
	}
	first, last := m.history[0], m.history[len(m.history)-1]
	minutes := last.At.Sub(first.At).Minutes()
	if minutes <= 0 {
		return 0
	}
	deltaMB := (float64(last.HeapAlloc) - float64(first.HeapAlloc)) / 1024 / 1024
	return deltaMB / minutes
}
