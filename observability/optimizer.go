package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"table-lab/contract"
	"table-lab/domain"

	"github.com/samber/lo"
)

// OptimizeReport is one structural pass over one room.
type OptimizeReport struct {
	RoomID          domain.RoomID
	StringsInterned int
	SlicesCompacted int
	BytesSaved      int64
	At              time.Time
}

// Optimizer runs on-demand structural passes over room state: string
// deduplication above a usage threshold and compaction of sparse
// history slices. It is invoked on room creation, on (throttled)
// room-change notifications, and by its own coarse timer across all
// rooms.
type Optimizer struct {
	mu  sync.Mutex
	log *slog.Logger

	rooms  contract.RoomIndex
	timers contract.TimerTracker

	interval time.Duration
	minRefs  int
	throttle time.Duration

	lastPass   map[domain.RoomID]time.Time
	totalSaved int64
	lastRun    time.Time
}

func NewOptimizer(log *slog.Logger, rooms contract.RoomIndex, timers contract.TimerTracker,
	interval time.Duration, minRefs int, throttle time.Duration) *Optimizer {
	return &Optimizer{
		log:      log,
		rooms:    rooms,
		timers:   timers,
		interval: interval,
		minRefs:  minRefs,
		throttle: throttle,
		lastPass: make(map[domain.RoomID]time.Time),
	}
}

func (o *Optimizer) Run(ctx context.Context) error {
	handle := o.timers.Track("structure-optimizer")
	defer o.timers.Release(handle)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Debug("Context done, stopping optimizer")
			return nil
		case <-ticker.C:
			o.OptimizeAll()
		}
	}
}

// OptimizeRoom runs one pass over one room, ignoring the throttle.
func (o *Optimizer) OptimizeRoom(room *domain.Room) OptimizeReport {
	report := room.CompactState(o.minRefs)
	out := OptimizeReport{
		RoomID:          room.ID,
		StringsInterned: report.StringsInterned,
		SlicesCompacted: report.SlicesCompacted,
		BytesSaved:      report.BytesSaved,
		At:              time.Now().UTC(),
	}

	o.mu.Lock()
	o.lastPass[room.ID] = out.At
	o.totalSaved += out.BytesSaved
	o.mu.Unlock()

	if out.BytesSaved > 0 {
		o.log.Debug("Room state compacted", "room", room.ID,
			"interned", out.StringsInterned, "bytes_saved", out.BytesSaved)
	}
	return out
}

// NotifyRoomChanged runs a throttled pass: a room that was optimized
// recently is skipped so chatty rooms don't spend their time
// compacting.
func (o *Optimizer) NotifyRoomChanged(room *domain.Room) (OptimizeReport, bool) {
	o.mu.Lock()
	last, seen := o.lastPass[room.ID]
	o.mu.Unlock()

	if seen && time.Since(last) < o.throttle {
		return OptimizeReport{}, false
	}
	return o.OptimizeRoom(room), true
}

// OptimizeAll passes over every live room.
func (o *Optimizer) OptimizeAll() []OptimizeReport {
	rooms := o.rooms.Rooms()
	reports := lo.Map(rooms, func(room *domain.Room, _ int) OptimizeReport {
		return o.OptimizeRoom(room)
	})

	o.mu.Lock()
	o.lastRun = time.Now().UTC()
	// Forget rooms that no longer exist so the throttle map cannot
	// grow with evicted rooms.
	live := make(map[domain.RoomID]struct{}, len(rooms))
	for _, room := range rooms {
		live[room.ID] = struct{}{}
	}
	for id := range o.lastPass {
		if _, ok := live[id]; !ok {
			delete(o.lastPass, id)
		}
	}
	o.mu.Unlock()

	return reports
}

func (o *Optimizer) TotalBytesSaved() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalSaved
}

func (o *Optimizer) LastRun() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRun
}
