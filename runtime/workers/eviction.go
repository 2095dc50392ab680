package workers

import (
	"context"
	"log/slog"
	"time"

	"table-lab/contract"
	"table-lab/domain"
)

// RoomEvictor is what the worker needs from the room manager.
type RoomEvictor interface {
	EvictIdle(window time.Duration) []*domain.Room
}

// EvictionWorker periodically retires rooms that sat idle beyond the
// configured window and are not mid-encounter.
type EvictionWorker struct {
	log      *slog.Logger
	evictor  RoomEvictor
	timers   contract.TimerTracker
	interval time.Duration
	window   time.Duration
}

func NewEvictionWorker(log *slog.Logger, evictor RoomEvictor, timers contract.TimerTracker,
	interval, window time.Duration) *EvictionWorker {
	return &EvictionWorker{log: log, evictor: evictor, timers: timers, interval: interval, window: window}
}

func (w *EvictionWorker) Run(ctx context.Context) error {
	handle := w.timers.Track("room-eviction")
	defer w.timers.Release(handle)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping room eviction")
			return nil
		case <-ticker.C:
			evicted := w.evictor.EvictIdle(w.window)
			if len(evicted) > 0 {
				w.log.Info("Idle rooms evicted", "count", len(evicted))
			}
		}
	}
}
