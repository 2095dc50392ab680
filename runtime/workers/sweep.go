package workers

import (
	"context"
	"log/slog"
	"time"

	"table-lab/contract"
)

// SubscriptionSweeper is what the worker needs from the broadcaster.
type SubscriptionSweeper interface {
	SweepIdle(timeout time.Duration) int
}

// SweepWorker drops subscriptions idle beyond the timeout so a client
// that vanished without unsubscribing doesn't pin its callback
// forever.
type SweepWorker struct {
	log      *slog.Logger
	sweeper  SubscriptionSweeper
	timers   contract.TimerTracker
	interval time.Duration
	timeout  time.Duration
}

func NewSweepWorker(log *slog.Logger, sweeper SubscriptionSweeper, timers contract.TimerTracker,
	interval, timeout time.Duration) *SweepWorker {
	return &SweepWorker{log: log, sweeper: sweeper, timers: timers, interval: interval, timeout: timeout}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	handle := w.timers.Track("subscription-sweep")
	defer w.timers.Release(handle)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping subscription sweep")
			return nil
		case <-ticker.C:
			if dropped := w.sweeper.SweepIdle(w.timeout); dropped > 0 {
				w.log.Info("Idle subscriptions swept", "count", dropped)
			}
		}
	}
}
