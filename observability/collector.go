package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"table-lab/contract"
)

type Policy string

const (
	PolicyConservative Policy = "conservative"
	PolicyBalanced     Policy = "balanced"
	PolicyAggressive   Policy = "aggressive"
)

// policyParams define, per policy, when a collection triggers and how
// hard it works once it does.
type policyParams struct {
	triggerFraction float64 // of the critical threshold
	passes          int
	passYield       time.Duration
}

var policies = map[Policy]policyParams{
	PolicyConservative: {triggerFraction: 0.85, passes: 1, passYield: 0},
	PolicyBalanced:     {triggerFraction: 0.65, passes: 2, passYield: 10 * time.Millisecond},
	PolicyAggressive:   {triggerFraction: 0.45, passes: 3, passYield: 5 * time.Millisecond},
}

// RunMetrics records one collection run, successful or not.
type RunMetrics struct {
	At       time.Time
	Policy   Policy
	Reason   string
	Duration time.Duration
	Before   uint64
	After    uint64
	Freed    uint64
	Success  bool
}

// Collector decides when explicit collection passes are worth their
// cost. The active policy's predicate looks at current usage and time
// since the last run; minimum and maximum inter-run bounds and a
// sustained heap-growth check override the policy either way. Every
// adaptWindow runs the recent metrics are evaluated and the policy may
// be promoted or demoted.
type Collector struct {
	mu  sync.Mutex
	log *slog.Logger

	monitor *Monitor
	timers  contract.TimerTracker

	policy          Policy
	interval        time.Duration
	minInterval     time.Duration
	maxInterval     time.Duration
	growthThreshold float64 // MB per minute
	critBytes       uint64

	lastRun    time.Time
	runs       []RunMetrics
	totalRuns  int
	force      chan string
	onLowYield func()
}

const (
	adaptWindow     = 10
	runHistoryLimit = 50
	// A run under high usage that frees less than this fraction of the
	// heap counts as low-yield and triggers a leak scan.
	lowYieldFraction = 0.02
)

func NewCollector(log *slog.Logger, monitor *Monitor, timers contract.TimerTracker,
	interval, minInterval, maxInterval time.Duration, growthThreshold float64, critMB uint64) *Collector {
	return &Collector{
		log:             log,
		monitor:         monitor,
		timers:          timers,
		policy:          PolicyBalanced,
		interval:        interval,
		minInterval:     minInterval,
		maxInterval:     maxInterval,
		growthThreshold: growthThreshold,
		critBytes:       critMB * 1024 * 1024,
		force:           make(chan string, 1),
	}
}

// Force requests an immediate collection run outside the policy
// predicate, used by the facade when a critical alert fires.
func (c *Collector) Force(reason string) {
	select {
	case c.force <- reason:
	default:
		// A forced run is already queued.
	}
}

// SetOnLowYield installs the cross-trigger the facade uses to chain a
// leak scan after a disappointing run.
func (c *Collector) SetOnLowYield(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLowYield = fn
}

func (c *Collector) Run(ctx context.Context) error {
	handle := c.timers.Track("gc-collector")
	defer c.timers.Release(handle)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Context done, stopping collector")
			return nil
		case reason := <-c.force:
			c.Collect(reason)
		case <-ticker.C:
			if reason, ok := c.shouldRun(time.Now().UTC()); ok {
				c.Collect(reason)
			}
		}
	}
}

// shouldRun is the trigger predicate: policy threshold over current
// usage, bounded below by minInterval, forced above by maxInterval,
// and forced by sustained heap growth.
func (c *Collector) shouldRun(now time.Time) (string, bool) {
	c.mu.Lock()
	policy := c.policy
	last := c.lastRun
	c.mu.Unlock()

	sinceLast := now.Sub(last)
	if !last.IsZero() && sinceLast < c.minInterval {
		return "", false
	}
	if !last.IsZero() && c.maxInterval > 0 && sinceLast >= c.maxInterval {
		return "max-interval", true
	}
	if c.growthThreshold > 0 && c.monitor.GrowthRate() >= c.growthThreshold {
		return "heap-growth", true
	}

	sample, ok := c.monitor.Latest()
	if !ok {
		return "", false
	}
	usage := sample.RSS
	if usage == 0 {
		usage = sample.HeapAlloc
	}
	if c.critBytes > 0 && float64(usage) >= policies[policy].triggerFraction*float64(c.critBytes) {
		return "policy:" + string(policy), true
	}
	return "", false
}

// Collect performs the active policy's collection passes with a short
// yield between them and records before/after usage. A run that frees
// little despite high usage fires the low-yield cross-trigger.
func (c *Collector) Collect(reason string) RunMetrics {
	c.mu.Lock()
	params := policies[c.policy]
	policy := c.policy
	c.mu.Unlock()

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	for i := 0; i < params.passes; i++ {
		runtime.GC()
		if params.passYield > 0 && i < params.passes-1 {
			time.Sleep(params.passYield)
		}
	}

	runtime.ReadMemStats(&after)
	metrics := RunMetrics{
		At:       time.Now().UTC(),
		Policy:   policy,
		Reason:   reason,
		Duration: time.Since(start),
		Before:   before.HeapAlloc,
		After:    after.HeapAlloc,
		Success:  true,
	}
	if after.HeapAlloc < before.HeapAlloc {
		metrics.Freed = before.HeapAlloc - after.HeapAlloc
	}
	c.record(metrics)

	c.log.Debug("Collection run finished", "policy", policy, "reason", reason,
		"freed_kb", metrics.Freed/1024, "duration", metrics.Duration)

	c.maybeLowYield(before.HeapAlloc, metrics.Freed)
	return metrics
}

// maybeLowYield fires the cross-trigger when a run under high usage
// freed less than lowYieldFraction of the heap it started with.
func (c *Collector) maybeLowYield(before, freed uint64) {
	c.mu.Lock()
	fn := c.onLowYield
	c.mu.Unlock()
	if fn == nil {
		return
	}
	highUsage := c.critBytes > 0 && float64(before) >= 0.5*float64(c.critBytes)
	if highUsage && float64(freed) < lowYieldFraction*float64(before) {
		fn()
	}
}

// record appends run metrics, failed runs included, and re-evaluates
// the policy every adaptWindow runs.
func (c *Collector) record(m RunMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastRun = m.At
	c.totalRuns++
	c.runs = append(c.runs, m)
	if len(c.runs) > runHistoryLimit {
		c.runs = c.runs[len(c.runs)-runHistoryLimit:]
	}
	if c.totalRuns%adaptWindow == 0 {
		c.adaptLocked()
	}
}

// adaptLocked demotes to conservative when runs keep failing, promotes
// to aggressive when runs are cheap and productive, and settles on
// balanced otherwise.
func (c *Collector) adaptLocked() {
	window := c.runs
	if len(window) > adaptWindow {
		window = window[len(window)-adaptWindow:]
	}
	if len(window) == 0 {
		return
	}

	var freed uint64
	var duration time.Duration
	successes := 0
	for _, r := range window {
		freed += r.Freed
		duration += r.Duration
		if r.Success {
			successes++
		}
	}
	successRate := float64(successes) / float64(len(window))
	avgFreed := freed / uint64(len(window))
	avgDuration := duration / time.Duration(len(window))

	previous := c.policy
	switch {
	case successRate < 0.5:
		c.policy = PolicyConservative
	case avgFreed > 4*1024*1024 && avgDuration < 50*time.Millisecond:
		c.policy = PolicyAggressive
	default:
		c.policy = PolicyBalanced
	}
	if c.policy != previous {
		c.log.Info("Collection policy adapted", "from", previous, "to", c.policy,
			"success_rate", successRate, "avg_freed_kb", avgFreed/1024, "avg_duration", avgDuration)
	}
}

func (c *Collector) ActivePolicy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

func (c *Collector) Runs() []RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RunMetrics(nil), c.runs...)
}
