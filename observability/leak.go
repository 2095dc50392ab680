package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"table-lab/contract"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// LeakReport is a severity-graded signal that a tracked resource's
// growth is not sustainable.
type LeakReport struct {
	Resource     string
	Severity     Severity
	GrowthPerMin float64
	Windows      int
	Value        int64
	Message      string
	At           time.Time
}

type counterSample struct {
	at    time.Time
	value int64
}

type trackedCounter struct {
	value     int64
	samples   []counterSample
	excursion int
	reported  bool
}

// LeakDetector tracks named resource counters as event-driven
// increments and decrements, derives rolling growth rates, and raises
// a report when a counter grows past the threshold for enough
// consecutive sampling windows. One sustained excursion yields exactly
// one report; the counter must fall back under the threshold before it
// can report again. It also watches the two usual suspects directly:
// outstanding timer handles and the subscriber count.
type LeakDetector struct {
	mu  sync.Mutex
	log *slog.Logger

	counters map[string]*trackedCounter

	scanInterval   time.Duration
	growthPerMin   float64
	sustainWindows int
	sampleWindow   int

	timers            contract.TimerTracker
	subscriberCount   func() int
	timerCeiling      int
	subscriberCeiling int

	timerBreached      bool
	subscriberBreached bool

	onReport func(LeakReport)
	history  []LeakReport
}

const (
	leakSampleWindow = 10
	leakHistoryLimit = 50
)

func NewLeakDetector(log *slog.Logger, timers contract.TimerTracker, subscriberCount func() int,
	scanInterval time.Duration, growthPerMin float64, sustainWindows, timerCeiling, subscriberCeiling int) *LeakDetector {
	return &LeakDetector{
		log:               log,
		counters:          make(map[string]*trackedCounter),
		scanInterval:      scanInterval,
		growthPerMin:      growthPerMin,
		sustainWindows:    sustainWindows,
		sampleWindow:      leakSampleWindow,
		timers:            timers,
		subscriberCount:   subscriberCount,
		timerCeiling:      timerCeiling,
		subscriberCeiling: subscriberCeiling,
	}
}

// SetOnReport installs the facade's cross-trigger callback.
func (d *LeakDetector) SetOnReport(fn func(LeakReport)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReport = fn
}

func (d *LeakDetector) Increment(name string) { d.add(name, 1) }
func (d *LeakDetector) Decrement(name string) { d.add(name, -1) }

func (d *LeakDetector) add(name string, delta int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.counter(name)
	c.value += delta
	if c.value < 0 {
		c.value = 0
	}
}

// Set replaces a counter's value outright, for gauges fed from an
// external count.
func (d *LeakDetector) Set(name string, value int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counter(name).value = value
}

func (d *LeakDetector) Value(name string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.counters[name]; ok {
		return c.value
	}
	return 0
}

func (d *LeakDetector) counter(name string) *trackedCounter {
	c, ok := d.counters[name]
	if !ok {
		c = &trackedCounter{}
		d.counters[name] = c
	}
	return c
}

func (d *LeakDetector) Run(ctx context.Context) error {
	handle := d.timers.Track("leak-detector")
	defer d.timers.Release(handle)

	ticker := time.NewTicker(d.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Context done, stopping leak detector")
			return nil
		case <-ticker.C:
			d.Observe(time.Now().UTC())
		}
	}
}

// Observe snapshots every counter at the given time and evaluates the
// growth-rate and ceiling rules. It returns the reports raised by this
// window, usually none.
func (d *LeakDetector) Observe(now time.Time) []LeakReport {
	d.mu.Lock()

	var raised []LeakReport
	for name, c := range d.counters {
		c.samples = append(c.samples, counterSample{at: now, value: c.value})
		if len(c.samples) > d.sampleWindow {
			c.samples = c.samples[len(c.samples)-d.sampleWindow:]
		}

		growth := growthPerMinute(c.samples)
		if growth > d.growthPerMin {
			c.excursion++
			if c.excursion >= d.sustainWindows && !c.reported {
				c.reported = true
				raised = append(raised, LeakReport{
					Resource:     name,
					Severity:     d.gradeGrowth(growth),
					GrowthPerMin: growth,
					Windows:      c.excursion,
					Value:        c.value,
					Message:      "sustained growth above threshold",
					At:           now,
				})
			}
		} else {
			c.excursion = 0
			c.reported = false
		}
	}

	// Ceiling breaches report once per excursion too: the count must
	// drop back under the ceiling before another report is raised.
	if d.timers != nil && d.timerCeiling > 0 {
		outstanding := d.timers.Outstanding()
		if outstanding > d.timerCeiling && !d.timerBreached {
			d.timerBreached = true
			raised = append(raised, LeakReport{
				Resource: "timer-handles",
				Severity: SeverityHigh,
				Value:    int64(outstanding),
				Message:  "outstanding timer handles above ceiling",
				At:       now,
			})
		} else if outstanding <= d.timerCeiling {
			d.timerBreached = false
		}
	}
	if d.subscriberCount != nil && d.subscriberCeiling > 0 {
		subs := d.subscriberCount()
		if subs > d.subscriberCeiling && !d.subscriberBreached {
			d.subscriberBreached = true
			raised = append(raised, LeakReport{
				Resource: "event-subscribers",
				Severity: SeverityHigh,
				Value:    int64(subs),
				Message:  "subscriber count above ceiling",
				At:       now,
			})
		} else if subs <= d.subscriberCeiling {
			d.subscriberBreached = false
		}
	}

	d.history = append(d.history, raised...)
	if len(d.history) > leakHistoryLimit {
		d.history = d.history[len(d.history)-leakHistoryLimit:]
	}
	onReport := d.onReport
	d.mu.Unlock()

	for _, report := range raised {
		d.log.Warn("Leak detected", "resource", report.Resource, "severity", report.Severity,
			"growth_per_min", report.GrowthPerMin, "value", report.Value)
		if onReport != nil {
			onReport(report)
		}
	}
	return raised
}

// gradeGrowth maps how far past the threshold a counter is growing to
// a severity.
func (d *LeakDetector) gradeGrowth(growth float64) Severity {
	ratio := growth / d.growthPerMin
	switch {
	case ratio >= 4:
		return SeverityCritical
	case ratio >= 2:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func (d *LeakDetector) Reports() []LeakReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]LeakReport(nil), d.history...)
}

// growthPerMinute fits the rolling window's first and last samples.
func growthPerMinute(samples []counterSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	first, last := samples[0], samples[len(samples)-1]
	minutes := last.at.Sub(first.at).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(last.value-first.value) / minutes
}
