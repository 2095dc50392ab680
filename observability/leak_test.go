package observability

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDetector(subscribers func() int, timerCeiling, subscriberCeiling int) (*LeakDetector, *TimerRegistry) {
	timers := NewTimerRegistry()
	d := NewLeakDetector(slog.Default(), timers, subscribers,
		time.Second, 10, 3, timerCeiling, subscriberCeiling)
	return d, timers
}

func TestLeakDetector_CounterArithmetic(t *testing.T) {
	req := require.New(t)
	d, _ := newTestDetector(nil, 0, 0)

	req.Zero(d.Value("rooms"))
	d.Increment("rooms")
	d.Increment("rooms")
	d.Decrement("rooms")
	req.Equal(int64(1), d.Value("rooms"))

	// Counters never go negative
	d.Decrement("rooms")
	d.Decrement("rooms")
	req.Zero(d.Value("rooms"))

	d.Set("rooms", 42)
	req.Equal(int64(42), d.Value("rooms"))
}

func TestLeakDetector_SustainedGrowthReportsOnce(t *testing.T) {
	req := require.New(t)
	d, _ := newTestDetector(nil, 0, 0)
	base := time.Now().UTC()

	var total []LeakReport
	// 20 per minute against a threshold of 10
	for i := 0; i < 5; i++ {
		d.Set("rooms", int64(20*(i+1)))
		total = append(total, d.Observe(base.Add(time.Duration(i)*time.Minute))...)
	}

	req.Len(total, 1)
	report := total[0]
	req.Equal("rooms", report.Resource)
	req.Equal(SeverityHigh, report.Severity)
	req.InDelta(20.0, report.GrowthPerMin, 0.01)
	req.Equal(3, report.Windows)
	req.Equal(total, d.Reports())
}

func TestLeakDetector_NewExcursionReportsAgain(t *testing.T) {
	req := require.New(t)
	d, _ := newTestDetector(nil, 0, 0)
	base := time.Now().UTC()
	at := func(i int) time.Time { return base.Add(time.Duration(i) * time.Minute) }

	var total []LeakReport
	for i := 0; i < 5; i++ {
		d.Set("rooms", int64(20*(i+1)))
		total = append(total, d.Observe(at(i))...)
	}
	req.Len(total, 1)

	// Falling back under the threshold arms the detector again
	d.Set("rooms", 20)
	req.Empty(d.Observe(at(5)))

	for i, value := range []int64{200, 400, 600} {
		d.Set("rooms", value)
		total = append(total, d.Observe(at(6+i))...)
	}

	req.Len(total, 2)
	req.Equal("rooms", total[1].Resource)
	req.Equal(SeverityCritical, total[1].Severity)
}

func TestLeakDetector_TimerCeilingBreach(t *testing.T) {
	req := require.New(t)
	d, timers := newTestDetector(nil, 2, 0)
	timers.Track("a")
	timers.Track("b")
	handle := timers.Track("c")

	reports := d.Observe(time.Now().UTC())
	req.Len(reports, 1)
	req.Equal("timer-handles", reports[0].Resource)
	req.Equal(SeverityHigh, reports[0].Severity)
	req.Equal(int64(3), reports[0].Value)

	// Still above the ceiling, no repeat report
	req.Empty(d.Observe(time.Now().UTC()))

	// Dropping under re-arms the breach
	timers.Release(handle)
	req.Empty(d.Observe(time.Now().UTC()))
	timers.Track("d")
	req.Len(d.Observe(time.Now().UTC()), 1)
}

func TestLeakDetector_SubscriberCeilingBreach(t *testing.T) {
	req := require.New(t)
	subs := 10
	d, _ := newTestDetector(func() int { return subs }, 0, 5)

	reports := d.Observe(time.Now().UTC())
	req.Len(reports, 1)
	req.Equal("event-subscribers", reports[0].Resource)
	req.Equal(int64(10), reports[0].Value)

	// Still breached, armed until the count falls back under
	req.Empty(d.Observe(time.Now().UTC()))
	subs = 3
	req.Empty(d.Observe(time.Now().UTC()))
	subs = 8
	req.Len(d.Observe(time.Now().UTC()), 1)
}

func TestLeakDetector_OnReportCallback(t *testing.T) {
	req := require.New(t)
	d, _ := newTestDetector(func() int { return 10 }, 0, 5)

	var seen []LeakReport
	d.SetOnReport(func(r LeakReport) { seen = append(seen, r) })

	d.Observe(time.Now().UTC())
	req.Len(seen, 1)
	req.Equal("event-subscribers", seen[0].Resource)
}
