package observability

import (
	"log/slog"
	"testing"
	"time"

	"table-lab/domain"

	"github.com/stretchr/testify/require"
)

// fakeRooms is a static room index for the housekeeping tests.
type fakeRooms struct {
	rooms []*domain.Room
}

func (f *fakeRooms) Rooms() []*domain.Room { return f.rooms }

func (f *fakeRooms) RoomByInteraction(interactionID string) (*domain.Room, bool) {
	for _, r := range f.rooms {
		if r.InteractionID == interactionID {
			return r, true
		}
	}
	return nil, false
}

type noHandlers struct{}

func (noHandlers) Handler(domain.ActionType) (domain.ActionHandler, bool) { return nil, false }

func roomWithChat(interaction string, chats int) *domain.Room {
	room := domain.NewRoom(interaction, "gm", domain.NewGameState(), noHandlers{})
	for i := 0; i < chats; i++ {
		room.PostChat(domain.ChatEntry{UserID: "alice", Content: "line"}, 0)
	}
	return room
}

func newTestMonitor(rooms *fakeRooms, warnMB, critMB uint64, alerts chan UsageAlert) *Monitor {
	return NewMonitor(slog.Default(), rooms, NewTimerRegistry(),
		time.Second, 10, warnMB, critMB, 5, 5, alerts)
}

func TestMonitor_ObserveKeepsBoundedHistory(t *testing.T) {
	req := require.New(t)
	m := newTestMonitor(&fakeRooms{}, 0, 0, nil)

	for i := 0; i < 15; i++ {
		m.Observe()
	}

	req.Len(m.History(), 10)
	latest, ok := m.Latest()
	req.True(ok)
	req.NotZero(latest.HeapAlloc)
}

func TestMonitor_AlertsAreEdgeTriggered(t *testing.T) {
	req := require.New(t)
	alerts := make(chan UsageAlert, 4)
	// 1 MB warning threshold: any real process sits above it
	m := newTestMonitor(&fakeRooms{}, 1, 0, alerts)

	m.Observe()
	m.Observe()
	m.Observe()

	// The level was crossed once, so exactly one alert fired
	req.Len(alerts, 1)
	alert := <-alerts
	req.Equal(AlertWarning, alert.Level)
}

func TestMonitor_ClassifyThresholds(t *testing.T) {
	req := require.New(t)
	m := newTestMonitor(&fakeRooms{}, 100, 200, nil)

	mb := uint64(1024 * 1024)
	req.Equal(AlertNone, m.classify(UsageSample{RSS: 50 * mb}))
	req.Equal(AlertWarning, m.classify(UsageSample{RSS: 120 * mb}))
	req.Equal(AlertCritical, m.classify(UsageSample{RSS: 300 * mb}))

	// Heap stands in when no RSS reading is available
	req.Equal(AlertCritical, m.classify(UsageSample{HeapAlloc: 300 * mb}))
}

func TestMonitor_CleanupTrimsEveryRoom(t *testing.T) {
	req := require.New(t)
	first := roomWithChat("interaction-1", 20)
	second := roomWithChat("interaction-2", 3)
	m := newTestMonitor(&fakeRooms{rooms: []*domain.Room{first, second}}, 0, 0, nil)

	report := m.Cleanup()
	req.Equal(2, report.Rooms)
	req.Equal(15, report.EntriesDropped)
	req.Len(first.Snapshot().ChatLog, 5)
	req.Len(second.Snapshot().ChatLog, 3)
	req.Equal(report, m.LastCleanup())
}

func TestMonitor_GrowthRateFromHistoryEndpoints(t *testing.T) {
	req := require.New(t)
	m := newTestMonitor(&fakeRooms{}, 0, 0, nil)

	req.Zero(m.GrowthRate())

	base := time.Now().UTC()
	mb := uint64(1024 * 1024)
	m.history = []UsageSample{
		{At: base, HeapAlloc: 100 * mb},
		{At: base.Add(time.Minute), HeapAlloc: 110 * mb},
		{At: base.Add(2 * time.Minute), HeapAlloc: 130 * mb},
	}

	// 30 MB over 2 minutes
	req.InDelta(15.0, m.GrowthRate(), 0.01)
}
