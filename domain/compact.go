package domain

// CompactReport sums what one structural pass over a room reclaimed.
type CompactReport struct {
	StringsInterned int
	SlicesCompacted int
	BytesSaved      int64
}

// CompactState runs one structural pass over the room's game state:
// repeated string values referenced at least minRefs times are
// replaced by a single canonical instance, and history slices whose
// backing arrays grew far beyond their length are reallocated tight.
// Returns an estimate of the bytes this pass made reclaimable.
func (r *Room) CompactState(minRefs int) CompactReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report CompactReport
	pool := newInternPool(minRefs)

	for _, p := range r.state.Participants {
		for c := range p.Conditions {
			pool.observe(c)
		}
		for slot, item := range p.Inventory.Equipped {
			pool.observe(slot)
			pool.observe(item)
		}
	}
	for i := range r.state.TurnHistory {
		pool.observe(r.state.TurnHistory[i].EntityID)
		pool.observe(r.state.TurnHistory[i].TargetID)
	}
	for i := range r.state.ChatLog {
		pool.observe(r.state.ChatLog[i].UserID)
	}

	for _, p := range r.state.Participants {
		for slot, item := range p.Inventory.Equipped {
			if canon, saved := pool.intern(item); saved != 0 {
				p.Inventory.Equipped[slot] = canon
				report.StringsInterned++
				report.BytesSaved += saved
			}
		}
	}
	for i := range r.state.TurnHistory {
		rec := &r.state.TurnHistory[i]
		if canon, saved := pool.intern(rec.EntityID); saved != 0 {
			rec.EntityID = canon
			report.StringsInterned++
			report.BytesSaved += saved
		}
		if canon, saved := pool.intern(rec.TargetID); saved != 0 {
			rec.TargetID = canon
			report.StringsInterned++
			report.BytesSaved += saved
		}
	}
	for i := range r.state.ChatLog {
		entry := &r.state.ChatLog[i]
		if canon, saved := pool.intern(entry.UserID); saved != 0 {
			entry.UserID = canon
			report.StringsInterned++
			report.BytesSaved += saved
		}
	}

	if slack := cap(r.state.TurnHistory) - len(r.state.TurnHistory); slack > compactionSlack {
		r.state.TurnHistory = append([]TurnRecord(nil), r.state.TurnHistory...)
		report.SlicesCompacted++
		report.BytesSaved += int64(slack) * int64(turnRecordFootprint)
	}
	if slack := cap(r.state.ChatLog) - len(r.state.ChatLog); slack > compactionSlack {
		r.state.ChatLog = append([]ChatEntry(nil), r.state.ChatLog...)
		report.SlicesCompacted++
		report.BytesSaved += int64(slack) * int64(chatEntryFootprint)
	}
	return report
}

// Slack entries tolerated before a slice is reallocated, and rough
// per-entry footprints used for the bytes-saved estimate.
const (
	compactionSlack     = 32
	turnRecordFootprint = 96
	chatEntryFootprint  = 56
)

type internPool struct {
	minRefs int
	refs    map[string]int
	canon   map[string]string
}

func newInternPool(minRefs int) *internPool {
	if minRefs < 2 {
		minRefs = 2
	}
	return &internPool{minRefs: minRefs, refs: make(map[string]int), canon: make(map[string]string)}
}

func (p *internPool) observe(s string) {
	if s != "" {
		p.refs[s]++
	}
}

// intern returns the canonical instance for s and the estimated bytes
// saved by dropping one duplicate, or (s, 0) when s is below the
// reference threshold or already canonical.
func (p *internPool) intern(s string) (string, int64) {
	if s == "" || p.refs[s] < p.minRefs {
		return s, 0
	}
	canon, ok := p.canon[s]
	if !ok {
		p.canon[s] = s
		return s, 0
	}
	return canon, int64(len(s))
}
