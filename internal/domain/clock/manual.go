package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance is called. Due callbacks
// run synchronously on the goroutine calling Advance, in deadline order,
// and never while the clock's own lock is held.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	clock *Manual
	id    uint64
	at    time.Time
	fn    func()
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:    start,
		timers: make(map[uint64]*manualTimer),
	}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t := &manualTimer{clock: m, id: m.nextID, at: m.now.Add(d), fn: f}
	m.timers[t.id] = t
	return t
}

// Stop removes the timer if it is still pending.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.timers[t.id]; !ok {
		return false
	}
	delete(t.clock.timers, t.id)
	return true
}

// Advance moves the clock forward by d, firing every callback that becomes
// due, including callbacks scheduled by earlier callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.earliestLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.timers, next.id)
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}

// earliestLocked returns the pending timer with the smallest deadline not
// after target. Ties fire in scheduling order.
func (m *Manual) earliestLocked(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.id < best.id) {
			best = t
		}
	}
	return best
}

// Pending returns the number of callbacks that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
