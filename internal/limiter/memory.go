package limiter

import (
	"sync"
	"time"
)

type counter struct {
	shownToday    int
	lastResetDate time.Time
}

// Memory is the default, process-local Limiter: a mutex-guarded map with
// no persistence across restarts.
type Memory struct {
	mu      sync.Mutex
	counts  map[uint64]*counter
	limits  Limits
	nowFunc func() time.Time
}

func NewMemory(limits Limits) *Memory {
	return &Memory{
		counts:  make(map[uint64]*counter),
		limits:  limits,
		nowFunc: time.Now,
	}
}

func (m *Memory) CheckAndIncrement(userID uint64, isPremium bool) (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc().UTC()
	c := m.resetIfDue(userID, now)
	max := maxFor(isPremium, m.limits)

	if c.shownToday >= max {
		return false, 0
	}
	c.shownToday++
	return true, max - c.shownToday
}

func (m *Memory) StatusFor(userID uint64, isPremium bool) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc().UTC()
	c := m.resetIfDue(userID, now)
	max := maxFor(isPremium, m.limits)
	remaining := max - c.shownToday
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		ShownToday:     c.shownToday,
		Max:            max,
		Remaining:      remaining,
		LastResetDate:  c.lastResetDate,
		NextResetDate:  c.lastResetDate.Add(time.Duration(m.limits.RefreshIntervalHours) * time.Hour),
		QueueExhausted: c.shownToday >= max,
	}
}

// resetIfDue must be called with mu held.
func (m *Memory) resetIfDue(userID uint64, now time.Time) *counter {
	c, ok := m.counts[userID]
	if !ok {
		c = &counter{lastResetDate: now}
		m.counts[userID] = c
		return c
	}
	if now.Sub(c.lastResetDate) >= time.Duration(m.limits.RefreshIntervalHours)*time.Hour {
		c.shownToday = 0
		c.lastResetDate = now
	}
	return c
}
