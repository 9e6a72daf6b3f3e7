// Package limiter implements the per-user daily-suggestion counter: a
// daily reset window, a free tier and a premium tier, and the two
// operations every caller needs — check-and-increment, and a read-only
// status view.
package limiter

import "time"

// Status is the read-only view of a user's current window.
type Status struct {
	ShownToday     int
	Max            int
	Remaining      int
	LastResetDate  time.Time
	NextResetDate  time.Time
	QueueExhausted bool
}

// Limits configures a Limiter's thresholds.
type Limits struct {
	MaxDailySuggestions       int
	PremiumMaxDailySuggestions int
	RefreshIntervalHours      int
}

// Limiter is implemented by Memory (process-local, the default) and
// Redis (distributed, for multi-instance deployments). The memory
// variant does not persist across a full process restart — the in-memory
// map is simply empty on boot; the distributed variant is the fix when
// that matters.
type Limiter interface {
	CheckAndIncrement(userID uint64, isPremium bool) (allowed bool, remaining int)
	StatusFor(userID uint64, isPremium bool) Status
}

func maxFor(isPremium bool, limits Limits) int {
	if isPremium {
		return limits.PremiumMaxDailySuggestions
	}
	return limits.MaxDailySuggestions
}
