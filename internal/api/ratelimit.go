package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxIdleLimiters is how many per-claimant limiters are kept before full
// (idle) ones are dropped.
const maxIdleLimiters = 1024

// ClaimLimiter limits claim submissions per claimant.
type ClaimLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewClaimLimiter allows each claimant limit submissions per second with the
// given burst. A zero limit disables limiting.
func NewClaimLimiter(limit rate.Limit, burst int) *ClaimLimiter {
	return &ClaimLimiter{
		limit:    limit,
		burst:    max(burst, 1),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether userID may submit a claim now.
func (l *ClaimLimiter) Allow(userID string) bool {
	if l.limit == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[userID]
	if !ok {
		if len(l.limiters) >= maxIdleLimiters {
			l.prune()
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim.Allow()
}

// prune drops limiters that have refilled completely; forgetting them
// changes nothing for their users.
func (l *ClaimLimiter) prune() {
	for id, lim := range l.limiters {
		if lim.Tokens() >= float64(l.burst) {
			delete(l.limiters, id)
		}
	}
}
