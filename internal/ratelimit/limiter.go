// Package ratelimit implements the per-user sliding-window quota. Bounded
// tiers get an hourly budget; unbounded tiers get a per-minute spam cap
// instead. A free follow-up never consumes hourly credit but still counts
// against the spam cap.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/asklens/asklens/internal/tier"
)

// Clock is injected so tests can drive the window.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

const (
	hourWindow = time.Hour
	spamWindow = time.Minute
)

// Decision is the outcome of a rate check. Deny always carries a human
// message; the limiter never returns an error.
type Decision struct {
	Allow   bool
	Message string
}

type record struct {
	at   time.Time
	free bool
}

// Limiter tracks request records per user. Check is a single atomic
// read-modify-write under the mutex, so decisions are serializable per user.
type Limiter struct {
	mu      sync.Mutex
	records map[int64][]record
	clock   Clock
}

func New(clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Limiter{
		records: make(map[int64][]record),
		clock:   clock,
	}
}

// Check decides whether the user may issue another query and records it if
// allowed. Free follow-ups are recorded but excluded from the hourly count.
func (l *Limiter) Check(userID int64, limits tier.Limits, freeFollowup bool) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	recs := l.prune(userID, now)

	if limits.MaxQueriesPerHour == 0 {
		// Unbounded hourly budget: only the spam cap applies, and it
		// counts free follow-ups too.
		if limits.SpamWindowCap > 0 {
			inMinute := 0
			for _, r := range recs {
				if now.Sub(r.at) < spamWindow {
					inMinute++
				}
			}
			if inMinute >= limits.SpamWindowCap {
				return Decision{Message: fmt.Sprintf(
					"You've sent too many queries in rapid succession (%d in the last minute). Please wait a moment and try again.",
					inMinute)}
			}
		}
		l.records[userID] = append(recs, record{at: now, free: freeFollowup})
		return Decision{Allow: true}
	}

	if freeFollowup {
		// Consumes no hourly credit on bounded tiers.
		return Decision{Allow: true}
	}

	used := 0
	for _, r := range recs {
		if !r.free {
			used++
		}
	}
	if used >= limits.MaxQueriesPerHour {
		msg := fmt.Sprintf("You've reached the %s plan limit of %d queries per hour.",
			limits.Name, limits.MaxQueriesPerHour)
		if next, ok := tier.Upgrade(limits.Name); ok {
			msg += fmt.Sprintf(" Upgrade to %s for a higher limit.", next)
		}
		return Decision{Message: msg}
	}

	l.records[userID] = append(recs, record{at: now})
	return Decision{Allow: true}
}

// prune drops records older than the shared one-hour window. Expiry is by
// age only; nothing deletes records explicitly.
func (l *Limiter) prune(userID int64, now time.Time) []record {
	recs := l.records[userID]
	kept := recs[:0]
	for _, r := range recs {
		if now.Sub(r.at) < hourWindow {
			kept = append(kept, r)
		}
	}
	l.records[userID] = kept
	return kept
}
