package custody

import (
	"sync"
	"time"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 15 * time.Minute
	guardSweepEvery    = 256
)

// pinGuard counts consecutive wrong PINs per phone key and locks the key for
// a cooldown once the limit is reached. A correct PIN resets the counter.
// Unlocked counters with no failure for a full lockout period are dropped on
// a periodic sweep.
type pinGuard struct {
	mu          sync.Mutex
	maxFailures int
	lockout     time.Duration
	byKey       map[string]*pinAttempts
	fails       uint64
	now         func() time.Time
}

type pinAttempts struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

func newPINGuard(maxFailures int, lockout time.Duration, now func() time.Time) *pinGuard {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	if now == nil {
		now = time.Now
	}
	return &pinGuard{
		maxFailures: maxFailures,
		lockout:     lockout,
		byKey:       make(map[string]*pinAttempts),
		now:         now,
	}
}

func (g *pinGuard) locked(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.byKey[key]
	if !ok {
		return false
	}
	if a.lockedUntil.IsZero() {
		return false
	}
	if g.now().Before(a.lockedUntil) {
		return true
	}
	delete(g.byKey, key)
	return false
}

func (g *pinGuard) fail(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.byKey[key]
	if !ok {
		a = &pinAttempts{}
		g.byKey[key] = a
	}
	now := g.now()
	a.failures++
	a.lastFailure = now
	if a.failures >= g.maxFailures {
		a.lockedUntil = now.Add(g.lockout)
	}
	g.fails++
	if g.fails%guardSweepEvery == 0 {
		g.sweepLocked(now)
	}
}

func (g *pinGuard) sweepLocked(now time.Time) {
	cutoff := now.Add(-g.lockout)
	for k, a := range g.byKey {
		if now.Before(a.lockedUntil) {
			continue
		}
		if !a.lastFailure.After(cutoff) {
			delete(g.byKey, k)
		}
	}
}

func (g *pinGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byKey)
}

func (g *pinGuard) reset(key string) {
	g.mu.Lock()
	delete(g.byKey, key)
	g.mu.Unlock()
}
