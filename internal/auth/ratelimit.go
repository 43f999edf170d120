package auth

import (
	"strings"
	"sync"
	"time"
)

// LoginLimiter tracks failed login attempts per (IP, username) pair inside a
// sliding window. It is an explicit, injected store rather than a package
// global, and bounds its memory by evicting stale keys during writes.
type LoginLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLoginLimiter creates a limiter allowing maxAttempts failures per window.
func NewLoginLimiter(maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// IsLocked reports whether further attempts for the pair should be rejected.
func (l *LoginLimiter) IsLocked(ip, username string) bool {
	key := limiterKey(ip, username)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	fresh := l.pruneLocked(key)
	return len(fresh) >= l.maxAttempts
}

// RegisterFailure records a failed attempt for the pair.
func (l *LoginLimiter) RegisterFailure(ip, username string) {
	key := limiterKey(ip, username)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	fresh := l.pruneLocked(key)
	l.attempts[key] = append(fresh, l.now())

	// Opportunistic eviction keeps the map bounded without a janitor goroutine
	if len(l.attempts) > 1024 {
		l.evictStaleLocked()
	}
}

// Clear drops the counter after a successful login.
func (l *LoginLimiter) Clear(ip, username string) {
	key := limiterKey(ip, username)

	l.mutex.Lock()
	delete(l.attempts, key)
	l.mutex.Unlock()
}

// Remaining returns how many attempts are left before lockout.
func (l *LoginLimiter) Remaining(ip, username string) int {
	key := limiterKey(ip, username)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	fresh := l.pruneLocked(key)
	remaining := l.maxAttempts - len(fresh)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// pruneLocked drops attempts outside the window for key and writes back the
// surviving slice. Caller must hold the mutex.
func (l *LoginLimiter) pruneLocked(key string) []time.Time {
	cutoff := l.now().Add(-l.window)
	old := l.attempts[key]

	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) == 0 {
		delete(l.attempts, key)
	} else {
		l.attempts[key] = fresh
	}
	return fresh
}

// evictStaleLocked removes every key whose attempts all fell out of the
// window. Caller must hold the mutex.
func (l *LoginLimiter) evictStaleLocked() {
	cutoff := l.now().Add(-l.window)
	for key, times := range l.attempts {
		stale := true
		for _, t := range times {
			if t.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.attempts, key)
		}
	}
}

func limiterKey(ip, username string) string {
	return ip + "|" + strings.ToLower(username)
}
