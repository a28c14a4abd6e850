package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func loginKey(parts ...string) string {
	return "login:" + strings.Join(parts, ":")
}

type failEntry struct {
	count       int
	windowEnds  time.Time
	lockedUntil time.Time
}

// LoginThrottle locks an email for one client IP after repeated failed
// sign-ins. Counters live in Redis when available and in memory otherwise.
// Redis errors fail open.
type LoginThrottle struct {
	rc          *redis.Client
	maxFailures int
	lock        time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*failEntry
}

// NewLoginThrottle returns a throttle that locks after maxFailures failures
// within lock, for lock. maxFailures <= 0 disables it.
func NewLoginThrottle(rc *redis.Client, maxFailures int, lock time.Duration) *LoginThrottle {
	if lock <= 0 {
		lock = 15 * time.Minute
	}
	return &LoginThrottle{rc: rc, maxFailures: maxFailures, lock: lock, now: time.Now, entries: map[string]*failEntry{}}
}

func (t *LoginThrottle) enabled() bool {
	return t != nil && t.maxFailures > 0
}

// Locked reports whether sign-ins for email from ip are currently refused.
func (t *LoginThrottle) Locked(ctx context.Context, email, ip string) bool {
	if !t.enabled() {
		return false
	}
	if t.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := t.rc.Exists(ctx, loginKey("lock", email, ip)).Result()
		if err != nil {
			return false
		}
		return n > 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[email+"|"+ip]
	return ok && t.now().Before(e.lockedUntil)
}

// Fail records a failed sign-in and reports whether the pair is now locked.
func (t *LoginThrottle) Fail(ctx context.Context, email, ip string) bool {
	if !t.enabled() {
		return false
	}
	if t.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		key := loginKey("fail", email, ip)
		n, err := t.rc.Incr(ctx, key).Result()
		if err != nil {
			return false
		}
		if n == 1 {
			_ = t.rc.Expire(ctx, key, t.lock).Err()
		}
		if int(n) < t.maxFailures {
			return false
		}
		_ = t.rc.Set(ctx, loginKey("lock", email, ip), "1", t.lock).Err()
		_ = t.rc.Del(ctx, key).Err()
		return true
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	k := email + "|" + ip
	e, ok := t.entries[k]
	if !ok || now.After(e.windowEnds) {
		e = &failEntry{windowEnds: now.Add(t.lock)}
		t.entries[k] = e
	}
	e.count++
	if e.count < t.maxFailures {
		return false
	}
	e.count = 0
	e.lockedUntil = now.Add(t.lock)
	e.windowEnds = e.lockedUntil
	return true
}

// Reset forgets failures after a successful sign-in.
func (t *LoginThrottle) Reset(ctx context.Context, email, ip string) {
	if !t.enabled() {
		return
	}
	if t.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = t.rc.Del(ctx, loginKey("fail", email, ip)).Err()
		return
	}
	t.mu.Lock()
	delete(t.entries, email+"|"+ip)
	t.mu.Unlock()
}

// Sweep drops in-memory counters whose window and lock have both passed.
func (t *LoginThrottle) Sweep() {
	if t == nil {
		return
	}
	now := t.now()
	t.mu.Lock()
	for k, e := range t.entries {
		if now.After(e.windowEnds) && now.After(e.lockedUntil) {
			delete(t.entries, k)
		}
	}
	t.mu.Unlock()
}
