// Package ratelimit implements the per-user fixed-window request quota
// shared by the ask and summarize commands.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of requests allowed per window.
	DefaultMaxRequests = 10
	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute
)

// ErrQuotaExceeded matches any *QuotaExceededError.
var ErrQuotaExceeded = errors.New("rate limit exceeded")

// QuotaExceededError reports a limited key and how long until its window resets.
type QuotaExceededError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Key, e.RetryAfter.Round(time.Second))
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Entry is the fixed-window state of one key.
type Entry struct {
	Count     int
	ResetTime time.Time
}

// Limiter is a fixed-window request counter keyed by user identity.
// It is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	now         func() time.Time
	entries     map[string]*Entry
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLimiter returns a Limiter allowing maxRequests per window.
// Non-positive values fall back to DefaultMaxRequests and DefaultWindow.
func NewLimiter(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRequests returns the per-window cap.
func (l *Limiter) MaxRequests() int {
	return l.maxRequests
}

// IsRateLimited records a request for key and reports whether it must be
// rejected. A rejected request does not consume quota.
func (l *Limiter) IsRateLimited(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.ResetTime) {
		l.entries[key] = &Entry{Count: 1, ResetTime: now.Add(l.window)}
		return false
	}
	if entry.Count >= l.maxRequests {
		return true
	}
	entry.Count++
	return false
}

// Check is IsRateLimited returning a *QuotaExceededError when limited.
func (l *Limiter) Check(key string) error {
	if !l.IsRateLimited(key) {
		return nil
	}
	return &QuotaExceededError{Key: key, RetryAfter: l.TimeUntilReset(key)}
}

// Remaining returns how many requests key may still make in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || l.now().After(entry.ResetTime) {
		return l.maxRequests
	}
	if rem := l.maxRequests - entry.Count; rem > 0 {
		return rem
	}
	return 0
}

// TimeUntilReset returns the time left in key's window, or zero.
func (l *Limiter) TimeUntilReset(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return 0
	}
	if d := entry.ResetTime.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Cleanup drops entries whose window has expired and returns how many
// were removed. It only bounds memory; expired entries are already
// treated as fresh by the other methods.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, entry := range l.entries {
		if now.After(entry.ResetTime) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
