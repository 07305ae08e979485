// Package ratelimit implements an in-memory sliding-window limiter keyed by
// client address. State is not persisted: a restart forgets every window.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

const (
	DefaultMax    = 10
	DefaultWindow = time.Hour
)

// Config defines the limit for one limiter.
type Config struct {
	Max    int           // requests admitted per window
	Window time.Duration // trailing window length
	Now    func() time.Time
}

// Decision is the outcome of Admit. RetryAfter is set only when the request
// was denied and tells the client when the oldest request leaves the window.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits at most Max requests per key in any trailing Window.
//
// Each key owns a ring buffer of at most Max timestamps guarded by its own
// mutex, so check-then-record is atomic per key while different keys only
// share the short map lookup.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	keys      map[string]*history
	lastSweep time.Time
}

type history struct {
	mu    sync.Mutex
	stamp []time.Time // ring buffer, cap == max
	head  int
	size  int
	dead  bool // removed from the map by a sweep
}

// New returns a limiter for cfg.
func New(cfg Config) (*Limiter, error) {
	if cfg.Max <= 0 {
		return nil, errors.New("ratelimit: max must be positive")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("ratelimit: window must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		max:       cfg.Max,
		window:    cfg.Window,
		now:       cfg.Now,
		keys:      make(map[string]*history),
		lastSweep: cfg.Now(),
	}, nil
}

// Admit records a request for key if the key has room in its window.
func (l *Limiter) Admit(key string) Decision {
	for {
		h := l.lookup(key)

		h.mu.Lock()
		if h.dead {
			// Swept between lookup and lock; fetch the replacement.
			h.mu.Unlock()
			continue
		}
		now := l.now()
		h.evict(now, l.window)

		if h.size < l.max {
			h.push(now)
			h.mu.Unlock()
			return Decision{Allowed: true}
		}

		retry := h.oldest().Add(l.window).Sub(now)
		h.mu.Unlock()
		if retry <= 0 {
			retry = time.Nanosecond
		}
		return Decision{RetryAfter: retry}
	}
}

// Max reports the configured limit.
func (l *Limiter) Max() int { return l.max }

// Window reports the configured window.
func (l *Limiter) Window() time.Duration { return l.window }

// lookup returns the history for key, creating it on first use. Once per
// window it also drops keys whose every timestamp has aged out.
func (l *Limiter) lookup(key string) *history {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
		l.lastSweep = now
	}

	h, ok := l.keys[key]
	if !ok {
		h = &history{stamp: make([]time.Time, l.max)}
		l.keys[key] = h
	}
	return h
}

// sweep must be called with l.mu held.
func (l *Limiter) sweep(now time.Time) {
	for key, h := range l.keys {
		if !h.mu.TryLock() {
			continue // in use; it will be looked at next sweep
		}
		h.evict(now, l.window)
		if h.size == 0 {
			h.dead = true
			delete(l.keys, key)
		}
		h.mu.Unlock()
	}
}

func (h *history) evict(now time.Time, window time.Duration) {
	for h.size > 0 && now.Sub(h.oldest()) >= window {
		h.head = (h.head + 1) % len(h.stamp)
		h.size--
	}
}

func (h *history) oldest() time.Time {
	return h.stamp[h.head]
}

func (h *history) push(t time.Time) {
	h.stamp[(h.head+h.size)%len(h.stamp)] = t
	h.size++
}
