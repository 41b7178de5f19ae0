// Package limiter implements per-client fixed-window request counting.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/birmacher/dealing-with-ai/logger"
)

// DefaultMaxKeys bounds the number of tracked clients
const DefaultMaxKeys = 100_000

// Config holds the limiter configuration
type Config struct {
	// Window is the length of one counting window
	Window time.Duration
	// MaxRequests is the number of requests admitted per window
	MaxRequests int
	// MaxKeys bounds the number of tracked clients; zero means DefaultMaxKeys
	MaxKeys int
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Decision is the outcome of one admission check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Message is set when the request is rejected
	Message string
}

// RetryAfter returns how long the client should wait before the window resets
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.Before(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

type window struct {
	count int
	start time.Time
}

// Limiter counts requests per client key within fixed windows.
// It is safe for concurrent use.
type Limiter struct {
	window      time.Duration
	maxRequests int
	maxKeys     int
	now         func() time.Time
	message     string

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a limiter. Window and MaxRequests must both be positive.
func New(cfg Config) (*Limiter, error) {
	if cfg.Window <= 0 {
		return nil, errors.New("rate limit window must be positive")
	}
	if cfg.MaxRequests <= 0 {
		return nil, errors.New("rate limit max requests must be positive")
	}
	if cfg.MaxKeys < 0 {
		return nil, errors.New("rate limit max keys cannot be negative")
	}

	maxKeys := cfg.MaxKeys
	if maxKeys == 0 {
		maxKeys = DefaultMaxKeys
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Limiter{
		window:      cfg.Window,
		maxRequests: cfg.MaxRequests,
		maxKeys:     maxKeys,
		now:         now,
		message:     rejectMessage(cfg.MaxRequests, cfg.Window),
		windows:     make(map[string]*window),
	}, nil
}

func rejectMessage(maxRequests int, w time.Duration) string {
	return fmt.Sprintf("Too many requests, you can only make %d requests per %s minutes. Please try again later.",
		maxRequests, formatMinutes(w))
}

func formatMinutes(w time.Duration) string {
	if w%time.Minute == 0 {
		return fmt.Sprintf("%d", int64(w/time.Minute))
	}
	return fmt.Sprintf("%g", w.Minutes())
}

// Admit counts one request for key and reports whether it is within the quota
func (l *Limiter) Admit(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		if len(l.windows) >= l.maxKeys {
			l.makeRoomLocked(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	} else if l.expired(w, now) {
		w.count = 0
		w.start = now
	}

	w.count++

	d := Decision{
		Allowed:   w.count <= l.maxRequests,
		Limit:     l.maxRequests,
		Remaining: max(l.maxRequests-w.count, 0),
		ResetAt:   w.start.Add(l.window),
	}
	if !d.Allowed {
		d.Message = l.message
	}
	return d
}

// Len returns the number of tracked client keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep drops every client whose window has elapsed and returns how many were dropped
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

// Run sweeps expired clients every interval until ctx is done
func (l *Limiter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = l.window
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				logger.Debugf("Rate limiter dropped %d expired clients, %d tracked", n, l.Len())
			}
		}
	}
}

func (l *Limiter) expired(w *window, now time.Time) bool {
	return !now.Before(w.start.Add(l.window)) || now.Before(w.start)
}

func (l *Limiter) sweepLocked(now time.Time) int {
	dropped := 0
	for key, w := range l.windows {
		if l.expired(w, now) {
			delete(l.windows, key)
			dropped++
		}
	}
	return dropped
}

// makeRoomLocked frees at least one slot, preferring expired clients and
// otherwise evicting the client with the oldest window.
func (l *Limiter) makeRoomLocked(now time.Time) {
	if l.sweepLocked(now) > 0 {
		return
	}

	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, w := range l.windows {
		if !found || w.start.Before(oldest) {
			oldestKey, oldest, found = key, w.start, true
		}
	}
	if found {
		logger.Warnf("Rate limiter is full (%d clients), evicting the oldest window", l.maxKeys)
		delete(l.windows, oldestKey)
	}
}
