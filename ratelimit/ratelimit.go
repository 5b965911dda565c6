package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more attempt under key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps a token bucket per key in process memory. A bucket
// idle for a whole window is full again, so it is dropped on the next sweep.
type MemoryLimiter struct {
	limit    rate.Limit
	burst    int
	window   time.Duration
	limiters sync.Map // map[string]*memoryEntry

	lastSweep atomic.Int64
	now       func() time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// NewMemoryLimiter allows `requests` attempts per `window`, refilled smoothly.
func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	if requests <= 0 {
		requests = 1
	}
	m := &MemoryLimiter{
		limit:  rate.Limit(float64(requests) / window.Seconds()),
		burst:  requests,
		window: window,
		now:    time.Now,
	}
	m.lastSweep.Store(m.now().UnixNano())
	return m
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	m.sweep(now)
	entry := m.get(key)
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1), nil
}

func (m *MemoryLimiter) get(key string) *memoryEntry {
	if v, ok := m.limiters.Load(key); ok {
		return v.(*memoryEntry)
	}
	entry := &memoryEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
	actual, _ := m.limiters.LoadOrStore(key, entry)
	return actual.(*memoryEntry)
}

// sweep runs at most once per window.
func (m *MemoryLimiter) sweep(now time.Time) {
	last := m.lastSweep.Load()
	if now.Sub(time.Unix(0, last)) < m.window || !m.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-m.window).UnixNano()
	m.limiters.Range(func(key, v any) bool {
		if v.(*memoryEntry).lastSeen.Load() < cutoff {
			m.limiters.Delete(key)
		}
		return true
	})
}

// FailoverLimiter uses primary until it errors, then falls back to the
// secondary and retries primary after a minute.
type FailoverLimiter struct {
	primary  Limiter
	fallback Limiter
	logger   zerolog.Logger

	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverLimiter(primary, fallback Limiter, logger zerolog.Logger) *FailoverLimiter {
	return &FailoverLimiter{primary: primary, fallback: fallback, logger: logger, now: time.Now}
}

func (f *FailoverLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.isDown.Load() && f.now().Sub(time.Unix(0, f.lastCheck.Load())) > time.Minute {
		f.isDown.Store(false)
	}

	if !f.isDown.Load() {
		ok, err := f.primary.Allow(ctx, key)
		if err == nil {
			return ok, nil
		}
		f.logger.Error().Err(err).Msg("primary rate limiter failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck.Store(f.now().UnixNano())
	}

	return f.fallback.Allow(ctx, key)
}
