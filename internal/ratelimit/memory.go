package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int
	resetTime time.Time
}

// MemoryLimiter is the in-memory default Limiter implementation: a fixed
// window per (preset, key) pair.
type MemoryLimiter struct {
	mu      sync.Mutex
	presets map[string]Preset
	state   map[string]*window
	now     func() time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter using presets (DefaultPresets
// if nil).
func NewMemoryLimiter(presets map[string]Preset) *MemoryLimiter {
	if presets == nil {
		presets = DefaultPresets
	}
	return &MemoryLimiter{
		presets: presets,
		state:   make(map[string]*window),
		now:     time.Now,
	}
}

// WithClock overrides the time source, for deterministic tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func stateKey(preset, key string) string {
	return preset + ":" + key
}

func (l *MemoryLimiter) Check(ctx context.Context, preset, key string) (Result, error) {
	cfg, ok := l.presets[preset]
	if !ok {
		cfg = DefaultPresets[BucketStandard]
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	sk := stateKey(preset, key)
	w, exists := l.state[sk]
	if !exists || now.After(w.resetTime) || now.Equal(w.resetTime) {
		w = &window{count: 0, resetTime: now.Add(cfg.Window)}
		l.state[sk] = w
	}

	if w.count >= cfg.Max {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: ceilSeconds(w.resetTime.Sub(now)),
		}, nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Remaining: cfg.Max - w.count,
	}, nil
}

func (l *MemoryLimiter) Sweep(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, w := range l.state {
		if now.After(w.resetTime) {
			delete(l.state, k)
			removed++
		}
	}
	return removed, nil
}
