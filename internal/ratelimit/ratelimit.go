// Package ratelimit implements the fixed-window rate limiter shared by every
// inbound surface, with an in-memory default and a Redis-backed
// alternative behind the same Limiter interface.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Preset bucket names. The numeric limits are operator-tunable defaults,
// not contract.
const (
	BucketStandard   = "standard"
	BucketUpload     = "upload"
	BucketProcessing = "processing"
	BucketAuth       = "auth"
	BucketAdmin      = "admin"
	BucketWebhook    = "webhook"
)

// Preset is a named fixed-window configuration.
type Preset struct {
	Max    int
	Window time.Duration
}

// DefaultPresets are the out-of-the-box bucket configurations.
var DefaultPresets = map[string]Preset{
	BucketStandard:   {Max: 100, Window: time.Minute},
	BucketUpload:     {Max: 20, Window: time.Minute},
	BucketProcessing: {Max: 50, Window: time.Minute},
	BucketAuth:       {Max: 10, Window: time.Minute},
	BucketAdmin:      {Max: 30, Window: time.Minute},
	BucketWebhook:    {Max: 200, Window: time.Minute},
}

// Result is the outcome of a single Check call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // seconds, only meaningful when Allowed is false
}

// Limiter is implemented by both the in-memory and Redis-backed stores.
type Limiter interface {
	// Check applies the named preset's window to key, incrementing its
	// counter if the call is allowed.
	Check(ctx context.Context, preset string, key string) (Result, error)
	// Sweep removes expired window entries; called periodically by the
	// background sweeper, but safe to call directly from tests.
	Sweep(ctx context.Context) (int, error)
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// SweepInterval is how often the background sweeper removes expired
// windows.
const SweepInterval = 5 * time.Minute

// RunSweeper starts a background goroutine that calls l.Sweep every
// SweepInterval until ctx is cancelled. The returned function stops it.
func RunSweeper(ctx context.Context, l Limiter) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = l.Sweep(ctx)
			}
		}
	}()
	return cancel
}
