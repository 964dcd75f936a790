package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPresets() map[string]Preset {
	return map[string]Preset{
		BucketStandard: {Max: 3, Window: time.Minute},
	}
}

func TestMemoryLimiter_AllowsUnderMax(t *testing.T) {
	l := NewMemoryLimiter(testPresets())
	for i := 0; i < 3; i++ {
		res, err := l.Check(context.Background(), BucketStandard, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestMemoryLimiter_RejectsAtMax(t *testing.T) {
	l := NewMemoryLimiter(testPresets())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = l.Check(ctx, BucketStandard, "user-1")
	}
	res, err := l.Check(ctx, BucketStandard, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, 0)
}

func TestMemoryLimiter_WindowResetsAfterExpiry(t *testing.T) {
	clock := time.Now()
	l := NewMemoryLimiter(testPresets()).WithClock(func() time.Time { return clock })
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = l.Check(ctx, BucketStandard, "user-1")
	}
	res, _ := l.Check(ctx, BucketStandard, "user-1")
	require.False(t, res.Allowed)

	clock = clock.Add(time.Minute + time.Second)
	res, err := l.Check(ctx, BucketStandard, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(testPresets())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = l.Check(ctx, BucketStandard, "user-1")
	}
	res, _ := l.Check(ctx, BucketStandard, "user-2")
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_UnknownPresetFallsBackToStandard(t *testing.T) {
	l := NewMemoryLimiter(nil)
	res, err := l.Check(context.Background(), "nonexistent-bucket", "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_Sweep_RemovesExpiredWindows(t *testing.T) {
	clock := time.Now()
	l := NewMemoryLimiter(testPresets()).WithClock(func() time.Time { return clock })
	ctx := context.Background()
	_, _ = l.Check(ctx, BucketStandard, "user-1")

	clock = clock.Add(2 * time.Minute)
	removed, err := l.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestDefaultPresets_CoverAllBuckets(t *testing.T) {
	for _, bucket := range []string{
		BucketStandard, BucketUpload, BucketProcessing, BucketAuth, BucketAdmin, BucketWebhook,
	} {
		_, ok := DefaultPresets[bucket]
		assert.True(t, ok, "missing preset for bucket %s", bucket)
	}
}
