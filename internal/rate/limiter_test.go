package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_BurstThenRefill(t *testing.T) {
	l := New(Config{RequestsPerSecond: 10, Burst: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "call %d should ride the burst", i)
	}
	assert.False(t, l.Allow(), "bucket drained")

	time.Sleep(150 * time.Millisecond) // ~1.5 tokens at 10 rps
	assert.True(t, l.Allow())
}

func TestWait_BlocksUntilTokenAvailable(t *testing.T) {
	l := New(Config{RequestsPerSecond: 20, Burst: 1})
	require.True(t, l.Allow())

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWait_HonoursContextCancellation(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_OneLimiterPerKey(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 5, Burst: 1})

	a := m.Limiter("coupons")
	b := m.Limiter("coupons")
	c := m.Limiter("offers")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	// Draining one family's bucket leaves the others untouched.
	require.True(t, a.Allow())
	assert.False(t, b.Allow())
	assert.True(t, c.Allow())
}
