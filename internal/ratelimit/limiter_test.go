package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBurstPerKey(t *testing.T) {
	l := NewLimiter(0.001, 2)

	assert.True(t, l.Allow("api.example.com"))
	assert.True(t, l.Allow("api.example.com"))
	assert.False(t, l.Allow("api.example.com"))

	// other keys have their own bucket
	assert.True(t, l.Allow("testrail.example.com"))
}

func TestLimiterSameBucketForKey(t *testing.T) {
	l := NewLimiter(1, 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("host"))
	}
	assert.Equal(t, 1, l.Burst())
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	require.NoError(t, l.Wait(context.Background(), "host"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "host"))
}
