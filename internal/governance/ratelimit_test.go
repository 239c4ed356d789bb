package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstExhaustion(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2})

	assert.True(t, rl.Allow("agent-a"))
	assert.True(t, rl.Allow("agent-a"))
	assert.False(t, rl.Allow("agent-a"))
}

func TestRateLimiterSourcesAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1})

	assert.True(t, rl.Allow("agent-a"))
	assert.False(t, rl.Allow("agent-a"))
	assert.True(t, rl.Allow("agent-b"))
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 100, BurstSize: 1})

	require.True(t, rl.Allow("agent-a"))
	require.False(t, rl.Allow("agent-a"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("agent-a"))
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 10, BurstSize: 5})
	rl.Allow("agent-a")

	stats := rl.Stats()
	require.Contains(t, stats, "agent-a")
	assert.Equal(t, 10, stats["agent-a"].Limit)
	assert.Equal(t, 5, stats["agent-a"].BurstSize)
	assert.Less(t, stats["agent-a"].Available, 5.0)
}

func TestTokenBucketDefaults(t *testing.T) {
	tb := newTokenBucket(0, 0)
	assert.InDelta(t, 100.0, tb.rate, 1e-9)
	assert.InDelta(t, 100.0, tb.capacity, 1e-9)
}
