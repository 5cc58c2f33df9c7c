package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	l := New()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4", 3, 1), "burst %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4", 3, 1))
	assert.True(t, l.Allow("5.6.7.8", 3, 1), "keys are independent")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow("1.2.3.4", 3, 1))
	assert.False(t, l.Allow("1.2.3.4", 3, 1))

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4", 3, 1))
	}
	assert.False(t, l.Allow("1.2.3.4", 3, 1), "refill is capped at capacity")
}

func TestLimiterForget(t *testing.T) {
	l := New()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("a", 1, 1)
	now = now.Add(time.Minute)
	l.Allow("b", 1, 1)
	assert.Equal(t, 1, l.Forget(30*time.Second))
	assert.True(t, l.Allow("a", 1, 1), "forgotten key starts full")
}
