package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_FirstCallAlwaysAllowed(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	ok, suppressed := rl.Allow("sig", time.Now())
	assert.True(t, ok)
	assert.Equal(t, 0, suppressed)
}

func TestRateLimiter_SuppressesWithinWindow(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	now := time.Now()

	rl.Allow("sig", now)
	ok, _ := rl.Allow("sig", now.Add(10*time.Second))
	assert.False(t, ok)
}

func TestRateLimiter_AllowsAfterWindowWithSuppressedCount(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	now := time.Now()

	rl.Allow("sig", now)
	rl.Allow("sig", now.Add(10*time.Second))
	rl.Allow("sig", now.Add(20*time.Second))

	ok, suppressed := rl.Allow("sig", now.Add(2*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 2, suppressed)
}

func TestRateLimiter_IndependentSignatures(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	now := time.Now()

	rl.Allow("a", now)
	ok, _ := rl.Allow("b", now)
	assert.True(t, ok)
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	now := time.Now()

	rl.Allow("sig", now)
	rl.Reset()

	ok, suppressed := rl.Allow("sig", now.Add(time.Second))
	assert.True(t, ok)
	assert.Equal(t, 0, suppressed)
}
