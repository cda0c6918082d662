// ABOUTME: Tests for the echo-loop guard.
// ABOUTME: Covers fresh/recirculated payloads, TTL expiry, and capacity eviction.

package guard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestGuard(t *testing.T, ttl time.Duration, maxSize int) *Guard {
	t.Helper()
	g := New(ttl, maxSize)
	t.Cleanup(g.Close)
	return g
}

func TestGuard_FreshPayload(t *testing.T) {
	g := newTestGuard(t, time.Minute, 100)

	assert.False(t, g.CheckAndMark([]byte("hello there")))
}

func TestGuard_RecirculatedPayload(t *testing.T) {
	g := newTestGuard(t, time.Minute, 100)

	assert.False(t, g.CheckAndMark([]byte("same text")))
	assert.True(t, g.CheckAndMark([]byte("same text")))
}

func TestGuard_DistinctPayloads(t *testing.T) {
	g := newTestGuard(t, time.Minute, 100)

	assert.False(t, g.CheckAndMark([]byte("first")))
	assert.False(t, g.CheckAndMark([]byte("second")))
}

func TestGuard_ExpiredPayloadIsFreshAgain(t *testing.T) {
	g := newTestGuard(t, 20*time.Millisecond, 100)

	assert.False(t, g.CheckAndMark([]byte("cycle")))
	time.Sleep(40 * time.Millisecond)
	assert.False(t, g.CheckAndMark([]byte("cycle")))
}

func TestGuard_EvictsOldestAtCapacity(t *testing.T) {
	g := newTestGuard(t, time.Minute, 3)

	for i := 0; i < 4; i++ {
		g.CheckAndMark([]byte(fmt.Sprintf("payload-%d", i)))
	}

	assert.Equal(t, 3, g.Len())
	// Oldest was evicted, so it reads as fresh again.
	assert.False(t, g.CheckAndMark([]byte("payload-0")))
}

func TestGuard_CloseIsIdempotent(t *testing.T) {
	g := New(time.Minute, 10)
	g.Close()
	g.Close()
}
