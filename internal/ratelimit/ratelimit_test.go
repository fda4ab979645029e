package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives the limiter's notion of now.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(burst int, rate float64) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(burst, rate)
	l.now = clock.now
	return l, clock
}

func TestAllowBurst(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(60, 10)

	admitted := 0
	for range 61 {
		if l.Allow("1.2.3.4") {
			admitted++
		}
	}
	assert.Equal(t, 60, admitted, "burst of 60 should admit exactly 60 instant requests")
}

func TestAllowRefill(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(60, 10)

	for range 60 {
		l.Allow("k")
	}
	assert.False(t, l.Allow("k"), "bucket should be empty")

	clock.advance(500 * time.Millisecond) // refills 5 tokens
	admitted := 0
	for range 10 {
		if l.Allow("k") {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}

func TestAllowWindowLaw(t *testing.T) {
	t.Parallel()
	// Over a window of W seconds, admissions never exceed burst + W*rate.
	l, clock := newTestLimiter(10, 2)

	admitted := 0
	for range 100 {
		if l.Allow("k") {
			admitted++
		}
		clock.advance(100 * time.Millisecond)
	}
	// W = 10s, so at most 10 + 10*2 = 30 admissions.
	assert.LessOrEqual(t, admitted, 30)
	assert.GreaterOrEqual(t, admitted, 29, "refilled tokens should be admitted")
}

func TestKeysIndependent(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(1, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "a drained bucket must not affect another key")
}

func TestSweepRemovesFullBuckets(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(10, 10)

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Size())

	// After enough time both buckets are fully refilled and reclaimable.
	clock.advance(10 * time.Second)
	l.Sweep()
	assert.Equal(t, 0, l.Size())
}

func TestSweepKeepsDrainingBuckets(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(10, 10)

	for range 10 {
		l.Allow("busy")
	}
	l.Sweep()
	assert.Equal(t, 1, l.Size(), "a drained bucket must survive the sweep")
}

func TestClientKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "10.0.0.1", ClientKey("10.0.0.1, 172.16.0.1", "9.9.9.9"))
	assert.Equal(t, "10.0.0.1", ClientKey(" 10.0.0.1 ", "9.9.9.9"))
	assert.Equal(t, "9.9.9.9", ClientKey("", "9.9.9.9"))
	assert.Equal(t, "unknown", ClientKey("", ""))
}
