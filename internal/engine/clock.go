package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic logical clock that stamps event seq numbers.
//
// Seq numbers strictly increase for the lifetime of an Engine. Reset does
// not rewind the clock and Import only moves it forward, so a seq never
// identifies two different events.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next seq is start+1, e.g. to continue
// the numbering of a journaled run.
func NewClockAt(start int64) *Clock {
	c := NewClock()
	c.AdvanceTo(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// AdvanceTo raises the clock to at least seq. It never moves backwards.
func (c *Clock) AdvanceTo(seq int64) {
	for {
		cur := c.seq.Load()
		if seq <= cur || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// TimeSource supplies wall-clock time for message timestamps, TTL checks
// and flow timing.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the real clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time { return time.Now() }

// normalizeTime is the precision every stored timestamp carries.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
