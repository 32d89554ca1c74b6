package sequence

import "sync/atomic"

// Clock is a monotonic logical clock for stamping snapshots.
//
// Snapshots are ordered by seq number rather than wall-clock time, so a
// journal replays identically regardless of how long the scheduler spent
// between captures.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the engine's single-threaded design means only one goroutine
// typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
