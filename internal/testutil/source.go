// Package testutil provides deterministic helpers for tests.
package testutil

import "sync"

// FixedSource returns predetermined floats for deterministic shuffles.
//
// Tests provide a known stream and can compute the resulting Fisher–Yates
// ordering by hand. Panics when the stream is exhausted — a fail-fast
// approach to catch test misconfiguration (the test drew more randomness
// than it budgeted for).
//
// Thread-safety: FixedSource is safe for concurrent use via internal mutex.
type FixedSource struct {
	mu     sync.Mutex
	floats []float64
	idx    int
}

// NewFixedSource creates a source that returns floats in order.
//
// Example:
//
//	src := testutil.NewFixedSource(0.5, 0.0, 0.99)
//	src.Float64() // 0.5
//	src.Float64() // 0.0
//	src.Float64() // 0.99
//	src.Float64() // panic: all floats exhausted
func NewFixedSource(floats ...float64) *FixedSource {
	return &FixedSource{floats: floats}
}

// Float64 returns the next predetermined float.
func (s *FixedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.floats) {
		panic("FixedSource: all floats exhausted")
	}
	f := s.floats[s.idx]
	s.idx++
	return f
}

// Remaining returns how many floats have not been consumed yet.
func (s *FixedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.floats) - s.idx
}
