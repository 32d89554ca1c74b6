package sequence

import (
	"log/slog"

	"github.com/openbehavior/trialrun/internal/trial"
)

// DataSink receives per-trial key/value pairs forwarded by the cursor.
// Implemented by results.Sink (production) and recording fakes (tests).
// The cursor performs no validation or storage beyond forwarding.
type DataSink interface {
	AddData(key string, value any) error
}

// State is a value copy of all cursor counters at one point in a run.
//
// INVARIANT: Completed + Remaining == total trials at all times after
// construction; Remaining strictly decreases by 1 per successful advance
// until 0.
type State struct {
	// Repeat is the current repetition, 0-based.
	Repeat int

	// TrialInRepeat is the current trial within the repetition, 0-based.
	// -1 before the first advance.
	TrialInRepeat int

	// Completed counts trials yielded so far.
	Completed int

	// Remaining counts trials not yet yielded.
	Remaining int

	// Index is the trial-set index of the current trial, -1 before the
	// first advance.
	Index int

	// HasStarted reports whether any trial has been yielded.
	HasStarted bool

	// Finished is the scheduler-controlled completion flag. Exhausting the
	// index matrix does NOT set it; see Cursor.SetFinished.
	Finished bool
}

// Cursor drives progression through an Ordering one trial at a time.
//
// The cursor is single-threaded and pull-based: the external scheduler
// asks for the next trial, nothing pushes. All state transitions happen
// synchronously inside Advance or Snapshot.Restore.
type Cursor struct {
	set      *trial.Set
	ordering *Ordering
	flat     []int // ordering flattened row by row, for positional lookups

	repeat        int
	trialInRepeat int
	completed     int
	remaining     int
	index         int
	hasStarted    bool
	finished      bool

	current  trial.Record
	bindings map[string]any
	sink     DataSink
}

// CursorOption configures a cursor at construction.
type CursorOption func(*Cursor)

// WithSink attaches a data sink that AddData forwards to.
func WithSink(sink DataSink) CursorOption {
	return func(c *Cursor) {
		c.sink = sink
	}
}

// NewCursor creates a cursor over a trial set and a prebuilt ordering.
//
// The ordering's trial width must match the set length; a mismatch is a
// ConfigError. The set is referenced, not owned — it is read-only shared
// data and is never mutated by the cursor or by snapshots.
func NewCursor(set *trial.Set, ordering *Ordering, opts ...CursorOption) (*Cursor, error) {
	if ordering.Total() > 0 && ordering.Trials() != set.Len() {
		return nil, NewOrderingMismatchError(ordering.Trials(), set.Len())
	}

	c := &Cursor{
		set:           set,
		ordering:      ordering,
		flat:          ordering.Flat(),
		trialInRepeat: -1,
		remaining:     ordering.Total(),
		index:         -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Total returns the total number of trials in the run.
func (c *Cursor) Total() int {
	return len(c.flat)
}

// Advance yields the next trial record, or (nil, false) when the ordering
// is exhausted.
//
// Exhaustion is idempotent: once no further indices exist, every later
// call reports (nil, false) without mutating any counter. Exhaustion does
// NOT set the finished flag — that signals only that no further indices
// exist, not that the scheduler's control flow has closed the loop.
func (c *Cursor) Advance() (trial.Record, bool) {
	if c.remaining == 0 {
		return nil, false
	}

	c.trialInRepeat++
	c.completed++
	c.remaining--
	if c.trialInRepeat == c.ordering.Trials() {
		c.trialInRepeat = 0
		c.repeat++
	}
	if c.repeat >= c.ordering.Reps() {
		// Unreachable when counters are consistent; guards against a
		// snapshot restored with out-of-range state.
		return nil, false
	}

	c.index = c.ordering.At(c.repeat, c.trialInRepeat)
	rec, ok := c.set.At(c.index)
	if !ok {
		// Bad lookup degrades to "no trial"; a long run is never aborted
		// mid-sequence by a single bad index.
		slog.Warn("trial index out of range, skipping",
			"index", c.index,
			"set_len", c.set.Len(),
		)
		return nil, false
	}

	c.current = rec
	c.hasStarted = true

	slog.Debug("trial advanced",
		"repeat", c.repeat,
		"trial_in_repeat", c.trialInRepeat,
		"index", c.index,
		"completed", c.completed,
		"remaining", c.remaining,
	)
	return rec.Clone(), true
}

// PeekRelative returns the record n steps away from the current trial in
// the flattened ordering, without mutating any counter. Negative n looks
// behind (the "earlier trial" case), positive n looks ahead.
//
// Returns (nil, false) outside [0, total); a forward peek past the end is
// exactly the n > remaining case, so no separate check is needed.
func (c *Cursor) PeekRelative(n int) (trial.Record, bool) {
	pos := c.completed - 1 + n
	if pos < 0 || pos >= len(c.flat) {
		return nil, false
	}
	return c.set.At(c.flat[pos])
}

// RecordAt returns the record at flat sequence position i.
// Strict bounds [0, total): out-of-range positions return (nil, false),
// never an error.
func (c *Cursor) RecordAt(i int) (trial.Record, bool) {
	if i < 0 || i >= len(c.flat) {
		return nil, false
	}
	return c.set.At(c.flat[i])
}

// Current returns a copy of the record the cursor currently points at.
// Returns (nil, false) before the first advance.
func (c *Cursor) Current() (trial.Record, bool) {
	if c.current == nil {
		return nil, false
	}
	return c.current.Clone(), true
}

// State returns a value copy of all counters.
func (c *Cursor) State() State {
	return State{
		Repeat:        c.repeat,
		TrialInRepeat: c.trialInRepeat,
		Completed:     c.completed,
		Remaining:     c.remaining,
		Index:         c.index,
		HasStarted:    c.hasStarted,
		Finished:      c.finished,
	}
}

// Finished reports the scheduler-controlled completion flag.
func (c *Cursor) Finished() bool {
	return c.finished
}

// SetFinished sets the completion flag. The flag is the scheduler's way to
// record that the experiment's control flow has closed the loop; Advance
// never sets it.
func (c *Cursor) SetFinished(v bool) {
	c.finished = v
}

// AddData forwards one field/value pair for the current trial to the
// attached data sink. A cursor without a sink drops the pair silently.
func (c *Cursor) AddData(key string, value any) error {
	if c.sink == nil {
		return nil
	}
	return c.sink.AddData(key, value)
}

// Binding returns a value from the cursor's external context. Bindings are
// written only by Snapshot.Restore, which re-applies the captured trial
// fields for the scheduler to read back.
func (c *Cursor) Binding(key string) (any, bool) {
	v, ok := c.bindings[key]
	return v, ok
}

// Bindings returns a copy of the external context.
func (c *Cursor) Bindings() map[string]any {
	out := make(map[string]any, len(c.bindings))
	for k, v := range c.bindings {
		out[k] = v
	}
	return out
}
