package sequence

import (
	"log/slog"
	"sort"

	"github.com/openbehavior/trialrun/internal/trial"
)

// Reserved field keys. The engine reports its own counters through the
// data sink under these keys; a trial record's field is never allowed to
// silently overwrite one of them in a snapshot's exposed view.
const (
	KeyRepeat        = "trialrun.repeat"
	KeyTrialInRepeat = "trialrun.trial"
	KeyCompleted     = "trialrun.completed"
	KeyRemaining     = "trialrun.remaining"
	KeyIndex         = "trialrun.index"
	KeyStarted       = "trialrun.started"
	KeyFinished      = "trialrun.finished"
)

var reservedKeys = map[string]bool{
	KeyRepeat:        true,
	KeyTrialInRepeat: true,
	KeyCompleted:     true,
	KeyRemaining:     true,
	KeyIndex:         true,
	KeyStarted:       true,
	KeyFinished:      true,
}

// IsReservedKey reports whether a field name collides with an
// engine-reserved counter name.
func IsReservedKey(key string) bool {
	return reservedKeys[key]
}

// ReservedKeys returns all engine-reserved counter names, sorted.
func ReservedKeys() []string {
	keys := make([]string, 0, len(reservedKeys))
	for k := range reservedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is an immutable capture of cursor state plus a field-by-field
// copy of the currently-pointed trial record.
//
// A snapshot carries a back-reference to the cursor it was taken from; it
// does not own live state (the cursor remains the sole owner) and multiple
// snapshots coexist read-independently. Mutating one snapshot's exposed
// fields never affects another snapshot or the live cursor except through
// an explicit Restore. Restoring onto a different cursor is not a
// supported operation.
type Snapshot struct {
	cursor  *Cursor
	seq     int64
	state   State
	fields  trial.Record
	dropped []string
}

// Capture copies the cursor's counters and every non-reserved field of the
// currently-pointed record into a new, independent snapshot.
//
// A record field whose name collides with an engine-reserved counter name
// is dropped from the snapshot's exposed view with a warning; the
// collision is recovered locally and iteration continues.
func Capture(c *Cursor) *Snapshot {
	s := &Snapshot{
		cursor: c,
		state:  c.State(),
		fields: make(trial.Record),
	}

	if c.current != nil {
		for _, k := range c.current.SortedKeys() {
			if reservedKeys[k] {
				slog.Warn("trial field collides with reserved counter name, dropping from snapshot",
					"field", k,
					"index", s.state.Index,
				)
				s.dropped = append(s.dropped, k)
				continue
			}
			s.fields[k] = c.current[k]
		}
	}
	return s
}

// Seq returns the logical capture time stamped by a Journal, 0 for
// standalone captures.
func (s *Snapshot) Seq() int64 {
	return s.seq
}

// State returns the captured counters.
func (s *Snapshot) State() State {
	return s.state
}

// Fields returns a copy of the captured non-reserved record fields.
func (s *Snapshot) Fields() trial.Record {
	return s.fields.Clone()
}

// Dropped returns the names of fields dropped for colliding with reserved
// counter names, in capture order.
func (s *Snapshot) Dropped() []string {
	out := make([]string, len(s.dropped))
	copy(out, s.dropped)
	return out
}

// CurrentRecord fetches the record the owning cursor currently points at.
func (s *Snapshot) CurrentRecord() (trial.Record, bool) {
	if s == nil {
		return nil, false
	}
	return s.cursor.Current()
}

// RecordAt fetches the record at a flat sequence position of the owning
// cursor, with the cursor's strict bounds.
func (s *Snapshot) RecordAt(i int) (trial.Record, bool) {
	if s == nil {
		return nil, false
	}
	return s.cursor.RecordAt(i)
}

// AddData forwards a field/value pair to the owning cursor's data sink.
func (s *Snapshot) AddData(key string, value any) error {
	if s == nil {
		return nil
	}
	return s.cursor.AddData(key, value)
}

// Restore writes every captured counter back onto the cursor the snapshot
// was taken from, re-resolves the current trial via the restored index,
// and re-applies the captured non-reserved fields onto the cursor's
// external context.
//
// Restore on a nil snapshot is a guarded no-op. Capture followed
// immediately by Restore with no intervening Advance leaves the cursor
// unchanged.
func (s *Snapshot) Restore() {
	if s == nil {
		return
	}

	c := s.cursor
	c.repeat = s.state.Repeat
	c.trialInRepeat = s.state.TrialInRepeat
	c.completed = s.state.Completed
	c.remaining = s.state.Remaining
	c.index = s.state.Index
	c.hasStarted = s.state.HasStarted
	c.finished = s.state.Finished

	if rec, ok := c.set.At(c.index); ok {
		c.current = rec
	} else {
		c.current = nil
	}

	if len(s.fields) > 0 && c.bindings == nil {
		c.bindings = make(map[string]any, len(s.fields))
	}
	for k, v := range s.fields {
		c.bindings[k] = v
	}

	slog.Debug("cursor restored from snapshot",
		"seq", s.seq,
		"repeat", c.repeat,
		"trial_in_repeat", c.trialInRepeat,
		"index", c.index,
	)
}

// Journal accumulates the snapshots taken during one run, stamped by a
// logical clock. Each snapshot is independent; the journal owns none of
// the live cursor state and is destroyed with the run.
type Journal struct {
	clock *Clock
	snaps []*Snapshot
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{clock: NewClock()}
}

// Capture takes a snapshot of the cursor, stamps it with the next logical
// sequence number, and appends it to the journal.
func (j *Journal) Capture(c *Cursor) *Snapshot {
	s := Capture(c)
	s.seq = j.clock.Next()
	j.snaps = append(j.snaps, s)
	return s
}

// Len returns the number of snapshots captured so far.
func (j *Journal) Len() int {
	return len(j.snaps)
}

// At returns the i-th snapshot in capture order.
func (j *Journal) At(i int) (*Snapshot, bool) {
	if i < 0 || i >= len(j.snaps) {
		return nil, false
	}
	return j.snaps[i], true
}

// Latest returns the most recent snapshot, or nil if none were captured.
// The nil return pairs with Snapshot.Restore's guarded no-op: restoring
// from an absent snapshot never raises.
func (j *Journal) Latest() *Snapshot {
	if len(j.snaps) == 0 {
		return nil
	}
	return j.snaps[len(j.snaps)-1]
}
