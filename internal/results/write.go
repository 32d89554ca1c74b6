package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openbehavior/trialrun/internal/sequence"
	"github.com/openbehavior/trialrun/internal/trial"
)

// CreateRun inserts a run header row.
// Duplicate run IDs are rejected; the generator is responsible for
// uniqueness.
func (s *Store) CreateRun(ctx context.Context, runID, experiment string, seed uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, experiment, seed)
		VALUES (?, ?, ?)
	`, runID, experiment, int64(seed))
	if err != nil {
		return fmt.Errorf("create run %s: %w", runID, err)
	}
	return nil
}

// WriteTrial appends one yielded trial to a run.
// Uses ON CONFLICT DO NOTHING for idempotency: replaying a trial position
// (after a snapshot restore) is silently ignored, so a restored run
// converges on the same stored trace as an uninterrupted one.
func (s *Store) WriteTrial(ctx context.Context, runID, loop string, st sequence.State, rec trial.Record) error {
	recJSON, err := rec.MarshalOrdered()
	if err != nil {
		return fmt.Errorf("write trial: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (run_id, loop, seq, rep, trial_in_rep, stim_index, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, loop, seq) DO NOTHING
	`,
		runID,
		loop,
		st.Completed,
		st.Repeat,
		st.TrialInRepeat,
		st.Index,
		string(recJSON),
	)
	if err != nil {
		return fmt.Errorf("write trial: %w", err)
	}
	return nil
}

// WriteData appends one forwarded key/value pair for a trial position.
// Idempotent via ON CONFLICT DO NOTHING, matching WriteTrial.
func (s *Store) WriteData(ctx context.Context, runID, loop string, seq int, key string, value any) error {
	valJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("write data %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trial_data (run_id, loop, seq, key, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, loop, seq, key) DO NOTHING
	`, runID, loop, seq, key, string(valJSON))
	if err != nil {
		return fmt.Errorf("write data %q: %w", key, err)
	}
	return nil
}

// Sink adapts the store to the engine's DataSink interface for one loop of
// one run. The cursor's completed count positions each forwarded pair.
type Sink struct {
	ctx    context.Context
	store  *Store
	runID  string
	loop   string
	cursor *sequence.Cursor
}

// SinkFor creates a DataSink bound to a run, loop, and cursor.
//
// The cursor is attached after construction (WithSink needs the sink at
// cursor construction time, but the sink needs the cursor for
// positioning); call Bind once the cursor exists.
func (s *Store) SinkFor(ctx context.Context, runID, loop string) *Sink {
	return &Sink{ctx: ctx, store: s, runID: runID, loop: loop}
}

// Bind attaches the cursor whose position stamps forwarded data.
func (k *Sink) Bind(cursor *sequence.Cursor) {
	k.cursor = cursor
}

// AddData implements sequence.DataSink.
// Pairs forwarded before the first advance (or without a bound cursor)
// are stored at position 0.
func (k *Sink) AddData(key string, value any) error {
	seq := 0
	if k.cursor != nil {
		seq = k.cursor.State().Completed
	}
	return k.store.WriteData(k.ctx, k.runID, k.loop, seq, key, value)
}
