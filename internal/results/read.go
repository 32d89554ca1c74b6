package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/openbehavior/trialrun/internal/trial"
)

// Run is a stored run header.
type Run struct {
	ID         string
	Experiment string
	Seed       uint64
	CreatedAt  string
}

// Trial is one stored trial row with its forwarded data attached.
type Trial struct {
	Loop       string
	Seq        int
	Rep        int
	TrialInRep int
	StimIndex  int
	Record     trial.Record
	Data       map[string]any
}

// ReadRun returns the header for a run.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	var seed int64
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, experiment, seed, created_at FROM runs WHERE run_id = ?
	`, runID).Scan(&r.ID, &r.Experiment, &seed, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	r.Seed = uint64(seed)
	return r, nil
}

// ListRuns returns all run headers in creation order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, experiment, seed, created_at FROM runs ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var seed int64
		if err := rows.Scan(&r.ID, &r.Experiment, &seed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Seed = uint64(seed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ReadTrials returns a run's trials in execution order, each with its
// forwarded data merged in.
func (s *Store) ReadTrials(ctx context.Context, runID string) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT loop, seq, rep, trial_in_rep, stim_index, record
		FROM trials WHERE run_id = ? ORDER BY rowid ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read trials for %s: %w", runID, err)
	}
	defer rows.Close()

	var trials []Trial
	byPos := make(map[string]int) // "loop\x00seq" → index into trials
	for rows.Next() {
		var tr Trial
		var recJSON string
		if err := rows.Scan(&tr.Loop, &tr.Seq, &tr.Rep, &tr.TrialInRep, &tr.StimIndex, &recJSON); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		if err := json.Unmarshal([]byte(recJSON), &tr.Record); err != nil {
			return nil, fmt.Errorf("decode trial record: %w", err)
		}
		byPos[posKey(tr.Loop, tr.Seq)] = len(trials)
		trials = append(trials, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dataRows, err := s.db.QueryContext(ctx, `
		SELECT loop, seq, key, value FROM trial_data WHERE run_id = ? ORDER BY rowid ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read trial data for %s: %w", runID, err)
	}
	defer dataRows.Close()

	for dataRows.Next() {
		var loop, key, valJSON string
		var seq int
		if err := dataRows.Scan(&loop, &seq, &key, &valJSON); err != nil {
			return nil, fmt.Errorf("scan trial data: %w", err)
		}
		idx, ok := byPos[posKey(loop, seq)]
		if !ok {
			// Data recorded at position 0 (before the first advance) or
			// for a trial the store never saw; nothing to attach it to.
			continue
		}
		var val any
		if err := json.Unmarshal([]byte(valJSON), &val); err != nil {
			return nil, fmt.Errorf("decode data value for %q: %w", key, err)
		}
		if trials[idx].Data == nil {
			trials[idx].Data = make(map[string]any)
		}
		trials[idx].Data[key] = val
	}
	return trials, dataRows.Err()
}

func posKey(loop string, seq int) string {
	return fmt.Sprintf("%s\x00%d", loop, seq)
}
