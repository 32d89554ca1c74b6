// Package harness executes YAML-defined scenarios against the sequencing
// engine and records a deterministic trace of every operation's outcome.
//
// Scenarios are the conformance layer: each one declares inline trial
// conditions, an ordering method with a fixed random stream, and a series
// of cursor steps. The trace is compared against golden files (see
// RunWithGolden), so a behavioral change in the engine surfaces as a
// golden file diff rather than a hand-maintained assertion.
package harness

import (
	"fmt"

	"github.com/openbehavior/trialrun/internal/sequence"
	"github.com/openbehavior/trialrun/internal/testutil"
	"github.com/openbehavior/trialrun/internal/trial"
)

// Result holds everything produced by a scenario run.
type Result struct {
	// Scenario is the executed scenario.
	Scenario *Scenario

	// Trace is one event map per observed operation, in execution order.
	// Maps marshal with sorted keys, so the trace serializes canonically.
	Trace []map[string]any

	// Cursor is the cursor in its final state, for extra assertions.
	Cursor *sequence.Cursor

	// Journal holds the snapshots captured during the run.
	Journal *sequence.Journal
}

func (r *Result) emit(event map[string]any) {
	r.Trace = append(r.Trace, event)
}

// traceSink records forwarded data pairs as trace events, positioned by
// the cursor's completed count.
type traceSink struct {
	result *Result
	cursor *sequence.Cursor
}

func (k *traceSink) AddData(key string, value any) error {
	seq := 0
	if k.cursor != nil {
		seq = k.cursor.State().Completed
	}
	k.result.emit(map[string]any{
		"op":    "data",
		"seq":   seq,
		"key":   key,
		"value": value,
	})
	return nil
}

// Run executes a scenario and returns its trace.
//
// The cursor's data sink is a trace recorder, so add_data steps appear in
// the trace as "data" events stamped with the position they were forwarded
// at.
func Run(s *Scenario) (*Result, error) {
	method, err := sequence.ParseMethod(s.Method)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	records := make([]trial.Record, len(s.Conditions))
	for i, m := range s.Conditions {
		records[i] = trial.Record(m)
	}
	set := trial.NewSet(records)

	var src sequence.Source
	if len(s.Floats) > 0 {
		src = testutil.NewFixedSource(s.Floats...)
	}

	ord, err := sequence.Build(set.Len(), s.Reps, method, src)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := &Result{Scenario: s, Journal: sequence.NewJournal()}
	sink := &traceSink{result: result}
	cur, err := sequence.NewCursor(set, ord, sequence.WithSink(sink))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	sink.cursor = cur
	result.Cursor = cur

	for i, step := range s.Steps {
		if err := runStep(result, step); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d (%s): %w", s.Name, i, step.Op, err)
		}
	}
	return result, nil
}

func runStep(r *Result, step Step) error {
	switch step.Op {
	case OpAdvance:
		rec, ok := r.Cursor.Advance()
		event := map[string]any{
			"op":    OpAdvance,
			"ok":    ok,
			"state": stateMap(r.Cursor.State()),
		}
		if ok {
			event["record"] = map[string]any(rec)
		}
		r.emit(event)

	case OpDrain:
		yielded := 0
		for {
			if _, ok := r.Cursor.Advance(); !ok {
				break
			}
			yielded++
		}
		r.emit(map[string]any{
			"op":      OpDrain,
			"yielded": yielded,
			"state":   stateMap(r.Cursor.State()),
		})

	case OpCapture:
		snap := r.Journal.Capture(r.Cursor)
		event := map[string]any{
			"op":  OpCapture,
			"seq": snap.Seq(),
		}
		if fields := snap.Fields(); len(fields) > 0 {
			event["fields"] = map[string]any(fields)
		}
		if dropped := snap.Dropped(); len(dropped) > 0 {
			event["dropped"] = dropped
		}
		r.emit(event)

	case OpRestore:
		snap := r.Journal.Latest()
		snap.Restore()
		event := map[string]any{
			"op": OpRestore,
			"ok": snap != nil,
		}
		if snap != nil {
			event["state"] = stateMap(r.Cursor.State())
		}
		r.emit(event)

	case OpPeek:
		rec, ok := r.Cursor.PeekRelative(step.N)
		event := map[string]any{
			"op": OpPeek,
			"n":  step.N,
			"ok": ok,
		}
		if ok {
			event["record"] = map[string]any(rec)
		}
		r.emit(event)

	case OpRecordAt:
		rec, ok := r.Cursor.RecordAt(step.Index)
		event := map[string]any{
			"op":    OpRecordAt,
			"index": step.Index,
			"ok":    ok,
		}
		if ok {
			event["record"] = map[string]any(rec)
		}
		r.emit(event)

	case OpAddData:
		// The sink emits the trace event.
		return r.Cursor.AddData(step.Key, step.Value)

	case OpSetFinished:
		v, ok := step.Value.(bool)
		if !ok {
			return fmt.Errorf("set_finished requires a bool value, got %T", step.Value)
		}
		r.Cursor.SetFinished(v)
		r.emit(map[string]any{
			"op":       OpSetFinished,
			"finished": v,
		})

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func stateMap(st sequence.State) map[string]any {
	return map[string]any{
		"repeat":    st.Repeat,
		"trial":     st.TrialInRepeat,
		"completed": st.Completed,
		"remaining": st.Remaining,
		"index":     st.Index,
		"started":   st.HasStarted,
		"finished":  st.Finished,
	}
}
