// Package runner drives compiled experiments to completion.
//
// The runner is the cooperative scheduler the sequencing engine is built
// for: it owns the loop, asks the cursor for one trial at a time, and
// interleaves persistence (and, in a full application, stimulus
// presentation) between advances. Cancellation is expressed by ceasing to
// advance: the runner checks its context between steps, never mid-step.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbehavior/trialrun/internal/conditions"
	"github.com/openbehavior/trialrun/internal/design"
	"github.com/openbehavior/trialrun/internal/randsrc"
	"github.com/openbehavior/trialrun/internal/results"
	"github.com/openbehavior/trialrun/internal/sequence"
)

// Runner executes experiments against a results store.
type Runner struct {
	store *results.Store
	ids   results.RunIDGenerator
}

// New creates a runner. A nil generator defaults to UUIDv7 run IDs.
func New(store *results.Store, ids results.RunIDGenerator) *Runner {
	if ids == nil {
		ids = results.UUIDv7Generator{}
	}
	return &Runner{store: store, ids: ids}
}

// Run executes every loop of an experiment to completion and returns the
// new run's ID. All loops draw randomness from a single source seeded
// with the experiment's seed, so the whole run is reproducible from the
// definition alone.
//
// The run ID is returned even on error so a partial run can be inspected.
func (r *Runner) Run(ctx context.Context, exp design.Experiment) (string, error) {
	runID := r.ids.Generate()
	if err := r.store.CreateRun(ctx, runID, exp.Name, exp.Seed); err != nil {
		return runID, fmt.Errorf("create run: %w", err)
	}

	slog.Info("run starting",
		"run_id", runID,
		"experiment", exp.Name,
		"seed", exp.Seed,
		"loops", len(exp.Loops),
	)

	src := randsrc.New(exp.Seed)
	for _, loop := range exp.Loops {
		if err := r.runLoop(ctx, runID, loop, src); err != nil {
			return runID, fmt.Errorf("loop %s: %w", loop.Name, err)
		}
	}

	slog.Info("run complete", "run_id", runID)
	return runID, nil
}

// runLoop builds one loop's ordering and iterates it to exhaustion,
// persisting every yielded trial. A snapshot is journaled per step; the
// journal is run-local today but keeps restore paths exercised and gives
// a resume point if a loop is ever suspended mid-run.
func (r *Runner) runLoop(ctx context.Context, runID string, loop design.Loop, src sequence.Source) error {
	set, err := conditions.Load(loop.ConditionsFile, loop.Selection)
	if err != nil {
		return fmt.Errorf("load conditions: %w", err)
	}

	ord, err := sequence.Build(set.Len(), loop.Reps, loop.Method, src)
	if err != nil {
		return fmt.Errorf("build ordering: %w", err)
	}

	sink := r.store.SinkFor(ctx, runID, loop.Name)
	cur, err := sequence.NewCursor(set, ord, sequence.WithSink(sink))
	if err != nil {
		return fmt.Errorf("create cursor: %w", err)
	}
	sink.Bind(cur)

	journal := sequence.NewJournal()

	slog.Info("loop starting",
		"run_id", runID,
		"loop", loop.Name,
		"method", loop.Method.String(),
		"reps", loop.Reps,
		"trials", set.Len(),
		"total", ord.Total(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, ok := cur.Advance()
		if !ok {
			break
		}
		if err := r.store.WriteTrial(ctx, runID, loop.Name, cur.State(), rec); err != nil {
			return fmt.Errorf("persist trial: %w", err)
		}
		journal.Capture(cur)
	}

	cur.SetFinished(true)
	slog.Info("loop complete",
		"run_id", runID,
		"loop", loop.Name,
		"yielded", cur.State().Completed,
		"snapshots", journal.Len(),
	)
	return nil
}
