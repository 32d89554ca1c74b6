package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbehavior/trialrun/internal/design"
	"github.com/openbehavior/trialrun/internal/results"
	"github.com/openbehavior/trialrun/internal/sequence"
)

func writeConditions(t *testing.T, csv string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conditions.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return path
}

func openTestStore(t *testing.T) *results.Store {
	t.Helper()
	st, err := results.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunner_SequentialLoop(t *testing.T) {
	path := writeConditions(t, "word\nred\ngreen\nblue\n")
	st := openTestStore(t)

	exp := design.Experiment{
		Name: "stroop",
		Seed: 7,
		Loops: []design.Loop{
			{Name: "main", Reps: 2, Method: sequence.Sequential, ConditionsFile: path},
		},
	}

	r := New(st, results.NewFixedIDs("run-1"))
	runID, err := r.Run(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	run, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "stroop", run.Experiment)
	assert.Equal(t, uint64(7), run.Seed)

	trials, err := st.ReadTrials(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, trials, 6)

	words := make([]string, 0, len(trials))
	for _, tr := range trials {
		words = append(words, tr.Record["word"].(string))
	}
	assert.Equal(t, []string{"red", "green", "blue", "red", "green", "blue"}, words)
	assert.Equal(t, 1, trials[0].Seq)
	assert.Equal(t, 0, trials[0].Rep)
	assert.Equal(t, 1, trials[3].Rep, "fourth trial opens the second repetition")
}

func TestRunner_MultipleLoops(t *testing.T) {
	practice := writeConditions(t, "word\nred\n")
	main := writeConditions(t, "word\ngreen\nblue\n")
	st := openTestStore(t)

	exp := design.Experiment{
		Name: "stroop",
		Seed: 1,
		Loops: []design.Loop{
			{Name: "practice", Reps: 1, Method: sequence.Sequential, ConditionsFile: practice},
			{Name: "main", Reps: 1, Method: sequence.Sequential, ConditionsFile: main},
		},
	}

	r := New(st, results.NewFixedIDs("run-1"))
	_, err := r.Run(context.Background(), exp)
	require.NoError(t, err)

	trials, err := st.ReadTrials(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, trials, 3)
	assert.Equal(t, "practice", trials[0].Loop)
	assert.Equal(t, "main", trials[1].Loop)
	assert.Equal(t, "main", trials[2].Loop)
}

func TestRunner_SameSeedSameOrder(t *testing.T) {
	path := writeConditions(t, "word\na\nb\nc\nd\ne\n")

	order := func(runID string) []int {
		st := openTestStore(t)
		exp := design.Experiment{
			Name: "shuffled",
			Seed: 99,
			Loops: []design.Loop{
				{Name: "main", Reps: 3, Method: sequence.Random, ConditionsFile: path},
			},
		}
		_, err := New(st, results.NewFixedIDs(runID)).Run(context.Background(), exp)
		require.NoError(t, err)

		trials, err := st.ReadTrials(context.Background(), runID)
		require.NoError(t, err)
		indices := make([]int, 0, len(trials))
		for _, tr := range trials {
			indices = append(indices, tr.StimIndex)
		}
		return indices
	}

	first := order("run-1")
	second := order("run-2")
	require.Len(t, first, 15)
	assert.Equal(t, first, second, "identical seeds must reproduce the ordering")
}

func TestRunner_SelectionNarrowsConditions(t *testing.T) {
	path := writeConditions(t, "word\na\nb\nc\nd\n")
	st := openTestStore(t)

	exp := design.Experiment{
		Name: "subset",
		Seed: 0,
		Loops: []design.Loop{
			{Name: "main", Reps: 1, Method: sequence.Sequential, ConditionsFile: path, Selection: "1:3"},
		},
	}

	_, err := New(st, results.NewFixedIDs("run-1")).Run(context.Background(), exp)
	require.NoError(t, err)

	trials, err := st.ReadTrials(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, "b", trials[0].Record["word"])
	assert.Equal(t, "c", trials[1].Record["word"])
}

func TestRunner_MissingConditionsFile(t *testing.T) {
	st := openTestStore(t)
	exp := design.Experiment{
		Name: "broken",
		Loops: []design.Loop{
			{Name: "main", Reps: 1, Method: sequence.Sequential, ConditionsFile: "/nonexistent.csv"},
		},
	}

	_, err := New(st, results.NewFixedIDs("run-1")).Run(context.Background(), exp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop main")
}

func TestRunner_CancelledContext(t *testing.T) {
	path := writeConditions(t, "word\nred\n")
	st := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exp := design.Experiment{
		Name: "cancelled",
		Loops: []design.Loop{
			{Name: "main", Reps: 1, Method: sequence.Sequential, ConditionsFile: path},
		},
	}
	_, err := New(st, results.NewFixedIDs("run-1")).Run(ctx, exp)
	assert.Error(t, err)
}

func TestRunner_NilGeneratorDefaultsToUUID(t *testing.T) {
	path := writeConditions(t, "word\nred\n")
	st := openTestStore(t)

	exp := design.Experiment{
		Name: "auto-id",
		Loops: []design.Loop{
			{Name: "main", Reps: 1, Method: sequence.Sequential, ConditionsFile: path},
		},
	}
	runID, err := New(st, nil).Run(context.Background(), exp)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
}
