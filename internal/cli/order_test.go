package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_SequentialText(t *testing.T) {
	dir := writeDesignsDir(t, validDesign)
	out, err := executeCommand("order", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "stroop / main (method=sequential reps=2 seed=7, 6 trials)")
	assert.Contains(t, out, `{"ink":"blue","word":"red"}`)
	assert.Contains(t, out, "rep=1")
}

func TestOrder_JSON(t *testing.T) {
	dir := writeDesignsDir(t, validDesign)
	out, err := executeCommand("--format", "json", "order", dir)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []OrderedLoop `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)

	loop := resp.Data[0]
	assert.Equal(t, "stroop", loop.Experiment)
	assert.Equal(t, "main", loop.Loop)
	require.Len(t, loop.Trials, 6)
	assert.Equal(t, 0, loop.Trials[0].Pos)
	assert.Equal(t, "red", loop.Trials[0].Record["word"])
	assert.Equal(t, 1, loop.Trials[5].Rep)
}

func TestOrder_SeedOverrideIsDeterministic(t *testing.T) {
	dir := writeDesignsDir(t, `
experiment: shuffled: {
	seed: 1
	loop: main: {
		reps:       2
		method:     "random"
		conditions: "stroop.csv"
	}
}
`)
	first, err := executeCommand("--format", "json", "order", dir, "--seed", "42")
	require.NoError(t, err)
	second, err := executeCommand("--format", "json", "order", dir, "--seed", "42")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same seed override must reproduce the ordering")
	assert.Contains(t, first, `"seed":42`, "override replaces the definition's seed")
}

func TestOrder_MissingDirectory(t *testing.T) {
	_, err := executeCommand("order", "/nonexistent/designs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
