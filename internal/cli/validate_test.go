package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDesignsDir creates a definitions directory with one CUE file and a
// conditions CSV next to it.
func writeDesignsDir(t *testing.T, cueSrc string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "experiment.cue"), []byte(cueSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stroop.csv"),
		[]byte("word,ink\nred,blue\ngreen,red\nblue,green\n"), 0o644))
	return dir
}

const validDesign = `
experiment: stroop: {
	seed: 7
	loop: main: {
		reps:       2
		method:     "sequential"
		conditions: "stroop.csv"
	}
}
`

func TestValidate_Success(t *testing.T) {
	dir := writeDesignsDir(t, validDesign)
	out, err := executeCommand("validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 experiment(s) valid")
}

func TestValidate_SuccessJSON(t *testing.T) {
	dir := writeDesignsDir(t, validDesign)
	out, err := executeCommand("--format", "json", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"valid":true`)
}

func TestValidate_BadMethod(t *testing.T) {
	dir := writeDesignsDir(t, `
experiment: broken: {
	loop: main: {
		method:     "chaotic"
		conditions: "stroop.csv"
	}
}
`)
	out, err := executeCommand("validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E103")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	dir := writeDesignsDir(t, `
experiment: {
	first: {
		loop: main: {
			method:     "chaotic"
			conditions: "stroop.csv"
		}
	}
	second: {
		loop: main: {
			reps: -1
			conditions: "stroop.csv"
		}
	}
}
`)
	out, err := executeCommand("validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 error(s)")
	assert.Contains(t, out, "E103")
	assert.Contains(t, out, "E102")
}

func TestValidate_MissingDirectory(t *testing.T) {
	_, err := executeCommand("validate", "/nonexistent/designs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_EmptyDirectory(t *testing.T) {
	_, err := executeCommand("validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
