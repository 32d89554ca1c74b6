package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbehavior/trialrun/internal/randsrc"
	"github.com/openbehavior/trialrun/internal/testutil"
)

func TestBuild_Sequential_IdentityRows(t *testing.T) {
	ord, err := Build(3, 2, Sequential, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, ord.Reps())
	assert.Equal(t, 3, ord.Trials())
	assert.Equal(t, 6, ord.Total())
	assert.Equal(t, []int{0, 1, 2}, ord.Row(0))
	assert.Equal(t, []int{0, 1, 2}, ord.Row(1))
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, ord.Flat())
}

func TestBuild_Sequential_ConsumesNoRandomness(t *testing.T) {
	src := testutil.NewFixedSource() // would panic on any draw

	_, err := Build(4, 3, Sequential, src)
	require.NoError(t, err)
	assert.Equal(t, 0, src.Remaining())
}

func TestBuild_Random_HandComputedShuffle(t *testing.T) {
	// One row of 3 consumes two draws:
	//   i=2: j=floor(0.0*3)=0 → swap → [2,1,0]
	//   i=1: j=floor(0.0*2)=0 → swap → [1,2,0]
	src := testutil.NewFixedSource(0.0, 0.0)

	ord, err := Build(3, 1, Random, src)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, ord.Row(0))
}

func TestBuild_Random_TopOfRangeDraws(t *testing.T) {
	// Draws near 1.0 select j == i each time: identity survives.
	src := testutil.NewFixedSource(0.9, 0.9)

	ord, err := Build(3, 1, Random, src)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ord.Row(0))
}

func TestBuild_Random_EveryRowIsPermutation(t *testing.T) {
	const stimCount, repeats = 17, 5
	ord, err := Build(stimCount, repeats, Random, randsrc.New(42))
	require.NoError(t, err)

	for r := 0; r < repeats; r++ {
		row := ord.Row(r)
		seen := make(map[int]bool, stimCount)
		for _, idx := range row {
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, stimCount)
			assert.False(t, seen[idx], "row %d: index %d duplicated", r, idx)
			seen[idx] = true
		}
		assert.Len(t, seen, stimCount, "row %d should be a full permutation", r)
	}
}

func TestBuild_Random_SameSeedSameOrdering(t *testing.T) {
	a, err := Build(11, 4, Random, randsrc.New(1234))
	require.NoError(t, err)
	b, err := Build(11, 4, Random, randsrc.New(1234))
	require.NoError(t, err)

	assert.Equal(t, a.Flat(), b.Flat(), "same seed must reproduce the same ordering")
}

func TestBuild_FullRandom_SameSeedSameOrdering(t *testing.T) {
	a, err := Build(11, 4, FullRandom, randsrc.New(99))
	require.NoError(t, err)
	b, err := Build(11, 4, FullRandom, randsrc.New(99))
	require.NoError(t, err)

	assert.Equal(t, a.Flat(), b.Flat())
}

func TestBuild_FullRandom_RowMayContainDuplicates(t *testing.T) {
	// Flat start [0,1,0,1], three draws:
	//   i=3: j=floor(0.0*4)=0 → swap → [1,1,0,0]
	//   i=2: j=floor(0.7*3)=2 → no-op
	//   i=1: j=floor(0.7*2)=1 → no-op
	src := testutil.NewFixedSource(0.0, 0.7, 0.7)

	ord, err := Build(2, 2, FullRandom, src)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, ord.Row(0), "a FullRandom row may repeat an index")
	assert.Equal(t, []int{0, 0}, ord.Row(1))
}

func TestBuild_FullRandom_MultisetPreserved(t *testing.T) {
	const stimCount, repeats = 9, 6
	ord, err := Build(stimCount, repeats, FullRandom, randsrc.New(7))
	require.NoError(t, err)

	counts := make(map[int]int)
	for _, idx := range ord.Flat() {
		counts[idx]++
	}
	assert.Len(t, counts, stimCount)
	for idx, n := range counts {
		assert.Equal(t, repeats, n, "index %d should appear once per repetition overall", idx)
	}
}

func TestBuild_ZeroCounts(t *testing.T) {
	for _, tc := range []struct{ stimCount, repeats int }{
		{0, 5},
		{5, 0},
		{0, 0},
	} {
		ord, err := Build(tc.stimCount, tc.repeats, Sequential, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, ord.Total())
		assert.Equal(t, 0, ord.Reps())
		assert.Empty(t, ord.Flat())
	}
}

func TestBuild_NegativeCounts(t *testing.T) {
	_, err := Build(-1, 2, Sequential, nil)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	_, err = Build(2, -1, Sequential, nil)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuild_UnknownMethod(t *testing.T) {
	_, err := Build(3, 2, Method(42), nil)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeInvalidMethod, ce.Code)
}

func TestBuild_RandomizedMethodNeedsSource(t *testing.T) {
	_, err := Build(3, 2, Random, nil)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeMissingSource, ce.Code)

	_, err = Build(3, 2, FullRandom, nil)
	require.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	for name, want := range map[string]Method{
		"sequential":  Sequential,
		"Sequential":  Sequential,
		"random":      Random,
		"fullRandom":  FullRandom,
		"full_random": FullRandom,
		"full-random": FullRandom,
	} {
		got, err := ParseMethod(name)
		require.NoError(t, err, "parsing %q", name)
		assert.Equal(t, want, got, "parsing %q", name)
	}

	_, err := ParseMethod("shuffled")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
