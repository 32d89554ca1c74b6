package sequence

// Ordering is the full trial-index ordering for a run: repeats rows of
// stimCount trial indices, each cell in [0, stimCount).
//
// An Ordering is built exactly once per run and never mutated afterwards.
// It is owned by the cursor that iterates it; the accessors below hand out
// copies so callers cannot disturb iteration.
type Ordering struct {
	rows      [][]int
	stimCount int
}

// Reps returns the number of repetitions (rows).
func (o *Ordering) Reps() int {
	return len(o.rows)
}

// Trials returns the number of trials per repetition (columns).
func (o *Ordering) Trials() int {
	return o.stimCount
}

// Total returns the total number of trials across all repetitions.
func (o *Ordering) Total() int {
	return len(o.rows) * o.stimCount
}

// At returns the trial index at a given repetition and trial position.
// Callers must keep both coordinates in range; At is only reached through
// cursor counters that already satisfy the bounds.
func (o *Ordering) At(repeat, trial int) int {
	return o.rows[repeat][trial]
}

// Row returns a copy of one repetition's trial indices.
func (o *Ordering) Row(repeat int) []int {
	if repeat < 0 || repeat >= len(o.rows) {
		return nil
	}
	out := make([]int, len(o.rows[repeat]))
	copy(out, o.rows[repeat])
	return out
}

// Flat returns a copy of the ordering flattened row by row.
func (o *Ordering) Flat() []int {
	out := make([]int, 0, o.Total())
	for _, row := range o.rows {
		out = append(out, row...)
	}
	return out
}

// Build produces the full trial-index ordering for a run.
//
// Sequential consumes no randomness: every row is the identity permutation.
// Random shuffles each row independently. FullRandom concatenates all rows
// into one flat sequence, shuffles it once, and re-chunks it; unlike Random
// it gives no per-row permutation guarantee.
//
// stimCount == 0 or repeats == 0 yields an empty ordering; a cursor over it
// is exhausted after zero advances. Negative counts, unknown methods, and a
// nil source for a randomized method are ConfigErrors — fatal, no partial
// ordering is returned.
func Build(stimCount, repeats int, method Method, src Source) (*Ordering, error) {
	if stimCount < 0 {
		return nil, NewCountError("stimCount", stimCount)
	}
	if repeats < 0 {
		return nil, NewCountError("repeats", repeats)
	}
	if !method.valid() {
		return nil, NewMethodError(method.String())
	}
	if method != Sequential && src == nil {
		return nil, NewMissingSourceError(method)
	}

	if stimCount == 0 || repeats == 0 {
		return &Ordering{stimCount: stimCount}, nil
	}

	ord := &Ordering{
		rows:      make([][]int, repeats),
		stimCount: stimCount,
	}

	switch method {
	case Sequential:
		for r := range ord.rows {
			ord.rows[r] = identity(stimCount)
		}

	case Random:
		// Rows are shuffled independently; no correlation across rows.
		for r := range ord.rows {
			row := identity(stimCount)
			shuffle(row, src)
			ord.rows[r] = row
		}

	case FullRandom:
		flat := make([]int, 0, repeats*stimCount)
		for r := 0; r < repeats; r++ {
			flat = append(flat, identity(stimCount)...)
		}
		shuffle(flat, src)
		for r := range ord.rows {
			ord.rows[r] = flat[r*stimCount : (r+1)*stimCount]
		}
	}

	return ord, nil
}

// identity returns [0, 1, ..., n-1].
func identity(n int) []int {
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i
	}
	return xs
}

// shuffle permutes xs in place with the standard Fisher–Yates algorithm.
//
// This is the only place raw random draws are converted to discrete
// choices: j = floor(src.Float64() * (i+1)). The clamp guards against a
// float product rounding up to exactly i+1 at the top of the range.
func shuffle(xs []int, src Source) {
	for i := len(xs) - 1; i >= 1; i-- {
		j := int(src.Float64() * float64(i+1))
		if j > i {
			j = i
		}
		xs[i], xs[j] = xs[j], xs[i]
	}
}
