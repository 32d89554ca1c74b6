package sequence

import "strings"

// Method determines how the trial-index ordering is populated.
// Fixed for the lifetime of a run.
type Method int

const (
	// Sequential presents trials in list order, every repetition identical.
	Sequential Method = iota

	// Random shuffles each repetition independently; every repetition is a
	// permutation of the full trial list.
	Random

	// FullRandom shuffles the concatenation of all repetitions at once; a
	// repetition may contain zero or multiple occurrences of a given trial.
	FullRandom
)

// String returns the canonical lowercase name of the method.
func (m Method) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	case FullRandom:
		return "fullRandom"
	default:
		return "unknown"
	}
}

// valid reports whether m is one of the defined methods.
func (m Method) valid() bool {
	return m == Sequential || m == Random || m == FullRandom
}

// ParseMethod converts a method name to a Method.
// Accepts "sequential", "random", and "fullRandom" (also "full_random" and
// "full-random"), case-insensitively. Unknown names return a ConfigError.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential":
		return Sequential, nil
	case "random":
		return Random, nil
	case "fullrandom", "full_random", "full-random":
		return FullRandom, nil
	default:
		return Sequential, NewMethodError(s)
	}
}
