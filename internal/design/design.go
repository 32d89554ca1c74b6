// Package design compiles experiment definition files written in CUE.
//
// A definition file declares one or more experiments, each a sequence of
// loops over a condition file:
//
//	experiment: stroop: {
//	    seed: 42
//	    loop: practice: {
//	        reps:       1
//	        method:     "sequential"
//	        conditions: "stroop.csv"
//	        select:     "0:5"
//	    }
//	    loop: main: {
//	        reps:       4
//	        method:     "random"
//	        conditions: "stroop.csv"
//	    }
//	}
//
// Compilation uses the CUE SDK's Go API directly (not a CLI subprocess)
// and produces plain structs; the runtime never touches CUE values after
// loading.
package design

import "github.com/openbehavior/trialrun/internal/sequence"

// Experiment is a compiled experiment definition.
type Experiment struct {
	// Name is the experiment's label in the definition file.
	Name string

	// Seed seeds the run's random source. Loops within one run draw from
	// a single stream, so orderings across loops are jointly reproducible.
	Seed uint64

	// Loops run in declaration order.
	Loops []Loop
}

// Loop describes one block of trials drawn from a condition file.
type Loop struct {
	// Name is the loop's label in the definition file.
	Name string

	// Reps is the repetition count. Defaults to 1.
	Reps int

	// Method orders the trials. Defaults to Sequential.
	Method sequence.Method

	// ConditionsFile is the condition file path, resolved relative to the
	// definition file's directory at load time.
	ConditionsFile string

	// Selection is an optional row-selection expression for the condition
	// file (see conditions.ParseSelection).
	Selection string
}
