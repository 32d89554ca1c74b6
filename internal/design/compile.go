package design

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/openbehavior/trialrun/internal/sequence"
)

// CompileError reports a problem in an experiment definition, with the
// CUE source position when one is available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileExperiment parses a CUE value into an Experiment.
//
// The value should be the experiment struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`experiment: stroop: { ... }`)
//	exp, err := design.CompileExperiment(v.LookupPath(cue.ParsePath("experiment.stroop")))
func CompileExperiment(v cue.Value) (*Experiment, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "experiment", Message: err.Error(), Pos: v.Pos()}
	}

	exp := &Experiment{}

	// Experiment name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		exp.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	// seed is optional and defaults to 0.
	seedVal := v.LookupPath(cue.ParsePath("seed"))
	if seedVal.Exists() {
		seed, err := seedVal.Uint64()
		if err != nil {
			return nil, &CompileError{Field: "seed", Message: "seed must be a non-negative integer", Pos: seedVal.Pos()}
		}
		exp.Seed = seed
	}

	// loop is required, at least one.
	loopsVal := v.LookupPath(cue.ParsePath("loop"))
	if !loopsVal.Exists() {
		return nil, &CompileError{Field: "loop", Message: "at least one loop is required", Pos: v.Pos()}
	}
	iter, err := loopsVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "loop", Message: err.Error(), Pos: loopsVal.Pos()}
	}
	for iter.Next() {
		loop, err := compileLoop(strings.Trim(iter.Selector().String(), `"`), iter.Value())
		if err != nil {
			return nil, err
		}
		exp.Loops = append(exp.Loops, *loop)
	}
	if len(exp.Loops) == 0 {
		return nil, &CompileError{Field: "loop", Message: "at least one loop is required", Pos: loopsVal.Pos()}
	}

	return exp, nil
}

// compileLoop parses one loop struct.
func compileLoop(name string, v cue.Value) (*Loop, error) {
	loop := &Loop{
		Name:   name,
		Reps:   1,
		Method: sequence.Sequential,
	}

	repsVal := v.LookupPath(cue.ParsePath("reps"))
	if repsVal.Exists() {
		reps, err := repsVal.Int64()
		if err != nil || reps < 0 {
			return nil, &CompileError{
				Field:   fmt.Sprintf("loop.%s.reps", name),
				Message: "reps must be a non-negative integer",
				Pos:     repsVal.Pos(),
			}
		}
		loop.Reps = int(reps)
	}

	methodVal := v.LookupPath(cue.ParsePath("method"))
	if methodVal.Exists() {
		s, err := methodVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("loop.%s.method", name),
				Message: "method must be a string",
				Pos:     methodVal.Pos(),
			}
		}
		method, err := sequence.ParseMethod(s)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("loop.%s.method", name),
				Message: err.Error(),
				Pos:     methodVal.Pos(),
			}
		}
		loop.Method = method
	}

	condsVal := v.LookupPath(cue.ParsePath("conditions"))
	if !condsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("loop.%s.conditions", name),
			Message: "conditions file path is required",
			Pos:     v.Pos(),
		}
	}
	conds, err := condsVal.String()
	if err != nil || conds == "" {
		return nil, &CompileError{
			Field:   fmt.Sprintf("loop.%s.conditions", name),
			Message: "conditions must be a non-empty string",
			Pos:     condsVal.Pos(),
		}
	}
	loop.ConditionsFile = conds

	selVal := v.LookupPath(cue.ParsePath("select"))
	if selVal.Exists() {
		sel, err := selVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("loop.%s.select", name),
				Message: "select must be a string",
				Pos:     selVal.Pos(),
			}
		}
		loop.Selection = sel
	}

	return loop, nil
}
