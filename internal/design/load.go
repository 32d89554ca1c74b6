package design

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadMode controls how errors are handled during definition loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the experiments compiled from a directory.
type LoadResult struct {
	Experiments []Experiment
	FileCount   int // Number of CUE files found
}

// LoadError represents an error that occurred during definition loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all commands that load definitions.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Experiment validation errors
	ErrCodeLoopRequired   = "E101" // Experiment without loops
	ErrCodeLoopReps       = "E102" // Bad repetition count
	ErrCodeLoopMethod     = "E103" // Bad ordering method
	ErrCodeLoopConditions = "E104" // Bad conditions reference
	ErrCodeBadSeed        = "E105" // Bad seed value
)

// LoadDir loads and compiles CUE experiment definitions from a directory.
//
// Condition file paths in the compiled loops are resolved relative to the
// directory. If mode is LoadModeFailFast, returns on first error; with
// LoadModeCollectAll every definition is attempted and all errors are
// reported together.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	expsVal := value.LookupPath(cue.ParsePath("experiment"))
	if !expsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no experiments found in definitions"}}
	}

	iter, iterErr := expsVal.Fields()
	if iterErr != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating experiments: %v", iterErr)}}
	}
	for iter.Next() {
		exp, compileErr := CompileExperiment(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "experiment."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		resolveConditionPaths(exp, dir)
		result.Experiments = append(result.Experiments, *exp)
	}

	if len(result.Experiments) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no experiments found in definitions"})
	}

	return result, errs
}

// resolveConditionPaths rewrites relative condition file paths against the
// definitions directory.
func resolveConditionPaths(exp *Experiment, dir string) {
	for i := range exp.Loops {
		if !filepath.IsAbs(exp.Loops[i].ConditionsFile) {
			exp.Loops[i].ConditionsFile = filepath.Join(dir, exp.Loops[i].ConditionsFile)
		}
	}
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a CompileError to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    mapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// mapFieldToErrorCode maps a compile error field to an error code.
func mapFieldToErrorCode(field string) string {
	switch {
	case field == "seed":
		return ErrCodeBadSeed
	case field == "loop":
		return ErrCodeLoopRequired
	case hasLoopSuffix(field, ".reps"):
		return ErrCodeLoopReps
	case hasLoopSuffix(field, ".method"):
		return ErrCodeLoopMethod
	case hasLoopSuffix(field, ".conditions"), hasLoopSuffix(field, ".select"):
		return ErrCodeLoopConditions
	default:
		return ErrCodeGeneric
	}
}

func hasLoopSuffix(field, suffix string) bool {
	return len(field) > len(suffix) && field[len(field)-len(suffix):] == suffix
}
