package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openbehavior/trialrun/internal/design"
)

// ValidationError is one problem found in a definitions directory.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Experiments int               `json:"experiments"`
	Errors      []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <designs-dir>",
		Short: "Validate experiment definitions without running them",
		Long: `Validate CUE experiment definitions without executing any trials.

Compiles every experiment in the directory and reports all problems
together, giving development feedback faster than a full run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, designsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, loadErrors := design.LoadDir(designsDir, design.LoadModeCollectAll)

	// A nil result means the directory itself was unusable.
	if result == nil && len(loadErrors) > 0 {
		var loadErr *design.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
		}
		_ = formatter.Error(design.ErrCodeGeneric, loadErrors[0].Error(), nil)
		return NewExitError(ExitCommandError, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, designsDir)
	for _, exp := range result.Experiments {
		formatter.VerboseLog("Validated experiment: %s (%d loops)", exp.Name, len(exp.Loops))
	}

	var validationErrors []ValidationError
	for _, err := range loadErrors {
		var loadErr *design.LoadError
		if errors.As(err, &loadErr) {
			ve := ValidationError{Code: loadErr.Code, Message: loadErr.Message}
			if loadErr.Pos.IsValid() {
				ve.Line = loadErr.Pos.Line()
			}
			validationErrors = append(validationErrors, ve)
			continue
		}
		validationErrors = append(validationErrors, ValidationError{
			Code:    design.ErrCodeGeneric,
			Message: err.Error(),
		})
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(result.Experiments), validationErrors)
	}
	return outputValidateSuccess(formatter, len(result.Experiments))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, experiments int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Experiments: experiments})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d experiment(s) valid\n", experiments)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, experiments int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Experiments: experiments, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
