package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openbehavior/trialrun/internal/design"
	"github.com/openbehavior/trialrun/internal/results"
	"github.com/openbehavior/trialrun/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator results.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <designs-dir>",
		Short: "Run experiments and persist their trials",
		Long: `Run every experiment in a definitions directory to completion.

Loads CUE experiment definitions, opens a SQLite results database
(creating it if it doesn't exist), and sequences each experiment's loops
trial by trial, persisting every yielded trial.

Example:
  trialrun run --db ./results.db ./designs
  trialrun run --db /tmp/pilot.db ./designs --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiments(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExperiments(opts *RunOptions, designsDir string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading definitions", "dir", designsDir)
	result, loadErrors := design.LoadDir(designsDir, design.LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load definitions", loadErrors[0])
	}
	slog.Info("definitions loaded", "experiments", len(result.Experiments))

	slog.Info("opening results database", "path", opts.Database)
	st, err := results.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Setup signal handling for graceful shutdown. The runner checks its
	// context between trials, so an interrupt stops at a step boundary.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after current trial", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	r := runner.New(st, opts.IDGenerator)
	for _, exp := range result.Experiments {
		runID, err := r.Run(ctx, exp)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("experiment %s failed (run %s)", exp.Name, runID), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: run %s complete\n", exp.Name, runID)
	}

	return nil
}
