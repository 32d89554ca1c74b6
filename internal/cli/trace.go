package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/openbehavior/trialrun/internal/results"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// TraceRun is the JSON payload for one traced run.
type TraceRun struct {
	Run    results.Run     `json:"run"`
	Trials []results.Trial `json:"trials"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored runs and their trials",
		Long: `Inspect the results database.

Without --run, lists all stored runs. With --run, prints every trial of
that run in execution order, including forwarded per-trial data.

Example:
  trialrun trace --db ./results.db
  trialrun trace --db ./results.db --run 018f3c0a-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (omit to list runs)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// The run command creates databases; trace only inspects them.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error("E005", fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := results.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.RunID == "" {
		return listRuns(formatter, st, ctx)
	}
	return traceRun(formatter, st, ctx, opts.RunID)
}

func listRuns(formatter *OutputFormatter, st *results.Store, ctx context.Context) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		if runs == nil {
			runs = []results.Run{}
		}
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs stored.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  seed=%d  %s\n", r.ID, r.Experiment, r.Seed, r.CreatedAt)
	}
	return nil
}

func traceRun(formatter *OutputFormatter, st *results.Store, ctx context.Context, runID string) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		_ = formatter.Error("E005", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	trials, err := st.ReadTrials(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trials", err)
	}

	if formatter.Format == "json" {
		if trials == nil {
			trials = []results.Trial{}
		}
		return formatter.Success(TraceRun{Run: run, Trials: trials})
	}

	fmt.Fprintf(formatter.Writer, "run %s  experiment=%s  seed=%d  created=%s\n",
		run.ID, run.Experiment, run.Seed, run.CreatedAt)
	for _, tr := range trials {
		rec, err := sequenceRecordJSON(tr.Record)
		if err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "  %s[%d]  rep=%d trial=%d index=%d  %s\n",
			tr.Loop, tr.Seq, tr.Rep, tr.TrialInRep, tr.StimIndex, rec)
		for _, k := range sortedDataKeys(tr.Data) {
			fmt.Fprintf(formatter.Writer, "    %s = %v\n", k, tr.Data[k])
		}
	}
	return nil
}

func sortedDataKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
