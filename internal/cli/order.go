package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openbehavior/trialrun/internal/conditions"
	"github.com/openbehavior/trialrun/internal/design"
	"github.com/openbehavior/trialrun/internal/randsrc"
	"github.com/openbehavior/trialrun/internal/sequence"
	"github.com/openbehavior/trialrun/internal/trial"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Seed uint64
}

// OrderedTrial is one position of a materialized ordering.
type OrderedTrial struct {
	Pos    int            `json:"pos"`
	Rep    int            `json:"rep"`
	Trial  int            `json:"trial"`
	Index  int            `json:"index"`
	Record map[string]any `json:"record"`
}

// OrderedLoop is one loop's fully materialized ordering.
type OrderedLoop struct {
	Experiment string         `json:"experiment"`
	Loop       string         `json:"loop"`
	Method     string         `json:"method"`
	Reps       int            `json:"reps"`
	Seed       uint64         `json:"seed"`
	Trials     []OrderedTrial `json:"trials"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order <designs-dir>",
		Short: "Materialize trial orderings without running or persisting",
		Long: `Materialize the full trial ordering of every experiment in a directory.

A dry run of the sequencing stage: loads conditions, builds the ordering
from the experiment's seed, and prints every position. Nothing is stored.

Example:
  trialrun order ./designs
  trialrun order ./designs --seed 7 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seedOverride := cmd.Flags().Changed("seed")
			return runOrder(opts, args[0], seedOverride, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "override the experiment seed")

	return cmd
}

func runOrder(opts *OrderOptions, designsDir string, seedOverride bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, loadErrors := design.LoadDir(designsDir, design.LoadModeFailFast)
	if len(loadErrors) > 0 {
		_ = formatter.Error(design.ErrCodeGeneric, loadErrors[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load definitions", loadErrors[0])
	}

	var loops []OrderedLoop
	for _, exp := range result.Experiments {
		seed := exp.Seed
		if seedOverride {
			seed = opts.Seed
		}
		src := randsrc.New(seed)

		for _, loop := range exp.Loops {
			ordered, err := materializeLoop(exp.Name, seed, loop, src)
			if err != nil {
				_ = formatter.Error(design.ErrCodeGeneric, err.Error(), nil)
				return WrapExitError(ExitCommandError, fmt.Sprintf("experiment %s, loop %s", exp.Name, loop.Name), err)
			}
			loops = append(loops, ordered)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(loops)
	}
	return printOrderedLoops(formatter, loops)
}

// materializeLoop walks one loop's cursor to exhaustion without a sink.
func materializeLoop(experiment string, seed uint64, loop design.Loop, src sequence.Source) (OrderedLoop, error) {
	set, err := conditions.Load(loop.ConditionsFile, loop.Selection)
	if err != nil {
		return OrderedLoop{}, fmt.Errorf("load conditions: %w", err)
	}

	ord, err := sequence.Build(set.Len(), loop.Reps, loop.Method, src)
	if err != nil {
		return OrderedLoop{}, fmt.Errorf("build ordering: %w", err)
	}

	cur, err := sequence.NewCursor(set, ord)
	if err != nil {
		return OrderedLoop{}, fmt.Errorf("create cursor: %w", err)
	}

	out := OrderedLoop{
		Experiment: experiment,
		Loop:       loop.Name,
		Method:     loop.Method.String(),
		Reps:       loop.Reps,
		Seed:       seed,
		Trials:     []OrderedTrial{},
	}
	for {
		rec, ok := cur.Advance()
		if !ok {
			break
		}
		st := cur.State()
		out.Trials = append(out.Trials, OrderedTrial{
			Pos:    st.Completed - 1,
			Rep:    st.Repeat,
			Trial:  st.TrialInRepeat,
			Index:  st.Index,
			Record: rec,
		})
	}
	return out, nil
}

// sequenceRecordJSON renders a record with sorted keys for stable output.
func sequenceRecordJSON(m map[string]any) (string, error) {
	data, err := trial.Record(m).MarshalOrdered()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printOrderedLoops(formatter *OutputFormatter, loops []OrderedLoop) error {
	for _, l := range loops {
		fmt.Fprintf(formatter.Writer, "%s / %s (method=%s reps=%d seed=%d, %d trials)\n",
			l.Experiment, l.Loop, l.Method, l.Reps, l.Seed, len(l.Trials))
		for _, tr := range l.Trials {
			rec, err := sequenceRecordJSON(tr.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(formatter.Writer, "  %3d  rep=%d trial=%d index=%d  %s\n",
				tr.Pos, tr.Rep, tr.Trial, tr.Index, rec)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}
