package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/flowshell/internal/execution"
	"github.com/roach88/flowshell/internal/shell"
	"github.com/roach88/flowshell/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	ShellOptions
	Database  string
	Execution string // optional - specific execution only
}

// ReplayExecutionResult holds the replay result for one execution.
type ReplayExecutionResult struct {
	ExecutionID string   `json:"execution_id"`
	Units       []string `json:"units"`
	Reproduced  bool     `json:"reproduced"`
	Error       string   `json:"error,omitempty"`
}

// ReplayResult holds the overall replay verification result.
type ReplayResult struct {
	Executions      []ReplayExecutionResult `json:"executions"`
	TotalExecutions int                     `json:"total_executions"`
	AllReproduced   bool                    `json:"all_reproduced"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild executions from their recorded sources",
		Long: `Load executions from the database and reparse every recorded unit in
compile order, as a restarted process would.

Replay verifies that every unit compiles again under its recorded name and
that the source registry is unchanged afterwards. Module directories must
match the ones used by "flowshell run".

Example:
  flowshell replay --db ./flowshell.db -I ./lib
  flowshell replay --db ./flowshell.db --execution 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Execution, "execution", "", "replay a specific execution only")
	opts.ShellOptions.addFlags(cmd)

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.compilerConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.PipelineByDefault = true

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var ids []string
	if opts.Execution != "" {
		ids = []string{opts.Execution}
	} else {
		ids, err = st.ListExecutions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list executions", err)
		}
	}

	result := ReplayResult{
		Executions:      make([]ReplayExecutionResult, 0, len(ids)),
		TotalExecutions: len(ids),
		AllReproduced:   true,
	}

	for _, id := range ids {
		exec, err := execution.Load(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load execution %s", id), err)
		}
		f.VerboseLog("replaying %s (%d unit(s))", id, exec.Scripts().Len())

		r := replayExecution(exec, shell.New(exec, moduleLoader(cfg), cfg))
		result.Executions = append(result.Executions, r)
		if !r.Reproduced {
			result.AllReproduced = false
		}
	}

	if f.Format == "json" {
		if result.AllReproduced {
			return f.Success(result)
		}
		if err := f.Error(CodeReplay, "replay verification failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay verification failed")
	}

	return outputReplayText(cmd.OutOrStdout(), result, opts.Verbose)
}

// replayExecution reparses every record and checks that names and the
// registry come out unchanged.
func replayExecution(exec *execution.Execution, sh *shell.Shell) ReplayExecutionResult {
	before := exec.Scripts().Records()
	r := ReplayExecutionResult{
		ExecutionID: exec.ID(),
		Units:       make([]string, 0, len(before)),
	}
	for _, rec := range before {
		r.Units = append(r.Units, rec.Name)
	}

	if _, err := exec.Resume(sh); err != nil {
		r.Error = err.Error()
		return r
	}
	if !slices.Equal(before, exec.Scripts().Records()) {
		r.Error = "source registry changed during replay"
		return r
	}
	r.Reproduced = true
	return r
}

func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	if result.TotalExecutions == 0 {
		fmt.Fprintln(w, "No executions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d execution(s)\n", result.TotalExecutions)
	fmt.Fprintln(w)

	for _, r := range result.Executions {
		status := "✓"
		if !r.Reproduced {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Execution: %s\n", status, r.ExecutionID)
		if verbose {
			fmt.Fprintf(w, "  Units: %d (%s)\n", len(r.Units), listOrNone(r.Units))
		} else {
			fmt.Fprintf(w, "  Units: %d\n", len(r.Units))
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", r.Error)
		}
		fmt.Fprintln(w)
	}

	if result.AllReproduced {
		fmt.Fprintln(w, "✓ All executions reproduced")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
