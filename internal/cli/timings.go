package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/flowshell/internal/store"
	"github.com/roach88/flowshell/internal/timing"
)

// TimingsOptions holds flags for the timings command.
type TimingsOptions struct {
	*RootOptions
	Database  string
	Execution string
}

// TimingRow is the persisted total of one kind for one execution.
type TimingRow struct {
	ExecutionID string `json:"execution_id"`
	Kind        string `json:"kind"`
	Count       int64  `json:"count"`
	ElapsedNS   int64  `json:"elapsed_ns"`
}

// NewTimingsCommand creates the timings command.
func NewTimingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "timings",
		Short: "Show accumulated parse and load time per execution",
		Long: `Print the parse and load totals stored for each execution.

Count is the number of outermost intervals; nested parses and loads are
part of the interval that contains them.

Example:
  flowshell timings --db ./flowshell.db
  flowshell timings --db ./flowshell.db --execution 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimings(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Execution, "execution", "", "show a specific execution only")

	return cmd
}

func runTimings(opts *TimingsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var ids []string
	if opts.Execution != "" {
		if _, err := st.ReadExecution(ctx, opts.Execution); err != nil {
			return WrapExitError(ExitCommandError, "failed to read execution", err)
		}
		ids = []string{opts.Execution}
	} else {
		ids, err = st.ListExecutions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list executions", err)
		}
	}

	rows := []TimingRow{}
	for _, id := range ids {
		totals, err := st.ReadTimings(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read timings for %s", id), err)
		}
		for _, kind := range timing.Kinds {
			t := totals[kind]
			rows = append(rows, TimingRow{
				ExecutionID: id,
				Kind:        string(kind),
				Count:       t.Count,
				ElapsedNS:   int64(t.Elapsed),
			})
		}
	}

	return f.Result(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No executions found in database.")
			return
		}
		fmt.Fprintf(w, "%-36s  %-5s  %6s  %s\n", "EXECUTION", "KIND", "COUNT", "ELAPSED")
		for _, r := range rows {
			fmt.Fprintf(w, "%-36s  %-5s  %6d  %s\n", r.ExecutionID, r.Kind, r.Count, time.Duration(r.ElapsedNS))
		}
	})
}
