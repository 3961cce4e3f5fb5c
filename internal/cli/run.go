package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/flowshell/internal/execution"
	"github.com/roach88/flowshell/internal/metrics"
	"github.com/roach88/flowshell/internal/shell"
	"github.com/roach88/flowshell/internal/store"
	"github.com/roach88/flowshell/internal/timing"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ShellOptions
	Database    string
	Execution   string   // optional - continue an existing execution
	Set         []string // KEY=VALUE bindings
	MetricsFile string
}

// RunResult describes one script run.
type RunResult struct {
	ExecutionID string   `json:"execution_id"`
	Unit        string   `json:"unit"`
	Variant     string   `json:"variant"`
	Resumed     int      `json:"resumed"`
	Output      []string `json:"output"`
	Result      any      `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Compile and run a script under a durable execution",
		Long: `Compile a script under an execution, run it, and persist the execution.

Scripts are pipeline units unless they start with --!library. The source
text of every compiled unit is stored in the database, so "flowshell replay"
can rebuild the execution later. With --execution the script is added to an
existing execution; its earlier units are reparsed first.

A unit that compiled but failed setup (for example a missing --!requires
binding) stays recorded, so later runs and replays of that execution fail
until the binding exists. Continue the execution with the missing binding
to recover it: --set values are stored with the execution before its units
are reparsed.

Example:
  flowshell run --db ./flowshell.db ./deploy.lua --set TARGET=prod
  flowshell run --db ./flowshell.db --execution 0190... ./rollback.lua
  flowshell run --db ./flowshell.db --execution 0190... --set TARGET=prod ./deploy.lua`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Execution, "execution", "", "continue an existing execution")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "binding KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write timing metrics in Prometheus text format")
	opts.ShellOptions.addFlags(cmd)

	return cmd
}

func runScript(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.compilerConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.PipelineByDefault = true

	bindings, err := parseBindings(opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}
	source, err := readScript(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}
	timingOpts := execution.WithTimingOptions(timing.WithObserver(collector.Observe))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping script", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	var exec *execution.Execution
	if opts.Execution != "" {
		exec, err = execution.Load(ctx, st, opts.Execution, timingOpts)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load execution", err)
		}
		for k, v := range bindings {
			exec.SetBinding(k, v)
		}
	} else {
		exec = execution.New(execution.WithBindings(cfg.Bindings), execution.WithBindings(bindings), timingOpts)
	}
	f.ExecutionID = exec.ID()
	slog.Info("execution ready", "execution", exec.ID(), "units", exec.Scripts().Len())

	sh := shell.New(exec, moduleLoader(cfg), cfg)

	resumed := 0
	if exec.Scripts().Len() > 0 {
		units, err := exec.Resume(sh)
		if err != nil {
			return reportScriptError(f, "resume failed", err)
		}
		resumed = len(units)
	}

	u, compileErr := sh.Compile(source)

	// Persist before running: a recorded unit must survive a crash mid-run.
	if err := exec.Save(ctx, st); err != nil {
		return WrapExitError(ExitCommandError, "failed to save execution", err)
	}
	if compileErr != nil {
		return reportScriptError(f, "compile failed", compileErr)
	}

	value, runErr := sh.Run(ctx, u)

	if err := exec.Save(ctx, st); err != nil {
		return WrapExitError(ExitCommandError, "failed to save execution", err)
	}
	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}
	if runErr != nil {
		return reportScriptError(f, "run failed", runErr)
	}

	result := RunResult{
		ExecutionID: exec.ID(),
		Unit:        u.Name(),
		Variant:     u.Variant().String(),
		Resumed:     resumed,
		Output:      exec.Output(),
		Result:      value,
	}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "Execution: %s\n", result.ExecutionID)
		fmt.Fprintf(w, "Unit: %s (%s)\n", result.Unit, result.Variant)
		if result.Resumed > 0 {
			fmt.Fprintf(w, "Resumed: %d unit(s)\n", result.Resumed)
		}
		for _, line := range result.Output {
			fmt.Fprintf(w, "  > %s\n", line)
		}
		if result.Result != nil {
			fmt.Fprintf(w, "Result: %v\n", result.Result)
		}
	})
}

// reportScriptError prints a script failure and returns the exit error.
func reportScriptError(f *OutputFormatter, message string, err error) error {
	if outErr := f.Error(errorCode(err), err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, message, err)
}
