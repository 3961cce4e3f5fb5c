package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowshell/internal/shell"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	ShellOptions
}

// CheckResult describes a script that compiled.
type CheckResult struct {
	File       string   `json:"file"`
	Unit       string   `json:"unit"`
	Variant    string   `json:"variant"`
	References []string `json:"references"`
	Requires   []string `json:"requires"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <script>",
		Short: "Compile a script without an execution",
		Long: `Compile a script and every module it requires, without running it.

No execution is attached: nothing is recorded and nothing is timed.
Syntax errors and unresolved modules exit with code 1.

Example:
  flowshell check ./deploy.lua -I ./lib
  flowshell check ./deploy.lua --config flowshell.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}
	opts.ShellOptions.addFlags(cmd)

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.compilerConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	source, err := readScript(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	f.VerboseLog("checking %s (%d module path(s))", path, len(cfg.ModulePaths))
	sh := shell.New(nil, moduleLoader(cfg), cfg)
	u, err := sh.Compile(source)
	if err != nil {
		if outErr := f.Error(errorCode(err), err.Error(), map[string]string{"file": filepath.Base(path)}); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "check failed", err)
	}

	result := CheckResult{
		File:       filepath.Base(path),
		Unit:       u.Name(),
		Variant:    u.Variant().String(),
		References: u.References(),
		Requires:   u.Requires(),
	}
	return f.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s compiled as %s (%s)\n", result.File, result.Unit, result.Variant)
		fmt.Fprintf(w, "  modules:  %s\n", listOrNone(result.References))
		fmt.Fprintf(w, "  bindings: %s\n", listOrNone(result.Requires))
	})
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
