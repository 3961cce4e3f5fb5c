package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowshell/internal/config"
	"github.com/roach88/flowshell/internal/loader"
)

// ShellOptions are the flags shared by every command that builds a shell.
type ShellOptions struct {
	Config  string
	Modules []string
}

func (o *ShellOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Config, "config", "c", "", "path to compiler config (YAML)")
	cmd.Flags().StringArrayVarP(&o.Modules, "modules", "I", nil, "module directory searched by require (repeatable)")
}

// compilerConfig loads the config file, if any, and appends --modules
// directories after the configured ones.
func (o *ShellOptions) compilerConfig() (config.Compiler, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return config.Compiler{}, err
		}
		cfg = loaded
	}
	cfg.ModulePaths = append(cfg.ModulePaths, o.Modules...)
	return cfg, nil
}

func moduleLoader(cfg config.Compiler) loader.Loader {
	return loader.NewDirLoader(cfg.ModulePaths...)
}

func readScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

// parseBindings turns KEY=VALUE pairs into a map.
func parseBindings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid binding %q: want KEY=VALUE", pair)
		}
		out[key] = value
	}
	return out, nil
}
