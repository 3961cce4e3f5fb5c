package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMainScript = `--!pipeline
--!requires TARGET
local util = require("util")
echo("deploying " .. binding.TARGET)
return util.greet(binding.TARGET)
`
	testUtilModule = `return { greet = function(who) return "hello " .. who end }
`
)

// writeScripts lays out main.lua and lib/util.lua in a temp dir.
func writeScripts(t *testing.T) (dir, mainPath, libDir string) {
	t.Helper()
	dir = t.TempDir()
	libDir = filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(libDir, 0755))
	mainPath = filepath.Join(dir, "main.lua")
	require.NoError(t, os.WriteFile(mainPath, []byte(testMainScript), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "util.lua"), []byte(testUtilModule), 0644))
	return dir, mainPath, libDir
}

func executeCheck(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestCheckGolden(t *testing.T) {
	_, mainPath, libDir := writeScripts(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("text", func(t *testing.T) {
		buf, err := executeCheck(t, "text", "-I", libDir, mainPath)
		require.NoError(t, err)
		g.Assert(t, "check_text", buf.Bytes())
	})

	t.Run("json", func(t *testing.T) {
		buf, err := executeCheck(t, "json", "-I", libDir, mainPath)
		require.NoError(t, err)
		g.Assert(t, "check_json", buf.Bytes())
	})
}

func TestCheckUnresolvedModule(t *testing.T) {
	_, mainPath, _ := writeScripts(t)

	buf, err := executeCheck(t, "json", mainPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnresolved, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "util")
}

func TestCheckSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.lua")
	require.NoError(t, os.WriteFile(path, []byte("local = 1"), 0644))

	buf, err := executeCheck(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E_SYNTAX]")
}

func TestCheckModulesFromConfig(t *testing.T) {
	dir, mainPath, _ := writeScripts(t)
	cfgPath := filepath.Join(dir, "flowshell.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("module_paths:\n  - lib\n"), 0644))

	buf, err := executeCheck(t, "text", "--config", cfgPath, mainPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "modules:  util")
}

func TestCheckInvalidConfig(t *testing.T) {
	dir, mainPath, _ := writeScripts(t)
	cfgPath := filepath.Join(dir, "flowshell.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("max_nesting: 0\n"), 0644))

	_, err := executeCheck(t, "text", "--config", cfgPath, mainPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestCheckMissingFile(t *testing.T) {
	_, err := executeCheck(t, "text", filepath.Join(t.TempDir(), "nope.lua"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
