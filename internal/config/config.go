// Package config loads the compiler configuration of a shell.
//
// Configuration is YAML on disk. After decoding, the values are checked
// against an embedded CUE schema so that range and pattern constraints live
// in one declarative place.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// DefaultMaxNesting bounds how deep require chains may go at compile time.
const DefaultMaxNesting = 32

// Compiler is the compiler configuration.
type Compiler struct {
	// ModulePaths are directories searched by require, in order.
	ModulePaths []string `yaml:"module_paths" json:"module_paths"`

	// PipelineByDefault makes units without a variant directive pipeline units.
	PipelineByDefault bool `yaml:"pipeline_by_default" json:"pipeline_by_default"`

	// Bindings seed the execution's variable bindings.
	Bindings map[string]string `yaml:"bindings" json:"bindings"`

	// MaxNesting bounds the require chain depth during compilation.
	MaxNesting int `yaml:"max_nesting" json:"max_nesting"`
}

// Default returns the configuration used when no file is given.
func Default() Compiler {
	return Compiler{
		ModulePaths: []string{},
		Bindings:    map[string]string{},
		MaxNesting:  DefaultMaxNesting,
	}
}

// ValidationError reports a schema violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %s", e.Message)
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Load reads a YAML file. Relative module paths are resolved against the
// file's directory.
func Load(path string) (Compiler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Compiler{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Compiler{}, err
	}

	base := filepath.Dir(path)
	for i, p := range cfg.ModulePaths {
		if !filepath.IsAbs(p) {
			cfg.ModulePaths[i] = filepath.Join(base, p)
		}
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result.
// Unknown fields are rejected.
func Parse(data []byte) (Compiler, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Compiler{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Compiler{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func (c Compiler) Validate() error {
	normalized := c
	if normalized.ModulePaths == nil {
		normalized.ModulePaths = []string{}
	}
	if normalized.Bindings == nil {
		normalized.Bindings = map[string]string{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc).LookupPath(cue.ParsePath("#Compiler"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	value := schema.Unify(ctx.Encode(normalized))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError keeps the first CUE error and its path.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	return &ValidationError{
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}
