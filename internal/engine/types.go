package engine

import (
	"fmt"
	mathrand "math/rand"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// Options controls which transformations run and how. Zero value is a
// no-op pipeline; presets fill it per level or profile.
type Options struct {
	InputFile  string
	OutputFile string
	UseStdin   bool
	UseStdout  bool

	Level  int   `yaml:"level" validate:"min=0,max=3"`
	Seed   int64 `yaml:"seed"`
	Seeded bool  `yaml:"-"`

	ObfuscateNames         bool `yaml:"obfuscate_names"`
	ObfuscateStrings       bool `yaml:"obfuscate_strings"`
	StringEncryption       bool `yaml:"string_encryption"`
	ObfuscateNumbers       bool `yaml:"obfuscate_numbers"`
	FlattenControlFlow     bool `yaml:"flatten_control_flow"`
	StrengthenConditionals bool `yaml:"strengthen_conditionals"`
	InsertDeadCode         bool `yaml:"insert_dead_code"`
	InsertDummyCode        bool `yaml:"insert_dummy_code"`
	RewriteImports         bool `yaml:"rewrite_imports"`

	Profile string `yaml:"profile"`
	Quiet   bool   `yaml:"quiet"`
	Report  bool   `yaml:"report"`
	DryRun  bool   `yaml:"-"`
}

// Ctx carries per-run state shared by all transformation passes.
type Ctx struct {
	Rng     *mathrand.Rand
	Opts    *Options
	Names   *NameGen
	Tracker *Tracker
	Diags   []Diagnostic

	// decoders records which decode routines the output must carry,
	// keyed by routine name.
	decoders map[string]bool
	// counts per technique, for the report.
	Applied map[string]int
}

func newCtx(rng *mathrand.Rand, opts *Options) *Ctx {
	names := NewNameGen(rng)
	switch {
	case opts.Level == 1:
		names.SetLength(6, 10)
	case opts.Level >= 3:
		names.SetLength(12, 20)
	}
	return &Ctx{
		Rng:      rng,
		Opts:     opts,
		Names:    names,
		Tracker:  NewTracker(),
		decoders: make(map[string]bool),
		Applied:  make(map[string]int),
	}
}

func (c *Ctx) count(technique string) { c.Applied[technique]++ }

func (c *Ctx) diag(stage string, node pyast.Node, err error) {
	c.Diags = append(c.Diags, Diagnostic{
		Stage: stage,
		Node:  fmt.Sprintf("%T", node),
		Msg:   err.Error(),
	})
}

// Diagnostic records a per-node transformation failure. The node is kept
// in its original form and the run continues.
type Diagnostic struct {
	Stage string `json:"stage"`
	Node  string `json:"node"`
	Msg   string `json:"msg"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Stage, d.Node, d.Msg)
}

// ParseError means the input is not a program the engine can work on.
// Nothing was transformed.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d:%d: %s", e.Line, e.Col, e.Msg)
}

// RegenerationError means the transformed tree could not be rendered back
// to source. This indicates a corrupted tree, not bad input.
type RegenerationError struct {
	Err error
}

func (e *RegenerationError) Error() string {
	return fmt.Sprintf("regeneration failed: %v", e.Err)
}

func (e *RegenerationError) Unwrap() error { return e.Err }

// ValidationError means the regenerated output failed to re-parse. The
// output must never be written in this case. It always travels wrapped
// inside a RegenerationError, so callers checking for that type catch
// both failure modes with one errors.As.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("output validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
