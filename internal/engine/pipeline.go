package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// Result holds everything one obfuscation run produced besides the
// output text itself.
type Result struct {
	Output      string
	Seed        int64
	Diagnostics []Diagnostic
	Applied     map[string]int
	// Undefined lists names the input uses but never defines. They are
	// reported, never renamed; they may be externals or input bugs.
	Undefined []string
	// Mapping is the identifier translation table, for audit output.
	Mapping    map[string]string
	InputSize  int
	OutputSize int
	Duration   time.Duration
}

// ObfuscateSource runs the full pipeline on source text: parse,
// transform, regenerate, inject decode support, validate. A nil error
// means Output is a program the parser accepts.
func ObfuscateSource(src string, opts *Options) (*Result, error) {
	started := time.Now()
	m, err := pyast.Parse(src)
	if err != nil {
		return nil, asParseError(err)
	}
	rng := InitRNG(&opts.Seed, opts.Seeded, []byte(src))
	ctx := newCtx(rng, opts)
	ctx.Tracker.Collect(m)
	slog.Debug("input collected",
		"defined", len(ctx.Tracker.Defined),
		"used", len(ctx.Tracker.Used),
		"imported", len(ctx.Tracker.Imported))

	transformed := transformModule(m, ctx)

	body, err := pyast.Unparse(transformed)
	if err != nil {
		return nil, &RegenerationError{Err: err}
	}
	output := decoderRuntime(ctx.decoders) + body

	// The output must survive its own parser before anyone sees it. A
	// failure here is a regeneration failure to callers; the validation
	// detail stays reachable through the error chain.
	if _, err := pyast.Parse(output); err != nil {
		return nil, &RegenerationError{Err: &ValidationError{Err: err}}
	}

	return &Result{
		Output:      output,
		Seed:        opts.Seed,
		Diagnostics: ctx.Diags,
		Applied:     ctx.Applied,
		// The census taken before transformation still holds afterwards:
		// passes introduce only builtins and fresh generated names, and
		// every fresh name is bound where it is used.
		Undefined: ctx.Tracker.Undefined(),
		Mapping:     ctx.Names.Mapping(),
		InputSize:   len(src),
		OutputSize:  len(output),
		Duration:    time.Since(started),
	}, nil
}

func asParseError(err error) error {
	var se *pyast.SyntaxError
	if errors.As(err, &se) {
		return &ParseError{Line: se.Line, Col: se.Col, Msg: se.Msg}
	}
	return &ParseError{Msg: err.Error()}
}

// RunFile reads input, obfuscates it and writes the result. Reporting
// goes to stderr so stdout stays clean for piped output.
func RunFile(opts *Options) (*Result, error) {
	if err := requireInOut(opts); err != nil {
		return nil, err
	}
	data, err := readAllInput(opts)
	if err != nil {
		return nil, err
	}
	src, err := decodeInput(data)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		features, err := Analyze(src)
		if err != nil {
			return nil, err
		}
		PrintAnalysis(features, Recommend(features), opts.Quiet)
		return &Result{InputSize: len(src)}, nil
	}
	res, err := ObfuscateSource(src, opts)
	if err != nil {
		return nil, err
	}
	if err := writeOutput(opts, res.Output); err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics {
		slog.Warn("node skipped", "stage", d.Stage, "node", d.Node, "reason", d.Msg)
	}
	if len(res.Undefined) > 0 && !opts.Quiet {
		fmt.Fprintf(os.Stderr, "%sNote:%s %d name(s) used but never defined: %v\n",
			Yellow, Reset, len(res.Undefined), res.Undefined)
	}
	m := ComputeMetricsWithInput(res.Output, res.InputSize)
	PrintMetrics(m, opts.Quiet)
	if opts.Report {
		r := NewReport(opts, res)
		PrintReport(r, m)
	}
	return res, nil
}

func writeOutput(opts *Options, output string) error {
	if opts.UseStdout || opts.OutputFile == "" {
		_, err := os.Stdout.WriteString(output)
		return err
	}
	if err := os.WriteFile(opts.OutputFile, []byte(output), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
