package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/benzoXdev/obfuspy/internal/engine"
)

const version = "1.0.0"

func main() {
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		fmt.Fprintln(os.Stderr, "\ninterrupted")
		os.Exit(130)
	}()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", engine.Red, engine.Reset, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &engine.Options{}
	var verbose bool
	var tech techniqueFlags

	root := &cobra.Command{
		Use:   "obfuspy",
		Short: "Source-level obfuscator for Python scripts",
		Long: `obfuspy parses a Python script, rewrites its tree (identifier renaming,
string and number encoding, opaque predicates, control-flow flattening)
and regenerates source that the parser itself re-validates before
anything is written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine.SetupLogging(verbose, opts.Quiet)
			opts.Seeded = cmd.Flags().Changed("seed")
			if tech.anyChanged(cmd) && opts.Profile == "" && !cmd.Flags().Changed("level") {
				// Explicit technique flags replace the level preset.
				opts.Level = 0
			}
			if err := engine.ResolveProfile(opts); err != nil {
				return err
			}
			tech.overlay(cmd, opts)
			start := time.Now()
			res, err := engine.RunFile(opts)
			if err != nil {
				return err
			}
			if !opts.Quiet && !opts.DryRun && !opts.UseStdout {
				fmt.Fprintf(os.Stderr, "%sDone%s in %s (seed %d)\n",
					engine.Green, engine.Reset,
					time.Since(start).Round(time.Millisecond), res.Seed)
			}
			return nil
		},
	}

	fl := root.Flags()
	fl.StringVarP(&opts.InputFile, "input", "i", "", "Python script to obfuscate")
	fl.StringVarP(&opts.OutputFile, "output", "o", "", "output file")
	fl.BoolVar(&opts.UseStdin, "stdin", false, "read the script from stdin")
	fl.BoolVar(&opts.UseStdout, "stdout", false, "write the result to stdout")
	fl.IntVarP(&opts.Level, "level", "l", 2, "obfuscation level (1..3)")
	fl.Int64Var(&opts.Seed, "seed", 0, "deterministic seed (default: derived from input)")
	fl.StringVarP(&opts.Profile, "profile", "p", "", fmt.Sprintf("preset %v or YAML profile file", engine.ProfileNames()))
	fl.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress metrics and notes")
	fl.BoolVar(&opts.Report, "report", false, "print a full report after the run")
	fl.BoolVar(&opts.DryRun, "dry-run", false, "analyze only, no transformation or output")
	fl.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	tech.register(fl)

	root.AddCommand(newAnalyzeCmd(), newVersionCmd())
	return root
}

// techniqueFlags lets single techniques be toggled from the command
// line, overriding whatever level or profile selected.
type techniqueFlags struct {
	names, strings, encrypt, numbers      bool
	flatten, strengthen, dead, dummy, imp bool
}

var techniqueNames = []string{
	"names", "strings", "encrypt-strings", "numbers",
	"flatten", "opaque", "dead-code", "dummy-code", "rewrite-imports",
}

func (t *techniqueFlags) register(fl *pflag.FlagSet) {
	fl.BoolVar(&t.names, "names", false, "rename identifiers")
	fl.BoolVar(&t.strings, "strings", false, "encode string literals (layered codecs)")
	fl.BoolVar(&t.encrypt, "encrypt-strings", false, "XOR-encrypt string literals instead of layered encoding")
	fl.BoolVar(&t.numbers, "numbers", false, "hide integer literals behind arithmetic")
	fl.BoolVar(&t.flatten, "flatten", false, "flatten eligible function bodies into dispatch loops")
	fl.BoolVar(&t.strengthen, "opaque", false, "strengthen conditionals with opaque predicates")
	fl.BoolVar(&t.dead, "dead-code", false, "insert dead branches")
	fl.BoolVar(&t.dummy, "dummy-code", false, "insert dummy assignments")
	fl.BoolVar(&t.imp, "rewrite-imports", false, "rewrite plain imports through __import__")
}

func (t *techniqueFlags) anyChanged(cmd *cobra.Command) bool {
	for _, name := range techniqueNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (t *techniqueFlags) overlay(cmd *cobra.Command, opts *engine.Options) {
	set := func(name string, dst *bool, v bool) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("names", &opts.ObfuscateNames, t.names)
	set("strings", &opts.ObfuscateStrings, t.strings)
	set("encrypt-strings", &opts.StringEncryption, t.encrypt)
	set("numbers", &opts.ObfuscateNumbers, t.numbers)
	set("flatten", &opts.FlattenControlFlow, t.flatten)
	set("opaque", &opts.StrengthenConditionals, t.strengthen)
	set("dead-code", &opts.InsertDeadCode, t.dead)
	set("dummy-code", &opts.InsertDummyCode, t.dummy)
	set("rewrite-imports", &opts.RewriteImports, t.imp)
}

func newAnalyzeCmd() *cobra.Command {
	opts := &engine.Options{DryRun: true}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print a feature census and recommended settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine.SetupLogging(false, false)
			_, err := engine.RunFile(opts)
			return err
		},
	}
	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Python script to analyze")
	cmd.Flags().BoolVar(&opts.UseStdin, "stdin", false, "read the script from stdin")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("obfuspy %s\n", version)
		},
	}
}
