package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// ScriptFeatures is a census of the input program, used for dry-run
// analysis and level recommendation.
type ScriptFeatures struct {
	Lines        int
	Functions    int
	Classes      int
	Imports      int
	Strings      int
	FStrings     int
	IntLiterals  int
	Loops        int
	Conditionals int
	TryBlocks    int
	WithBlocks   int
	HasGlobals   bool
	// DynamicCalls counts eval/exec/getattr-style lookups, which resolve
	// names at runtime where renaming cannot follow.
	DynamicCalls int
	// LargestBody is the statement count of the biggest function body,
	// a proxy for how much control-flow flattening can bite.
	LargestBody int
}

// Analyze parses src and counts the features each transformation cares
// about. A parse failure surfaces as a ParseError, same as obfuscation.
func Analyze(src string) (ScriptFeatures, error) {
	m, err := pyast.Parse(src)
	if err != nil {
		return ScriptFeatures{}, asParseError(err)
	}
	f := ScriptFeatures{Lines: strings.Count(src, "\n") + 1}
	var walk func(body []pyast.Stmt)
	walk = func(body []pyast.Stmt) {
		for _, s := range body {
			switch n := s.(type) {
			case *pyast.FunctionDef:
				f.Functions++
				if len(n.Body) > f.LargestBody {
					f.LargestBody = len(n.Body)
				}
				walk(n.Body)
			case *pyast.ClassDef:
				f.Classes++
				walk(n.Body)
			case *pyast.Import, *pyast.ImportFrom:
				f.Imports++
			case *pyast.If:
				f.Conditionals++
				walk(n.Body)
				walk(n.Orelse)
			case *pyast.While:
				f.Loops++
				walk(n.Body)
			case *pyast.For:
				f.Loops++
				walk(n.Body)
			case *pyast.Try:
				f.TryBlocks++
				walk(n.Body)
				for _, h := range n.Handlers {
					walk(h.Body)
				}
				walk(n.Orelse)
				walk(n.Finally)
			case *pyast.With:
				f.WithBlocks++
				walk(n.Body)
			case *pyast.Global:
				f.HasGlobals = true
			}
			countLiterals(s, &f)
		}
	}
	walk(m.Body)
	return f, nil
}

// countLiterals counts literals in the expressions directly attached to
// one statement. For compound statements only the header expressions are
// visited; nested bodies are handled by the outer walk.
func countLiterals(s pyast.Stmt, f *ScriptFeatures) {
	visit := func(e pyast.Expr) {
		switch n := e.(type) {
		case *pyast.StringLit:
			f.Strings++
		case *pyast.FStringLit:
			f.FStrings++
		case *pyast.IntLit:
			f.IntLiterals++
		case *pyast.Call:
			if fn, ok := n.Func.(*pyast.Name); ok && dynamicBuiltins[fn.ID] {
				f.DynamicCalls++
			}
		}
	}
	count := func(e pyast.Expr) { walkExpr(e, visit) }
	switch n := s.(type) {
	case *pyast.FunctionDef:
		for _, p := range n.Params {
			count(p.Default)
		}
		for _, d := range n.Decorators {
			count(d)
		}
	case *pyast.ClassDef:
		for _, b := range n.Bases {
			count(b)
		}
		for _, d := range n.Decorators {
			count(d)
		}
	case *pyast.If:
		count(n.Test)
	case *pyast.While:
		count(n.Test)
	case *pyast.For:
		count(n.Iter)
	case *pyast.Try:
		for _, h := range n.Handlers {
			count(h.Type)
		}
	case *pyast.With:
		count(n.Context)
	default:
		walkStmt(s, visit)
	}
}

// dynamicBuiltins resolve names or code at runtime, out of reach of any
// static rename.
var dynamicBuiltins = map[string]bool{
	"eval": true, "exec": true, "compile": true,
	"getattr": true, "setattr": true, "delattr": true, "hasattr": true,
	"globals": true, "locals": true, "vars": true, "__import__": true,
}

// Recommendation suggests settings based on what the input contains.
type Recommendation struct {
	Level int
	Notes []string
}

// Recommend maps the census to a level. String-heavy scripts get the
// full treatment; programs leaning on f-strings or globals get a gentler
// level because fewer transforms apply cleanly to them.
func Recommend(f ScriptFeatures) Recommendation {
	rec := Recommendation{Level: 2}
	if f.Strings > 0 && f.FStrings == 0 {
		rec.Level = 3
		rec.Notes = append(rec.Notes, "plain string literals only: string encoding applies cleanly")
	}
	if f.FStrings > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d f-string(s): their contents are never rewritten", f.FStrings))
	}
	if f.HasGlobals {
		rec.Level = 1
		rec.Notes = append(rec.Notes, "global statements present: keeping renames conservative")
	}
	if f.DynamicCalls > 0 {
		rec.Level = 1
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d dynamic lookup(s) (eval/getattr): renaming may break them", f.DynamicCalls))
	}
	if f.LargestBody > minFlattenStmts {
		rec.Notes = append(rec.Notes, "function bodies large enough for control-flow flattening")
	}
	if f.Functions == 0 && f.Classes == 0 {
		rec.Notes = append(rec.Notes, "straight-line script: renaming and literal encoding only")
	}
	return rec
}

// PrintAnalysis writes the census and recommendation to stderr.
func PrintAnalysis(f ScriptFeatures, rec Recommendation, quiet bool) {
	if quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "%s%s=== analysis ===%s\n", Bold, Cyan, Reset)
	fmt.Fprintf(os.Stderr, "%sLines:%s        %d\n", Yellow, Reset, f.Lines)
	fmt.Fprintf(os.Stderr, "%sFunctions:%s    %d (largest body %d statements)\n", Yellow, Reset, f.Functions, f.LargestBody)
	fmt.Fprintf(os.Stderr, "%sClasses:%s      %d\n", Yellow, Reset, f.Classes)
	fmt.Fprintf(os.Stderr, "%sImports:%s      %d\n", Yellow, Reset, f.Imports)
	fmt.Fprintf(os.Stderr, "%sStrings:%s      %d plain, %d f-strings\n", Yellow, Reset, f.Strings, f.FStrings)
	fmt.Fprintf(os.Stderr, "%sInt literals:%s %d\n", Yellow, Reset, f.IntLiterals)
	fmt.Fprintf(os.Stderr, "%sControl flow:%s %d conditionals, %d loops, %d try, %d with\n",
		Yellow, Reset, f.Conditionals, f.Loops, f.TryBlocks, f.WithBlocks)
	if f.DynamicCalls > 0 {
		fmt.Fprintf(os.Stderr, "%sDynamic:%s      %d eval/getattr-style call(s)\n", Yellow, Reset, f.DynamicCalls)
	}
	fmt.Fprintf(os.Stderr, "%sRecommended level:%s %s%d%s\n", Yellow, Reset, Green, rec.Level, Reset)
	for _, n := range rec.Notes {
		fmt.Fprintf(os.Stderr, "  - %s\n", n)
	}
	fmt.Fprintf(os.Stderr, "%s%s================%s\n", Bold, Cyan, Reset)
}
