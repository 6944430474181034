package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report holds obfuscation session data for reporting.
type Report struct {
	SessionID       string        `json:"sessionId"`
	InputPath       string        `json:"inputPath"`
	OutputPath      string        `json:"outputPath"`
	Profile         string        `json:"profile,omitempty"`
	Level           int           `json:"level"`
	Techniques      []string      `json:"techniques"`
	Counts          map[string]int `json:"counts,omitempty"`
	ComplexityScore int           `json:"complexityScore"`
	InputSize       int           `json:"inputSize"`
	OutputSize      int           `json:"outputSize"`
	Seed            int64         `json:"seed"`
	SkippedNodes    int           `json:"skippedNodes,omitempty"`
	Undefined       []string      `json:"undefinedNames,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
	Entropy         float64       `json:"entropy,omitempty"`
	SizeRatio       float64       `json:"sizeRatio,omitempty"`
}

// NewReport assembles a report from a finished run.
func NewReport(opts *Options, res *Result) Report {
	techniques := make([]string, 0, len(res.Applied))
	for t := range res.Applied {
		techniques = append(techniques, t)
	}
	sort.Strings(techniques)
	return Report{
		SessionID:    uuid.NewString(),
		InputPath:    opts.InputFile,
		OutputPath:   opts.OutputFile,
		Profile:      opts.Profile,
		Level:        opts.Level,
		Techniques:   techniques,
		Counts:       res.Applied,
		InputSize:    res.InputSize,
		OutputSize:   res.OutputSize,
		Seed:         res.Seed,
		SkippedNodes: len(res.Diagnostics),
		Undefined:    res.Undefined,
		Duration:     res.Duration,
	}
}

// ToJSON returns the report as indented JSON (for CI/CD integration).
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ComputeComplexityScore computes a 0-100 score from techniques and metrics.
func (r *Report) ComputeComplexityScore(m Metrics) int {
	score := 0
	for _, t := range r.Techniques {
		switch t {
		case "rename":
			score += 10
		case "string-multilayer":
			score += 15
		case "string-xor":
			score += 15
		case "number":
			score += 5
		case "flatten":
			score += 25
		case "opaque-predicate":
			score += 10
		case "dead-code", "dummy-code":
			score += 7
		case "import-rewrite":
			score += 5
		default:
			score += 3
		}
		if score >= 100 {
			return 100
		}
	}
	// Entropy bonus
	if m.Entropy > 4.5 {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}

// PrintReport writes the obfuscation report to stderr.
func PrintReport(r Report, m Metrics) {
	r.ComplexityScore = r.ComputeComplexityScore(m)
	r.Entropy = m.Entropy
	if r.InputSize > 0 {
		r.SizeRatio = float64(r.OutputSize) / float64(r.InputSize)
	}
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "%s%s=== obfuspy report ===%s\n", Bold, Cyan, Reset)
	fmt.Fprintf(os.Stderr, "%sSession:%s  %s\n", Yellow, Reset, r.SessionID)
	fmt.Fprintf(os.Stderr, "%sInput:%s    %s\n", Yellow, Reset, r.InputPath)
	fmt.Fprintf(os.Stderr, "%sOutput:%s   %s\n", Yellow, Reset, r.OutputPath)
	if r.Profile != "" {
		fmt.Fprintf(os.Stderr, "%sProfile:%s  %s%s%s\n", Yellow, Reset, Green, r.Profile, Reset)
	}
	fmt.Fprintf(os.Stderr, "%sLevel:%s    %s%d%s\n", Yellow, Reset, Green, r.Level, Reset)
	fmt.Fprintf(os.Stderr, "%sTechniques:%s %s\n", Yellow, Reset, strings.Join(r.Techniques, ", "))
	fmt.Fprintf(os.Stderr, "%sComplexity score:%s %s%d%s/100\n", Yellow, Reset, Green, r.ComplexityScore, Reset)
	fmt.Fprintf(os.Stderr, "%sInput size:%s  %d bytes\n", Yellow, Reset, r.InputSize)
	fmt.Fprintf(os.Stderr, "%sOutput size:%s %d bytes", Yellow, Reset, r.OutputSize)
	if r.SizeRatio > 0 {
		fmt.Fprintf(os.Stderr, " %s(%.1fx)%s", Gray, r.SizeRatio, Reset)
	}
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "%sEntropy:%s   %.2f bits/symbol\n", Yellow, Reset, r.Entropy)
	if r.SkippedNodes > 0 {
		fmt.Fprintf(os.Stderr, "%sSkipped nodes:%s %d\n", Yellow, Reset, r.SkippedNodes)
	}
	if len(r.Undefined) > 0 {
		fmt.Fprintf(os.Stderr, "%sUndefined names:%s %s\n", Red, Reset, strings.Join(r.Undefined, ", "))
	}
	fmt.Fprintf(os.Stderr, "%sSeed:%s %d\n", Yellow, Reset, r.Seed)
	if r.Duration > 0 {
		fmt.Fprintf(os.Stderr, "%sDuration:%s  %s\n", Yellow, Reset, r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(os.Stderr, "%s%s======================%s\n", Bold, Cyan, Reset)
}
