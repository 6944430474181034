// Package obfuspy exposes the obfuscation engine for embedding.
package obfuspy

import "github.com/benzoXdev/obfuspy/internal/engine"

type Options = engine.Options

type Result = engine.Result

// Obfuscate transforms Python source text and returns the regenerated,
// re-validated program. When opts carries a level but no technique
// switches, the level presets are applied first.
func Obfuscate(src string, opts Options) (string, error) {
	res, err := ObfuscateDetailed(src, opts)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// ObfuscateDetailed is Obfuscate plus diagnostics, the rename mapping
// and the effective seed.
func ObfuscateDetailed(src string, opts Options) (*Result, error) {
	if opts.Level > 0 && !anyTechnique(opts) {
		engine.ApplyLevel(&opts)
	}
	return engine.ObfuscateSource(src, &opts)
}

func anyTechnique(opts Options) bool {
	return opts.ObfuscateNames || opts.ObfuscateStrings || opts.StringEncryption ||
		opts.ObfuscateNumbers || opts.FlattenControlFlow ||
		opts.StrengthenConditionals || opts.InsertDeadCode ||
		opts.InsertDummyCode || opts.RewriteImports
}
