package engine

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var optValidator = validator.New()

// Preset profiles. A profile fixes the technique switches; an explicit
// level does the same through ApplyLevel. Flags set on the command line
// win over both.
var profiles = map[string]Options{
	"light": {
		Level:          1,
		ObfuscateNames: true,
	},
	"standard": {
		Level:                  2,
		ObfuscateNames:         true,
		ObfuscateStrings:       true,
		ObfuscateNumbers:       true,
		StrengthenConditionals: true,
	},
	"aggressive": {
		Level:                  3,
		ObfuscateNames:         true,
		ObfuscateStrings:       true,
		ObfuscateNumbers:       true,
		StrengthenConditionals: true,
		FlattenControlFlow:     true,
		InsertDeadCode:         true,
		InsertDummyCode:        true,
		RewriteImports:         true,
	},
	"stealth": {
		Level:                  3,
		ObfuscateNames:         true,
		ObfuscateStrings:       true,
		StringEncryption:       true,
		ObfuscateNumbers:       true,
		StrengthenConditionals: true,
		FlattenControlFlow:     true,
		RewriteImports:         true,
	},
}

// ProfileNames returns the preset names, sorted, for help output.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyLevel fills the technique switches from a numeric level.
// Level 0 leaves the pipeline as configured.
func ApplyLevel(opts *Options) {
	if opts.Level >= 1 {
		opts.ObfuscateNames = true
	}
	if opts.Level >= 2 {
		opts.ObfuscateStrings = true
		opts.ObfuscateNumbers = true
		opts.StrengthenConditionals = true
	}
	if opts.Level >= 3 {
		opts.FlattenControlFlow = true
		opts.InsertDeadCode = true
		opts.InsertDummyCode = true
		opts.RewriteImports = true
	}
}

// ResolveProfile applies a named preset or a YAML profile file into
// opts, then validates the result. Technique fields already set by the
// caller are preserved only for input/output paths and seed; the profile
// owns the technique switches.
func ResolveProfile(opts *Options) error {
	if opts.Profile == "" {
		if opts.Level > 0 {
			ApplyLevel(opts)
		}
		return optValidator.Struct(opts)
	}
	if preset, ok := profiles[opts.Profile]; ok {
		merge(opts, preset)
		return optValidator.Struct(opts)
	}
	if _, err := os.Stat(opts.Profile); err == nil {
		loaded, err := LoadProfileFile(opts.Profile)
		if err != nil {
			return err
		}
		merge(opts, loaded)
		return optValidator.Struct(opts)
	}
	return fmt.Errorf("unknown profile %q (presets: %v, or a YAML file path)", opts.Profile, ProfileNames())
}

func merge(dst *Options, src Options) {
	dst.Level = src.Level
	dst.ObfuscateNames = src.ObfuscateNames
	dst.ObfuscateStrings = src.ObfuscateStrings
	dst.StringEncryption = src.StringEncryption
	dst.ObfuscateNumbers = src.ObfuscateNumbers
	dst.FlattenControlFlow = src.FlattenControlFlow
	dst.StrengthenConditionals = src.StrengthenConditionals
	dst.InsertDeadCode = src.InsertDeadCode
	dst.InsertDummyCode = src.InsertDummyCode
	dst.RewriteImports = src.RewriteImports
	if src.Seed != 0 {
		dst.Seed = src.Seed
		dst.Seeded = true
	}
}

// LoadProfileFile reads technique switches from a YAML file.
func LoadProfileFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading profile: %w", err)
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if err := optValidator.Struct(&opts); err != nil {
		return Options{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return opts, nil
}
