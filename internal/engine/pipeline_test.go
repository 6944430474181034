package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

func TestObfuscateSourceEndToEnd(t *testing.T) {
	src := "shared = 'helloworld'\n" +
		"def first():\n    return shared\n" +
		"def second():\n    return first() + shared\n" +
		"result = second()\n"
	opts := &Options{
		ObfuscateNames:   true,
		ObfuscateStrings: true,
		Seeded:           true,
		Seed:             7,
	}
	res, err := ObfuscateSource(src, opts)
	require.NoError(t, err)

	out, err := pyast.Parse(res.Output)
	require.NoError(t, err)

	for _, original := range []string{"shared", "first", "second", "result", "helloworld"} {
		assert.NotContains(t, res.Output, original)
	}

	// One logical identifier maps to one synthesized name, used at every
	// site: definition plus both reads for the shared variable, definition
	// plus call for each function.
	assert.Equal(t, 3, strings.Count(res.Output, res.Mapping["shared"]))
	assert.Equal(t, 2, strings.Count(res.Output, res.Mapping["first"]))
	assert.Equal(t, 2, strings.Count(res.Output, res.Mapping["second"]))
	assert.Empty(t, res.Undefined)

	// The string literal now lives behind a decoder call that recovers
	// the original value.
	var call *pyast.Call
	for _, s := range out.Body {
		a, ok := s.(*pyast.Assign)
		if !ok {
			continue
		}
		c, ok := a.Value.(*pyast.Call)
		if !ok {
			continue
		}
		if fn, ok := c.Func.(*pyast.Name); ok && fn.ID == decMultiName {
			call = c
			break
		}
	}
	require.NotNil(t, call, "no decoder call in output")
	enc := call.Args[0].(*pyast.StringLit).Value
	var layers []string
	for _, el := range call.Args[1].(*pyast.List).Elts {
		layers = append(layers, el.(*pyast.StringLit).Value)
	}
	dec, err := DecodeMultilayer(enc, layers)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", dec)
}

func TestObfuscateSourceDeterministic(t *testing.T) {
	src := "x = 'hello there'\ndef f(a):\n    return a + 250\ny = f(x)\n"
	opts := func() *Options {
		return &Options{
			ObfuscateNames:   true,
			ObfuscateStrings: true,
			ObfuscateNumbers: true,
			Seeded:           true,
			Seed:             99,
		}
	}
	a, err := ObfuscateSource(src, opts())
	require.NoError(t, err)
	b, err := ObfuscateSource(src, opts())
	require.NoError(t, err)
	assert.Equal(t, a.Output, b.Output)
	assert.Equal(t, a.Mapping, b.Mapping)
}

func TestObfuscateSourceSeedWrittenBack(t *testing.T) {
	src := "def f():\n    return 1\n"
	opts := &Options{ObfuscateNames: true}
	res, err := ObfuscateSource(src, opts)
	require.NoError(t, err)
	require.NotZero(t, res.Seed)
	assert.Equal(t, opts.Seed, res.Seed)

	// Replaying the written-back seed reproduces the run.
	replay, err := ObfuscateSource(src, &Options{
		ObfuscateNames: true,
		Seeded:         true,
		Seed:           res.Seed,
	})
	require.NoError(t, err)
	assert.Equal(t, res.Output, replay.Output)
}

func TestObfuscateSourceNoOp(t *testing.T) {
	src := "x = 1\ndef f(a):\n    return a\n"
	res, err := ObfuscateSource(src, &Options{Seeded: true, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, src, res.Output)
	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, res.Applied)
}

func TestObfuscateSourceParseError(t *testing.T) {
	_, err := ObfuscateSource("def f(:\n", &Options{})
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Positive(t, pe.Line)
}

func TestObfuscateSourceReportsUndefined(t *testing.T) {
	src := "y = outside(1)\n"
	res, err := ObfuscateSource(src, &Options{ObfuscateNames: true, Seeded: true, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"outside"}, res.Undefined)
	assert.Contains(t, res.Output, "outside(")
	_, renamed := res.Mapping["outside"]
	assert.False(t, renamed)
}

func TestObfuscateSourceUndefinedUnchangedByTransforms(t *testing.T) {
	src := "def work(n):\n    a = outside(n)\n    b = a + 1\n    c = b + 2\n    return c\n"
	res, err := ObfuscateSource(src, &Options{
		ObfuscateNames:  true,
		InsertDeadCode:  true,
		InsertDummyCode: true,
		Level:           3,
		Seeded:          true,
		Seed:            21,
	})
	require.NoError(t, err)
	// Filler and dead branches bind every name they introduce, so the
	// report still lists exactly the input's externals.
	assert.Equal(t, []string{"outside"}, res.Undefined)
}

func TestObfuscateSourceLoopPrograms(t *testing.T) {
	src := "def total(n):\n    acc = 0\n    for i in range(n):\n        acc += i\n    return acc\nprint(total(4))\n"
	res, err := ObfuscateSource(src, &Options{
		ObfuscateNames:  true,
		InsertDummyCode: true,
		Level:           3,
		Seeded:          true,
		Seed:            11,
	})
	require.NoError(t, err)
	_, err = pyast.Parse(res.Output)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "for ")
}

func TestCorruptedTreeFailsRegeneration(t *testing.T) {
	m := &pyast.Module{Body: []pyast.Stmt{
		&pyast.Assign{Targets: []pyast.Expr{&pyast.Name{ID: "x"}}, Value: nil},
	}}
	_, err := pyast.Unparse(m)
	require.Error(t, err)

	wrapped := &RegenerationError{Err: err}
	var re *RegenerationError
	assert.True(t, errors.As(error(wrapped), &re))
	assert.ErrorIs(t, wrapped, err)
}

func TestValidationErrorWraps(t *testing.T) {
	inner := errors.New("bad output")
	ve := &ValidationError{Err: inner}
	assert.ErrorIs(t, ve, inner)
	assert.Contains(t, ve.Error(), "bad output")
}

func TestValidationFailureIsRegenerationError(t *testing.T) {
	// The validation gate reports through RegenerationError; the
	// validation detail stays reachable in the chain.
	err := error(&RegenerationError{Err: &ValidationError{Err: errors.New("bad output")}})
	var re *RegenerationError
	assert.True(t, errors.As(err, &re))
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "bad output")
}

func TestDecoderRuntimeIsValidSource(t *testing.T) {
	full := decoderRuntime(map[string]bool{decMultiName: true, decXorName: true})
	require.NotEmpty(t, full)
	_, err := pyast.Parse(full)
	require.NoError(t, err)

	assert.Empty(t, decoderRuntime(map[string]bool{}))
}

func TestOutputWithDecodersParsesWhole(t *testing.T) {
	src := "def greet():\n    return 'good morning'\nmsg = greet()\n"
	res, err := ObfuscateSource(src, &Options{
		ObfuscateStrings: true,
		StringEncryption: true,
		Seeded:           true,
		Seed:             11,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "def "+decXorName)
	_, err = pyast.Parse(res.Output)
	require.NoError(t, err)
}
