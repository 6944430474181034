package engine

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

func runDriver(t *testing.T, src string, opts *Options) (*pyast.Module, *Ctx) {
	t.Helper()
	m, err := pyast.Parse(src)
	require.NoError(t, err)
	ctx := newCtx(testRng(), opts)
	ctx.Tracker.Collect(m)
	return transformModule(m, ctx), ctx
}

func unparse(t *testing.T, m *pyast.Module) string {
	t.Helper()
	out, err := pyast.Unparse(m)
	require.NoError(t, err)
	return out
}

func TestRenameConsistency(t *testing.T) {
	src := "total = 0\ndef bump(amount):\n    return total + amount\ndef twice(amount):\n    return bump(amount) + bump(amount)\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateNames: true})
	out := unparse(t, m)

	for _, original := range []string{"total", "bump", "twice", "amount"} {
		mapped, ok := ctx.Names.Mapped(original)
		require.True(t, ok, original)
		assert.NotContains(t, out, original)
		assert.Contains(t, out, mapped)
	}
	// No two originals share a replacement.
	seen := map[string]string{}
	for orig, mapped := range ctx.Names.Mapping() {
		if prev, dup := seen[mapped]; dup {
			t.Fatalf("%s and %s both mapped to %s", prev, orig, mapped)
		}
		seen[mapped] = orig
	}
}

func TestRenameLeavesExternalsAlone(t *testing.T) {
	src := "def wrap(v):\n    return helper(v)\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateNames: true})
	out := unparse(t, m)
	_, mapped := ctx.Names.Mapped("helper")
	assert.False(t, mapped)
	assert.Contains(t, out, "helper(")
	assert.Equal(t, []string{"helper"}, ctx.Tracker.Undefined())
}

func TestRenameUseBeforeDefinition(t *testing.T) {
	src := "r = later(3)\ndef later(v):\n    return v\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateNames: true})
	out := unparse(t, m)
	mapped, ok := ctx.Names.Mapped("later")
	require.True(t, ok)
	// Both the early call and the definition use the same replacement.
	assert.Equal(t, 2, strings.Count(out, mapped))
	assert.NotContains(t, out, "later")
}

func TestRenameKeepsReservedAndDunders(t *testing.T) {
	src := "class A:\n    def __init__(self):\n        self.n = len('abc')\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateNames: true})
	out := unparse(t, m)
	assert.Contains(t, out, "__init__")
	assert.Contains(t, out, "self")
	assert.Contains(t, out, "len(")
	_, mapped := ctx.Names.Mapped("self")
	assert.False(t, mapped)
}

func TestRenameKeepsKeywordCalledParams(t *testing.T) {
	src := "def scale(value, factor=2):\n    return value * factor\n" +
		"class Gauge:\n    def bump(self, amount=1):\n        self.n = self.n + amount\n" +
		"g = Gauge()\ng.bump(amount=3)\nr = scale(3, factor=5)\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateNames: true})
	out := unparse(t, m)

	// A parameter called by keyword anywhere must keep its name at the
	// definition too, or the call raises at runtime.
	assert.Contains(t, out, "amount=3")
	assert.Contains(t, out, "amount=1")
	assert.Contains(t, out, "factor=5")
	_, mapped := ctx.Names.Mapped("amount")
	assert.False(t, mapped)
	_, mapped = ctx.Names.Mapped("factor")
	assert.False(t, mapped)

	// Positional-only parameters still rename.
	v, mapped := ctx.Names.Mapped("value")
	assert.True(t, mapped)
	assert.Contains(t, out, v)
}

func TestStringEncodingRewrite(t *testing.T) {
	src := "msg = 'hello friend'\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateStrings: true})
	out := unparse(t, m)
	assert.NotContains(t, out, "hello friend")
	assert.Contains(t, out, decMultiName+"(")
	assert.True(t, ctx.decoders[decMultiName])

	// The emitted call must decode back to the original value.
	m2, err := pyast.Parse(out)
	require.NoError(t, err)
	call := m2.Body[0].(*pyast.Assign).Value.(*pyast.Call)
	enc := call.Args[0].(*pyast.StringLit).Value
	var layers []string
	for _, el := range call.Args[1].(*pyast.List).Elts {
		layers = append(layers, el.(*pyast.StringLit).Value)
	}
	dec, err := DecodeMultilayer(enc, layers)
	require.NoError(t, err)
	assert.Equal(t, "hello friend", dec)
}

func TestStringEncryptionRewrite(t *testing.T) {
	src := "msg = 'hello friend'\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateStrings: true, StringEncryption: true})
	out := unparse(t, m)
	assert.NotContains(t, out, "hello friend")
	assert.Contains(t, out, decXorName+"(")
	assert.True(t, ctx.decoders[decXorName])

	m2, err := pyast.Parse(out)
	require.NoError(t, err)
	call := m2.Body[0].(*pyast.Assign).Value.(*pyast.Call)
	enc := call.Args[0].(*pyast.StringLit).Value
	key := call.Args[1].(*pyast.StringLit).Value
	assert.Equal(t, "hello friend", DecodeXOR(enc, key))
}

func TestUnsafeStringsKeptVerbatim(t *testing.T) {
	src := "a = 'rate: %d'\nb = 'tpl {x}'\nc = 'path\\\\to'\nd = ''\n"
	m, _ := runDriver(t, src, &Options{ObfuscateStrings: true})
	out := unparse(t, m)
	assert.Contains(t, out, "rate: %d")
	assert.Contains(t, out, "tpl {x}")
	assert.NotContains(t, out, decMultiName)
}

func TestUnsafeStringFilter(t *testing.T) {
	unsafe := []string{
		"",
		"https://example.com/x",
		"SELECT name FROM users",
		"def handler: pass",
		"utf-8",
		"rate: %d",
		"tpl {x}",
		"path\\to",
		"/etc/passwd",
		"./relative/file.txt",
		"../up/one.cfg",
		"~/notes.md",
		strings.Repeat("a", maxSafeString+1),
	}
	for _, s := range unsafe {
		assert.True(t, unsafeString(s), "%q should stay verbatim", s)
	}
	safe := []string{"hello world", "selective", "a.b.c", "version 2.1"}
	for _, s := range safe {
		assert.False(t, unsafeString(s), "%q should be encodable", s)
	}
}

func TestDocstringKeptVerbatim(t *testing.T) {
	src := "def f():\n    'does a thing'\n    return 'payload str'\n"
	m, _ := runDriver(t, src, &Options{ObfuscateStrings: true})
	out := unparse(t, m)
	assert.Contains(t, out, "'does a thing'")
	assert.NotContains(t, out, "'payload str'")
}

func TestNumberObfuscationEquivalence(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		src := "n = 500\n"
		m, err := pyast.Parse(src)
		require.NoError(t, err)
		ctx := newCtx(newSeeded(seed), &Options{ObfuscateNumbers: true})
		ctx.Tracker.Collect(m)
		out := transformModule(m, ctx)
		bin, ok := out.Body[0].(*pyast.Assign).Value.(*pyast.BinOp)
		require.True(t, ok, "seed %d", seed)
		v, err := evalInt(bin)
		require.NoError(t, err)
		assert.Equal(t, int64(500), v, "seed %d", seed)
	}
}

func TestNumberObfuscationRange(t *testing.T) {
	src := "a = 5\nb = 2000\nc = 10\nd = 1000\n"
	m, _ := runDriver(t, src, &Options{ObfuscateNumbers: true})
	_, small := m.Body[0].(*pyast.Assign).Value.(*pyast.IntLit)
	assert.True(t, small, "values below 10 stay literal")
	_, large := m.Body[1].(*pyast.Assign).Value.(*pyast.IntLit)
	assert.True(t, large, "values above 1000 stay literal")
	_, loBound := m.Body[2].(*pyast.Assign).Value.(*pyast.BinOp)
	assert.True(t, loBound)
	_, hiBound := m.Body[3].(*pyast.Assign).Value.(*pyast.BinOp)
	assert.True(t, hiBound)
}

func TestOpaquePredicatesAlwaysHold(t *testing.T) {
	rng := testRng()
	for i := 0; i < 200; i++ {
		v, err := evalBool(opaqueTrue(rng))
		require.NoError(t, err)
		assert.True(t, v, "trial %d", i)
		v, err = evalBool(opaqueFalse(rng))
		require.NoError(t, err)
		assert.False(t, v, "trial %d", i)
	}
}

func TestStrengthenedConditionalKeepsMeaning(t *testing.T) {
	src := "if ready:\n    go()\n"
	found := false
	for seed := int64(0); seed < 30 && !found; seed++ {
		m, err := pyast.Parse(src)
		require.NoError(t, err)
		ctx := newCtx(newSeeded(seed), &Options{StrengthenConditionals: true})
		ctx.Tracker.Collect(m)
		out := transformModule(m, ctx)
		ifStmt := out.Body[0].(*pyast.If)
		bop, ok := ifStmt.Test.(*pyast.BoolOp)
		if !ok {
			continue
		}
		found = true
		require.Equal(t, pyast.OpAnd, bop.Op)
		require.Len(t, bop.Values, 2)
		truth, err := evalBool(bop.Values[0])
		require.NoError(t, err)
		assert.True(t, truth, "the guard must never change the branch outcome")
		assert.Equal(t, "ready", bop.Values[1].(*pyast.Name).ID)
	}
	assert.True(t, found, "no seed triggered strengthening")
}

func TestImportRewritePlainImports(t *testing.T) {
	src := "import json\nimport numpy as np\nimport os.path\n"
	m, _ := runDriver(t, src, &Options{RewriteImports: true})
	out := unparse(t, m)
	assert.Contains(t, out, "json = __import__('json')")
	assert.Contains(t, out, "np = __import__('numpy')")
	// Dotted modules keep the original statement form.
	assert.Contains(t, out, "import os.path")
}

func TestImportRewriteFromImports(t *testing.T) {
	src := "from json import dumps, loads\nfrom os.path import join\n"
	m, _ := runDriver(t, src, &Options{RewriteImports: true})
	out := unparse(t, m)
	assert.NotContains(t, out, "from json import")
	assert.Contains(t, out, "__import__('json')")
	assert.Contains(t, out, "dumps = getattr(")
	assert.Contains(t, out, "loads = getattr(")
	assert.Contains(t, out, "'loads'")
	assert.Contains(t, out, "from os.path import join")

	// The rewrite regenerates cleanly.
	_, err := pyast.Parse(out)
	require.NoError(t, err)
}

func TestImportRewriteAlias(t *testing.T) {
	src := "from json import dumps as dump_it\n"
	m, _ := runDriver(t, src, &Options{RewriteImports: true})
	out := unparse(t, m)
	assert.Contains(t, out, "dump_it = getattr(")
	assert.Contains(t, out, "'dumps'")
}

func TestDepthCeilingSkipsSubtree(t *testing.T) {
	expr := "1"
	for i := 0; i < maxTransformDepth+5; i++ {
		expr = "(" + expr + " + 500)"
	}
	src := "v = " + expr + "\n"
	m, ctx := runDriver(t, src, &Options{ObfuscateNumbers: true})
	require.NotEmpty(t, ctx.Diags)
	assert.Equal(t, "depth", ctx.Diags[0].Stage)
	// The tree still regenerates.
	_, err := pyast.Unparse(m)
	require.NoError(t, err)
}

// --- tiny evaluator for integer expressions and predicates ---

func newSeeded(seed int64) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(seed))
}

func evalInt(e pyast.Expr) (int64, error) {
	switch n := e.(type) {
	case *pyast.IntLit:
		return n.Value, nil
	case *pyast.UnaryOp:
		v, err := evalInt(n.Operand)
		if err != nil {
			return 0, err
		}
		if n.Op == pyast.OpNeg {
			return -v, nil
		}
		return 0, fmt.Errorf("unary op %d", n.Op)
	case *pyast.BinOp:
		l, err := evalInt(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalInt(n.Right)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case pyast.OpAdd:
			return l + r, nil
		case pyast.OpSub:
			return l - r, nil
		case pyast.OpMul:
			return l * r, nil
		case pyast.OpFloorDiv:
			return l / r, nil
		case pyast.OpBitXor:
			return l ^ r, nil
		}
		return 0, fmt.Errorf("binary op %d", n.Op)
	case *pyast.Call:
		name, ok := n.Func.(*pyast.Name)
		if !ok {
			return 0, fmt.Errorf("call to %T", n.Func)
		}
		switch name.ID {
		case "len":
			s, ok := n.Args[0].(*pyast.StringLit)
			if !ok {
				return 0, fmt.Errorf("len of %T", n.Args[0])
			}
			return int64(len(s.Value)), nil
		case "abs":
			v, err := evalInt(n.Args[0])
			if err != nil {
				return 0, err
			}
			if v < 0 {
				return -v, nil
			}
			return v, nil
		}
		return 0, fmt.Errorf("call to %s", name.ID)
	}
	return 0, fmt.Errorf("eval %T", e)
}

func evalBool(e pyast.Expr) (bool, error) {
	cmp, ok := e.(*pyast.Compare)
	if !ok {
		return false, fmt.Errorf("predicate %T", e)
	}
	l, err := evalInt(cmp.Left)
	if err != nil {
		return false, err
	}
	r, err := evalInt(cmp.Comparators[0])
	if err != nil {
		return false, err
	}
	switch cmp.Ops[0] {
	case pyast.CmpEq:
		return l == r, nil
	case pyast.CmpGe:
		return l >= r, nil
	case pyast.CmpLt:
		return l < r, nil
	}
	return false, fmt.Errorf("compare op %d", cmp.Ops[0])
}
