package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

func parseBody(t *testing.T, src string) []pyast.Stmt {
	t.Helper()
	m, err := pyast.Parse(src)
	require.NoError(t, err)
	fn, ok := m.Body[0].(*pyast.FunctionDef)
	require.True(t, ok)
	return fn.Body
}

func TestCanFlattenMinimumSize(t *testing.T) {
	body := parseBody(t, "def f():\n    a = 1\n    b = 2\n    c = 3\n")
	assert.False(t, canFlatten(body))
	body = parseBody(t, "def f():\n    a = 1\n    b = 2\n    c = 3\n    d = 4\n")
	assert.True(t, canFlatten(body))
}

func TestCanFlattenRejectsUnsafeStatements(t *testing.T) {
	cases := map[string]string{
		"loop":     "def f():\n    a = 1\n    b = 2\n    c = 3\n    for i in r:\n        pass\n",
		"while":    "def f():\n    a = 1\n    b = 2\n    c = 3\n    while a:\n        pass\n",
		"try":      "def f():\n    a = 1\n    b = 2\n    c = 3\n    try:\n        pass\n    except ValueError:\n        pass\n",
		"with":     "def f():\n    a = 1\n    b = 2\n    c = 3\n    with q as w:\n        pass\n",
		"global":   "def f():\n    global g\n    a = 1\n    b = 2\n    c = 3\n",
		"import":   "def f():\n    import os\n    a = 1\n    b = 2\n    c = 3\n",
		"nesteddef": "def f():\n    def g():\n        pass\n    a = 1\n    b = 2\n    c = 3\n",
		"fstring":  "def f():\n    a = 1\n    b = 2\n    c = 3\n    d = f'{a}'\n",
		"loop-in-if": "def f():\n    a = 1\n    b = 2\n    c = 3\n    if a:\n        while a:\n            pass\n",
	}
	for name, src := range cases {
		assert.False(t, canFlatten(parseBody(t, src)), name)
	}
}

func TestFlattenStructure(t *testing.T) {
	body := parseBody(t, "def f(x):\n    a = x + 1\n    b = a * 2\n    c = b - 3\n    return c\n")
	rng := testRng()
	g := NewNameGen(rng)
	out := flattenBody(g, body)

	require.Len(t, out, 2)
	initAssign, ok := out[0].(*pyast.Assign)
	require.True(t, ok)
	sv := initAssign.Targets[0].(*pyast.Name).ID
	assert.Equal(t, int64(0), initAssign.Value.(*pyast.IntLit).Value)

	loop, ok := out[1].(*pyast.While)
	require.True(t, ok)
	cond := loop.Test.(*pyast.Compare)
	assert.Equal(t, sv, cond.Left.(*pyast.Name).ID)
	assert.Equal(t, []pyast.CmpOpKind{pyast.CmpGe}, cond.Ops)

	// Walk the dispatch chain: state i runs original statement i.
	require.Len(t, loop.Body, 1)
	state := loop.Body[0].(*pyast.If)
	for i := 0; i < 4; i++ {
		test := state.Test.(*pyast.Compare)
		assert.Equal(t, sv, test.Left.(*pyast.Name).ID)
		assert.Equal(t, int64(i), test.Comparators[0].(*pyast.IntLit).Value)
		require.NotEmpty(t, state.Body)
		assert.Same(t, body[i], state.Body[0])
		if i < 3 {
			// Non-terminal states advance the state variable.
			adv := state.Body[1].(*pyast.Assign)
			assert.Equal(t, sv, adv.Targets[0].(*pyast.Name).ID)
			assert.Equal(t, int64(i+1), adv.Value.(*pyast.IntLit).Value)
			require.Len(t, state.Orelse, 1)
			state = state.Orelse[0].(*pyast.If)
		} else {
			// The final return is terminal: the loop is escaped, never
			// re-entered.
			_, isReturn := state.Body[0].(*pyast.Return)
			assert.True(t, isReturn)
			_, isBreak := state.Body[1].(*pyast.Break)
			assert.True(t, isBreak)
			assert.Empty(t, state.Orelse)
		}
	}
}

func TestFlattenEarlyReturnSequence(t *testing.T) {
	src := "def f(x):\n    a = x\n    if a > 10: return a\n    b = a + 1\n    c = b + 2\n    return c\n"
	body := parseBody(t, src)
	require.True(t, canFlatten(body))
	out := flattenBody(NewNameGen(testRng()), body)

	// The early return sits whole inside its state; the surrounding
	// dispatch only sequences the statements around it.
	loop := out[1].(*pyast.While)
	state := loop.Body[0].(*pyast.If)
	seen := 0
	for state != nil {
		seen++
		if len(state.Orelse) == 0 {
			state = nil
			continue
		}
		state = state.Orelse[0].(*pyast.If)
	}
	assert.Equal(t, len(body), seen)
}

// dispatchState walks the elif chain to the state guarding the given
// state-variable value.
func dispatchState(t *testing.T, loop *pyast.While, want int64) *pyast.If {
	t.Helper()
	state := loop.Body[0].(*pyast.If)
	for {
		test := state.Test.(*pyast.Compare)
		if test.Comparators[0].(*pyast.IntLit).Value == want {
			return state
		}
		require.NotEmpty(t, state.Orelse, "no state for value %d", want)
		state = state.Orelse[0].(*pyast.If)
	}
}

func TestFlattenDispatchPreservesExecutionOrder(t *testing.T) {
	src := "def f(x):\n    a = x\n    if a > 10: return a\n    b = a + 1\n    c = b + 2\n    return c\n"
	body := parseBody(t, src)
	out := flattenBody(NewNameGen(testRng()), body)

	init := out[0].(*pyast.Assign)
	sv := init.Targets[0].(*pyast.Name).ID
	loop := out[1].(*pyast.While)

	// Drive the dispatch the way the loop would at runtime: pick the
	// state matching the variable, run its statement, follow the advance
	// assignment until a terminal break or the exit value.
	cur := init.Value.(*pyast.IntLit).Value
	var executed []pyast.Stmt
	for steps := 0; cur >= 0; steps++ {
		require.Less(t, steps, len(body), "dispatch does not terminate")
		state := dispatchState(t, loop, cur)
		require.Len(t, state.Body, 2)
		executed = append(executed, state.Body[0])
		switch next := state.Body[1].(type) {
		case *pyast.Assign:
			require.Equal(t, sv, next.Targets[0].(*pyast.Name).ID)
			cur = next.Value.(*pyast.IntLit).Value
		case *pyast.Break:
			cur = -1
		default:
			t.Fatalf("state exits through %T", next)
		}
	}

	// Fall-through execution runs every original statement exactly once,
	// in the original order, with identical side effects.
	require.Len(t, executed, len(body))
	for i := range body {
		assert.Same(t, body[i], executed[i])
	}

	// The guarded early return sits whole inside its state, so taking it
	// still skips everything it skipped before the rewrite.
	guard := executed[1].(*pyast.If)
	_, isReturn := guard.Body[0].(*pyast.Return)
	assert.True(t, isReturn)
}

func TestFlattenedBodyNotReflattened(t *testing.T) {
	body := parseBody(t, "def f(x):\n    a = 1\n    b = 2\n    c = 3\n    d = 4\n")
	out := flattenBody(NewNameGen(testRng()), body)
	// The rewritten body is an init plus a dispatch loop; the gate
	// rejects it, so a second pass is a no-op.
	assert.False(t, canFlatten(out))
}

func TestFlattenedOutputRegenerates(t *testing.T) {
	src := "def f(x):\n    a = x + 1\n    b = a * 2\n    c = b - 3\n    return c\n"
	m, err := pyast.Parse(src)
	require.NoError(t, err)
	fn := m.Body[0].(*pyast.FunctionDef)
	fn.Body = flattenBody(NewNameGen(testRng()), fn.Body)
	out, err := pyast.Unparse(m)
	require.NoError(t, err)
	_, err = pyast.Parse(out)
	require.NoError(t, err)
	assert.Contains(t, out, "while ")
}
