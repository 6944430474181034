package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameGenMemoized(t *testing.T) {
	g := NewNameGen(testRng())
	a := g.Rename("foo")
	assert.Equal(t, a, g.Rename("foo"))
	b := g.Rename("bar")
	assert.NotEqual(t, a, b)

	mapped, ok := g.Mapped("foo")
	require.True(t, ok)
	assert.Equal(t, a, mapped)
	_, ok = g.Mapped("never")
	assert.False(t, ok)
}

func TestNameGenShape(t *testing.T) {
	g := NewNameGen(testRng())
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n := g.Fresh()
		rs := []rune(n)
		assert.GreaterOrEqual(t, len(rs), 8)
		assert.LessOrEqual(t, len(rs), 16)
		assert.False(t, isReservedName(n), n)
		assert.False(t, hasBadSuffix(n), n)
		assert.False(t, rs[0] >= '0' && rs[0] <= '9', n)
		assert.False(t, seen[n], "duplicate fresh name %s", n)
		seen[n] = true
	}
}

func TestNameGenLengthScaling(t *testing.T) {
	g := NewNameGen(testRng())
	g.SetLength(12, 20)
	for i := 0; i < 50; i++ {
		rs := []rune(g.Fresh())
		assert.GreaterOrEqual(t, len(rs), 12)
		assert.LessOrEqual(t, len(rs), 20)
	}
}

func TestInitRNGSeededDeterminism(t *testing.T) {
	seed := int64(1234)
	a := InitRNG(&seed, true, []byte("input"))
	b := InitRNG(&seed, true, []byte("input"))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}

func TestInitRNGWritesSeedBack(t *testing.T) {
	var seed int64
	InitRNG(&seed, false, []byte("some program text"))
	assert.NotZero(t, seed)
}

func TestDeriveKeyNDeterministic(t *testing.T) {
	a := deriveKeyN(77, 16)
	b := deriveKeyN(77, 16)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, deriveKeyN(78, 16))
}
