package engine

import (
	mathrand "math/rand"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// Opaque predicates: expressions whose truth value is fixed but not
// obvious from the surface form. True predicates guard real code, false
// ones guard dead branches, so both must hold for every integer operand.

func intLit(v int64) *pyast.IntLit { return &pyast.IntLit{Value: v} }

// opaqueTrue builds a predicate that always evaluates to True.
func opaqueTrue(r *mathrand.Rand) pyast.Expr {
	x := int64(1 + r.Intn(99))
	switch r.Intn(3) {
	case 0:
		// (x + 0) == x
		return &pyast.Compare{
			Left:        &pyast.BinOp{Left: intLit(x), Op: pyast.OpAdd, Right: intLit(0)},
			Ops:         []pyast.CmpOpKind{pyast.CmpEq},
			Comparators: []pyast.Expr{intLit(x)},
		}
	case 1:
		// len('c') >= 0
		c := string(rune('a' + r.Intn(26)))
		return &pyast.Compare{
			Left: &pyast.Call{
				Func: &pyast.Name{ID: "len"},
				Args: []pyast.Expr{&pyast.StringLit{Value: c}},
			},
			Ops:         []pyast.CmpOpKind{pyast.CmpGe},
			Comparators: []pyast.Expr{intLit(0)},
		}
	default:
		// (x * 2) // 2 == x
		return &pyast.Compare{
			Left: &pyast.BinOp{
				Left:  &pyast.BinOp{Left: intLit(x), Op: pyast.OpMul, Right: intLit(2)},
				Op:    pyast.OpFloorDiv,
				Right: intLit(2),
			},
			Ops:         []pyast.CmpOpKind{pyast.CmpEq},
			Comparators: []pyast.Expr{intLit(x)},
		}
	}
}

// opaqueFalse builds a predicate that always evaluates to False.
func opaqueFalse(r *mathrand.Rand) pyast.Expr {
	x := int64(1 + r.Intn(99))
	if r.Intn(2) == 0 {
		// x * 2 == x * 2 + 1
		double := func() pyast.Expr {
			return &pyast.BinOp{Left: intLit(x), Op: pyast.OpMul, Right: intLit(2)}
		}
		return &pyast.Compare{
			Left:        double(),
			Ops:         []pyast.CmpOpKind{pyast.CmpEq},
			Comparators: []pyast.Expr{&pyast.BinOp{Left: double(), Op: pyast.OpAdd, Right: intLit(1)}},
		}
	}
	// abs(x) < 0
	return &pyast.Compare{
		Left:        &pyast.Call{Func: &pyast.Name{ID: "abs"}, Args: []pyast.Expr{intLit(x)}},
		Ops:         []pyast.CmpOpKind{pyast.CmpLt},
		Comparators: []pyast.Expr{intLit(0)},
	}
}

// deadBranch builds an if-statement guarded by a false predicate. Its
// body is never executed but looks plausible. The body stays loop-free so
// a surrounding function remains eligible for flattening.
func deadBranch(r *mathrand.Rand, g *NameGen) pyast.Stmt {
	return &pyast.If{
		Test: opaqueFalse(r),
		Body: dummyCode(r, g, 1),
	}
}

// dummyCode builds throwaway filler: one or two assignments to fresh
// names, or at level 3 occasionally a small bounded accumulation loop.
func dummyCode(r *mathrand.Rand, g *NameGen, level int) []pyast.Stmt {
	if level >= 3 && r.Intn(4) == 0 {
		return fillerLoop(r, g)
	}
	n := 1 + r.Intn(2)
	out := make([]pyast.Stmt, 0, n)
	for i := 0; i < n; i++ {
		target := &pyast.Name{ID: g.Fresh()}
		var value pyast.Expr
		switch r.Intn(3) {
		case 0:
			value = intLit(int64(r.Intn(10000)))
		case 1:
			value = &pyast.StringLit{Value: randomWord(r)}
		default:
			value = &pyast.BinOp{
				Left:  intLit(int64(1 + r.Intn(500))),
				Op:    pyast.OpMul,
				Right: intLit(int64(1 + r.Intn(500))),
			}
		}
		out = append(out, &pyast.Assign{Targets: []pyast.Expr{target}, Value: value})
	}
	return out
}

// fillerLoop builds an accumulator plus a 1-3 iteration loop over it. A
// body receiving one becomes ineligible for flattening, which is fine:
// flattening is opportunistic.
func fillerLoop(r *mathrand.Rand, g *NameGen) []pyast.Stmt {
	acc := g.Fresh()
	idx := g.Fresh()
	iters := int64(1 + r.Intn(3))
	return []pyast.Stmt{
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{ID: acc}},
			Value:   intLit(int64(1 + r.Intn(100))),
		},
		&pyast.For{
			Target: &pyast.Name{ID: idx},
			Iter: &pyast.Call{
				Func: &pyast.Name{ID: "range"},
				Args: []pyast.Expr{intLit(iters)},
			},
			Body: []pyast.Stmt{
				&pyast.Assign{
					Targets: []pyast.Expr{&pyast.Name{ID: acc}},
					Value: &pyast.BinOp{
						Left:  &pyast.Name{ID: acc},
						Op:    pyast.OpAdd,
						Right: &pyast.Name{ID: idx},
					},
				},
			},
		},
	}
}

func randomWord(r *mathrand.Rand) string {
	n := 4 + r.Intn(8)
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + r.Intn(26))
	}
	return string(b)
}
