package engine

import (
	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// Control-flow flattening rewrites a straight-line function body into a
// state-machine dispatch loop. Only bodies that provably keep their
// semantics under the rewrite are eligible; everything else is skipped
// silently.

const minFlattenStmts = 4

// canFlatten applies the eligibility gate. Loops are rejected because a
// break or continue inside the body would retarget the dispatch loop;
// scope and import statements because execution order through the loop
// header changes their meaning; f-strings because their interpolations
// are opaque to the rewrite.
func canFlatten(body []pyast.Stmt) bool {
	if len(body) < minFlattenStmts {
		return false
	}
	for _, s := range body {
		if !flattenSafe(s) {
			return false
		}
	}
	return true
}

func flattenSafe(s pyast.Stmt) bool {
	switch n := s.(type) {
	case *pyast.FunctionDef, *pyast.ClassDef, *pyast.Try, *pyast.With,
		*pyast.Global, *pyast.Nonlocal, *pyast.Import, *pyast.ImportFrom,
		*pyast.While, *pyast.For, *pyast.Break, *pyast.Continue:
		return false
	case *pyast.If:
		for _, b := range n.Body {
			if !flattenSafe(b) {
				return false
			}
		}
		for _, b := range n.Orelse {
			if !flattenSafe(b) {
				return false
			}
		}
	}
	return !containsFString(s)
}

// flattenBody rewrites body into:
//
//	sv = 0
//	while sv >= 0:
//	    if sv == 0: ...; sv = 1
//	    elif sv == 1: ...
//
// Each original statement becomes one state. Terminal statements exit the
// function directly; everything else advances the state variable, with
// -1 ending the loop.
func flattenBody(g *NameGen, body []pyast.Stmt) []pyast.Stmt {
	sv := g.Fresh()
	states := make([]*pyast.If, len(body))
	for i, s := range body {
		blk := []pyast.Stmt{s}
		if isTerminal(s) {
			blk = append(blk, &pyast.Break{})
		} else {
			next := int64(i + 1)
			if i == len(body)-1 {
				next = -1
			}
			blk = append(blk, &pyast.Assign{
				Targets: []pyast.Expr{&pyast.Name{ID: sv}},
				Value:   intLit(next),
			})
		}
		states[i] = &pyast.If{
			Test: &pyast.Compare{
				Left:        &pyast.Name{ID: sv},
				Ops:         []pyast.CmpOpKind{pyast.CmpEq},
				Comparators: []pyast.Expr{intLit(int64(i))},
			},
			Body: blk,
		}
	}
	for i := len(states) - 2; i >= 0; i-- {
		states[i].Orelse = []pyast.Stmt{states[i+1]}
	}
	return []pyast.Stmt{
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{ID: sv}},
			Value:   intLit(0),
		},
		&pyast.While{
			Test: &pyast.Compare{
				Left:        &pyast.Name{ID: sv},
				Ops:         []pyast.CmpOpKind{pyast.CmpGe},
				Comparators: []pyast.Expr{intLit(0)},
			},
			Body: []pyast.Stmt{states[0]},
		},
	}
}

func isTerminal(s pyast.Stmt) bool {
	switch s.(type) {
	case *pyast.Return, *pyast.Raise, *pyast.Break, *pyast.Continue:
		return true
	}
	return false
}

// containsFString walks one statement looking for f-string literals.
func containsFString(s pyast.Stmt) bool {
	found := false
	walkStmt(s, func(e pyast.Expr) {
		if _, ok := e.(*pyast.FStringLit); ok {
			found = true
		}
	})
	return found
}

// walkExpr visits e and every expression nested inside it.
func walkExpr(e pyast.Expr, visit func(pyast.Expr)) {
	var we func(pyast.Expr)
	we = func(e pyast.Expr) {
		if e == nil {
			return
		}
		visit(e)
		switch n := e.(type) {
		case *pyast.Tuple:
			for _, el := range n.Elts {
				we(el)
			}
		case *pyast.List:
			for _, el := range n.Elts {
				we(el)
			}
		case *pyast.Dict:
			for i := range n.Keys {
				we(n.Keys[i])
				we(n.Values[i])
			}
		case *pyast.Attribute:
			we(n.Value)
		case *pyast.Subscript:
			we(n.Value)
			we(n.Index)
		case *pyast.Slice:
			we(n.Lo)
			we(n.Hi)
		case *pyast.Call:
			we(n.Func)
			for _, a := range n.Args {
				we(a)
			}
			for _, kw := range n.Keywords {
				we(kw.Value)
			}
		case *pyast.BinOp:
			we(n.Left)
			we(n.Right)
		case *pyast.UnaryOp:
			we(n.Operand)
		case *pyast.BoolOp:
			for _, v := range n.Values {
				we(v)
			}
		case *pyast.Compare:
			we(n.Left)
			for _, c := range n.Comparators {
				we(c)
			}
		case *pyast.IfExp:
			we(n.Test)
			we(n.Body)
			we(n.Orelse)
		}
	}
	we(e)
}

// walkStmt visits every expression reachable from s, including nested
// statement bodies.
func walkStmt(s pyast.Stmt, visit func(pyast.Expr)) {
	we := func(e pyast.Expr) { walkExpr(e, visit) }
	var ws func(pyast.Stmt)
	ws = func(s pyast.Stmt) {
		switch n := s.(type) {
		case *pyast.FunctionDef:
			for _, p := range n.Params {
				we(p.Default)
			}
			for _, d := range n.Decorators {
				we(d)
			}
			for _, b := range n.Body {
				ws(b)
			}
		case *pyast.ClassDef:
			for _, b := range n.Bases {
				we(b)
			}
			for _, d := range n.Decorators {
				we(d)
			}
			for _, b := range n.Body {
				ws(b)
			}
		case *pyast.Return:
			we(n.Value)
		case *pyast.Assign:
			for _, t := range n.Targets {
				we(t)
			}
			we(n.Value)
		case *pyast.AugAssign:
			we(n.Target)
			we(n.Value)
		case *pyast.If:
			we(n.Test)
			for _, b := range n.Body {
				ws(b)
			}
			for _, b := range n.Orelse {
				ws(b)
			}
		case *pyast.While:
			we(n.Test)
			for _, b := range n.Body {
				ws(b)
			}
		case *pyast.For:
			we(n.Target)
			we(n.Iter)
			for _, b := range n.Body {
				ws(b)
			}
		case *pyast.Try:
			for _, b := range n.Body {
				ws(b)
			}
			for _, h := range n.Handlers {
				we(h.Type)
				for _, b := range h.Body {
					ws(b)
				}
			}
			for _, b := range n.Orelse {
				ws(b)
			}
			for _, b := range n.Finally {
				ws(b)
			}
		case *pyast.With:
			we(n.Context)
			we(n.As)
			for _, b := range n.Body {
				ws(b)
			}
		case *pyast.Raise:
			we(n.Exc)
			we(n.Cause)
		case *pyast.Assert:
			we(n.Test)
			we(n.Msg)
		case *pyast.Delete:
			for _, t := range n.Targets {
				we(t)
			}
		case *pyast.ExprStmt:
			we(n.Value)
		}
	}
	ws(s)
}
