package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// The driver walks the tree depth-first and rebuilds it bottom-up. A
// failure while transforming one node keeps that node in its original
// form and records a diagnostic; the rest of the program is still
// transformed. Expression recursion stops at a fixed depth ceiling so
// pathological nesting degrades to a skip, never a crash.

const maxTransformDepth = 24

type driver struct {
	ctx *Ctx
}

// transformModule applies every enabled pass and returns a fresh tree.
// Nodes of the input tree are never aliased into the output.
func transformModule(m *pyast.Module, ctx *Ctx) *pyast.Module {
	d := &driver{ctx: ctx}
	if ctx.Opts.ObfuscateNames {
		d.seedRenames()
	}
	return &pyast.Module{Body: d.stmts(m.Body, true)}
}

// seedRenames fixes the replacement for every renameable name up front,
// so a use before its definition still maps consistently. Sorted
// iteration keeps the mapping deterministic under a fixed seed.
func (d *driver) seedRenames() {
	names := make([]string, 0, len(d.ctx.Tracker.Defined))
	for name := range d.ctx.Tracker.Defined {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if d.ctx.Tracker.Protected(name) {
			continue
		}
		d.ctx.Names.Rename(name)
		d.ctx.count("rename")
	}
}

func (d *driver) rename(name string) string {
	if mapped, ok := d.ctx.Names.Mapped(name); ok {
		return mapped
	}
	return name
}

// stmts rebuilds a statement list. docstringPos marks lists whose first
// statement may be a docstring, which is kept verbatim. Dead and dummy
// code is woven in behind the rebuilt statements, capped relative to the
// sequence length so short bodies never drown in filler.
func (d *driver) stmts(body []pyast.Stmt, docstringPos bool) []pyast.Stmt {
	out := make([]pyast.Stmt, 0, len(body))
	budget := 1 + len(body)/4
	for i, s := range body {
		if docstringPos && i == 0 && isDocstring(s) {
			out = append(out, s)
			continue
		}
		ns, err := d.stmt(s)
		if err != nil {
			d.ctx.diag("transform", s, err)
			ns = s
		}
		out = append(out, ns)
		if budget > 0 && d.ctx.Opts.InsertDeadCode && d.ctx.Rng.Float64() < 0.1 {
			out = append(out, deadBranch(d.ctx.Rng, d.ctx.Names))
			d.ctx.count("dead-code")
			budget--
		}
		if budget > 0 && d.ctx.Opts.InsertDummyCode && d.ctx.Rng.Float64() < 0.05 {
			out = append(out, dummyCode(d.ctx.Rng, d.ctx.Names, d.ctx.Opts.Level)...)
			d.ctx.count("dummy-code")
			budget--
		}
	}
	return out
}

func isDocstring(s pyast.Stmt) bool {
	es, ok := s.(*pyast.ExprStmt)
	if !ok {
		return false
	}
	_, ok = es.Value.(*pyast.StringLit)
	return ok
}

func (d *driver) stmt(s pyast.Stmt) (pyast.Stmt, error) {
	switch n := s.(type) {
	case *pyast.FunctionDef:
		return d.functionDef(n)
	case *pyast.ClassDef:
		bases, err := d.exprList(n.Bases)
		if err != nil {
			return nil, err
		}
		decorators, err := d.exprList(n.Decorators)
		if err != nil {
			return nil, err
		}
		return &pyast.ClassDef{
			Name:       d.rename(n.Name),
			Bases:      bases,
			Body:       d.stmts(n.Body, true),
			Decorators: decorators,
		}, nil
	case *pyast.Return:
		v, err := d.expr(n.Value, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.Return{Value: v}, nil
	case *pyast.Assign:
		targets, err := d.exprList(n.Targets)
		if err != nil {
			return nil, err
		}
		v, err := d.expr(n.Value, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.Assign{Targets: targets, Value: v}, nil
	case *pyast.AugAssign:
		target, err := d.expr(n.Target, 0)
		if err != nil {
			return nil, err
		}
		v, err := d.expr(n.Value, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.AugAssign{Target: target, Op: n.Op, Value: v}, nil
	case *pyast.If:
		test, err := d.expr(n.Test, 0)
		if err != nil {
			return nil, err
		}
		if d.ctx.Opts.StrengthenConditionals && d.ctx.Rng.Float64() < 0.2 {
			test = &pyast.BoolOp{Op: pyast.OpAnd, Values: []pyast.Expr{opaqueTrue(d.ctx.Rng), test}}
			d.ctx.count("opaque-predicate")
		}
		orelse := d.stmts(n.Orelse, false)
		if d.ctx.Opts.StrengthenConditionals && len(orelse) == 0 && d.ctx.Rng.Float64() < 0.1 {
			orelse = []pyast.Stmt{deadBranch(d.ctx.Rng, d.ctx.Names)}
			d.ctx.count("dead-code")
		}
		return &pyast.If{
			Test:   test,
			Body:   d.stmts(n.Body, false),
			Orelse: orelse,
		}, nil
	case *pyast.While:
		test, err := d.expr(n.Test, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.While{Test: test, Body: d.stmts(n.Body, false)}, nil
	case *pyast.For:
		target, err := d.expr(n.Target, 0)
		if err != nil {
			return nil, err
		}
		iter, err := d.expr(n.Iter, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.For{Target: target, Iter: iter, Body: d.stmts(n.Body, false)}, nil
	case *pyast.Try:
		out := &pyast.Try{
			Body:    d.stmts(n.Body, false),
			Orelse:  d.stmts(n.Orelse, false),
			Finally: d.stmts(n.Finally, false),
		}
		if len(n.Orelse) == 0 {
			out.Orelse = nil
		}
		if len(n.Finally) == 0 {
			out.Finally = nil
		}
		for _, h := range n.Handlers {
			typ, err := d.expr(h.Type, 0)
			if err != nil {
				return nil, err
			}
			out.Handlers = append(out.Handlers, pyast.ExceptHandler{
				Type: typ,
				Name: d.rename(h.Name),
				Body: d.stmts(h.Body, false),
			})
		}
		return out, nil
	case *pyast.With:
		ctxExpr, err := d.expr(n.Context, 0)
		if err != nil {
			return nil, err
		}
		as, err := d.expr(n.As, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.With{Context: ctxExpr, As: as, Body: d.stmts(n.Body, false)}, nil
	case *pyast.Import:
		return d.importStmt(n)
	case *pyast.ImportFrom:
		return d.importFromStmt(n)
	case *pyast.Global:
		return &pyast.Global{Names: d.renameAll(n.Names)}, nil
	case *pyast.Nonlocal:
		return &pyast.Nonlocal{Names: d.renameAll(n.Names)}, nil
	case *pyast.Raise:
		exc, err := d.expr(n.Exc, 0)
		if err != nil {
			return nil, err
		}
		cause, err := d.expr(n.Cause, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.Raise{Exc: exc, Cause: cause}, nil
	case *pyast.Assert:
		test, err := d.expr(n.Test, 0)
		if err != nil {
			return nil, err
		}
		msg, err := d.expr(n.Msg, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.Assert{Test: test, Msg: msg}, nil
	case *pyast.Delete:
		targets, err := d.exprList(n.Targets)
		if err != nil {
			return nil, err
		}
		return &pyast.Delete{Targets: targets}, nil
	case *pyast.Pass:
		return &pyast.Pass{}, nil
	case *pyast.Break:
		return &pyast.Break{}, nil
	case *pyast.Continue:
		return &pyast.Continue{}, nil
	case *pyast.ExprStmt:
		v, err := d.expr(n.Value, 0)
		if err != nil {
			return nil, err
		}
		return &pyast.ExprStmt{Value: v}, nil
	}
	return nil, fmt.Errorf("unsupported statement %T", s)
}

func (d *driver) functionDef(n *pyast.FunctionDef) (pyast.Stmt, error) {
	params := make([]pyast.Param, 0, len(n.Params))
	for _, p := range n.Params {
		def, err := d.expr(p.Default, 0)
		if err != nil {
			return nil, err
		}
		params = append(params, pyast.Param{Name: d.rename(p.Name), Default: def})
	}
	decorators, err := d.exprList(n.Decorators)
	if err != nil {
		return nil, err
	}
	body := d.stmts(n.Body, true)
	if d.ctx.Opts.FlattenControlFlow && len(body) > minFlattenStmts && canFlatten(body) {
		body = flattenBody(d.ctx.Names, body)
		d.ctx.count("flatten")
	}
	return &pyast.FunctionDef{
		Name:       d.rename(n.Name),
		Params:     params,
		Body:       body,
		Decorators: decorators,
	}, nil
}

// importStmt optionally rewrites "import m" to "m = __import__('m')".
// Dotted and from-imports keep their original form: the binding rules
// differ and the rewrite would change them.
func (d *driver) importStmt(n *pyast.Import) (pyast.Stmt, error) {
	if !d.ctx.Opts.RewriteImports {
		return &pyast.Import{Names: append([]pyast.ImportAlias(nil), n.Names...)}, nil
	}
	var kept []pyast.ImportAlias
	var rewritten []pyast.Stmt
	for _, a := range n.Names {
		if strings.Contains(a.Name, ".") {
			kept = append(kept, a)
			continue
		}
		bound := a.As
		if bound == "" {
			bound = a.Name
		}
		rewritten = append(rewritten, &pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{ID: bound}},
			Value: &pyast.Call{
				Func: &pyast.Name{ID: "__import__"},
				Args: []pyast.Expr{d.stringLit(&pyast.StringLit{Value: a.Name})},
			},
		})
		d.ctx.count("import-rewrite")
	}
	if len(rewritten) == 0 {
		return &pyast.Import{Names: kept}, nil
	}
	if len(kept) > 0 {
		rewritten = append([]pyast.Stmt{&pyast.Import{Names: kept}}, rewritten...)
	}
	if len(rewritten) == 1 {
		return rewritten[0], nil
	}
	// Multiple bindings from one import line: wrap in an always-true
	// branch so one statement slot still yields one statement.
	return &pyast.If{Test: &pyast.BoolLit{Value: true}, Body: rewritten}, nil
}

// importFromStmt rewrites "from m import a, b" into a temp module binding
// plus getattr assignments. Dotted modules keep their original form: the
// __import__ builtin returns the top-level package for those.
func (d *driver) importFromStmt(n *pyast.ImportFrom) (pyast.Stmt, error) {
	if !d.ctx.Opts.RewriteImports || strings.Contains(n.Module, ".") {
		names := append([]pyast.ImportAlias(nil), n.Names...)
		return &pyast.ImportFrom{Module: n.Module, Names: names}, nil
	}
	tmp := d.ctx.Names.Fresh()
	body := []pyast.Stmt{&pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{ID: tmp}},
		Value: &pyast.Call{
			Func: &pyast.Name{ID: "__import__"},
			Args: []pyast.Expr{d.stringLit(&pyast.StringLit{Value: n.Module})},
		},
	}}
	for _, a := range n.Names {
		bound := a.As
		if bound == "" {
			bound = a.Name
		}
		body = append(body, &pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{ID: bound}},
			Value: &pyast.Call{
				Func: &pyast.Name{ID: "getattr"},
				Args: []pyast.Expr{
					&pyast.Name{ID: tmp},
					d.stringLit(&pyast.StringLit{Value: a.Name}),
				},
			},
		})
	}
	d.ctx.count("import-rewrite")
	return &pyast.If{Test: &pyast.BoolLit{Value: true}, Body: body}, nil
}

func (d *driver) renameAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.rename(n)
	}
	return out
}

func (d *driver) exprList(es []pyast.Expr) ([]pyast.Expr, error) {
	if es == nil {
		return nil, nil
	}
	out := make([]pyast.Expr, len(es))
	for i, e := range es {
		ne, err := d.expr(e, 0)
		if err != nil {
			return nil, err
		}
		out[i] = ne
	}
	return out, nil
}

func (d *driver) expr(e pyast.Expr, depth int) (pyast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	if depth > maxTransformDepth {
		d.ctx.diag("depth", e, fmt.Errorf("nesting exceeds depth ceiling %d, subtree left untouched", maxTransformDepth))
		return e, nil
	}
	depth++
	switch n := e.(type) {
	case *pyast.Name:
		return &pyast.Name{ID: d.rename(n.ID)}, nil
	case *pyast.StringLit:
		return d.stringLit(n), nil
	case *pyast.FStringLit:
		return &pyast.FStringLit{Raw: n.Raw, Quote: n.Quote}, nil
	case *pyast.IntLit:
		return d.intLit(n), nil
	case *pyast.FloatLit:
		return &pyast.FloatLit{Raw: n.Raw}, nil
	case *pyast.BoolLit:
		return &pyast.BoolLit{Value: n.Value}, nil
	case *pyast.NoneLit:
		return &pyast.NoneLit{}, nil
	case *pyast.Tuple:
		elts, err := d.exprDeep(n.Elts, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.Tuple{Elts: elts}, nil
	case *pyast.List:
		elts, err := d.exprDeep(n.Elts, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.List{Elts: elts}, nil
	case *pyast.Dict:
		keys, err := d.exprDeep(n.Keys, depth)
		if err != nil {
			return nil, err
		}
		values, err := d.exprDeep(n.Values, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.Dict{Keys: keys, Values: values}, nil
	case *pyast.Attribute:
		v, err := d.expr(n.Value, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.Attribute{Value: v, Attr: n.Attr}, nil
	case *pyast.Subscript:
		v, err := d.expr(n.Value, depth)
		if err != nil {
			return nil, err
		}
		idx, err := d.expr(n.Index, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.Subscript{Value: v, Index: idx}, nil
	case *pyast.Slice:
		lo, err := d.expr(n.Lo, depth)
		if err != nil {
			return nil, err
		}
		hi, err := d.expr(n.Hi, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.Slice{Lo: lo, Hi: hi}, nil
	case *pyast.Call:
		fn, err := d.expr(n.Func, depth)
		if err != nil {
			return nil, err
		}
		args, err := d.exprDeep(n.Args, depth)
		if err != nil {
			return nil, err
		}
		var kws []pyast.Keyword
		for _, kw := range n.Keywords {
			v, err := d.expr(kw.Value, depth)
			if err != nil {
				return nil, err
			}
			kws = append(kws, pyast.Keyword{Name: kw.Name, Value: v})
		}
		return &pyast.Call{Func: fn, Args: args, Keywords: kws}, nil
	case *pyast.BinOp:
		l, err := d.expr(n.Left, depth)
		if err != nil {
			return nil, err
		}
		r, err := d.expr(n.Right, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.BinOp{Left: l, Op: n.Op, Right: r}, nil
	case *pyast.UnaryOp:
		v, err := d.expr(n.Operand, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.UnaryOp{Op: n.Op, Operand: v}, nil
	case *pyast.BoolOp:
		values, err := d.exprDeep(n.Values, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.BoolOp{Op: n.Op, Values: values}, nil
	case *pyast.Compare:
		l, err := d.expr(n.Left, depth)
		if err != nil {
			return nil, err
		}
		comps, err := d.exprDeep(n.Comparators, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.Compare{Left: l, Ops: append([]pyast.CmpOpKind(nil), n.Ops...), Comparators: comps}, nil
	case *pyast.IfExp:
		test, err := d.expr(n.Test, depth)
		if err != nil {
			return nil, err
		}
		body, err := d.expr(n.Body, depth)
		if err != nil {
			return nil, err
		}
		orelse, err := d.expr(n.Orelse, depth)
		if err != nil {
			return nil, err
		}
		return &pyast.IfExp{Test: test, Body: body, Orelse: orelse}, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (d *driver) exprDeep(es []pyast.Expr, depth int) ([]pyast.Expr, error) {
	if es == nil {
		return nil, nil
	}
	out := make([]pyast.Expr, len(es))
	for i, e := range es {
		ne, err := d.expr(e, depth)
		if err != nil {
			return nil, err
		}
		out[i] = ne
	}
	return out, nil
}

// stringLit encodes an eligible string literal into a decoder call.
// Ineligible strings stay verbatim; there is no partial encoding.
func (d *driver) stringLit(n *pyast.StringLit) pyast.Expr {
	if !d.ctx.Opts.ObfuscateStrings || unsafeString(n.Value) {
		return &pyast.StringLit{Value: n.Value}
	}
	if d.ctx.Opts.StringEncryption {
		enc, key, ok := EncodeXOR(d.ctx.Rng, n.Value)
		if ok {
			d.ctx.decoders[decXorName] = true
			d.ctx.count("string-xor")
			return &pyast.Call{
				Func: &pyast.Name{ID: decXorName},
				Args: []pyast.Expr{
					&pyast.StringLit{Value: enc},
					&pyast.StringLit{Value: key},
				},
			}
		}
		return &pyast.StringLit{Value: n.Value}
	}
	enc, layers, ok := EncodeMultilayer(d.ctx.Rng, n.Value)
	if !ok {
		return &pyast.StringLit{Value: n.Value}
	}
	d.ctx.decoders[decMultiName] = true
	d.ctx.count("string-multilayer")
	layerElts := make([]pyast.Expr, len(layers))
	for i, l := range layers {
		layerElts[i] = &pyast.StringLit{Value: l}
	}
	return &pyast.Call{
		Func: &pyast.Name{ID: decMultiName},
		Args: []pyast.Expr{
			&pyast.StringLit{Value: enc},
			&pyast.List{Elts: layerElts},
		},
	}
}

// maxSafeString bounds how long a literal may be before encoding is
// declined outright.
const maxSafeString = 300

// unsafeStringPatterns are literal shapes that are never encoded: values
// that plausibly feed formatting, decoding, filesystem, network, database
// or dynamic execution machinery, where an encode/decode cycle risks changing
// behavior in ways the validator cannot catch.
var unsafeStringPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`),
	regexp.MustCompile(`^(~?/|\.{1,2}/)`),
	regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop)\b\s`),
	regexp.MustCompile(`\b(def|lambda|import|exec|eval)\s`),
	regexp.MustCompile(`(?i)\b(utf-?8|ascii|latin-?1|base64|cp125\d)\b`),
}

// unsafeString applies the literal safety filter.
func unsafeString(s string) bool {
	if s == "" || len([]rune(s)) > maxSafeString {
		return true
	}
	// Format fields, escapes and path separators stay verbatim.
	if strings.ContainsAny(s, "%{}\\") {
		return true
	}
	for _, re := range unsafeStringPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// intLit hides a literal behind an equivalent arithmetic expression.
func (d *driver) intLit(n *pyast.IntLit) pyast.Expr {
	v := n.Value
	if !d.ctx.Opts.ObfuscateNumbers || v < 10 || v > 1000 {
		return &pyast.IntLit{Value: v}
	}
	k := int64(1 + d.ctx.Rng.Intn(255))
	d.ctx.count("number")
	if d.ctx.Rng.Intn(2) == 0 {
		// (v + k) - k
		return &pyast.BinOp{
			Left:  intLit(v + k),
			Op:    pyast.OpSub,
			Right: intLit(k),
		}
	}
	// (v ^ k) ^ k
	return &pyast.BinOp{
		Left:  intLit(v ^ k),
		Op:    pyast.OpBitXor,
		Right: intLit(k),
	}
}
