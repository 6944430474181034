package pyast

import (
	"fmt"
	"strconv"
	"strings"
)

// Unparse regenerates Python source from a module. The output normalizes
// layout (four-space indents, one statement per line) but preserves the
// program's meaning. An unknown or nil node yields an error rather than
// silently dropped output.
func Unparse(m *Module) (string, error) {
	if m == nil {
		return "", fmt.Errorf("unparse: nil module")
	}
	u := &unparser{}
	if err := u.stmts(m.Body); err != nil {
		return "", err
	}
	return u.b.String(), nil
}

type unparser struct {
	b     strings.Builder
	depth int
}

func (u *unparser) line(s string) {
	for i := 0; i < u.depth; i++ {
		u.b.WriteString("    ")
	}
	u.b.WriteString(s)
	u.b.WriteByte('\n')
}

func (u *unparser) stmts(body []Stmt) error {
	if len(body) == 0 {
		u.line("pass")
		return nil
	}
	for _, s := range body {
		if err := u.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (u *unparser) block(body []Stmt) error {
	u.depth++
	err := u.stmts(body)
	u.depth--
	return err
}

func (u *unparser) stmt(s Stmt) error {
	switch t := s.(type) {
	case nil:
		return fmt.Errorf("unparse: nil statement")
	case *FunctionDef:
		for _, d := range t.Decorators {
			ds, err := u.expr(d)
			if err != nil {
				return err
			}
			u.line("@" + ds)
		}
		params := make([]string, 0, len(t.Params))
		for _, prm := range t.Params {
			if prm.Default != nil {
				d, err := u.expr(prm.Default)
				if err != nil {
					return err
				}
				params = append(params, prm.Name+"="+d)
			} else {
				params = append(params, prm.Name)
			}
		}
		u.line("def " + t.Name + "(" + strings.Join(params, ", ") + "):")
		return u.block(t.Body)
	case *ClassDef:
		for _, d := range t.Decorators {
			ds, err := u.expr(d)
			if err != nil {
				return err
			}
			u.line("@" + ds)
		}
		head := "class " + t.Name
		if len(t.Bases) > 0 {
			bases := make([]string, 0, len(t.Bases))
			for _, b := range t.Bases {
				bs, err := u.expr(b)
				if err != nil {
					return err
				}
				bases = append(bases, bs)
			}
			head += "(" + strings.Join(bases, ", ") + ")"
		}
		u.line(head + ":")
		return u.block(t.Body)
	case *Return:
		if t.Value == nil {
			u.line("return")
			return nil
		}
		v, err := u.expr(t.Value)
		if err != nil {
			return err
		}
		u.line("return " + v)
		return nil
	case *Assign:
		var parts []string
		for _, target := range t.Targets {
			ts, err := u.expr(target)
			if err != nil {
				return err
			}
			parts = append(parts, ts)
		}
		v, err := u.expr(t.Value)
		if err != nil {
			return err
		}
		parts = append(parts, v)
		u.line(strings.Join(parts, " = "))
		return nil
	case *AugAssign:
		target, err := u.expr(t.Target)
		if err != nil {
			return err
		}
		v, err := u.expr(t.Value)
		if err != nil {
			return err
		}
		op, ok := binOpText[t.Op]
		if !ok {
			return fmt.Errorf("unparse: unknown augmented operator %d", t.Op)
		}
		u.line(target + " " + op + "= " + v)
		return nil
	case *If:
		return u.ifChain(t, "if")
	case *While:
		test, err := u.expr(t.Test)
		if err != nil {
			return err
		}
		u.line("while " + test + ":")
		return u.block(t.Body)
	case *For:
		target, err := u.exprNoParens(t.Target)
		if err != nil {
			return err
		}
		iter, err := u.exprNoParens(t.Iter)
		if err != nil {
			return err
		}
		u.line("for " + target + " in " + iter + ":")
		return u.block(t.Body)
	case *Try:
		u.line("try:")
		if err := u.block(t.Body); err != nil {
			return err
		}
		for _, h := range t.Handlers {
			head := "except"
			if h.Type != nil {
				ts, err := u.expr(h.Type)
				if err != nil {
					return err
				}
				head += " " + ts
				if h.Name != "" {
					head += " as " + h.Name
				}
			}
			u.line(head + ":")
			if err := u.block(h.Body); err != nil {
				return err
			}
		}
		if len(t.Orelse) > 0 {
			u.line("else:")
			if err := u.block(t.Orelse); err != nil {
				return err
			}
		}
		if len(t.Finally) > 0 {
			u.line("finally:")
			if err := u.block(t.Finally); err != nil {
				return err
			}
		}
		return nil
	case *With:
		ctx, err := u.expr(t.Context)
		if err != nil {
			return err
		}
		head := "with " + ctx
		if t.As != nil {
			as, err := u.expr(t.As)
			if err != nil {
				return err
			}
			head += " as " + as
		}
		u.line(head + ":")
		return u.block(t.Body)
	case *Import:
		u.line("import " + joinAliases(t.Names))
		return nil
	case *ImportFrom:
		u.line("from " + t.Module + " import " + joinAliases(t.Names))
		return nil
	case *Global:
		u.line("global " + strings.Join(t.Names, ", "))
		return nil
	case *Nonlocal:
		u.line("nonlocal " + strings.Join(t.Names, ", "))
		return nil
	case *Raise:
		if t.Exc == nil {
			u.line("raise")
			return nil
		}
		exc, err := u.expr(t.Exc)
		if err != nil {
			return err
		}
		out := "raise " + exc
		if t.Cause != nil {
			c, err := u.expr(t.Cause)
			if err != nil {
				return err
			}
			out += " from " + c
		}
		u.line(out)
		return nil
	case *Assert:
		test, err := u.expr(t.Test)
		if err != nil {
			return err
		}
		out := "assert " + test
		if t.Msg != nil {
			msg, err := u.expr(t.Msg)
			if err != nil {
				return err
			}
			out += ", " + msg
		}
		u.line(out)
		return nil
	case *Delete:
		var parts []string
		for _, target := range t.Targets {
			ts, err := u.expr(target)
			if err != nil {
				return err
			}
			parts = append(parts, ts)
		}
		u.line("del " + strings.Join(parts, ", "))
		return nil
	case *Pass:
		u.line("pass")
		return nil
	case *Break:
		u.line("break")
		return nil
	case *Continue:
		u.line("continue")
		return nil
	case *ExprStmt:
		v, err := u.expr(t.Value)
		if err != nil {
			return err
		}
		u.line(v)
		return nil
	}
	return fmt.Errorf("unparse: unknown statement %T", s)
}

func (u *unparser) ifChain(node *If, kw string) error {
	test, err := u.expr(node.Test)
	if err != nil {
		return err
	}
	u.line(kw + " " + test + ":")
	if err := u.block(node.Body); err != nil {
		return err
	}
	if len(node.Orelse) == 0 {
		return nil
	}
	if len(node.Orelse) == 1 {
		if nested, ok := node.Orelse[0].(*If); ok {
			return u.ifChain(nested, "elif")
		}
	}
	u.line("else:")
	return u.block(node.Orelse)
}

func joinAliases(names []ImportAlias) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if n.As != "" {
			parts = append(parts, n.Name+" as "+n.As)
		} else {
			parts = append(parts, n.Name)
		}
	}
	return strings.Join(parts, ", ")
}

// exprNoParens renders a bare tuple without its surrounding parentheses,
// for for-loop targets and iterables.
func (u *unparser) exprNoParens(e Expr) (string, error) {
	if tup, ok := e.(*Tuple); ok && len(tup.Elts) > 0 {
		parts := make([]string, 0, len(tup.Elts))
		for _, el := range tup.Elts {
			s, err := u.expr(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	}
	return u.expr(e)
}

// operand renders a sub-expression, parenthesizing anything that is not
// clearly atomic. This is deliberately conservative: extra parentheses
// never change meaning, missing ones can.
func (u *unparser) operand(e Expr) (string, error) {
	s, err := u.expr(e)
	if err != nil {
		return "", err
	}
	if isAtomic(e) {
		return s, nil
	}
	return "(" + s + ")", nil
}

func isAtomic(e Expr) bool {
	switch t := e.(type) {
	case *Name, *StringLit, *FStringLit, *FloatLit, *BoolLit, *NoneLit,
		*List, *Dict, *Attribute, *Subscript, *Call:
		return true
	case *IntLit:
		return t.Value >= 0
	case *Tuple:
		return true // tuples render parenthesized already
	}
	return false
}

func (u *unparser) expr(e Expr) (string, error) {
	switch t := e.(type) {
	case nil:
		return "", fmt.Errorf("unparse: nil expression")
	case *Name:
		return t.ID, nil
	case *StringLit:
		return quotePy(t.Value), nil
	case *FStringLit:
		q := t.Quote
		if q == 0 {
			q = '\''
		}
		return "f" + string(q) + t.Raw + string(q), nil
	case *IntLit:
		return strconv.FormatInt(t.Value, 10), nil
	case *FloatLit:
		return t.Raw, nil
	case *BoolLit:
		if t.Value {
			return "True", nil
		}
		return "False", nil
	case *NoneLit:
		return "None", nil
	case *Tuple:
		if len(t.Elts) == 0 {
			return "()", nil
		}
		parts := make([]string, 0, len(t.Elts))
		for _, el := range t.Elts {
			s, err := u.expr(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)", nil
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	case *List:
		parts := make([]string, 0, len(t.Elts))
		for _, el := range t.Elts {
			s, err := u.expr(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *Dict:
		if len(t.Keys) != len(t.Values) {
			return "", fmt.Errorf("unparse: dict with %d keys and %d values", len(t.Keys), len(t.Values))
		}
		parts := make([]string, 0, len(t.Keys))
		for i := range t.Keys {
			k, err := u.expr(t.Keys[i])
			if err != nil {
				return "", err
			}
			v, err := u.expr(t.Values[i])
			if err != nil {
				return "", err
			}
			parts = append(parts, k+": "+v)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *Attribute:
		v, err := u.operand(t.Value)
		if err != nil {
			return "", err
		}
		return v + "." + t.Attr, nil
	case *Subscript:
		v, err := u.operand(t.Value)
		if err != nil {
			return "", err
		}
		idx, err := u.expr(t.Index)
		if err != nil {
			return "", err
		}
		return v + "[" + idx + "]", nil
	case *Slice:
		var lo, hi string
		var err error
		if t.Lo != nil {
			lo, err = u.expr(t.Lo)
			if err != nil {
				return "", err
			}
		}
		if t.Hi != nil {
			hi, err = u.expr(t.Hi)
			if err != nil {
				return "", err
			}
		}
		return lo + ":" + hi, nil
	case *Call:
		fn, err := u.operand(t.Func)
		if err != nil {
			return "", err
		}
		args := make([]string, 0, len(t.Args)+len(t.Keywords))
		for _, a := range t.Args {
			s, err := u.expr(a)
			if err != nil {
				return "", err
			}
			args = append(args, s)
		}
		for _, kw := range t.Keywords {
			s, err := u.expr(kw.Value)
			if err != nil {
				return "", err
			}
			args = append(args, kw.Name+"="+s)
		}
		return fn + "(" + strings.Join(args, ", ") + ")", nil
	case *BinOp:
		op, ok := binOpText[t.Op]
		if !ok {
			return "", fmt.Errorf("unparse: unknown binary operator %d", t.Op)
		}
		l, err := u.operand(t.Left)
		if err != nil {
			return "", err
		}
		r, err := u.operand(t.Right)
		if err != nil {
			return "", err
		}
		return l + " " + op + " " + r, nil
	case *UnaryOp:
		v, err := u.operand(t.Operand)
		if err != nil {
			return "", err
		}
		switch t.Op {
		case OpNeg:
			return "-" + v, nil
		case OpPos:
			return "+" + v, nil
		case OpInvert:
			return "~" + v, nil
		case OpNot:
			return "not " + v, nil
		}
		return "", fmt.Errorf("unparse: unknown unary operator %d", t.Op)
	case *BoolOp:
		word := " and "
		if t.Op == OpOr {
			word = " or "
		}
		if len(t.Values) < 2 {
			return "", fmt.Errorf("unparse: boolean operation with %d operands", len(t.Values))
		}
		parts := make([]string, 0, len(t.Values))
		for _, v := range t.Values {
			s, err := u.operand(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, word), nil
	case *Compare:
		if len(t.Ops) == 0 || len(t.Ops) != len(t.Comparators) {
			return "", fmt.Errorf("unparse: malformed comparison")
		}
		l, err := u.operand(t.Left)
		if err != nil {
			return "", err
		}
		out := l
		for i, op := range t.Ops {
			text, ok := cmpOpText[op]
			if !ok {
				return "", fmt.Errorf("unparse: unknown comparison operator %d", op)
			}
			r, err := u.operand(t.Comparators[i])
			if err != nil {
				return "", err
			}
			out += " " + text + " " + r
		}
		return out, nil
	case *IfExp:
		body, err := u.operand(t.Body)
		if err != nil {
			return "", err
		}
		test, err := u.operand(t.Test)
		if err != nil {
			return "", err
		}
		orelse, err := u.operand(t.Orelse)
		if err != nil {
			return "", err
		}
		return body + " if " + test + " else " + orelse, nil
	}
	return "", fmt.Errorf("unparse: unknown expression %T", e)
}

// quotePy renders a string value as a single-quoted Python literal.
func quotePy(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("\\'")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		case 0:
			b.WriteString("\\0")
		default:
			if r < 32 {
				b.WriteString(fmt.Sprintf("\\x%02x", r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}
