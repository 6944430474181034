package engine

import (
	"sort"
	"strings"

	"github.com/benzoXdev/obfuspy/internal/pyast"
)

// Tracker records which names a program defines, uses and imports. It
// runs as a separate pass before any transformation, so the safety
// verdict for a name does not depend on statement order.
type Tracker struct {
	Defined   map[string]bool
	Used      map[string]bool
	Imported  map[string]bool
	InFString map[string]bool
	// Members are names bound inside a class body (methods, class
	// attributes). They are reachable through attribute access, which
	// renaming cannot follow, so they stay protected.
	Members map[string]bool
	// AttrUsed are names appearing after a dot anywhere in the program.
	AttrUsed map[string]bool
	// KwArgs are names used as keyword arguments at call sites. They
	// must keep matching the callee's parameter names, which renaming
	// cannot follow through a call.
	KwArgs map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		Defined:   make(map[string]bool),
		Used:      make(map[string]bool),
		Imported:  make(map[string]bool),
		InFString: make(map[string]bool),
		Members:   make(map[string]bool),
		AttrUsed:  make(map[string]bool),
		KwArgs:    make(map[string]bool),
	}
}

// Protected reports whether renaming name would risk breaking behavior:
// reserved identifiers, imported modules, names that resolve outside the
// program, and names referenced from inside f-strings (which the engine
// never rewrites).
func (t *Tracker) Protected(name string) bool {
	if isReservedName(name) {
		return true
	}
	if t.Imported[name] || t.InFString[name] {
		return true
	}
	if t.Members[name] || t.AttrUsed[name] || t.KwArgs[name] {
		return true
	}
	if t.Used[name] && !t.Defined[name] {
		return true
	}
	return false
}

// Undefined returns names that are used but never defined and are not
// builtins, sorted for stable diagnostics. These are either externals or
// genuine bugs in the input; either way they are reported, not touched.
func (t *Tracker) Undefined() []string {
	var out []string
	for name := range t.Used {
		if !t.Defined[name] && !t.Imported[name] && !isReservedName(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Collect walks the whole module once, recording definitions and uses.
func (t *Tracker) Collect(m *pyast.Module) {
	t.stmts(m.Body)
}

func (t *Tracker) stmts(body []pyast.Stmt) {
	for _, s := range body {
		t.stmt(s)
	}
}

func (t *Tracker) stmt(s pyast.Stmt) {
	switch n := s.(type) {
	case *pyast.FunctionDef:
		t.Defined[n.Name] = true
		for _, p := range n.Params {
			t.Defined[p.Name] = true
			if p.Default != nil {
				t.expr(p.Default)
			}
		}
		for _, d := range n.Decorators {
			t.expr(d)
		}
		t.stmts(n.Body)
	case *pyast.ClassDef:
		t.Defined[n.Name] = true
		for _, b := range n.Bases {
			t.expr(b)
		}
		for _, d := range n.Decorators {
			t.expr(d)
		}
		for _, member := range n.Body {
			switch m := member.(type) {
			case *pyast.FunctionDef:
				t.Members[m.Name] = true
			case *pyast.Assign:
				for _, target := range m.Targets {
					if name, ok := target.(*pyast.Name); ok {
						t.Members[name.ID] = true
					}
				}
			}
		}
		t.stmts(n.Body)
	case *pyast.Return:
		t.expr(n.Value)
	case *pyast.Assign:
		for _, target := range n.Targets {
			t.bind(target)
		}
		t.expr(n.Value)
	case *pyast.AugAssign:
		t.bind(n.Target)
		t.expr(n.Target)
		t.expr(n.Value)
	case *pyast.If:
		t.expr(n.Test)
		t.stmts(n.Body)
		t.stmts(n.Orelse)
	case *pyast.While:
		t.expr(n.Test)
		t.stmts(n.Body)
	case *pyast.For:
		t.bind(n.Target)
		t.expr(n.Iter)
		t.stmts(n.Body)
	case *pyast.Try:
		t.stmts(n.Body)
		for _, h := range n.Handlers {
			t.expr(h.Type)
			if h.Name != "" {
				t.Defined[h.Name] = true
			}
			t.stmts(h.Body)
		}
		t.stmts(n.Orelse)
		t.stmts(n.Finally)
	case *pyast.With:
		t.expr(n.Context)
		if n.As != nil {
			t.bind(n.As)
		}
		t.stmts(n.Body)
	case *pyast.Import:
		for _, a := range n.Names {
			t.importName(a)
		}
	case *pyast.ImportFrom:
		root := n.Module
		if i := strings.IndexByte(root, '.'); i >= 0 {
			root = root[:i]
		}
		t.Imported[root] = true
		for _, a := range n.Names {
			t.importName(a)
		}
	case *pyast.Global:
		for _, name := range n.Names {
			t.Defined[name] = true
		}
	case *pyast.Nonlocal:
		for _, name := range n.Names {
			t.Defined[name] = true
		}
	case *pyast.Raise:
		t.expr(n.Exc)
		t.expr(n.Cause)
	case *pyast.Assert:
		t.expr(n.Test)
		t.expr(n.Msg)
	case *pyast.Delete:
		for _, target := range n.Targets {
			t.expr(target)
		}
	case *pyast.ExprStmt:
		t.expr(n.Value)
	}
}

// bind records assignment targets as definitions; subscript and attribute
// targets also use their base value.
func (t *Tracker) bind(target pyast.Expr) {
	switch n := target.(type) {
	case *pyast.Name:
		t.Defined[n.ID] = true
	case *pyast.Tuple:
		for _, el := range n.Elts {
			t.bind(el)
		}
	case *pyast.Attribute:
		t.AttrUsed[n.Attr] = true
		t.expr(n.Value)
	case *pyast.Subscript:
		t.expr(n.Value)
		t.expr(n.Index)
	}
}

func (t *Tracker) importName(a pyast.ImportAlias) {
	if a.As != "" {
		t.Imported[a.As] = true
		return
	}
	root := a.Name
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	t.Imported[root] = true
}

func (t *Tracker) expr(e pyast.Expr) {
	switch n := e.(type) {
	case nil:
		return
	case *pyast.Name:
		t.Used[n.ID] = true
	case *pyast.FStringLit:
		for _, name := range fstringNames(n.Raw) {
			t.Used[name] = true
			t.InFString[name] = true
		}
	case *pyast.Tuple:
		for _, el := range n.Elts {
			t.expr(el)
		}
	case *pyast.List:
		for _, el := range n.Elts {
			t.expr(el)
		}
	case *pyast.Dict:
		for i := range n.Keys {
			t.expr(n.Keys[i])
			t.expr(n.Values[i])
		}
	case *pyast.Attribute:
		t.AttrUsed[n.Attr] = true
		t.expr(n.Value)
	case *pyast.Subscript:
		t.expr(n.Value)
		t.expr(n.Index)
	case *pyast.Slice:
		t.expr(n.Lo)
		t.expr(n.Hi)
	case *pyast.Call:
		t.expr(n.Func)
		for _, a := range n.Args {
			t.expr(a)
		}
		for _, kw := range n.Keywords {
			if kw.Name != "" {
				t.KwArgs[kw.Name] = true
			}
			t.expr(kw.Value)
		}
	case *pyast.BinOp:
		t.expr(n.Left)
		t.expr(n.Right)
	case *pyast.UnaryOp:
		t.expr(n.Operand)
	case *pyast.BoolOp:
		for _, v := range n.Values {
			t.expr(v)
		}
	case *pyast.Compare:
		t.expr(n.Left)
		for _, c := range n.Comparators {
			t.expr(c)
		}
	case *pyast.IfExp:
		t.expr(n.Test)
		t.expr(n.Body)
		t.expr(n.Orelse)
	}
}

// fstringNames extracts identifiers from the interpolation fields of an
// f-string body. Only the braced parts are scanned; literal text between
// them never holds a reference.
func fstringNames(raw string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				i++
				continue
			}
			if depth == 0 {
				start = i + 1
			}
			depth++
		case '}':
			if depth == 0 {
				if i+1 < len(raw) && raw[i+1] == '}' {
					i++
				}
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, identsIn(raw[start:i])...)
			}
		}
	}
	return out
}

func identsIn(field string) []string {
	var out []string
	i := 0
	for i < len(field) {
		b := field[i]
		if b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
			j := i + 1
			for j < len(field) {
				c := field[j]
				if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
					j++
					continue
				}
				break
			}
			out = append(out, field[i:j])
			i = j
			// Attribute accesses after a dot are not standalone names.
			for i < len(field) && field[i] == '.' {
				i++
				for i < len(field) {
					c := field[i]
					if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
						i++
						continue
					}
					break
				}
			}
			continue
		}
		i++
	}
	return out
}
