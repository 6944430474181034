package pyast

import "fmt"

// Parse lexes and parses src into a Module.
func Parse(src string) (*Module, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.program()
}

type parser struct {
	toks []Token
	i    int
}

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return Token{Type: EOF}
	}
	return p.toks[p.i]
}

func (p *parser) at(tt TokenType) bool { return p.peek().Type == tt }

func (p *parser) atAny(tts ...TokenType) bool {
	for _, tt := range tts {
		if p.peek().Type == tt {
			return true
		}
	}
	return false
}

func (p *parser) next() Token {
	t := p.peek()
	p.i++
	return t
}

func (p *parser) match(tt TokenType) bool {
	if p.at(tt) {
		p.i++
		return true
	}
	return false
}

func (p *parser) need(tt TokenType, msg string) (Token, error) {
	if p.at(tt) {
		return p.next(), nil
	}
	t := p.peek()
	return Token{}, &SyntaxError{Line: t.Line, Col: t.Col, Msg: msg}
}

func (p *parser) errHere(format string, args ...any) error {
	t := p.peek()
	return &SyntaxError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) program() (*Module, error) {
	m := &Module{}
	for !p.at(EOF) {
		if p.match(NEWLINE) {
			continue
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		m.Body = append(m.Body, stmts...)
	}
	return m, nil
}

// statement parses one logical statement line; a simple-statement line may
// hold several ';'-separated statements, hence the slice.
func (p *parser) statement() ([]Stmt, error) {
	switch p.peek().Type {
	case DEF, CLASS, AT:
		s, err := p.definition()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	case IF:
		s, err := p.ifStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	case WHILE:
		s, err := p.whileStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	case FOR:
		s, err := p.forStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	case TRY:
		s, err := p.tryStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	case WITH:
		s, err := p.withStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	}
	return p.simpleLine()
}

func (p *parser) simpleLine() ([]Stmt, error) {
	var out []Stmt
	for {
		s, err := p.simpleStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if !p.match(SEMI) {
			break
		}
		if p.atAny(NEWLINE, EOF) {
			break
		}
	}
	if !p.match(NEWLINE) && !p.at(EOF) {
		return nil, p.errHere("expected end of statement")
	}
	return out, nil
}

func (p *parser) simpleStmt() (Stmt, error) {
	switch p.peek().Type {
	case RETURN:
		p.next()
		if p.atAny(NEWLINE, SEMI, EOF) {
			return &Return{}, nil
		}
		v, err := p.exprList()
		if err != nil {
			return nil, err
		}
		return &Return{Value: v}, nil
	case PASS:
		p.next()
		return &Pass{}, nil
	case BREAK:
		p.next()
		return &Break{}, nil
	case CONTINUE:
		p.next()
		return &Continue{}, nil
	case RAISE:
		p.next()
		if p.atAny(NEWLINE, SEMI, EOF) {
			return &Raise{}, nil
		}
		exc, err := p.test()
		if err != nil {
			return nil, err
		}
		r := &Raise{Exc: exc}
		if p.match(FROM) {
			cause, err := p.test()
			if err != nil {
				return nil, err
			}
			r.Cause = cause
		}
		return r, nil
	case ASSERT:
		p.next()
		cond, err := p.test()
		if err != nil {
			return nil, err
		}
		a := &Assert{Test: cond}
		if p.match(COMMA) {
			msg, err := p.test()
			if err != nil {
				return nil, err
			}
			a.Msg = msg
		}
		return a, nil
	case GLOBAL, NONLOCAL:
		isGlobal := p.next().Type == GLOBAL
		names, err := p.nameList()
		if err != nil {
			return nil, err
		}
		if isGlobal {
			return &Global{Names: names}, nil
		}
		return &Nonlocal{Names: names}, nil
	case DEL:
		p.next()
		var targets []Expr
		for {
			t, err := p.test()
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
			if !p.match(COMMA) {
				break
			}
		}
		return &Delete{Targets: targets}, nil
	case IMPORT:
		return p.importStmt()
	case FROM:
		return p.importFromStmt()
	}
	return p.exprOrAssign()
}

func (p *parser) nameList() ([]string, error) {
	var names []string
	for {
		t, err := p.need(NAME, "expected identifier")
		if err != nil {
			return nil, err
		}
		names = append(names, t.Lit)
		if !p.match(COMMA) {
			return names, nil
		}
	}
}

func (p *parser) dottedName() (string, error) {
	t, err := p.need(NAME, "expected module name")
	if err != nil {
		return "", err
	}
	name := t.Lit
	for p.match(DOT) {
		t, err := p.need(NAME, "expected identifier after '.'")
		if err != nil {
			return "", err
		}
		name += "." + t.Lit
	}
	return name, nil
}

func (p *parser) importStmt() (Stmt, error) {
	p.next() // import
	imp := &Import{}
	for {
		mod, err := p.dottedName()
		if err != nil {
			return nil, err
		}
		alias := ImportAlias{Name: mod}
		if p.match(AS) {
			t, err := p.need(NAME, "expected alias after 'as'")
			if err != nil {
				return nil, err
			}
			alias.As = t.Lit
		}
		imp.Names = append(imp.Names, alias)
		if !p.match(COMMA) {
			return imp, nil
		}
	}
}

func (p *parser) importFromStmt() (Stmt, error) {
	p.next() // from
	mod, err := p.dottedName()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(IMPORT, "expected 'import'"); err != nil {
		return nil, err
	}
	if p.at(STAR) {
		return nil, p.errHere("wildcard imports are not supported")
	}
	parenthesized := p.match(LPAREN)
	imp := &ImportFrom{Module: mod}
	for {
		t, err := p.need(NAME, "expected imported name")
		if err != nil {
			return nil, err
		}
		alias := ImportAlias{Name: t.Lit}
		if p.match(AS) {
			a, err := p.need(NAME, "expected alias after 'as'")
			if err != nil {
				return nil, err
			}
			alias.As = a.Lit
		}
		imp.Names = append(imp.Names, alias)
		if !p.match(COMMA) {
			break
		}
		if parenthesized && p.at(RPAREN) {
			break
		}
	}
	if parenthesized {
		if _, err := p.need(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
	}
	return imp, nil
}

func (p *parser) exprOrAssign() (Stmt, error) {
	first, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if op, ok := augOps[p.peek().Type]; ok {
		p.next()
		value, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if !assignable(first) {
			return nil, p.errHere("illegal target for augmented assignment")
		}
		return &AugAssign{Target: first, Op: op, Value: value}, nil
	}
	if !p.at(ASSIGN) {
		return &ExprStmt{Value: first}, nil
	}
	targets := []Expr{first}
	var value Expr
	for p.match(ASSIGN) {
		e, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if p.at(ASSIGN) {
			targets = append(targets, e)
			continue
		}
		value = e
	}
	for _, t := range targets {
		if !assignable(t) {
			return nil, p.errHere("illegal assignment target")
		}
	}
	return &Assign{Targets: targets, Value: value}, nil
}

var augOps = map[TokenType]BinOpKind{
	PLUSEQ:    OpAdd,
	MINUSEQ:   OpSub,
	STAREQ:    OpMul,
	SLASHEQ:   OpDiv,
	DSLASHEQ:  OpFloorDiv,
	PERCENTEQ: OpMod,
	DSTAREQ:   OpPow,
}

func assignable(e Expr) bool {
	switch t := e.(type) {
	case *Name, *Attribute, *Subscript:
		return true
	case *Tuple:
		for _, el := range t.Elts {
			if !assignable(el) {
				return false
			}
		}
		return len(t.Elts) > 0
	}
	return false
}

// --- Compound statements ---

func (p *parser) suite() ([]Stmt, error) {
	if _, err := p.need(COLON, "expected ':'"); err != nil {
		return nil, err
	}
	if !p.match(NEWLINE) {
		// Inline suite: if x: return 1
		return p.simpleLine()
	}
	if _, err := p.need(INDENT, "expected an indented block"); err != nil {
		return nil, err
	}
	var body []Stmt
	for !p.at(DEDENT) && !p.at(EOF) {
		if p.match(NEWLINE) {
			continue
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	if _, err := p.need(DEDENT, "expected dedent"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *parser) definition() (Stmt, error) {
	var decorators []Expr
	for p.match(AT) {
		d, err := p.test()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
		if _, err := p.need(NEWLINE, "expected newline after decorator"); err != nil {
			return nil, err
		}
	}
	switch p.peek().Type {
	case DEF:
		return p.funcDef(decorators)
	case CLASS:
		return p.classDef(decorators)
	}
	return nil, p.errHere("expected 'def' or 'class' after decorator")
}

func (p *parser) funcDef(decorators []Expr) (Stmt, error) {
	p.next() // def
	name, err := p.need(NAME, "expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LPAREN, "expected '('"); err != nil {
		return nil, err
	}
	var params []Param
	for !p.at(RPAREN) {
		t, err := p.need(NAME, "expected parameter name")
		if err != nil {
			return nil, err
		}
		prm := Param{Name: t.Lit}
		if p.match(COLON) {
			// Parameter annotations are parsed and dropped.
			if _, err := p.test(); err != nil {
				return nil, err
			}
		}
		if p.match(ASSIGN) {
			d, err := p.test()
			if err != nil {
				return nil, err
			}
			prm.Default = d
		}
		params = append(params, prm)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN, "expected ')'"); err != nil {
		return nil, err
	}
	if p.match(ARROW) {
		// Return annotations are parsed and dropped.
		if _, err := p.test(); err != nil {
			return nil, err
		}
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	return &FunctionDef{Name: name.Lit, Params: params, Body: body, Decorators: decorators}, nil
}

func (p *parser) classDef(decorators []Expr) (Stmt, error) {
	p.next() // class
	name, err := p.need(NAME, "expected class name")
	if err != nil {
		return nil, err
	}
	var bases []Expr
	if p.match(LPAREN) {
		for !p.at(RPAREN) {
			b, err := p.test()
			if err != nil {
				return nil, err
			}
			bases = append(bases, b)
			if !p.match(COMMA) {
				break
			}
		}
		if _, err := p.need(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	return &ClassDef{Name: name.Lit, Bases: bases, Body: body, Decorators: decorators}, nil
}

func (p *parser) ifStmt() (Stmt, error) {
	p.next() // if / elif
	test, err := p.test()
	if err != nil {
		return nil, err
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	node := &If{Test: test, Body: body}
	switch p.peek().Type {
	case ELIF:
		nested, err := p.ifStmt()
		if err != nil {
			return nil, err
		}
		node.Orelse = []Stmt{nested}
	case ELSE:
		p.next()
		orelse, err := p.suite()
		if err != nil {
			return nil, err
		}
		node.Orelse = orelse
	}
	return node, nil
}

func (p *parser) whileStmt() (Stmt, error) {
	p.next()
	test, err := p.test()
	if err != nil {
		return nil, err
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	return &While{Test: test, Body: body}, nil
}

func (p *parser) forStmt() (Stmt, error) {
	p.next()
	target, err := p.targetList()
	if err != nil {
		return nil, err
	}
	if !assignable(target) {
		return nil, p.errHere("illegal for-loop target")
	}
	if _, err := p.need(IN, "expected 'in'"); err != nil {
		return nil, err
	}
	iter, err := p.exprList()
	if err != nil {
		return nil, err
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	return &For{Target: target, Iter: iter, Body: body}, nil
}

func (p *parser) tryStmt() (Stmt, error) {
	p.next()
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	node := &Try{Body: body}
	for p.at(EXCEPT) {
		p.next()
		h := ExceptHandler{}
		if !p.at(COLON) {
			typ, err := p.test()
			if err != nil {
				return nil, err
			}
			h.Type = typ
			if p.match(AS) {
				n, err := p.need(NAME, "expected name after 'as'")
				if err != nil {
					return nil, err
				}
				h.Name = n.Lit
			}
		}
		hb, err := p.suite()
		if err != nil {
			return nil, err
		}
		h.Body = hb
		node.Handlers = append(node.Handlers, h)
	}
	if p.match(ELSE) {
		orelse, err := p.suite()
		if err != nil {
			return nil, err
		}
		node.Orelse = orelse
	}
	if p.match(FINALLY) {
		fin, err := p.suite()
		if err != nil {
			return nil, err
		}
		node.Finally = fin
	}
	if len(node.Handlers) == 0 && len(node.Finally) == 0 {
		return nil, p.errHere("expected 'except' or 'finally'")
	}
	return node, nil
}

func (p *parser) withStmt() (Stmt, error) {
	p.next()
	ctx, err := p.test()
	if err != nil {
		return nil, err
	}
	node := &With{Context: ctx}
	if p.match(AS) {
		target, err := p.test()
		if err != nil {
			return nil, err
		}
		if !assignable(target) {
			return nil, p.errHere("illegal with-target")
		}
		node.As = target
	}
	body, err := p.suite()
	if err != nil {
		return nil, err
	}
	node.Body = body
	return node, nil
}

// --- Expressions ---

// exprList parses test (',' test)*; two or more elements form a Tuple.
func (p *parser) exprList() (Expr, error) {
	first, err := p.test()
	if err != nil {
		return nil, err
	}
	if !p.at(COMMA) {
		return first, nil
	}
	elts := []Expr{first}
	for p.match(COMMA) {
		if p.atAny(NEWLINE, SEMI, EOF, ASSIGN, RPAREN, RBRACKET, RBRACE, COLON) {
			break // trailing comma
		}
		e, err := p.test()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return &Tuple{Elts: elts}, nil
}

// targetList parses a for-loop target: comma-separated postfix-level
// expressions. Comparison operators are excluded here so the 'in'
// keyword stays the separator between target and iterable.
func (p *parser) targetList() (Expr, error) {
	first, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if !p.at(COMMA) {
		return first, nil
	}
	elts := []Expr{first}
	for p.match(COMMA) {
		if p.at(IN) {
			break // trailing comma
		}
		e, err := p.postfix()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return &Tuple{Elts: elts}, nil
}

func (p *parser) test() (Expr, error) {
	body, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if !p.at(IF) {
		return body, nil
	}
	p.next()
	cond, err := p.orTest()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(ELSE, "expected 'else' in conditional expression"); err != nil {
		return nil, err
	}
	orelse, err := p.test()
	if err != nil {
		return nil, err
	}
	return &IfExp{Test: cond, Body: body, Orelse: orelse}, nil
}

func (p *parser) orTest() (Expr, error) {
	left, err := p.andTest()
	if err != nil {
		return nil, err
	}
	if !p.at(OR) {
		return left, nil
	}
	values := []Expr{left}
	for p.match(OR) {
		v, err := p.andTest()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &BoolOp{Op: OpOr, Values: values}, nil
}

func (p *parser) andTest() (Expr, error) {
	left, err := p.notTest()
	if err != nil {
		return nil, err
	}
	if !p.at(AND) {
		return left, nil
	}
	values := []Expr{left}
	for p.match(AND) {
		v, err := p.notTest()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &BoolOp{Op: OpAnd, Values: values}, nil
}

func (p *parser) notTest() (Expr, error) {
	if p.match(NOT) {
		operand, err := p.notTest()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: OpNot, Operand: operand}, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (Expr, error) {
	left, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	var ops []CmpOpKind
	var comps []Expr
	for {
		var op CmpOpKind
		switch p.peek().Type {
		case EQ:
			op = CmpEq
		case NE:
			op = CmpNe
		case LT:
			op = CmpLt
		case LE:
			op = CmpLe
		case GT:
			op = CmpGt
		case GE:
			op = CmpGe
		case IS:
			p.next()
			if p.match(NOT) {
				op = CmpIsNot
			} else {
				op = CmpIs
			}
			goto haveOp
		case IN:
			op = CmpIn
		case NOT:
			p.next()
			if _, err := p.need(IN, "expected 'in' after 'not'"); err != nil {
				return nil, err
			}
			op = CmpNotIn
			goto haveOp
		default:
			if len(ops) == 0 {
				return left, nil
			}
			return &Compare{Left: left, Ops: ops, Comparators: comps}, nil
		}
		p.next()
	haveOp:
		right, err := p.bitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comps = append(comps, right)
	}
}

func (p *parser) bitOr() (Expr, error) {
	return p.binaryLevel(p.bitXor, map[TokenType]BinOpKind{PIPE: OpBitOr})
}

func (p *parser) bitXor() (Expr, error) {
	return p.binaryLevel(p.bitAnd, map[TokenType]BinOpKind{CARET: OpBitXor})
}

func (p *parser) bitAnd() (Expr, error) {
	return p.binaryLevel(p.shift, map[TokenType]BinOpKind{AMP: OpBitAnd})
}

func (p *parser) shift() (Expr, error) {
	return p.binaryLevel(p.arith, map[TokenType]BinOpKind{LSHIFT: OpLShift, RSHIFT: OpRShift})
}

func (p *parser) arith() (Expr, error) {
	return p.binaryLevel(p.term, map[TokenType]BinOpKind{PLUS: OpAdd, MINUS: OpSub})
}

func (p *parser) term() (Expr, error) {
	return p.binaryLevel(p.factor, map[TokenType]BinOpKind{
		STAR: OpMul, SLASH: OpDiv, DSLASH: OpFloorDiv, PERCENT: OpMod,
	})
}

func (p *parser) binaryLevel(sub func() (Expr, error), ops map[TokenType]BinOpKind) (Expr, error) {
	left, err := sub()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := sub()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Left: left, Op: op, Right: right}
	}
}

func (p *parser) factor() (Expr, error) {
	switch p.peek().Type {
	case MINUS:
		p.next()
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: OpNeg, Operand: operand}, nil
	case PLUS:
		p.next()
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: OpPos, Operand: operand}, nil
	case TILDE:
		p.next()
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: OpInvert, Operand: operand}, nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.match(DSTAR) {
		exp, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &BinOp{Left: base, Op: OpPow, Right: exp}, nil
	}
	return base, nil
}

func (p *parser) postfix() (Expr, error) {
	e, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case LPAREN:
			p.next()
			call := &Call{Func: e}
			for !p.at(RPAREN) {
				if p.at(NAME) && p.peekNextIs(ASSIGN) {
					name := p.next()
					p.next() // =
					v, err := p.test()
					if err != nil {
						return nil, err
					}
					call.Keywords = append(call.Keywords, Keyword{Name: name.Lit, Value: v})
				} else {
					a, err := p.test()
					if err != nil {
						return nil, err
					}
					call.Args = append(call.Args, a)
				}
				if !p.match(COMMA) {
					break
				}
			}
			if _, err := p.need(RPAREN, "expected ')'"); err != nil {
				return nil, err
			}
			e = call
		case DOT:
			p.next()
			attr, err := p.need(NAME, "expected attribute name")
			if err != nil {
				return nil, err
			}
			e = &Attribute{Value: e, Attr: attr.Lit}
		case LBRACKET:
			p.next()
			idx, err := p.subscriptIndex()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(RBRACKET, "expected ']'"); err != nil {
				return nil, err
			}
			e = &Subscript{Value: e, Index: idx}
		default:
			return e, nil
		}
	}
}

func (p *parser) peekNextIs(tt TokenType) bool {
	if p.i+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.i+1].Type == tt
}

// subscriptIndex parses a plain index or a two-bound slice.
func (p *parser) subscriptIndex() (Expr, error) {
	var lo Expr
	var err error
	if !p.at(COLON) {
		lo, err = p.test()
		if err != nil {
			return nil, err
		}
	}
	if !p.match(COLON) {
		if lo == nil {
			return nil, p.errHere("expected subscript expression")
		}
		return lo, nil
	}
	sl := &Slice{Lo: lo}
	if !p.at(RBRACKET) {
		hi, err := p.test()
		if err != nil {
			return nil, err
		}
		sl.Hi = hi
	}
	if p.at(COLON) {
		return nil, p.errHere("extended slices are not supported")
	}
	return sl, nil
}

func (p *parser) atom() (Expr, error) {
	t := p.peek()
	switch t.Type {
	case NAME:
		p.next()
		return &Name{ID: t.Lit}, nil
	case INT:
		p.next()
		return &IntLit{Value: t.Int}, nil
	case FLOAT:
		p.next()
		return &FloatLit{Raw: t.Lit}, nil
	case STRING:
		p.next()
		value := t.Lit
		// Adjacent string literals concatenate.
		for p.at(STRING) {
			value += p.next().Lit
		}
		return &StringLit{Value: value}, nil
	case FSTRING:
		p.next()
		return &FStringLit{Raw: t.Lit, Quote: t.Quote}, nil
	case TRUE:
		p.next()
		return &BoolLit{Value: true}, nil
	case FALSE:
		p.next()
		return &BoolLit{Value: false}, nil
	case NONE:
		p.next()
		return &NoneLit{}, nil
	case LPAREN:
		p.next()
		if p.match(RPAREN) {
			return &Tuple{}, nil
		}
		e, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		return e, nil
	case LBRACKET:
		p.next()
		lst := &List{}
		for !p.at(RBRACKET) {
			e, err := p.test()
			if err != nil {
				return nil, err
			}
			lst.Elts = append(lst.Elts, e)
			if !p.match(COMMA) {
				break
			}
		}
		if _, err := p.need(RBRACKET, "expected ']'"); err != nil {
			return nil, err
		}
		return lst, nil
	case LBRACE:
		p.next()
		d := &Dict{}
		for !p.at(RBRACE) {
			k, err := p.test()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(COLON, "expected ':' in dict literal"); err != nil {
				return nil, err
			}
			v, err := p.test()
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, v)
			if !p.match(COMMA) {
				break
			}
		}
		if _, err := p.need(RBRACE, "expected '}'"); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, p.errHere("unexpected token")
}
