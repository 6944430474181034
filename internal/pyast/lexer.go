package pyast

import (
	"strconv"
	"strings"
)

// Lexer scans Python source into a token stream. Indentation is
// significant: the scanner synthesizes INDENT/DEDENT tokens from leading
// whitespace, suppressing them (and NEWLINE) inside bracket pairs.
type Lexer struct {
	src        string
	cur        int
	line       int
	col        int
	parenDepth int
	indents    []int
	toks       []Token
}

func NewLexer(src string) *Lexer {
	// Normalize line endings once so column math stays simple.
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return &Lexer{src: src, line: 1, indents: []int{0}}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekAt(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	b := l.src[l.cur]
	l.cur++
	if b == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return b
}

func (l *Lexer) err(msg string) error {
	return &SyntaxError{Line: l.line, Col: l.col, Msg: msg}
}

func (l *Lexer) add(tt TokenType) {
	l.toks = append(l.toks, Token{Type: tt, Line: l.line, Col: l.col})
}

func (l *Lexer) addLit(tt TokenType, lit string) {
	l.toks = append(l.toks, Token{Type: tt, Lit: lit, Line: l.line, Col: l.col})
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b >= 0x80
}

func isIdentPart(b byte) bool { return isIdentStart(b) || isDigit(b) }

// Scan tokenizes the whole source. On failure the partial token list is
// discarded and a *SyntaxError is returned.
func (l *Lexer) Scan() ([]Token, error) {
	for !l.isAtEnd() {
		if l.parenDepth == 0 && l.atLineStart() {
			if done, err := l.scanIndentation(); err != nil {
				return nil, err
			} else if done {
				break
			}
		}
		if l.isAtEnd() {
			break
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
	// Close the final logical line and any open indentation levels.
	if n := len(l.toks); n > 0 && l.toks[n-1].Type != NEWLINE {
		l.add(NEWLINE)
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.add(DEDENT)
	}
	l.add(EOF)
	return l.toks, nil
}

func (l *Lexer) atLineStart() bool { return l.col == 0 }

// scanIndentation measures leading whitespace of the next logical line,
// skipping blank and comment-only lines, and emits INDENT/DEDENT.
// Returns true when only EOF remains.
func (l *Lexer) scanIndentation() (bool, error) {
	for {
		width := 0
		i := l.cur
		for i < len(l.src) {
			switch l.src[i] {
			case ' ':
				width++
			case '\t':
				width += 8 - width%8
			default:
				goto measured
			}
			i++
		}
	measured:
		if i >= len(l.src) {
			l.cur = i
			return true, nil
		}
		if l.src[i] == '\n' {
			// Blank line: consume and restart.
			for l.cur <= i {
				l.advance()
			}
			continue
		}
		if l.src[i] == '#' {
			// Comment-only line: skip to end of line.
			for l.cur < len(l.src) && l.src[l.cur] != '\n' {
				l.advance()
			}
			if !l.isAtEnd() {
				l.advance()
			}
			continue
		}
		// Real content: consume the whitespace and emit indent tokens.
		for l.cur < i {
			l.advance()
		}
		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			l.add(INDENT)
		case width < top:
			for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
				l.indents = l.indents[:len(l.indents)-1]
				l.add(DEDENT)
			}
			if l.indents[len(l.indents)-1] != width {
				return false, l.err("unindent does not match any outer indentation level")
			}
		}
		return false, nil
	}
}

func (l *Lexer) scanToken() error {
	b := l.peek()
	switch {
	case b == ' ' || b == '\t':
		l.advance()
		return nil
	case b == '#':
		for !l.isAtEnd() && l.peek() != '\n' {
			l.advance()
		}
		return nil
	case b == '\n':
		l.advance()
		if l.parenDepth == 0 {
			if n := len(l.toks); n > 0 {
				last := l.toks[n-1].Type
				if last != NEWLINE && last != INDENT && last != DEDENT {
					l.add(NEWLINE)
				}
			}
		}
		return nil
	case b == '\\' && l.peekAt(1) == '\n':
		// Explicit line continuation. Leading whitespace of the next
		// physical line is part of the same logical line, not indentation.
		l.advance()
		l.advance()
		for l.peek() == ' ' || l.peek() == '\t' {
			l.advance()
		}
		return nil
	case isDigit(b) || (b == '.' && isDigit(l.peekAt(1))):
		return l.scanNumber()
	case b == '"' || b == '\'':
		return l.scanString(0)
	case isIdentStart(b):
		return l.scanIdentifier()
	}
	return l.scanOperator()
}

func (l *Lexer) scanIdentifier() error {
	start := l.cur
	for !l.isAtEnd() && isIdentPart(l.peek()) {
		l.advance()
	}
	word := l.src[start:l.cur]
	// String prefixes: f'...' (interpolated) and r'...' (raw).
	if (word == "f" || word == "F") && (l.peek() == '\'' || l.peek() == '"') {
		return l.scanString('f')
	}
	if (word == "r" || word == "R") && (l.peek() == '\'' || l.peek() == '"') {
		return l.scanString('r')
	}
	if kw, ok := keywords[word]; ok {
		l.add(kw)
		return nil
	}
	l.addLit(NAME, word)
	return nil
}

func (l *Lexer) scanNumber() error {
	start := l.cur
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for !l.isAtEnd() && isHexDigit(l.peek()) {
			l.advance()
		}
		n, err := strconv.ParseInt(l.src[start:l.cur], 0, 64)
		if err != nil {
			return l.err("invalid hex literal")
		}
		l.toks = append(l.toks, Token{Type: INT, Int: n, Lit: l.src[start:l.cur], Line: l.line, Col: l.col})
		return nil
	}
	isFloat := false
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			isFloat = true
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for !l.isAtEnd() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	text := l.src[start:l.cur]
	if isFloat {
		l.addLit(FLOAT, text)
		return nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return l.err("integer literal out of range")
	}
	l.toks = append(l.toks, Token{Type: INT, Int: n, Lit: text, Line: l.line, Col: l.col})
	return nil
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// scanString handles single- and triple-quoted strings. prefix is 0 for a
// plain string, 'f' for an f-string (content kept raw) or 'r' (no escape
// processing). Triple-quoted f-strings are not supported.
func (l *Lexer) scanString(prefix byte) error {
	quote := l.advance()
	triple := false
	if l.peek() == quote && l.peekAt(1) == quote {
		if prefix == 'f' {
			return l.err("triple-quoted f-strings are not supported")
		}
		triple = true
		l.advance()
		l.advance()
	}
	var sb strings.Builder
	for {
		if l.isAtEnd() {
			return l.err("unterminated string literal")
		}
		b := l.peek()
		if !triple && b == '\n' {
			return l.err("newline in string literal")
		}
		if b == quote {
			if !triple {
				l.advance()
				break
			}
			if l.peekAt(1) == quote && l.peekAt(2) == quote {
				l.advance()
				l.advance()
				l.advance()
				break
			}
			sb.WriteByte(l.advance())
			continue
		}
		if b == '\\' && prefix != 'r' {
			if prefix == 'f' {
				// Raw capture: keep the escape untouched.
				sb.WriteByte(l.advance())
				if !l.isAtEnd() {
					sb.WriteByte(l.advance())
				}
				continue
			}
			l.advance()
			if l.isAtEnd() {
				return l.err("unterminated string escape")
			}
			e := l.advance()
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '\\', '\'', '"':
				sb.WriteByte(e)
			case 'x':
				if l.cur+1 >= len(l.src) || !isHexDigit(l.peek()) || !isHexDigit(l.peekAt(1)) {
					return l.err("malformed \\x escape")
				}
				h := string(l.advance()) + string(l.advance())
				v, _ := strconv.ParseUint(h, 16, 8)
				sb.WriteByte(byte(v))
			case '\n':
				// Escaped newline inside a string continues the literal.
			default:
				// Python keeps unknown escapes verbatim.
				sb.WriteByte('\\')
				sb.WriteByte(e)
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
	if prefix == 'f' {
		l.toks = append(l.toks, Token{Type: FSTRING, Lit: sb.String(), Quote: quote, Line: l.line, Col: l.col})
		return nil
	}
	l.addLit(STRING, sb.String())
	return nil
}

func (l *Lexer) scanOperator() error {
	b := l.advance()
	two := func(next byte, tt2, tt1 TokenType) {
		if l.peek() == next {
			l.advance()
			l.add(tt2)
		} else {
			l.add(tt1)
		}
	}
	switch b {
	case '(':
		l.parenDepth++
		l.add(LPAREN)
	case ')':
		l.parenDepth--
		l.add(RPAREN)
	case '[':
		l.parenDepth++
		l.add(LBRACKET)
	case ']':
		l.parenDepth--
		l.add(RBRACKET)
	case '{':
		l.parenDepth++
		l.add(LBRACE)
	case '}':
		l.parenDepth--
		l.add(RBRACE)
	case ',':
		l.add(COMMA)
	case ':':
		l.add(COLON)
	case ';':
		l.add(SEMI)
	case '.':
		l.add(DOT)
	case '@':
		l.add(AT)
	case '~':
		l.add(TILDE)
	case '+':
		two('=', PLUSEQ, PLUS)
	case '-':
		if l.peek() == '>' {
			l.advance()
			l.add(ARROW)
		} else {
			two('=', MINUSEQ, MINUS)
		}
	case '*':
		if l.peek() == '*' {
			l.advance()
			two('=', DSTAREQ, DSTAR)
		} else {
			two('=', STAREQ, STAR)
		}
	case '/':
		if l.peek() == '/' {
			l.advance()
			two('=', DSLASHEQ, DSLASH)
		} else {
			two('=', SLASHEQ, SLASH)
		}
	case '%':
		two('=', PERCENTEQ, PERCENT)
	case '&':
		l.add(AMP)
	case '|':
		l.add(PIPE)
	case '^':
		l.add(CARET)
	case '<':
		if l.peek() == '<' {
			l.advance()
			l.add(LSHIFT)
		} else {
			two('=', LE, LT)
		}
	case '>':
		if l.peek() == '>' {
			l.advance()
			l.add(RSHIFT)
		} else {
			two('=', GE, GT)
		}
	case '=':
		two('=', EQ, ASSIGN)
	case '!':
		if l.peek() == '=' {
			l.advance()
			l.add(NE)
		} else {
			return l.err("unexpected character '!'")
		}
	default:
		return l.err("unexpected character " + strconv.QuoteRune(rune(b)))
	}
	return nil
}
