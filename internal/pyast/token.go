package pyast

import "fmt"

type TokenType int

const (
	EOF TokenType = iota
	NEWLINE
	INDENT
	DEDENT

	NAME
	INT
	FLOAT
	STRING  // plain string literal, value already unescaped
	FSTRING // f-string, raw content kept verbatim

	// Keywords
	DEF
	CLASS
	IF
	ELIF
	ELSE
	WHILE
	FOR
	IN
	TRY
	EXCEPT
	FINALLY
	WITH
	AS
	IMPORT
	FROM
	GLOBAL
	NONLOCAL
	RETURN
	BREAK
	CONTINUE
	PASS
	RAISE
	ASSERT
	DEL
	AND
	OR
	NOT
	IS
	NONE
	TRUE
	FALSE

	// Operators and delimiters
	PLUS     // +
	MINUS    // -
	STAR     // *
	DSTAR    // **
	SLASH    // /
	DSLASH   // //
	PERCENT  // %
	AMP      // &
	PIPE     // |
	CARET    // ^
	TILDE    // ~
	LSHIFT   // <<
	RSHIFT   // >>
	LT       // <
	GT       // >
	LE       // <=
	GE       // >=
	EQ       // ==
	NE       // !=
	ASSIGN   // =
	PLUSEQ   // +=
	MINUSEQ  // -=
	STAREQ   // *=
	SLASHEQ  // /=
	DSLASHEQ // //=
	PERCENTEQ
	DSTAREQ
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	COMMA    // ,
	COLON    // :
	SEMI     // ;
	DOT      // .
	AT       // @
	ARROW    // ->
)

var keywords = map[string]TokenType{
	"def":      DEF,
	"class":    CLASS,
	"if":       IF,
	"elif":     ELIF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"try":      TRY,
	"except":   EXCEPT,
	"finally":  FINALLY,
	"with":     WITH,
	"as":       AS,
	"import":   IMPORT,
	"from":     FROM,
	"global":   GLOBAL,
	"nonlocal": NONLOCAL,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"pass":     PASS,
	"raise":    RAISE,
	"assert":   ASSERT,
	"del":      DEL,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"is":       IS,
	"None":     NONE,
	"True":     TRUE,
	"False":    FALSE,
}

// Token carries the literal for NAME/INT/FLOAT/STRING/FSTRING tokens.
// For FSTRING, Lit is the raw content between the quotes and Quote is the
// quote character used, so the literal can be re-emitted verbatim.
type Token struct {
	Type  TokenType
	Lit   string
	Int   int64
	Quote byte
	Line  int
	Col   int
}

// SyntaxError reports a lexing or parsing failure with a source position.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
}
