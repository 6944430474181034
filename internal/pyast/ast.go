// Package pyast provides a lexer, recursive-descent parser, AST and
// unparser for the Python subset the obfuscation engine operates on.
// The tree is fully owned: every node is reachable exactly once and
// rebuilding a parent never aliases children of the old tree.
package pyast

type Node interface{ node() }

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// Module is the root of a parsed program.
type Module struct {
	Body []Stmt
}

func (*Module) node() {}

// --- Statements ---

type Param struct {
	Name    string
	Default Expr // nil when the parameter has no default
}

type FunctionDef struct {
	Name       string
	Params     []Param
	Body       []Stmt
	Decorators []Expr
}

type ClassDef struct {
	Name       string
	Bases      []Expr
	Body       []Stmt
	Decorators []Expr
}

type Return struct {
	Value Expr // nil for a bare return
}

// Assign covers chained assignment: a = b = value.
type Assign struct {
	Targets []Expr
	Value   Expr
}

type AugAssign struct {
	Target Expr
	Op     BinOpKind
	Value  Expr
}

type If struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt // an elif chain nests another *If here
}

type While struct {
	Test Expr
	Body []Stmt
}

type For struct {
	Target Expr
	Iter   Expr
	Body   []Stmt
}

type ExceptHandler struct {
	Type Expr   // nil for a bare except
	Name string // "" when no "as name"
	Body []Stmt
}

type Try struct {
	Body     []Stmt
	Handlers []ExceptHandler
	Orelse   []Stmt
	Finally  []Stmt
}

type With struct {
	Context Expr
	As      Expr // nil when no "as target"
	Body    []Stmt
}

type ImportAlias struct {
	Name string
	As   string // "" when not aliased
}

type Import struct {
	Names []ImportAlias
}

type ImportFrom struct {
	Module string
	Names  []ImportAlias
}

type Global struct{ Names []string }

type Nonlocal struct{ Names []string }

type Raise struct {
	Exc   Expr // nil for a bare raise
	Cause Expr // raise X from Y
}

type Assert struct {
	Test Expr
	Msg  Expr // nil when no message
}

type Delete struct{ Targets []Expr }

type Pass struct{}

type Break struct{}

type Continue struct{}

type ExprStmt struct{ Value Expr }

func (*FunctionDef) node() {}
func (*ClassDef) node()    {}
func (*Return) node()      {}
func (*Assign) node()      {}
func (*AugAssign) node()   {}
func (*If) node()          {}
func (*While) node()       {}
func (*For) node()         {}
func (*Try) node()         {}
func (*With) node()        {}
func (*Import) node()      {}
func (*ImportFrom) node()  {}
func (*Global) node()      {}
func (*Nonlocal) node()    {}
func (*Raise) node()       {}
func (*Assert) node()      {}
func (*Delete) node()      {}
func (*Pass) node()        {}
func (*Break) node()       {}
func (*Continue) node()    {}
func (*ExprStmt) node()    {}

func (*FunctionDef) stmt() {}
func (*ClassDef) stmt()    {}
func (*Return) stmt()      {}
func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*If) stmt()          {}
func (*While) stmt()       {}
func (*For) stmt()         {}
func (*Try) stmt()         {}
func (*With) stmt()        {}
func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
func (*Global) stmt()      {}
func (*Nonlocal) stmt()    {}
func (*Raise) stmt()       {}
func (*Assert) stmt()      {}
func (*Delete) stmt()      {}
func (*Pass) stmt()        {}
func (*Break) stmt()       {}
func (*Continue) stmt()    {}
func (*ExprStmt) stmt()    {}

// --- Expressions ---

type Name struct{ ID string }

type StringLit struct{ Value string }

// FStringLit keeps the raw text between the quotes verbatim; interpolated
// expressions inside are never rewritten, only scanned for name uses.
type FStringLit struct {
	Raw   string
	Quote byte
}

type IntLit struct{ Value int64 }

// FloatLit keeps the source spelling so regeneration is exact.
type FloatLit struct{ Raw string }

type BoolLit struct{ Value bool }

type NoneLit struct{}

type Tuple struct{ Elts []Expr }

type List struct{ Elts []Expr }

type Dict struct {
	Keys   []Expr
	Values []Expr
}

type Attribute struct {
	Value Expr
	Attr  string
}

type Subscript struct {
	Value Expr
	Index Expr // may be *Slice
}

type Slice struct {
	Lo Expr // nil for open bound
	Hi Expr
}

type Keyword struct {
	Name  string
	Value Expr
}

type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLShift
	OpRShift
)

var binOpText = map[BinOpKind]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpFloorDiv: "//",
	OpMod: "%", OpPow: "**", OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^",
	OpLShift: "<<", OpRShift: ">>",
}

type BinOp struct {
	Left  Expr
	Op    BinOpKind
	Right Expr
}

type UnaryOpKind int

const (
	OpNeg UnaryOpKind = iota
	OpPos
	OpInvert
	OpNot
)

type UnaryOp struct {
	Op      UnaryOpKind
	Operand Expr
}

type BoolOpKind int

const (
	OpAnd BoolOpKind = iota
	OpOr
)

type BoolOp struct {
	Op     BoolOpKind
	Values []Expr
}

type CmpOpKind int

const (
	CmpEq CmpOpKind = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpIs
	CmpIsNot
	CmpIn
	CmpNotIn
)

var cmpOpText = map[CmpOpKind]string{
	CmpEq: "==", CmpNe: "!=", CmpLt: "<", CmpLe: "<=", CmpGt: ">",
	CmpGe: ">=", CmpIs: "is", CmpIsNot: "is not", CmpIn: "in", CmpNotIn: "not in",
}

// Compare supports chaining: a < b <= c.
type Compare struct {
	Left        Expr
	Ops         []CmpOpKind
	Comparators []Expr
}

// IfExp is the conditional expression: body if test else orelse.
type IfExp struct {
	Test   Expr
	Body   Expr
	Orelse Expr
}

func (*Name) node()       {}
func (*StringLit) node()  {}
func (*FStringLit) node() {}
func (*IntLit) node()     {}
func (*FloatLit) node()   {}
func (*BoolLit) node()    {}
func (*NoneLit) node()    {}
func (*Tuple) node()      {}
func (*List) node()       {}
func (*Dict) node()       {}
func (*Attribute) node()  {}
func (*Subscript) node()  {}
func (*Slice) node()      {}
func (*Call) node()       {}
func (*BinOp) node()      {}
func (*UnaryOp) node()    {}
func (*BoolOp) node()     {}
func (*Compare) node()    {}
func (*IfExp) node()      {}

func (*Name) expr()       {}
func (*StringLit) expr()  {}
func (*FStringLit) expr() {}
func (*IntLit) expr()     {}
func (*FloatLit) expr()   {}
func (*BoolLit) expr()    {}
func (*NoneLit) expr()    {}
func (*Tuple) expr()      {}
func (*List) expr()       {}
func (*Dict) expr()       {}
func (*Attribute) expr()  {}
func (*Subscript) expr()  {}
func (*Slice) expr()      {}
func (*Call) expr()       {}
func (*BinOp) expr()      {}
func (*UnaryOp) expr()    {}
func (*BoolOp) expr()     {}
func (*Compare) expr()    {}
func (*IfExp) expr()      {}
