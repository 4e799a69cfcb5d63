package script

// The Step AST is a small set of concrete node structs. Every node carries
// the source line it started on so runtime errors can point back at the
// editor.

// Stmt is implemented by all statement nodes.
type Stmt interface {
	stmtNode()
	StartLine() int
}

// Expr is implemented by all expression nodes.
type Expr interface {
	exprNode()
	StartLine() int
}

// Program is the root node: an ordered list of top-level statements.
type Program struct {
	Stmts []Stmt
}

type baseNode struct {
	Line int
}

func (n baseNode) StartLine() int { return n.Line }

// AssignStmt is `name = expr`.
type AssignStmt struct {
	baseNode
	Name  string
	Value Expr
}

// ExprStmt is a bare expression statement, usually a call.
type ExprStmt struct {
	baseNode
	X Expr
}

// ElifClause is one `elif cond then body` arm of an if statement.
type ElifClause struct {
	Cond Expr
	Body []Stmt
}

// IfStmt is `if cond then ... [elif ...]* [else ...] end`.
type IfStmt struct {
	baseNode
	Cond  Expr
	Then  []Stmt
	Elifs []ElifClause
	Else  []Stmt
}

// WhileStmt is `while cond do ... end`.
type WhileStmt struct {
	baseNode
	Cond Expr
	Body []Stmt
}

// ForStmt is `for name in iterable do ... end`.
type ForStmt struct {
	baseNode
	Var  string
	Iter Expr
	Body []Stmt
}

// FuncDecl is `[async] fun name(params) ... end`. Async is set only by the
// suspension transform; learner source never carries it directly.
type FuncDecl struct {
	baseNode
	Name   string
	Params []string
	Body   []Stmt
	Async  bool
}

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	baseNode
	Value Expr // nil for a bare return
}

// BreakStmt is `break`.
type BreakStmt struct{ baseNode }

// ContinueStmt is `continue`.
type ContinueStmt struct{ baseNode }

func (*AssignStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*FuncDecl) stmtNode()     {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}

// Ident references a variable or function by name.
type Ident struct {
	baseNode
	Name string
}

// IntLit is an integer literal.
type IntLit struct {
	baseNode
	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	baseNode
	Value float64
}

// StringLit is a string literal, already unescaped.
type StringLit struct {
	baseNode
	Value string
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	baseNode
	Value bool
}

// NilLit is `nil`.
type NilLit struct{ baseNode }

// BinaryExpr is `lhs op rhs` for arithmetic, comparison and logic ops.
type BinaryExpr struct {
	baseNode
	Op  string
	LHS Expr
	RHS Expr
}

// UnaryExpr is `-x` or `not x`.
type UnaryExpr struct {
	baseNode
	Op string
	X  Expr
}

// CallExpr is `name(args)`. Callees are plain identifiers; Step has no
// first-class function values. Await marks the call as a suspension point
// and is set only by the transform.
type CallExpr struct {
	baseNode
	Func  string
	Args  []Expr
	Await bool
}

func (*Ident) exprNode()      {}
func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NilLit) exprNode()     {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
