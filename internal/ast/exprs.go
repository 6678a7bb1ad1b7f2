package ast

import "github.com/funvibe/sasquach/internal/token"

// IntLit is an integer literal; Long is set for an L suffix.
type IntLit struct {
	Span  token.Span
	Value int64
	Long  bool
}

// FloatLit is a floating literal; Single is set for an f suffix.
type FloatLit struct {
	Span   token.Span
	Value  float64
	Single bool
}

type CharLit struct {
	Span  token.Span
	Value rune
}

type StringLit struct {
	Span  token.Span
	Value string
}

type BoolLit struct {
	Span  token.Span
	Value bool
}

// UnitLit is ().
type UnitLit struct {
	Span token.Span
}

type Identifier struct {
	Span token.Span
	Name string
}

// Call is callee(args). Labels runs parallel to Args and is nil unless some
// argument is passed by label (name = value); positional entries are "".
type Call struct {
	Span   token.Span
	Callee Expr
	Args   []Expr
	Labels []string
}

// TupleLit is (a, b, ...) with at least two elements.
type TupleLit struct {
	Span  token.Span
	Elems []Expr
}

// Loop evaluates Body with the loop bindings in scope. A recur in tail
// position of Body rebinds them and starts the body over:
// loop (let a = 0, let b = 1) -> expr
type Loop struct {
	Span     token.Span
	Bindings []*LetStmt
	Body     Expr
}

// Recur jumps back to the nearest enclosing loop, or restarts the enclosing
// function when there is none, with Args as the new bindings.
type Recur struct {
	Span token.Span
	Args []Expr
}

type BinaryOp struct {
	Span  token.Span
	Op    token.TokenType
	Left  Expr
	Right Expr
}

type UnaryOp struct {
	Span    token.Span
	Op      token.TokenType
	Operand Expr
}

// IfExpr: if cond { } [else { } | else if ...]. Else is nil, *Block or *IfExpr.
type IfExpr struct {
	Span token.Span
	Cond Expr
	Then *Block
	Else Expr
}

type MatchArm struct {
	Span    token.Span
	Pattern Pattern
	Body    Expr
}

func (a *MatchArm) GetSpan() token.Span { return a.Span }

type MatchExpr struct {
	Span      token.Span
	Scrutinee Expr
	Arms      []*MatchArm
}

// FieldAccess is target.field. When target names an imported module the
// resolver binds the whole node to the module member instead.
type FieldAccess struct {
	Span      token.Span
	Target    Expr
	Field     string
	FieldSpan token.Span
}

type FieldInit struct {
	Span  token.Span
	Name  string
	Value Expr
}

func (f *FieldInit) GetSpan() token.Span { return f.Span }

// StructLiteral builds a struct or a record alternative:
// [Qualifier.]Name { field: value, ... }
type StructLiteral struct {
	Span      token.Span
	Qualifier string
	Name      string
	Fields    []*FieldInit
}

type Lambda struct {
	Span   token.Span
	Params []*Param
	Result TypeExpr
	Body   Expr
}

// Block evaluates its statements in order. Result is the trailing expression;
// nil means the block is Unit.
type Block struct {
	Span   token.Span
	Stmts  []Stmt
	Result Expr
}

// Conversion is `value as Type`.
type Conversion struct {
	Span  token.Span
	Value Expr
	Type  TypeExpr
}

// ForeignCall is Class#method(args). Constructors use the name "new";
// instance methods take the receiver as first argument.
type ForeignCall struct {
	Span      token.Span
	Class     string
	ClassSpan token.Span
	Method    string
	Args      []Expr
}

// ForeignField reads a static field: Class#field.
type ForeignField struct {
	Span      token.Span
	Class     string
	ClassSpan token.Span
	Field     string
}

func (e *IntLit) GetSpan() token.Span        { return e.Span }
func (e *FloatLit) GetSpan() token.Span      { return e.Span }
func (e *CharLit) GetSpan() token.Span       { return e.Span }
func (e *StringLit) GetSpan() token.Span     { return e.Span }
func (e *BoolLit) GetSpan() token.Span       { return e.Span }
func (e *UnitLit) GetSpan() token.Span       { return e.Span }
func (e *Identifier) GetSpan() token.Span    { return e.Span }
func (e *Call) GetSpan() token.Span          { return e.Span }
func (e *BinaryOp) GetSpan() token.Span      { return e.Span }
func (e *UnaryOp) GetSpan() token.Span       { return e.Span }
func (e *IfExpr) GetSpan() token.Span        { return e.Span }
func (e *MatchExpr) GetSpan() token.Span     { return e.Span }
func (e *FieldAccess) GetSpan() token.Span   { return e.Span }
func (e *StructLiteral) GetSpan() token.Span { return e.Span }
func (e *Lambda) GetSpan() token.Span        { return e.Span }
func (e *Block) GetSpan() token.Span         { return e.Span }
func (e *Conversion) GetSpan() token.Span    { return e.Span }
func (e *ForeignCall) GetSpan() token.Span   { return e.Span }
func (e *ForeignField) GetSpan() token.Span  { return e.Span }
func (e *TupleLit) GetSpan() token.Span      { return e.Span }
func (e *Loop) GetSpan() token.Span          { return e.Span }
func (e *Recur) GetSpan() token.Span         { return e.Span }

func (*IntLit) exprNode()        {}
func (*FloatLit) exprNode()      {}
func (*CharLit) exprNode()       {}
func (*StringLit) exprNode()     {}
func (*BoolLit) exprNode()       {}
func (*UnitLit) exprNode()       {}
func (*Identifier) exprNode()    {}
func (*Call) exprNode()          {}
func (*BinaryOp) exprNode()      {}
func (*UnaryOp) exprNode()       {}
func (*IfExpr) exprNode()        {}
func (*MatchExpr) exprNode()     {}
func (*FieldAccess) exprNode()   {}
func (*StructLiteral) exprNode() {}
func (*Lambda) exprNode()        {}
func (*Block) exprNode()         {}
func (*Conversion) exprNode()    {}
func (*ForeignCall) exprNode()   {}
func (*ForeignField) exprNode()  {}
func (*TupleLit) exprNode()      {}
func (*Loop) exprNode()          {}
func (*Recur) exprNode()         {}

// LetStmt binds a local: let name[: Type] = value
type LetStmt struct {
	Span  token.Span
	Name  string
	Type  TypeExpr
	Value Expr
}

type ExprStmt struct {
	Span token.Span
	Expr Expr
}

func (s *LetStmt) GetSpan() token.Span  { return s.Span }
func (s *ExprStmt) GetSpan() token.Span { return s.Span }
func (*LetStmt) stmtNode()              {}
func (*ExprStmt) stmtNode()             {}
