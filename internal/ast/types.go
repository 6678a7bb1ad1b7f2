package ast

import "github.com/funvibe/sasquach/internal/token"

// NamedType refers to a type by name, optionally qualified by a module alias.
type NamedType struct {
	Span      token.Span
	Qualifier string
	Name      string
}

// AppliedType is a generic application: Base[Args].
type AppliedType struct {
	Span token.Span
	Base *NamedType
	Args []TypeExpr
}

// FuncTypeExpr is fn(A, B) -> R.
type FuncTypeExpr struct {
	Span   token.Span
	Params []TypeExpr
	Result TypeExpr
}

// TupleType is (A, B, ...) with at least two elements.
type TupleType struct {
	Span  token.Span
	Elems []TypeExpr
}

func (t *NamedType) GetSpan() token.Span    { return t.Span }
func (t *TupleType) GetSpan() token.Span    { return t.Span }
func (t *AppliedType) GetSpan() token.Span  { return t.Span }
func (t *FuncTypeExpr) GetSpan() token.Span { return t.Span }

func (*NamedType) typeExprNode()    {}
func (*AppliedType) typeExprNode()  {}
func (*FuncTypeExpr) typeExprNode() {}
func (*TupleType) typeExprNode()    {}
