package ast

import "github.com/funvibe/sasquach/internal/token"

// LiteralPattern matches a literal value. Value is one of the literal nodes.
type LiteralPattern struct {
	Span  token.Span
	Value Expr
}

// BindingPattern matches anything and binds it to Name.
type BindingPattern struct {
	Span token.Span
	Name string
}

type WildcardPattern struct {
	Span token.Span
}

type FieldPattern struct {
	Span    token.Span
	Name    string
	Pattern Pattern // `{ radius }` is shorthand for `{ radius: radius }`
}

func (f *FieldPattern) GetSpan() token.Span { return f.Span }

// ConstructorPattern destructures a variant alternative:
// None, Some(p), Circle { radius: p }, G.Circle { radius }
type ConstructorPattern struct {
	Span      token.Span
	Qualifier string
	Name      string
	Shape     AltShape
	Args      []Pattern
	Fields    []*FieldPattern
}

// TuplePattern destructures a tuple: (p, q).
type TuplePattern struct {
	Span  token.Span
	Elems []Pattern
}

func (p *LiteralPattern) GetSpan() token.Span     { return p.Span }
func (p *TuplePattern) GetSpan() token.Span       { return p.Span }
func (p *BindingPattern) GetSpan() token.Span     { return p.Span }
func (p *WildcardPattern) GetSpan() token.Span    { return p.Span }
func (p *ConstructorPattern) GetSpan() token.Span { return p.Span }

func (*LiteralPattern) patternNode()     {}
func (*BindingPattern) patternNode()     {}
func (*WildcardPattern) patternNode()    {}
func (*ConstructorPattern) patternNode() {}
func (*TuplePattern) patternNode()       {}
