package ast

import "github.com/funvibe/sasquach/internal/token"

// TypeParamDecl declares a type parameter with an optional bound (Num, Ord).
type TypeParamDecl struct {
	Span  token.Span
	Name  string
	Bound string
}

func (t *TypeParamDecl) GetSpan() token.Span { return t.Span }

// Param is a function or lambda parameter. Type is nil for unannotated lambda
// parameters. A labeled function parameter (fn sub(num a: Int)) is passed
// by label at call sites: sub(num = 7).
type Param struct {
	Span  token.Span
	Label string
	Name  string
	Type  TypeExpr
}

func (p *Param) GetSpan() token.Span { return p.Span }

// FunctionDecl: [pub] fn name[T](p: T): R = expr | { block }
type FunctionDecl struct {
	Span       token.Span
	NameSpan   token.Span
	Pub        bool
	Name       string
	TypeParams []*TypeParamDecl
	Params     []*Param
	Result     TypeExpr // nil when inferred
	Body       Expr
}

func (f *FunctionDecl) GetSpan() token.Span { return f.Span }
func (f *FunctionDecl) declNode()           {}
func (f *FunctionDecl) DeclName() string    { return f.Name }
func (f *FunctionDecl) IsPub() bool         { return f.Pub }

type FieldDecl struct {
	Span token.Span
	Name string
	Type TypeExpr
}

func (f *FieldDecl) GetSpan() token.Span { return f.Span }

// StructDecl: [pub] struct Name[T] { field: Type, ... }
type StructDecl struct {
	Span       token.Span
	Pub        bool
	Name       string
	TypeParams []*TypeParamDecl
	Fields     []*FieldDecl
}

func (s *StructDecl) GetSpan() token.Span { return s.Span }
func (s *StructDecl) declNode()           {}
func (s *StructDecl) DeclName() string    { return s.Name }
func (s *StructDecl) IsPub() bool         { return s.Pub }

type AltShape int

const (
	AltUnit   AltShape = iota // None
	AltTuple                  // Some(T)
	AltRecord                 // Circle { radius: Double }
)

type AlternativeDecl struct {
	Span   token.Span
	Name   string
	Shape  AltShape
	Types  []TypeExpr   // tuple payload
	Fields []*FieldDecl // record payload
}

func (a *AlternativeDecl) GetSpan() token.Span { return a.Span }

// VariantDecl: [pub] variant Name[T] { A, B(T), C { f: T } }
type VariantDecl struct {
	Span         token.Span
	Pub          bool
	Name         string
	TypeParams   []*TypeParamDecl
	Alternatives []*AlternativeDecl
}

func (v *VariantDecl) GetSpan() token.Span { return v.Span }
func (v *VariantDecl) declNode()           {}
func (v *VariantDecl) DeclName() string    { return v.Name }
func (v *VariantDecl) IsPub() bool         { return v.Pub }

// LetDecl is a module-level value: [pub] let name[: Type] = expr
type LetDecl struct {
	Span  token.Span
	Pub   bool
	Name  string
	Type  TypeExpr
	Value Expr
}

func (l *LetDecl) GetSpan() token.Span { return l.Span }
func (l *LetDecl) declNode()           {}
func (l *LetDecl) DeclName() string    { return l.Name }
func (l *LetDecl) IsPub() bool         { return l.Pub }

// TypeAliasDecl: [pub] type Name[T] = Type
type TypeAliasDecl struct {
	Span       token.Span
	Pub        bool
	Name       string
	TypeParams []*TypeParamDecl
	Type       TypeExpr
}

func (t *TypeAliasDecl) GetSpan() token.Span { return t.Span }
func (t *TypeAliasDecl) declNode()           {}
func (t *TypeAliasDecl) DeclName() string    { return t.Name }
func (t *TypeAliasDecl) IsPub() bool         { return t.Pub }
