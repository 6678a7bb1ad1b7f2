package ast

import "github.com/funvibe/sasquach/internal/token"

// Node is the base interface for all AST nodes. Nodes are immutable once the
// parser returns them; passes attach information in side tables keyed by node.
type Node interface {
	GetSpan() token.Span
}

// Decl is a top-level declaration.
type Decl interface {
	Node
	declNode()
	DeclName() string
	IsPub() bool
}

// Expr is a Node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt appears inside a block.
type Stmt interface {
	Node
	stmtNode()
}

type Pattern interface {
	Node
	patternNode()
}

type TypeExpr interface {
	Node
	typeExprNode()
}

// Module is the root node of every AST the parser produces.
type Module struct {
	Span    token.Span
	File    string
	Name    string // slash separated, e.g. app/Main
	Imports []*Import
	Uses    []*ForeignUse
	Decls   []Decl
}

func (m *Module) GetSpan() token.Span { return m.Span }

// ClassName is the simple name of the module class (last path segment).
func (m *Module) ClassName() string {
	for i := len(m.Name) - 1; i >= 0; i-- {
		if m.Name[i] == '/' {
			return m.Name[i+1:]
		}
	}
	return m.Name
}

// Import brings another module into scope under Alias or its last path segment.
// import app/Geometry [as G]
type Import struct {
	Span  token.Span
	Path  string
	Alias string
}

func (i *Import) GetSpan() token.Span { return i.Span }

func (i *Import) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return lastSegment(i.Path)
}

// ForeignUse names a host class.
// use foreign java/util/ArrayList [as List]
type ForeignUse struct {
	Span  token.Span
	Class string
	Alias string
}

func (u *ForeignUse) GetSpan() token.Span { return u.Span }

func (u *ForeignUse) LocalName() string {
	if u.Alias != "" {
		return u.Alias
	}
	return lastSegment(u.Class)
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
