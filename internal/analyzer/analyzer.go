// Package analyzer type checks a resolved module.
//
// Checking runs in two steps. ElaborateSignatures turns the written type
// expressions of every top-level declaration into types and fills the struct
// and variant shells the resolver created; after it returns the module's
// exported signatures are final and may be read by importers. CheckBodies
// then checks every body bidirectionally and produces the Result codegen
// consumes.
package analyzer

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/resolver"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// Result holds everything codegen needs to know about a checked module.
type Result struct {
	// Types maps every checked expression to the type it produces.
	Types map[ast.Expr]typesystem.Type
	// Widenings maps an expression to the primitive its value is implicitly
	// widened to after evaluation.
	Widenings map[ast.Expr]typesystem.Primitive
	// Patterns maps every pattern to the type of the value it matches.
	Patterns map[ast.Pattern]typesystem.Type
	// Foreign maps host calls and field reads to the selected member.
	Foreign map[ast.Expr]*foreign.Member
	// Locals types parameters, locals and pattern variables.
	Locals map[*symbols.Symbol]typesystem.Type

	// Args holds the arguments of a labeled call in parameter order.
	Args map[*ast.Call][]ast.Expr

	Captures map[*ast.Lambda][]*symbols.Symbol
	Recurs   map[*ast.Recur]ast.Node
	Bindings *symbols.Bindings
	Defs     *symbols.Bindings
}

// TypeOf returns the recorded type of e, or Invalid.
func (r *Result) TypeOf(e ast.Expr) typesystem.Type {
	if t, ok := r.Types[e]; ok {
		return t
	}
	return typesystem.Invalid
}

type declState int

const (
	stateUnchecked declState = iota
	stateChecking
	stateDone
)

// declContext is the inference state of one top-level declaration. Metas
// never outlive it.
type declContext struct {
	name     string
	span     token.Span
	mark     int
	unifier  *typesystem.Unifier
	exprs    []ast.Expr
	patterns []ast.Pattern
	locals   []*symbols.Symbol
}

// Checker checks one module.
type Checker struct {
	module *ast.Module
	res    *resolver.Resolver
	ns     foreign.Namespace
	result *Result
	diags  diagnostics.List

	decl  *declContext
	state map[*symbols.Symbol]declState
	// inferred marks functions and lets whose type comes from their body.
	inferred map[*symbols.Symbol]bool
	aliases  map[*symbols.Symbol]declState

	elaborated bool
}

// New prepares a checker for a module whose bodies res has resolved.
func New(res *resolver.Resolver, ns foreign.Namespace) *Checker {
	return &Checker{
		module: res.Module(),
		res:    res,
		ns:     ns,
		result: &Result{
			Types:     make(map[ast.Expr]typesystem.Type),
			Widenings: make(map[ast.Expr]typesystem.Primitive),
			Patterns:  make(map[ast.Pattern]typesystem.Type),
			Foreign:   make(map[ast.Expr]*foreign.Member),
			Locals:    make(map[*symbols.Symbol]typesystem.Type),
			Args:      make(map[*ast.Call][]ast.Expr),
			Captures:  res.Captures,
			Recurs:    res.Recurs,
			Bindings:  res.Bindings,
			Defs:      res.Defs,
		},
		state:    make(map[*symbols.Symbol]declState),
		inferred: make(map[*symbols.Symbol]bool),
		aliases:  make(map[*symbols.Symbol]declState),
	}
}

// CheckBodies checks every declaration in source order. Declarations whose
// type is inferred may already have been checked on demand.
func (c *Checker) CheckBodies() (*Result, diagnostics.List) {
	if !c.elaborated {
		panic("analyzer: CheckBodies before ElaborateSignatures")
	}
	mark := len(c.diags)
	for _, decl := range c.module.Decls {
		switch d := decl.(type) {
		case *ast.FunctionDecl:
			if sym, ok := c.res.Defs.Lookup(d); ok {
				c.checkFunction(sym, d)
			}
		case *ast.LetDecl:
			if sym, ok := c.res.Defs.Lookup(d); ok {
				c.checkLet(sym, d)
			}
		}
	}
	return c.result, c.diags[mark:]
}

func (c *Checker) errorf(kind diagnostics.Kind, span token.Span, format string, args ...interface{}) {
	c.diags.Addf(kind, span, format, args...)
}

func (c *Checker) symbolOf(node ast.Node) (*symbols.Symbol, bool) {
	return c.res.Bindings.Lookup(node)
}

func (c *Checker) defOf(node ast.Node) (*symbols.Symbol, bool) {
	return c.res.Defs.Lookup(node)
}

// enter starts a declaration context and returns a function restoring the
// previous one. Nested contexts appear when a body is inferred on demand.
func (c *Checker) enter(name string, span token.Span) func() {
	prev := c.decl
	c.decl = &declContext{name: name, span: span, mark: len(c.diags), unifier: typesystem.NewUnifier()}
	return func() { c.decl = prev }
}

func (c *Checker) record(e ast.Expr, t typesystem.Type) typesystem.Type {
	c.result.Types[e] = t
	c.decl.exprs = append(c.decl.exprs, e)
	return t
}

func (c *Checker) recordPattern(p ast.Pattern, t typesystem.Type) {
	c.result.Patterns[p] = t
	c.decl.patterns = append(c.decl.patterns, p)
}

func (c *Checker) setLocal(sym *symbols.Symbol, t typesystem.Type) {
	c.result.Locals[sym] = t
	c.decl.locals = append(c.decl.locals, sym)
}

func (c *Checker) resolve(t typesystem.Type) typesystem.Type {
	return c.decl.unifier.Subst.Resolve(t)
}

func (c *Checker) apply(t typesystem.Type) typesystem.Type {
	return c.decl.unifier.Apply(t)
}

func (c *Checker) fresh(bound typesystem.Bound) *typesystem.Meta {
	return c.decl.unifier.Fresh(bound)
}

// finish applies the declaration's substitution to everything recorded in it
// and reports metas that stayed unsolved, once per declaration.
func (c *Checker) finish() {
	d := c.decl
	s := d.unifier.Subst
	var unsolved []*typesystem.Meta
	note := func(t typesystem.Type) typesystem.Type {
		t = s.Apply(t)
		unsolved = append(unsolved, s.FreeMetas(t)...)
		return t
	}
	for _, e := range d.exprs {
		c.result.Types[e] = note(c.result.Types[e])
	}
	for _, p := range d.patterns {
		c.result.Patterns[p] = note(c.result.Patterns[p])
	}
	for _, sym := range d.locals {
		c.result.Locals[sym] = note(c.result.Locals[sym])
	}
	if len(unsolved) > 0 && !c.diags[d.mark:].HasErrors() {
		c.errorf(diagnostics.CannotInferTypeArgument, d.span,
			"cannot infer all types in %s; add a type annotation", d.name)
	}
}

// Check runs both steps for a single module whose imports, if any, have
// already been elaborated.
func Check(res *resolver.Resolver, ns foreign.Namespace) (*Result, diagnostics.List) {
	c := New(res, ns)
	diags := c.ElaborateSignatures()
	result, more := c.CheckBodies()
	return result, append(diags, more...)
}
