// Package resolver binds every name in a module to the symbol it denotes.
//
// Resolution runs in two explicit phases. DeclareSignatures registers the
// module's top-level symbols and type shells; once the resulting scope is
// published other modules may import it. ResolveBodies then resolves every
// reference, including qualified references into the scopes of imported
// modules.
package resolver

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
)

type Phase int

const (
	PhaseNone Phase = iota
	PhaseSignatures
	PhaseBodies
)

func (p Phase) String() string {
	switch p {
	case PhaseSignatures:
		return "signatures"
	case PhaseBodies:
		return "bodies"
	}
	return "none"
}

// Resolver holds the resolution state of one module.
type Resolver struct {
	module  *ast.Module
	ids     *symbols.IDGen
	foreign foreign.Namespace
	phase   Phase

	scope   *symbols.Scope // module scope, published after phase 1
	current *symbols.Scope
	imports map[string]*symbols.Scope

	// Bindings maps every reference node to its symbol.
	Bindings *symbols.Bindings
	// Defs maps every declaring node (declarations, parameters, locals,
	// pattern bindings, type parameters, imports) to the symbol it introduces.
	Defs *symbols.Bindings
	// Captures lists, per lambda, the enclosing locals it uses in first-use
	// order.
	Captures map[*ast.Lambda][]*symbols.Symbol

	// Recurs maps every recur to the *ast.Loop or *ast.FunctionDecl it
	// restarts.
	Recurs map[*ast.Recur]ast.Node

	lambdas    []*ast.Lambda
	localDepth map[*symbols.Symbol]int

	// targets are the enclosing recur targets, innermost last. A lambda body
	// starts with none.
	targets []ast.Node
	tails   map[*ast.Recur]bool

	// Module lets in declaration order; initializers may only read earlier ones.
	letIndex   map[*symbols.Symbol]int
	currentLet int

	diags diagnostics.List
}

// New prepares a resolver for mod. Module scopes are children of prelude.
func New(mod *ast.Module, prelude *symbols.Scope, ids *symbols.IDGen, ns foreign.Namespace) *Resolver {
	scope := symbols.NewScope(prelude, symbols.ScopeModule)
	return &Resolver{
		module:     mod,
		ids:        ids,
		foreign:    ns,
		scope:      scope,
		current:    scope,
		Bindings:   symbols.NewBindings(),
		Defs:       symbols.NewBindings(),
		Captures:   make(map[*ast.Lambda][]*symbols.Symbol),
		Recurs:     make(map[*ast.Recur]ast.Node),
		localDepth: make(map[*symbols.Symbol]int),
		tails:      make(map[*ast.Recur]bool),
		letIndex:   make(map[*symbols.Symbol]int),
		currentLet: -1,
	}
}

// Phase returns the last phase that ran.
func (r *Resolver) Phase() Phase { return r.phase }

// Scope is the module scope. It is complete once DeclareSignatures returned.
func (r *Resolver) Scope() *symbols.Scope { return r.scope }

// Module returns the module being resolved.
func (r *Resolver) Module() *ast.Module { return r.module }

// ImportPaths lists the modules this module imports, in source order.
func (r *Resolver) ImportPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, imp := range r.module.Imports {
		if !seen[imp.Path] {
			seen[imp.Path] = true
			out = append(out, imp.Path)
		}
	}
	return out
}

func (r *Resolver) errorf(kind diagnostics.Kind, span token.Span, format string, args ...interface{}) {
	r.diags.Addf(kind, span, format, args...)
}

func (r *Resolver) bind(node ast.Node, sym *symbols.Symbol) {
	if err := r.Bindings.Bind(node, sym); err != nil {
		panic("resolver: " + err.Error())
	}
}

func (r *Resolver) def(node ast.Node, sym *symbols.Symbol) {
	if err := r.Defs.Bind(node, sym); err != nil {
		panic("resolver: " + err.Error())
	}
}

// declare adds sym to the current scope, reporting a duplicate at span.
func (r *Resolver) declare(sym *symbols.Symbol, span token.Span) bool {
	if _, err := r.current.Declare(sym); err != nil {
		r.errorf(diagnostics.DuplicateDefinition, span, "%v", err)
		return false
	}
	return true
}

func (r *Resolver) openScope(kind symbols.ScopeKind) {
	r.current = symbols.NewScope(r.current, kind)
}

func (r *Resolver) closeScope() {
	r.current = r.current.Parent()
}

// declareLocal introduces a parameter, local or pattern variable.
func (r *Resolver) declareLocal(node ast.Node, name string, span token.Span) *symbols.Symbol {
	sym := r.ids.New(name, symbols.ValueSymbol, r.module.Name, node)
	r.def(node, sym)
	r.localDepth[sym] = len(r.lambdas)
	r.declare(sym, span)
	return sym
}

// noteUse records captures for every lambda between the use of a local and
// its declaration.
func (r *Resolver) noteUse(sym *symbols.Symbol) {
	depth, ok := r.localDepth[sym]
	if !ok {
		return
	}
	for i := depth; i < len(r.lambdas); i++ {
		lam := r.lambdas[i]
		captured := false
		for _, c := range r.Captures[lam] {
			if c == sym {
				captured = true
				break
			}
		}
		if !captured {
			r.Captures[lam] = append(r.Captures[lam], sym)
		}
	}
}
