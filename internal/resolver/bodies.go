package resolver

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// ResolveBodies is phase 2. imports maps module paths to their published
// scopes; a path missing from the map is reported at its import.
func (r *Resolver) ResolveBodies(imports map[string]*symbols.Scope) diagnostics.List {
	if r.phase != PhaseSignatures {
		panic("resolver: ResolveBodies before DeclareSignatures")
	}
	r.phase = PhaseBodies
	r.imports = imports
	mark := len(r.diags)

	for _, imp := range r.module.Imports {
		if _, ok := imports[imp.Path]; !ok {
			r.errorf(diagnostics.UnresolvedName, imp.Span, "module %s not found", imp.Path)
		}
	}
	for _, decl := range r.module.Decls {
		switch d := decl.(type) {
		case *ast.FunctionDecl:
			r.resolveFunction(d)
		case *ast.StructDecl:
			r.withTypeParams(d.TypeParams, func() {
				for _, f := range d.Fields {
					r.resolveType(f.Type)
				}
			})
		case *ast.VariantDecl:
			r.withTypeParams(d.TypeParams, func() {
				for _, alt := range d.Alternatives {
					for _, t := range alt.Types {
						r.resolveType(t)
					}
					for _, f := range alt.Fields {
						r.resolveType(f.Type)
					}
				}
			})
		case *ast.TypeAliasDecl:
			r.withTypeParams(d.TypeParams, func() { r.resolveType(d.Type) })
		case *ast.LetDecl:
			if d.Type != nil {
				r.resolveType(d.Type)
			}
			sym, _ := r.Defs.Lookup(d)
			r.currentLet = r.letIndex[sym]
			r.resolveExpr(d.Value)
			r.currentLet = -1
		}
	}
	return r.diags[mark:]
}

func (r *Resolver) withTypeParams(decls []*ast.TypeParamDecl, fn func()) {
	r.openScope(symbols.ScopeFunction)
	for _, tp := range decls {
		if sym, ok := r.Defs.Lookup(tp); ok {
			// Duplicates were reported in phase 1.
			r.current.Declare(sym)
		}
	}
	fn()
	r.closeScope()
}

func (r *Resolver) resolveFunction(d *ast.FunctionDecl) {
	r.withTypeParams(d.TypeParams, func() {
		for _, p := range d.Params {
			if p.Type != nil {
				r.resolveType(p.Type)
			}
		}
		if d.Result != nil {
			r.resolveType(d.Result)
		}
		labels := make(map[string]bool)
		for _, p := range d.Params {
			r.declareLocal(p, p.Name, p.Span)
			if p.Label == "" {
				continue
			}
			if labels[p.Label] {
				r.errorf(diagnostics.DuplicateDefinition, p.Span, "parameter label %q is already used", p.Label)
			}
			labels[p.Label] = true
		}
		r.markTails(d.Body)
		r.targets = []ast.Node{d}
		r.resolveExpr(d.Body)
		r.targets = nil
	})
}

// markTails records the recurs in tail position of e: the last expression
// evaluated before e yields its value.
func (r *Resolver) markTails(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Recur:
		r.tails[n] = true
	case *ast.Block:
		if n.Result != nil {
			r.markTails(n.Result)
		}
	case *ast.IfExpr:
		r.markTails(n.Then)
		if n.Else != nil {
			r.markTails(n.Else)
		}
	case *ast.MatchExpr:
		for _, arm := range n.Arms {
			r.markTails(arm.Body)
		}
	case *ast.Loop:
		r.markTails(n.Body)
	}
}

// lookup resolves an unqualified name through locals, the module scope and
// the prelude.
func (r *Resolver) lookup(name string, span token.Span) (*symbols.Symbol, bool) {
	sym, err := r.current.Lookup(name)
	if err != nil {
		r.errorf(diagnostics.UnresolvedName, span, "%v", err)
		return nil, false
	}
	return sym, true
}

// lookupQualified resolves qualifier.name where qualifier must be an import.
func (r *Resolver) lookupQualified(qualifier, name string, span token.Span) (*symbols.Symbol, bool) {
	mod, ok := r.lookup(qualifier, span)
	if !ok {
		return nil, false
	}
	if mod.Kind != symbols.ModuleSymbol {
		r.errorf(diagnostics.UnresolvedName, span, "%s is not an imported module", qualifier)
		return nil, false
	}
	return r.moduleMember(mod, name, span)
}

func (r *Resolver) moduleMember(mod *symbols.Symbol, name string, span token.Span) (*symbols.Symbol, bool) {
	scope, ok := r.imports[mod.Path]
	if !ok {
		// Reported at the import.
		return nil, false
	}
	sym, ok := scope.LookupLocal(name)
	if !ok {
		r.errorf(diagnostics.UnresolvedName, span, "module %s has no member %q", mod.Path, name)
		return nil, false
	}
	if !sym.Exported {
		r.errorf(diagnostics.PrivateAccess, span, "%s %q is private to module %s", sym.Kind, name, mod.Path)
		return nil, false
	}
	return sym, true
}

func (r *Resolver) resolveType(te ast.TypeExpr) {
	switch t := te.(type) {
	case *ast.NamedType:
		var sym *symbols.Symbol
		var ok bool
		if t.Qualifier != "" {
			sym, ok = r.lookupQualified(t.Qualifier, t.Name, t.Span)
		} else {
			sym, ok = r.lookup(t.Name, t.Span)
		}
		if !ok {
			return
		}
		if sym.Kind != symbols.TypeSymbol && sym.Kind != symbols.TypeParamSymbol {
			r.errorf(diagnostics.UnresolvedName, t.Span, "%s %q is not a type", sym.Kind, t.Name)
			return
		}
		r.bind(t, sym)
	case *ast.AppliedType:
		r.resolveType(t.Base)
		for _, a := range t.Args {
			r.resolveType(a)
		}
	case *ast.FuncTypeExpr:
		for _, p := range t.Params {
			r.resolveType(p)
		}
		r.resolveType(t.Result)
	case *ast.TupleType:
		for _, e := range t.Elems {
			r.resolveType(e)
		}
	}
}

func (r *Resolver) resolveExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.CharLit, *ast.StringLit, *ast.BoolLit, *ast.UnitLit:
	case *ast.Identifier:
		r.resolveIdentifier(n)
	case *ast.FieldAccess:
		if id, ok := n.Target.(*ast.Identifier); ok {
			if sym, err := r.current.Lookup(id.Name); err == nil && sym.Kind == symbols.ModuleSymbol {
				r.bind(id, sym)
				if member, ok := r.moduleMember(sym, n.Field, n.FieldSpan); ok {
					r.bind(n, member)
				}
				return
			}
		}
		r.resolveExpr(n.Target)
	case *ast.Call:
		r.resolveExpr(n.Callee)
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
	case *ast.BinaryOp:
		r.resolveExpr(n.Left)
		r.resolveExpr(n.Right)
	case *ast.UnaryOp:
		r.resolveExpr(n.Operand)
	case *ast.IfExpr:
		r.resolveExpr(n.Cond)
		r.resolveExpr(n.Then)
		if n.Else != nil {
			r.resolveExpr(n.Else)
		}
	case *ast.MatchExpr:
		r.resolveExpr(n.Scrutinee)
		for _, arm := range n.Arms {
			// Pattern variables of one arm cannot rebind each other.
			r.openScope(symbols.ScopeFunction)
			r.resolvePattern(arm.Pattern)
			r.resolveExpr(arm.Body)
			r.closeScope()
		}
	case *ast.StructLiteral:
		r.resolveStructLiteral(n)
	case *ast.Lambda:
		r.resolveLambda(n)
	case *ast.Block:
		r.openScope(symbols.ScopeBlock)
		for _, s := range n.Stmts {
			switch st := s.(type) {
			case *ast.LetStmt:
				if st.Type != nil {
					r.resolveType(st.Type)
				}
				// The initializer sees the outer binding of a rebound name.
				r.resolveExpr(st.Value)
				r.declareLocal(st, st.Name, st.Span)
			case *ast.ExprStmt:
				r.resolveExpr(st.Expr)
			}
		}
		if n.Result != nil {
			r.resolveExpr(n.Result)
		}
		r.closeScope()
	case *ast.TupleLit:
		for _, el := range n.Elems {
			r.resolveExpr(el)
		}
	case *ast.Loop:
		r.openScope(symbols.ScopeBlock)
		for _, b := range n.Bindings {
			if b.Type != nil {
				r.resolveType(b.Type)
			}
			r.resolveExpr(b.Value)
			r.declareLocal(b, b.Name, b.Span)
		}
		r.markTails(n.Body)
		r.targets = append(r.targets, n)
		r.resolveExpr(n.Body)
		r.targets = r.targets[:len(r.targets)-1]
		r.closeScope()
	case *ast.Recur:
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		switch {
		case len(r.targets) == 0:
			r.errorf(diagnostics.InvalidRecur, n.Span, "recur outside of a loop or function body")
		case !r.tails[n]:
			r.errorf(diagnostics.InvalidRecur, n.Span, "recur must be in tail position")
		default:
			r.Recurs[n] = r.targets[len(r.targets)-1]
		}
	case *ast.Conversion:
		r.resolveExpr(n.Value)
		r.resolveType(n.Type)
	case *ast.ForeignCall:
		if class, ok := r.foreignClass(n, n.Class, n.ClassSpan); ok {
			name, kind := n.Method, foreign.KindMethod
			if name == "new" {
				name, kind = "<init>", foreign.KindConstructor
			}
			if len(r.foreign.Members(class, name, kind)) == 0 {
				if kind == foreign.KindConstructor {
					r.errorf(diagnostics.UnresolvedForeignReference, n.Span, "%s has no public constructor", class)
				} else {
					r.errorf(diagnostics.UnresolvedForeignReference, n.Span, "%s has no method %q", class, n.Method)
				}
			}
		}
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
	case *ast.ForeignField:
		if class, ok := r.foreignClass(n, n.Class, n.ClassSpan); ok {
			if len(r.foreign.Members(class, n.Field, foreign.KindField)) == 0 {
				r.errorf(diagnostics.UnresolvedForeignReference, n.Span, "%s has no field %q", class, n.Field)
			}
		}
	}
}

func (r *Resolver) resolveIdentifier(n *ast.Identifier) {
	sym, ok := r.lookup(n.Name, n.Span)
	if !ok {
		return
	}
	if idx, isLet := r.letIndex[sym]; isLet && r.currentLet >= 0 && idx >= r.currentLet && len(r.lambdas) == 0 {
		r.errorf(diagnostics.UnresolvedName, n.Span, "%q is used before its initialization", n.Name)
		return
	}
	r.noteUse(sym)
	r.bind(n, sym)
}

// foreignClass binds the class part of C#member. It returns the internal
// class name when the class is known to the foreign namespace.
func (r *Resolver) foreignClass(node ast.Node, name string, span token.Span) (string, bool) {
	sym, err := r.current.Lookup(name)
	if err != nil {
		r.errorf(diagnostics.UnresolvedForeignReference, span, "unknown foreign class %s (missing use foreign?)", name)
		return "", false
	}
	if sym.Kind != symbols.TypeSymbol || sym.Path == "" {
		r.errorf(diagnostics.UnresolvedForeignReference, span, "%s %q is not a foreign class", sym.Kind, name)
		return "", false
	}
	r.bind(node, sym)
	if typesystem.IsInvalid(sym.Type) {
		return "", false
	}
	return sym.Path, true
}

func (r *Resolver) resolveStructLiteral(n *ast.StructLiteral) {
	var sym *symbols.Symbol
	var ok bool
	if n.Qualifier != "" {
		sym, ok = r.lookupQualified(n.Qualifier, n.Name, n.Span)
	} else {
		sym, ok = r.lookup(n.Name, n.Span)
	}
	if ok {
		_, isStruct := sym.Type.(*typesystem.StructType)
		switch {
		case sym.Kind == symbols.TypeSymbol && isStruct && !sym.IsAlias():
			r.bind(n, sym)
		case sym.Kind == symbols.ConstructorSymbol:
			r.bind(n, sym)
		default:
			r.errorf(diagnostics.UnresolvedName, n.Span, "%s %q cannot be built with a literal", sym.Kind, n.Name)
		}
	}
	for _, f := range n.Fields {
		r.resolveExpr(f.Value)
	}
}

func (r *Resolver) resolveLambda(n *ast.Lambda) {
	for _, p := range n.Params {
		if p.Type != nil {
			r.resolveType(p.Type)
		}
	}
	if n.Result != nil {
		r.resolveType(n.Result)
	}
	r.lambdas = append(r.lambdas, n)
	saved := r.targets
	r.targets = nil
	r.openScope(symbols.ScopeFunction)
	for _, p := range n.Params {
		r.declareLocal(p, p.Name, p.Span)
	}
	r.resolveExpr(n.Body)
	r.closeScope()
	r.targets = saved
	r.lambdas = r.lambdas[:len(r.lambdas)-1]
}

func (r *Resolver) resolvePattern(p ast.Pattern) {
	switch n := p.(type) {
	case *ast.WildcardPattern, *ast.LiteralPattern:
	case *ast.BindingPattern:
		r.declareLocal(n, n.Name, n.Span)
	case *ast.TuplePattern:
		for _, e := range n.Elems {
			r.resolvePattern(e)
		}
	case *ast.ConstructorPattern:
		var sym *symbols.Symbol
		var ok bool
		if n.Qualifier != "" {
			sym, ok = r.lookupQualified(n.Qualifier, n.Name, n.Span)
		} else {
			sym, ok = r.lookup(n.Name, n.Span)
		}
		if ok {
			if sym.Kind == symbols.ConstructorSymbol {
				r.bind(n, sym)
			} else {
				r.errorf(diagnostics.UnresolvedName, n.Span, "%s %q is not a variant alternative", sym.Kind, n.Name)
			}
		}
		for _, a := range n.Args {
			r.resolvePattern(a)
		}
		for _, f := range n.Fields {
			r.resolvePattern(f.Pattern)
		}
	}
}
