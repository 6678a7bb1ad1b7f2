package analyzer

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// ElaborateSignatures fills struct fields and variant payloads and assigns
// the declared types of functions and module lets. Unannotated function
// results and lets stay pending until their body is checked.
func (c *Checker) ElaborateSignatures() diagnostics.List {
	if c.elaborated {
		panic("analyzer: ElaborateSignatures called twice")
	}
	c.elaborated = true
	mark := len(c.diags)

	for _, decl := range c.module.Decls {
		sym, ok := c.defOf(decl)
		if !ok {
			continue
		}
		switch d := decl.(type) {
		case *ast.TypeAliasDecl:
			c.aliasType(sym)
		case *ast.StructDecl:
			st := sym.Type.(*typesystem.StructType)
			fields := make([]typesystem.Field, 0, len(d.Fields))
			seen := make(map[string]bool)
			for _, f := range d.Fields {
				if seen[f.Name] {
					c.errorf(diagnostics.DuplicateField, f.Span, "field %q is declared twice in %s", f.Name, d.Name)
					continue
				}
				seen[f.Name] = true
				fields = append(fields, typesystem.Field{Name: f.Name, Type: c.buildType(f.Type)})
			}
			st.Fields = fields
		case *ast.VariantDecl:
			for _, ad := range d.Alternatives {
				csym, ok := c.defOf(ad)
				if !ok {
					continue
				}
				alt := csym.Alt
				switch ad.Shape {
				case ast.AltTuple:
					for i, te := range ad.Types {
						alt.Fields = append(alt.Fields, typesystem.Field{Name: typesystem.TupleFieldName(i), Type: c.buildType(te)})
					}
				case ast.AltRecord:
					seen := make(map[string]bool)
					for _, f := range ad.Fields {
						if seen[f.Name] {
							c.errorf(diagnostics.DuplicateField, f.Span, "field %q is declared twice in %s", f.Name, ad.Name)
							continue
						}
						seen[f.Name] = true
						alt.Fields = append(alt.Fields, typesystem.Field{Name: f.Name, Type: c.buildType(f.Type)})
					}
				}
			}
		case *ast.FunctionDecl:
			ft := &typesystem.FuncType{TypeParams: c.typeParams(d.TypeParams)}
			for _, p := range d.Params {
				ft.Params = append(ft.Params, c.buildType(p.Type))
			}
			switch {
			case d.Result != nil:
				ft.Result = c.buildType(d.Result)
			case d.Pub:
				c.errorf(diagnostics.CannotInferTypeArgument, d.NameSpan,
					"public function %s must declare its return type", d.Name)
				ft.Result = typesystem.Invalid
			default:
				ft.Result = typesystem.Invalid
				c.inferred[sym] = true
			}
			sym.Type = ft
		case *ast.LetDecl:
			switch {
			case d.Type != nil:
				sym.Type = c.buildType(d.Type)
			case d.Pub:
				c.errorf(diagnostics.CannotInferTypeArgument, d.Span,
					"public value %s must declare its type", d.Name)
				sym.Type = typesystem.Invalid
			default:
				sym.Type = typesystem.Invalid
				c.inferred[sym] = true
			}
		}
	}
	return c.diags[mark:]
}

func (c *Checker) typeParams(decls []*ast.TypeParamDecl) []*typesystem.TypeParam {
	var out []*typesystem.TypeParam
	for _, tp := range decls {
		if sym, ok := c.defOf(tp); ok {
			out = append(out, sym.Param)
		}
	}
	return out
}

// aliasType expands a type alias declared in this module on first use.
// Aliases of imported modules were expanded when those were elaborated.
func (c *Checker) aliasType(sym *symbols.Symbol) typesystem.Type {
	d, ok := sym.Decl.(*ast.TypeAliasDecl)
	if !ok || sym.Module != c.module.Name {
		if sym.Type == nil {
			return typesystem.Invalid
		}
		return sym.Type
	}
	switch c.aliases[sym] {
	case stateChecking:
		c.errorf(diagnostics.CyclicTypeAlias, d.Span, "type alias %s refers to itself", d.Name)
		sym.Type = typesystem.Invalid
		return sym.Type
	case stateDone:
		return sym.Type
	}
	c.aliases[sym] = stateChecking
	t := c.buildType(d.Type)
	if sym.Type == nil {
		sym.Type = t
	}
	c.aliases[sym] = stateDone
	return sym.Type
}

// buildType turns a written type into a Type. Errors yield Invalid.
func (c *Checker) buildType(te ast.TypeExpr) typesystem.Type {
	switch t := te.(type) {
	case *ast.NamedType:
		sym, ok := c.symbolOf(t)
		if !ok {
			return typesystem.Invalid
		}
		if sym.Kind == symbols.TypeParamSymbol {
			return sym.Param
		}
		if sym.IsAlias() {
			if n := len(sym.AliasParams); n > 0 {
				c.errorf(diagnostics.TypeMismatch, t.Span, "%s needs %d type argument(s)", t.Name, n)
				return typesystem.Invalid
			}
			return c.aliasType(sym)
		}
		if n := len(typesystem.Params(sym.Type)); n > 0 {
			c.errorf(diagnostics.TypeMismatch, t.Span, "%s needs %d type argument(s)", t.Name, n)
			return typesystem.Invalid
		}
		if sym.Type == nil {
			return typesystem.Invalid
		}
		return sym.Type
	case *ast.AppliedType:
		sym, ok := c.symbolOf(t.Base)
		if !ok {
			return typesystem.Invalid
		}
		if sym.IsAlias() {
			return c.applyAlias(sym, t)
		}
		params := typesystem.Params(sym.Type)
		if len(params) != len(t.Args) {
			c.errorf(diagnostics.TypeMismatch, t.Span, "%s takes %d type argument(s), found %d",
				t.Base.Name, len(params), len(t.Args))
			return typesystem.Invalid
		}
		args := make([]typesystem.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.buildType(a)
		}
		return &typesystem.Applied{Base: sym.Type, Args: args}
	case *ast.FuncTypeExpr:
		ft := &typesystem.FuncType{Result: c.buildType(t.Result)}
		for _, p := range t.Params {
			ft.Params = append(ft.Params, c.buildType(p))
		}
		return ft
	case *ast.TupleType:
		tt := &typesystem.TupleType{}
		for _, e := range t.Elems {
			tt.Elems = append(tt.Elems, c.buildType(e))
		}
		return tt
	}
	return typesystem.Invalid
}

// applyAlias substitutes the type arguments of Alias[Args] into the
// expansion of the alias.
func (c *Checker) applyAlias(sym *symbols.Symbol, t *ast.AppliedType) typesystem.Type {
	if len(sym.AliasParams) != len(t.Args) {
		c.errorf(diagnostics.TypeMismatch, t.Span, "%s takes %d type argument(s), found %d",
			t.Base.Name, len(sym.AliasParams), len(t.Args))
		return typesystem.Invalid
	}
	target := c.aliasType(sym)
	if typesystem.IsInvalid(target) {
		return target
	}
	m := make(map[*typesystem.TypeParam]typesystem.Type, len(t.Args))
	for i, a := range t.Args {
		m[sym.AliasParams[i]] = c.buildType(a)
	}
	return typesystem.Instantiate(target, m)
}

// funcType returns the signature of a function symbol, checking the body
// first when the result is inferred.
func (c *Checker) funcType(sym *symbols.Symbol, span token.Span) typesystem.Type {
	if c.inferred[sym] {
		decl, _ := sym.Decl.(*ast.FunctionDecl)
		switch c.state[sym] {
		case stateChecking:
			c.errorf(diagnostics.CannotInferTypeArgument, span,
				"recursive use of %s needs an explicit return type", sym.Name)
			return typesystem.Invalid
		case stateUnchecked:
			c.checkFunction(sym, decl)
		}
	}
	if sym.Type == nil {
		return typesystem.Invalid
	}
	return sym.Type
}

// letType is funcType for module lets.
func (c *Checker) letType(sym *symbols.Symbol, span token.Span) typesystem.Type {
	if c.inferred[sym] {
		decl, _ := sym.Decl.(*ast.LetDecl)
		switch c.state[sym] {
		case stateChecking:
			c.errorf(diagnostics.CannotInferTypeArgument, span,
				"recursive use of %s needs an explicit type", sym.Name)
			return typesystem.Invalid
		case stateUnchecked:
			c.checkLet(sym, decl)
		}
	}
	if sym.Type == nil {
		return typesystem.Invalid
	}
	return sym.Type
}

func (c *Checker) checkFunction(sym *symbols.Symbol, d *ast.FunctionDecl) {
	if c.state[sym] != stateUnchecked {
		return
	}
	c.state[sym] = stateChecking
	defer func() { c.state[sym] = stateDone }()
	defer c.enter(d.Name, d.NameSpan)()

	ft, ok := sym.Type.(*typesystem.FuncType)
	if !ok {
		return
	}
	for i, p := range d.Params {
		if psym, ok := c.defOf(p); ok && i < len(ft.Params) {
			c.setLocal(psym, ft.Params[i])
		}
	}
	if c.inferred[sym] {
		result := c.infer(d.Body)
		c.finish()
		sym.Type = &typesystem.FuncType{TypeParams: ft.TypeParams, Params: ft.Params, Result: c.apply(result)}
		return
	}
	c.check(d.Body, ft.Result)
	c.finish()
}

func (c *Checker) checkLet(sym *symbols.Symbol, d *ast.LetDecl) {
	if c.state[sym] != stateUnchecked {
		return
	}
	c.state[sym] = stateChecking
	defer func() { c.state[sym] = stateDone }()
	defer c.enter(d.Name, d.Span)()

	if c.inferred[sym] {
		t := c.infer(d.Value)
		c.finish()
		sym.Type = c.apply(t)
		return
	}
	c.check(d.Value, sym.Type)
	c.finish()
}
