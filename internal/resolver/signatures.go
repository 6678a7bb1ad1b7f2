package resolver

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// DeclareSignatures is phase 1. It registers imports, foreign uses and every
// top-level declaration in the module scope, creating nominal shells for
// structs and variants. Nothing declared here looks at other modules.
func (r *Resolver) DeclareSignatures() diagnostics.List {
	if r.phase != PhaseNone {
		panic("resolver: DeclareSignatures called twice")
	}
	r.phase = PhaseSignatures
	mark := len(r.diags)

	for _, imp := range r.module.Imports {
		sym := r.ids.New(imp.LocalName(), symbols.ModuleSymbol, r.module.Name, imp)
		sym.Path = imp.Path
		r.def(imp, sym)
		r.declare(sym, imp.Span)
	}
	for _, use := range r.module.Uses {
		r.declareForeignUse(use)
	}
	for _, decl := range r.module.Decls {
		switch d := decl.(type) {
		case *ast.FunctionDecl:
			sym := r.ids.New(d.Name, symbols.FunctionSymbol, r.module.Name, d)
			sym.Exported = d.Pub
			r.def(d, sym)
			r.declare(sym, d.NameSpan)
			r.declareTypeParams(d.Name, d.TypeParams)
		case *ast.StructDecl:
			r.declareStruct(d)
		case *ast.VariantDecl:
			r.declareVariant(d)
		case *ast.TypeAliasDecl:
			sym := r.ids.New(d.Name, symbols.TypeSymbol, r.module.Name, d)
			sym.Exported = d.Pub
			sym.AliasParams = r.declareTypeParams(d.Name, d.TypeParams)
			r.def(d, sym)
			r.declare(sym, d.Span)
		case *ast.LetDecl:
			sym := r.ids.New(d.Name, symbols.ValueSymbol, r.module.Name, d)
			sym.Exported = d.Pub
			r.def(d, sym)
			r.letIndex[sym] = len(r.letIndex)
			r.declare(sym, d.Span)
		}
	}
	return r.diags[mark:]
}

func (r *Resolver) declareForeignUse(use *ast.ForeignUse) {
	sym := r.ids.New(use.LocalName(), symbols.TypeSymbol, r.module.Name, use)
	sym.Path = use.Class
	if r.foreign == nil {
		sym.Type = typesystem.Invalid
		r.errorf(diagnostics.UnresolvedForeignReference, use.Span, "no foreign namespace to look up %s", use.Class)
	} else if _, ok := r.foreign.ResolveClass(use.Class); ok {
		sym.Type = typesystem.Foreign(use.Class)
	} else {
		sym.Type = typesystem.Invalid
		r.errorf(diagnostics.UnresolvedForeignReference, use.Span, "foreign class %s not found", use.Class)
	}
	r.def(use, sym)
	r.declare(sym, use.Span)
}

// declareTypeParams creates one rigid parameter per declaration. The symbols
// are entered into a scope only while the owning declaration is resolved.
func (r *Resolver) declareTypeParams(owner string, decls []*ast.TypeParamDecl) []*typesystem.TypeParam {
	params := make([]*typesystem.TypeParam, 0, len(decls))
	seen := make(map[string]bool)
	for _, tp := range decls {
		if seen[tp.Name] {
			r.errorf(diagnostics.DuplicateDefinition, tp.Span, "type parameter %q is already defined", tp.Name)
		}
		seen[tp.Name] = true

		param := &typesystem.TypeParam{Name: tp.Name, Owner: owner}
		switch tp.Bound {
		case "":
		case config.NumBoundName:
			param.Bound = typesystem.BoundNum
		case config.OrdBoundName:
			param.Bound = typesystem.BoundOrd
		default:
			r.errorf(diagnostics.UnresolvedName, tp.Span, "unknown bound %q (expected %s or %s)",
				tp.Bound, config.NumBoundName, config.OrdBoundName)
		}
		sym := r.ids.New(tp.Name, symbols.TypeParamSymbol, r.module.Name, tp)
		sym.Param = param
		sym.Type = param
		r.def(tp, sym)
		params = append(params, param)
	}
	return params
}

func (r *Resolver) declareStruct(d *ast.StructDecl) {
	st := &typesystem.StructType{Module: r.module.Name, Name: d.Name}
	st.Params = r.declareTypeParams(d.Name, d.TypeParams)
	sym := r.ids.New(d.Name, symbols.TypeSymbol, r.module.Name, d)
	sym.Exported = d.Pub
	sym.Type = st
	r.def(d, sym)
	r.declare(sym, d.Span)
}

func (r *Resolver) declareVariant(d *ast.VariantDecl) {
	vt := &typesystem.VariantType{Module: r.module.Name, Name: d.Name}
	vt.Params = r.declareTypeParams(d.Name, d.TypeParams)
	sym := r.ids.New(d.Name, symbols.TypeSymbol, r.module.Name, d)
	sym.Exported = d.Pub
	sym.Type = vt
	r.def(d, sym)
	r.declare(sym, d.Span)

	for i, ad := range d.Alternatives {
		alt := &typesystem.Alternative{Tag: ad.Name, Index: i, Variant: vt}
		switch ad.Shape {
		case ast.AltTuple:
			alt.Kind = typesystem.AltTuple
		case ast.AltRecord:
			alt.Kind = typesystem.AltRecord
		default:
			alt.Kind = typesystem.AltUnit
		}
		vt.Alternatives = append(vt.Alternatives, alt)

		csym := r.ids.New(ad.Name, symbols.ConstructorSymbol, r.module.Name, ad)
		csym.Exported = d.Pub
		csym.Type = vt
		csym.Alt = alt
		r.def(ad, csym)
		r.declare(csym, ad.Span)
	}
}
