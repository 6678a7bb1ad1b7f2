package analyzer

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

func (c *Checker) inferIf(n *ast.IfExpr) typesystem.Type {
	c.check(n.Cond, typesystem.Bool)
	if n.Else == nil {
		c.check(n.Then, typesystem.Unit)
		return c.record(n, typesystem.Unit)
	}
	return c.record(n, c.join([]ast.Expr{n.Then, n.Else}))
}

func (c *Checker) checkIf(n *ast.IfExpr, want typesystem.Type) typesystem.Type {
	c.check(n.Cond, typesystem.Bool)
	if n.Else == nil {
		c.check(n.Then, typesystem.Unit)
		c.unify(n.Span, want, typesystem.Unit)
		return c.record(n, want)
	}
	c.check(n.Then, want)
	c.check(n.Else, want)
	return c.record(n, want)
}

// join infers every branch and brings them to one type: the widest
// primitive if they are all primitives related by widening, otherwise the
// type of the first branch.
func (c *Checker) join(branches []ast.Expr) typesystem.Type {
	types := make([]typesystem.Type, len(branches))
	for i, b := range branches {
		types[i] = c.infer(b)
	}
	result := types[0]
	for _, t := range types[1:] {
		rp, ok1 := c.resolve(result).(typesystem.Primitive)
		tp, ok2 := c.resolve(t).(typesystem.Primitive)
		if ok1 && ok2 && typesystem.CanWiden(rp, tp) {
			result = t
		}
	}
	for i, b := range branches {
		c.expect(b, types[i], result)
	}
	return result
}

// checkMatch checks every arm against the scrutinee and then analyses the
// arms for exhaustiveness and reachability. want may be nil.
func (c *Checker) checkMatch(n *ast.MatchExpr, want typesystem.Type) typesystem.Type {
	scrutinee := c.infer(n.Scrutinee)
	bodies := make([]ast.Expr, len(n.Arms))
	patternsOK := true
	for i, arm := range n.Arms {
		patternsOK = c.checkPattern(arm.Pattern, scrutinee) && patternsOK
		bodies[i] = arm.Body
	}

	var result typesystem.Type
	switch {
	case len(n.Arms) == 0:
		result = typesystem.Unit
		if want != nil {
			c.unify(n.Span, want, result)
			result = want
		}
	case want != nil:
		for _, b := range bodies {
			c.check(b, want)
		}
		result = want
	default:
		result = c.join(bodies)
	}
	c.record(n, result)

	if patternsOK {
		c.analyseMatch(n, c.apply(scrutinee))
	}
	return result
}

// checkPattern checks p against the type of the value it matches, typing
// the variables it binds. It reports false when the pattern is ill-typed.
func (c *Checker) checkPattern(p ast.Pattern, t typesystem.Type) bool {
	c.recordPattern(p, t)
	switch n := p.(type) {
	case *ast.WildcardPattern:
		return true
	case *ast.BindingPattern:
		if sym, ok := c.defOf(n); ok {
			c.setLocal(sym, t)
		}
		return true
	case *ast.LiteralPattern:
		if _, ok := n.Value.(*ast.UnitLit); ok {
			c.infer(n.Value)
			return c.unify(n.Span, t, typesystem.Unit)
		}
		before := len(c.diags)
		got := c.check(n.Value, t)
		// A literal pattern compares exactly; no widening.
		if _, widened := c.result.Widenings[n.Value]; widened {
			delete(c.result.Widenings, n.Value)
			c.errorf(diagnostics.TypeMismatch, n.Span, "expected %s, found %s", c.apply(t), got)
			return false
		}
		return len(c.diags) == before
	case *ast.ConstructorPattern:
		return c.checkConstructorPattern(n, t)
	case *ast.TuplePattern:
		return c.checkTuplePattern(n, t)
	}
	return false
}

func (c *Checker) checkTuplePattern(n *ast.TuplePattern, t typesystem.Type) bool {
	var elems []typesystem.Type
	switch tt := c.resolve(t).(type) {
	case *typesystem.TupleType:
		if len(tt.Elems) != len(n.Elems) {
			c.errorf(diagnostics.TypeMismatch, n.Span, "tuple pattern has %d element(s), value has %d", len(n.Elems), len(tt.Elems))
			c.bindWild(n)
			return false
		}
		elems = tt.Elems
	case *typesystem.Meta:
		for range n.Elems {
			elems = append(elems, c.fresh(typesystem.BoundNone))
		}
		c.unify(n.Span, tt, &typesystem.TupleType{Elems: elems})
	default:
		if !typesystem.IsInvalid(tt) {
			c.errorf(diagnostics.TypeMismatch, n.Span, "expected %s, found a tuple pattern", c.apply(t))
		}
		c.bindWild(n)
		return false
	}
	ok := true
	for i, e := range n.Elems {
		ok = c.checkPattern(e, elems[i]) && ok
	}
	return ok
}

// bindLet types the local a let statement or loop binding introduces.
func (c *Checker) bindLet(st *ast.LetStmt) {
	var t typesystem.Type
	if st.Type != nil {
		t = c.buildType(st.Type)
		c.check(st.Value, t)
	} else {
		t = c.infer(st.Value)
	}
	if sym, ok := c.defOf(st); ok {
		c.setLocal(sym, t)
	}
}

// checkLoop types the bindings, then the body as the value of the loop.
// want may be nil.
func (c *Checker) checkLoop(n *ast.Loop, want typesystem.Type) typesystem.Type {
	for _, b := range n.Bindings {
		c.bindLet(b)
	}
	if want != nil {
		c.check(n.Body, want)
		return c.record(n, want)
	}
	return c.record(n, c.infer(n.Body))
}

// checkRecur checks the arguments of a recur against the bindings of its
// loop or the parameters of its function. The recur itself never yields a
// value, so it takes whatever type its position wants.
func (c *Checker) checkRecur(n *ast.Recur, want typesystem.Type) typesystem.Type {
	var params []typesystem.Type
	switch target := c.result.Recurs[n].(type) {
	case *ast.Loop:
		for _, b := range target.Bindings {
			t := typesystem.Invalid
			if sym, ok := c.defOf(b); ok {
				if lt, ok := c.result.Locals[sym]; ok {
					t = lt
				}
			}
			params = append(params, t)
		}
	case *ast.FunctionDecl:
		if sym, ok := c.defOf(target); ok {
			if ft, ok := sym.Type.(*typesystem.FuncType); ok {
				params = ft.Params
			}
		}
	default:
		// Reported by the resolver.
		c.inferArgs(n.Args)
		return c.record(n, typesystem.Invalid)
	}
	if len(n.Args) != len(params) {
		c.errorf(diagnostics.TypeMismatch, n.Span, "recur takes %d argument(s), found %d", len(params), len(n.Args))
		c.inferArgs(n.Args)
	} else {
		for i, a := range n.Args {
			c.check(a, params[i])
		}
	}
	if want == nil {
		want = c.fresh(typesystem.BoundNone)
	}
	return c.record(n, want)
}

func (c *Checker) checkConstructorPattern(n *ast.ConstructorPattern, t typesystem.Type) bool {
	sym, ok := c.symbolOf(n)
	if !ok || sym.Kind != symbols.ConstructorSymbol {
		c.bindWild(n)
		return false
	}
	alt := sym.Alt
	instance := c.instance(alt.Variant)
	if !c.unify(n.Span, t, instance) {
		c.bindWild(n)
		return false
	}
	fields := typesystem.AltFields(alt, instance)
	ok = true

	switch n.Shape {
	case ast.AltUnit:
		if alt.Kind != typesystem.AltUnit {
			c.errorf(diagnostics.TypeMismatch, n.Span, "%s carries a payload; match it with %s", sym.Name, shapeHint(alt))
			return false
		}
	case ast.AltTuple:
		if alt.Kind != typesystem.AltTuple {
			c.errorf(diagnostics.TypeMismatch, n.Span, "%s is not a tuple alternative; match it with %s", sym.Name, shapeHint(alt))
			c.bindWild(n)
			return false
		}
		if len(n.Args) != len(fields) {
			c.errorf(diagnostics.TypeMismatch, n.Span, "%s has %d field(s), pattern has %d", sym.Name, len(fields), len(n.Args))
			c.bindWild(n)
			return false
		}
		for i, a := range n.Args {
			ok = c.checkPattern(a, fields[i].Type) && ok
		}
	case ast.AltRecord:
		if alt.Kind != typesystem.AltRecord {
			c.errorf(diagnostics.TypeMismatch, n.Span, "%s is not a record alternative; match it with %s", sym.Name, shapeHint(alt))
			c.bindWild(n)
			return false
		}
		seen := make(map[string]bool)
		for _, fp := range n.Fields {
			f, _, found := alt.Field(fp.Name)
			switch {
			case !found:
				c.errorf(diagnostics.UnknownField, fp.Span, "%s has no field %s", sym.Name, fp.Name)
				c.bindWild(fp.Pattern)
				ok = false
				continue
			case seen[fp.Name]:
				c.errorf(diagnostics.DuplicateField, fp.Span, "field %s appears twice in the pattern", fp.Name)
				ok = false
			}
			seen[fp.Name] = true
			ft := f.Type
			for _, inst := range fields {
				if inst.Name == f.Name {
					ft = inst.Type
				}
			}
			ok = c.checkPattern(fp.Pattern, ft) && ok
		}
	}
	return ok
}

func shapeHint(alt *typesystem.Alternative) string {
	switch alt.Kind {
	case typesystem.AltTuple:
		return alt.Tag + "(...)"
	case typesystem.AltRecord:
		return alt.Tag + " { ... }"
	}
	return alt.Tag
}

// bindWild types the variables of a pattern that could not be checked, so
// that arm bodies do not cascade errors.
func (c *Checker) bindWild(p ast.Pattern) {
	ast.Inspect(p, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.BindingPattern:
			if sym, ok := c.defOf(n); ok {
				c.setLocal(sym, typesystem.Invalid)
			}
		case ast.Pattern:
			if _, ok := c.result.Patterns[n]; !ok {
				c.recordPattern(n, typesystem.Invalid)
			}
		}
		return true
	})
}
