package analyzer

import (
	"errors"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// check verifies e against want and returns the type e itself produces. An
// implicit widening from that type to want is recorded, not applied.
func (c *Checker) check(e ast.Expr, want typesystem.Type) typesystem.Type {
	w := c.resolve(want)
	switch n := e.(type) {
	case *ast.IntLit:
		if p, ok := w.(typesystem.Primitive); ok && !n.Long && adoptsIntLiteral(p) && typesystem.IntLiteralFits(n.Value, p) {
			return c.record(n, p)
		}
	case *ast.IfExpr:
		return c.checkIf(n, want)
	case *ast.MatchExpr:
		return c.checkMatch(n, want)
	case *ast.Block:
		return c.checkBlock(n, want)
	case *ast.Loop:
		return c.checkLoop(n, want)
	case *ast.Recur:
		return c.checkRecur(n, want)
	case *ast.TupleLit:
		if tt, ok := w.(*typesystem.TupleType); ok && len(tt.Elems) == len(n.Elems) {
			for i, el := range n.Elems {
				c.check(el, tt.Elems[i])
			}
			return c.record(n, tt)
		}
	case *ast.Lambda:
		if ft, ok := w.(*typesystem.FuncType); ok {
			return c.checkLambda(n, ft)
		}
	case *ast.StructLiteral:
		got := c.inferStructLiteral(n, want)
		c.expect(n, got, want)
		return got
	case *ast.Call:
		got := c.inferCall(n, want)
		c.expect(n, got, want)
		return got
	}
	got := c.infer(e)
	c.expect(e, got, want)
	return got
}

func adoptsIntLiteral(p typesystem.Primitive) bool {
	switch p {
	case typesystem.Byte, typesystem.Short, typesystem.Int, typesystem.Long, typesystem.Float, typesystem.Double:
		return true
	}
	return false
}

// expect reconciles a produced type with the wanted one: a primitive
// widening is recorded on e, anything else must unify.
func (c *Checker) expect(e ast.Expr, got, want typesystem.Type) {
	if gp, ok := c.resolve(got).(typesystem.Primitive); ok {
		if wp, ok := c.resolve(want).(typesystem.Primitive); ok && typesystem.CanWiden(gp, wp) {
			c.result.Widenings[e] = wp
			return
		}
	}
	c.unify(e.GetSpan(), want, got)
}

func (c *Checker) unify(span token.Span, want, got typesystem.Type) bool {
	err := c.decl.unifier.Unify(want, got)
	if err == nil {
		return true
	}
	var bound *typesystem.BoundError
	if errors.As(err, &bound) {
		c.errorf(diagnostics.TypeMismatch, span, "%s is not %s", bound.Type, describeBound(bound.Bound))
		return false
	}
	var mismatch *typesystem.MismatchError
	if errors.As(err, &mismatch) {
		c.errorf(diagnostics.TypeMismatch, span, "expected %s, found %s",
			c.apply(want), c.apply(got))
		return false
	}
	c.errorf(diagnostics.TypeMismatch, span, "%v", err)
	return false
}

func describeBound(b typesystem.Bound) string {
	if b == typesystem.BoundNum {
		return "numeric"
	}
	return "ordered"
}

func (c *Checker) infer(e ast.Expr) typesystem.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		if n.Long {
			return c.record(n, typesystem.Long)
		}
		if !typesystem.IntLiteralFits(n.Value, typesystem.Int) {
			c.errorf(diagnostics.TypeMismatch, n.Span, "integer literal %d does not fit in Int; add an L suffix", n.Value)
			return c.record(n, typesystem.Invalid)
		}
		return c.record(n, typesystem.Int)
	case *ast.FloatLit:
		if n.Single {
			return c.record(n, typesystem.Float)
		}
		return c.record(n, typesystem.Double)
	case *ast.CharLit:
		return c.record(n, typesystem.Char)
	case *ast.StringLit:
		return c.record(n, typesystem.String)
	case *ast.BoolLit:
		return c.record(n, typesystem.Bool)
	case *ast.UnitLit:
		return c.record(n, typesystem.Unit)
	case *ast.Identifier:
		sym, ok := c.symbolOf(n)
		if !ok {
			return c.record(n, typesystem.Invalid)
		}
		return c.record(n, c.symbolValue(sym, n.Span))
	case *ast.FieldAccess:
		return c.record(n, c.inferFieldAccess(n))
	case *ast.Call:
		return c.inferCall(n, nil)
	case *ast.BinaryOp:
		return c.record(n, c.inferBinary(n))
	case *ast.UnaryOp:
		return c.record(n, c.inferUnary(n))
	case *ast.IfExpr:
		return c.inferIf(n)
	case *ast.MatchExpr:
		return c.checkMatch(n, nil)
	case *ast.Block:
		return c.checkBlock(n, nil)
	case *ast.Loop:
		return c.checkLoop(n, nil)
	case *ast.Recur:
		return c.checkRecur(n, nil)
	case *ast.TupleLit:
		elems := make([]typesystem.Type, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = c.infer(el)
		}
		return c.record(n, &typesystem.TupleType{Elems: elems})
	case *ast.StructLiteral:
		return c.inferStructLiteral(n, nil)
	case *ast.Lambda:
		return c.inferLambda(n)
	case *ast.Conversion:
		return c.record(n, c.inferConversion(n))
	case *ast.ForeignCall:
		return c.record(n, c.inferForeignCall(n))
	case *ast.ForeignField:
		return c.record(n, c.inferForeignField(n))
	}
	return typesystem.Invalid
}

// symbolValue is the type of a reference to sym used as a value.
func (c *Checker) symbolValue(sym *symbols.Symbol, span token.Span) typesystem.Type {
	switch sym.Kind {
	case symbols.ValueSymbol:
		if sym.IsModuleLevel() {
			return c.letType(sym, span)
		}
		if t, ok := c.result.Locals[sym]; ok {
			return t
		}
		return typesystem.Invalid
	case symbols.FunctionSymbol:
		if sym.Builtin != symbols.NotBuiltin {
			c.errorf(diagnostics.TypeMismatch, span, "%s can only be called directly", sym.Name)
			return typesystem.Invalid
		}
		ft, ok := c.funcType(sym, span).(*typesystem.FuncType)
		if !ok {
			return typesystem.Invalid
		}
		return c.instantiate(ft)
	case symbols.ConstructorSymbol:
		switch sym.Alt.Kind {
		case typesystem.AltUnit:
			return c.instance(sym.Alt.Variant)
		case typesystem.AltTuple:
			c.errorf(diagnostics.TypeMismatch, span, "%s must be called with %d argument(s)", sym.Name, len(sym.Alt.Fields))
		default:
			c.errorf(diagnostics.TypeMismatch, span, "%s is built with %s { ... }", sym.Name, sym.Name)
		}
		return typesystem.Invalid
	}
	c.errorf(diagnostics.TypeMismatch, span, "%s %q is not a value", sym.Kind, sym.Name)
	return typesystem.Invalid
}

// instantiate replaces the type parameters of a generic signature with
// fresh metas carrying their bounds.
func (c *Checker) instantiate(ft *typesystem.FuncType) *typesystem.FuncType {
	if len(ft.TypeParams) == 0 {
		return ft
	}
	m := make(map[*typesystem.TypeParam]typesystem.Type, len(ft.TypeParams))
	for _, tp := range ft.TypeParams {
		m[tp] = c.fresh(tp.Bound)
	}
	inst := typesystem.Instantiate(&typesystem.FuncType{Params: ft.Params, Result: ft.Result}, m)
	return inst.(*typesystem.FuncType)
}

// instance applies a generic struct or variant to fresh metas.
func (c *Checker) instance(base typesystem.Type) typesystem.Type {
	params := typesystem.Params(base)
	if len(params) == 0 {
		return base
	}
	args := make([]typesystem.Type, len(params))
	for i := range params {
		args[i] = c.fresh(typesystem.BoundNone)
	}
	return &typesystem.Applied{Base: base, Args: args}
}

func (c *Checker) inferFieldAccess(n *ast.FieldAccess) typesystem.Type {
	if sym, ok := c.symbolOf(n); ok {
		// M.name on an imported module.
		return c.symbolValue(sym, n.Span)
	}
	if id, ok := n.Target.(*ast.Identifier); ok {
		if sym, ok := c.symbolOf(id); ok && sym.Kind == symbols.ModuleSymbol {
			// Missing member, already reported.
			return typesystem.Invalid
		}
	}
	target := c.apply(c.infer(n.Target))
	switch t := target.(type) {
	case *typesystem.Meta:
		c.errorf(diagnostics.CannotInferTypeArgument, n.Span,
			"the type of the value must be known to access .%s", n.Field)
		return typesystem.Invalid
	case *typesystem.ForeignType:
		c.errorf(diagnostics.TypeMismatch, n.Span, "use %s#%s to read a host field", foreign.SimpleName(t.Class), n.Field)
		return typesystem.Invalid
	}
	if typesystem.IsInvalid(target) {
		return typesystem.Invalid
	}
	if tt, ok := target.(*typesystem.TupleType); ok {
		if t, ok := tt.Elem(n.Field); ok {
			return t
		}
		c.errorf(diagnostics.UnknownField, n.FieldSpan, "%s has no field %s", target, n.Field)
		return typesystem.Invalid
	}
	base, _ := typesystem.Nominal(target)
	if _, ok := base.(*typesystem.StructType); !ok {
		c.errorf(diagnostics.UnknownField, n.FieldSpan, "%s has no field %s", target, n.Field)
		return typesystem.Invalid
	}
	for _, f := range typesystem.FieldsOf(target) {
		if f.Name == n.Field {
			return f.Type
		}
	}
	c.errorf(diagnostics.UnknownField, n.FieldSpan, "%s has no field %s", target, n.Field)
	return typesystem.Invalid
}

// inferStructLiteral checks a struct or record alternative literal. want,
// when known, seeds the type arguments.
func (c *Checker) inferStructLiteral(n *ast.StructLiteral, want typesystem.Type) typesystem.Type {
	sym, ok := c.symbolOf(n)
	if !ok {
		for _, f := range n.Fields {
			c.infer(f.Value)
		}
		return c.record(n, typesystem.Invalid)
	}

	var result typesystem.Type
	var fields []typesystem.Field
	if sym.Kind == symbols.ConstructorSymbol {
		result = c.instance(sym.Alt.Variant)
		if sym.Alt.Kind != typesystem.AltRecord {
			c.errorf(diagnostics.TypeMismatch, n.Span, "%s is not a record alternative", sym.Name)
			for _, f := range n.Fields {
				c.infer(f.Value)
			}
			return c.record(n, result)
		}
		fields = typesystem.AltFields(sym.Alt, result)
	} else {
		result = c.instance(sym.Type)
		fields = typesystem.FieldsOf(result)
	}
	if want != nil {
		// Failure is reported by the caller's expect.
		_ = c.decl.unifier.Unify(want, result)
	}

	given := make(map[string]bool)
	for _, init := range n.Fields {
		var field *typesystem.Field
		for i := range fields {
			if fields[i].Name == init.Name {
				field = &fields[i]
				break
			}
		}
		switch {
		case field == nil:
			c.errorf(diagnostics.UnknownField, init.Span, "%s has no field %s", sym.Name, init.Name)
			c.infer(init.Value)
		case given[init.Name]:
			c.errorf(diagnostics.DuplicateField, init.Span, "field %s is given twice", init.Name)
			c.infer(init.Value)
		default:
			c.check(init.Value, field.Type)
		}
		given[init.Name] = true
	}
	for _, f := range fields {
		if !given[f.Name] {
			c.errorf(diagnostics.MissingField, n.Span, "missing field %s in %s literal", f.Name, sym.Name)
		}
	}
	return c.record(n, result)
}

func (c *Checker) inferLambda(n *ast.Lambda) typesystem.Type {
	ft := &typesystem.FuncType{}
	for _, p := range n.Params {
		var t typesystem.Type
		if p.Type != nil {
			t = c.buildType(p.Type)
		} else {
			t = c.fresh(typesystem.BoundNone)
		}
		if sym, ok := c.defOf(p); ok {
			c.setLocal(sym, t)
		}
		ft.Params = append(ft.Params, t)
	}
	if n.Result != nil {
		ft.Result = c.buildType(n.Result)
		c.check(n.Body, ft.Result)
	} else {
		ft.Result = c.infer(n.Body)
	}
	return c.record(n, ft)
}

func (c *Checker) checkLambda(n *ast.Lambda, want *typesystem.FuncType) typesystem.Type {
	if len(n.Params) != len(want.Params) {
		c.errorf(diagnostics.TypeMismatch, n.Span, "expected a function of %d parameter(s), found %d",
			len(want.Params), len(n.Params))
		return c.inferLambda(n)
	}
	ft := &typesystem.FuncType{}
	for i, p := range n.Params {
		t := want.Params[i]
		if p.Type != nil {
			t = c.buildType(p.Type)
			c.unify(p.Span, want.Params[i], t)
		}
		if sym, ok := c.defOf(p); ok {
			c.setLocal(sym, t)
		}
		ft.Params = append(ft.Params, t)
	}
	ft.Result = want.Result
	if n.Result != nil {
		ft.Result = c.buildType(n.Result)
		c.unify(n.Result.GetSpan(), want.Result, ft.Result)
	}
	c.check(n.Body, ft.Result)
	return c.record(n, ft)
}

// checkBlock checks statements in order; the trailing expression, if any,
// gives the block its value. want may be nil.
func (c *Checker) checkBlock(n *ast.Block, want typesystem.Type) typesystem.Type {
	for _, s := range n.Stmts {
		switch st := s.(type) {
		case *ast.LetStmt:
			c.bindLet(st)
		case *ast.ExprStmt:
			c.infer(st.Expr)
		}
	}
	switch {
	case n.Result == nil:
		if want != nil {
			c.unify(n.Span, want, typesystem.Unit)
			return c.record(n, want)
		}
		return c.record(n, typesystem.Unit)
	case want != nil:
		c.check(n.Result, want)
		return c.record(n, want)
	default:
		return c.record(n, c.infer(n.Result))
	}
}

func (c *Checker) inferConversion(n *ast.Conversion) typesystem.Type {
	from := c.apply(c.infer(n.Value))
	to := c.buildType(n.Type)
	if typesystem.IsInvalid(from) || typesystem.IsInvalid(to) {
		return to
	}
	if fp, ok := from.(typesystem.Primitive); ok {
		if tp, ok := to.(typesystem.Primitive); ok && typesystem.ConvertibleExplicitly(fp, tp) {
			return to
		}
	}
	if c.referenceConvertible(from, to) {
		return to
	}
	c.errorf(diagnostics.TypeMismatch, n.Span, "cannot convert %s to %s", from, to)
	return to
}

// referenceConvertible allows casts between related host classes and from
// any reference type to java/lang/Object.
func (c *Checker) referenceConvertible(from, to typesystem.Type) bool {
	toClass, ok := classOf(to)
	if !ok {
		return false
	}
	if toClass == foreign.ObjectClass && isReference(from) {
		return true
	}
	fromClass, ok := classOf(from)
	if !ok || c.ns == nil {
		return false
	}
	return foreign.IsSubclass(c.ns, fromClass, toClass) || foreign.IsSubclass(c.ns, toClass, fromClass)
}

// classOf names the host class of a foreign type; String counts as one.
func classOf(t typesystem.Type) (string, bool) {
	switch tt := t.(type) {
	case *typesystem.ForeignType:
		return tt.Class, true
	case typesystem.Primitive:
		if tt == typesystem.String {
			return "java/lang/String", true
		}
	}
	return "", false
}

// isReference reports whether values of t are JVM references.
func isReference(t typesystem.Type) bool {
	switch tt := t.(type) {
	case typesystem.Primitive:
		return tt == typesystem.String
	case *typesystem.Meta:
		return false
	}
	return !typesystem.IsInvalid(t)
}
