package codegen

import (
	"strings"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// compile leaves the natural representation of e on the stack (nothing for
// Unit).
func (f *fn) compile(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLit:
		f.pushConst(n.Value, f.natural(n))
	case *ast.FloatLit:
		f.pushConst(n.Value, f.natural(n))
	case *ast.CharLit:
		f.a.PushInt(int32(n.Value))
	case *ast.BoolLit:
		f.a.PushInt(boolInt(n.Value))
	case *ast.StringLit:
		f.a.PushString(n.Value)
	case *ast.UnitLit:
	case *ast.Identifier:
		f.compileSymbol(n)
	case *ast.FieldAccess:
		f.compileFieldAccess(n)
	case *ast.Call:
		f.compileCall(n)
	case *ast.BinaryOp:
		f.compileBinary(n)
	case *ast.UnaryOp:
		f.compileUnary(n)
	case *ast.IfExpr:
		f.compileIf(n)
	case *ast.MatchExpr:
		f.compileMatch(n)
	case *ast.Block:
		f.compileBlock(n)
	case *ast.StructLiteral:
		f.compileStructLiteral(n)
	case *ast.Lambda:
		f.compileLambda(n)
	case *ast.Conversion:
		f.compileConversion(n)
	case *ast.ForeignCall:
		f.compileForeignCall(n)
	case *ast.ForeignField:
		f.compileForeignField(n)
	case *ast.TupleLit:
		f.compileTuple(n)
	case *ast.Loop:
		f.compileLoop(n)
	case *ast.Recur:
		f.compileRecur(n)
	default:
		f.fail("unsupported expression %T at %s", e, e.GetSpan())
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// pushConst pushes a numeric constant as the primitive desc.
func (f *fn) pushConst(v interface{}, desc string) {
	var i int64
	var d float64
	switch x := v.(type) {
	case int64:
		i, d = x, float64(x)
	case float64:
		i, d = int64(x), x
	}
	switch desc {
	case "J":
		f.a.PushLong(i)
	case "F":
		f.a.PushFloat(float32(d))
	case "D":
		f.a.PushDouble(d)
	default:
		f.a.PushInt(int32(i))
	}
}

func (f *fn) symbol(n ast.Node) (*symbols.Symbol, bool) {
	return f.res.Bindings.Lookup(n)
}

// compileSymbol loads the value a name denotes.
func (f *fn) compileSymbol(n ast.Expr) {
	sym, ok := f.symbol(n)
	if !ok {
		f.fail("unbound name at %s", n.GetSpan())
	}
	natural := f.natural(n)
	switch {
	case sym.Kind == symbols.ValueSymbol && sym.IsModuleLevel():
		desc := f.desc(sym.Type)
		if desc != voidDesc {
			f.a.GetStatic(sym.Module, sym.Name, desc)
		}
		f.coerce(desc, natural)
	case sym.Kind == symbols.ValueSymbol:
		f.load(sym)
		f.coerce(f.desc(f.res.Locals[sym]), natural)
	case sym.Kind == symbols.FunctionSymbol:
		class := f.refFor(sym)
		f.a.New(class)
		f.a.Dup()
		f.a.Invoke(classfile.INVOKESPECIAL, class, "<init>", "()V", false)
		f.coerce(classDesc(class), natural)
	case sym.Kind == symbols.ConstructorSymbol && sym.Alt.Kind == typesystem.AltUnit:
		class := altClass(sym.Alt)
		f.a.GetStatic(class, instanceField, classDesc(class))
		f.coerce(classDesc(class), natural)
	default:
		f.fail("%s %s is not a value", sym.Kind, sym)
	}
}

func (f *fn) compileFieldAccess(n *ast.FieldAccess) {
	if _, ok := f.symbol(n); ok {
		// Qualified reference to a member of an imported module.
		f.compileSymbol(n)
		return
	}
	target := f.typeAfter(n.Target)
	if tt, ok := target.(*typesystem.TupleType); ok {
		if _, ok := tt.Elem(n.Field); !ok {
			f.fail("%s has no field %s", tt, n.Field)
		}
		class := tupleClass(len(tt.Elems))
		f.value(n.Target, classDesc(class))
		f.a.GetField(class, n.Field, objectDesc)
		f.coerce(objectDesc, f.natural(n))
		return
	}
	base, _ := typesystem.Nominal(target)
	st, ok := base.(*typesystem.StructType)
	if !ok {
		f.fail("field access on %s at %s", target, n.Span)
	}
	field, _, ok := st.Field(n.Field)
	if !ok {
		f.fail("%s has no field %s", st.Name, n.Field)
	}
	class := structClass(st)
	f.value(n.Target, classDesc(class))
	desc := f.slotDesc(field.Type)
	f.a.GetField(class, n.Field, desc)
	f.coerce(f.unitAware(desc, field.Type), f.natural(n))
}

// unitAware is the descriptor a stored value should be read back as: Unit
// slots hold null, which is dropped.
func (f *fn) unitAware(desc string, t typesystem.Type) string {
	if typesystem.IsUnit(t) {
		return objectDesc
	}
	return desc
}

// compileStructLiteral builds a struct or record alternative. Field values
// are evaluated in the order they are written.
func (f *fn) compileStructLiteral(n *ast.StructLiteral) {
	sym, ok := f.symbol(n)
	if !ok {
		f.fail("unbound struct literal at %s", n.Span)
	}
	var class string
	var fields []typesystem.Field
	switch {
	case sym.Kind == symbols.ConstructorSymbol:
		class, fields = altClass(sym.Alt), sym.Alt.Fields
	default:
		st := sym.Type.(*typesystem.StructType)
		class, fields = structClass(st), st.Fields
	}

	inits := make(map[string]ast.Expr, len(n.Fields))
	inOrder := len(n.Fields) == len(fields)
	for i, fi := range n.Fields {
		inits[fi.Name] = fi.Value
		if inOrder && fields[i].Name != fi.Name {
			inOrder = false
		}
	}

	if inOrder {
		f.a.New(class)
		f.a.Dup()
		for _, fd := range fields {
			f.value(inits[fd.Name], f.slotDesc(fd.Type))
		}
	} else {
		temps := make(map[string]int, len(fields))
		for _, fi := range n.Fields {
			desc := f.slotDesc(f.fieldType(fields, fi.Name))
			f.value(fi.Value, desc)
			temps[fi.Name] = f.temp(desc)
		}
		f.a.New(class)
		f.a.Dup()
		for _, fd := range fields {
			f.a.Load(temps[fd.Name])
		}
	}
	f.a.Invoke(classfile.INVOKESPECIAL, class, "<init>", f.fieldsDesc(fields), false)
	f.coerce(classDesc(class), f.natural(n))
}

func (f *fn) fieldType(fields []typesystem.Field, name string) typesystem.Type {
	for _, fd := range fields {
		if fd.Name == name {
			return fd.Type
		}
	}
	f.fail("no field %s", name)
	return nil
}

func (f *fn) compileBlock(n *ast.Block) {
	base := f.a.LocalCount()
	for _, st := range n.Stmts {
		switch s := st.(type) {
		case *ast.LetStmt:
			sym := f.def(s)
			desc := f.desc(f.res.Locals[sym])
			f.value(s.Value, desc)
			f.bindTop(sym, desc)
		case *ast.ExprStmt:
			f.coerce(f.expr(s.Expr), voidDesc)
		}
	}
	natural := f.natural(n)
	if n.Result != nil {
		f.value(n.Result, natural)
	} else {
		f.coerce(voidDesc, natural)
	}
	f.a.Truncate(base)
}

// compileConversion applies an explicit `as`: numeric conversions between
// primitives and checked casts between host reference types.
func (f *fn) compileConversion(n *ast.Conversion) {
	from := f.expr(n.Value)
	to := f.natural(n)
	if from != to && !isPrimitiveDesc(from) && !isPrimitiveDesc(to) && to != objectDesc {
		f.a.CheckCast(classfile.ClassOf(to))
	}
	f.coerce(from, to)
}

func (f *fn) compileUnary(n *ast.UnaryOp) {
	if n.Op == token.BANG {
		f.materialize(n)
		return
	}
	natural := f.natural(n)
	if isPrimitiveDesc(natural) {
		f.value(n.Operand, natural)
		f.a.Math(classfile.INEG + kindOffset(natural[0]))
		return
	}
	f.value(n.Operand, objectDesc)
	f.usesOps = true
	f.a.Invoke(classfile.INVOKESTATIC, opsClass, "neg", "("+objectDesc+")"+objectDesc, false)
	f.coerce(objectDesc, natural)
}

func (f *fn) compileTuple(n *ast.TupleLit) {
	arity := len(n.Elems)
	class := tupleClass(arity)
	f.tuples[arity] = true
	f.a.New(class)
	f.a.Dup()
	for _, e := range n.Elems {
		f.value(e, objectDesc)
	}
	f.a.Invoke(classfile.INVOKESPECIAL, class, "<init>", "("+strings.Repeat(objectDesc, arity)+")V", false)
	f.coerce(classDesc(class), f.natural(n))
}
