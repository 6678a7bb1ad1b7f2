package codegen

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

const printStreamDesc = "Ljava/io/PrintStream;"

func (f *fn) compileCall(n *ast.Call) {
	if sym, ok := f.calleeSymbol(n.Callee); ok {
		switch {
		case sym.Builtin == symbols.BuiltinPrintln:
			f.a.GetStatic("java/lang/System", "out", printStreamDesc)
			f.println(f.expr(n.Args[0]))
			return
		case sym.Builtin == symbols.BuiltinShow:
			f.show(f.expr(n.Args[0]))
			return
		case sym.Kind == symbols.FunctionSymbol:
			f.callStatic(n, sym)
			return
		case sym.Kind == symbols.ConstructorSymbol:
			f.construct(n, sym.Alt)
			return
		}
	}
	f.callValue(n)
}

func (f *fn) calleeSymbol(callee ast.Expr) (*symbols.Symbol, bool) {
	switch callee.(type) {
	case *ast.Identifier, *ast.FieldAccess:
		sym, ok := f.symbol(callee)
		if ok && (sym.Kind == symbols.FunctionSymbol || sym.Kind == symbols.ConstructorSymbol) {
			return sym, true
		}
	}
	return nil, false
}

// callStatic invokes a module function directly. Generic parameters and
// results are erased, so arguments go in as declared and the result is cast
// back to the instantiated type. Labeled arguments are evaluated in
// parameter order.
func (f *fn) callStatic(n *ast.Call, sym *symbols.Symbol) {
	ft := sym.Type.(*typesystem.FuncType)
	args := n.Args
	if ordered, ok := f.res.Args[n]; ok {
		args = ordered
	}
	for i, arg := range args {
		f.value(arg, f.slotDesc(ft.Params[i]))
	}
	f.a.Invoke(classfile.INVOKESTATIC, sym.Module, sym.Name, f.methodDesc(ft), false)
	f.coerce(f.desc(ft.Result), f.natural(n))
}

// construct builds a tuple alternative.
func (f *fn) construct(n *ast.Call, alt *typesystem.Alternative) {
	class := altClass(alt)
	f.a.New(class)
	f.a.Dup()
	for i, arg := range n.Args {
		f.value(arg, f.slotDesc(alt.Fields[i].Type))
	}
	f.a.Invoke(classfile.INVOKESPECIAL, class, "<init>", f.fieldsDesc(alt.Fields), false)
	f.coerce(classDesc(class), f.natural(n))
}

// callValue applies a function value through its FuncN interface.
func (f *fn) callValue(n *ast.Call) {
	arity := len(n.Args)
	class := funcClass(arity)
	f.arities[arity] = true
	f.value(n.Callee, classDesc(class))
	for _, arg := range n.Args {
		f.value(arg, objectDesc)
	}
	f.a.Invoke(classfile.INVOKEINTERFACE, class, config.FuncApplyName, applyDesc(arity), true)
	f.coerce(objectDesc, f.natural(n))
}

// println prints the value on top of the stack, below which sits a
// PrintStream.
func (f *fn) println(desc string) {
	switch {
	case desc == voidDesc:
		f.a.PushString("()")
		desc = stringDesc
	case desc == "B" || desc == "S":
		desc = "I"
	case isPrimitiveDesc(desc) || desc == stringDesc:
	default:
		desc = objectDesc
	}
	f.a.Invoke(classfile.INVOKEVIRTUAL, "java/io/PrintStream", "println", "("+desc+")V", false)
}

// show turns the value on top of the stack into its String form.
func (f *fn) show(desc string) {
	switch {
	case desc == voidDesc:
		f.a.PushString("()")
		return
	case desc == stringDesc:
		return
	case desc == "B" || desc == "S":
		desc = "I"
	case isPrimitiveDesc(desc):
	default:
		desc = objectDesc
	}
	f.a.Invoke(classfile.INVOKESTATIC, stringClass, "valueOf", "("+desc+")"+stringDesc, false)
}

func (f *fn) foreignMember(n ast.Expr) *foreign.Member {
	m, ok := f.res.Foreign[n]
	if !ok {
		f.fail("unresolved foreign member at %s", n.GetSpan())
	}
	return m
}

// compileForeignCall invokes a host member with its exact descriptor.
func (f *fn) compileForeignCall(n *ast.ForeignCall) {
	m := f.foreignMember(n)
	args := n.Args
	switch {
	case m.Kind == foreign.KindConstructor:
		f.a.New(m.Owner)
		f.a.Dup()
		f.foreignArgs(args, m.Params)
		f.a.Invoke(classfile.INVOKESPECIAL, m.Owner, "<init>", m.Descriptor, false)
		f.coerce(classDesc(m.Owner), f.natural(n))
		return
	case m.Static:
		f.foreignArgs(args, m.Params)
		f.a.Invoke(classfile.INVOKESTATIC, m.Owner, m.Name, m.Descriptor, m.OwnerInterface)
	default:
		f.value(args[0], classDesc(m.Owner))
		f.foreignArgs(args[1:], m.Params)
		op := classfile.INVOKEVIRTUAL
		if m.OwnerInterface {
			op = classfile.INVOKEINTERFACE
		}
		f.a.Invoke(op, m.Owner, m.Name, m.Descriptor, m.OwnerInterface)
	}
	f.coerce(m.Result, f.natural(n))
}

func (f *fn) foreignArgs(args []ast.Expr, params []string) {
	for i, arg := range args {
		f.value(arg, params[i])
	}
}

func (f *fn) compileForeignField(n *ast.ForeignField) {
	m := f.foreignMember(n)
	f.a.GetStatic(m.Owner, m.Name, m.Result)
	f.coerce(m.Result, f.natural(n))
}
