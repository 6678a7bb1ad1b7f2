package codegen

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// fn is the emission state of one method body.
type fn struct {
	*generator
	a *classfile.Assembler
	// slots maps locals to their slot; -1 marks Unit locals, which have none.
	slots map[*symbols.Symbol]int
}

func (g *generator) newFn(a *classfile.Assembler) *fn {
	return &fn{generator: g, a: a, slots: make(map[*symbols.Symbol]int)}
}

// natural is the descriptor an expression leaves behind before widening.
func (f *fn) natural(e ast.Expr) string {
	return f.desc(f.res.TypeOf(e))
}

// typeAfter is the type of e once its recorded widening applied.
func (f *fn) typeAfter(e ast.Expr) typesystem.Type {
	if w, ok := f.res.Widenings[e]; ok {
		return w
	}
	return f.res.TypeOf(e)
}

// expr compiles e and applies its widening. It returns the descriptor of
// what is left on the stack.
func (f *fn) expr(e ast.Expr) string {
	f.compile(e)
	d := f.natural(e)
	if w, ok := f.res.Widenings[e]; ok {
		wd := f.desc(w)
		f.coerce(d, wd)
		return wd
	}
	return d
}

// value compiles e and converts the result to want.
func (f *fn) value(e ast.Expr, want string) {
	f.coerce(f.expr(e), want)
}

func (f *fn) ret(desc string) {
	if desc == voidDesc {
		f.a.Return()
		return
	}
	f.a.ReturnValue()
}

// Locals

func (f *fn) bindParam(sym *symbols.Symbol, slot int) {
	if f.desc(f.res.Locals[sym]) == voidDesc {
		f.slots[sym] = -1
		return
	}
	f.slots[sym] = slot
}

// bindTop stores the value on top of the stack into a fresh local for sym.
func (f *fn) bindTop(sym *symbols.Symbol, desc string) {
	if desc == voidDesc {
		f.slots[sym] = -1
		return
	}
	slot := f.a.NewLocal(classfile.VTypeOf(desc))
	f.a.Store(slot)
	f.slots[sym] = slot
}

func (f *fn) load(sym *symbols.Symbol) {
	slot, ok := f.slots[sym]
	if !ok {
		f.fail("local %s has no slot", sym.Name)
	}
	if slot >= 0 {
		f.a.Load(slot)
	}
}

// temp stores the top of the stack in a fresh local and returns its slot.
func (f *fn) temp(desc string) int {
	slot := f.a.NewLocal(classfile.VTypeOf(desc))
	f.a.Store(slot)
	return slot
}

// Conversions between representations

// coerce converts the value on top of the stack from one representation to
// another: primitive widening or narrowing, boxing, unboxing, casts out of
// erased generics and null for Unit.
func (f *fn) coerce(from, to string) {
	switch {
	case from == to:
	case to == voidDesc:
		f.a.Pop()
	case from == voidDesc:
		if isPrimitiveDesc(to) {
			f.fail("cannot materialize Unit as %s", to)
		}
		f.a.PushNull()
	case isPrimitiveDesc(from) && isPrimitiveDesc(to):
		f.convert(from[0], to[0])
	case isPrimitiveDesc(from):
		f.box(from[0])
	case isPrimitiveDesc(to):
		f.unbox(from, to[0])
	case from == objectDesc:
		f.a.CheckCast(classfile.ClassOf(to))
	}
	if to != voidDesc && !isPrimitiveDesc(to) {
		f.a.Retype(classfile.VTypeOf(to))
	}
}

func (f *fn) box(p byte) {
	w := wrappers[p]
	f.a.Invoke(classfile.INVOKESTATIC, w.class, "valueOf", "("+string(p)+")"+classDesc(w.class), false)
}

// unbox turns a reference into primitive p. A known wrapper is unboxed as
// itself and then converted; anything else is cast to p's wrapper first.
func (f *fn) unbox(from string, p byte) {
	held, ok := unboxedDesc(from)
	if !ok {
		held = p
		f.a.CheckCast(wrappers[p].class)
	}
	w := wrappers[held]
	f.a.Invoke(classfile.INVOKEVIRTUAL, w.class, w.unbox, "()"+string(held), false)
	f.convert(held, p)
}

// stackKind maps a primitive descriptor to the JVM computational type.
func stackKind(p byte) byte {
	switch p {
	case 'Z', 'B', 'C', 'S', 'I':
		return 'I'
	}
	return p
}

var kindConversions = map[[2]byte]classfile.Opcode{
	{'I', 'J'}: classfile.I2L, {'I', 'F'}: classfile.I2F, {'I', 'D'}: classfile.I2D,
	{'J', 'I'}: classfile.L2I, {'J', 'F'}: classfile.L2F, {'J', 'D'}: classfile.L2D,
	{'F', 'I'}: classfile.F2I, {'F', 'J'}: classfile.F2L, {'F', 'D'}: classfile.F2D,
	{'D', 'I'}: classfile.D2I, {'D', 'J'}: classfile.D2L, {'D', 'F'}: classfile.D2F,
}

// convert emits the primitive conversion from one descriptor to another.
func (f *fn) convert(from, to byte) {
	if from == to {
		return
	}
	fk, tk := stackKind(from), stackKind(to)
	if fk != tk {
		f.a.Convert(kindConversions[[2]byte{fk, tk}])
	}
	switch to {
	case 'B':
		f.a.Convert(classfile.I2B)
	case 'C':
		f.a.Convert(classfile.I2C)
	case 'S':
		if from != 'B' {
			f.a.Convert(classfile.I2S)
		}
	}
}

// kindOffset orders typed arithmetic opcodes: i, l, f, d.
func kindOffset(p byte) classfile.Opcode {
	switch stackKind(p) {
	case 'J':
		return 1
	case 'F':
		return 2
	case 'D':
		return 3
	}
	return 0
}
