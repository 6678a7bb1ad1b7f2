package codegen

import (
	"fmt"
	"sort"

	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// emitRuntime emits the support classes the module refers to. Every module
// carries its own copies; the session keeps one per name.
func (g *generator) emitRuntime() {
	arities := make([]int, 0, len(g.arities))
	for n := range g.arities {
		arities = append(arities, n)
	}
	sort.Ints(arities)
	for _, n := range arities {
		c := g.newClass(classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract, funcClass(n), objectClass)
		c.AddAbstractMethod(classfile.AccPublic, config.FuncApplyName, applyDesc(n))
	}
	tuples := make([]int, 0, len(g.tuples))
	for n := range g.tuples {
		tuples = append(tuples, n)
	}
	sort.Ints(tuples)
	for _, n := range tuples {
		g.emitTuple(n)
	}
	if g.usesOps {
		g.emitOps()
	}
}

// emitTuple emits the TupleN class. Elements are erased to Object and read
// back with a cast, the way generic struct fields are.
func (g *generator) emitTuple(arity int) {
	fields := make([]typesystem.Field, arity)
	for i := range fields {
		fields[i] = typesystem.Field{
			Name: typesystem.TupleFieldName(i),
			Type: &typesystem.TypeParam{Name: fmt.Sprintf("T%d", i)},
		}
	}
	c := g.newClass(classfile.AccPublic|classfile.AccSuper|classfile.AccFinal, tupleClass(arity), objectClass)
	g.emitData(c, objectClass, "", fields, shapeTuple)
}

// opsKinds lists the boxed numerics Ops dispatches on, most common first.
var opsKinds = []byte{'I', 'J', 'D', 'F', 'S', 'B', 'C'}

// emitOps emits arithmetic and ordering over boxed numbers for code whose
// operand types are erased type parameters.
func (g *generator) emitOps() {
	c := g.newClass(classfile.AccPublic|classfile.AccSuper|classfile.AccFinal, opsClass, objectClass)
	opsMethod(c, "add", classfile.IADD, 2)
	opsMethod(c, "sub", classfile.ISUB, 2)
	opsMethod(c, "mul", classfile.IMUL, 2)
	opsMethod(c, "div", classfile.IDIV, 2)
	opsMethod(c, "rem", classfile.IREM, 2)
	opsMethod(c, "neg", classfile.INEG, 1)

	a := c.AddMethod(classfile.AccPublic|classfile.AccStatic, "compare", "("+objectDesc+objectDesc+")I")
	a.Load(0)
	a.CheckCast("java/lang/Comparable")
	a.Load(1)
	a.Invoke(classfile.INVOKEINTERFACE, "java/lang/Comparable", "compareTo", "("+objectDesc+")I", true)
	a.ReturnValue()
}

// opsMethod emits one static Ops method taking arity boxed operands of the
// same wrapper class. op is the int form of the instruction.
func opsMethod(c *classfile.ClassBuilder, name string, op classfile.Opcode, arity int) {
	desc := "("
	for i := 0; i < arity; i++ {
		desc += objectDesc
	}
	a := c.AddMethod(classfile.AccPublic|classfile.AccStatic, name, desc+")"+objectDesc)
	for _, p := range opsKinds {
		w := wrappers[p]
		next := a.NewLabel()
		a.Load(0)
		a.InstanceOf(w.class)
		a.Jump(classfile.IFEQ, next)
		for i := 0; i < arity; i++ {
			a.Load(i)
			a.CheckCast(w.class)
			a.Invoke(classfile.INVOKEVIRTUAL, w.class, w.unbox, "()"+string(p), false)
		}
		a.Math(op + kindOffset(p))
		switch p {
		case 'S':
			a.Convert(classfile.I2S)
		case 'B':
			a.Convert(classfile.I2B)
		case 'C':
			a.Convert(classfile.I2C)
		}
		a.Invoke(classfile.INVOKESTATIC, w.class, "valueOf", "("+string(p)+")"+classDesc(w.class), false)
		a.ReturnValue()
		a.Mark(next)
	}
	class := "java/lang/IllegalArgumentException"
	a.New(class)
	a.Dup()
	a.PushString(name + ": operands are not numbers of one kind")
	a.Invoke(classfile.INVOKESPECIAL, class, "<init>", "("+stringDesc+")V", false)
	a.Throw()
}
