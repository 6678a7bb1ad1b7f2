package codegen

import (
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// dataShape selects the toString layout of a data class.
type dataShape int

const (
	shapeRecord dataShape = iota // P { x: 1, y: 2 }
	shapeTuple                   // Some(3)
	shapeUnit                    // None
)

func (g *generator) emitStruct(st *typesystem.StructType) {
	class := structClass(st)
	c := g.newClass(classfile.AccPublic|classfile.AccSuper|classfile.AccFinal, class, objectClass)
	g.emitData(c, objectClass, st.Name, st.Fields, shapeRecord)
}

// emitVariant emits the abstract base class and one final subclass per
// alternative. Unit alternatives are singletons.
func (g *generator) emitVariant(vt *typesystem.VariantType) {
	base := variantClass(vt)
	c := g.newClass(classfile.AccPublic|classfile.AccSuper|classfile.AccAbstract, base, objectClass)
	a := c.AddMethod(classfile.AccProtected, "<init>", "()V")
	a.Load(0)
	a.Invoke(classfile.INVOKESPECIAL, objectClass, "<init>", "()V", false)
	a.Return()

	for _, alt := range vt.Alternatives {
		class := altClass(alt)
		ac := g.newClass(classfile.AccPublic|classfile.AccSuper|classfile.AccFinal, class, base)
		switch alt.Kind {
		case typesystem.AltUnit:
			g.emitData(ac, base, alt.Tag, nil, shapeUnit)
			ac.AddField(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, instanceField, classDesc(class))
			clinit := ac.AddMethod(classfile.AccStatic, "<clinit>", "()V")
			clinit.New(class)
			clinit.Dup()
			clinit.Invoke(classfile.INVOKESPECIAL, class, "<init>", "()V", false)
			clinit.PutStatic(class, instanceField, classDesc(class))
			clinit.Return()
		case typesystem.AltTuple:
			g.emitData(ac, base, alt.Tag, alt.Fields, shapeTuple)
		default:
			g.emitData(ac, base, alt.Tag, alt.Fields, shapeRecord)
		}
	}
}

// emitData adds final fields, an all-fields constructor and the derived
// equals, hashCode and toString to c.
func (g *generator) emitData(c *classfile.ClassBuilder, super, label string, fields []typesystem.Field, shape dataShape) {
	class := c.Name()
	for _, f := range fields {
		c.AddField(classfile.AccPublic|classfile.AccFinal, f.Name, g.slotDesc(f.Type))
	}

	a := c.AddMethod(classfile.AccPublic, "<init>", g.fieldsDesc(fields))
	a.Load(0)
	a.Invoke(classfile.INVOKESPECIAL, super, "<init>", "()V", false)
	slot := 1
	for _, f := range fields {
		desc := g.slotDesc(f.Type)
		a.Load(0)
		a.Load(slot)
		a.PutField(class, f.Name, desc)
		slot += classfile.VTypeOf(desc).Size()
	}
	a.Return()

	g.emitEquals(c, fields)
	g.emitHashCode(c, label, fields)
	g.emitToString(c, label, fields, shape)
}

func (g *generator) emitEquals(c *classfile.ClassBuilder, fields []typesystem.Field) {
	class := c.Name()
	a := c.AddMethod(classfile.AccPublic, "equals", "("+objectDesc+")Z")
	no := a.NewLabel()
	a.Load(1)
	a.InstanceOf(class)
	a.Jump(classfile.IFEQ, no)
	if len(fields) > 0 {
		a.Load(1)
		a.CheckCast(class)
		other := a.NewLocal(classfile.Object(class))
		a.Store(other)
		for _, f := range fields {
			desc := g.slotDesc(f.Type)
			a.Load(0)
			a.GetField(class, f.Name, desc)
			a.Load(other)
			a.GetField(class, f.Name, desc)
			switch desc {
			case "Z", "B", "C", "S", "I":
				a.Jump(classfile.IF_ICMPNE, no)
			case "J":
				a.Compare(classfile.LCMP)
				a.Jump(classfile.IFNE, no)
			case "F", "D":
				// Float.compare treats NaN as equal to itself, like the boxed equals.
				w := wrappers[desc[0]].class
				a.Invoke(classfile.INVOKESTATIC, w, "compare", "("+desc+desc+")I", false)
				a.Jump(classfile.IFNE, no)
			default:
				a.Invoke(classfile.INVOKESTATIC, "java/util/Objects", "equals", "("+objectDesc+objectDesc+")Z", false)
				a.Jump(classfile.IFEQ, no)
			}
		}
	}
	a.PushInt(1)
	a.ReturnValue()
	a.Mark(no)
	a.PushInt(0)
	a.ReturnValue()
}

// emitHashCode combines the field hashes as 31*h + hash(field), seeded with
// the hash of the type's name.
func (g *generator) emitHashCode(c *classfile.ClassBuilder, label string, fields []typesystem.Field) {
	class := c.Name()
	a := c.AddMethod(classfile.AccPublic, "hashCode", "()I")
	a.PushInt(javaHash(label))
	for _, f := range fields {
		desc := g.slotDesc(f.Type)
		a.PushInt(31)
		a.Math(classfile.IMUL)
		a.Load(0)
		a.GetField(class, f.Name, desc)
		if isPrimitiveDesc(desc) {
			a.Invoke(classfile.INVOKESTATIC, wrappers[desc[0]].class, "hashCode", "("+desc+")I", false)
		} else {
			a.Invoke(classfile.INVOKESTATIC, "java/util/Objects", "hashCode", "("+objectDesc+")I", false)
		}
		a.Math(classfile.IADD)
	}
	a.ReturnValue()
}

const builderClass = "java/lang/StringBuilder"

func (g *generator) emitToString(c *classfile.ClassBuilder, label string, fields []typesystem.Field, shape dataShape) {
	class := c.Name()
	a := c.AddMethod(classfile.AccPublic, "toString", "()"+stringDesc)
	if shape == shapeUnit || (shape == shapeRecord && len(fields) == 0) {
		if shape == shapeUnit {
			a.PushString(label)
		} else {
			a.PushString(label + " {}")
		}
		a.ReturnValue()
		return
	}

	open, sep, end := "(", ", ", ")"
	if shape == shapeRecord {
		open, end = " { ", " }"
	}
	a.New(builderClass)
	a.Dup()
	a.Invoke(classfile.INVOKESPECIAL, builderClass, "<init>", "()V", false)
	text := label + open
	for i, f := range fields {
		if i > 0 {
			text += sep
		}
		if shape == shapeRecord {
			text += f.Name + ": "
		}
		if typesystem.IsUnit(f.Type) {
			text += "()"
			continue
		}
		appendString(a, text)
		text = ""
		desc := g.slotDesc(f.Type)
		a.Load(0)
		a.GetField(class, f.Name, desc)
		switch {
		case desc == "B" || desc == "S":
			desc = "I"
		case isPrimitiveDesc(desc) || desc == stringDesc:
		default:
			desc = objectDesc
		}
		a.Invoke(classfile.INVOKEVIRTUAL, builderClass, "append", "("+desc+")L"+builderClass+";", false)
	}
	appendString(a, text+end)
	a.Invoke(classfile.INVOKEVIRTUAL, builderClass, "toString", "()"+stringDesc, false)
	a.ReturnValue()
}

func appendString(a *classfile.Assembler, s string) {
	if s == "" {
		return
	}
	a.PushString(s)
	a.Invoke(classfile.INVOKEVIRTUAL, builderClass, "append", "("+stringDesc+")L"+builderClass+";", false)
}
