package codegen

import (
	"fmt"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/typesystem"
)

func (f *fn) compileIf(n *ast.IfExpr) {
	no := f.a.NewLabel()
	f.branch(n.Cond, no, false)
	if n.Else == nil {
		f.value(n.Then, voidDesc)
		f.a.Mark(no)
		return
	}
	want := f.natural(n)
	end := f.a.NewLabel()
	f.value(n.Then, want)
	f.a.Jump(classfile.GOTO, end)
	f.a.Mark(no)
	f.value(n.Else, want)
	f.a.Mark(end)
}

// compileMatch tests the arms in source order. Each arm falls through to the
// next on a failed test; a fallthrough past the last arm throws.
func (f *fn) compileMatch(n *ast.MatchExpr) {
	base := f.a.LocalCount()
	want := f.natural(n)
	d := f.expr(n.Scrutinee)
	slot := -1
	if d != voidDesc {
		slot = f.temp(d)
	}
	armBase := f.a.LocalCount()

	end := f.a.NewLabel()
	for _, arm := range n.Arms {
		next := f.a.NewLabel()
		f.test(arm.Pattern, slot, d, next)
		f.value(arm.Body, want)
		f.a.Jump(classfile.GOTO, end)
		f.a.Mark(next)
		f.a.Truncate(armBase)
		if !f.a.Reachable() {
			// An irrefutable arm; the rest can never run.
			break
		}
	}
	if f.a.Reachable() {
		class := "java/lang/IllegalStateException"
		f.a.New(class)
		f.a.Dup()
		f.a.PushString(fmt.Sprintf("non-exhaustive match at %s", n.Span))
		f.a.Invoke(classfile.INVOKESPECIAL, class, "<init>", "("+stringDesc+")V", false)
		f.a.Throw()
	}
	f.a.Mark(end)
	f.a.Truncate(base)
}

// test jumps to no unless the value held in slot (of descriptor d, or no
// slot for Unit) matches p. Variables bound by p alias slots.
func (f *fn) test(p ast.Pattern, slot int, d string, no *classfile.Label) {
	switch n := p.(type) {
	case *ast.WildcardPattern:
	case *ast.BindingPattern:
		sym := f.def(n)
		f.slots[sym] = slot
	case *ast.LiteralPattern:
		f.testLiteral(n, slot, d, no)
	case *ast.ConstructorPattern:
		f.testConstructor(n, slot, no)
	case *ast.TuplePattern:
		f.testTuple(n, slot, d, no)
	default:
		f.fail("unsupported pattern %T", p)
	}
}

func (f *fn) testLiteral(n *ast.LiteralPattern, slot int, d string, no *classfile.Label) {
	switch {
	case d == voidDesc:
		// () is the only Unit value.
	case d == "Z":
		f.a.Load(slot)
		lit, _ := n.Value.(*ast.BoolLit)
		if lit != nil && lit.Value {
			f.a.Jump(classfile.IFEQ, no)
		} else {
			f.a.Jump(classfile.IFNE, no)
		}
	case isPrimitiveDesc(d):
		f.a.Load(slot)
		f.value(n.Value, d)
		switch stackKind(d[0]) {
		case 'I':
			f.a.Jump(classfile.IF_ICMPNE, no)
			return
		case 'J':
			f.a.Compare(classfile.LCMP)
		case 'F':
			f.a.Compare(classfile.FCMPL)
		case 'D':
			f.a.Compare(classfile.DCMPL)
		}
		f.a.Jump(classfile.IFNE, no)
	case d == stringDesc:
		f.value(n.Value, stringDesc)
		f.a.Load(slot)
		f.a.Invoke(classfile.INVOKEVIRTUAL, stringClass, "equals", "("+objectDesc+")Z", false)
		f.a.Jump(classfile.IFEQ, no)
	default:
		f.a.Load(slot)
		f.value(n.Value, objectDesc)
		f.a.Invoke(classfile.INVOKESTATIC, "java/util/Objects", "equals", "("+objectDesc+objectDesc+")Z", false)
		f.a.Jump(classfile.IFEQ, no)
	}
}

// testConstructor checks the alternative with instanceof and then tests the
// payload fields the pattern names.
func (f *fn) testConstructor(n *ast.ConstructorPattern, slot int, no *classfile.Label) {
	sym, ok := f.symbol(n)
	if !ok {
		f.fail("unbound constructor pattern at %s", n.Span)
	}
	alt := sym.Alt
	class := altClass(alt)
	f.a.Load(slot)
	f.a.InstanceOf(class)
	f.a.Jump(classfile.IFEQ, no)

	type sub struct {
		field string
		p     ast.Pattern
	}
	var subs []sub
	for i, a := range n.Args {
		subs = append(subs, sub{typesystem.TupleFieldName(i), a})
	}
	for _, fp := range n.Fields {
		subs = append(subs, sub{fp.Name, fp.Pattern})
	}
	live := subs[:0]
	for _, s := range subs {
		if _, wild := s.p.(*ast.WildcardPattern); !wild {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return
	}

	f.a.Load(slot)
	f.a.CheckCast(class)
	cast := f.temp(classDesc(class))
	for _, s := range live {
		field, _, ok := alt.Field(s.field)
		if !ok {
			f.fail("%s has no field %s", alt.Tag, s.field)
		}
		stored := f.slotDesc(field.Type)
		f.a.Load(cast)
		f.a.GetField(class, s.field, stored)
		d := f.desc(f.res.Patterns[s.p])
		f.coerce(f.unitAware(stored, field.Type), d)
		subSlot := -1
		if d != voidDesc {
			subSlot = f.temp(d)
		}
		f.test(s.p, subSlot, d, no)
	}
}

// testTuple tests the elements a tuple pattern names. A tuple of the right
// arity always matches by type, so there is no class test.
func (f *fn) testTuple(n *ast.TuplePattern, slot int, d string, no *classfile.Label) {
	class := tupleClass(len(n.Elems))
	f.tuples[len(n.Elems)] = true
	for i, p := range n.Elems {
		if _, wild := p.(*ast.WildcardPattern); wild {
			continue
		}
		pd := f.desc(f.res.Patterns[p])
		f.a.Load(slot)
		if d != classDesc(class) {
			f.a.CheckCast(class)
		}
		f.a.GetField(class, typesystem.TupleFieldName(i), objectDesc)
		f.coerce(objectDesc, pd)
		sub := -1
		if pd != voidDesc {
			sub = f.temp(pd)
		}
		f.test(p, sub, pd, no)
	}
}

// recurHead is where a recur jumps: the loop head label and the slots of
// the loop variables or parameters it rebinds. A slot of -1 holds Unit.
type recurHead struct {
	label *classfile.Label
	slots []int
	descs []string
}

// compileLoop binds the loop variables and marks the head after them. The
// body runs with them in scope; a recur stores into the same slots and
// jumps back.
func (f *fn) compileLoop(n *ast.Loop) {
	base := f.a.LocalCount()
	head := &recurHead{label: f.a.NewLabel()}
	for _, b := range n.Bindings {
		sym := f.def(b)
		desc := f.desc(f.res.Locals[sym])
		f.value(b.Value, desc)
		f.bindTop(sym, desc)
		head.slots = append(head.slots, f.slots[sym])
		head.descs = append(head.descs, desc)
	}
	f.heads[n] = head
	f.a.MarkLoop(head.label)
	f.value(n.Body, f.natural(n))
	f.a.Truncate(base)
}

// compileRecur evaluates all the new values before storing any of them,
// then jumps to the head. The code after the jump is dead but still has to
// leave the value its position expects.
func (f *fn) compileRecur(n *ast.Recur) {
	head, ok := f.heads[f.res.Recurs[n]]
	if !ok {
		f.fail("recur at %s has no loop head", n.Span)
	}
	for i, arg := range n.Args {
		f.value(arg, head.descs[i])
	}
	for i := len(n.Args) - 1; i >= 0; i-- {
		if head.slots[i] >= 0 {
			f.a.Store(head.slots[i])
		}
	}
	f.a.Jump(classfile.GOTO, head.label)
	if natural := f.natural(n); natural != voidDesc {
		f.a.Resume(classfile.VTypeOf(natural))
	} else {
		f.a.Resume()
	}
}
