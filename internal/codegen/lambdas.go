package codegen

import (
	"fmt"
	"sort"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// capture is one value copied into a closure at creation.
type capture struct {
	sym   *symbols.Symbol
	field string
	desc  string
}

// compileLambda emits the closure class of n and instantiates it with the
// current values of the locals it captures.
func (f *fn) compileLambda(n *ast.Lambda) {
	class, caps := f.emitLambda(n)
	f.a.New(class)
	f.a.Dup()
	ctor := "("
	for _, c := range caps {
		f.load(c.sym)
		ctor += c.desc
	}
	f.a.Invoke(classfile.INVOKESPECIAL, class, "<init>", ctor+")V", false)
	f.coerce(classDesc(class), f.natural(n))
}

func (g *generator) captures(n *ast.Lambda) []capture {
	var caps []capture
	for i, sym := range g.res.Captures[n] {
		desc := g.desc(g.res.Locals[sym])
		if desc == voidDesc {
			continue
		}
		caps = append(caps, capture{sym: sym, field: fmt.Sprintf("%s$%d", sym.Name, i), desc: desc})
	}
	return caps
}

func (g *generator) emitLambda(n *ast.Lambda) (string, []capture) {
	num, ok := g.lambdas[n]
	if !ok {
		g.fail("unnumbered lambda at %s", n.Span)
	}
	class := g.lambdaClass(num)
	arity := len(n.Params)
	g.arities[arity] = true
	c := g.newClass(classfile.AccFinal|classfile.AccSuper|classfile.AccSynthetic, class, objectClass, funcClass(arity))

	caps := g.captures(n)
	ctor := "("
	for _, cp := range caps {
		c.AddField(classfile.AccPrivate|classfile.AccFinal, cp.field, cp.desc)
		ctor += cp.desc
	}
	a := c.AddMethod(0, "<init>", ctor+")V")
	a.Load(0)
	a.Invoke(classfile.INVOKESPECIAL, objectClass, "<init>", "()V", false)
	slot := 1
	for _, cp := range caps {
		a.Load(0)
		a.Load(slot)
		a.PutField(class, cp.field, cp.desc)
		slot += classfile.VTypeOf(cp.desc).Size()
	}
	a.Return()

	apply := c.AddMethod(classfile.AccPublic, config.FuncApplyName, applyDesc(arity))
	lf := g.newFn(apply)
	for i, p := range n.Params {
		sym := g.def(p)
		desc := g.desc(g.res.Locals[sym])
		if desc == voidDesc {
			lf.slots[sym] = -1
			continue
		}
		apply.Load(1 + i)
		lf.coerce(objectDesc, desc)
		lf.bindTop(sym, desc)
	}
	for _, sym := range g.res.Captures[n] {
		lf.slots[sym] = -1
	}
	for _, cp := range caps {
		apply.Load(0)
		apply.GetField(class, cp.field, cp.desc)
		lf.bindTop(cp.sym, cp.desc)
	}
	lf.value(n.Body, objectDesc)
	apply.ReturnValue()
	return class, caps
}

// refFor returns the wrapper class that turns module function sym into a
// function value, scheduling it for emission.
func (g *generator) refFor(sym *symbols.Symbol) string {
	if class, ok := g.refs[sym]; ok {
		return class
	}
	class := g.refClass(sym)
	g.refs[sym] = class
	return class
}

// emitRefs emits one FuncN implementation per module function used as a
// value. apply unboxes its arguments and forwards to the static method.
func (g *generator) emitRefs() {
	syms := make([]*symbols.Symbol, 0, len(g.refs))
	for sym := range g.refs {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return g.refs[syms[i]] < g.refs[syms[j]] })

	for _, sym := range syms {
		class := g.refs[sym]
		ft := sym.Type.(*typesystem.FuncType)
		arity := len(ft.Params)
		g.arities[arity] = true
		c := g.newClass(classfile.AccFinal|classfile.AccSuper|classfile.AccSynthetic, class, objectClass, funcClass(arity))

		a := c.AddMethod(0, "<init>", "()V")
		a.Load(0)
		a.Invoke(classfile.INVOKESPECIAL, objectClass, "<init>", "()V", false)
		a.Return()

		apply := c.AddMethod(classfile.AccPublic, config.FuncApplyName, applyDesc(arity))
		f := g.newFn(apply)
		for i, p := range ft.Params {
			apply.Load(1 + i)
			f.coerce(objectDesc, g.slotDesc(p))
		}
		apply.Invoke(classfile.INVOKESTATIC, sym.Module, sym.Name, g.methodDesc(ft), false)
		f.coerce(g.desc(ft.Result), objectDesc)
		apply.ReturnValue()
	}
}
