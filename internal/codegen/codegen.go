// Package codegen lowers a checked module to JVM class files.
//
// Every module becomes one final class holding its functions as static
// methods and its lets as static fields. Structs, variant alternatives,
// lambdas and function references get classes of their own, named after the
// module class. The runtime support classes a module uses (FuncN interfaces,
// TupleN and Ops) are emitted alongside; the session keeps one copy of each.
package codegen

import (
	"fmt"
	"sort"

	"github.com/funvibe/sasquach/internal/analyzer"
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// Artifact is one generated class file.
type Artifact struct {
	// Name is the internal class name, e.g. app/Main$Point.
	Name  string
	Bytes []byte
}

// Error is a defect in code generation. Checked modules never produce one
// unless the compiler itself is wrong.
type Error struct {
	Module string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("codegen %s: %v", e.Module, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// failure carries an internal error out of deeply nested emission code.
type failure struct{ err error }

type generator struct {
	mod *ast.Module
	res *analyzer.Result

	module  *classfile.ClassBuilder
	classes []*classfile.ClassBuilder

	lambdas map[*ast.Lambda]int
	// refs maps functions used as values to their wrapper class.
	refs    map[*symbols.Symbol]string
	arities map[int]bool
	tuples  map[int]bool
	// heads holds the jump target of each loop and recurring function.
	heads   map[ast.Node]*recurHead
	usesOps bool
}

// Generate emits the classes of mod. It must only be called for modules that
// checked without errors.
func Generate(mod *ast.Module, res *analyzer.Result) (artifacts []Artifact, err error) {
	g := &generator{
		mod:     mod,
		res:     res,
		lambdas: make(map[*ast.Lambda]int),
		refs:    make(map[*symbols.Symbol]string),
		arities: make(map[int]bool),
		tuples:  make(map[int]bool),
		heads:   make(map[ast.Node]*recurHead),
	}
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(failure); ok {
				err = &Error{Module: mod.Name, Err: f.err}
				return
			}
			err = &Error{Module: mod.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	g.numberLambdas()
	g.module = g.newClass(classfile.AccPublic|classfile.AccSuper|classfile.AccFinal, mod.Name, objectClass)
	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.StructDecl:
			g.emitStruct(g.typeOf(d).(*typesystem.StructType))
		case *ast.VariantDecl:
			g.emitVariant(g.typeOf(d).(*typesystem.VariantType))
		case *ast.FunctionDecl:
			g.emitFunction(d)
		}
	}
	g.emitLets()
	g.emitMainWrapper()
	g.emitRefs()
	g.emitRuntime()

	for _, c := range g.classes {
		data, err := c.Bytes()
		if err != nil {
			return nil, &Error{Module: mod.Name, Err: err}
		}
		artifacts = append(artifacts, Artifact{Name: c.Name(), Bytes: data})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

func (g *generator) fail(format string, args ...interface{}) {
	panic(failure{fmt.Errorf(format, args...)})
}

func (g *generator) newClass(access uint16, name, super string, interfaces ...string) *classfile.ClassBuilder {
	c := classfile.NewClass(access, name, super, interfaces...)
	c.SetSourceFile(sourceFileName(g.mod.File))
	g.classes = append(g.classes, c)
	return c
}

func (g *generator) def(node ast.Node) *symbols.Symbol {
	sym, ok := g.res.Defs.Lookup(node)
	if !ok {
		g.fail("no symbol for declaration at %s", node.GetSpan())
	}
	return sym
}

func (g *generator) typeOf(d ast.Decl) typesystem.Type {
	return g.def(d).Type
}

// numberLambdas assigns lambda class numbers in source order.
func (g *generator) numberLambdas() {
	for _, d := range g.mod.Decls {
		ast.Inspect(d, func(n ast.Node) bool {
			if l, ok := n.(*ast.Lambda); ok {
				g.lambdas[l] = len(g.lambdas)
			}
			return true
		})
	}
}

func (g *generator) emitFunction(d *ast.FunctionDecl) {
	sym := g.def(d)
	ft := sym.Type.(*typesystem.FuncType)
	access := classfile.AccStatic
	if d.Pub {
		access |= classfile.AccPublic
	}
	a := g.module.AddMethod(access, d.Name, g.methodDesc(ft))
	f := g.newFn(a)
	slot := 0
	head := &recurHead{label: a.NewLabel()}
	for i, p := range d.Params {
		desc := g.slotDesc(ft.Params[i])
		sym := g.def(p)
		f.bindParam(sym, slot)
		slot += classfile.VTypeOf(desc).Size()
		if f.slots[sym] < 0 {
			desc = voidDesc
		}
		head.slots = append(head.slots, f.slots[sym])
		head.descs = append(head.descs, desc)
	}
	if g.recurs(d) {
		g.heads[d] = head
		a.MarkLoop(head.label)
	}
	f.value(d.Body, g.desc(ft.Result))
	f.ret(g.desc(ft.Result))
}

// recurs reports whether some recur in the module jumps back to target.
func (g *generator) recurs(target ast.Node) bool {
	for _, t := range g.res.Recurs {
		if t == target {
			return true
		}
	}
	return false
}

// emitLets declares a static field per module let and initializes them in
// source order.
func (g *generator) emitLets() {
	var lets []*ast.LetDecl
	for _, d := range g.mod.Decls {
		if l, ok := d.(*ast.LetDecl); ok {
			lets = append(lets, l)
		}
	}
	if len(lets) == 0 {
		return
	}
	a := g.module.AddMethod(classfile.AccStatic, "<clinit>", "()V")
	f := g.newFn(a)
	for _, l := range lets {
		sym := g.def(l)
		desc := g.desc(sym.Type)
		if desc != voidDesc {
			access := classfile.AccStatic | classfile.AccFinal
			if l.Pub {
				access |= classfile.AccPublic
			}
			g.module.AddField(access, l.Name, desc)
		}
		f.value(l.Value, desc)
		if desc != voidDesc {
			a.PutStatic(g.mod.Name, l.Name, desc)
		}
	}
	a.Return()
}

// emitMainWrapper adds the JVM entry point for a parameterless main. It
// prints the result unless main returns Unit.
func (g *generator) emitMainWrapper() {
	var main *ast.FunctionDecl
	for _, d := range g.mod.Decls {
		if fd, ok := d.(*ast.FunctionDecl); ok && fd.Name == config.MainFuncName && len(fd.Params) == 0 && len(fd.TypeParams) == 0 {
			main = fd
		}
	}
	if main == nil {
		return
	}
	ft := g.typeOf(main).(*typesystem.FuncType)
	a := g.module.AddMethod(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V")
	f := g.newFn(a)
	result := g.desc(ft.Result)
	if result == voidDesc {
		a.Invoke(classfile.INVOKESTATIC, g.mod.Name, main.Name, g.methodDesc(ft), false)
		a.Return()
		return
	}
	a.GetStatic("java/lang/System", "out", "Ljava/io/PrintStream;")
	a.Invoke(classfile.INVOKESTATIC, g.mod.Name, main.Name, g.methodDesc(ft), false)
	f.println(result)
	a.Return()
}
