package resolver_test

import (
	"strings"
	"testing"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/parser"
	"github.com/funvibe/sasquach/internal/resolver"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
	"github.com/nalgeon/be"
)

type unit struct {
	mod *ast.Module
	res *resolver.Resolver
}

// resolveAll runs both phases over every source. Sources are given as
// file name / text pairs and share one prelude and id generator.
func resolveAll(t *testing.T, files ...string) ([]unit, diagnostics.List) {
	t.Helper()
	ns, err := foreign.LoadJDK()
	be.Err(t, err, nil)

	ids := &symbols.IDGen{}
	prelude := symbols.NewPrelude(ids)
	var units []unit
	var diags diagnostics.List
	scopes := make(map[string]*symbols.Scope)
	for i := 0; i+1 < len(files); i += 2 {
		mod, errs := parser.Parse(files[i], files[i+1])
		if len(errs) > 0 {
			t.Fatalf("parse errors:\n%s", errs)
		}
		r := resolver.New(mod, prelude, ids, ns)
		diags = append(diags, r.DeclareSignatures()...)
		scopes[mod.Name] = r.Scope()
		units = append(units, unit{mod, r})
	}
	for _, u := range units {
		diags = append(diags, u.res.ResolveBodies(scopes)...)
	}
	return units, diags
}

func resolveOne(t *testing.T, src string) (unit, diagnostics.List) {
	t.Helper()
	units, diags := resolveAll(t, "main.sasq", src)
	return units[0], diags
}

func expectDiag(t *testing.T, diags diagnostics.List, kind diagnostics.Kind, fragment string) {
	t.Helper()
	for _, d := range diags {
		if d.Kind == kind && strings.Contains(d.Message, fragment) {
			return
		}
	}
	t.Fatalf("expected %s containing %q, got:\n%s", kind, fragment, diags)
}

// find returns the first node of type T accepted by match.
func find[T ast.Node](mod *ast.Module, match func(T) bool) T {
	var found T
	done := false
	for _, d := range mod.Decls {
		ast.Inspect(d, func(n ast.Node) bool {
			if done {
				return false
			}
			if v, ok := n.(T); ok && match(v) {
				found, done = v, true
				return false
			}
			return true
		})
	}
	return found
}

func ident(name string) func(*ast.Identifier) bool {
	return func(id *ast.Identifier) bool { return id.Name == name }
}

func TestPhasesInOrder(t *testing.T) {
	mod, _ := parser.Parse("main.sasq", "let x = 1\n")
	ids := &symbols.IDGen{}
	r := resolver.New(mod, symbols.NewPrelude(ids), ids, nil)
	be.Equal(t, r.Phase(), resolver.PhaseNone)

	defer func() {
		be.True(t, recover() != nil)
	}()
	r.ResolveBodies(nil)
}

func TestDeclareSignatures_TopLevel(t *testing.T) {
	u, diags := resolveOne(t, `
pub struct Point[T] { x: T, y: T }
pub variant Option[T] { Some(T), None }
fn helper(a: Int): Int = a
pub let origin = 0
`)
	be.Equal(t, len(diags), 0)
	scope := u.res.Scope()

	point, ok := scope.LookupLocal("Point")
	be.True(t, ok)
	be.Equal(t, point.Kind, symbols.TypeSymbol)
	be.True(t, point.Exported)
	st := point.Type.(*typesystem.StructType)
	be.Equal(t, len(st.Params), 1)

	some, ok := scope.LookupLocal("Some")
	be.True(t, ok)
	be.Equal(t, some.Kind, symbols.ConstructorSymbol)
	be.Equal(t, some.Alt.Kind, typesystem.AltTuple)
	none, _ := scope.LookupLocal("None")
	be.Equal(t, none.Alt.Index, 1)

	helper, _ := scope.LookupLocal("helper")
	be.True(t, !helper.Exported)

	var names []string
	for _, sym := range scope.Exported() {
		names = append(names, sym.Name)
	}
	be.Equal(t, names, []string{"Point", "Option", "Some", "None", "origin"})
}

func TestResolve_LocalsAndParams(t *testing.T) {
	u, diags := resolveOne(t, `
fn f(a: Int): Int {
  let b = a + 1
  b
}
`)
	be.Equal(t, len(diags), 0)
	fn := u.mod.Decls[0].(*ast.FunctionDecl)
	param, ok := u.res.Defs.Lookup(fn.Params[0])
	be.True(t, ok)

	a := find(u.mod, ident("a"))
	sym, ok := u.res.Bindings.Lookup(a)
	be.True(t, ok)
	be.True(t, sym == param)

	b := find(u.mod, ident("b"))
	bsym, _ := u.res.Bindings.Lookup(b)
	let := fn.Body.(*ast.Block).Stmts[0]
	def, _ := u.res.Defs.Lookup(let)
	be.True(t, bsym == def)
}

func TestResolve_ShadowingInBlocks(t *testing.T) {
	u, diags := resolveOne(t, `
fn f(x: Int): Int {
  let x = x + 1
  let x = x * 2
  x
}
`)
	be.Equal(t, len(diags), 0)
	fn := u.mod.Decls[0].(*ast.FunctionDecl)
	block := fn.Body.(*ast.Block)
	first, _ := u.res.Defs.Lookup(block.Stmts[0])
	second, _ := u.res.Defs.Lookup(block.Stmts[1])
	param, _ := u.res.Defs.Lookup(fn.Params[0])

	// Each initializer sees the previous binding of x.
	init1 := block.Stmts[0].(*ast.LetStmt).Value.(*ast.BinaryOp).Left
	s1, _ := u.res.Bindings.Lookup(init1)
	be.True(t, s1 == param)
	init2 := block.Stmts[1].(*ast.LetStmt).Value.(*ast.BinaryOp).Left
	s2, _ := u.res.Bindings.Lookup(init2)
	be.True(t, s2 == first)
	res, _ := u.res.Bindings.Lookup(block.Result)
	be.True(t, res == second)
}

func TestResolve_Duplicates(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"functions", "fn f() = 1\nfn f() = 2\n", `"f" is already defined`},
		{"type and constructor", "struct A { x: Int }\nvariant V { A, B }\n", `"A" is already defined`},
		{"params", "fn f(a: Int, a: Int) = a\n", `"a" is already defined`},
		{"type params", "fn f[T, T](a: T) = a\n", `type parameter "T"`},
		{"pattern vars", "variant P { Pair(Int, Int) }\nfn f(p: P) = match p { Pair(a, a) -> a }\n", `"a" is already defined`},
		{"imports", "import lib/A\nimport other/A\n", `"A" is already defined`},
		{"param labels", "fn f(by a: Int, by b: Int) = a\n", `parameter label "by" is already used`},
		{"type and alias", "struct A { x: Int }\ntype A = Int\n", `"A" is already defined`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := resolveAll(t, "main.sasq", tt.src,
				"a.sasq", "module lib/A\n", "b.sasq", "module other/A\n")
			expectDiag(t, diags, diagnostics.DuplicateDefinition, tt.frag)
		})
	}
}

func TestResolve_Unresolved(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"value", "fn f() = missing\n", `"missing"`},
		{"type", "fn f(a: Missing) = a\n", `"Missing"`},
		{"constructor pattern", "fn f(a: Int) = match a { Nope -> 1, _ -> 2 }\n", `"Nope"`},
		{"let order", "let a = b\nlet b = 1\n", "before its initialization"},
		{"self reference", "let a = a\n", "before its initialization"},
		{"module", "import lib/Nowhere\n", "module lib/Nowhere not found"},
		{"bound", "fn f[T: Eq](a: T) = a\n", `unknown bound "Eq"`},
		{"not a type", "variant V { A }\nfn f(a: A) = a\n", `constructor "A" is not a type`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := resolveOne(t, tt.src)
			expectDiag(t, diags, diagnostics.UnresolvedName, tt.frag)
		})
	}
}

func TestResolve_RecurTargets(t *testing.T) {
	u, diags := resolveOne(t, `fn count(n: Int): Int = if n > 0 { recur(n - 1) } else {
  loop (let i = 0) -> match i { 3 -> i, _ -> recur(i + 1) }
}
`)
	be.Equal(t, len(diags), 0)
	fn := u.mod.Decls[0].(*ast.FunctionDecl)
	loop := find(u.mod, func(*ast.Loop) bool { return true })
	var targets []ast.Node
	ast.Inspect(fn, func(n ast.Node) bool {
		if r, ok := n.(*ast.Recur); ok {
			targets = append(targets, u.res.Recurs[r])
		}
		return true
	})
	be.Equal(t, len(targets), 2)
	be.True(t, targets[0] == ast.Node(fn))
	be.True(t, targets[1] == ast.Node(loop))
}

func TestResolve_InvalidRecur(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"module let", "let x = recur(1)\n", "outside of a loop or function body"},
		{"lambda", "fn f(n: Int) = fn() -> recur(n)\n", "outside of a loop or function body"},
		{"operand", "fn f(n: Int): Int = 1 + recur(n)\n", "must be in tail position"},
		{"statement", "fn f(n: Int): Int {\n  recur(n)\n  n\n}\n", "must be in tail position"},
		{"loop binding", "fn f(n: Int): Int = loop (let a = recur(n)) -> a\n", "must be in tail position"},
		{"condition", "fn f(n: Bool): Int = if recur(n) { 1 } else { 2 }\n", "must be in tail position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := resolveOne(t, tt.src)
			expectDiag(t, diags, diagnostics.InvalidRecur, tt.frag)
		})
	}
}

func TestResolve_TypeAlias(t *testing.T) {
	u, diags := resolveOne(t, "type Pair[A] = (A, A)\nfn f(p: Pair[Int]): Pair[Int] = match p { (a, b) -> (b, a) }\n")
	be.Equal(t, len(diags), 0)
	alias, ok := u.res.Scope().LookupLocal("Pair")
	be.True(t, ok)
	be.True(t, alias.IsAlias())
	be.Equal(t, len(alias.AliasParams), 1)

	_, diags = resolveOne(t, "type P = (A, Int)\n")
	expectDiag(t, diags, diagnostics.UnresolvedName, `"A"`)
}

func TestResolve_LetsInsideLambdasMayReferToLaterLets(t *testing.T) {
	_, diags := resolveOne(t, "let f = fn() -> later\nlet later = 1\n")
	be.Equal(t, len(diags), 0)
}

func TestResolve_QualifiedAccess(t *testing.T) {
	units, diags := resolveAll(t,
		"main.sasq", `module app/Main
import app/Geometry as G
fn area(s: G.Shape): Double = match s {
  G.Circle { radius } -> radius,
  G.Square(side) -> side
}
fn make() = G.Circle { radius: 1.0 }
fn call() = G.unit()
`,
		"geometry.sasq", `module app/Geometry
pub variant Shape { Circle { radius: Double }, Square(Double) }
pub fn unit(): Double = 1.0
`)
	be.Equal(t, len(diags), 0)
	main := units[0]
	geo := units[1].res.Scope()

	lit := find(main.mod, func(*ast.StructLiteral) bool { return true })
	sym, ok := main.res.Bindings.Lookup(lit)
	be.True(t, ok)
	circle, _ := geo.LookupLocal("Circle")
	be.True(t, sym == circle)

	access := find(main.mod, func(fa *ast.FieldAccess) bool { return fa.Field == "unit" })
	fsym, _ := main.res.Bindings.Lookup(access)
	be.Equal(t, fsym.String(), "app/Geometry.unit")
	msym, _ := main.res.Bindings.Lookup(access.Target)
	be.Equal(t, msym.Kind, symbols.ModuleSymbol)

	be.Equal(t, main.res.ImportPaths(), []string{"app/Geometry"})
}

func TestResolve_PrivateAccess(t *testing.T) {
	_, diags := resolveAll(t,
		"main.sasq", "module app/Main\nimport app/Lib\nfn f() = Lib.secret()\nfn g(p: Lib.Hidden) = p\n",
		"lib.sasq", "module app/Lib\nfn secret() = 1\nstruct Hidden { x: Int }\n")
	be.Equal(t, diags.Count(diagnostics.PrivateAccess), 2)
	expectDiag(t, diags, diagnostics.PrivateAccess, `function "secret" is private to module app/Lib`)
}

func TestResolve_MissingMember(t *testing.T) {
	_, diags := resolveAll(t,
		"main.sasq", "module app/Main\nimport app/Lib\nfn f() = Lib.nothing\n",
		"lib.sasq", "module app/Lib\n")
	expectDiag(t, diags, diagnostics.UnresolvedName, `module app/Lib has no member "nothing"`)
}

func TestResolve_CyclicImports(t *testing.T) {
	_, diags := resolveAll(t,
		"a.sasq", "module m/A\nimport m/B\npub fn a(n: Int): Int = B.b(n)\n",
		"b.sasq", "module m/B\nimport m/A\npub fn b(n: Int): Int = A.a(n)\n")
	be.Equal(t, len(diags), 0)
}

func TestResolve_Foreign(t *testing.T) {
	u, diags := resolveOne(t, `
use foreign java/util/ArrayList
use foreign java/lang/Math as M
fn f() {
  let l = ArrayList#new()
  ArrayList#add(l, "x")
  M#max(1, 2)
}
`)
	be.Equal(t, len(diags), 0)
	al, _ := u.res.Scope().LookupLocal("ArrayList")
	be.Equal(t, al.Path, "java/util/ArrayList")
	be.Equal(t, al.Type.String(), "java/util/ArrayList")

	call := find(u.mod, func(fc *ast.ForeignCall) bool { return fc.Method == "max" })
	sym, _ := u.res.Bindings.Lookup(call)
	be.Equal(t, sym.Path, "java/lang/Math")
}

func TestResolve_ForeignErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"class", "use foreign java/util/Nope\n", "foreign class java/util/Nope not found"},
		{"no use", "fn f() = Math#abs(1)\n", "unknown foreign class Math"},
		{"method", "use foreign java/lang/Math\nfn f() = Math#nope(1)\n", `has no method "nope"`},
		{"field", "use foreign java/lang/System\nfn f() = System#nope\n", `has no field "nope"`},
		{"constructor", "use foreign java/lang/Math\nfn f() = Math#new()\n", "has no public constructor"},
		{"not foreign", "struct P { x: Int }\nfn f() = P#x\n", "is not a foreign class"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := resolveOne(t, tt.src)
			expectDiag(t, diags, diagnostics.UnresolvedForeignReference, tt.frag)
		})
	}
}

func TestResolve_UnknownForeignClassReportsOnce(t *testing.T) {
	_, diags := resolveOne(t, "use foreign a/Missing\nfn f() = Missing#go()\n")
	be.Equal(t, diags.Count(diagnostics.UnresolvedForeignReference), 1)
}

func TestResolve_Captures(t *testing.T) {
	u, diags := resolveOne(t, `
fn f(a: Int, b: Int) {
  let c = 3
  fn(x: Int) -> {
    let inner = fn(y: Int) -> y + b + a
    x + c + b
  }
}
`)
	be.Equal(t, len(diags), 0)
	var lambdas []*ast.Lambda
	ast.Inspect(u.mod.Decls[0], func(n ast.Node) bool {
		if l, ok := n.(*ast.Lambda); ok {
			lambdas = append(lambdas, l)
		}
		return true
	})
	be.Equal(t, len(lambdas), 2)

	names := func(l *ast.Lambda) []string {
		var out []string
		for _, s := range u.res.Captures[l] {
			out = append(out, s.Name)
		}
		return out
	}
	// The outer lambda captures on behalf of the inner one, in first-use order.
	be.Equal(t, names(lambdas[0]), []string{"b", "a", "c"})
	be.Equal(t, names(lambdas[1]), []string{"b", "a"})
}

func TestResolve_LambdaParamsAreNotCaptures(t *testing.T) {
	u, _ := resolveOne(t, "let f = fn(x: Int) -> x\n")
	lambda := u.mod.Decls[0].(*ast.LetDecl).Value.(*ast.Lambda)
	be.Equal(t, len(u.res.Captures[lambda]), 0)
}

func TestResolve_Deterministic(t *testing.T) {
	src := `
variant Shape { Circle { radius: Double }, Square(Double) }
fn area(s: Shape): Double = match s {
  Circle { radius } -> radius * radius,
  Square(side) -> side * side
}
`
	first, _ := resolveOne(t, src)
	second, _ := resolveOne(t, src)
	be.Equal(t, first.res.Bindings.Len(), second.res.Bindings.Len())
	be.Equal(t, first.res.Defs.Len(), second.res.Defs.Len())
}

func TestResolve_Prelude(t *testing.T) {
	u, diags := resolveOne(t, "fn f(a: Long): String = show(a)\nfn main() = println(\"x\")\n")
	be.Equal(t, len(diags), 0)
	show := find(u.mod, ident("show"))
	sym, _ := u.res.Bindings.Lookup(show)
	be.Equal(t, sym.Builtin, symbols.BuiltinShow)
}
