package analyzer_test

import (
	"strings"
	"testing"

	"github.com/funvibe/sasquach/internal/analyzer"
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/parser"
	"github.com/funvibe/sasquach/internal/resolver"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
	"github.com/nalgeon/be"
)

type checked struct {
	mod    *ast.Module
	res    *resolver.Resolver
	result *analyzer.Result
}

// checkFiles runs the front end over name/text pairs in dependency-free
// lockstep: all resolver phases, then all signatures, then all bodies.
func checkFiles(t *testing.T, files ...string) ([]checked, diagnostics.List) {
	t.Helper()
	ns, err := foreign.LoadJDK()
	be.Err(t, err, nil)

	ids := &symbols.IDGen{}
	prelude := symbols.NewPrelude(ids)
	var units []checked
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
		units = append(units, checked{mod: mod, res: r})
	}
	for _, u := range units {
		diags = append(diags, u.res.ResolveBodies(scopes)...)
	}
	checkers := make([]*analyzer.Checker, len(units))
	for i, u := range units {
		checkers[i] = analyzer.New(u.res, ns)
		diags = append(diags, checkers[i].ElaborateSignatures()...)
	}
	for i := range units {
		result, more := checkers[i].CheckBodies()
		units[i].result = result
		diags = append(diags, more...)
	}
	return units, diags
}

func checkSource(t *testing.T, src string) (checked, diagnostics.List) {
	t.Helper()
	units, diags := checkFiles(t, "main.sasq", src)
	return units[0], diags
}

func expectClean(t *testing.T, src string) checked {
	t.Helper()
	u, diags := checkSource(t, src)
	if len(diags) > 0 {
		t.Fatalf("expected no diagnostics, got:\n%s", diags)
	}
	return u
}

func expectDiag(t *testing.T, src string, kind diagnostics.Kind, fragment string) diagnostics.List {
	t.Helper()
	_, diags := checkSource(t, src)
	for _, d := range diags {
		if d.Kind == kind && strings.Contains(d.Message, fragment) {
			return diags
		}
	}
	t.Fatalf("expected %s containing %q, got:\n%s", kind, fragment, diags)
	return nil
}

// typeOfLet returns the recorded type of the value of module let name.
func typeOfLet(u checked, name string) typesystem.Type {
	for _, d := range u.mod.Decls {
		if l, ok := d.(*ast.LetDecl); ok && l.Name == name {
			return u.result.TypeOf(l.Value)
		}
	}
	return nil
}

func signature(u checked, name string) string {
	sym, ok := u.res.Scope().LookupLocal(name)
	if !ok {
		return "<missing>"
	}
	return sym.Type.String()
}

func TestCheck_Literals(t *testing.T) {
	u := expectClean(t, `
let a = 1
let b = 1L
let c = 1.5
let d = 1.5f
let e = 'x'
let f = "s"
let g = true
let h = ()
let i: Byte = 12
let j: Double = 3
`)
	want := map[string]string{
		"a": "Int", "b": "Long", "c": "Double", "d": "Float", "e": "Char",
		"f": "String", "g": "Bool", "h": "Unit", "i": "Byte", "j": "Double",
	}
	for name, typ := range want {
		be.Equal(t, typeOfLet(u, name).String(), typ)
	}
}

func TestCheck_LiteralOutOfRange(t *testing.T) {
	expectDiag(t, "let b: Byte = 300\n", diagnostics.TypeMismatch, "expected Byte, found Int")
}

func TestCheck_Widening(t *testing.T) {
	u := expectClean(t, `
fn widen(i: Int): Long = i
fn sum(b: Byte, s: Short): Int = b + s
fn mixed(i: Int, d: Double): Double = i * d
`)
	fn := u.mod.Decls[0].(*ast.FunctionDecl)
	be.Equal(t, u.result.Widenings[fn.Body], typesystem.Long)

	sum := u.mod.Decls[1].(*ast.FunctionDecl).Body.(*ast.BinaryOp)
	be.Equal(t, u.result.Widenings[sum.Left], typesystem.Int)
	be.Equal(t, u.result.Widenings[sum.Right], typesystem.Int)
	be.Equal(t, u.result.TypeOf(sum).String(), "Int")

	mixed := u.mod.Decls[2].(*ast.FunctionDecl).Body.(*ast.BinaryOp)
	be.Equal(t, u.result.Widenings[mixed.Left], typesystem.Double)
	_, widened := u.result.Widenings[mixed.Right]
	be.True(t, !widened)
}

func TestCheck_NarrowingNeedsConversion(t *testing.T) {
	expectDiag(t, "fn f(l: Long): Int = l\n", diagnostics.TypeMismatch, "expected Int, found Long")
	expectDiag(t, "fn f(d: Double): Float = d\n", diagnostics.TypeMismatch, "expected Float, found Double")
	expectDiag(t, "fn f(i: Int): Char = i\n", diagnostics.TypeMismatch, "expected Char, found Int")
	expectClean(t, "fn f(l: Long): Int = l as Int\nfn g(d: Double): Byte = d as Byte\n")
}

func TestCheck_Conversions(t *testing.T) {
	expectClean(t, `
use foreign java/util/ArrayList
use foreign java/util/List
use foreign java/lang/Object
fn up(a: ArrayList): List = a as List
fn down(l: List): ArrayList = l as ArrayList
fn obj(s: String): Object = s as Object
`)
	expectDiag(t, "fn f(s: String): Int = s as Int\n", diagnostics.TypeMismatch, "cannot convert String to Int")
}

func TestCheck_StringConcatAndComparison(t *testing.T) {
	u := expectClean(t, `
fn greet(name: String): String = "hi " + name
fn less(a: String, b: String): Bool = a < b
fn same(a: Bool, b: Bool): Bool = a == b
`)
	be.Equal(t, signature(u, "greet"), "fn(String) -> String")
	expectDiag(t, "fn f(a: String): String = a + 1\n", diagnostics.TypeMismatch, "")
	expectDiag(t, "fn f(a: Bool, b: Bool): Bool = a < b\n", diagnostics.TypeMismatch, "needs ordered operands")
	expectDiag(t, "fn f(a: Int, b: String): Bool = a == b\n", diagnostics.TypeMismatch, "cannot compare Int with String")
}

func TestCheck_Structs(t *testing.T) {
	u := expectClean(t, `
struct Point { x: Int, y: Int }
fn make(): Point = Point { y: 2, x: 1 }
fn getX(p: Point): Int = p.x
`)
	be.Equal(t, signature(u, "make"), "fn() -> Point")
	expectDiag(t, "struct P { x: Int, y: Int }\nfn f(): P = P { x: 1 }\n", diagnostics.MissingField, "missing field y in P literal")
	expectDiag(t, "struct P { x: Int }\nfn f(): P = P { x: 1, x: 2 }\n", diagnostics.DuplicateField, "field x is given twice")
	expectDiag(t, "struct P { x: Int }\nfn f(): P = P { x: 1, z: 2 }\n", diagnostics.UnknownField, "P has no field z")
	expectDiag(t, "struct P { x: Int }\nfn f(p: P): Int = p.z\n", diagnostics.UnknownField, "P has no field z")
}

func TestCheck_MissingFieldsReportedOneEach(t *testing.T) {
	diags := expectDiag(t, "struct P { x: Int, y: Int, z: Int }\nfn f(): P = P { y: 1 }\n", diagnostics.MissingField, "x")
	be.Equal(t, diags.Count(diagnostics.MissingField), 2)
}

func TestCheck_GenericStructs(t *testing.T) {
	u := expectClean(t, `
struct Box[T] { value: T }
fn boxed(): Box[Long] = Box { value: 1 }
let b = Box { value: "s" }
fn unbox(b: Box[Int]): Int = b.value
`)
	be.Equal(t, typeOfLet(u, "b").String(), "Box[String]")
	expectDiag(t, "struct Box[T] { value: T }\nfn f(b: Box): Int = 1\n", diagnostics.TypeMismatch, "Box needs 1 type argument(s)")
}

func TestCheck_Variants(t *testing.T) {
	u := expectClean(t, `
variant Option[T] { Some(T), None }
variant Shape { Circle { radius: Double }, Square(Double), Empty }
let a = Some(3)
let b: Option[String] = None
let c = Circle { radius: 1.0 }
let d = Empty
`)
	be.Equal(t, typeOfLet(u, "a").String(), "Option[Int]")
	be.Equal(t, typeOfLet(u, "c").String(), "Shape")

	src := "variant Shape { Circle { radius: Double }, Square(Double), Empty }\n"
	expectDiag(t, src+"let x = Square(1.0, 2.0)\n", diagnostics.TypeMismatch, "Square takes 1 argument(s), found 2")
	expectDiag(t, src+"let x = Empty()\n", diagnostics.TypeMismatch, "Empty takes no arguments")
	expectDiag(t, src+"let x = Circle(1.0)\n", diagnostics.TypeMismatch, "Circle is built with Circle { ... }")
	expectDiag(t, src+"let x = Square { side: 1.0 }\n", diagnostics.TypeMismatch, "Square is not a record alternative")
	expectDiag(t, src+"let x = Circle { }\n", diagnostics.MissingField, "missing field radius")
}

func TestCheck_Functions(t *testing.T) {
	u := expectClean(t, `
fn inc(x: Int) = x + 1
fn twice(x: Int): Int = inc(inc(x))
fn noop(): Unit = ()
`)
	be.Equal(t, signature(u, "inc"), "fn(Int) -> Int")
	expectDiag(t, "fn f(a: Int): Int = a\nfn g(): Int = f(1, 2)\n", diagnostics.TypeMismatch, "f takes 1 argument(s), found 2")
	expectDiag(t, "fn f(a: Int): Int = a\nfn g(): Int = f(\"s\")\n", diagnostics.TypeMismatch, "expected Int, found String")
	expectDiag(t, "fn f(): Int = \"s\"\n", diagnostics.TypeMismatch, "expected Int, found String")
	expectDiag(t, "fn f(a: Int): Int = a\nfn g(): Int = f\n", diagnostics.TypeMismatch, "expected Int, found fn(Int) -> Int")
}

func TestCheck_InferredResultOnDemand(t *testing.T) {
	u := expectClean(t, `
fn first(): Long = later() + 1L
fn later() = 41L
`)
	be.Equal(t, signature(u, "later"), "fn() -> Long")
}

func TestCheck_RecursionNeedsAnnotation(t *testing.T) {
	expectDiag(t, "fn countdown(n: Int) = if n == 0 { 0 } else { countdown(n - 1) }\n",
		diagnostics.CannotInferTypeArgument, "recursive use of countdown")
	expectClean(t, "fn countdown(n: Int): Int = if n == 0 { 0 } else { countdown(n - 1) }\n")
}

func TestCheck_PublicSignaturesMustBeAnnotated(t *testing.T) {
	expectDiag(t, "pub fn f(a: Int) = a\n", diagnostics.CannotInferTypeArgument, "public function f must declare its return type")
	expectDiag(t, "pub let x = 1\n", diagnostics.CannotInferTypeArgument, "public value x must declare its type")
}

func TestCheck_Generics(t *testing.T) {
	u := expectClean(t, `
fn id[T](x: T): T = x
fn add[T: Num](a: T, b: T): T = a + b
fn max[T: Ord](a: T, b: T): T = if a > b { a } else { b }
let s = id("s")
let n = add(1L, 2L)
let m = max(1.5, 2.5)
`)
	be.Equal(t, typeOfLet(u, "s").String(), "String")
	be.Equal(t, typeOfLet(u, "n").String(), "Long")
	be.Equal(t, typeOfLet(u, "m").String(), "Double")

	expectDiag(t, "fn add[T](a: T, b: T): T = a + b\n", diagnostics.TypeMismatch, "T is not numeric; declare T: Num")
	expectDiag(t, "fn lt[T](a: T, b: T): Bool = a < b\n", diagnostics.TypeMismatch, "T is not ordered")
	expectDiag(t, "fn add[T: Num](a: T): T = a\nlet x = add(\"s\")\n", diagnostics.TypeMismatch, "String is not numeric")
	expectDiag(t, "fn id[T](x: T): T = x\nfn f[T](x: T): Int = id(x)\n", diagnostics.TypeMismatch, "expected Int, found T")
}

func TestCheck_BoundFailureOncePerCall(t *testing.T) {
	_, diags := checkSource(t, "fn m[T: Num](a: T, b: T): T = a + b\nfn g(): String = m(\"a\", \"b\")\n")
	be.Equal(t, len(diags), 1)
	be.Equal(t, diags[0].Kind, diagnostics.TypeMismatch)
	be.True(t, strings.Contains(diags[0].Message, "String is not numeric"))
}

func TestCheck_UnsolvedMeta(t *testing.T) {
	expectDiag(t, "variant Option[T] { Some(T), None }\nlet x = None\n",
		diagnostics.CannotInferTypeArgument, "cannot infer all types in x")
}

func TestCheck_Lambdas(t *testing.T) {
	u := expectClean(t, `
fn apply[A, B](x: A, f: fn(A) -> B): B = f(x)
let a = apply(2, fn(x) -> x + 1)
let b = apply("s", fn(s) -> s + "!")
fn adder(n: Int): fn(Int) -> Int = fn(x) -> x + n
let c = adder(1)(2)
let d = fn(x: Long): Long -> x * 2
`)
	be.Equal(t, typeOfLet(u, "a").String(), "Int")
	be.Equal(t, typeOfLet(u, "b").String(), "String")
	be.Equal(t, typeOfLet(u, "c").String(), "Int")
	be.Equal(t, typeOfLet(u, "d").String(), "fn(Long) -> Long")

	expectDiag(t, "fn apply(f: fn(Int) -> Int): Int = f(1)\nlet a = apply(fn(x, y) -> x)\n",
		diagnostics.TypeMismatch, "expected a function of 1 parameter(s), found 2")
	expectDiag(t, "let x = 5\nlet y = x(1)\n", diagnostics.TypeMismatch, "cannot call a value of type Int")
}

func TestCheck_Blocks(t *testing.T) {
	u := expectClean(t, `
fn f(): Int {
  let a = 1
  let b: Long = 2
  println(b)
  a
}
fn g() {
  println("x")
}
`)
	be.Equal(t, signature(u, "g"), "fn() -> Unit")
	expectDiag(t, "fn f(): Int {\n  println(1)\n}\n", diagnostics.TypeMismatch, "expected Int, found Unit")
}

func TestCheck_IfBranchesJoin(t *testing.T) {
	u := expectClean(t, `
fn f(c: Bool) = if c { 1 } else { 2L }
fn g(c: Bool) {
  if c { println(1) }
}
`)
	be.Equal(t, signature(u, "f"), "fn(Bool) -> Long")
	expectDiag(t, "fn f(c: Bool) = if c { 1 } else { \"s\" }\n", diagnostics.TypeMismatch, "expected Int, found String")
	expectDiag(t, "fn f(c: Int) = if c { 1 } else { 2 }\n", diagnostics.TypeMismatch, "expected Bool, found Int")
	expectDiag(t, "fn f(c: Bool): Int = if c { 1 }\n", diagnostics.TypeMismatch, "expected Unit, found Int")
}

func TestCheck_Builtins(t *testing.T) {
	u := expectClean(t, "fn f(x: Double): String = show(x)\nfn main() = println(f(1.0))\n")
	be.Equal(t, signature(u, "main"), "fn() -> Unit")
	expectDiag(t, "fn f() = println(1, 2)\n", diagnostics.TypeMismatch, "println takes 1 argument, found 2")
	expectDiag(t, "let p = println\n", diagnostics.TypeMismatch, "println can only be called directly")
}

func TestCheck_QualifiedImports(t *testing.T) {
	units, diags := checkFiles(t,
		"main.sasq", `module app/Main
import app/Geometry as G
fn area(s: G.Shape): Double = match s {
  G.Circle { radius } -> radius * radius * G.pi,
  G.Square(side) -> side * side
}
fn main(): Double = area(G.Circle { radius: 2.0 })
`,
		"geometry.sasq", `module app/Geometry
pub let pi: Double = 3.14
pub variant Shape { Circle { radius: Double }, Square(Double) }
`)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics:\n%s", diags)
	}
	be.Equal(t, signature(units[0], "main"), "fn() -> Double")
}

func TestCheck_UnresolvedNamesDoNotCascade(t *testing.T) {
	_, diags := checkSource(t, "fn f(): Int = missing + 1\n")
	be.Equal(t, len(diags), 1)
	be.Equal(t, diags[0].Kind, diagnostics.UnresolvedName)
}

func TestCheck_Tuples(t *testing.T) {
	u := expectClean(t, `
fn swap[A, B](p: (A, B)): (B, A) = match p { (a, b) -> (b, a) }
let t = (1, "s")
let s = swap(t)
let first = t._0
let wide: (Long, String) = (1, "x")
`)
	be.Equal(t, typeOfLet(u, "t").String(), "(Int, String)")
	be.Equal(t, typeOfLet(u, "s").String(), "(String, Int)")
	be.Equal(t, typeOfLet(u, "first").String(), "Int")
	be.Equal(t, typeOfLet(u, "wide").String(), "(Long, String)")

	expectDiag(t, "let t = (1, 2)\nlet x = t._2\n", diagnostics.UnknownField, "(Int, Int) has no field _2")
	expectDiag(t, "fn f(p: (Int, Int)): Int = match p { (a, b, c) -> a }\n", diagnostics.TypeMismatch, "tuple pattern has 3 element(s), value has 2")
	expectDiag(t, "fn f(n: Int): Int = match n { (a, b) -> a }\n", diagnostics.TypeMismatch, "expected Int, found a tuple pattern")
	expectDiag(t, "let t: (Int, String) = (1, 2)\n", diagnostics.TypeMismatch, "expected String, found Int")
}

func TestCheck_LoopAndRecur(t *testing.T) {
	u := expectClean(t, `
fn sumTo(n: Int): Int = loop (let i = 0, let acc = 0) -> if i > n { acc } else { recur(i + 1, acc + i) }
fn fact(n: Int, acc: Long): Long = if n <= 1 { acc } else { recur(n - 1, acc * (n as Long)) }
let x = sumTo(4)
let y = loop (let s = "") -> if s == "aaa" { s } else { recur(s + "a") }
`)
	be.Equal(t, typeOfLet(u, "x").String(), "Int")
	be.Equal(t, typeOfLet(u, "y").String(), "String")
	be.Equal(t, len(u.result.Recurs), 3)

	expectDiag(t, "fn f(n: Int): Int = if n > 0 { recur(n - 1, 2) } else { 0 }\n",
		diagnostics.TypeMismatch, "recur takes 1 argument(s), found 2")
	expectDiag(t, "fn f(n: Int): Int = loop (let s = \"a\") -> if n > 0 { 1 } else { recur(2) }\n",
		diagnostics.TypeMismatch, "expected String, found Int")
}

func TestCheck_TypeAliases(t *testing.T) {
	u := expectClean(t, `
struct P { x: Int }
type Pair[A] = (A, A)
type Op = fn(Int, Int) -> Int
type Q = P
fn apply(f: Op): Int = f(1, 2)
fn dup[A](a: A): Pair[A] = (a, a)
fn getX(q: Q): Int = q.x
let d = dup("s")
let o: Op = fn(a, b) -> a + b
let n = getX(P { x: 1 })
`)
	be.Equal(t, typeOfLet(u, "d").String(), "(String, String)")
	be.Equal(t, signature(u, "apply"), "fn(fn(Int, Int) -> Int) -> Int")
	be.Equal(t, signature(u, "getX"), "fn(P) -> Int")

	expectDiag(t, "type A = B\ntype B = A\n", diagnostics.CyclicTypeAlias, "refers to itself")
	expectDiag(t, "type L = (Int, L)\n", diagnostics.CyclicTypeAlias, "type alias L refers to itself")
	expectDiag(t, "type Pair[A] = (A, A)\nfn f(p: Pair): Int = 1\n", diagnostics.TypeMismatch, "Pair needs 1 type argument(s)")
	expectDiag(t, "type Pair[A] = (A, A)\nfn f(p: Pair[Int, Int]): Int = 1\n", diagnostics.TypeMismatch, "Pair takes 1 type argument(s), found 2")
	expectDiag(t, "struct P { x: Int }\ntype Q = P\nlet q = Q { x: 1 }\n", diagnostics.UnresolvedName, "cannot be built with a literal")
}

func TestCheck_LabeledArguments(t *testing.T) {
	const decls = "fn sub(num a: Int, by b: Int): Int = a - b\nfn scale(x: Int, by f: Int): Int = x * f\n"
	u := expectClean(t, decls+`
let x = sub(by = 3, num = 7)
let y = scale(2, by = 5)
let z = 2 |> scale(by = 5)
`)
	be.Equal(t, typeOfLet(u, "x").String(), "Int")
	call := find(u.mod, func(c *ast.Call) bool { return len(c.Labels) == 2 && c.Labels[0] == "by" })
	args := u.result.Args[call]
	be.Equal(t, len(args), 2)
	be.Equal(t, args[0].(*ast.IntLit).Value, int64(7))
	be.Equal(t, args[1].(*ast.IntLit).Value, int64(3))

	tests := []struct {
		name string
		call string
		kind diagnostics.Kind
		frag string
	}{
		{"unknown label", "sub(by = 3, amount = 7)", diagnostics.InvalidArgumentLabel, "sub has no parameter labeled amount"},
		{"missing label", "sub(by = 3)", diagnostics.InvalidArgumentLabel, "missing labeled argument num of type Int"},
		{"given twice", "sub(by = 3, by = 4, num = 1)", diagnostics.InvalidArgumentLabel, "argument by is given twice"},
		{"positional", "sub(7, 3)", diagnostics.TypeMismatch, "sub takes 0 positional argument(s), found 2"},
		{"wrong type", `sub(by = "s", num = 1)`, diagnostics.TypeMismatch, "expected Int, found String"},
		{"label on a value", "(fn(a: Int) -> a)(a = 1)", diagnostics.InvalidArgumentLabel, "argument label a needs a call to a declared function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectDiag(t, decls+"let x = "+tt.call+"\n", tt.kind, tt.frag)
		})
	}
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
