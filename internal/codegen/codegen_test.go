package codegen_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/funvibe/sasquach/internal/analyzer"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/parser"
	"github.com/funvibe/sasquach/internal/resolver"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/nalgeon/be"
)

// compile runs the front end and the generator over name/text pairs and
// returns every artifact keyed by class name.
func compile(t *testing.T, files ...string) map[string][]byte {
	t.Helper()
	ns, err := foreign.LoadJDK()
	be.Err(t, err, nil)

	ids := &symbols.IDGen{}
	prelude := symbols.NewPrelude(ids)
	scopes := make(map[string]*symbols.Scope)
	var resolvers []*resolver.Resolver
	for i := 0; i+1 < len(files); i += 2 {
		mod, errs := parser.Parse(files[i], files[i+1])
		if len(errs) > 0 {
			t.Fatalf("parse errors:\n%s", errs)
		}
		r := resolver.New(mod, prelude, ids, ns)
		if diags := r.DeclareSignatures(); diags.HasErrors() {
			t.Fatalf("unexpected diagnostics:\n%s", diags)
		}
		scopes[mod.Name] = r.Scope()
		resolvers = append(resolvers, r)
	}
	checkers := make([]*analyzer.Checker, len(resolvers))
	for i, r := range resolvers {
		if diags := r.ResolveBodies(scopes); diags.HasErrors() {
			t.Fatalf("unexpected diagnostics:\n%s", diags)
		}
		checkers[i] = analyzer.New(r, ns)
		if diags := checkers[i].ElaborateSignatures(); diags.HasErrors() {
			t.Fatalf("unexpected diagnostics:\n%s", diags)
		}
	}

	out := make(map[string][]byte)
	for i, c := range checkers {
		result, diags := c.CheckBodies()
		if diags.HasErrors() {
			t.Fatalf("unexpected diagnostics:\n%s", diags)
		}
		artifacts, err := codegen.Generate(resolvers[i].Module(), result)
		be.Err(t, err, nil)
		for _, a := range artifacts {
			out[a.Name] = a.Bytes
		}
	}
	return out
}

func compileSource(t *testing.T, src string) map[string][]byte {
	t.Helper()
	return compile(t, "main.sasq", "module app/Main\n"+src)
}

func parse(t *testing.T, data []byte) *classfile.ClassFile {
	t.Helper()
	cf, err := classfile.Parse(data)
	be.Err(t, err, nil)
	return cf
}

func method(cf *classfile.ClassFile, name, desc string) *classfile.MemberInfo {
	for _, m := range cf.Methods {
		if m.Name == name && (desc == "" || m.Descriptor == desc) {
			return m
		}
	}
	return nil
}

func names(classes map[string][]byte) []string {
	var out []string
	for name := range classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

const shapes = `
struct Point { x: Int, y: Int }
variant Shape { Circle { radius: Double }, Square(Double), Empty }
fn area(s: Shape): Double = match s {
  Circle { radius } -> radius * radius * 3.0,
  Square(side) -> side * side,
  Empty -> 0.0
}
fn twice(f: fn(Int) -> Int, x: Int): Int = f(f(x))
fn inc(x: Int): Int = x + 1
pub fn main(): Int {
  let n = 2
  twice(fn(x) -> x + n, twice(inc, 1))
}
`

func TestGenerate_ClassNames(t *testing.T) {
	classes := compileSource(t, shapes)
	be.Equal(t, names(classes), []string{
		"app/Main",
		"app/Main$Lambda$0",
		"app/Main$Point",
		"app/Main$Ref$inc",
		"app/Main$Shape",
		"app/Main$Shape$Circle",
		"app/Main$Shape$Empty",
		"app/Main$Shape$Square",
		"sasquach/runtime/Func1",
	})
}

// Every branch target must carry a stack map frame, or the verifier rejects
// the class.
func TestGenerate_FramesAtBranchTargets(t *testing.T) {
	classes := compileSource(t, shapes+`
fn pick(c: Bool, a: Long, b: Int): Long = if c && a > 0L || !c { a } else { b }
fn label(p: Point): String {
  let origin = Point { x: 0, y: 0 }
  if p == origin { "origin" } else { show(p) }
}
fn sumTo(n: Int): Int = loop (let i = 0, let acc = 0) -> if i > n { acc } else { recur(i + 1, acc + i) }
fn fact(n: Int, acc: Long): Long = if n <= 1 { acc } else { recur(n - 1, acc * (n as Long)) }
fn firstTrue(p: (Bool, Int)): Int = match p { (true, n) -> n, _ -> 0 }
`)
	for name, data := range classes {
		cf := parse(t, data)
		for _, m := range cf.Methods {
			if m.Code == nil {
				continue
			}
			targets, err := classfile.BranchTargets(m.Code.Bytecode)
			be.Err(t, err, nil)
			frames, err := cf.StackMap(m.Code)
			be.Err(t, err, nil)
			have := make(map[int]bool)
			for _, f := range frames {
				have[f.Offset] = true
			}
			for _, target := range targets {
				if !have[target] {
					t.Errorf("%s.%s%s: no frame at branch target %d", name, m.Name, m.Descriptor, target)
				}
			}
		}
	}
}

func TestGenerate_TupleRuntime(t *testing.T) {
	classes := compileSource(t, "fn pair(): (Int, String) = (1, \"a\")\n")
	data, ok := classes["sasquach/runtime/Tuple2"]
	be.True(t, ok)
	cf := parse(t, data)
	be.True(t, method(cf, "<init>", "(Ljava/lang/Object;Ljava/lang/Object;)V") != nil)
	be.True(t, method(cf, "equals", "") != nil)
	be.True(t, method(parse(t, classes["app/Main"]), "pair", "()Lsasquach/runtime/Tuple2;") != nil)
}

func TestGenerate_LabeledArgumentsInParameterOrder(t *testing.T) {
	classes := compileSource(t, "fn sub(num a: Int, by b: Int): Int = a - b\nfn f(): Int = sub(by = 3, num = 7)\n")
	m := method(parse(t, classes["app/Main"]), "f", "()I")
	be.True(t, m != nil)
	// bipush 7, iconst_3, invokestatic
	code := m.Code.Bytecode
	be.Equal(t, code[:3], []byte{0x10, 7, 0x06})
}

func TestGenerate_ModuleClass(t *testing.T) {
	classes := compileSource(t, `
pub fn add(a: Int, b: Long): Long = a + b
fn hidden(): Unit = ()
fn takesUnit(u: Unit, s: String): String = s
pub let origin: Int = 0
let nothing = ()
pub fn main(): Long = add(1, 2L)
`)
	cf := parse(t, classes["app/Main"])
	be.Equal(t, cf.Major, uint16(52))
	be.True(t, cf.Access&classfile.AccFinal != 0)

	add := method(cf, "add", "")
	be.Equal(t, add.Descriptor, "(IJ)J")
	be.True(t, add.Access&classfile.AccPublic != 0)
	be.True(t, add.Access&classfile.AccStatic != 0)

	hidden := method(cf, "hidden", "")
	be.Equal(t, hidden.Descriptor, "()V")
	be.True(t, hidden.Access&classfile.AccPublic == 0)

	// Unit parameters still take a slot, as null.
	be.Equal(t, method(cf, "takesUnit", "").Descriptor, "(Ljava/lang/Object;Ljava/lang/String;)Ljava/lang/String;")

	// Unit lets have no field.
	be.Equal(t, len(cf.Fields), 1)
	be.Equal(t, cf.Fields[0].Name, "origin")
	be.Equal(t, cf.Fields[0].Descriptor, "I")
	be.True(t, method(cf, "<clinit>", "()V") != nil)

	be.True(t, method(cf, "main", "()J") != nil)
	be.True(t, method(cf, "main", "([Ljava/lang/String;)V") != nil)
}

func TestGenerate_DataClasses(t *testing.T) {
	classes := compileSource(t, shapes)

	point := parse(t, classes["app/Main$Point"])
	be.True(t, method(point, "<init>", "(II)V") != nil)
	be.True(t, method(point, "equals", "(Ljava/lang/Object;)Z") != nil)
	be.True(t, method(point, "hashCode", "()I") != nil)
	be.True(t, method(point, "toString", "()Ljava/lang/String;") != nil)

	base := parse(t, classes["app/Main$Shape"])
	be.True(t, base.Access&classfile.AccAbstract != 0)

	square := parse(t, classes["app/Main$Shape$Square"])
	be.Equal(t, square.SuperClass, "app/Main$Shape")
	be.Equal(t, square.Fields[0].Name, "_0")
	be.Equal(t, square.Fields[0].Descriptor, "D")

	empty := parse(t, classes["app/Main$Shape$Empty"])
	be.Equal(t, empty.Fields[0].Name, "INSTANCE")
	be.Equal(t, empty.Fields[0].Descriptor, "Lapp/Main$Shape$Empty;")
}

func TestGenerate_Generics(t *testing.T) {
	classes := compileSource(t, `
variant Option[T] { Some(T), None }
fn add[T: Num](a: T, b: T): T = a + b
fn get[T](o: Option[T], d: T): T = match o {
  Some(v) -> v,
  None -> d
}
pub fn main(): Int = add(1, get(Some(2), 3))
`)
	cf := parse(t, classes["app/Main"])
	be.Equal(t, method(cf, "add", "").Descriptor, "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;")
	some := parse(t, classes["app/Main$Option$Some"])
	be.Equal(t, some.Fields[0].Descriptor, "Ljava/lang/Object;")

	ops, ok := classes["sasquach/runtime/Ops"]
	be.True(t, ok)
	be.True(t, method(parse(t, ops), "add", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;") != nil)

	dis := classfile.Disassemble(cf)
	be.True(t, strings.Contains(dis, "Method java/lang/Integer.valueOf:(I)Ljava/lang/Integer;"))
	be.True(t, strings.Contains(dis, "Method java/lang/Integer.intValue:()I"))
}

func TestGenerate_MatchFallthrough(t *testing.T) {
	classes := compileSource(t, `
variant Option[T] { Some(T), None }
fn exhaustive(o: Option[Int]): Int = match o {
  Some(v) -> v,
  None -> 0
}
fn wild(o: Option[Int]): Int = match o {
  Some(v) -> v,
  _ -> 0
}
`)
	cf := parse(t, classes["app/Main"])
	dis := classfile.Disassemble(cf)
	exhaustive := dis[strings.Index(dis, "exhaustive("):strings.Index(dis, "wild(")]
	wild := dis[strings.Index(dis, "wild("):]
	be.True(t, strings.Contains(exhaustive, "instanceof"))
	be.True(t, strings.Contains(exhaustive, "IllegalStateException"))
	be.True(t, !strings.Contains(wild, "IllegalStateException"))
}

func TestGenerate_Foreign(t *testing.T) {
	classes := compileSource(t, `
use foreign java/lang/Math
use foreign java/lang/String as Str
use foreign java/util/ArrayList
fn a(): Int = Math#abs(-3)
fn b(x: Long, y: Int): Long = Math#max(x, y)
fn up(s: String): String = s |> Str#toUpperCase()
fn d(): Bool {
  let list = ArrayList#new()
  ArrayList#add(list, 5)
}
`)
	dis := classfile.Disassemble(parse(t, classes["app/Main"]))
	be.True(t, strings.Contains(dis, "Method java/lang/Math.abs:(I)I"))
	be.True(t, strings.Contains(dis, "Method java/lang/Math.max:(JJ)J"))
	be.True(t, strings.Contains(dis, "i2l"))
	be.True(t, strings.Contains(dis, "java/lang/String.toUpperCase:()Ljava/lang/String;"))
	be.True(t, strings.Contains(dis, "Method java/util/ArrayList.<init>:()V"))
	be.True(t, strings.Contains(dis, "add:(Ljava/lang/Object;)Z"))
}

func TestGenerate_CrossModule(t *testing.T) {
	classes := compile(t,
		"main.sasq", `module app/Main
import app/Geometry as G
fn area(s: G.Shape): Double = match s {
  G.Circle { radius } -> radius * radius * G.pi,
  G.Square(side) -> side * side
}
fn scale(): fn(Double) -> Double = G.double
pub fn main(): Double = area(G.Circle { radius: 2.0 })
`,
		"geometry.sasq", `module app/Geometry
pub let pi: Double = 3.14
pub fn double(x: Double): Double = x * 2.0
pub variant Shape { Circle { radius: Double }, Square(Double) }
`)
	_, ok := classes["app/Main$Ref$Geometry$double"]
	be.True(t, ok)
	dis := classfile.Disassemble(parse(t, classes["app/Main"]))
	be.True(t, strings.Contains(dis, "Field app/Geometry.pi:D"))
	be.True(t, strings.Contains(dis, "class app/Geometry$Shape$Circle"))
}

// TestGenerate_RunsOnJVM executes generated programs when a JVM is available.
func TestGenerate_RunsOnJVM(t *testing.T) {
	java, err := exec.LookPath("java")
	if err != nil {
		t.Skip("java not found")
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"closures", shapes, "7\n"},
		{"data", `
struct Point { x: Int, y: Int }
variant Option[T] { Some(T), None }
fn main() {
  println(Point { y: 2, x: 1 })
  println(Some(3))
  let n: Option[Int] = None
  println(n)
  let p = Point { x: 1, y: 2 }
  println(p == Point { x: 1, y: 2 })
}
`, "Point { x: 1, y: 2 }\nSome(3)\nNone\ntrue\n"},
		{"numbers", `
fn max[T: Ord](a: T, b: T): T = if a > b { a } else { b }
fn add[T: Num](a: T, b: T): T = a + b
fn main() {
  println(max(3, 7))
  println(add(1.5, 2.0))
  let b: Byte = 100
  println(b + b)
  println(show(1L) + "!")
}
`, "7\n3.5\n200\n1!\n"},
		{"strings", `
fn classify(s: String): Int = match s {
  "a" -> 1,
  "b" -> 2,
  _ -> 0
}
fn main() {
  println(classify("b"))
  println("x" < "y")
  println(())
}
`, "2\ntrue\n()\n"},
		{"foreign", `
use foreign java/lang/Math
use foreign java/lang/String as Str
fn main() {
  println(Math#max(2L, 3))
  println(Math#abs(-4))
  println("shout" |> Str#toUpperCase())
  println(Str#length("hello"))
}
`, "3\n4\nSHOUT\n5\n"},
		{"loops", `
fn sumTo(n: Int): Int = loop (let i = 0, let acc = 0) -> if i > n { acc } else { recur(i + 1, acc + i) }
fn fact(n: Int, acc: Long): Long = if n <= 1 { acc } else { recur(n - 1, acc * (n as Long)) }
fn repeat(n: Int, s: String): String = match n { 0 -> s, _ -> recur(n - 1, s + "a") }
fn main() {
  println(sumTo(4))
  println(fact(20, 1L))
  println(repeat(3, ""))
  println(loop (let d = 1.0) -> if d > 100.0 { d } else { recur(d * 2.0) })
}
`, "10\n2432902008176640000\naaa\n128.0\n"},
		{"tuples", `
fn swap[A, B](p: (A, B)): (B, A) = match p { (a, b) -> (b, a) }
fn tuplify[A](a: A): (A, A) = (a, a)
fn main() {
  let t = (5, "five")
  println(t._0 + 1)
  println(swap(t))
  println(tuplify(5)._0)
  println((1, true) == (1, true))
  println(match (true, 2) { (false, _) -> 0, (true, n) -> n })
}
`, "6\n(five, 5)\n5\ntrue\n2\n"},
		{"aliases and labels", `
type Pair[A] = (A, A)
type Op = fn(Int, Int) -> Int
struct P { x: Int }
type Q = P
fn sub(num a: Int, by b: Int): Int = a - b
fn scale(x: Int, by f: Int): Int = x * f
fn apply(f: Op, p: Pair[Int]): Int = f(p._0, p._1)
fn getX(q: Q): Int = q.x
fn main() {
  println(sub(by = 3, num = 7))
  println(2 |> scale(by = 5))
  println(apply(fn(a, b) -> a * b, (3, 4)))
  println(getX(P { x: 9 }))
}
`, "4\n10\n12\n9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, data := range compileSource(t, tt.src) {
				path := filepath.Join(dir, filepath.FromSlash(name)+".class")
				be.Err(t, os.MkdirAll(filepath.Dir(path), 0o755), nil)
				be.Err(t, os.WriteFile(path, data, 0o644), nil)
			}
			var stdout, stderr bytes.Buffer
			cmd := exec.Command(java, "-cp", dir, "app.Main")
			cmd.Stdout, cmd.Stderr = &stdout, &stderr
			if err := cmd.Run(); err != nil {
				t.Fatalf("java: %v\n%s", err, stderr.String())
			}
			be.Equal(t, stdout.String(), tt.want)
		})
	}
}
