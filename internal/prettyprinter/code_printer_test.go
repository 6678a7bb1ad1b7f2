package prettyprinter_test

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/funvibe/sasquach/internal/parser"
	"github.com/funvibe/sasquach/internal/prettyprinter"
	"github.com/nalgeon/be"
)

func render(t *testing.T, name, src string) string {
	t.Helper()
	mod, errs := parser.Parse(name, src)
	if len(errs) > 0 {
		t.Fatalf("parse errors:\n%s", errs)
	}
	return prettyprinter.Print(mod)
}

func TestPrint_Canonical(t *testing.T) {
	got := render(t, "main.sasq", `module app/Main
import app/Geometry as G
use foreign java/util/ArrayList
struct Point{x:Int,y:Int}
fn add(a:Int,b:Int):Int=a+b*2
fn neg(p: Point) = Point { x: -p.x, y: p.y }
`)
	be.Equal(t, got, `module app/Main

import app/Geometry as G

use foreign java/util/ArrayList

struct Point { x: Int, y: Int }
fn add(a: Int, b: Int): Int = a + b * 2
fn neg(p: Point) = Point { x: -p.x, y: p.y }
`)
}

func TestPrint_Parentheses(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(a + b) * c", "(a + b) * c"},
		{"a - (b - c)", "a - (b - c)"},
		{"(a - b) - c", "a - b - c"},
		{"-(a + b)", "-(a + b)"},
		{"(a as Long) + 1L", "a as Long + 1L"},
		{"(a + 1) as Long", "(a + 1) as Long"},
		{"(fn(x: Int) -> x)(1)", "(fn(x: Int) -> x)(1)"},
		{"f(1, 2) + 3", "f(1, 2) + 3"},
		{"x |> f(2)", "f(x, 2)"},
		{"!(a && b) || c", "!(a && b) || c"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := render(t, "main.sasq", "fn f() = "+tt.src+"\n")
			be.Equal(t, got, "module Main\n\nfn f() = "+tt.want+"\n")
		})
	}
}

func TestPrint_Literals(t *testing.T) {
	got := render(t, "main.sasq", `let a = 3.0
let b = 1.5f
let c = 10000000000L
let d = "tab\there \"quoted\""
let e = '\''
let f = ()
let g = -2
`)
	be.True(t, strings.Contains(got, "let a = 3.0\n"))
	be.True(t, strings.Contains(got, "let b = 1.5f\n"))
	be.True(t, strings.Contains(got, "let c = 10000000000L\n"))
	be.True(t, strings.Contains(got, `let d = "tab\there \"quoted\""`))
	be.True(t, strings.Contains(got, `let e = '\''`))
	be.True(t, strings.Contains(got, "let f = ()\n"))
	be.True(t, strings.Contains(got, "let g = -2\n"))
}

func TestPrint_StructLiteralInCondition(t *testing.T) {
	got := render(t, "main.sasq", "struct P { x: Int }\nfn f(p: P): Bool = if p == (P { x: 1 }) { true } else { false }\n")
	be.True(t, strings.Contains(got, "if p == (P { x: 1 }) {"))
}

func TestPrint_LoopsTuplesLabels(t *testing.T) {
	got := render(t, "main.sasq", `type P[A]=(A,A)
fn f(by x:Int):(Int,Int)=loop(let i=0)->if i>x {(i,x)} else {recur(i+1)}
fn g()=match f(by=2){(a,_)->a}
`)
	be.True(t, strings.Contains(got, "type P[A] = (A, A)\n"))
	be.True(t, strings.Contains(got, "fn f(by x: Int): (Int, Int) = loop (let i = 0) -> if i > x {\n  (i, x)\n} else {\n  recur(i + 1)\n}\n"))
	be.True(t, strings.Contains(got, "fn g() = match f(by = 2) {\n  (a, _) -> a\n}\n"))
}

// TestPrint_Idempotent prints every program in testdata, parses the output
// and checks that printing it again changes nothing.
func TestPrint_Idempotent(t *testing.T) {
	ar, err := txtar.ParseFile(filepath.Join("testdata", "programs.txtar"))
	be.Err(t, err, nil)
	be.True(t, len(ar.Files) > 0)
	for _, f := range ar.Files {
		t.Run(f.Name, func(t *testing.T) {
			once := render(t, f.Name, string(f.Data))
			twice := render(t, f.Name, once)
			be.Equal(t, twice, once)
		})
	}
}
