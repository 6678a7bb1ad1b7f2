package analyzer_test

import (
	"testing"

	"github.com/funvibe/sasquach/internal/analyzer"
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/typesystem"
	"github.com/nalgeon/be"
)

func foreignCalls(u checked) map[string]string {
	out := make(map[string]string)
	for _, d := range u.mod.Decls {
		ast.Inspect(d, func(n ast.Node) bool {
			if fc, ok := n.(*ast.ForeignCall); ok {
				if m, ok := u.result.Foreign[fc]; ok {
					out[fc.Method] = m.Descriptor
				}
			}
			return true
		})
	}
	return out
}

func TestForeign_OverloadPhases(t *testing.T) {
	u := expectClean(t, `
use foreign java/lang/Math
use foreign java/lang/String as Str
use foreign java/util/ArrayList
fn a(): Int = Math#abs(-3)
fn b(x: Long, y: Int): Long = Math#max(x, y)
fn c(b: Byte): String = Str#valueOf(b)
fn d(): Bool {
  let list = ArrayList#new()
  ArrayList#add(list, 5)
}
`)
	calls := foreignCalls(u)
	be.Equal(t, calls["abs"], "(I)I")
	be.Equal(t, calls["max"], "(JJ)J")
	// Byte widens to int before anything boxes.
	be.Equal(t, calls["valueOf"], "(I)Ljava/lang/String;")
	be.Equal(t, calls["new"], "()V")
	// add(Object) only applies once 5 is boxed.
	be.Equal(t, calls["add"], "(Ljava/lang/Object;)Z")
}

func TestForeign_InstanceMethods(t *testing.T) {
	u := expectClean(t, `
use foreign java/lang/String as Str
fn len(s: String): Int = Str#length(s)
fn up(s: String): String = s |> Str#toUpperCase()
`)
	be.Equal(t, signature(u, "len"), "fn(String) -> Int")
}

func TestForeign_StaticFields(t *testing.T) {
	u := expectClean(t, `
use foreign java/lang/Integer
use foreign java/lang/System
let big = Integer#MAX_VALUE
let out = System#out
`)
	be.Equal(t, typeOfLet(u, "big"), typesystem.Type(typesystem.Int))
	be.Equal(t, typeOfLet(u, "out").String(), "java/io/PrintStream")
}

func TestForeign_Errors(t *testing.T) {
	expectDiag(t, "use foreign java/lang/Math\nfn f(): Int = Math#abs(\"s\")\n",
		diagnostics.NoApplicableOverload, "no overload of Math#abs accepts (String)")
	expectDiag(t, "use foreign java/lang/Math\nfn f(): Int = Math#max(1)\n",
		diagnostics.NoApplicableOverload, "Math#max")
	expectDiag(t, "use foreign java/lang/String as Str\nfn f(): Int = Str#length(1)\n",
		diagnostics.NoApplicableOverload, "accepts (Int)")
}

func TestForeign_MissingMethodReportedOnce(t *testing.T) {
	_, diags := checkSource(t, "use foreign java/lang/Math\nfn f(): Int = Math#nope(1)\n")
	be.Equal(t, len(diags), 1)
	be.Equal(t, diags[0].Kind, diagnostics.UnresolvedForeignReference)
}

func TestForeign_MostSpecific(t *testing.T) {
	u := expectClean(t, `
use foreign java/io/PrintStream
use foreign java/lang/System
fn f() = PrintStream#println(System#out, "s")
`)
	// println(String) beats println(Object).
	be.Equal(t, foreignCalls(u)["println"], "(Ljava/lang/String;)V")
}

func TestForeign_DescriptorType(t *testing.T) {
	tests := map[string]string{
		"Z": "Bool", "C": "Char", "I": "Int", "J": "Long", "V": "Unit",
		"Ljava/lang/String;": "String", "Ljava/util/List;": "java/util/List",
	}
	for desc, want := range tests {
		got, ok := analyzer.DescriptorType(desc)
		be.True(t, ok)
		be.Equal(t, got.String(), want)
	}
	_, ok := analyzer.DescriptorType("[I")
	be.True(t, !ok)
	cls, ok := analyzer.WrapperClass(typesystem.Long)
	be.True(t, ok)
	be.Equal(t, cls, "java/lang/Long")
}
