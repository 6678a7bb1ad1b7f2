package codegen

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

const (
	objectClass = "java/lang/Object"
	stringClass = "java/lang/String"

	objectDesc = "Ljava/lang/Object;"
	stringDesc = "Ljava/lang/String;"
	voidDesc   = "V"

	opsClass = config.OpsClassName
	// instanceField holds the singleton of a unit alternative.
	instanceField = "INSTANCE"
)

func classDesc(class string) string { return "L" + class + ";" }

func sourceFileName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Class names. Nested entities hang off the module class with '$'.

func structClass(st *typesystem.StructType) string { return st.Module + "$" + st.Name }

func variantClass(vt *typesystem.VariantType) string { return vt.Module + "$" + vt.Name }

func altClass(alt *typesystem.Alternative) string {
	return variantClass(alt.Variant) + "$" + alt.Tag
}

func (g *generator) lambdaClass(n int) string {
	return fmt.Sprintf("%s$Lambda$%d", g.mod.Name, n)
}

// refClass names the wrapper that lets a module function be used as a value.
func (g *generator) refClass(sym *symbols.Symbol) string {
	if sym.Module == g.mod.Name {
		return g.mod.Name + "$Ref$" + sym.Name
	}
	return g.mod.Name + "$Ref$" + lastSegment(sym.Module) + "$" + sym.Name
}

func funcClass(arity int) string { return fmt.Sprintf("%s%d", config.FuncClassPrefix, arity) }

func tupleClass(arity int) string { return fmt.Sprintf("%s%d", config.TupleClassPrefix, arity) }

func applyDesc(arity int) string {
	return "(" + strings.Repeat(objectDesc, arity) + ")" + objectDesc
}

// nominalClass is the class of a struct or variant type, seen through Applied.
func nominalClass(t typesystem.Type) (string, bool) {
	base, _ := typesystem.Nominal(t)
	switch b := base.(type) {
	case *typesystem.StructType:
		return structClass(b), true
	case *typesystem.VariantType:
		return variantClass(b), true
	}
	return "", false
}

// desc is the field descriptor of the erased representation of t. Unit is
// "V": it never occupies a stack slot.
func (g *generator) desc(t typesystem.Type) string {
	switch tt := t.(type) {
	case typesystem.Primitive:
		return primitiveDesc[tt]
	case *typesystem.StructType, *typesystem.VariantType, *typesystem.Applied:
		if class, ok := nominalClass(tt); ok {
			return classDesc(class)
		}
	case *typesystem.FuncType:
		g.arities[len(tt.Params)] = true
		return classDesc(funcClass(len(tt.Params)))
	case *typesystem.TupleType:
		g.tuples[len(tt.Elems)] = true
		return classDesc(tupleClass(len(tt.Elems)))
	case *typesystem.ForeignType:
		return classDesc(tt.Class)
	}
	return objectDesc
}

// slotDesc is desc for places that always hold a value: fields, parameters
// and FuncN arguments. Unit is stored there as null.
func (g *generator) slotDesc(t typesystem.Type) string {
	if d := g.desc(t); d != voidDesc {
		return d
	}
	return objectDesc
}

func (g *generator) methodDesc(ft *typesystem.FuncType) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range ft.Params {
		sb.WriteString(g.slotDesc(p))
	}
	sb.WriteByte(')')
	sb.WriteString(g.desc(ft.Result))
	return sb.String()
}

func (g *generator) fieldsDesc(fields []typesystem.Field) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, f := range fields {
		sb.WriteString(g.slotDesc(f.Type))
	}
	sb.WriteString(")V")
	return sb.String()
}

var primitiveDesc = map[typesystem.Primitive]string{
	typesystem.Bool:   "Z",
	typesystem.Char:   "C",
	typesystem.Byte:   "B",
	typesystem.Short:  "S",
	typesystem.Int:    "I",
	typesystem.Long:   "J",
	typesystem.Float:  "F",
	typesystem.Double: "D",
	typesystem.String: stringDesc,
	typesystem.Unit:   voidDesc,
}

// isPrimitiveDesc reports whether desc is a JVM primitive value type.
func isPrimitiveDesc(desc string) bool {
	return len(desc) == 1 && desc != voidDesc
}

// wrappers maps primitive descriptors to their box class and unboxing method.
var wrappers = map[byte]struct{ class, unbox string }{
	'Z': {"java/lang/Boolean", "booleanValue"},
	'C': {"java/lang/Character", "charValue"},
	'B': {"java/lang/Byte", "byteValue"},
	'S': {"java/lang/Short", "shortValue"},
	'I': {"java/lang/Integer", "intValue"},
	'J': {"java/lang/Long", "longValue"},
	'F': {"java/lang/Float", "floatValue"},
	'D': {"java/lang/Double", "doubleValue"},
}

// unboxedDesc returns the primitive held by a wrapper class descriptor.
func unboxedDesc(desc string) (byte, bool) {
	for p, w := range wrappers {
		if desc == classDesc(w.class) {
			return p, true
		}
	}
	return 0, false
}

// javaHash computes String.hashCode for s.
func javaHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}
