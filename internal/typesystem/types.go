package typesystem

import (
	"fmt"
	"strings"

	"github.com/funvibe/sasquach/internal/config"
)

// Type is the closed set of types: Primitive, *StructType, *VariantType,
// *FuncType, *TypeParam, *Applied, *ForeignType, *Meta and Invalid.
type Type interface {
	String() string
	isType()
}

type Primitive int

const (
	Bool Primitive = iota
	Char
	Byte
	Short
	Int
	Long
	Float
	Double
	String
	Unit
)

var primitiveNames = [...]string{
	Bool:   config.BoolTypeName,
	Char:   config.CharTypeName,
	Byte:   config.ByteTypeName,
	Short:  config.ShortTypeName,
	Int:    config.IntTypeName,
	Long:   config.LongTypeName,
	Float:  config.FloatTypeName,
	Double: config.DoubleTypeName,
	String: config.StringTypeName,
	Unit:   config.UnitTypeName,
}

// Primitives lists every primitive in declaration order.
var Primitives = []Primitive{Bool, Char, Byte, Short, Int, Long, Float, Double, String, Unit}

func (p Primitive) String() string { return primitiveNames[p] }
func (Primitive) isType()          {}

type Field struct {
	Name string
	Type Type
}

// StructType is nominal: two struct types are the same type iff their keys match.
// Fields stay nil until signature elaboration fills them.
type StructType struct {
	Module string
	Name   string
	Params []*TypeParam
	Fields []Field
}

func (s *StructType) Key() string    { return s.Module + "." + s.Name }
func (s *StructType) String() string { return s.Name }
func (*StructType) isType()          {}

// Field returns the field with the given name and its declaration index.
func (s *StructType) Field(name string) (Field, int, bool) {
	return lookupField(s.Fields, name)
}

type AltKind int

const (
	AltUnit AltKind = iota
	AltTuple
	AltRecord
)

// Alternative is one tagged case of a variant. Tuple payloads have fields
// named _0, _1, ...
type Alternative struct {
	Tag     string
	Kind    AltKind
	Fields  []Field
	Index   int
	Variant *VariantType
}

func (a *Alternative) Field(name string) (Field, int, bool) {
	return lookupField(a.Fields, name)
}

// TupleFieldName is the payload field name of the i-th tuple element.
func TupleFieldName(i int) string { return fmt.Sprintf("_%d", i) }

type VariantType struct {
	Module       string
	Name         string
	Params       []*TypeParam
	Alternatives []*Alternative
}

func (v *VariantType) Key() string    { return v.Module + "." + v.Name }
func (v *VariantType) String() string { return v.Name }
func (*VariantType) isType()          {}

func (v *VariantType) Alternative(tag string) *Alternative {
	for _, a := range v.Alternatives {
		if a.Tag == tag {
			return a
		}
	}
	return nil
}

type FuncType struct {
	TypeParams []*TypeParam
	Params     []Type
	Result     Type
}

func (f *FuncType) String() string {
	var sb strings.Builder
	sb.WriteString("fn")
	if len(f.TypeParams) > 0 {
		sb.WriteByte('[')
		for i, tp := range f.TypeParams {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(tp.Decl())
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(f.Result.String())
	return sb.String()
}
func (*FuncType) isType() {}

// TupleType is a fixed-size product of at least two elements. Element i is
// read as field _i, counted from 0.
type TupleType struct {
	Elems []Type
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (*TupleType) isType() {}

// Elem returns the element read by field name, as in t._1.
func (t *TupleType) Elem(field string) (Type, bool) {
	for i, e := range t.Elems {
		if TupleFieldName(i) == field {
			return e, true
		}
	}
	return nil, false
}

type Bound int

const (
	BoundNone Bound = iota
	BoundOrd
	BoundNum
)

func (b Bound) String() string {
	switch b {
	case BoundOrd:
		return config.OrdBoundName
	case BoundNum:
		return config.NumBoundName
	}
	return ""
}

// Satisfies reports whether a parameter bounded by b may be used where want is required.
func (b Bound) Satisfies(want Bound) bool {
	return b >= want
}

// TypeParam is a rigid, universally quantified parameter of one declaration.
// Identity is the pointer.
type TypeParam struct {
	Name  string
	Bound Bound
	Owner string
}

func (t *TypeParam) String() string { return t.Name }
func (*TypeParam) isType()          {}

func (t *TypeParam) Decl() string {
	if t.Bound == BoundNone {
		return t.Name
	}
	return t.Name + ": " + t.Bound.String()
}

// Applied is a generic struct or variant applied to type arguments.
type Applied struct {
	Base Type
	Args []Type
}

func (a *Applied) String() string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s[%s]", a.Base, strings.Join(args, ", "))
}
func (*Applied) isType() {}

// ForeignType is a host class, identified by its internal name (java/util/ArrayList).
type ForeignType struct {
	Class string
}

func (f *ForeignType) Key() string    { return f.Class }
func (f *ForeignType) String() string { return f.Class }
func (*ForeignType) isType()          {}

// Meta is an inference variable. Its solution lives in a Subst.
type Meta struct {
	ID    int
	Bound Bound
}

func (m *Meta) String() string { return fmt.Sprintf("?%d", m.ID) }
func (*Meta) isType()          {}

type invalid struct{}

func (invalid) String() string { return "<invalid>" }
func (invalid) isType()        {}

// Invalid marks an expression whose type could not be determined because of an
// already reported error. It unifies with everything.
var Invalid Type = invalid{}

func lookupField(fields []Field, name string) (Field, int, bool) {
	for i, f := range fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// Nominal returns the struct or variant behind t, looking through Applied.
func Nominal(t Type) (Type, []Type) {
	switch tt := t.(type) {
	case *StructType, *VariantType:
		return tt, nil
	case *Applied:
		return tt.Base, tt.Args
	}
	return nil, nil
}

// Params returns the declared type parameters of a struct or variant.
func Params(t Type) []*TypeParam {
	switch tt := t.(type) {
	case *StructType:
		return tt.Params
	case *VariantType:
		return tt.Params
	}
	return nil
}

// ParamSubst maps the type parameters of a generic struct or variant to the
// arguments of an Applied type.
func ParamSubst(t Type) map[*TypeParam]Type {
	base, args := Nominal(t)
	params := Params(base)
	if len(params) == 0 || len(params) != len(args) {
		return nil
	}
	m := make(map[*TypeParam]Type, len(params))
	for i, p := range params {
		m[p] = args[i]
	}
	return m
}

// FieldsOf returns the fields of a struct with its type arguments substituted.
func FieldsOf(t Type) []Field {
	base, _ := Nominal(t)
	st, ok := base.(*StructType)
	if !ok {
		return nil
	}
	return substFields(st.Fields, ParamSubst(t))
}

// AltFields returns the payload fields of alt as seen through the (possibly
// applied) variant type t.
func AltFields(alt *Alternative, t Type) []Field {
	return substFields(alt.Fields, ParamSubst(t))
}

func substFields(fields []Field, m map[*TypeParam]Type) []Field {
	if len(m) == 0 {
		return fields
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Type: Instantiate(f.Type, m)}
	}
	return out
}

// Instantiate replaces type parameters in t according to m.
func Instantiate(t Type, m map[*TypeParam]Type) Type {
	if len(m) == 0 {
		return t
	}
	switch tt := t.(type) {
	case *TypeParam:
		if r, ok := m[tt]; ok {
			return r
		}
		return tt
	case *Applied:
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = Instantiate(a, m)
		}
		return &Applied{Base: tt.Base, Args: args}
	case *FuncType:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = Instantiate(p, m)
		}
		return &FuncType{TypeParams: tt.TypeParams, Params: params, Result: Instantiate(tt.Result, m)}
	case *TupleType:
		elems := make([]Type, len(tt.Elems))
		for i, e := range tt.Elems {
			elems[i] = Instantiate(e, m)
		}
		return &TupleType{Elems: elems}
	}
	return t
}

// IsUnit reports whether t is the Unit primitive.
func IsUnit(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p == Unit
}

func IsInvalid(t Type) bool {
	_, ok := t.(invalid)
	return ok
}

// Foreign returns the type of a host class. java/lang/String is the String
// primitive.
func Foreign(class string) Type {
	if class == "java/lang/String" {
		return String
	}
	return &ForeignType{Class: class}
}
