package typesystem

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func optionType() *VariantType {
	t := &TypeParam{Name: "T", Owner: "Option"}
	v := &VariantType{Module: "app/Main", Name: "Option", Params: []*TypeParam{t}}
	v.Alternatives = []*Alternative{
		{Tag: "Some", Kind: AltTuple, Fields: []Field{{Name: TupleFieldName(0), Type: t}}, Variant: v},
		{Tag: "None", Kind: AltUnit, Index: 1, Variant: v},
	}
	return v
}

func TestIdentical_NominalByKey(t *testing.T) {
	a := &StructType{Module: "app/Main", Name: "Point"}
	b := &StructType{Module: "app/Main", Name: "Point", Fields: []Field{{Name: "x", Type: Int}}}
	c := &StructType{Module: "app/Other", Name: "Point"}

	be.True(t, Identical(a, b))
	be.True(t, !Identical(a, c))
	be.True(t, Identical(&ForeignType{Class: "java/util/List"}, &ForeignType{Class: "java/util/List"}))
}

func TestIdentical_Structural(t *testing.T) {
	f1 := &FuncType{Params: []Type{Int, String}, Result: Bool}
	f2 := &FuncType{Params: []Type{Int, String}, Result: Bool}
	f3 := &FuncType{Params: []Type{Int}, Result: Bool}
	be.True(t, Identical(f1, f2))
	be.True(t, !Identical(f1, f3))

	opt := optionType()
	be.True(t, Identical(&Applied{Base: opt, Args: []Type{Int}}, &Applied{Base: opt, Args: []Type{Int}}))
	be.True(t, !Identical(&Applied{Base: opt, Args: []Type{Int}}, &Applied{Base: opt, Args: []Type{Long}}))
}

func TestUnify_SolvesMetas(t *testing.T) {
	u := NewUnifier()
	opt := optionType()
	m := u.Fresh(BoundNone)

	err := u.Unify(&Applied{Base: opt, Args: []Type{Int}}, &Applied{Base: opt, Args: []Type{m}})
	be.Err(t, err, nil)
	be.Equal(t, u.Apply(m), Type(Int))

	fm := u.Fresh(BoundNone)
	err = u.Unify(&FuncType{Params: []Type{fm}, Result: fm}, &FuncType{Params: []Type{String}, Result: String})
	be.Err(t, err, nil)
	be.Equal(t, u.Apply(fm), Type(String))
}

func TestUnify_Mismatch(t *testing.T) {
	u := NewUnifier()
	err := u.Unify(Int, Long)
	var mm *MismatchError
	be.True(t, errors.As(err, &mm))
	be.Equal(t, mm.Expected, Type(Int))
	be.Equal(t, mm.Actual, Type(Long))
}

func TestUnify_OccursCheck(t *testing.T) {
	u := NewUnifier()
	m := u.Fresh(BoundNone)
	err := u.Unify(m, &FuncType{Params: []Type{m}, Result: Int})
	var oe *OccursError
	be.True(t, errors.As(err, &oe))
}

func TestUnify_Bounds(t *testing.T) {
	u := NewUnifier()
	num := u.Fresh(BoundNum)
	be.Err(t, u.Unify(num, String))
	be.Err(t, u.Unify(num, Double), nil)

	ord := u.Fresh(BoundOrd)
	be.Err(t, u.Unify(ord, String), nil)

	// Merging metas keeps the stronger bound.
	a, b := u.Fresh(BoundNum), u.Fresh(BoundNone)
	be.Err(t, u.Unify(a, b), nil)
	be.Err(t, u.Unify(b, Bool))
}

func TestUnify_BoundFailurePoisonsMeta(t *testing.T) {
	u := NewUnifier()
	m := u.Fresh(BoundNum)
	be.Err(t, u.Unify(m, String))
	be.Err(t, u.Unify(m, String), nil)
	be.True(t, IsInvalid(u.Apply(m)))
}

func TestUnify_InvalidAbsorbs(t *testing.T) {
	u := NewUnifier()
	be.Err(t, u.Unify(Invalid, &FuncType{Result: Int}), nil)
	be.Err(t, u.Unify(String, Invalid), nil)
}

func TestFreeMetas(t *testing.T) {
	u := NewUnifier()
	a, b := u.Fresh(BoundNone), u.Fresh(BoundNone)
	f := &FuncType{Params: []Type{a, b, a}, Result: b}
	be.Equal(t, len(u.Subst.FreeMetas(f)), 2)
	be.Err(t, u.Unify(a, Int), nil)
	free := u.Subst.FreeMetas(f)
	be.Equal(t, len(free), 1)
	be.True(t, free[0] == b)
}

func TestAltFields_Substitutes(t *testing.T) {
	opt := optionType()
	applied := &Applied{Base: opt, Args: []Type{Double}}
	fields := AltFields(opt.Alternative("Some"), applied)
	be.Equal(t, len(fields), 1)
	be.Equal(t, fields[0].Type, Type(Double))
}

func TestWideningTable(t *testing.T) {
	tests := []struct {
		from, to Primitive
		want     bool
	}{
		{Int, Long, true},
		{Int, Double, true},
		{Byte, Short, true},
		{Char, Int, true},
		{Long, Float, true},
		{Float, Double, true},
		{Long, Int, false},
		{Double, Float, false},
		{Double, Int, false},
		{Int, Char, false},
		{Short, Char, false},
		{Int, Int, false},
		{Bool, Int, false},
	}
	for _, tt := range tests {
		be.Equal(t, CanWiden(tt.from, tt.to), tt.want)
	}
}

func TestBinaryResult(t *testing.T) {
	r, ok := BinaryResult(Int, Long)
	be.True(t, ok)
	be.Equal(t, r, Long)

	r, ok = BinaryResult(Byte, Short)
	be.True(t, ok)
	be.Equal(t, r, Int)

	r, ok = BinaryResult(Float, Long)
	be.True(t, ok)
	be.Equal(t, r, Float)

	_, ok = BinaryResult(Int, String)
	be.True(t, !ok)
}

func TestIntLiteralFits(t *testing.T) {
	be.True(t, IntLiteralFits(127, Byte))
	be.True(t, !IntLiteralFits(128, Byte))
	be.True(t, IntLiteralFits(1<<40, Long))
	be.True(t, !IntLiteralFits(1<<40, Int))
}

func TestForeign_StringIsPrimitive(t *testing.T) {
	be.Equal(t, Foreign("java/lang/String"), Type(String))
	be.True(t, Identical(Foreign("java/util/Map"), &ForeignType{Class: "java/util/Map"}))
}
