package typesystem

// widenings is the closed table of implicit primitive conversions.
// Anything not listed needs an explicit `as`.
var widenings = map[Primitive][]Primitive{
	Byte:  {Short, Int, Long, Float, Double},
	Short: {Int, Long, Float, Double},
	Char:  {Int, Long, Float, Double},
	Int:   {Long, Float, Double},
	Long:  {Float, Double},
	Float: {Double},
}

// CanWiden reports whether a value of type from converts implicitly to to.
// Identity is not a widening.
func CanWiden(from, to Primitive) bool {
	for _, t := range widenings[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsNumeric covers the integral and floating primitives, including Char.
func IsNumeric(p Primitive) bool {
	switch p {
	case Char, Byte, Short, Int, Long, Float, Double:
		return true
	}
	return false
}

func IsIntegral(p Primitive) bool {
	switch p {
	case Char, Byte, Short, Int, Long:
		return true
	}
	return false
}

func IsFloating(p Primitive) bool {
	return p == Float || p == Double
}

// Promote applies unary numeric promotion: sub-int types compute as Int.
func Promote(p Primitive) Primitive {
	switch p {
	case Byte, Short, Char:
		return Int
	}
	return p
}

// BinaryResult is the type both operands of an arithmetic operator are
// converted to, or false if neither widens to the other.
func BinaryResult(a, b Primitive) (Primitive, bool) {
	if !IsNumeric(a) || !IsNumeric(b) {
		return 0, false
	}
	a, b = Promote(a), Promote(b)
	switch {
	case a == b:
		return a, true
	case CanWiden(a, b):
		return b, true
	case CanWiden(b, a):
		return a, true
	}
	return 0, false
}

// IntLiteralFits reports whether the integer literal v may be typed as p.
func IntLiteralFits(v int64, p Primitive) bool {
	switch p {
	case Byte:
		return v >= -128 && v <= 127
	case Short:
		return v >= -32768 && v <= 32767
	case Char:
		return v >= 0 && v <= 0xFFFF
	case Int:
		return v >= -2147483648 && v <= 2147483647
	case Long, Float, Double:
		return true
	}
	return false
}

// ConvertibleExplicitly reports whether `as` may convert between two primitives.
func ConvertibleExplicitly(from, to Primitive) bool {
	if from == to {
		return true
	}
	return IsNumeric(from) && IsNumeric(to)
}
