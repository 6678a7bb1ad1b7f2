package classfile

import "fmt"

// VTag is a verification type tag as written in a StackMapTable.
type VTag byte

const (
	VTop               VTag = 0
	VInteger           VTag = 1
	VFloat             VTag = 2
	VDouble            VTag = 3
	VLong              VTag = 4
	VNull              VTag = 5
	VUninitializedThis VTag = 6
	VObject            VTag = 7
	VUninitialized     VTag = 8
)

// VType is the verifier's view of one local or stack entry.
type VType struct {
	Tag VTag
	// Class is the internal name (or array descriptor) for VObject, and the
	// class being constructed for VUninitialized.
	Class string
	// Offset is the offset of the `new` instruction for VUninitialized.
	Offset int
}

var (
	Top     = VType{Tag: VTop}
	Integer = VType{Tag: VInteger}
	Float   = VType{Tag: VFloat}
	Long    = VType{Tag: VLong}
	Double  = VType{Tag: VDouble}
	Null    = VType{Tag: VNull}
)

func Object(class string) VType { return VType{Tag: VObject, Class: class} }

// Size is the number of slots the value occupies.
func (t VType) Size() int {
	if t.Tag == VLong || t.Tag == VDouble {
		return 2
	}
	return 1
}

func (t VType) IsReference() bool {
	switch t.Tag {
	case VNull, VObject, VUninitialized, VUninitializedThis:
		return true
	}
	return false
}

func (t VType) String() string {
	switch t.Tag {
	case VTop:
		return "top"
	case VInteger:
		return "int"
	case VFloat:
		return "float"
	case VLong:
		return "long"
	case VDouble:
		return "double"
	case VNull:
		return "null"
	case VUninitializedThis:
		return "uninitializedThis"
	case VObject:
		return t.Class
	case VUninitialized:
		return fmt.Sprintf("uninitialized(%d)", t.Offset)
	}
	return "invalid"
}

// VTypeOf maps a field descriptor to the verification type of a value of
// that type. Boolean, byte, char and short values are ints to the verifier.
func VTypeOf(desc string) VType {
	if desc == "" {
		return Top
	}
	switch desc[0] {
	case 'Z', 'B', 'C', 'S', 'I':
		return Integer
	case 'J':
		return Long
	case 'F':
		return Float
	case 'D':
		return Double
	case 'L':
		return Object(desc[1 : len(desc)-1])
	case '[':
		return Object(desc)
	}
	return Top
}

// kindIndex orders the typed load/store/return families: i, l, f, d, a.
func kindIndex(t VType) int {
	switch t.Tag {
	case VInteger:
		return 0
	case VLong:
		return 1
	case VFloat:
		return 2
	case VDouble:
		return 3
	}
	return 4
}
