package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PoolEntry is one parsed constant pool entry. A and B hold the index
// operands of reference entries (class, name_and_type, ...).
type PoolEntry struct {
	Tag   byte
	Str   string
	Int   int64
	Float float64
	A, B  uint16
}

type Attribute struct {
	Name string
	Data []byte
}

type ExceptionEntry struct {
	StartPC, EndPC, HandlerPC, CatchType uint16
}

type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []ExceptionEntry
	Attributes     []Attribute
}

type MemberInfo struct {
	Access     uint16
	Name       string
	Descriptor string
	Attributes []Attribute
	Code       *Code // methods with a body only
}

// ClassFile is a parsed class file.
type ClassFile struct {
	Minor, Major uint16
	Pool         []PoolEntry // index-aligned; entry 0 and long/double tails are empty
	Access       uint16
	ThisClass    string
	SuperClass   string // empty for java/lang/Object
	Interfaces   []string
	Fields       []*MemberInfo
	Methods      []*MemberInfo
	Attributes   []Attribute
}

var errTruncated = errors.New("truncated class file")

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = errTruncated
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u1() uint8 {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u2() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u4() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	if r.u4() != 0xCAFEBABE {
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("bad magic number")
	}
	cf := &ClassFile{Minor: r.u2(), Major: r.u2()}
	if err := cf.readPool(r); err != nil {
		return nil, err
	}
	cf.Access = r.u2()
	var err error
	if cf.ThisClass, err = cf.ClassName(r.u2()); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if super := r.u2(); super != 0 {
		if cf.SuperClass, err = cf.ClassName(super); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		name, err := cf.ClassName(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}
	if cf.Fields, err = cf.readMembers(r); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cf.Methods, err = cf.readMembers(r); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	if cf.Attributes, err = cf.readAttributes(r); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after class file", len(data)-r.pos)
	}
	return cf, nil
}

func (cf *ClassFile) readPool(r *reader) error {
	count := int(r.u2())
	cf.Pool = make([]PoolEntry, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		e := PoolEntry{Tag: tag}
		switch tag {
		case TagUtf8:
			s, err := decodeModifiedUTF8(r.bytes(int(r.u2())))
			if err != nil {
				return fmt.Errorf("constant pool #%d: %w", i, err)
			}
			e.Str = s
		case TagInteger:
			e.Int = int64(int32(r.u4()))
		case TagFloat:
			e.Float = float64(math.Float32frombits(r.u4()))
		case TagLong:
			e.Int = int64(uint64(r.u4())<<32 | uint64(r.u4()))
		case TagDouble:
			e.Float = math.Float64frombits(uint64(r.u4())<<32 | uint64(r.u4()))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.A = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagInvokeDynamic, 17:
			e.A, e.B = r.u2(), r.u2()
		case TagMethodHandle:
			e.A, e.B = uint16(r.u1()), r.u2()
		default:
			if r.err != nil {
				return r.err
			}
			return fmt.Errorf("constant pool #%d: unknown tag %d", i, tag)
		}
		cf.Pool[i] = e
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	return r.err
}

func (cf *ClassFile) entry(idx uint16, tag byte) (PoolEntry, error) {
	if idx == 0 || int(idx) >= len(cf.Pool) {
		return PoolEntry{}, fmt.Errorf("constant pool index %d out of range", idx)
	}
	e := cf.Pool[idx]
	if e.Tag != tag {
		return PoolEntry{}, fmt.Errorf("constant pool #%d: expected tag %d, got %d", idx, tag, e.Tag)
	}
	return e, nil
}

// Utf8 returns the string of a CONSTANT_Utf8 entry.
func (cf *ClassFile) Utf8(idx uint16) (string, error) {
	e, err := cf.entry(idx, TagUtf8)
	return e.Str, err
}

// ClassName returns the internal name of a CONSTANT_Class entry.
func (cf *ClassFile) ClassName(idx uint16) (string, error) {
	e, err := cf.entry(idx, TagClass)
	if err != nil {
		return "", err
	}
	return cf.Utf8(e.A)
}

// MemberRef resolves a field, method or interface method reference.
func (cf *ClassFile) MemberRef(idx uint16) (owner, name, desc string, err error) {
	if idx == 0 || int(idx) >= len(cf.Pool) {
		return "", "", "", fmt.Errorf("constant pool index %d out of range", idx)
	}
	e := cf.Pool[idx]
	switch e.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return "", "", "", fmt.Errorf("constant pool #%d is not a member reference", idx)
	}
	if owner, err = cf.ClassName(e.A); err != nil {
		return
	}
	nt, err := cf.entry(e.B, TagNameAndType)
	if err != nil {
		return
	}
	if name, err = cf.Utf8(nt.A); err != nil {
		return
	}
	desc, err = cf.Utf8(nt.B)
	return
}

func (cf *ClassFile) readMembers(r *reader) ([]*MemberInfo, error) {
	n := int(r.u2())
	members := make([]*MemberInfo, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		m := &MemberInfo{Access: r.u2()}
		var err error
		if m.Name, err = cf.Utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Descriptor, err = cf.Utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Attributes, err = cf.readAttributes(r); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		for _, a := range m.Attributes {
			if a.Name == "Code" {
				if m.Code, err = cf.parseCode(a.Data); err != nil {
					return nil, fmt.Errorf("%s: %w", m.Name, err)
				}
			}
		}
		members = append(members, m)
	}
	return members, r.err
}

func (cf *ClassFile) readAttributes(r *reader) ([]Attribute, error) {
	n := int(r.u2())
	var attrs []Attribute
	for i := 0; i < n && r.err == nil; i++ {
		name, err := cf.Utf8(r.u2())
		if err != nil {
			return nil, fmt.Errorf("attribute name: %w", err)
		}
		data := r.bytes(int(r.u4()))
		attrs = append(attrs, Attribute{Name: name, Data: data})
	}
	return attrs, r.err
}

func (cf *ClassFile) parseCode(data []byte) (*Code, error) {
	r := &reader{data: data}
	c := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
	c.Bytecode = r.bytes(int(r.u4()))
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		c.ExceptionTable = append(c.ExceptionTable, ExceptionEntry{r.u2(), r.u2(), r.u2(), r.u2()})
	}
	attrs, err := cf.readAttributes(r)
	if err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}
	c.Attributes = attrs
	return c, r.err
}

// Attribute returns the first attribute called name.
func (c *Code) Attribute(name string) ([]byte, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a.Data, true
		}
	}
	return nil, false
}

// StackMapFrame is one decoded StackMapTable entry with its absolute offset.
// Locals and Stack are only set for frame types that carry them.
type StackMapFrame struct {
	Offset int
	Type   byte
	Locals []VType
	Stack  []VType
}

// StackMap decodes the method's StackMapTable, if any.
func (cf *ClassFile) StackMap(c *Code) ([]StackMapFrame, error) {
	data, ok := c.Attribute("StackMapTable")
	if !ok {
		return nil, nil
	}
	r := &reader{data: data}
	n := int(r.u2())
	frames := make([]StackMapFrame, 0, n)
	offset := -1
	for i := 0; i < n && r.err == nil; i++ {
		typ := r.u1()
		f := StackMapFrame{Type: typ}
		var delta int
		switch {
		case typ <= 63:
			delta = int(typ)
		case typ <= 127:
			delta = int(typ) - 64
			f.Stack = []VType{cf.readVType(r)}
		case typ == 247:
			delta = int(r.u2())
			f.Stack = []VType{cf.readVType(r)}
		case typ >= 248 && typ <= 251:
			delta = int(r.u2())
		case typ >= 252 && typ <= 254:
			delta = int(r.u2())
			for j := 0; j < int(typ)-251; j++ {
				f.Locals = append(f.Locals, cf.readVType(r))
			}
		case typ == 255:
			delta = int(r.u2())
			nl := int(r.u2())
			for j := 0; j < nl; j++ {
				f.Locals = append(f.Locals, cf.readVType(r))
			}
			ns := int(r.u2())
			for j := 0; j < ns; j++ {
				f.Stack = append(f.Stack, cf.readVType(r))
			}
		default:
			return nil, fmt.Errorf("reserved stack map frame type %d", typ)
		}
		offset += delta + 1
		f.Offset = offset
		frames = append(frames, f)
	}
	return frames, r.err
}

func (cf *ClassFile) readVType(r *reader) VType {
	t := VType{Tag: VTag(r.u1())}
	switch t.Tag {
	case VObject:
		name, err := cf.ClassName(r.u2())
		if err != nil && r.err == nil {
			r.err = err
		}
		t.Class = name
	case VUninitialized:
		t.Offset = int(r.u2())
	}
	return t
}
