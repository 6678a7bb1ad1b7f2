package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// Constant pool tags.
const (
	TagUtf8               byte = 1
	TagInteger            byte = 3
	TagFloat              byte = 4
	TagLong               byte = 5
	TagDouble             byte = 6
	TagClass              byte = 7
	TagString             byte = 8
	TagFieldref           byte = 9
	TagMethodref          byte = 10
	TagInterfaceMethodref byte = 11
	TagNameAndType        byte = 12
	TagMethodHandle       byte = 15
	TagMethodType         byte = 16
	TagInvokeDynamic      byte = 18
	TagModule             byte = 19
	TagPackage            byte = 20
)

// ConstantPool builds a deduplicated constant pool. Index 0 is unused and
// long/double entries take two slots, as the class file format requires.
type ConstantPool struct {
	buf   bytes.Buffer
	index map[string]uint16
	next  uint16
}

func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: make(map[string]uint16), next: 1}
}

// Count is the constant_pool_count written to the class file.
func (p *ConstantPool) Count() uint16 { return p.next }

func (p *ConstantPool) intern(key string, slots uint16, write func(*bytes.Buffer)) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	write(&p.buf)
	p.next += slots
	p.index[key] = idx
	return idx
}

func (p *ConstantPool) Utf8(s string) uint16 {
	return p.intern("U"+s, 1, func(b *bytes.Buffer) {
		enc := encodeModifiedUTF8(s)
		b.WriteByte(TagUtf8)
		binary.Write(b, binary.BigEndian, uint16(len(enc)))
		b.Write(enc)
	})
}

func (p *ConstantPool) Class(name string) uint16 {
	nameIdx := p.Utf8(name)
	return p.intern("C"+name, 1, func(b *bytes.Buffer) {
		b.WriteByte(TagClass)
		binary.Write(b, binary.BigEndian, nameIdx)
	})
}

func (p *ConstantPool) String(s string) uint16 {
	utf := p.Utf8(s)
	return p.intern("S"+s, 1, func(b *bytes.Buffer) {
		b.WriteByte(TagString)
		binary.Write(b, binary.BigEndian, utf)
	})
}

func (p *ConstantPool) Integer(v int32) uint16 {
	return p.intern(fmt.Sprintf("I%d", v), 1, func(b *bytes.Buffer) {
		b.WriteByte(TagInteger)
		binary.Write(b, binary.BigEndian, v)
	})
}

func (p *ConstantPool) Float(v float32) uint16 {
	bits := math.Float32bits(v)
	return p.intern(fmt.Sprintf("F%x", bits), 1, func(b *bytes.Buffer) {
		b.WriteByte(TagFloat)
		binary.Write(b, binary.BigEndian, bits)
	})
}

func (p *ConstantPool) Long(v int64) uint16 {
	return p.intern(fmt.Sprintf("J%d", v), 2, func(b *bytes.Buffer) {
		b.WriteByte(TagLong)
		binary.Write(b, binary.BigEndian, v)
	})
}

func (p *ConstantPool) Double(v float64) uint16 {
	bits := math.Float64bits(v)
	return p.intern(fmt.Sprintf("D%x", bits), 2, func(b *bytes.Buffer) {
		b.WriteByte(TagDouble)
		binary.Write(b, binary.BigEndian, bits)
	})
}

func (p *ConstantPool) NameAndType(name, desc string) uint16 {
	n, d := p.Utf8(name), p.Utf8(desc)
	return p.intern("N"+name+" "+desc, 1, func(b *bytes.Buffer) {
		b.WriteByte(TagNameAndType)
		binary.Write(b, binary.BigEndian, n)
		binary.Write(b, binary.BigEndian, d)
	})
}

func (p *ConstantPool) ref(tag byte, owner, name, desc string) uint16 {
	c, nt := p.Class(owner), p.NameAndType(name, desc)
	return p.intern(fmt.Sprintf("R%d%s.%s:%s", tag, owner, name, desc), 1, func(b *bytes.Buffer) {
		b.WriteByte(tag)
		binary.Write(b, binary.BigEndian, c)
		binary.Write(b, binary.BigEndian, nt)
	})
}

func (p *ConstantPool) Fieldref(owner, name, desc string) uint16 {
	return p.ref(TagFieldref, owner, name, desc)
}

func (p *ConstantPool) Methodref(owner, name, desc string) uint16 {
	return p.ref(TagMethodref, owner, name, desc)
}

func (p *ConstantPool) InterfaceMethodref(owner, name, desc string) uint16 {
	return p.ref(TagInterfaceMethodref, owner, name, desc)
}

// Bytes returns the encoded entries, without the count.
func (p *ConstantPool) Bytes() []byte { return p.buf.Bytes() }

// encodeModifiedUTF8 encodes s the way the JVM stores strings: NUL is two
// bytes and supplementary characters are encoded as surrogate pairs.
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = appendUTF8Unit(out, hi)
			out = appendUTF8Unit(out, lo)
			continue
		}
		out = appendUTF8Unit(out, r)
	}
	return out
}

func appendUTF8Unit(out []byte, r rune) []byte {
	switch {
	case r != 0 && r < 0x80:
		return append(out, byte(r))
	case r < 0x800:
		return append(out, byte(0xC0|(r>>6)), byte(0x80|(r&0x3F)))
	default:
		return append(out, byte(0xE0|(r>>12)), byte(0x80|((r>>6)&0x3F)), byte(0x80|(r&0x3F)))
	}
}

// decodeModifiedUTF8 is the inverse of encodeModifiedUTF8.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) {
				return "", fmt.Errorf("truncated modified UTF-8")
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) {
				return "", fmt.Errorf("truncated modified UTF-8")
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("invalid modified UTF-8 byte 0x%02x", c)
		}
	}
	return string(utf16.Decode(units)), nil
}
