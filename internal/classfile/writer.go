package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/funvibe/sasquach/internal/config"
)

type fieldDef struct {
	access     uint16
	name, desc string
}

type methodDef struct {
	access     uint16
	name, desc string
	code       *Assembler // nil for abstract methods
}

// ClassBuilder collects the members of one class and serializes it.
type ClassBuilder struct {
	pool       *ConstantPool
	access     uint16
	name       string
	super      string
	interfaces []string
	sourceFile string
	fields     []fieldDef
	methods    []*methodDef
}

func NewClass(access uint16, name, super string, interfaces ...string) *ClassBuilder {
	return &ClassBuilder{
		pool:       NewConstantPool(),
		access:     access,
		name:       name,
		super:      super,
		interfaces: interfaces,
	}
}

func (c *ClassBuilder) Name() string { return c.name }

func (c *ClassBuilder) SetSourceFile(name string) { c.sourceFile = name }

func (c *ClassBuilder) AddField(access uint16, name, desc string) {
	c.fields = append(c.fields, fieldDef{access: access, name: name, desc: desc})
}

// AddMethod declares a method with a body and returns the assembler for it.
func (c *ClassBuilder) AddMethod(access uint16, name, desc string) *Assembler {
	a := newAssembler(c.pool, c.name, access, name, desc)
	c.methods = append(c.methods, &methodDef{access: access, name: name, desc: desc, code: a})
	return a
}

// AddAbstractMethod declares a method without a body.
func (c *ClassBuilder) AddAbstractMethod(access uint16, name, desc string) {
	c.methods = append(c.methods, &methodDef{access: access | AccAbstract, name: name, desc: desc})
}

// Bytes serializes the class. It fails if any method body is invalid.
func (c *ClassBuilder) Bytes() ([]byte, error) {
	var body bytes.Buffer
	w := func(v interface{}) { binary.Write(&body, binary.BigEndian, v) }

	w(c.access)
	w(c.pool.Class(c.name))
	w(c.pool.Class(c.super))
	w(uint16(len(c.interfaces)))
	for _, iface := range c.interfaces {
		w(c.pool.Class(iface))
	}

	w(uint16(len(c.fields)))
	for _, f := range c.fields {
		w(f.access)
		w(c.pool.Utf8(f.name))
		w(c.pool.Utf8(f.desc))
		w(uint16(0))
	}

	w(uint16(len(c.methods)))
	for _, m := range c.methods {
		w(m.access)
		w(c.pool.Utf8(m.name))
		w(c.pool.Utf8(m.desc))
		if m.code == nil {
			w(uint16(0))
			continue
		}
		code, err := m.code.finish()
		if err != nil {
			return nil, err
		}
		w(uint16(1))
		w(c.pool.Utf8("Code"))
		w(uint32(len(code)))
		body.Write(code)
	}

	if c.sourceFile != "" {
		w(uint16(1))
		w(c.pool.Utf8("SourceFile"))
		w(uint32(2))
		w(c.pool.Utf8(c.sourceFile))
	} else {
		w(uint16(0))
	}

	if c.pool.Count() == 0 { // wrapped past 65535 entries
		return nil, fmt.Errorf("%s: constant pool overflow", c.name)
	}
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	binary.Write(&out, binary.BigEndian, uint16(config.ClassMinorVersion))
	binary.Write(&out, binary.BigEndian, uint16(config.ClassMajorVersion))
	binary.Write(&out, binary.BigEndian, c.pool.Count())
	out.Write(c.pool.Bytes())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
