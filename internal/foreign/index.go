package foreign

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/sasquach/internal/classfile"
)

// Index is an in-memory Namespace. It is filled once while loading and only
// read afterwards, so it is safe for concurrent lookups once built.
type Index struct {
	classes map[string]*Class
}

func NewIndex() *Index {
	return &Index{classes: make(map[string]*Class)}
}

// Add registers a class. A class that is already present is replaced, so
// later sources override earlier ones.
func (ix *Index) Add(c *Class) {
	if c.Super == "" && c.Name != ObjectClass {
		c.Super = ObjectClass
	}
	for _, m := range c.Members {
		m.Owner = c.Name
		m.OwnerInterface = c.Interface
	}
	ix.classes[c.Name] = c
}

func (ix *Index) ResolveClass(name string) (*Class, bool) {
	c, ok := ix.classes[name]
	return c, ok
}

func (ix *Index) Members(class, name string, kind MemberKind) []*Member {
	return collectMembers(ix, class, name, kind)
}

// Len returns the number of classes.
func (ix *Index) Len() int { return len(ix.classes) }

// ClassNames returns all class names in sorted order.
func (ix *Index) ClassNames() []string {
	names := make([]string, 0, len(ix.classes))
	for n := range ix.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IndexFile is the on-disk format of a curated class index, shared by the
// YAML and TOML loaders.
//
//	classes:
//	  - name: java/util/ArrayList
//	    super: java/util/AbstractList
//	    interfaces: [java/util/List]
//	    constructors: ["()V", "(I)V"]
//	    methods:
//	      - {name: add, desc: "(Ljava/lang/Object;)Z"}
//	    fields:
//	      - {name: MAX_VALUE, desc: I, static: true}
type IndexFile struct {
	Classes []ClassEntry `yaml:"classes" toml:"classes"`
}

type ClassEntry struct {
	Name         string        `yaml:"name" toml:"name"`
	Super        string        `yaml:"super,omitempty" toml:"super"`
	Interfaces   []string      `yaml:"interfaces,omitempty" toml:"interfaces"`
	Interface    bool          `yaml:"interface,omitempty" toml:"interface"`
	Constructors []string      `yaml:"constructors,omitempty" toml:"constructors"`
	Methods      []MemberEntry `yaml:"methods,omitempty" toml:"methods"`
	Fields       []MemberEntry `yaml:"fields,omitempty" toml:"fields"`
}

type MemberEntry struct {
	Name   string `yaml:"name" toml:"name"`
	Desc   string `yaml:"desc" toml:"desc"`
	Static bool   `yaml:"static,omitempty" toml:"static"`
}

// ParseYAML parses a YAML class index.
func ParseYAML(data []byte, path string) (*Index, error) {
	var f IndexFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f.build(path)
}

// ParseTOML parses a TOML class index ([[classes]] tables).
func ParseTOML(data []byte, path string) (*Index, error) {
	var f IndexFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing %s: unknown key %s", path, undecoded[0])
	}
	return f.build(path)
}

func (f *IndexFile) build(path string) (*Index, error) {
	ix := NewIndex()
	for i, ce := range f.Classes {
		c, err := ce.toClass()
		if err != nil {
			return nil, fmt.Errorf("%s: classes[%d]: %w", path, i, err)
		}
		if _, dup := ix.classes[c.Name]; dup {
			return nil, fmt.Errorf("%s: classes[%d]: duplicate class %s", path, i, c.Name)
		}
		ix.Add(c)
	}
	return ix, nil
}

func (ce ClassEntry) toClass() (*Class, error) {
	if ce.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.ContainsAny(ce.Name, ".;[") {
		return nil, fmt.Errorf("class %q: use internal names with '/' separators", ce.Name)
	}
	c := &Class{Name: ce.Name, Super: ce.Super, Interfaces: ce.Interfaces, Interface: ce.Interface}
	for _, desc := range ce.Constructors {
		m, err := newMethod("<init>", desc, KindConstructor, false)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", ce.Name, err)
		}
		if m.Result != "V" {
			return nil, fmt.Errorf("class %s: constructor %s must return V", ce.Name, desc)
		}
		c.Members = append(c.Members, m)
	}
	for _, me := range ce.Methods {
		if me.Name == "" {
			return nil, fmt.Errorf("class %s: method without name", ce.Name)
		}
		m, err := newMethod(me.Name, me.Desc, KindMethod, me.Static)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", ce.Name, err)
		}
		c.Members = append(c.Members, m)
	}
	for _, fe := range ce.Fields {
		if fe.Name == "" {
			return nil, fmt.Errorf("class %s: field without name", ce.Name)
		}
		if err := classfile.ValidateFieldDescriptor(fe.Desc); err != nil {
			return nil, fmt.Errorf("class %s: field %s: %w", ce.Name, fe.Name, err)
		}
		c.Members = append(c.Members, &Member{Name: fe.Name, Kind: KindField, Static: fe.Static, Descriptor: fe.Desc, Result: fe.Desc})
	}
	return c, nil
}

func newMethod(name, desc string, kind MemberKind, static bool) (*Member, error) {
	params, ret, err := classfile.SplitMethodDescriptor(desc)
	if err != nil {
		return nil, err
	}
	return &Member{Name: name, Kind: kind, Static: static, Descriptor: desc, Params: params, Result: ret}, nil
}

// Load builds an index from one path, chosen by extension: .yaml/.yml and
// .toml files are curated indexes, .class files and .jar archives are read
// as compiled classes, and directories are scanned for class files.
func Load(path string) (*Index, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("foreign index: %w", err)
	}
	if info.IsDir() {
		return LoadClassDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("foreign index: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			return ParseTOML(data, path)
		}
		return ParseYAML(data, path)
	case ".jar", ".zip":
		return LoadJar(path)
	case ".class":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("foreign index: %w", err)
		}
		c, err := ReadClass(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ix := NewIndex()
		ix.Add(c)
		return ix, nil
	}
	return nil, fmt.Errorf("foreign index %s: unsupported file type", path)
}

// LoadAll loads every path and layers them over base: later paths take
// precedence over earlier ones, and all of them over base.
func LoadAll(base Namespace, paths []string) (Namespace, error) {
	layers := make(Layered, 0, len(paths)+1)
	for i := len(paths) - 1; i >= 0; i-- {
		ix, err := Load(paths[i])
		if err != nil {
			return nil, err
		}
		layers = append(layers, ix)
	}
	if base != nil {
		layers = append(layers, base)
	}
	return layers, nil
}
