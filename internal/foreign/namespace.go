// Package foreign models the host (JVM) classes a program may call into.
//
// A Namespace answers two questions for the resolver and the checker: does a
// class exist, and which members with a given name and kind does it have.
// Indexes are built from curated YAML/TOML stubs or from real class files.
package foreign

import "strings"

// ObjectClass is the root of every class hierarchy.
const ObjectClass = "java/lang/Object"

// MemberKind categorizes class members for lookup.
type MemberKind int

const (
	KindMethod      MemberKind = iota // static or instance method
	KindConstructor                   // <init>, called as C#new
	KindField                         // static or instance field
)

func (k MemberKind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindField:
		return "field"
	}
	return "unknown"
}

// Class describes one host class or interface.
type Class struct {
	// Name is the internal class name (e.g. "java/util/ArrayList").
	Name string

	// Super is the internal name of the superclass. Empty only for
	// java/lang/Object; interfaces use java/lang/Object.
	Super string

	// Interfaces lists directly implemented (or, for interfaces, extended)
	// interfaces.
	Interfaces []string

	// Interface is true for interface types. Instance methods of interfaces
	// are invoked with invokeinterface.
	Interface bool

	// Members holds every public member declared directly on the class.
	Members []*Member
}

// Member is a method, constructor or field of a host class.
type Member struct {
	// Owner is the internal name of the declaring class.
	Owner string

	// OwnerInterface mirrors Class.Interface of the owner.
	OwnerInterface bool

	Name string
	Kind MemberKind

	// Static is true for static methods and fields.
	Static bool

	// Descriptor is the JVM descriptor: "(ILjava/lang/String;)V" for methods
	// and constructors, "I" for fields.
	Descriptor string

	// Params are the parameter field descriptors, split from Descriptor.
	// Empty for fields.
	Params []string

	// Result is the return descriptor ("V" for void and constructors) or the
	// field type.
	Result string
}

// String renders the member as Owner#name(descriptor).
func (m *Member) String() string {
	name := m.Name
	if m.Kind == KindConstructor {
		name = "new"
	}
	return m.Owner + "#" + name + m.Descriptor
}

// SimpleName returns the last segment of an internal class name.
func SimpleName(class string) string {
	if i := strings.LastIndexByte(class, '/'); i >= 0 {
		return class[i+1:]
	}
	return class
}

// Namespace resolves host classes and their members.
type Namespace interface {
	// ResolveClass finds a class by internal name.
	ResolveClass(name string) (*Class, bool)

	// Members returns the members of class named name with the given kind,
	// including inherited ones. A member overridden in a subclass is listed
	// once, from the most derived class. Constructors are never inherited.
	Members(class, name string, kind MemberKind) []*Member
}

// collectMembers implements Namespace.Members on top of ResolveClass.
func collectMembers(ns Namespace, class, name string, kind MemberKind) []*Member {
	var out []*Member
	seen := make(map[string]bool)
	visited := make(map[string]bool)
	var walk func(string)
	walk = func(cls string) {
		if cls == "" || visited[cls] {
			return
		}
		visited[cls] = true
		c, ok := ns.ResolveClass(cls)
		if !ok {
			return
		}
		for _, m := range c.Members {
			if m.Kind != kind || m.Name != name {
				continue
			}
			if seen[m.Descriptor] {
				continue
			}
			seen[m.Descriptor] = true
			out = append(out, m)
		}
		if kind == KindConstructor {
			return
		}
		walk(c.Super)
		for _, iface := range c.Interfaces {
			walk(iface)
		}
		// Interfaces implicitly inherit from Object.
		if c.Interface {
			walk(ObjectClass)
		}
	}
	walk(class)
	return out
}

// IsSubclass reports whether a is b or inherits from it through superclasses
// or interfaces. Every class is a subclass of java/lang/Object.
func IsSubclass(ns Namespace, a, b string) bool {
	if a == b || b == ObjectClass {
		return true
	}
	visited := make(map[string]bool)
	var walk func(string) bool
	walk = func(cls string) bool {
		if cls == "" || visited[cls] {
			return false
		}
		if cls == b {
			return true
		}
		visited[cls] = true
		c, ok := ns.ResolveClass(cls)
		if !ok {
			return false
		}
		if walk(c.Super) {
			return true
		}
		for _, iface := range c.Interfaces {
			if walk(iface) {
				return true
			}
		}
		return false
	}
	return walk(a)
}

// Layered searches each namespace in order; the first one that knows a class
// wins. It is used to put user indexes over the JDK stub.
type Layered []Namespace

func (l Layered) ResolveClass(name string) (*Class, bool) {
	for _, ns := range l {
		if ns == nil {
			continue
		}
		if c, ok := ns.ResolveClass(name); ok {
			return c, true
		}
	}
	return nil, false
}

func (l Layered) Members(class, name string, kind MemberKind) []*Member {
	return collectMembers(l, class, name, kind)
}
